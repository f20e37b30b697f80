package framebuf

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/zsiec/mirror/internal/media"
)

func frameWithPTS(pts int64) *media.Frame {
	f := media.NewFrame(4, 4)
	f.PTS = pts
	return f
}

func TestPushConsumeSingle(t *testing.T) {
	t.Parallel()

	b := New()
	skipped, err := b.Push(frameWithPTS(1))
	if err != nil {
		t.Fatalf("Push: %v", err)
	}
	if skipped {
		t.Error("first push reported a skipped frame")
	}

	f, err := b.Consume()
	if err != nil {
		t.Fatalf("Consume: %v", err)
	}
	if f.PTS != 1 {
		t.Errorf("PTS = %d, want 1", f.PTS)
	}

	if _, err := b.Consume(); !errors.Is(err, ErrEmpty) {
		t.Errorf("second Consume: got %v, want ErrEmpty", err)
	}
}

func TestPushNil(t *testing.T) {
	t.Parallel()

	b := New()
	if _, err := b.Push(nil); !errors.Is(err, ErrInvalidFrame) {
		t.Fatalf("Push(nil): got %v, want ErrInvalidFrame", err)
	}
	if b.Pushed() != 0 {
		t.Errorf("Pushed = %d, want 0", b.Pushed())
	}
}

func TestPushNWithoutConsume(t *testing.T) {
	t.Parallel()

	for _, n := range []int{1, 2, 3, 10} {
		b := New()
		var reported int
		for i := 1; i <= n; i++ {
			skipped, err := b.Push(frameWithPTS(int64(i)))
			if err != nil {
				t.Fatalf("Push: %v", err)
			}
			if skipped {
				reported++
			}
		}

		if got := b.Skipped(); got != uint64(n-1) {
			t.Errorf("n=%d: Skipped = %d, want %d", n, got, n-1)
		}
		if reported != n-1 {
			t.Errorf("n=%d: reported skips = %d, want %d", n, reported, n-1)
		}

		f, err := b.Consume()
		if err != nil {
			t.Fatalf("n=%d: Consume: %v", n, err)
		}
		if f.PTS != int64(n) {
			t.Errorf("n=%d: consumed PTS %d, want the latest %d", n, f.PTS, n)
		}
		if _, err := b.Consume(); !errors.Is(err, ErrEmpty) {
			t.Errorf("n=%d: more than one consumable frame", n)
		}
	}
}

func TestThreePushesDeliverThird(t *testing.T) {
	t.Parallel()

	b := New()
	for i := int64(1); i <= 3; i++ {
		if _, err := b.Push(frameWithPTS(i)); err != nil {
			t.Fatalf("Push: %v", err)
		}
	}
	if b.Skipped() != 2 {
		t.Fatalf("Skipped = %d, want 2", b.Skipped())
	}

	select {
	case f := <-b.Ready():
		if f.PTS != 3 {
			t.Errorf("delivered PTS %d, want 3", f.PTS)
		}
	default:
		t.Fatal("no frame ready")
	}
}

func TestWaitCancelled(t *testing.T) {
	t.Parallel()

	b := New()
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() {
		_, err := b.Wait(ctx)
		done <- err
	}()

	cancel()
	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Wait: got %v, want context.Canceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Wait did not return after cancel")
	}
}

func TestConcurrentPushNeverBlocks(t *testing.T) {
	t.Parallel()

	b := New()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	const total = 2000
	var consumed []int64
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			f, err := b.Wait(ctx)
			if err != nil {
				return
			}
			consumed = append(consumed, f.PTS)
		}
	}()

	for i := int64(1); i <= total; i++ {
		if _, err := b.Push(frameWithPTS(i)); err != nil {
			t.Fatalf("Push: %v", err)
		}
	}

	// Let the consumer drain the final frame.
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) && len(b.Ready()) > 0 {
		time.Sleep(time.Millisecond)
	}
	time.Sleep(10 * time.Millisecond)
	cancel()
	wg.Wait()

	if got := uint64(len(consumed)) + b.Skipped(); got != total {
		t.Errorf("consumed+skipped = %d, want %d", got, total)
	}
	for i := 1; i < len(consumed); i++ {
		if consumed[i] <= consumed[i-1] {
			t.Fatalf("frames reordered: %d after %d", consumed[i], consumed[i-1])
		}
	}
}
