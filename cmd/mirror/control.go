package main

import (
	"fmt"
	"strings"

	"github.com/zsiec/mirror/internal/media"
	"github.com/zsiec/mirror/internal/screen"
)

// parseCommand maps a control line to a screen event. Blank lines and
// comments yield nil.
//
//	pause | resume | fullscreen | fit | pixel | rotate <orientation>
func parseCommand(line string) (screen.Event, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 || strings.HasPrefix(fields[0], "#") {
		return nil, nil
	}

	cmd, args := strings.ToLower(fields[0]), fields[1:]
	if cmd != "rotate" && len(args) > 0 {
		return nil, fmt.Errorf("%s takes no arguments", cmd)
	}
	switch cmd {
	case "pause":
		return screen.SetPaused{Paused: true}, nil
	case "resume":
		return screen.SetPaused{Paused: false}, nil
	case "fullscreen":
		return screen.ToggleFullscreen{}, nil
	case "fit":
		return screen.ResizeToFit{}, nil
	case "pixel":
		return screen.ResizeToPixelPerfect{}, nil
	case "rotate":
		if len(args) != 1 {
			return nil, fmt.Errorf("rotate needs one orientation")
		}
		o, err := media.ParseOrientation(args[0])
		if err != nil {
			return nil, err
		}
		return screen.SetOrientation{Orientation: o}, nil
	default:
		return nil, fmt.Errorf("unknown command %q", fields[0])
	}
}
