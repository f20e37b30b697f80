package certs

import (
	"crypto/sha256"
	"crypto/x509"
	"encoding/hex"
	"net"
	"testing"
	"time"
)

func TestGenerate(t *testing.T) {
	t.Parallel()

	id, err := Generate(time.Hour, "mirror.local", "10.0.0.7")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if len(id.Cert.Certificate) == 0 {
		t.Fatal("no certificate data")
	}
	cert, err := x509.ParseCertificate(id.Cert.Certificate[0])
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	if v := cert.NotAfter.Sub(cert.NotBefore); v != time.Hour {
		t.Errorf("validity = %v, want 1h", v)
	}
	if want := sha256.Sum256(id.Cert.Certificate[0]); id.Fingerprint != want {
		t.Error("fingerprint mismatch")
	}
	if got := id.FingerprintHex(); got != hex.EncodeToString(id.Fingerprint[:]) || len(got) != 64 {
		t.Errorf("FingerprintHex = %q", got)
	}

	if len(cert.DNSNames) != 2 || cert.DNSNames[0] != "localhost" || cert.DNSNames[1] != "mirror.local" {
		t.Errorf("DNS names = %v", cert.DNSNames)
	}
	found := false
	for _, ip := range cert.IPAddresses {
		if ip.Equal(net.ParseIP("10.0.0.7")) {
			found = true
		}
	}
	if !found {
		t.Errorf("IP SANs = %v, want 10.0.0.7 included", cert.IPAddresses)
	}
}

func TestGenerateDefaultValidity(t *testing.T) {
	t.Parallel()

	id, err := Generate(0)
	if err != nil {
		t.Fatal(err)
	}
	cert, err := x509.ParseCertificate(id.Cert.Certificate[0])
	if err != nil {
		t.Fatal(err)
	}
	if v := cert.NotAfter.Sub(cert.NotBefore); v != DefaultValidity {
		t.Errorf("validity = %v, want %v", v, DefaultValidity)
	}
}

func TestServerConfig(t *testing.T) {
	t.Parallel()

	id, err := Generate(time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	cfg := id.ServerConfig("mirror-frames")
	if len(cfg.Certificates) != 1 || len(cfg.NextProtos) != 1 || cfg.NextProtos[0] != "mirror-frames" {
		t.Errorf("config = %+v", cfg)
	}
}

func TestVerifyFingerprint(t *testing.T) {
	t.Parallel()

	id, err := Generate(time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	other, err := Generate(time.Hour)
	if err != nil {
		t.Fatal(err)
	}

	verify := VerifyFingerprint(id.FingerprintHex())
	if err := verify(id.Cert.Certificate, nil); err != nil {
		t.Errorf("own certificate rejected: %v", err)
	}
	if err := verify(other.Cert.Certificate, nil); err == nil {
		t.Error("foreign certificate accepted")
	}
	if err := verify(nil, nil); err == nil {
		t.Error("missing certificate accepted")
	}
}
