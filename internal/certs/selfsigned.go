// Package certs creates the short-lived self-signed certificate the QUIC
// frame listener presents. Callers pin it by fingerprint; there is no CA.
package certs

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/sha256"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/hex"
	"fmt"
	"math/big"
	"net"
	"time"
)

// DefaultValidity is used when Generate is given a non-positive validity.
const DefaultValidity = 24 * time.Hour

// Identity is a listener certificate and its SHA-256 fingerprint.
type Identity struct {
	Cert        tls.Certificate
	Fingerprint [sha256.Size]byte
	NotAfter    time.Time
}

// FingerprintHex returns the fingerprint as lowercase hex, the form logged
// at startup and passed to receivers that pin the certificate.
func (id *Identity) FingerprintHex() string {
	return hex.EncodeToString(id.Fingerprint[:])
}

// ServerConfig returns a TLS config presenting the certificate and
// negotiating only the given ALPN protocols.
func (id *Identity) ServerConfig(protos ...string) *tls.Config {
	return &tls.Config{
		Certificates: []tls.Certificate{id.Cert},
		NextProtos:   protos,
		MinVersion:   tls.VersionTLS13,
	}
}

// Generate creates an ECDSA P-256 certificate for localhost plus hosts.
// Entries of hosts that parse as IP addresses become IP SANs.
func Generate(validity time.Duration, hosts ...string) (*Identity, error) {
	if validity <= 0 {
		validity = DefaultValidity
	}

	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("certs: generate key: %w", err)
	}
	serial, err := rand.Int(rand.Reader, new(big.Int).Lsh(big.NewInt(1), 128))
	if err != nil {
		return nil, fmt.Errorf("certs: generate serial: %w", err)
	}

	notBefore := time.Now().Add(-time.Minute)
	template := &x509.Certificate{
		SerialNumber: serial,
		Subject:      pkix.Name{CommonName: "mirror"},
		NotBefore:    notBefore,
		NotAfter:     notBefore.Add(validity),
		KeyUsage:     x509.KeyUsageDigitalSignature,
		ExtKeyUsage:  []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
		DNSNames:     []string{"localhost"},
		IPAddresses:  []net.IP{net.IPv4(127, 0, 0, 1), net.IPv6loopback},
	}
	for _, h := range hosts {
		if ip := net.ParseIP(h); ip != nil {
			template.IPAddresses = append(template.IPAddresses, ip)
		} else if h != "" {
			template.DNSNames = append(template.DNSNames, h)
		}
	}

	der, err := x509.CreateCertificate(rand.Reader, template, template, &key.PublicKey, key)
	if err != nil {
		return nil, fmt.Errorf("certs: create certificate: %w", err)
	}

	return &Identity{
		Cert:        tls.Certificate{Certificate: [][]byte{der}, PrivateKey: key},
		Fingerprint: sha256.Sum256(der),
		NotAfter:    template.NotAfter,
	}, nil
}

// VerifyFingerprint returns a tls.Config.VerifyPeerCertificate callback
// accepting only a leaf certificate with the given hex fingerprint.
func VerifyFingerprint(want string) func([][]byte, [][]*x509.Certificate) error {
	return func(raw [][]byte, _ [][]*x509.Certificate) error {
		if len(raw) == 0 {
			return fmt.Errorf("certs: no peer certificate")
		}
		sum := sha256.Sum256(raw[0])
		if got := hex.EncodeToString(sum[:]); got != want {
			return fmt.Errorf("certs: peer fingerprint %s, want %s", got, want)
		}
		return nil
	}
}
