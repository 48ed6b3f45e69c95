package transport

import (
	"crypto/tls"
	"encoding/pem"
	"net/http/httptest"
	"testing"
)

func TestNewClientTLSConfig(t *testing.T) {
	t.Run("NilConfig", func(t *testing.T) {
		if _, err := NewClientTLSConfig(nil); err == nil {
			t.Error("expected error for nil config")
		}
	})

	t.Run("Defaults", func(t *testing.T) {
		cfg, err := NewClientTLSConfig(&TLSConfig{ServerName: "chat.example.org"})
		if err != nil {
			t.Fatalf("NewClientTLSConfig() error = %v", err)
		}
		if cfg.MinVersion != tls.VersionTLS12 {
			t.Errorf("MinVersion = %x, want TLS 1.2", cfg.MinVersion)
		}
		if cfg.ServerName != "chat.example.org" {
			t.Errorf("ServerName = %q", cfg.ServerName)
		}
		if cfg.RootCAs != nil {
			t.Error("RootCAs should be nil without a certificate authority")
		}
	})

	t.Run("CertificateAuthority", func(t *testing.T) {
		srv := httptest.NewTLSServer(nil)
		defer srv.Close()

		caPEM := pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: srv.Certificate().Raw})
		cfg, err := NewClientTLSConfig(&TLSConfig{CertificateAuthority: caPEM})
		if err != nil {
			t.Fatalf("NewClientTLSConfig() error = %v", err)
		}
		if cfg.RootCAs == nil {
			t.Error("RootCAs not set")
		}
	})

	t.Run("InvalidCertificateAuthority", func(t *testing.T) {
		if _, err := NewClientTLSConfig(&TLSConfig{CertificateAuthority: []byte("not pem")}); err == nil {
			t.Error("expected error for invalid PEM")
		}
	})
}
