package security

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"os"
)

// ClientTLS configures how the HTTP client verifies downstream services.
// The zero value uses the system roots.
type ClientTLS struct {
	// CAFile adds a PEM bundle of trusted roots, e.g. a development CA.
	CAFile string `yaml:"ca_file" mapstructure:"ca_file"`
	// CertFile and KeyFile present a client certificate.
	CertFile string `yaml:"cert_file" mapstructure:"cert_file"`
	KeyFile  string `yaml:"key_file" mapstructure:"key_file"`
	// ServerName overrides the name checked against the certificate.
	ServerName string `yaml:"server_name" mapstructure:"server_name"`
	// SkipVerify accepts any certificate. Local development only.
	SkipVerify bool `yaml:"skip_verify" mapstructure:"skip_verify"`
}

// Enabled reports whether any setting deviates from the defaults.
func (c ClientTLS) Enabled() bool {
	return c.CAFile != "" || c.CertFile != "" || c.ServerName != "" || c.SkipVerify
}

// Validate checks that a certificate comes with its key.
func (c ClientTLS) Validate() error {
	if (c.CertFile == "") != (c.KeyFile == "") {
		return fmt.Errorf("tls: cert_file and key_file must be set together")
	}
	return nil
}

// Build returns the client tls.Config, or nil when nothing is configured.
func (c ClientTLS) Build() (*tls.Config, error) {
	if !c.Enabled() {
		return nil, nil
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	cfg := &tls.Config{
		MinVersion:         tls.VersionTLS12,
		ServerName:         c.ServerName,
		InsecureSkipVerify: c.SkipVerify, //nolint:gosec // opt-in for development
	}
	if c.CAFile != "" {
		pool, err := loadPool(c.CAFile)
		if err != nil {
			return nil, err
		}
		cfg.RootCAs = pool
	}
	if c.CertFile != "" {
		cert, err := tls.LoadX509KeyPair(c.CertFile, c.KeyFile)
		if err != nil {
			return nil, fmt.Errorf("tls: loading client certificate: %w", err)
		}
		cfg.Certificates = []tls.Certificate{cert}
	}
	return cfg, nil
}

// ServerTLS enables TLS on the HTTP listener.
type ServerTLS struct {
	CertFile string `yaml:"cert_file" mapstructure:"cert_file"`
	KeyFile  string `yaml:"key_file" mapstructure:"key_file"`
	// ClientCAFile, when set, requires callers to present a certificate
	// signed by one of its roots.
	ClientCAFile string `yaml:"client_ca_file" mapstructure:"client_ca_file"`
}

// Enabled reports whether a certificate is configured.
func (c ServerTLS) Enabled() bool { return c.CertFile != "" }

// Validate checks that the certificate comes with its key and that client
// verification has something to verify against.
func (c ServerTLS) Validate() error {
	if (c.CertFile == "") != (c.KeyFile == "") {
		return fmt.Errorf("tls: cert_file and key_file must be set together")
	}
	if c.ClientCAFile != "" && !c.Enabled() {
		return fmt.Errorf("tls: client_ca_file requires cert_file")
	}
	return nil
}

// Build returns the server tls.Config, or nil when TLS is off.
func (c ServerTLS) Build() (*tls.Config, error) {
	if !c.Enabled() {
		return nil, nil
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	cert, err := tls.LoadX509KeyPair(c.CertFile, c.KeyFile)
	if err != nil {
		return nil, fmt.Errorf("tls: loading server certificate: %w", err)
	}
	cfg := &tls.Config{
		MinVersion:   tls.VersionTLS12,
		Certificates: []tls.Certificate{cert},
		NextProtos:   []string{"h2", "http/1.1"},
	}
	if c.ClientCAFile != "" {
		pool, err := loadPool(c.ClientCAFile)
		if err != nil {
			return nil, err
		}
		cfg.ClientCAs = pool
		cfg.ClientAuth = tls.RequireAndVerifyClientCert
	}
	return cfg, nil
}

func loadPool(path string) (*x509.CertPool, error) {
	pem, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("tls: reading CA file: %w", err)
	}
	pool := x509.NewCertPool()
	if !pool.AppendCertsFromPEM(pem) {
		return nil, fmt.Errorf("tls: no certificate found in %s", path)
	}
	return pool, nil
}
