// Package httpc builds resty clients for the management control plane.
package httpc

import (
	"crypto/tls"
	"time"

	"github.com/go-resty/resty/v2"
)

type Httpc struct {
	BaseURL   string
	Username  string
	Password  string
	TlsConfig *tls.Config
	// Timeout bounds every request; zero means no client-side timeout,
	// leaving runtime bounds to the caller's environment.
	Timeout time.Duration
}

// New returns a resty.Client configured according to the receiver.
// Defaults: MinVersion TLS1.3 when a TLS config is given with MinVersion zero.
func (h *Httpc) New() *resty.Client {
	c := resty.New()
	if h.BaseURL != "" {
		c.SetBaseURL(h.BaseURL)
	}
	if h.Username != "" || h.Password != "" {
		c.SetBasicAuth(h.Username, h.Password)
	}
	if h.Timeout > 0 {
		c.SetTimeout(h.Timeout)
	}
	cfg := h.TlsConfig
	if cfg == nil {
		return c
	}
	if cfg.MinVersion == 0 {
		cfg.MinVersion = tls.VersionTLS13
	}
	c.SetTLSClientConfig(cfg)
	return c
}
