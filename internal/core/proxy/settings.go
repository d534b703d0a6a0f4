package proxy

import (
	"fmt"
	"net/url"

	"order-settlement/internal/core/config"
)

// Settings describes the outbound proxy used by courier adapters.
type Settings struct {
	Enabled  bool
	Hostname string
	Port     int
	Username string
	Password string
}

// FromConfig builds Settings from the COURIER_PROXY_* configuration.
func FromConfig(cfg config.CourierProxyConfig) Settings {
	return Settings{
		Enabled:  cfg.Enabled,
		Hostname: cfg.Hostname,
		Port:     cfg.Port,
		Username: cfg.Username,
		Password: cfg.Password,
	}
}

// HasProxy reports whether the proxy is enabled and has an address.
func (p Settings) HasProxy() bool {
	return p.Enabled && p.Hostname != "" && p.Port > 0
}

// HasCredentials reports whether the proxy needs basic auth.
func (p Settings) HasCredentials() bool {
	return p.HasProxy() && p.Username != "" && p.Password != ""
}

func (p Settings) address() string {
	return fmt.Sprintf("%s:%d", p.Hostname, p.Port)
}

// HostPort returns the proxy URL without credentials, e.g. "http://proxy.local:3128".
func (p Settings) HostPort() string {
	if !p.HasProxy() {
		return ""
	}
	return "http://" + p.address()
}

// FullURL returns the proxy URL including escaped credentials when present.
func (p Settings) FullURL() string {
	if !p.HasProxy() {
		return ""
	}
	if !p.HasCredentials() {
		return p.HostPort()
	}
	u := url.URL{
		Scheme: "http",
		User:   url.UserPassword(p.Username, p.Password),
		Host:   p.address(),
	}
	return u.String()
}
