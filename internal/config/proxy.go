package config

import (
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"
)

// Supported proxy schemes, as understood by Chrome's --proxy-server flag.
var proxySchemes = map[string]bool{
	"http":   true,
	"https":  true,
	"socks4": true,
	"socks5": true,
}

// ProxyConfig is the structured form of the PROXY_HTTP connection URL.
// Username and Password are nil iff absent from the URL.
type ProxyConfig struct {
	Scheme   string
	Host     string
	Port     int
	Username *string
	Password *string
}

// ParseProxy parses a proxy URL of the form scheme://[user[:pass]@]host:port.
func ParseProxy(raw string) (ProxyConfig, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ProxyConfig{}, Missing(EnvProxy)
	}

	u, err := url.Parse(raw)
	if err != nil {
		return ProxyConfig{}, Invalid(EnvProxy, "unparseable proxy URL: %v", redactURLError(err))
	}

	scheme := strings.ToLower(u.Scheme)
	if scheme == "" {
		return ProxyConfig{}, Invalid(EnvProxy, "proxy URL has no scheme")
	}
	if !proxySchemes[scheme] {
		return ProxyConfig{}, Invalid(EnvProxy, "unsupported proxy scheme %q", scheme)
	}

	host := u.Hostname()
	if host == "" {
		return ProxyConfig{}, Invalid(EnvProxy, "proxy URL has no host")
	}

	portStr := u.Port()
	if portStr == "" {
		return ProxyConfig{}, Invalid(EnvProxy, "proxy URL has no port")
	}
	port, err := strconv.Atoi(portStr)
	if err != nil || port < 1 || port > 65535 {
		return ProxyConfig{}, Invalid(EnvProxy, "proxy port %q out of range", portStr)
	}

	cfg := ProxyConfig{
		Scheme: scheme,
		Host:   host,
		Port:   port,
	}
	if u.User != nil {
		username := u.User.Username()
		cfg.Username = &username
		if password, ok := u.User.Password(); ok {
			cfg.Password = &password
		}
	}
	return cfg, nil
}

// Server returns scheme://host:port, the form Chrome expects for --proxy-server.
func (p ProxyConfig) Server() string {
	return fmt.Sprintf("%s://%s", p.Scheme, net.JoinHostPort(p.Host, strconv.Itoa(p.Port)))
}

// URL returns the full proxy URL including credentials, for HTTP clients
// that authenticate from the URL. Never log it; use Redacted.
func (p ProxyConfig) URL() *url.URL {
	u := &url.URL{
		Scheme: p.Scheme,
		Host:   net.JoinHostPort(p.Host, strconv.Itoa(p.Port)),
	}
	switch {
	case p.Username != nil && p.Password != nil:
		u.User = url.UserPassword(*p.Username, *p.Password)
	case p.Username != nil:
		u.User = url.User(*p.Username)
	}
	return u
}

// HasCredentials reports whether the URL carried a username.
func (p ProxyConfig) HasCredentials() bool {
	return p.Username != nil
}

// Credentials returns the username and password, empty when absent.
func (p ProxyConfig) Credentials() (username, password string) {
	if p.Username != nil {
		username = *p.Username
	}
	if p.Password != nil {
		password = *p.Password
	}
	return username, password
}

// Redacted returns the proxy URL with the password masked, safe to log.
func (p ProxyConfig) Redacted() string {
	if p.Username == nil {
		return p.Server()
	}
	auth := *p.Username
	if p.Password != nil {
		auth += ":***"
	}
	return fmt.Sprintf("%s://%s@%s", p.Scheme, auth, net.JoinHostPort(p.Host, strconv.Itoa(p.Port)))
}

// url.Parse echoes the raw input, credentials included, in its error text.
func redactURLError(err error) string {
	if ue, ok := err.(*url.Error); ok {
		return ue.Err.Error()
	}
	return "malformed URL"
}
