package dispatch

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"golang.org/x/net/proxy"

	"light-translator/src/settings"
)

// ProxyURL renders protocol://[user[:password]@]host:port for an enabled configuration.
func ProxyURL(p settings.ProxyConfig) (*url.URL, error) {
	scheme := strings.ToLower(strings.TrimSpace(p.Protocol))
	if scheme == "" {
		return nil, fmt.Errorf("invalid proxy: empty protocol")
	}
	host := strings.TrimSpace(p.Host)
	if host == "" {
		return nil, fmt.Errorf("invalid proxy: empty host")
	}

	u, err := url.Parse(scheme + "://" + net.JoinHostPort(host, strconv.Itoa(int(p.Port))))
	if err != nil {
		return nil, fmt.Errorf("invalid proxy %s://%s:%d: %w", scheme, host, p.Port, err)
	}
	if p.Username != nil && *p.Username != "" {
		if p.Password != nil {
			u.User = url.UserPassword(*p.Username, *p.Password)
		} else {
			u.User = url.User(*p.Username)
		}
	}
	return u, nil
}

// newTransport returns a transport that never consults environment proxy variables.
func newTransport() *http.Transport {
	t := http.DefaultTransport.(*http.Transport).Clone()
	t.Proxy = nil
	return t
}

// newClient builds the client for one dispatch. A nil or disabled configuration yields
// exactly the same direct client.
func newClient(p *settings.ProxyConfig) (*http.Client, error) {
	t := newTransport()
	if p == nil || !p.Enabled {
		return &http.Client{Transport: t}, nil
	}

	u, err := ProxyURL(*p)
	if err != nil {
		return nil, err
	}

	switch u.Scheme {
	case "http", "https":
		t.Proxy = http.ProxyURL(u)
	case "socks5", "socks5h":
		dialer, err := proxy.FromURL(u, proxy.Direct)
		if err != nil {
			return nil, fmt.Errorf("invalid proxy %s: %w", u.Redacted(), err)
		}
		if cd, ok := dialer.(proxy.ContextDialer); ok {
			t.DialContext = cd.DialContext
		} else {
			t.DialContext = func(ctx context.Context, network, addr string) (net.Conn, error) {
				return dialer.Dial(network, addr)
			}
		}
	default:
		return nil, fmt.Errorf("invalid proxy %s: unsupported protocol %q", u.Redacted(), u.Scheme)
	}
	return &http.Client{Transport: t}, nil
}
