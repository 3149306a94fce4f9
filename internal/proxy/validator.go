// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package proxy

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"time"

	xproxy "golang.org/x/net/proxy"

	"github.com/pdiddy/pubfetch/pkg/types"
)

// Validator checks that a candidate can reach Target within Timeout.
type Validator struct {
	Timeout time.Duration
	Target  string
}

// Check returns nil when the candidate works. HTTP proxies must answer a
// HEAD request for Target with a 2xx or 3xx status. SOCKS5 proxies must
// open a TCP connection to Target's host.
func (v *Validator) Check(ctx context.Context, c Candidate) error {
	timeout := v.Timeout
	if timeout <= 0 {
		timeout = types.DefaultProxyTimeout
	}
	target := v.Target
	if target == "" {
		target = types.DefaultValidationTarget
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	switch c.Scheme {
	case "http", "https":
		return checkHTTP(ctx, c, target)
	case "socks5":
		return checkSOCKS5(ctx, c, target, timeout)
	default:
		return fmt.Errorf("unsupported proxy scheme %q", c.Scheme)
	}
}

func checkHTTP(ctx context.Context, c Candidate, target string) error {
	transport := &http.Transport{
		Proxy:             http.ProxyURL(c.URL()),
		DisableKeepAlives: true,
	}
	defer transport.CloseIdleConnections()
	client := &http.Client{
		Transport: transport,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, target, nil)
	if err != nil {
		return fmt.Errorf("creating validation request: %w", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("proxy %s: %w", c.Key(), err)
	}
	resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 400 {
		return fmt.Errorf("proxy %s: target returned HTTP %d", c.Key(), resp.StatusCode)
	}
	return nil
}

func checkSOCKS5(ctx context.Context, c Candidate, target string, timeout time.Duration) error {
	u, err := url.Parse(target)
	if err != nil {
		return fmt.Errorf("parsing validation target: %w", err)
	}
	addr := u.Host
	if u.Port() == "" {
		port := "443"
		if u.Scheme == "http" {
			port = "80"
		}
		addr = net.JoinHostPort(u.Hostname(), port)
	}

	var auth *xproxy.Auth
	if c.User != nil {
		pass, _ := c.User.Password()
		auth = &xproxy.Auth{User: c.User.Username(), Password: pass}
	}
	dialer, err := xproxy.SOCKS5("tcp", c.Host, auth, &net.Dialer{Timeout: timeout})
	if err != nil {
		return fmt.Errorf("creating SOCKS5 dialer for %s: %w", c.Key(), err)
	}

	var conn net.Conn
	if cd, ok := dialer.(xproxy.ContextDialer); ok {
		conn, err = cd.DialContext(ctx, "tcp", addr)
	} else {
		conn, err = dialer.Dial("tcp", addr)
	}
	if err != nil {
		return fmt.Errorf("proxy %s: %w", c.Key(), err)
	}
	return conn.Close()
}
