// Package netconn is the proxy-aware connector the protocol engine, the
// media channel, and the file-transfer channel all dial through. It wraps
// golang.org/x/net/proxy's environment-driven dialer so every outbound TCP
// connection this client makes honors HTTP_PROXY/SOCKS_PROXY the same way,
// without each caller re-implementing proxy discovery.
package netconn

import (
	"context"
	"fmt"
	"net"
	"time"

	"golang.org/x/net/proxy"
)

// Dialer opens TCP connections through whatever proxy (if any) the
// environment specifies.
type Dialer struct {
	timeout time.Duration
}

// NewDialer returns a Dialer with the given per-connection timeout.
func NewDialer(timeout time.Duration) *Dialer {
	return &Dialer{timeout: timeout}
}

// DialContext connects to addr (host:port), respecting ctx cancellation
// where the underlying proxy dialer supports it.
func (d *Dialer) DialContext(ctx context.Context, addr string) (net.Conn, error) {
	base := &net.Dialer{Timeout: d.timeout}
	dialer := proxy.FromEnvironmentUsing(base)
	if ctxDialer, ok := dialer.(proxy.ContextDialer); ok {
		return ctxDialer.DialContext(ctx, "tcp", addr)
	}
	conn, err := dialer.Dial("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("netconn: dial %s: %w", addr, err)
	}
	return conn, nil
}
