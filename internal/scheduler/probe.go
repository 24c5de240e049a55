package scheduler

import (
	"context"
	"net"
	"time"
)

// NetworkProbe reports whether the network constraint is currently met.
type NetworkProbe interface {
	Online(ctx context.Context) bool
}

// DialProbe considers the network up when a TCP connection to Address succeeds.
type DialProbe struct {
	Address string
	Timeout time.Duration
}

func (p DialProbe) Online(ctx context.Context) bool {
	timeout := p.Timeout
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", p.Address)
	if err != nil {
		return false
	}
	conn.Close()
	return true
}

// ProbeFunc adapts a function to NetworkProbe.
type ProbeFunc func(ctx context.Context) bool

func (f ProbeFunc) Online(ctx context.Context) bool { return f(ctx) }
