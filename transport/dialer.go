package transport

import (
	"context"
	"crypto/tls"
	"net"
)

// Dialer abstracts connection establishment so StreamClient serves
// both plain TCP and TLS peers, the Go interface substitute for the
// C++ original's template-over-socket-type (spec.md §9 mapping (3)).
type Dialer interface {
	DialContext(ctx context.Context) (net.Conn, error)
	Addr() string
}

// TCPDialer dials a fixed address over plain TCP.
type TCPDialer struct {
	Address string
	d       net.Dialer
}

// NewTCPDialer returns a Dialer for address ("host:port").
func NewTCPDialer(address string) *TCPDialer { return &TCPDialer{Address: address} }

func (t *TCPDialer) DialContext(ctx context.Context) (net.Conn, error) {
	return t.d.DialContext(ctx, "tcp", t.Address)
}

func (t *TCPDialer) Addr() string { return t.Address }

// TLSDialer dials a fixed address and performs a TLS handshake using
// config.
type TLSDialer struct {
	Address string
	Config  *tls.Config
	d       net.Dialer
}

// NewTLSDialer returns a Dialer for address that upgrades to TLS using
// config (which may be nil for the Go default).
func NewTLSDialer(address string, config *tls.Config) *TLSDialer {
	return &TLSDialer{Address: address, Config: config}
}

func (t *TLSDialer) DialContext(ctx context.Context) (net.Conn, error) {
	conn, err := t.d.DialContext(ctx, "tcp", t.Address)
	if err != nil {
		return nil, err
	}
	tlsConn := tls.Client(conn, t.Config)
	if err := tlsConn.HandshakeContext(ctx); err != nil {
		conn.Close()
		return nil, err
	}
	return tlsConn, nil
}

func (t *TLSDialer) Addr() string { return t.Address }

// Listener abstracts accept so StreamServer serves both plain TCP and
// TLS listeners uniformly.
type Listener interface {
	Accept() (net.Conn, error)
	Close() error
	Addr() net.Addr
}

// NewTCPListener listens for plain TCP connections on address.
func NewTCPListener(address string) (Listener, error) {
	return net.Listen("tcp", address)
}

// NewTLSListener listens for TLS connections on address using config.
func NewTLSListener(address string, config *tls.Config) (Listener, error) {
	return tls.Listen("tcp", address, config)
}
