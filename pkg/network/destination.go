// Package network implements the transmission side of the status telemetry
// pipeline (destination resolution, the dispatching sender) and the UDP
// listener used by consumers of the stream.
package network

import (
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
)

// DestinationScheme is the only scheme accepted in a destination URI.
const DestinationScheme = "udp://"

// DefaultPort is the protocol's well-known port, used when the destination
// URI carries no port.
const DefaultPort = 7767

var (
	// ErrInvalidDestinationURI reports a malformed destination string:
	// wrong scheme, empty host, or non-numeric port.
	ErrInvalidDestinationURI = errors.New("invalid destination URI")

	// ErrUnspecifiedDestination reports a destination that names the
	// any-address (0.0.0.0 or ::), which is a configuration error rather
	// than a sendable target.
	ErrUnspecifiedDestination = errors.New("destination is the unspecified address")

	// ErrResolutionFailed reports a name-resolution or socket-open failure
	// for an otherwise well-formed destination.
	ErrResolutionFailed = errors.New("destination resolution failed")
)

// SplitDestinationURI splits a udp://host[:port] string into host and port.
//
// The split is at the last colon of the remainder, so raw IPv6 literals with
// a trailing port work without bracket syntax. When the text after the last
// colon is not a usable port but the whole remainder parses as an IP literal,
// the remainder is a bare IPv6 address and is taken entirely as the host.
// Bracketless syntax leaves one ambiguity: a bare IPv6 literal whose final
// group is decimal (e.g. 2001:db8::1) reads as host 2001:db8: with port 1.
// An absent or empty port falls back to DefaultPort.
func SplitDestinationURI(uri string) (host, port string, err error) {
	if !strings.HasPrefix(uri, DestinationScheme) {
		return "", "", fmt.Errorf("%w: %q must start with %s", ErrInvalidDestinationURI, uri, DestinationScheme)
	}

	rest := strings.TrimPrefix(uri, DestinationScheme)

	if i := strings.LastIndexByte(rest, ':'); i >= 0 {
		host = rest[:i]
		port = rest[i+1:]
		if _, perr := strconv.ParseUint(port, 10, 16); perr != nil && net.ParseIP(rest) != nil {
			host = rest
			port = ""
		}
	} else {
		host = rest
	}

	if host == "" {
		return "", "", fmt.Errorf("%w: empty host in %q", ErrInvalidDestinationURI, uri)
	}
	if port == "" {
		port = strconv.Itoa(DefaultPort)
	}

	// Numeric service only; no service-name lookup.
	if _, perr := strconv.ParseUint(port, 10, 16); perr != nil {
		return "", "", fmt.Errorf("%w: port %q is not numeric", ErrInvalidDestinationURI, port)
	}

	return host, port, nil
}

// Endpoint is a resolved, open transmission target. It is constructed once
// by ResolveDestination and owned by a single Dispatcher.
type Endpoint struct {
	conn      *net.UDPConn
	addr      *net.UDPAddr
	broadcast bool
}

// Ready reports whether the endpoint holds an open socket and a resolved
// address.
func (e *Endpoint) Ready() bool {
	return e != nil && e.conn != nil && e.addr != nil
}

// Addr returns the resolved destination address.
func (e *Endpoint) Addr() *net.UDPAddr {
	return e.addr
}

// Broadcast reports whether the destination is the IPv4 limited-broadcast
// address.
func (e *Endpoint) Broadcast() bool {
	return e.broadcast
}

// Close releases the endpoint's socket.
func (e *Endpoint) Close() error {
	if e == nil || e.conn == nil {
		return nil
	}
	return e.conn.Close()
}

// ResolveDestination parses a udp://host[:port] destination, resolves the
// host, and opens a datagram socket of the matching address family. There is
// no partial result: any failure returns a nil endpoint.
func ResolveDestination(uri string) (*Endpoint, error) {
	host, port, err := SplitDestinationURI(uri)
	if err != nil {
		return nil, err
	}

	if host == "0.0.0.0" || host == "::" {
		return nil, fmt.Errorf("%w: %s", ErrUnspecifiedDestination, host)
	}

	addr, err := net.ResolveUDPAddr("udp", net.JoinHostPort(host, port))
	if err != nil {
		return nil, fmt.Errorf("%w: %s:%s: %v", ErrResolutionFailed, host, port, err)
	}

	if addr.IP.IsUnspecified() {
		return nil, fmt.Errorf("%w: %s resolves to %s", ErrUnspecifiedDestination, host, addr.IP)
	}

	family := "udp4"
	if addr.IP.To4() == nil {
		family = "udp6"
	}

	conn, err := net.ListenUDP(family, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: open %s socket: %v", ErrResolutionFailed, family, err)
	}

	broadcast := addr.IP.Equal(net.IPv4bcast)
	if broadcast {
		if err := enableBroadcast(conn); err != nil {
			conn.Close()
			return nil, fmt.Errorf("%w: enable broadcast: %v", ErrResolutionFailed, err)
		}
	}

	return &Endpoint{
		conn:      conn,
		addr:      addr,
		broadcast: broadcast,
	}, nil
}
