//go:build !unix

package network

import "net"

// enableBroadcast is a no-op on platforms where the socket option is either
// unavailable or already permitted for datagram sockets.
func enableBroadcast(conn *net.UDPConn) error {
	return nil
}
