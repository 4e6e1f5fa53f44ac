// Package ports checks listen addresses before a server starts.
package ports

import (
	"errors"
	"fmt"
	"net"
	"strconv"
)

// ErrUnavailable is returned when an address cannot be bound.
var ErrUnavailable = errors.New("address is not available")

// Check binds host:port once and releases it, so a server can fail with a
// clear message before it logs anything.
func Check(host string, port int) error {
	if port < 0 || port > 65535 {
		return fmt.Errorf("%w: port %d out of range", ErrUnavailable, port)
	}
	addr := net.JoinHostPort(host, strconv.Itoa(port))
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrUnavailable, addr, err)
	}
	return ln.Close()
}
