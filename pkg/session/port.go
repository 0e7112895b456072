package session

import (
	"fmt"
	"net"
)

// FreePort reserves a free TCP port from the OS ephemeral range by binding a
// throwaway loopback listener on port 0 and reading back the assigned port.
// The listener is closed before returning, so the port is free for the
// browser process to bind immediately after.
func FreePort() (int, error) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return 0, fmt.Errorf("failed to allocate free port: %w", err)
	}
	defer listener.Close()

	addr, ok := listener.Addr().(*net.TCPAddr)
	if !ok {
		return 0, fmt.Errorf("unexpected listener address type %T", listener.Addr())
	}
	return addr.Port, nil
}
