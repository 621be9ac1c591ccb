// Package hostaddr composes and parses the "host:port" strings edge peers
// exchange, and picks free local ports.
package hostaddr

import (
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"
)

var (
	ErrMissingSeparator = errors.New("hostaddr: missing ':' separator")
	ErrInvalidPort      = errors.New("hostaddr: invalid port")
)

// HostString returns "host:port".
func HostString(host string, port int) string {
	return fmt.Sprintf("%s:%d", host, port)
}

// ParseHostString splits s on its first colon. The host may be empty.
func ParseHostString(s string) (string, int, error) {
	i := strings.IndexByte(s, ':')
	if i < 0 {
		return "", 0, fmt.Errorf("%w: %q", ErrMissingSeparator, s)
	}
	port, err := strconv.Atoi(strings.TrimSpace(s[i+1:]))
	if err != nil || port < 0 || port > 65535 {
		return "", 0, fmt.Errorf("%w: %q", ErrInvalidPort, s[i+1:])
	}
	return s[:i], port, nil
}

// AvailablePort asks the kernel for a free TCP port. Returns 0 on failure.
func AvailablePort() int {
	ln, err := net.Listen("tcp4", "0.0.0.0:0")
	if err != nil {
		log.Error().Err(err).Msg("hostaddr.AvailablePort socket creation failure")
		return 0
	}
	defer ln.Close()

	addr, ok := ln.Addr().(*net.TCPAddr)
	if !ok {
		log.Warn().Str("addr", ln.Addr().String()).Msg("hostaddr.AvailablePort failed to read local socket info")
		return 0
	}
	log.Debug().Int("port", addr.Port).Msg("hostaddr.AvailablePort")
	return addr.Port
}

// Normalize maps an empty or localhost host to 127.0.0.1 and replaces port 0
// with a free port.
func Normalize(rawAddr string) (string, error) {
	addr := strings.TrimSpace(rawAddr)
	if addr == "" {
		return "", fmt.Errorf("hostaddr: addr required")
	}
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return "", fmt.Errorf("hostaddr: invalid addr %q: %w", addr, err)
	}
	host = strings.TrimSpace(host)
	if host == "" || strings.EqualFold(host, "localhost") {
		host = "127.0.0.1"
	}
	p, err := strconv.Atoi(strings.TrimSpace(port))
	if err != nil || p < 0 || p > 65535 {
		return "", fmt.Errorf("%w: %q", ErrInvalidPort, port)
	}
	if p == 0 {
		if p = AvailablePort(); p == 0 {
			return "", fmt.Errorf("hostaddr: no free port for %q", addr)
		}
	}
	return net.JoinHostPort(host, strconv.Itoa(p)), nil
}
