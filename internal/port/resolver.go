// Package port decides which local port the proxy core's mixed listener binds to.
package port

import (
	"fmt"
	"net"

	"go.uber.org/zap"
)

// Prober returns a port that was free at the time of the call.
type Prober func() (uint16, error)

// ProbeLoopback binds 127.0.0.1:0, reads back the port the OS picked and releases it.
// The port is not reserved: another process may take it before the core binds it.
func ProbeLoopback() (uint16, error) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return 0, fmt.Errorf("failed to probe loopback port: %w", err)
	}
	defer ln.Close()

	addr, ok := ln.Addr().(*net.TCPAddr)
	if !ok {
		return 0, fmt.Errorf("unexpected listener address type %T", ln.Addr())
	}
	return uint16(addr.Port), nil
}

// Resolver picks the mixed port at startup.
type Resolver struct {
	probe  Prober
	logger *zap.Logger
}

// NewResolver creates a resolver. A nil probe uses ProbeLoopback.
func NewResolver(probe Prober, logger *zap.Logger) *Resolver {
	if probe == nil {
		probe = ProbeLoopback
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resolver{probe: probe, logger: logger}
}

// Resolve returns the configured port (or the core default when none is configured).
// With enableRandom it returns a freshly probed port instead, degrading to the same
// fallback when the probe fails. It never fails.
func (r *Resolver) Resolve(enableRandom bool, configured *uint16, clashDefault uint16) uint16 {
	fallback := clashDefault
	if configured != nil {
		fallback = *configured
	}

	if !enableRandom {
		return fallback
	}

	port, err := r.probe()
	if err != nil || port == 0 {
		r.logger.Warn("Random port probe failed, using default port",
			zap.Uint16("port", fallback),
			zap.Error(err))
		return fallback
	}

	r.logger.Debug("Resolved random mixed port", zap.Uint16("port", port))
	return port
}
