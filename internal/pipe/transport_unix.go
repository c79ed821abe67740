// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

//go:build !windows

package pipe

import (
	"context"
	"fmt"
	"net"
	"os"
)

// Listen opens the host-side end of the duplex transport. On non-Windows
// platforms the "pipe name" (spec.md §6 capability token) is a filesystem
// path for a Unix domain socket.
func Listen(path string) (net.Listener, error) {
	_ = os.Remove(path) // a stale socket file from a crashed prior run
	l, err := net.Listen("unix", path)
	if err != nil {
		return nil, fmt.Errorf("pipe: listen on %s: %w", path, err)
	}
	return l, nil
}

// Dial opens the MCP-process-side end of the duplex transport.
func Dial(ctx context.Context, path string) (net.Conn, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "unix", path)
	if err != nil {
		return nil, fmt.Errorf("pipe: dial %s: %w", path, err)
	}
	return conn, nil
}
