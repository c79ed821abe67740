// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

//go:build windows

package pipe

import (
	"context"
	"fmt"
	"net"

	winio "github.com/Microsoft/go-winio"
)

// Listen opens the host-side end of the duplex transport. On Windows the
// "pipe name" (spec.md §6 capability token) addresses a real OS named pipe
// (\\.\pipe\<name>), per spec.md's "named pipe on Windows" requirement.
func Listen(path string) (net.Listener, error) {
	l, err := winio.ListenPipe(path, &winio.PipeConfig{
		MessageMode:      false,
		InputBufferSize:  64 * 1024,
		OutputBufferSize: 64 * 1024,
	})
	if err != nil {
		return nil, fmt.Errorf("pipe: listen on %s: %w", path, err)
	}
	return l, nil
}

// Dial opens the MCP-process-side end of the duplex transport.
func Dial(ctx context.Context, path string) (net.Conn, error) {
	conn, err := winio.DialPipeContext(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("pipe: dial %s: %w", path, err)
	}
	return conn, nil
}
