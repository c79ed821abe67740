// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.
package utils

import (
	"context"
	"log"
	"runtime/debug"
)

// Go runs fn in a new goroutine, recovering any panic so a background
// listener (response readers, PTY readers, watchers) can never bring the
// whole process down. ctx is accepted for symmetry with the call sites that
// spawn these loops alongside a cancellable context; it is not otherwise used.
func Go(ctx context.Context, fn func()) {
	go func() {
		defer func() {
			if r := recover(); r != nil {
				log.Printf("recovered panic in background goroutine: %v\n%s", r, debug.Stack())
			}
		}()
		fn()
	}()
}
