// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.
package clients

import (
	"context"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/rapidaai/voicemirror/pkg/commons"
	"github.com/rapidaai/voicemirror/pkg/utils"
)

type authKey struct{}

// Principal identifies the caller attached to an outbound request, mirroring
// the teacher's types.SimplePrinciple used across pkg/clients/integration.
type Principal struct {
	Token  string
	Source string
}

// InternalClient is the shared outbound HTTP surface for every component
// that talks to a remote backend (browser_search/browser_fetch, workflow
// client, cloud STT/TTS vendors that don't ship their own SDK transport).
// It takes the place of the teacher's gRPC-backed clients.InternalClient,
// ported to resty because this module's external calls are HTTP, not gRPC.
type InternalClient interface {
	// WithAuth attaches a Principal to ctx for downstream header injection.
	WithAuth(ctx context.Context, p Principal) context.Context
	// REST returns a resty.Client preconfigured with base headers, timeout
	// and retry policy shared by every outbound caller.
	REST() *resty.Client
}

type internalClient struct {
	logger commons.Logger
	rest   *resty.Client
}

// NewInternalClient builds the shared resty client used by every component
// that needs outbound HTTP, with the standard header/timeout/retry policy.
func NewInternalClient(logger commons.Logger, timeout time.Duration) InternalClient {
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	rest := resty.New().
		SetTimeout(timeout).
		SetRetryCount(2).
		SetRetryWaitTime(250 * time.Millisecond).
		SetHeader(utils.HEADER_SOURCE_KEY, "voicemirror")

	rest.OnBeforeRequest(func(_ *resty.Client, req *resty.Request) error {
		if p, ok := req.Context().Value(authKey{}).(Principal); ok {
			if p.Token != "" {
				req.SetHeader(utils.HEADER_AUTH_KEY, "Bearer "+p.Token)
			}
		}
		return nil
	})

	return &internalClient{logger: logger, rest: rest}
}

func (c *internalClient) WithAuth(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, authKey{}, p)
}

func (c *internalClient) REST() *resty.Client {
	return c.rest
}
