// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.
package utils

// Header keys shared by the host and MCP processes when talking to
// out-of-process HTTP backends (browser_search/browser_fetch, workflow client).
const (
	HEADER_API_KEY         = "X-Rapida-Api-Key"
	HEADER_AUTH_KEY        = "Authorization"
	HEADER_SOURCE_KEY      = "X-Rapida-Source"
	HEADER_ENVIRONMENT_KEY = "X-Rapida-Environment"
	HEADER_REGION_KEY      = "X-Rapida-Region"
)
