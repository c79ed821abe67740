// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.
package utils

import "strconv"

const versionPrefix = "vrsn_"

// GetVersionDefinition extracts the numeric version id from a "vrsn_<n>"
// identifier. Returns nil for "latest", empty input, or anything malformed.
func GetVersionDefinition(s string) *uint64 {
	if len(s) <= len(versionPrefix) || s[:len(versionPrefix)] != versionPrefix {
		return nil
	}
	v, err := strconv.ParseUint(s[len(versionPrefix):], 10, 64)
	if err != nil {
		return nil
	}
	return &v
}
