// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.
package utils

import "strings"

type RapidaEnvironment int

const (
	DEVELOPMENT RapidaEnvironment = iota
	PRODUCTION
)

func (e RapidaEnvironment) Get() string {
	if e == PRODUCTION {
		return "production"
	}
	return "development"
}

// FromEnvironmentStr parses a case-insensitive environment name, defaulting
// to DEVELOPMENT for anything it does not recognize.
func FromEnvironmentStr(s string) RapidaEnvironment {
	switch strings.ToLower(s) {
	case "production":
		return PRODUCTION
	default:
		return DEVELOPMENT
	}
}
