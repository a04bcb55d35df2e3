//go:build tools
// +build tools

// Package tools declares tool dependencies for this module.
//
// These imports are not used at runtime. They keep mockgen, invoked through
// the //go:generate lines of the repositories and contract packages, pinned
// in go.mod so `go generate ./...` works on a fresh checkout.
package chat_relay

import (
	_ "go.uber.org/mock/mockgen"
)
