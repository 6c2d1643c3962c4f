//go:build tools

// This file pins development tool dependencies in go.mod without pulling
// them into the build. Install with: go install github.com/golangci/golangci-lint/cmd/golangci-lint
package tools

import (
	_ "github.com/golangci/golangci-lint/cmd/golangci-lint"
)
