package cueline

import (
	_ "embed"
	"strings"
)

//go:embed VERSION
var version string

// Version of the cueline module, read from the VERSION file.
var Version = strings.TrimSpace(version)
