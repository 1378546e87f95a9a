// Package embedded holds the default XML templates compiled into the binary.
// They are used when no template root on disk provides an override.
package embedded

import (
	"embed"
)

// FS embeds the default software title and patch policy templates.
//
//go:embed templates/*
var FS embed.FS
