// Package logging configures the process-wide apex/log handler.
package logging

import (
	"io"
	"os"
	"strings"

	"github.com/apex/log"
	"github.com/apex/log/handlers/json"
	"github.com/apex/log/handlers/text"
)

// Setup installs a text or json handler writing to stderr and applies level.
// An unknown level falls back to info.
func Setup(format, level string) {
	SetupWriter(os.Stderr, format, level)
}

// SetupWriter is Setup with an explicit destination.
func SetupWriter(w io.Writer, format, level string) {
	switch strings.ToLower(format) {
	case "json":
		log.SetHandler(json.New(w))
	default:
		log.SetHandler(text.New(w))
	}

	lvl, err := log.ParseLevel(strings.ToLower(level))
	if err != nil {
		lvl = log.InfoLevel
	}
	log.SetLevel(lvl)
}
