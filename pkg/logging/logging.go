// Package logging builds the zap loggers the node binaries run with.
package logging

import (
	"fmt"

	"go.uber.org/zap"
)

// NewLogger creates a logger for the given level. Development environments get
// console encoding, everything else structured JSON.
func NewLogger(level, environment string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	if environment == "development" {
		cfg = zap.NewDevelopmentConfig()
	}
	parsed, err := zap.ParseAtomicLevel(level)
	if err != nil {
		return nil, fmt.Errorf("parsing log level %q: %w", level, err)
	}
	cfg.Level = parsed
	return cfg.Build()
}
