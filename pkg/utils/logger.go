package utils

import "go.uber.org/zap"

// NewLogger returns a zap logger writing to stderr so stdout stays free for command output.
// When debug is true, uses development config (human-readable, debug level); otherwise uses
// production config (JSON, info level, no stack traces on warnings).
func NewLogger(debug bool) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	if debug {
		cfg = zap.NewDevelopmentConfig()
	} else {
		cfg.DisableStacktrace = true
	}
	cfg.OutputPaths = []string{"stderr"}
	cfg.ErrorOutputPaths = []string{"stderr"}
	return cfg.Build()
}
