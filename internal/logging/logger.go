// Package logging builds the zap loggers shared by every component.
package logging

import "go.uber.org/zap"

// NewLogger returns a development logger (console, debug level) when debug is true,
// otherwise a production logger (JSON, info level).
func NewLogger(debug bool) (*zap.Logger, error) {
	if debug {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}
