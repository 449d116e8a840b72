package observability

import (
	"go.uber.org/zap"
)

// NewLogger builds the process-wide logger. Failures from the generation
// pipeline are reported here and nowhere user-visible.
func NewLogger(debug bool) (*zap.Logger, error) {
	if debug {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}
