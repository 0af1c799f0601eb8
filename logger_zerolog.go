package auth

import (
	"github.com/rs/zerolog"
)

// ZerologLogger adapts a zerolog.Logger to Logger
type ZerologLogger struct {
	logger zerolog.Logger
}

var _ Logger = ZerologLogger{}

// NewZerologLogger wraps l
func NewZerologLogger(l zerolog.Logger) ZerologLogger {
	return ZerologLogger{logger: l}
}

func (z ZerologLogger) Debug(msg string, args ...any) {
	z.logger.Debug().Fields(args).Msg(msg)
}

func (z ZerologLogger) Info(msg string, args ...any) {
	z.logger.Info().Fields(args).Msg(msg)
}

func (z ZerologLogger) Warn(msg string, args ...any) {
	z.logger.Warn().Fields(args).Msg(msg)
}

func (z ZerologLogger) Error(msg string, args ...any) {
	z.logger.Error().Fields(args).Msg(msg)
}
