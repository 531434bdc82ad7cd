package app

import (
	"context"

	"go.uber.org/zap"

	"github.com/Gustavoab019/startia/internal/message"
)

// logSender stands in for Z-API in development.
type logSender struct {
	logger *zap.Logger
}

func (s logSender) Send(_ context.Context, to string, m message.Outbound) error {
	s.logger.Info("reply (not delivered)", zap.String("to", to), zap.String("text", message.Render(m)))
	return nil
}
