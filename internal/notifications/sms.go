package notifications

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

type SMSSender interface {
	SendSMS(ctx context.Context, to, message string) error
}

// LogSMSSender writes messages to the log. No SMS gateway is integrated.
type LogSMSSender struct {
	logger *zap.Logger
}

func NewLogSMSSender(logger *zap.Logger) *LogSMSSender {
	return &LogSMSSender{logger: logger}
}

func (s *LogSMSSender) SendSMS(_ context.Context, to, message string) error {
	s.logger.Info("sms", zap.String("to", to), zap.String("message", message))
	return nil
}

func VerificationSMS(code string, ttl time.Duration) string {
	return fmt.Sprintf("EduGuide: Ваш код подтверждения: %s. Код действителен %d минут.", code, int(ttl.Minutes()))
}
