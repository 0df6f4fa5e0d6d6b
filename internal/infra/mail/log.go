package mail

import (
	"context"

	"go.uber.org/zap"

	"github.com/SwagatoSarowar/Natours/internal/core/domain"
	"github.com/SwagatoSarowar/Natours/internal/core/port"
	"github.com/SwagatoSarowar/Natours/internal/infra/logger"
)

// LogMailer drops mail after logging its envelope. The body carries reset
// links and is never logged.
type LogMailer struct {
	logger *zap.Logger
}

func NewLogMailer(log *zap.Logger) *LogMailer {
	if log == nil {
		log = zap.NewNop()
	}
	return &LogMailer{logger: log}
}

func (m *LogMailer) Send(ctx context.Context, msg domain.MailMessage) error {
	logger.WithContext(ctx, m.logger).Info("mail discarded",
		zap.String("to", logger.MaskEmail(msg.To)),
		zap.String("subject", msg.Subject),
	)
	return nil
}

var _ port.Mailer = (*LogMailer)(nil)
