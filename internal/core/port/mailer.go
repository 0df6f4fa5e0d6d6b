package port

import (
	"context"

	"github.com/SwagatoSarowar/Natours/internal/core/domain"
)

// Mailer delivers outbound email. Any returned error is treated as transient.
type Mailer interface {
	Send(ctx context.Context, msg domain.MailMessage) error
}
