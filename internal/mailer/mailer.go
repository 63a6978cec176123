package mailer

import "context"

// Mailer sends one HTML email. Implementations must return an error on
// delivery failure so callers can compensate.
type Mailer interface {
	Send(ctx context.Context, to, subject, htmlBody string) error
}
