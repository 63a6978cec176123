package mailer

import "context"

// MetricsMailer reports every delivery outcome to a callback, keeping the
// metrics registry out of this package.
type MetricsMailer struct {
	inner   Mailer
	observe func(result string)
}

func NewMetricsMailer(inner Mailer, observe func(result string)) *MetricsMailer {
	return &MetricsMailer{inner: inner, observe: observe}
}

func (m *MetricsMailer) Send(ctx context.Context, to, subject, htmlBody string) error {
	err := m.inner.Send(ctx, to, subject, htmlBody)

	if m.observe != nil {
		if err != nil {
			m.observe("error")
		} else {
			m.observe("ok")
		}
	}

	return err
}
