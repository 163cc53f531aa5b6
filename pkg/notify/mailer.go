package notify

import (
	"context"

	"go.uber.org/zap"
)

type Mail struct {
	To      string
	Subject string
	Body    string
}

type Mailer interface {
	Send(ctx context.Context, m Mail) error
}

// LogMailer writes every mail to the log instead of delivering it. It is the
// only mailer wired today; SMTP delivery plugs in behind Mailer.
type LogMailer struct {
	log *zap.Logger
}

func NewLogMailer(logger *zap.Logger) *LogMailer {
	return &LogMailer{log: logger.Named("mailer")}
}

func (m *LogMailer) Send(_ context.Context, mail Mail) error {
	m.log.Info("Mail sent",
		zap.String("to", mail.To),
		zap.String("subject", mail.Subject),
		zap.Int("body_bytes", len(mail.Body)))
	return nil
}
