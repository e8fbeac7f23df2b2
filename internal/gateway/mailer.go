package gateway

import (
	"fmt"
	"net/smtp"

	"github.com/bloomcart/storefront-api/internal/config"
)

// Mailer sends transactional mail. Delivery is best-effort; callers must not
// fail their primary write on a mail error.
type Mailer interface {
	SendOrderConfirmation(to, orderNumber, total string) error
}

type smtpMailer struct {
	addr string
	auth smtp.Auth
	from string
}

func NewMailer(cfg config.SMTPConfig) Mailer {
	var auth smtp.Auth
	if cfg.Username != "" {
		auth = smtp.PlainAuth("", cfg.Username, cfg.Password, cfg.Host)
	}
	return &smtpMailer{
		addr: fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		auth: auth,
		from: cfg.From,
	}
}

func (m *smtpMailer) SendOrderConfirmation(to, orderNumber, total string) error {
	msg := fmt.Sprintf(
		"From: %s\r\nTo: %s\r\nSubject: Order %s confirmed\r\n\r\n"+
			"Your payment of %s for order %s was received. We are preparing your items.\r\n",
		m.from, to, orderNumber, total, orderNumber,
	)
	if err := smtp.SendMail(m.addr, m.auth, m.from, []string{to}, []byte(msg)); err != nil {
		return fmt.Errorf("send mail: %w", err)
	}
	return nil
}
