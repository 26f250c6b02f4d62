package notify

import (
	"context"
	"crypto/tls"
	"formgate/internal/models"
	"net"
	"net/smtp"
	"strconv"

	"github.com/jordan-wright/email"
)

// SMTP sends notifications through an SMTP relay.
type SMTP struct {
	cfg  models.SMTPConfig
	from string

	// send is swapped in tests.
	send func(e *email.Email, addr string, auth smtp.Auth) error
}

// NewSMTP creates an SMTP notifier. It is disabled unless both the relay host
// and the password credential are set.
func NewSMTP(cfg models.NotifierConfig) *SMTP {
	s := &SMTP{
		cfg:  cfg.SMTP,
		from: cfg.FromAddress,
	}
	if cfg.SMTP.SSL {
		s.send = func(e *email.Email, addr string, auth smtp.Auth) error {
			return e.SendWithTLS(addr, auth, &tls.Config{ServerName: cfg.SMTP.Host})
		}
	} else {
		s.send = func(e *email.Email, addr string, auth smtp.Auth) error {
			return e.Send(addr, auth)
		}
	}
	return s
}

func (s *SMTP) Enabled() bool {
	return s.cfg.Host != "" && s.cfg.Password != ""
}

// Send delivers msg. The underlying client has no context support, so ctx is
// only checked before dialing.
func (s *SMTP) Send(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return transportError("smtp", err)
	}

	e := email.NewEmail()
	e.From = formatFrom(msg.FromName, s.from)
	e.To = []string{msg.To}
	e.Subject = msg.Subject
	e.HTML = []byte(msg.HTML)

	addr := net.JoinHostPort(s.cfg.Host, strconv.Itoa(s.cfg.Port))
	auth := smtp.PlainAuth("", s.cfg.Username, s.cfg.Password, s.cfg.Host)

	if err := s.send(e, addr, auth); err != nil {
		return transportError("smtp", err)
	}
	return nil
}
