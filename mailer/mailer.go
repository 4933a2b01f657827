package mailer

import (
	"github.com/samber/oops"
	mail "github.com/wneessen/go-mail"
)

// Mailer sends the post-sync summary to whoever babysits the Grafana
// install.
type Mailer struct {
	Host     string
	Username string
	Password string
	From     string
}

func (m *Mailer) Send(to string, subject string, body string) error {
	oopsBuilder := oops.In("Mailer::Send")
	msg := mail.NewMsg()
	if err := msg.From(m.From); err != nil {
		return oopsBuilder.Wrap(err)
	}
	if err := msg.To(to); err != nil {
		return oopsBuilder.Wrap(err)
	}
	msg.Subject(subject)
	msg.SetDate()
	msg.SetBodyString("text/plain", body)

	client, err := mail.NewClient(
		m.Host,
		mail.WithUsername(m.Username),
		mail.WithPassword(m.Password),
		mail.WithSSL(),
		mail.WithSMTPAuth(mail.SMTPAuthLogin),
	)
	if err != nil {
		return oopsBuilder.Wrap(err)
	}
	defer client.Close()

	if err := client.DialAndSend(msg); err != nil {
		return oopsBuilder.Wrap(err)
	}
	return nil
}
