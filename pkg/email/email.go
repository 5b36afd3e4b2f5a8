// Package email sends transactional mail through Postmark, or writes it to
// disk in development.
package email

import (
	"context"
	"errors"
	"net/mail"
	"strings"

	"github.com/a-h/templ"
)

var (
	ErrFailedToSendEmail = errors.New("mailer.errors.failed_to_send_email")
	ErrInvalidConfig     = errors.New("mailer.errors.invalid_config")
	ErrInvalidParams     = errors.New("mailer.errors.invalid_params")
)

type Config struct {
	PostmarkServerToken  string `env:"POSTMARK_SERVER_TOKEN"`
	PostmarkAccountToken string `env:"POSTMARK_ACCOUNT_TOKEN"`
	SenderEmail          string `env:"SENDER_EMAIL" envDefault:"noreply@fittrack.local"`
	SupportEmail         string `env:"SUPPORT_EMAIL" envDefault:"support@fittrack.local"`
	DevDir               string `env:"EMAIL_DEV_DIR" envDefault:"tmp/emails"`
}

// Sender delivers one message.
type Sender interface {
	SendEmail(ctx context.Context, params SendEmailParams) error
}

type SendEmailParams struct {
	SendTo   string `json:"send_to"`
	Subject  string `json:"subject"`
	BodyHTML string `json:"body_html"`
	Tag      string `json:"tag,omitempty"`
}

func (p SendEmailParams) Validate() error {
	if _, err := mail.ParseAddress(p.SendTo); err != nil {
		return errors.Join(ErrInvalidParams, err)
	}
	if strings.TrimSpace(p.Subject) == "" || strings.TrimSpace(p.BodyHTML) == "" {
		return errors.Join(ErrInvalidParams, errors.New("subject and body are required"))
	}
	return nil
}

// Render renders a templ component to an HTML string.
func Render(ctx context.Context, c templ.Component) (string, error) {
	var sb strings.Builder
	if err := c.Render(ctx, &sb); err != nil {
		return "", err
	}
	return sb.String(), nil
}
