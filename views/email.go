package views

import (
	"context"
	"html/template"
	"io"

	"github.com/a-h/templ"
)

var emails = template.Must(template.New("").Funcs(funcs).ParseFS(templatesFS, "templates/email/*.html"))

type InvitationEmailParams struct {
	AppName     string
	GroupName   string
	InviterName string
	Email       string
	GroupsURL   string
}

// InvitationEmail is the body of the group invitation email.
func InvitationEmail(p InvitationEmailParams) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		return emails.ExecuteTemplate(w, "invitation", p)
	})
}
