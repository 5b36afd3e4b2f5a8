package groups

import (
	"context"
	"fmt"
	"strings"

	"github.com/dmitrymomot/fittrack/pkg/email"
	"github.com/dmitrymomot/fittrack/svc/auth"
	"github.com/dmitrymomot/fittrack/svc/group"
	"github.com/dmitrymomot/fittrack/views"
)

// EmailNotifier sends the invitation email. It implements group.Notifier.
type EmailNotifier struct {
	sender   email.Sender
	groups   *group.Store
	sessions auth.SessionReader
	appName  string
	baseURL  string
}

func NewEmailNotifier(sender email.Sender, groups *group.Store, sessions auth.SessionReader, appName, baseURL string) *EmailNotifier {
	return &EmailNotifier{
		sender:   sender,
		groups:   groups,
		sessions: sessions,
		appName:  appName,
		baseURL:  strings.TrimRight(baseURL, "/"),
	}
}

func (n *EmailNotifier) NotifyInvitation(ctx context.Context, inv group.Invitation) error {
	name := inv.GroupName
	if name == "" {
		if g, ok := n.groups.Groups.Get(inv.GroupID); ok {
			name = g.Name
		}
	}
	var inviter string
	if s := n.sessions.Snapshot(); s != nil {
		inviter = s.DisplayName
	}

	body, err := email.Render(ctx, views.InvitationEmail(views.InvitationEmailParams{
		AppName:     n.appName,
		GroupName:   name,
		InviterName: inviter,
		Email:       inv.Email,
		GroupsURL:   n.baseURL + "/groups",
	}))
	if err != nil {
		return fmt.Errorf("render invitation email: %w", err)
	}

	return n.sender.SendEmail(ctx, email.SendEmailParams{
		SendTo:   inv.Email,
		Subject:  fmt.Sprintf("You're invited to join %s on %s", name, n.appName),
		BodyHTML: body,
		Tag:      "group-invitation",
	})
}
