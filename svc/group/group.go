// Package group manages workout groups, their members and email
// invitations.
package group

import (
	"errors"
	"strings"
	"time"
)

type Role string

const (
	RoleAdmin  Role = "admin"
	RoleMember Role = "member"
)

type InvitationStatus string

const (
	StatusPending  InvitationStatus = "pending"
	StatusAccepted InvitationStatus = "accepted"
	StatusRejected InvitationStatus = "rejected"
)

var (
	ErrNotFound         = errors.New("group.not_found")
	ErrNotMember        = errors.New("group.not_member")
	ErrForbidden        = errors.New("group.admin_only")
	ErrAlreadyMember    = errors.New("group.already_member")
	ErrAlreadyInvited   = errors.New("group.already_invited")
	ErrInvitationClosed = errors.New("group.invitation_closed")
	ErrNoUser           = errors.New("group.no_user")
)

// Group is a group as seen by one member: MemberCount and UserRole are
// computed for the viewing user.
type Group struct {
	ID            string
	Name          string
	Goal          string
	CoverImageURL string
	CreatedBy     string
	CreatedAt     time.Time
	MemberCount   int
	UserRole      Role
}

func (g Group) GetID() string { return g.ID }

func (g Group) IsAdmin() bool { return g.UserRole == RoleAdmin }

type Member struct {
	ID                string
	GroupID           string
	UserID            string
	Role              Role
	JoinedAt          time.Time
	Name              string
	ProfilePictureURL string
}

func (m Member) GetID() string { return m.ID }

type Invitation struct {
	ID        string
	GroupID   string
	Email     string
	Status    InvitationStatus
	CreatedAt time.Time
	GroupName string
}

func (i Invitation) GetID() string { return i.ID }

// Input is the create and edit form.
type Input struct {
	Name          string
	Goal          string
	CoverImageURL string
}

func (in Input) normalize() Input {
	in.Name = strings.TrimSpace(in.Name)
	in.Goal = strings.TrimSpace(in.Goal)
	in.CoverImageURL = strings.TrimSpace(in.CoverImageURL)
	return in
}

// PendingInvitations keeps only invitations still awaiting an answer.
func PendingInvitations(list []Invitation) []Invitation {
	out := make([]Invitation, 0, len(list))
	for _, inv := range list {
		if inv.Status == StatusPending {
			out = append(out, inv)
		}
	}
	return out
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
