package group

import (
	"context"
	"errors"
	"log/slog"

	"github.com/dmitrymomot/fittrack/pkg/logger"
)

// Storage is the groups, group_members and group_invitations tables.
// Lookups that match nothing return ErrNotFound, or ErrNotMember for
// membership checks.
type Storage interface {
	ListForUser(ctx context.Context, userID string) ([]Group, error)
	GetForUser(ctx context.Context, userID, groupID string) (Group, error)
	Create(ctx context.Context, userID string, in Input) (Group, error)
	Update(ctx context.Context, groupID string, in Input) (Group, error)
	Delete(ctx context.Context, groupID string) error
	MemberRole(ctx context.Context, groupID, userID string) (Role, error)
	ListMembers(ctx context.Context, groupID string) ([]Member, error)
	CreateInvitation(ctx context.Context, groupID, email string) (Invitation, error)
	ListInvitations(ctx context.Context, email string) ([]Invitation, error)
	RespondInvitation(ctx context.Context, userID, email, invitationID string, accept bool) (Invitation, error)
}

// Notifier tells an invitee about a new invitation.
type Notifier interface {
	NotifyInvitation(ctx context.Context, inv Invitation) error
}

type Service struct {
	storage  Storage
	store    *Store
	notifier Notifier
	log      *slog.Logger
}

type ServiceOption func(*Service)

func WithLogger(l *slog.Logger) ServiceOption {
	return func(s *Service) { s.log = logger.OrDefault(l) }
}

// WithNotifier sends invitation emails. Without it invitations are only
// visible in the invitee's pending list.
func WithNotifier(n Notifier) ServiceOption {
	return func(s *Service) { s.notifier = n }
}

func NewService(storage Storage, store *Store, opts ...ServiceOption) *Service {
	s := &Service{storage: storage, store: store, log: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	s.log = s.log.With(logger.Component("group"))
	return s
}

func (s *Service) Store() *Store { return s.store }

// Load replaces the group list with the groups userID belongs to.
func (s *Service) Load(ctx context.Context, userID string) error {
	if userID == "" {
		return ErrNoUser
	}
	s.store.Groups.SetLoading(true)
	list, err := s.storage.ListForUser(ctx, userID)
	if err != nil {
		s.store.Groups.SetError(err)
		s.log.ErrorContext(ctx, "load groups", logger.UserID(userID), logger.Error(err))
		return err
	}
	s.store.Groups.Load(list)
	return nil
}

// Create makes a group with userID as its admin.
func (s *Service) Create(ctx context.Context, userID string, in Input) (Group, error) {
	if userID == "" {
		return Group{}, ErrNoUser
	}
	in = in.normalize()
	if err := Validate(in); err != nil {
		return Group{}, err
	}

	g, err := s.storage.Create(ctx, userID, in)
	if err != nil {
		s.store.Groups.SetError(err)
		s.log.ErrorContext(ctx, "create group", logger.UserID(userID), logger.Error(err))
		return Group{}, err
	}
	s.store.AddGroup(g)
	s.log.InfoContext(ctx, "group created", logger.UserID(userID), logger.GroupID(g.ID))
	return g, nil
}

// Open loads the group and its members and makes it current.
func (s *Service) Open(ctx context.Context, userID, groupID string) (Group, error) {
	g, err := s.storage.GetForUser(ctx, userID, groupID)
	if err != nil {
		return Group{}, err
	}

	s.store.Members.SetLoading(true)
	members, err := s.storage.ListMembers(ctx, groupID)
	if err != nil {
		s.store.Members.SetError(err)
		return Group{}, err
	}
	s.store.SetCurrent(&g)
	s.store.Members.Load(members)
	return g, nil
}

// Update edits name, goal and cover. Admins only.
func (s *Service) Update(ctx context.Context, userID, groupID string, in Input) (Group, error) {
	in = in.normalize()
	if err := Validate(in); err != nil {
		return Group{}, err
	}
	if err := s.requireAdmin(ctx, groupID, userID); err != nil {
		return Group{}, err
	}

	g, err := s.storage.Update(ctx, groupID, in)
	if err != nil {
		return Group{}, err
	}
	// The row does not carry the viewer's perspective; keep it.
	if cur, ok := s.store.Groups.Get(groupID); ok {
		g.MemberCount, g.UserRole = cur.MemberCount, cur.UserRole
	} else {
		g.UserRole = RoleAdmin
	}
	s.store.UpdateGroup(g)
	return g, nil
}

// Delete removes the group with its memberships and invitations. Admins only.
func (s *Service) Delete(ctx context.Context, userID, groupID string) error {
	if err := s.requireAdmin(ctx, groupID, userID); err != nil {
		return err
	}
	if err := s.storage.Delete(ctx, groupID); err != nil {
		if !errors.Is(err, ErrNotFound) {
			s.store.Groups.SetError(err)
		}
		return err
	}
	s.store.DeleteGroup(groupID)
	s.log.InfoContext(ctx, "group deleted", logger.UserID(userID), logger.GroupID(groupID))
	return nil
}

// Invite records a pending invitation for email and notifies the invitee.
// Admins only. A failed notification is logged; the invitation stands.
func (s *Service) Invite(ctx context.Context, userID, groupID, email string) (Invitation, error) {
	email = normalizeEmail(email)
	if err := validateInviteEmail(email); err != nil {
		return Invitation{}, err
	}
	if err := s.requireAdmin(ctx, groupID, userID); err != nil {
		return Invitation{}, err
	}

	inv, err := s.storage.CreateInvitation(ctx, groupID, email)
	if err != nil {
		return Invitation{}, err
	}

	if s.notifier != nil {
		if err := s.notifier.NotifyInvitation(ctx, inv); err != nil {
			s.log.WarnContext(ctx, "invitation email failed", logger.GroupID(groupID), logger.Error(err))
		}
	}
	return inv, nil
}

// LoadInvitations replaces the invitation list with those sent to email.
func (s *Service) LoadInvitations(ctx context.Context, email string) error {
	s.store.Invitations.SetLoading(true)
	list, err := s.storage.ListInvitations(ctx, normalizeEmail(email))
	if err != nil {
		s.store.Invitations.SetError(err)
		return err
	}
	s.store.Invitations.Load(list)
	return nil
}

// RespondInvitation accepts or declines an invitation addressed to email.
// Accepting adds userID as a member and reloads the group list.
func (s *Service) RespondInvitation(ctx context.Context, userID, email, invitationID string, accept bool) (Invitation, error) {
	if userID == "" {
		return Invitation{}, ErrNoUser
	}
	inv, err := s.storage.RespondInvitation(ctx, userID, normalizeEmail(email), invitationID, accept)
	if err != nil {
		return Invitation{}, err
	}
	s.store.UpdateInvitation(inv)

	if accept {
		if err := s.Load(ctx, userID); err != nil {
			return inv, err
		}
	}
	return inv, nil
}

func (s *Service) requireAdmin(ctx context.Context, groupID, userID string) error {
	role, err := s.storage.MemberRole(ctx, groupID, userID)
	if err != nil {
		return err
	}
	if role != RoleAdmin {
		return ErrForbidden
	}
	return nil
}
