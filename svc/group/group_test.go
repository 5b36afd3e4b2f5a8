package group_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/fittrack/pkg/logger"
	"github.com/dmitrymomot/fittrack/pkg/validator"
	"github.com/dmitrymomot/fittrack/svc/group"
)

type MockStorage struct {
	mock.Mock
}

func (m *MockStorage) ListForUser(ctx context.Context, userID string) ([]group.Group, error) {
	args := m.Called(ctx, userID)
	list, _ := args.Get(0).([]group.Group)
	return list, args.Error(1)
}

func (m *MockStorage) GetForUser(ctx context.Context, userID, groupID string) (group.Group, error) {
	args := m.Called(ctx, userID, groupID)
	return args.Get(0).(group.Group), args.Error(1)
}

func (m *MockStorage) Create(ctx context.Context, userID string, in group.Input) (group.Group, error) {
	args := m.Called(ctx, userID, in)
	return args.Get(0).(group.Group), args.Error(1)
}

func (m *MockStorage) Update(ctx context.Context, groupID string, in group.Input) (group.Group, error) {
	args := m.Called(ctx, groupID, in)
	return args.Get(0).(group.Group), args.Error(1)
}

func (m *MockStorage) Delete(ctx context.Context, groupID string) error {
	return m.Called(ctx, groupID).Error(0)
}

func (m *MockStorage) MemberRole(ctx context.Context, groupID, userID string) (group.Role, error) {
	args := m.Called(ctx, groupID, userID)
	return args.Get(0).(group.Role), args.Error(1)
}

func (m *MockStorage) ListMembers(ctx context.Context, groupID string) ([]group.Member, error) {
	args := m.Called(ctx, groupID)
	list, _ := args.Get(0).([]group.Member)
	return list, args.Error(1)
}

func (m *MockStorage) CreateInvitation(ctx context.Context, groupID, email string) (group.Invitation, error) {
	args := m.Called(ctx, groupID, email)
	return args.Get(0).(group.Invitation), args.Error(1)
}

func (m *MockStorage) ListInvitations(ctx context.Context, email string) ([]group.Invitation, error) {
	args := m.Called(ctx, email)
	list, _ := args.Get(0).([]group.Invitation)
	return list, args.Error(1)
}

func (m *MockStorage) RespondInvitation(ctx context.Context, userID, email, invitationID string, accept bool) (group.Invitation, error) {
	args := m.Called(ctx, userID, email, invitationID, accept)
	return args.Get(0).(group.Invitation), args.Error(1)
}

type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) NotifyInvitation(ctx context.Context, inv group.Invitation) error {
	return m.Called(ctx, inv).Error(0)
}

func newService(storage group.Storage, opts ...group.ServiceOption) *group.Service {
	opts = append([]group.ServiceOption{group.WithLogger(logger.Discard())}, opts...)
	return group.NewService(storage, group.NewStore(), opts...)
}

func TestService_CreateAndLoad(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	storage := &MockStorage{}
	storage.On("ListForUser", ctx, "u1").Return([]group.Group{{ID: "g1", Name: "Lifters", UserRole: group.RoleMember}}, nil)
	storage.On("Create", ctx, "u1", group.Input{Name: "Runners", Goal: "5k"}).
		Return(group.Group{ID: "g2", Name: "Runners", MemberCount: 1, UserRole: group.RoleAdmin}, nil)

	svc := newService(storage)
	require.NoError(t, svc.Load(ctx, "u1"))

	g, err := svc.Create(ctx, "u1", group.Input{Name: " Runners ", Goal: "5k "})
	require.NoError(t, err)
	assert.True(t, g.IsAdmin())

	items := svc.Store().Groups.Items()
	require.Len(t, items, 2)
	assert.Equal(t, "g2", items[1].ID, "new groups are appended")
	storage.AssertExpectations(t)
}

func TestService_CreateValidation(t *testing.T) {
	t.Parallel()

	storage := &MockStorage{}
	_, err := newService(storage).Create(context.Background(), "u1", group.Input{Name: "  "})
	errs := validator.ExtractValidationErrors(err)
	require.NotNil(t, errs)
	assert.True(t, errs.Has("name"))
	storage.AssertNotCalled(t, "Create", mock.Anything, mock.Anything, mock.Anything)
}

func TestService_Open(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	storage := &MockStorage{}
	storage.On("GetForUser", ctx, "u1", "g1").Return(group.Group{ID: "g1", Name: "Lifters"}, nil)
	storage.On("ListMembers", ctx, "g1").Return([]group.Member{{ID: "m1", UserID: "u1"}, {ID: "m2", UserID: "u2"}}, nil)
	storage.On("GetForUser", ctx, "u1", "nope").Return(group.Group{}, group.ErrNotFound)

	svc := newService(storage)
	_, err := svc.Open(ctx, "u1", "g1")
	require.NoError(t, err)
	require.NotNil(t, svc.Store().Current())
	assert.Equal(t, "g1", svc.Store().Current().ID)
	assert.Equal(t, 2, svc.Store().Members.Len())

	_, err = svc.Open(ctx, "u1", "nope")
	assert.ErrorIs(t, err, group.ErrNotFound)
	assert.Equal(t, "g1", svc.Store().Current().ID)
}

func TestService_Delete(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("admin deletes and clears current", func(t *testing.T) {
		t.Parallel()
		storage := &MockStorage{}
		storage.On("ListForUser", ctx, "u1").Return([]group.Group{{ID: "g1"}, {ID: "g2"}}, nil)
		storage.On("GetForUser", ctx, "u1", "g1").Return(group.Group{ID: "g1"}, nil)
		storage.On("ListMembers", ctx, "g1").Return([]group.Member{}, nil)
		storage.On("MemberRole", ctx, "g1", "u1").Return(group.RoleAdmin, nil)
		storage.On("Delete", ctx, "g1").Return(nil)

		svc := newService(storage)
		require.NoError(t, svc.Load(ctx, "u1"))
		_, err := svc.Open(ctx, "u1", "g1")
		require.NoError(t, err)

		require.NoError(t, svc.Delete(ctx, "u1", "g1"))
		assert.Nil(t, svc.Store().Current())
		assert.Equal(t, 1, svc.Store().Groups.Len())
	})

	t.Run("member is forbidden", func(t *testing.T) {
		t.Parallel()
		storage := &MockStorage{}
		storage.On("MemberRole", ctx, "g1", "u2").Return(group.RoleMember, nil)

		err := newService(storage).Delete(ctx, "u2", "g1")
		assert.ErrorIs(t, err, group.ErrForbidden)
		storage.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
	})

	t.Run("non member", func(t *testing.T) {
		t.Parallel()
		storage := &MockStorage{}
		storage.On("MemberRole", ctx, "g1", "u3").Return(group.Role(""), group.ErrNotMember)

		assert.ErrorIs(t, newService(storage).Delete(ctx, "u3", "g1"), group.ErrNotMember)
	})
}

func TestService_Update(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	storage := &MockStorage{}
	storage.On("ListForUser", ctx, "u1").Return([]group.Group{{ID: "g1", Name: "Old", MemberCount: 4, UserRole: group.RoleAdmin}}, nil)
	storage.On("MemberRole", ctx, "g1", "u1").Return(group.RoleAdmin, nil)
	storage.On("Update", ctx, "g1", group.Input{Name: "New"}).Return(group.Group{ID: "g1", Name: "New"}, nil)

	svc := newService(storage)
	require.NoError(t, svc.Load(ctx, "u1"))
	svc.Store().SetCurrent(&group.Group{ID: "g1", Name: "Old"})

	g, err := svc.Update(ctx, "u1", "g1", group.Input{Name: "New"})
	require.NoError(t, err)
	assert.Equal(t, 4, g.MemberCount)
	assert.Equal(t, "New", svc.Store().Current().Name)
	got, _ := svc.Store().Groups.Get("g1")
	assert.Equal(t, "New", got.Name)
}

func TestService_Invite(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("admin invites and notifies", func(t *testing.T) {
		t.Parallel()
		storage := &MockStorage{}
		notifier := &MockNotifier{}
		inv := group.Invitation{ID: "i1", GroupID: "g1", Email: "x@y.com", Status: group.StatusPending, GroupName: "Lifters"}
		storage.On("MemberRole", ctx, "g1", "u1").Return(group.RoleAdmin, nil)
		storage.On("CreateInvitation", ctx, "g1", "x@y.com").Return(inv, nil)
		notifier.On("NotifyInvitation", ctx, inv).Return(errors.New("smtp down"))

		got, err := newService(storage, group.WithNotifier(notifier)).Invite(ctx, "u1", "g1", " X@Y.com ")
		require.NoError(t, err, "a failed email does not undo the invitation")
		assert.Equal(t, "i1", got.ID)
		notifier.AssertExpectations(t)
	})

	t.Run("invalid email", func(t *testing.T) {
		t.Parallel()
		storage := &MockStorage{}
		_, err := newService(storage).Invite(ctx, "u1", "g1", "not-an-email")
		assert.True(t, validator.IsValidationError(err))
		storage.AssertNotCalled(t, "MemberRole", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("member cannot invite", func(t *testing.T) {
		t.Parallel()
		storage := &MockStorage{}
		storage.On("MemberRole", ctx, "g1", "u2").Return(group.RoleMember, nil)
		_, err := newService(storage).Invite(ctx, "u2", "g1", "x@y.com")
		assert.ErrorIs(t, err, group.ErrForbidden)
	})

	t.Run("already invited", func(t *testing.T) {
		t.Parallel()
		storage := &MockStorage{}
		storage.On("MemberRole", ctx, "g1", "u1").Return(group.RoleAdmin, nil)
		storage.On("CreateInvitation", ctx, "g1", "x@y.com").Return(group.Invitation{}, group.ErrAlreadyInvited)
		_, err := newService(storage).Invite(ctx, "u1", "g1", "x@y.com")
		assert.ErrorIs(t, err, group.ErrAlreadyInvited)
	})
}

func TestService_Invitations(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	storage := &MockStorage{}
	storage.On("ListInvitations", ctx, "x@y.com").Return([]group.Invitation{
		{ID: "i1", GroupID: "g1", Status: group.StatusPending},
		{ID: "i2", GroupID: "g2", Status: group.StatusRejected},
		{ID: "i3", GroupID: "g3", Status: group.StatusPending},
	}, nil)
	storage.On("RespondInvitation", ctx, "u2", "x@y.com", "i1", true).
		Return(group.Invitation{ID: "i1", GroupID: "g1", Status: group.StatusAccepted}, nil)
	storage.On("RespondInvitation", ctx, "u2", "x@y.com", "i3", false).
		Return(group.Invitation{ID: "i3", GroupID: "g3", Status: group.StatusRejected}, nil)
	storage.On("ListForUser", ctx, "u2").Return([]group.Group{{ID: "g1"}}, nil).Once()

	svc := newService(storage)
	require.NoError(t, svc.LoadInvitations(ctx, "X@y.com"))
	assert.Len(t, svc.Store().Pending(), 2)

	_, err := svc.RespondInvitation(ctx, "u2", "x@y.com", "i1", true)
	require.NoError(t, err)
	assert.Equal(t, 1, svc.Store().Groups.Len(), "accepting reloads groups")

	_, err = svc.RespondInvitation(ctx, "u2", "x@y.com", "i3", false)
	require.NoError(t, err)
	assert.Empty(t, svc.Store().Pending())
	storage.AssertExpectations(t)
}

func TestPendingInvitations(t *testing.T) {
	t.Parallel()

	got := group.PendingInvitations([]group.Invitation{
		{ID: "a", Status: group.StatusAccepted},
		{ID: "b", Status: group.StatusPending},
	})
	require.Len(t, got, 1)
	assert.Equal(t, "b", got[0].ID)
	assert.Empty(t, group.PendingInvitations(nil))
}

func TestStore(t *testing.T) {
	t.Parallel()

	s := group.NewStore()
	s.Groups.Load([]group.Group{{ID: "g1"}, {ID: "g2"}})
	s.SetCurrent(&group.Group{ID: "g2"})

	s.DeleteGroup("g1")
	require.NotNil(t, s.Current(), "deleting another group keeps current")

	s.DeleteGroup("g2")
	assert.Nil(t, s.Current())

	assert.False(t, s.UpdateInvitation(group.Invitation{ID: "unknown"}))

	s.AddGroup(group.Group{ID: "g3"})
	s.Reset()
	assert.Zero(t, s.Groups.Len())
}
