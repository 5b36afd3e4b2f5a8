// Package groups serves the group pages: the list with pending
// invitations, the create and edit forms, and the detail page where admins
// invite members.
package groups

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/dmitrymomot/fittrack/handler"
	"github.com/dmitrymomot/fittrack/pkg/binder"
	"github.com/dmitrymomot/fittrack/pkg/logger"
	"github.com/dmitrymomot/fittrack/pkg/validator"
	"github.com/dmitrymomot/fittrack/svc/auth"
	"github.com/dmitrymomot/fittrack/svc/group"
	"github.com/dmitrymomot/fittrack/views"
)

// Groups is the group service as the handlers use it.
type Groups interface {
	Store() *group.Store
	Load(ctx context.Context, userID string) error
	LoadInvitations(ctx context.Context, email string) error
	Create(ctx context.Context, userID string, in group.Input) (group.Group, error)
	Open(ctx context.Context, userID, groupID string) (group.Group, error)
	Update(ctx context.Context, userID, groupID string, in group.Input) (group.Group, error)
	Delete(ctx context.Context, userID, groupID string) error
	Invite(ctx context.Context, userID, groupID, email string) (group.Invitation, error)
	RespondInvitation(ctx context.Context, userID, email, invitationID string, accept bool) (group.Invitation, error)
}

type Service struct {
	groups       Groups
	log          *slog.Logger
	errorHandler handler.ErrorHandler[handler.Context]
}

func NewService(groups Groups, errorHandler handler.ErrorHandler[handler.Context], log *slog.Logger) *Service {
	return &Service{
		groups:       groups,
		errorHandler: errorHandler,
		log:          logger.OrDefault(log).With(logger.Component("groups")),
	}
}

// Handle returns the router mounted at /groups behind the Protected guard.
func (s *Service) Handle() http.Handler {
	r := chi.NewRouter()

	r.Get("/", handler.Wrap(s.list,
		handler.WithErrorHandler[handler.Context, struct{}](s.errorHandler),
	))
	r.Get("/new", handler.Wrap(s.newForm,
		handler.WithErrorHandler[handler.Context, struct{}](s.errorHandler),
	))
	r.Post("/", handler.Wrap(s.create,
		handler.WithBinders[handler.Context, FormRequest](binder.Form()),
		handler.WithErrorHandler[handler.Context, FormRequest](s.errorHandler),
	))
	r.Post("/invitations/{id}/{answer:accept|decline}", handler.Wrap(s.respond,
		handler.WithBinders[handler.Context, RespondRequest](binder.Path()),
		handler.WithErrorHandler[handler.Context, RespondRequest](s.errorHandler),
	))
	r.Get("/{id}", handler.Wrap(s.detail,
		handler.WithBinders[handler.Context, IDRequest](binder.Path()),
		handler.WithErrorHandler[handler.Context, IDRequest](s.errorHandler),
	))
	r.Get("/{id}/edit", handler.Wrap(s.editForm,
		handler.WithBinders[handler.Context, IDRequest](binder.Path()),
		handler.WithErrorHandler[handler.Context, IDRequest](s.errorHandler),
	))
	r.Post("/{id}", handler.Wrap(s.update,
		handler.WithBinders[handler.Context, FormRequest](binder.Path(), binder.Form()),
		handler.WithErrorHandler[handler.Context, FormRequest](s.errorHandler),
	))
	r.Delete("/{id}", handler.Wrap(s.delete,
		handler.WithBinders[handler.Context, IDRequest](binder.Path()),
		handler.WithErrorHandler[handler.Context, IDRequest](s.errorHandler),
	))
	r.Post("/{id}/invitations", handler.Wrap(s.invite,
		handler.WithBinders[handler.Context, InviteRequest](binder.Path(), binder.Form()),
		handler.WithErrorHandler[handler.Context, InviteRequest](s.errorHandler),
	))

	return r
}

type IDRequest struct {
	ID string `path:"id"`
}

func (s *Service) listParams(ctx handler.Context) views.GroupsParams {
	store := s.groups.Store()
	p := views.GroupsParams{
		Layout:      views.NewLayout("Groups", "groups", auth.CurrentSession(ctx)),
		Groups:      store.Groups.Items(),
		Invitations: store.Pending(),
	}
	if store.Groups.Err() != nil || store.Invitations.Err() != nil {
		p.Error = "Failed to load groups"
	}
	return p
}

func (s *Service) list(ctx handler.Context, _ struct{}) handler.Response {
	sess := auth.CurrentSession(ctx)
	// Failures are logged by the service and surface through the store flags.
	_ = s.groups.Load(ctx, sess.UserID)
	_ = s.groups.LoadInvitations(ctx, sess.Email)
	return handler.Templ(views.GroupsPage(s.listParams(ctx)))
}

func (s *Service) newForm(ctx handler.Context, _ struct{}) handler.Response {
	return handler.Templ(views.GroupFormPage(views.GroupFormParams{
		Layout: views.NewLayout("Create Group", "groups", auth.CurrentSession(ctx)),
	}))
}

func (s *Service) editForm(ctx handler.Context, req IDRequest) handler.Response {
	sess := auth.CurrentSession(ctx)
	g, err := s.groups.Open(ctx, sess.UserID, req.ID)
	if err != nil {
		return errorResponse(err)
	}
	if !g.IsAdmin() {
		return errorResponse(group.ErrForbidden)
	}
	return handler.Templ(views.GroupFormPage(views.GroupFormParams{
		Layout:        views.NewLayout("Edit Group", "groups", sess),
		ID:            g.ID,
		Name:          g.Name,
		Goal:          g.Goal,
		CoverImageURL: g.CoverImageURL,
	}))
}

type FormRequest struct {
	ID            string `path:"id"`
	Name          string `form:"name"`
	Goal          string `form:"goal"`
	CoverImageURL string `form:"cover_image_url"`
}

func (req FormRequest) input() group.Input {
	return group.Input{Name: req.Name, Goal: req.Goal, CoverImageURL: req.CoverImageURL}
}

func (s *Service) create(ctx handler.Context, req FormRequest) handler.Response {
	req.ID = ""
	sess := auth.CurrentSession(ctx)
	g, err := s.groups.Create(ctx, sess.UserID, req.input())
	if err != nil {
		return s.formError(ctx, req, err)
	}
	return handler.Redirect("/groups/" + g.ID)
}

func (s *Service) update(ctx handler.Context, req FormRequest) handler.Response {
	sess := auth.CurrentSession(ctx)
	g, err := s.groups.Update(ctx, sess.UserID, req.ID, req.input())
	if err != nil {
		return s.formError(ctx, req, err)
	}
	return handler.Redirect("/groups/" + g.ID)
}

func (s *Service) formError(ctx handler.Context, req FormRequest, err error) handler.Response {
	title := "Create Group"
	if req.ID != "" {
		title = "Edit Group"
	}
	p := views.GroupFormParams{
		Layout:        views.NewLayout(title, "groups", auth.CurrentSession(ctx)),
		ID:            req.ID,
		Name:          req.Name,
		Goal:          req.Goal,
		CoverImageURL: req.CoverImageURL,
	}
	switch {
	case validator.IsValidationError(err):
		p.Errors = validator.ExtractValidationErrors(err)
	case errors.Is(err, group.ErrForbidden), errors.Is(err, group.ErrNotFound), errors.Is(err, group.ErrNotMember):
		return errorResponse(err)
	default:
		s.log.ErrorContext(ctx, "save group failed", logger.Error(err))
		p.Error = "Failed to save group"
	}
	return handler.TemplPartial(views.GroupForm(p), views.GroupFormPage(p),
		handler.WithTarget(views.TargetGroupForm))
}

func (s *Service) detail(ctx handler.Context, req IDRequest) handler.Response {
	sess := auth.CurrentSession(ctx)
	g, err := s.groups.Open(ctx, sess.UserID, req.ID)
	if err != nil {
		return errorResponse(err)
	}
	return handler.Templ(views.GroupDetailPage(views.GroupDetailParams{
		Layout:  views.NewLayout(g.Name, "groups", sess),
		Group:   g,
		Members: s.groups.Store().Members.Items(),
	}))
}

func (s *Service) delete(ctx handler.Context, req IDRequest) handler.Response {
	sess := auth.CurrentSession(ctx)
	if err := s.groups.Delete(ctx, sess.UserID, req.ID); err != nil {
		return errorResponse(err)
	}
	return handler.RedirectReplace("/groups")
}

type InviteRequest struct {
	GroupID string `path:"id"`
	Email   string `form:"email"`
}

func (s *Service) invite(ctx handler.Context, req InviteRequest) handler.Response {
	sess := auth.CurrentSession(ctx)
	p := views.GroupDetailParams{Group: group.Group{ID: req.GroupID}}
	if cur := s.groups.Store().Current(); cur != nil && cur.ID == req.GroupID {
		p.Group = *cur
	}

	inv, err := s.groups.Invite(ctx, sess.UserID, req.GroupID, req.Email)
	switch {
	case err == nil:
		p.InviteSuccess = "Invitation sent to " + inv.Email
	case validator.IsValidationError(err):
		p.InviteEmail = req.Email
		p.InviteError = validator.ExtractValidationErrors(err).First("email")
	case errors.Is(err, group.ErrAlreadyMember):
		p.InviteEmail = req.Email
		p.InviteError = "This user is already a member of the group"
	case errors.Is(err, group.ErrAlreadyInvited):
		p.InviteEmail = req.Email
		p.InviteError = "This email already has a pending invitation"
	case errors.Is(err, group.ErrForbidden), errors.Is(err, group.ErrNotFound), errors.Is(err, group.ErrNotMember):
		return errorResponse(err)
	default:
		s.log.ErrorContext(ctx, "invite failed", logger.GroupID(req.GroupID), logger.Error(err))
		p.InviteEmail = req.Email
		p.InviteError = "Failed to send invitation"
	}

	if !handler.IsDataStar(ctx.Request()) {
		return handler.Redirect("/groups/" + req.GroupID)
	}
	return handler.Templ(views.InviteForm(p), handler.WithTarget(views.TargetInviteForm))
}

type RespondRequest struct {
	ID     string `path:"id"`
	Answer string `path:"answer"`
}

func (s *Service) respond(ctx handler.Context, req RespondRequest) handler.Response {
	sess := auth.CurrentSession(ctx)
	accept := req.Answer == "accept"

	if _, err := s.groups.RespondInvitation(ctx, sess.UserID, sess.Email, req.ID, accept); err != nil {
		if !errors.Is(err, group.ErrNotFound) && !errors.Is(err, group.ErrInvitationClosed) {
			s.log.ErrorContext(ctx, "respond to invitation failed", logger.Error(err))
		}
		return errorResponse(err)
	}

	if accept {
		return handler.Redirect("/groups")
	}
	return handler.TemplMulti(
		handler.Patch(views.InvitationList(s.listParams(ctx)), handler.WithTarget(views.TargetInvitations)),
		handler.Patch(views.Toast("Invitation declined", "success"),
			handler.WithTarget(views.TargetToastContainer), handler.WithPatchMode(handler.PatchPrepend)),
	)
}

func errorResponse(err error) handler.Response {
	switch {
	case errors.Is(err, group.ErrNotFound), errors.Is(err, group.ErrNotMember):
		err = errors.Join(handler.ErrNotFound, err)
	case errors.Is(err, group.ErrForbidden):
		err = errors.Join(handler.ErrForbidden, err)
	case errors.Is(err, group.ErrInvitationClosed):
		err = errors.Join(handler.NewHTTPError(http.StatusConflict, "This invitation has already been answered"), err)
	}
	return handler.Error(err)
}
