// Package profile serves the profile page: display name, weight unit and
// avatar upload.
package profile

import (
	"context"
	"errors"
	"log/slog"
	"mime/multipart"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/dmitrymomot/fittrack/handler"
	"github.com/dmitrymomot/fittrack/pkg/binder"
	"github.com/dmitrymomot/fittrack/pkg/file"
	"github.com/dmitrymomot/fittrack/pkg/logger"
	"github.com/dmitrymomot/fittrack/pkg/validator"
	"github.com/dmitrymomot/fittrack/svc/auth"
	"github.com/dmitrymomot/fittrack/svc/profile"
	"github.com/dmitrymomot/fittrack/svc/units"
	"github.com/dmitrymomot/fittrack/views"
)

type Profiles interface {
	Get(ctx context.Context, userID string) (profile.Profile, error)
	Update(ctx context.Context, userID, name string, unit units.Unit) (profile.Profile, error)
	UploadAvatar(ctx context.Context, userID string, fh *multipart.FileHeader) (profile.Profile, error)
}

type Service struct {
	profiles     Profiles
	log          *slog.Logger
	errorHandler handler.ErrorHandler[handler.Context]
}

func NewService(profiles Profiles, errorHandler handler.ErrorHandler[handler.Context], log *slog.Logger) *Service {
	return &Service{
		profiles:     profiles,
		errorHandler: errorHandler,
		log:          logger.OrDefault(log).With(logger.Component("profile")),
	}
}

// Handle returns the router mounted at /profile behind the Protected guard.
func (s *Service) Handle() http.Handler {
	r := chi.NewRouter()

	r.Get("/", handler.Wrap(s.show,
		handler.WithErrorHandler[handler.Context, struct{}](s.errorHandler),
	))
	r.Post("/", handler.Wrap(s.update,
		handler.WithBinders[handler.Context, UpdateRequest](binder.Form()),
		handler.WithErrorHandler[handler.Context, UpdateRequest](s.errorHandler),
	))
	r.Post("/avatar", handler.Wrap(s.avatar,
		handler.WithBinders[handler.Context, AvatarRequest](binder.Form()),
		handler.WithErrorHandler[handler.Context, AvatarRequest](s.errorHandler),
	))

	return r
}

// load reads the profile row. A missing row falls back to what the session
// knows so the page still renders.
func (s *Service) load(ctx handler.Context) (views.ProfileParams, error) {
	sess := auth.CurrentSession(ctx)
	p, err := s.profiles.Get(ctx, sess.UserID)
	switch {
	case err == nil:
	case errors.Is(err, profile.ErrNotFound):
		s.log.WarnContext(ctx, "profile row missing", logger.UserID(sess.UserID))
		p = profile.Profile{
			ID:                sess.UserID,
			Email:             sess.Email,
			Name:              sess.DisplayName,
			ProfilePictureURL: sess.AvatarURL,
			WeightUnit:        sess.WeightUnit,
		}
	default:
		return views.ProfileParams{}, err
	}

	return views.ProfileParams{
		Layout:  views.NewLayout("Profile", "profile", sess),
		Profile: p,
		Name:    p.Name,
		Unit:    units.OrDefault(p.WeightUnit),
	}, nil
}

func (s *Service) show(ctx handler.Context, _ struct{}) handler.Response {
	p, err := s.load(ctx)
	if err != nil {
		s.log.ErrorContext(ctx, "load profile failed", logger.Error(err))
		return handler.Error(err)
	}
	return handler.Templ(views.ProfilePage(p))
}

type UpdateRequest struct {
	Name       string `form:"name"`
	WeightUnit string `form:"weight_unit"`
}

func (s *Service) update(ctx handler.Context, req UpdateRequest) handler.Response {
	sess := auth.CurrentSession(ctx)
	p := views.ProfileParams{
		Layout: views.NewLayout("Profile", "profile", sess),
		Name:   req.Name,
		Unit:   units.Unit(req.WeightUnit),
	}

	updated, err := s.profiles.Update(ctx, sess.UserID, req.Name, units.Unit(req.WeightUnit))
	switch {
	case err == nil:
		if !handler.IsDataStar(ctx.Request()) {
			return handler.Redirect("/profile")
		}
		p.Profile = updated
		p.Name = updated.Name
		p.Unit = updated.WeightUnit
		p.Success = "Profile updated"
	case validator.IsValidationError(err):
		p.Errors = validator.ExtractValidationErrors(err)
	case errors.Is(err, profile.ErrNotFound):
		return handler.Error(errors.Join(handler.ErrNotFound, err))
	default:
		s.log.ErrorContext(ctx, "update profile failed", logger.UserID(sess.UserID), logger.Error(err))
		p.Error = "Failed to save profile"
	}

	if !handler.IsDataStar(ctx.Request()) {
		if cur, err := s.profiles.Get(ctx, sess.UserID); err == nil {
			p.Profile = cur
		}
	}
	return handler.TemplPartial(views.ProfileForm(p), views.ProfilePage(p),
		handler.WithTarget(views.TargetProfileForm))
}

type AvatarRequest struct {
	Avatar *multipart.FileHeader `file:"avatar"`
}

func (s *Service) avatar(ctx handler.Context, req AvatarRequest) handler.Response {
	sess := auth.CurrentSession(ctx)
	_, err := s.profiles.UploadAvatar(ctx, sess.UserID, req.Avatar)
	if err == nil {
		return handler.Redirect("/profile")
	}

	p, loadErr := s.load(ctx)
	if loadErr != nil {
		return handler.Error(loadErr)
	}
	msg, ok := avatarMessage(err)
	if !ok {
		s.log.ErrorContext(ctx, "avatar upload failed", logger.UserID(sess.UserID), logger.Error(err))
	}
	p.AvatarError = msg
	return handler.Templ(views.ProfilePage(p))
}

// avatarMessage reports whether err is a rejection the user can act on.
func avatarMessage(err error) (string, bool) {
	switch {
	case errors.Is(err, file.ErrNilFileHeader):
		return "Choose a picture to upload", true
	case errors.Is(err, file.ErrFileTooLarge):
		return "The picture must be 5 MB or smaller", true
	case errors.Is(err, file.ErrMIMETypeNotAllowed):
		return "Upload a JPEG, PNG, GIF or WebP image", true
	case errors.Is(err, file.ErrInvalidConfig):
		return "Picture uploads are not available", true
	default:
		return "Failed to upload picture", false
	}
}
