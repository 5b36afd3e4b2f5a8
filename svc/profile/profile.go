// Package profile manages the users table row that extends an identity:
// display name, avatar and preferred weight unit.
package profile

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"mime/multipart"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/fittrack/pkg/file"
	"github.com/dmitrymomot/fittrack/pkg/logger"
	"github.com/dmitrymomot/fittrack/pkg/validator"
	"github.com/dmitrymomot/fittrack/svc/auth"
	"github.com/dmitrymomot/fittrack/svc/units"
)

// MaxAvatarSize is the largest accepted avatar upload.
const MaxAvatarSize = 5 << 20

var (
	ErrNotFound      = errors.New("profile.not_found")
	ErrAlreadyExists = errors.New("profile.already_exists")
)

type Profile struct {
	ID                string
	Email             string
	Name              string
	ProfilePictureURL string
	WeightUnit        units.Unit
	CreatedAt         time.Time
}

// Storage is the users table.
type Storage interface {
	Create(ctx context.Context, p Profile) (Profile, error)
	GetByID(ctx context.Context, id string) (Profile, error)
	Update(ctx context.Context, id, name string, unit units.Unit) (Profile, error)
	SetPicture(ctx context.Context, id, url string) (Profile, error)
}

// SessionUpdater republishes profile fields into the live session.
// *auth.SessionStore implements it.
type SessionUpdater interface {
	Update(userID string, fn func(*auth.Session)) bool
}

type Service struct {
	storage  Storage
	sessions SessionUpdater
	files    file.Storage
	log      *slog.Logger
}

type ServiceOption func(*Service)

func WithLogger(l *slog.Logger) ServiceOption {
	return func(s *Service) { s.log = logger.OrDefault(l) }
}

// WithFileStorage enables avatar uploads.
func WithFileStorage(fs file.Storage) ServiceOption {
	return func(s *Service) { s.files = fs }
}

func NewService(storage Storage, sessions SessionUpdater, opts ...ServiceOption) *Service {
	s := &Service{storage: storage, sessions: sessions, log: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	s.log = s.log.With(logger.Component("profile"))
	return s
}

// CreateForSignUp inserts the row for a freshly registered identity with
// the default weight unit.
func (s *Service) CreateForSignUp(ctx context.Context, userID, email, name string) (Profile, error) {
	p, err := s.storage.Create(ctx, Profile{
		ID:         userID,
		Email:      strings.TrimSpace(email),
		Name:       strings.TrimSpace(name),
		WeightUnit: units.Default,
	})
	if err != nil {
		return Profile{}, err
	}
	s.log.InfoContext(ctx, "profile created", logger.UserID(userID))
	return p, nil
}

// Sync reads the stored row and publishes its name, avatar and unit into
// the session. Used right after an explicit sign-in.
func (s *Service) Sync(ctx context.Context, userID string) (Profile, error) {
	p, err := s.storage.GetByID(ctx, userID)
	if err != nil {
		return Profile{}, err
	}
	s.republish(p)
	return p, nil
}

func (s *Service) Get(ctx context.Context, userID string) (Profile, error) {
	return s.storage.GetByID(ctx, userID)
}

func Validate(name string, unit units.Unit) error {
	return validator.Apply(
		validator.Required("name", name),
		validator.MaxLen("name", name, 100),
		validator.OneOf("weight_unit", unit, units.All()...),
	)
}

func (s *Service) Update(ctx context.Context, userID, name string, unit units.Unit) (Profile, error) {
	name = strings.TrimSpace(name)
	if err := Validate(name, unit); err != nil {
		return Profile{}, err
	}
	p, err := s.storage.Update(ctx, userID, name, unit)
	if err != nil {
		return Profile{}, err
	}
	s.republish(p)
	return p, nil
}

// UploadAvatar stores an image of at most MaxAvatarSize and saves its URL
// on the profile.
func (s *Service) UploadAvatar(ctx context.Context, userID string, fh *multipart.FileHeader) (Profile, error) {
	if s.files == nil {
		return Profile{}, fmt.Errorf("%w: avatar storage is not configured", file.ErrInvalidConfig)
	}
	mimeType, ext, err := file.ValidateImage(fh, MaxAvatarSize)
	if err != nil {
		return Profile{}, err
	}

	f, err := fh.Open()
	if err != nil {
		return Profile{}, errors.Join(file.ErrFailedToOpenFile, err)
	}
	defer func() { _ = f.Close() }()

	key := fmt.Sprintf("avatars/%s/%s%s", userID, uuid.NewString(), ext)
	obj, err := s.files.Put(ctx, key, f, fh.Size, mimeType)
	if err != nil {
		s.log.ErrorContext(ctx, "store avatar", logger.UserID(userID), logger.Error(err))
		return Profile{}, err
	}

	p, err := s.storage.SetPicture(ctx, userID, obj.URL)
	if err != nil {
		if delErr := s.files.Delete(ctx, obj.Key); delErr != nil {
			s.log.WarnContext(ctx, "remove orphaned avatar", logger.Error(delErr))
		}
		return Profile{}, err
	}
	s.republish(p)
	return p, nil
}

func (s *Service) republish(p Profile) {
	s.sessions.Update(p.ID, func(sess *auth.Session) {
		if p.Name != "" {
			sess.DisplayName = p.Name
		}
		if p.ProfilePictureURL != "" {
			sess.AvatarURL = p.ProfilePictureURL
		}
		sess.WeightUnit = units.OrDefault(p.WeightUnit)
	})
}
