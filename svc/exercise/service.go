package exercise

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/dmitrymomot/fittrack/pkg/logger"
	"github.com/dmitrymomot/fittrack/svc/units"
)

// Storage is the exercises table. Update and Delete match on both id and
// user id and return ErrNotFound when no row matched.
type Storage interface {
	ListByUser(ctx context.Context, userID string) ([]Exercise, error)
	GetByID(ctx context.Context, userID, id string) (Exercise, error)
	Insert(ctx context.Context, e Exercise) (Exercise, error)
	Update(ctx context.Context, e Exercise) (Exercise, error)
	Delete(ctx context.Context, userID, id string) error
}

// Service writes to storage first and mirrors successful writes into the
// store. A failed storage call sets the store's error flag.
type Service struct {
	storage Storage
	store   *Store
	log     *slog.Logger
	now     func() time.Time
}

type ServiceOption func(*Service)

func WithLogger(l *slog.Logger) ServiceOption {
	return func(s *Service) { s.log = logger.OrDefault(l) }
}

func WithClock(now func() time.Time) ServiceOption {
	return func(s *Service) { s.now = now }
}

func NewService(storage Storage, store *Store, opts ...ServiceOption) *Service {
	s := &Service{
		storage: storage,
		store:   store,
		log:     slog.Default(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.log = s.log.With(logger.Component("exercise"))
	return s
}

func (s *Service) Store() *Store { return s.store }

// Load replaces the store contents with the user's exercises.
func (s *Service) Load(ctx context.Context, userID string) error {
	if userID == "" {
		return ErrNoUser
	}
	s.store.SetLoading(true)
	list, err := s.storage.ListByUser(ctx, userID)
	if err != nil {
		s.store.SetError(err)
		s.log.ErrorContext(ctx, "load exercises", logger.UserID(userID), logger.Error(err))
		return err
	}
	s.store.Load(list)
	return nil
}

// Get returns one exercise, from the store when present.
func (s *Service) Get(ctx context.Context, userID, id string) (Exercise, error) {
	if e, ok := s.store.Get(id); ok && e.UserID == userID {
		return e, nil
	}
	return s.storage.GetByID(ctx, userID, id)
}

func (s *Service) Create(ctx context.Context, userID string, in Input) (Exercise, error) {
	if userID == "" {
		return Exercise{}, ErrNoUser
	}
	in = in.normalize()
	if err := Validate(in); err != nil {
		return Exercise{}, err
	}

	e := Exercise{UserID: userID, CreatedAt: s.now()}
	in.apply(&e)

	created, err := s.storage.Insert(ctx, e)
	if err != nil {
		s.store.SetError(err)
		s.log.ErrorContext(ctx, "create exercise", logger.UserID(userID), logger.Error(err))
		return Exercise{}, err
	}
	s.store.Prepend(created)
	s.log.InfoContext(ctx, "exercise logged", logger.UserID(userID), logger.ExerciseID(created.ID))
	return created, nil
}

func (s *Service) Update(ctx context.Context, userID, id string, in Input) (Exercise, error) {
	in = in.normalize()
	if err := Validate(in); err != nil {
		return Exercise{}, err
	}

	current, err := s.Get(ctx, userID, id)
	if err != nil {
		return Exercise{}, err
	}
	in.apply(&current)

	updated, err := s.storage.Update(ctx, current)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			s.store.SetError(err)
			s.log.ErrorContext(ctx, "update exercise", logger.ExerciseID(id), logger.Error(err))
		}
		return Exercise{}, err
	}
	if !s.store.Replace(updated) {
		s.log.DebugContext(ctx, "updated exercise not in store", logger.ExerciseID(id))
	}
	return updated, nil
}

func (s *Service) Delete(ctx context.Context, userID, id string) error {
	if err := s.storage.Delete(ctx, userID, id); err != nil {
		if !errors.Is(err, ErrNotFound) {
			s.store.SetError(err)
			s.log.ErrorContext(ctx, "delete exercise", logger.ExerciseID(id), logger.Error(err))
		}
		return err
	}
	s.store.Remove(id)
	return nil
}

// Stats computes dashboard numbers over the loaded exercises.
func (s *Service) Stats(unit units.Unit) Stats {
	return ComputeStats(s.store.Items(), s.now(), unit)
}
