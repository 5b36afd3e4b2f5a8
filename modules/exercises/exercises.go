// Package exercises serves the exercise history: the searchable list, the
// log and edit forms, and deletion.
package exercises

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/dmitrymomot/fittrack/handler"
	"github.com/dmitrymomot/fittrack/pkg/binder"
	"github.com/dmitrymomot/fittrack/pkg/logger"
	"github.com/dmitrymomot/fittrack/pkg/validator"
	"github.com/dmitrymomot/fittrack/svc/auth"
	"github.com/dmitrymomot/fittrack/svc/exercise"
	"github.com/dmitrymomot/fittrack/svc/units"
	"github.com/dmitrymomot/fittrack/views"
)

// Exercises is the exercise service as the handlers use it.
type Exercises interface {
	Store() *exercise.Store
	Load(ctx context.Context, userID string) error
	Get(ctx context.Context, userID, id string) (exercise.Exercise, error)
	Create(ctx context.Context, userID string, in exercise.Input) (exercise.Exercise, error)
	Update(ctx context.Context, userID, id string, in exercise.Input) (exercise.Exercise, error)
	Delete(ctx context.Context, userID, id string) error
}

type Service struct {
	exercises    Exercises
	log          *slog.Logger
	now          func() time.Time
	errorHandler handler.ErrorHandler[handler.Context]
}

func NewService(exercises Exercises, errorHandler handler.ErrorHandler[handler.Context], log *slog.Logger) *Service {
	return &Service{
		exercises:    exercises,
		errorHandler: errorHandler,
		now:          time.Now,
		log:          logger.OrDefault(log).With(logger.Component("exercises")),
	}
}

// Handle returns the router mounted at /exercises behind the Protected guard.
func (s *Service) Handle() http.Handler {
	r := chi.NewRouter()

	r.Get("/", handler.Wrap(s.list,
		handler.WithBinders[handler.Context, ListRequest](binder.Query(), binder.Signals()),
		handler.WithErrorHandler[handler.Context, ListRequest](s.errorHandler),
	))
	r.Get("/new", handler.Wrap(s.newForm,
		handler.WithErrorHandler[handler.Context, struct{}](s.errorHandler),
	))
	r.Post("/", handler.Wrap(s.create,
		handler.WithBinders[handler.Context, FormRequest](binder.Form()),
		handler.WithErrorHandler[handler.Context, FormRequest](s.errorHandler),
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
		handler.WithBinders[handler.Context, ListRequest](binder.Path(), binder.Signals()),
		handler.WithErrorHandler[handler.Context, ListRequest](s.errorHandler),
	))

	return r
}

type ListRequest struct {
	exercise.Query
	ID     string              `path:"id" json:"-"`
	Toggle exercise.SortColumn `query:"toggle" json:"-"`
}

type IDRequest struct {
	ID string `path:"id"`
}

func (s *Service) listParams(ctx handler.Context, q exercise.Query) views.ExercisesParams {
	store := s.exercises.Store()
	p := views.ExercisesParams{
		Layout:    views.NewLayout("Exercises", "exercises", auth.CurrentSession(ctx)),
		Query:     q,
		Exercises: q.Apply(store.Visible()),
		Total:     store.Len(),
	}
	if store.Err() != nil {
		p.Error = "Failed to load exercises"
	}
	return p
}

func (s *Service) list(ctx handler.Context, req ListRequest) handler.Response {
	q := req.Query.Normalize()
	if req.Toggle != "" {
		q = q.ToggleSort(req.Toggle).Normalize()
	}

	if !handler.IsDataStar(ctx.Request()) {
		// Full page loads refresh the store; signal updates filter what is there.
		_ = s.exercises.Load(ctx, auth.CurrentSession(ctx).UserID)
		return handler.Templ(views.ExercisesPage(s.listParams(ctx, q)))
	}

	p := s.listParams(ctx, q)
	return handler.SSE(func(sc handler.StreamContext) error {
		if req.Toggle != "" {
			if err := sc.SendSignals(map[string]any{"sort_by": q.SortBy, "order": q.Order}); err != nil {
				return err
			}
		}
		return sc.SendComponent(views.ExerciseTable(p), handler.WithTarget(views.TargetExerciseTable))
	})
}

func (s *Service) newForm(ctx handler.Context, _ struct{}) handler.Response {
	sess := auth.CurrentSession(ctx)
	return handler.Templ(views.ExerciseFormPage(views.ExerciseFormParams{
		Layout: views.NewLayout("Log Exercise", "exercises", sess),
		Values: views.ExerciseValues{
			Date:       s.now().Format(time.DateOnly),
			Type:       string(exercise.TypeMachine),
			WeightUnit: string(units.OrDefault(sess.WeightUnit)),
			Sets:       "3",
		},
	}))
}

func (s *Service) editForm(ctx handler.Context, req IDRequest) handler.Response {
	sess := auth.CurrentSession(ctx)
	e, err := s.exercises.Get(ctx, sess.UserID, req.ID)
	if err != nil {
		return errorResponse(err)
	}
	return handler.Templ(views.ExerciseFormPage(views.ExerciseFormParams{
		Layout: views.NewLayout("Edit Exercise", "exercises", sess),
		ID:     e.ID,
		Values: valuesOf(e),
	}))
}

// FormRequest is the log and edit form as submitted.
type FormRequest struct {
	ID         string `path:"id"`
	Date       string `form:"date"`
	Name       string `form:"exercise_name"`
	Type       string `form:"type"`
	Weight     string `form:"weight"`
	WeightUnit string `form:"weight_unit"`
	Sets       string `form:"sets"`
	Reps       string `form:"reps"`
	Notes      string `form:"notes"`
}

func (s *Service) create(ctx handler.Context, req FormRequest) handler.Response {
	req.ID = ""
	return s.save(ctx, req, func(userID string, in exercise.Input) (exercise.Exercise, error) {
		return s.exercises.Create(ctx, userID, in)
	})
}

func (s *Service) update(ctx handler.Context, req FormRequest) handler.Response {
	return s.save(ctx, req, func(userID string, in exercise.Input) (exercise.Exercise, error) {
		return s.exercises.Update(ctx, userID, req.ID, in)
	})
}

func (s *Service) save(ctx handler.Context, req FormRequest, persist func(string, exercise.Input) (exercise.Exercise, error)) handler.Response {
	sess := auth.CurrentSession(ctx)
	title := "Log Exercise"
	if req.ID != "" {
		title = "Edit Exercise"
	}
	p := views.ExerciseFormParams{
		Layout: views.NewLayout(title, "exercises", sess),
		ID:     req.ID,
		Values: req.values(),
	}
	form := func() handler.Response {
		return handler.TemplPartial(views.ExerciseForm(p), views.ExerciseFormPage(p),
			handler.WithTarget(views.TargetExerciseForm))
	}

	in, errs := req.input()
	if len(errs) > 0 {
		p.Errors = errs
		return form()
	}

	if _, err := persist(sess.UserID, in); err != nil {
		switch {
		case validator.IsValidationError(err):
			p.Errors = validator.ExtractValidationErrors(err)
		case errors.Is(err, exercise.ErrNotFound):
			return errorResponse(err)
		default:
			p.Error = "Failed to save exercise"
		}
		return form()
	}
	return handler.Redirect("/exercises")
}

func (s *Service) delete(ctx handler.Context, req ListRequest) handler.Response {
	sess := auth.CurrentSession(ctx)
	if err := s.exercises.Delete(ctx, sess.UserID, req.ID); err != nil {
		if errors.Is(err, exercise.ErrNotFound) {
			return errorResponse(err)
		}
		s.log.ErrorContext(ctx, "delete exercise failed", logger.ExerciseID(req.ID), logger.Error(err))
		return handler.Templ(views.Toast("Failed to delete exercise", "error"),
			handler.WithTarget(views.TargetToastContainer), handler.WithPatchMode(handler.PatchPrepend))
	}

	p := s.listParams(ctx, req.Query.Normalize())
	return handler.TemplMulti(
		handler.Patch(views.ExerciseTable(p), handler.WithTarget(views.TargetExerciseTable)),
		handler.Patch(views.Toast("Exercise deleted", "success"),
			handler.WithTarget(views.TargetToastContainer), handler.WithPatchMode(handler.PatchPrepend)),
	)
}

func errorResponse(err error) handler.Response {
	if errors.Is(err, exercise.ErrNotFound) {
		err = errors.Join(handler.ErrNotFound, err)
	}
	return handler.Error(err)
}

func (req FormRequest) values() views.ExerciseValues {
	return views.ExerciseValues{
		Date:       req.Date,
		Name:       req.Name,
		Type:       req.Type,
		Weight:     req.Weight,
		WeightUnit: req.WeightUnit,
		Sets:       req.Sets,
		Reps:       req.Reps,
		Notes:      req.Notes,
	}
}

// input parses the typed values. Values that do not parse are reported as
// field errors; range checks are left to exercise.Validate.
func (req FormRequest) input() (exercise.Input, validator.ValidationErrors) {
	var errs validator.ValidationErrors
	fail := func(field, msg string) {
		errs = append(errs, validator.ValidationError{Field: field, Message: msg, TranslationKey: "validation.format"})
	}

	in := exercise.Input{
		Name:  req.Name,
		Type:  exercise.Type(strings.TrimSpace(req.Type)),
		Notes: req.Notes,
	}

	if d, err := time.Parse(time.DateOnly, strings.TrimSpace(req.Date)); err == nil {
		in.Date = d
	} else {
		fail("date", "Enter a valid date")
	}

	if w, err := strconv.ParseFloat(strings.TrimSpace(req.Weight), 64); err == nil {
		in.Weight = w
	} else {
		fail("weight", "Enter a number")
	}

	if u, err := units.Parse(req.WeightUnit); err == nil {
		in.WeightUnit = u
	} else {
		in.WeightUnit = units.Unit(req.WeightUnit)
	}

	if n, err := strconv.Atoi(strings.TrimSpace(req.Sets)); err == nil {
		in.Sets = n
	} else {
		fail("sets", "Enter a whole number")
	}

	reps, err := parseReps(req.Reps)
	if err != nil {
		fail("reps", "Enter reps as numbers separated by commas")
	}
	in.Reps = reps

	return in, errs
}

// parseReps reads "10, 8, 6" or "10 8 6".
func parseReps(s string) ([]int, error) {
	fields := strings.FieldsFunc(s, func(r rune) bool { return r == ',' || r == ' ' || r == ';' })
	out := make([]int, 0, len(fields))
	for _, f := range fields {
		n, err := strconv.Atoi(f)
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, nil
}

func valuesOf(e exercise.Exercise) views.ExerciseValues {
	reps := make([]string, len(e.Reps))
	for i, r := range e.Reps {
		reps[i] = strconv.Itoa(r)
	}
	return views.ExerciseValues{
		Date:       e.Date.Format(time.DateOnly),
		Name:       e.Name,
		Type:       string(e.Type),
		Weight:     strconv.FormatFloat(e.Weight, 'f', -1, 64),
		WeightUnit: string(e.WeightUnit),
		Sets:       strconv.Itoa(e.Sets),
		Reps:       strings.Join(reps, ", "),
		Notes:      e.Notes,
	}
}
