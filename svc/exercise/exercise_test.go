package exercise_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/fittrack/pkg/logger"
	"github.com/dmitrymomot/fittrack/pkg/validator"
	"github.com/dmitrymomot/fittrack/svc/exercise"
	"github.com/dmitrymomot/fittrack/svc/units"
)

func day(s string) time.Time {
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		panic(err)
	}
	return t
}

func names(list []exercise.Exercise) []string {
	out := make([]string, 0, len(list))
	for _, e := range list {
		out = append(out, e.Name)
	}
	return out
}

func sample() []exercise.Exercise {
	return []exercise.Exercise{
		{ID: "1", Name: "Bench Press", Type: exercise.TypeFree, Weight: 80, Date: day("2025-03-02")},
		{ID: "2", Name: "leg press", Type: exercise.TypeMachine, Weight: 150, Date: day("2025-03-05")},
		{ID: "3", Name: "Écarté", Type: exercise.TypeMachine, Weight: 30, Date: day("2025-03-01")},
		{ID: "4", Name: "Deadlift", Type: exercise.TypeFree, Weight: 150, Date: day("2025-03-03")},
	}
}

func TestQuery_Apply(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		query exercise.Query
		want  []string
	}{
		{"default is date desc", exercise.DefaultQuery(), []string{"leg press", "Deadlift", "Bench Press", "Écarté"}},
		{"search is case insensitive", exercise.Query{Search: "PRESS"}, []string{"leg press", "Bench Press"}},
		{"type filter", exercise.Query{Type: exercise.TypeMachine, SortBy: exercise.SortByDate, Order: exercise.OrderAsc}, []string{"Écarté", "leg press"}},
		{"name asc is locale aware", exercise.Query{SortBy: exercise.SortByName, Order: exercise.OrderAsc}, []string{"Bench Press", "Deadlift", "Écarté", "leg press"}},
		{"weight desc keeps tie order", exercise.Query{SortBy: exercise.SortByWeight, Order: exercise.OrderDesc}, []string{"leg press", "Deadlift", "Bench Press", "Écarté"}},
		{"unknown values fall back", exercise.Query{Type: "cardio", SortBy: "color", Order: "up"}, []string{"leg press", "Deadlift", "Bench Press", "Écarté"}},
		{"no match", exercise.Query{Search: "squat"}, []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			in := sample()
			got := tt.query.Apply(in)
			assert.Equal(t, tt.want, names(got))
			assert.Equal(t, sample(), in, "input must not be reordered")
		})
	}
}

func TestQuery_ToggleSort(t *testing.T) {
	t.Parallel()

	q := exercise.DefaultQuery()
	q = q.ToggleSort(exercise.SortByDate)
	assert.Equal(t, exercise.OrderAsc, q.Order)
	assert.Equal(t, "↑", q.Indicator(exercise.SortByDate))

	q = q.ToggleSort(exercise.SortByWeight)
	assert.Equal(t, exercise.SortByWeight, q.SortBy)
	assert.Equal(t, exercise.OrderDesc, q.Order)
	assert.Equal(t, "↓", q.Indicator(exercise.SortByWeight))
	assert.Empty(t, q.Indicator(exercise.SortByDate))
}

func TestComputeStats(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 3, 10, 18, 30, 0, 0, time.UTC)

	t.Run("empty", func(t *testing.T) {
		t.Parallel()
		st := exercise.ComputeStats(nil, now, units.Kilograms)
		assert.Zero(t, st.WorkoutsThisMonth)
		assert.Zero(t, st.TotalWeight)
		assert.Empty(t, st.Recent)
		assert.Zero(t, st.StreakDays)
	})

	t.Run("totals convert units", func(t *testing.T) {
		t.Parallel()
		list := []exercise.Exercise{
			{ID: "1", Date: day("2025-03-10"), Weight: 100, Sets: 3, WeightUnit: units.Kilograms},
			{ID: "2", Date: day("2025-02-27"), Weight: 100, Sets: 2, WeightUnit: units.Pounds},
		}
		st := exercise.ComputeStats(list, now, units.Kilograms)
		assert.Equal(t, 1, st.WorkoutsThisMonth)
		assert.InDelta(t, 300+200/2.20462, st.TotalWeight, 0.01)
		assert.Equal(t, units.Kilograms, st.Unit)

		st = exercise.ComputeStats(list, now, units.Pounds)
		assert.InDelta(t, 300*2.20462+200, st.TotalWeight, 0.01)
	})

	t.Run("recent five newest first", func(t *testing.T) {
		t.Parallel()
		var list []exercise.Exercise
		for i := 1; i <= 7; i++ {
			list = append(list, exercise.Exercise{ID: string(rune('0' + i)), Name: string(rune('a' + i)), Date: day("2025-03-01").AddDate(0, 0, i)})
		}
		st := exercise.ComputeStats(list, now, units.Kilograms)
		require.Len(t, st.Recent, 5)
		assert.Equal(t, "h", st.Recent[0].Name)
		assert.Equal(t, "d", st.Recent[4].Name)
	})

	t.Run("streak", func(t *testing.T) {
		t.Parallel()
		mk := func(dates ...string) []exercise.Exercise {
			var out []exercise.Exercise
			for i, d := range dates {
				out = append(out, exercise.Exercise{ID: string(rune('a' + i)), Date: day(d)})
			}
			return out
		}

		assert.Equal(t, 3, exercise.ComputeStats(mk("2025-03-10", "2025-03-09", "2025-03-08", "2025-03-06"), now, "").StreakDays)
		assert.Equal(t, 2, exercise.ComputeStats(mk("2025-03-09", "2025-03-08", "2025-03-09"), now, "").StreakDays, "ends yesterday")
		assert.Equal(t, 0, exercise.ComputeStats(mk("2025-03-08", "2025-03-07"), now, "").StreakDays, "gap of two days")
	})
}

func validInput() exercise.Input {
	return exercise.Input{
		Date:       day("2025-03-10"),
		Name:       "Squat",
		Type:       exercise.TypeFree,
		Weight:     100,
		WeightUnit: units.Kilograms,
		Sets:       3,
		Reps:       []int{5, 5, 5},
	}
}

func TestValidate(t *testing.T) {
	t.Parallel()

	require.NoError(t, exercise.Validate(validInput()))

	tests := []struct {
		name   string
		mutate func(*exercise.Input)
		field  string
	}{
		{"name required", func(in *exercise.Input) { in.Name = " " }, "exercise_name"},
		{"name too long", func(in *exercise.Input) { in.Name = string(make([]rune, 101)) }, "exercise_name"},
		{"type", func(in *exercise.Input) { in.Type = "cardio" }, "type"},
		{"negative weight", func(in *exercise.Input) { in.Weight = -1 }, "weight"},
		{"unit", func(in *exercise.Input) { in.WeightUnit = "stone" }, "weight_unit"},
		{"zero sets", func(in *exercise.Input) { in.Sets = 0; in.Reps = nil }, "sets"},
		{"too many sets", func(in *exercise.Input) { in.Sets = 51; in.Reps = make([]int, 51) }, "sets"},
		{"reps count", func(in *exercise.Input) { in.Reps = []int{5, 5} }, "reps"},
		{"negative reps", func(in *exercise.Input) { in.Reps = []int{5, -1, 5} }, "reps"},
		{"date", func(in *exercise.Input) { in.Date = time.Time{} }, "date"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			in := validInput()
			tt.mutate(&in)
			errs := validator.ExtractValidationErrors(exercise.Validate(in))
			require.NotNil(t, errs)
			assert.True(t, errs.Has(tt.field), "fields: %v", errs.Fields())
		})
	}
}

type MockStorage struct {
	mock.Mock
}

func (m *MockStorage) ListByUser(ctx context.Context, userID string) ([]exercise.Exercise, error) {
	args := m.Called(ctx, userID)
	list, _ := args.Get(0).([]exercise.Exercise)
	return list, args.Error(1)
}

func (m *MockStorage) GetByID(ctx context.Context, userID, id string) (exercise.Exercise, error) {
	args := m.Called(ctx, userID, id)
	return args.Get(0).(exercise.Exercise), args.Error(1)
}

func (m *MockStorage) Insert(ctx context.Context, e exercise.Exercise) (exercise.Exercise, error) {
	args := m.Called(ctx, e)
	return args.Get(0).(exercise.Exercise), args.Error(1)
}

func (m *MockStorage) Update(ctx context.Context, e exercise.Exercise) (exercise.Exercise, error) {
	args := m.Called(ctx, e)
	return args.Get(0).(exercise.Exercise), args.Error(1)
}

func (m *MockStorage) Delete(ctx context.Context, userID, id string) error {
	args := m.Called(ctx, userID, id)
	return args.Error(0)
}

func newService(storage exercise.Storage) *exercise.Service {
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	return exercise.NewService(storage, exercise.NewStore(),
		exercise.WithLogger(logger.Discard()),
		exercise.WithClock(func() time.Time { return now }))
}

func TestService(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("load", func(t *testing.T) {
		t.Parallel()
		storage := &MockStorage{}
		storage.On("ListByUser", ctx, "u1").Return(sample(), nil).Once()

		svc := newService(storage)
		require.NoError(t, svc.Load(ctx, "u1"))
		assert.Equal(t, 4, svc.Store().Len())
		assert.False(t, svc.Store().Loading())
		storage.AssertExpectations(t)
	})

	t.Run("load failure sets store error", func(t *testing.T) {
		t.Parallel()
		storage := &MockStorage{}
		boom := errors.New("db down")
		storage.On("ListByUser", ctx, "u1").Return(nil, boom)

		svc := newService(storage)
		assert.ErrorIs(t, svc.Load(ctx, "u1"), boom)
		assert.ErrorIs(t, svc.Store().Err(), boom)
		assert.False(t, svc.Store().Loading())
	})

	t.Run("create prepends", func(t *testing.T) {
		t.Parallel()
		storage := &MockStorage{}
		storage.On("ListByUser", ctx, "u1").Return(sample(), nil)
		storage.On("Insert", ctx, mock.MatchedBy(func(e exercise.Exercise) bool {
			return e.UserID == "u1" && e.Name == "Squat" && e.Sets == 3
		})).Return(exercise.Exercise{ID: "new", UserID: "u1", Name: "Squat"}, nil)

		svc := newService(storage)
		require.NoError(t, svc.Load(ctx, "u1"))

		in := validInput()
		in.Name = "  Squat "
		created, err := svc.Create(ctx, "u1", in)
		require.NoError(t, err)
		assert.Equal(t, "new", created.ID)
		assert.Equal(t, "new", svc.Store().Items()[0].ID)
	})

	t.Run("create rejects invalid input before storage", func(t *testing.T) {
		t.Parallel()
		storage := &MockStorage{}
		svc := newService(storage)

		in := validInput()
		in.Sets = 0
		_, err := svc.Create(ctx, "u1", in)
		assert.True(t, validator.IsValidationError(err))
		storage.AssertNotCalled(t, "Insert", mock.Anything, mock.Anything)
	})

	t.Run("update replaces in place", func(t *testing.T) {
		t.Parallel()
		storage := &MockStorage{}
		list := sample()
		for i := range list {
			list[i].UserID = "u1"
		}
		storage.On("ListByUser", ctx, "u1").Return(list, nil)
		storage.On("Update", ctx, mock.MatchedBy(func(e exercise.Exercise) bool { return e.ID == "2" })).
			Return(exercise.Exercise{ID: "2", UserID: "u1", Name: "Squat"}, nil)

		svc := newService(storage)
		require.NoError(t, svc.Load(ctx, "u1"))

		_, err := svc.Update(ctx, "u1", "2", validInput())
		require.NoError(t, err)
		got, ok := svc.Store().Get("2")
		require.True(t, ok)
		assert.Equal(t, "Squat", got.Name)
		assert.Equal(t, "2", svc.Store().Items()[1].ID)
	})

	t.Run("update of unknown exercise", func(t *testing.T) {
		t.Parallel()
		storage := &MockStorage{}
		storage.On("GetByID", ctx, "u1", "zz").Return(exercise.Exercise{}, exercise.ErrNotFound)

		svc := newService(storage)
		_, err := svc.Update(ctx, "u1", "zz", validInput())
		assert.ErrorIs(t, err, exercise.ErrNotFound)
		assert.NoError(t, svc.Store().Err())
	})

	t.Run("delete removes", func(t *testing.T) {
		t.Parallel()
		storage := &MockStorage{}
		storage.On("ListByUser", ctx, "u1").Return(sample(), nil)
		storage.On("Delete", ctx, "u1", "1").Return(nil)

		svc := newService(storage)
		require.NoError(t, svc.Load(ctx, "u1"))
		require.NoError(t, svc.Delete(ctx, "u1", "1"))
		_, ok := svc.Store().Get("1")
		assert.False(t, ok)
	})

	t.Run("no user", func(t *testing.T) {
		t.Parallel()
		svc := newService(&MockStorage{})
		assert.ErrorIs(t, svc.Load(ctx, ""), exercise.ErrNoUser)
		_, err := svc.Create(ctx, "", validInput())
		assert.ErrorIs(t, err, exercise.ErrNoUser)
	})
}

func TestFilters(t *testing.T) {
	t.Parallel()

	store := exercise.NewStore()
	store.Load(sample())
	store.SetFilters(exercise.Filters{From: day("2025-03-02"), To: day("2025-03-04"), Type: exercise.TypeFree})
	assert.Equal(t, []string{"Bench Press", "Deadlift"}, names(store.Visible()))

	store.SetFilters(exercise.Filters{})
	assert.Len(t, store.Visible(), 4)
	assert.Equal(t, 4, store.Len(), "filtering must not drop stored items")
}
