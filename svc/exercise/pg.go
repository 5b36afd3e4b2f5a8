package exercise

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/dmitrymomot/fittrack/pkg/pg"
	"github.com/dmitrymomot/fittrack/svc/units"
)

const exerciseColumns = `id, user_id, date, exercise_name, type, weight, weight_unit, sets, reps, coalesce(notes, ''), created_at`

// PGRepository stores exercises in the exercises table.
type PGRepository struct {
	db pg.DB
}

func NewPGRepository(db pg.DB) *PGRepository {
	return &PGRepository{db: db}
}

func (r *PGRepository) ListByUser(ctx context.Context, userID string) ([]Exercise, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+exerciseColumns+` FROM exercises WHERE user_id = $1 ORDER BY date DESC, created_at DESC`, userID)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, scanExercise)
}

func (r *PGRepository) GetByID(ctx context.Context, userID, id string) (Exercise, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+exerciseColumns+` FROM exercises WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return Exercise{}, err
	}
	e, err := pgx.CollectExactlyOneRow(rows, scanExercise)
	return e, notFound(err)
}

func (r *PGRepository) Insert(ctx context.Context, e Exercise) (Exercise, error) {
	rows, err := r.db.Query(ctx, `
		INSERT INTO exercises (user_id, date, exercise_name, type, weight, weight_unit, sets, reps, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, nullif($9, ''))
		RETURNING `+exerciseColumns,
		e.UserID, e.Date, e.Name, string(e.Type), e.Weight, string(e.WeightUnit), e.Sets, e.Reps, e.Notes)
	if err != nil {
		return Exercise{}, err
	}
	return pgx.CollectExactlyOneRow(rows, scanExercise)
}

func (r *PGRepository) Update(ctx context.Context, e Exercise) (Exercise, error) {
	rows, err := r.db.Query(ctx, `
		UPDATE exercises
		SET date = $3, exercise_name = $4, type = $5, weight = $6, weight_unit = $7,
		    sets = $8, reps = $9, notes = nullif($10, '')
		WHERE id = $1 AND user_id = $2
		RETURNING `+exerciseColumns,
		e.ID, e.UserID, e.Date, e.Name, string(e.Type), e.Weight, string(e.WeightUnit), e.Sets, e.Reps, e.Notes)
	if err != nil {
		return Exercise{}, err
	}
	updated, err := pgx.CollectExactlyOneRow(rows, scanExercise)
	return updated, notFound(err)
}

func (r *PGRepository) Delete(ctx context.Context, userID, id string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM exercises WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func scanExercise(row pgx.CollectableRow) (Exercise, error) {
	var (
		e    Exercise
		typ  string
		unit string
		reps []int32
	)
	err := row.Scan(&e.ID, &e.UserID, &e.Date, &e.Name, &typ, &e.Weight, &unit, &e.Sets, &reps, &e.Notes, &e.CreatedAt)
	if err != nil {
		return Exercise{}, err
	}
	e.Type = Type(typ)
	e.WeightUnit = unitOf(unit)
	e.Reps = make([]int, len(reps))
	for i, r := range reps {
		e.Reps[i] = int(r)
	}
	return e, nil
}

func notFound(err error) error {
	if pg.IsNotFoundError(err) {
		return errors.Join(ErrNotFound, err)
	}
	return err
}

func unitOf(s string) units.Unit {
	u, err := units.Parse(s)
	if err != nil {
		return units.Default
	}
	return u
}
