package profile

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/dmitrymomot/fittrack/pkg/pg"
	"github.com/dmitrymomot/fittrack/svc/units"
)

const profileColumns = `id, email, coalesce(name, ''), coalesce(profile_picture_url, ''), weight_unit_preference, created_at`

type PGRepository struct {
	db pg.DB
}

func NewPGRepository(db pg.DB) *PGRepository {
	return &PGRepository{db: db}
}

func (r *PGRepository) Create(ctx context.Context, p Profile) (Profile, error) {
	row := r.db.QueryRow(ctx, `
		INSERT INTO users (id, email, name, weight_unit_preference)
		VALUES ($1, $2, nullif($3, ''), $4)
		RETURNING `+profileColumns,
		p.ID, p.Email, p.Name, string(p.WeightUnit))
	out, err := scanProfile(row)
	if pg.IsDuplicateKeyError(err) {
		return Profile{}, errors.Join(ErrAlreadyExists, err)
	}
	return out, err
}

func (r *PGRepository) GetByID(ctx context.Context, id string) (Profile, error) {
	return scanProfile(r.db.QueryRow(ctx, `SELECT `+profileColumns+` FROM users WHERE id = $1`, id))
}

func (r *PGRepository) Update(ctx context.Context, id, name string, unit units.Unit) (Profile, error) {
	return scanProfile(r.db.QueryRow(ctx, `
		UPDATE users SET name = $2, weight_unit_preference = $3
		WHERE id = $1
		RETURNING `+profileColumns,
		id, name, string(unit)))
}

func (r *PGRepository) SetPicture(ctx context.Context, id, url string) (Profile, error) {
	return scanProfile(r.db.QueryRow(ctx, `
		UPDATE users SET profile_picture_url = $2
		WHERE id = $1
		RETURNING `+profileColumns,
		id, url))
}

func scanProfile(row pgx.Row) (Profile, error) {
	var (
		p    Profile
		unit string
	)
	if err := row.Scan(&p.ID, &p.Email, &p.Name, &p.ProfilePictureURL, &unit, &p.CreatedAt); err != nil {
		if pg.IsNotFoundError(err) {
			return Profile{}, errors.Join(ErrNotFound, err)
		}
		return Profile{}, err
	}
	p.WeightUnit = units.OrDefault(units.Unit(unit))
	return p, nil
}
