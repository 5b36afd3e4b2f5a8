package group

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/dmitrymomot/fittrack/pkg/pg"
)

const groupSelect = `
	SELECT g.id, g.name, coalesce(g.goal, ''), coalesce(g.cover_image_url, ''), g.created_by, g.created_at,
	       (SELECT count(*) FROM group_members c WHERE c.group_id = g.id) AS member_count,
	       gm.role
	FROM groups g
	JOIN group_members gm ON gm.group_id = g.id AND gm.user_id = $1`

const invitationSelect = `
	SELECT i.id, i.group_id, i.email, i.status, i.created_at, g.name
	FROM group_invitations i
	JOIN groups g ON g.id = i.group_id`

// PGRepository stores groups in Postgres.
type PGRepository struct {
	db pg.Pool
}

func NewPGRepository(db pg.Pool) *PGRepository {
	return &PGRepository{db: db}
}

func (r *PGRepository) ListForUser(ctx context.Context, userID string) ([]Group, error) {
	rows, err := r.db.Query(ctx, groupSelect+` ORDER BY g.created_at`, userID)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, scanGroup)
}

func (r *PGRepository) GetForUser(ctx context.Context, userID, groupID string) (Group, error) {
	rows, err := r.db.Query(ctx, groupSelect+` WHERE g.id = $2`, userID, groupID)
	if err != nil {
		return Group{}, err
	}
	g, err := pgx.CollectExactlyOneRow(rows, scanGroup)
	return g, wrapNotFound(err, ErrNotFound)
}

// Create inserts the group and the creator's admin membership in one
// transaction.
func (r *PGRepository) Create(ctx context.Context, userID string, in Input) (Group, error) {
	var g Group
	err := pg.WithTx(ctx, r.db, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx, `
			INSERT INTO groups (name, goal, cover_image_url, created_by)
			VALUES ($1, nullif($2, ''), nullif($3, ''), $4)
			RETURNING id, name, coalesce(goal, ''), coalesce(cover_image_url, ''), created_by, created_at`,
			in.Name, in.Goal, in.CoverImageURL, userID,
		).Scan(&g.ID, &g.Name, &g.Goal, &g.CoverImageURL, &g.CreatedBy, &g.CreatedAt)
		if err != nil {
			return err
		}
		_, err = tx.Exec(ctx,
			`INSERT INTO group_members (group_id, user_id, role) VALUES ($1, $2, $3)`,
			g.ID, userID, string(RoleAdmin))
		return err
	})
	if err != nil {
		return Group{}, err
	}
	g.MemberCount = 1
	g.UserRole = RoleAdmin
	return g, nil
}

func (r *PGRepository) Update(ctx context.Context, groupID string, in Input) (Group, error) {
	var g Group
	err := r.db.QueryRow(ctx, `
		UPDATE groups SET name = $2, goal = nullif($3, ''), cover_image_url = nullif($4, '')
		WHERE id = $1
		RETURNING id, name, coalesce(goal, ''), coalesce(cover_image_url, ''), created_by, created_at`,
		groupID, in.Name, in.Goal, in.CoverImageURL,
	).Scan(&g.ID, &g.Name, &g.Goal, &g.CoverImageURL, &g.CreatedBy, &g.CreatedAt)
	return g, wrapNotFound(err, ErrNotFound)
}

func (r *PGRepository) Delete(ctx context.Context, groupID string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM groups WHERE id = $1`, groupID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PGRepository) MemberRole(ctx context.Context, groupID, userID string) (Role, error) {
	var role string
	err := r.db.QueryRow(ctx,
		`SELECT role FROM group_members WHERE group_id = $1 AND user_id = $2`, groupID, userID,
	).Scan(&role)
	if err != nil {
		return "", wrapNotFound(err, ErrNotMember)
	}
	return Role(role), nil
}

func (r *PGRepository) ListMembers(ctx context.Context, groupID string) ([]Member, error) {
	rows, err := r.db.Query(ctx, `
		SELECT m.id, m.group_id, m.user_id, m.role, m.joined_at,
		       coalesce(u.name, ''), coalesce(u.profile_picture_url, '')
		FROM group_members m
		LEFT JOIN users u ON u.id = m.user_id
		WHERE m.group_id = $1
		ORDER BY m.joined_at`, groupID)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (Member, error) {
		var (
			m    Member
			role string
		)
		err := row.Scan(&m.ID, &m.GroupID, &m.UserID, &role, &m.JoinedAt, &m.Name, &m.ProfilePictureURL)
		m.Role = Role(role)
		return m, err
	})
}

// CreateInvitation rejects emails that already belong to a member or
// already have a pending invitation to the group.
func (r *PGRepository) CreateInvitation(ctx context.Context, groupID, email string) (Invitation, error) {
	var member bool
	err := r.db.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM group_members m JOIN users u ON u.id = m.user_id
			WHERE m.group_id = $1 AND lower(u.email) = $2
		)`, groupID, email).Scan(&member)
	if err != nil {
		return Invitation{}, err
	}
	if member {
		return Invitation{}, ErrAlreadyMember
	}

	rows, err := r.db.Query(ctx, `
		WITH inserted AS (
			INSERT INTO group_invitations (group_id, email, status)
			VALUES ($1, $2, $3)
			RETURNING id, group_id, email, status, created_at
		)
		SELECT i.id, i.group_id, i.email, i.status, i.created_at, g.name
		FROM inserted i JOIN groups g ON g.id = i.group_id`,
		groupID, email, string(StatusPending))
	if err != nil {
		return Invitation{}, err
	}
	inv, err := pgx.CollectExactlyOneRow(rows, scanInvitation)
	if pg.IsDuplicateKeyError(err) {
		return Invitation{}, errors.Join(ErrAlreadyInvited, err)
	}
	if pg.IsForeignKeyViolationError(err) {
		return Invitation{}, errors.Join(ErrNotFound, err)
	}
	return inv, err
}

func (r *PGRepository) ListInvitations(ctx context.Context, email string) ([]Invitation, error) {
	rows, err := r.db.Query(ctx, invitationSelect+` WHERE lower(i.email) = $1 ORDER BY i.created_at DESC`, email)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, scanInvitation)
}

// RespondInvitation locks the invitation, records the answer and, when
// accepted, adds the membership, all in one transaction.
func (r *PGRepository) RespondInvitation(ctx context.Context, userID, email, invitationID string, accept bool) (Invitation, error) {
	var inv Invitation
	err := pg.WithTx(ctx, r.db, func(tx pgx.Tx) error {
		rows, err := tx.Query(ctx,
			invitationSelect+` WHERE i.id = $1 AND lower(i.email) = $2 FOR UPDATE OF i`, invitationID, email)
		if err != nil {
			return err
		}
		inv, err = pgx.CollectExactlyOneRow(rows, scanInvitation)
		if err != nil {
			return wrapNotFound(err, ErrNotFound)
		}
		if inv.Status != StatusPending {
			return ErrInvitationClosed
		}

		inv.Status = StatusRejected
		if accept {
			inv.Status = StatusAccepted
		}
		if _, err := tx.Exec(ctx,
			`UPDATE group_invitations SET status = $2 WHERE id = $1`, inv.ID, string(inv.Status)); err != nil {
			return err
		}
		if !accept {
			return nil
		}
		_, err = tx.Exec(ctx, `
			INSERT INTO group_members (group_id, user_id, role) VALUES ($1, $2, $3)
			ON CONFLICT (group_id, user_id) DO NOTHING`,
			inv.GroupID, userID, string(RoleMember))
		return err
	})
	if err != nil {
		return Invitation{}, err
	}
	return inv, nil
}

func scanGroup(row pgx.CollectableRow) (Group, error) {
	var (
		g    Group
		role string
	)
	err := row.Scan(&g.ID, &g.Name, &g.Goal, &g.CoverImageURL, &g.CreatedBy, &g.CreatedAt, &g.MemberCount, &role)
	g.UserRole = Role(role)
	return g, err
}

func scanInvitation(row pgx.CollectableRow) (Invitation, error) {
	var (
		inv    Invitation
		status string
	)
	err := row.Scan(&inv.ID, &inv.GroupID, &inv.Email, &status, &inv.CreatedAt, &inv.GroupName)
	inv.Status = InvitationStatus(status)
	return inv, err
}

func wrapNotFound(err, sentinel error) error {
	if pg.IsNotFoundError(err) {
		return errors.Join(sentinel, err)
	}
	return err
}
