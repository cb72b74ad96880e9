package infra_postgres_room

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"github.com/planpoker/core/internal/model"
	usecase_room "github.com/planpoker/core/internal/usecase/room"
)

type Driver struct {
	db *sqlx.DB
}

func New(
	db *sqlx.DB,
) *Driver {
	return &Driver{db: db}
}

type roomDTO struct {
	ID       int64          `db:"id"`
	Name     string         `db:"name"`
	AuthorID int64          `db:"author_id"`
	Secret   sql.NullString `db:"secret_code"`
	Voting   bool           `db:"voting"`
	Created  sql.NullTime   `db:"created"`
	Expired  sql.NullTime   `db:"expired"`
}

type participantDTO struct {
	RoomID      int64          `db:"room_id"`
	UserID      int64          `db:"user_id"`
	RoleID      int            `db:"role_id"`
	DisplayName string         `db:"display_name"`
	Score       sql.NullString `db:"score"`
}

func (d *Driver) Create(ctx context.Context, room model.Room, creator model.Participant) (int64, error) {
	tx, err := d.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	var roomID int64
	query := `
		INSERT INTO rooms (name, author_id, secret_code, voting, created, expired)
		VALUES ($1, $2, NULLIF($3, ''), $4, $5, $6)
		RETURNING id
	`
	if err := tx.QueryRowContext(ctx, query,
		room.Name, room.AuthorID, room.Secret, room.Voting, room.Created, room.Expired,
	).Scan(&roomID); err != nil {
		return 0, err
	}

	for _, role := range room.Roles {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO room_roles (room_id, role_id) VALUES ($1, $2)`,
			roomID, role.ID,
		); err != nil {
			return 0, err
		}
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO participants (room_id, user_id, role_id) VALUES ($1, $2, $3)`,
		roomID, creator.UserID, creator.RoleID,
	); err != nil {
		return 0, err
	}

	return roomID, tx.Commit()
}

func (d *Driver) ByID(ctx context.Context, roomID int64) (model.Room, error) {
	var room roomDTO

	query := `
		SELECT id, name, author_id, secret_code, voting, created, expired
		FROM rooms
		WHERE id = $1
	`
	if err := d.db.GetContext(ctx, &room, query, roomID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Room{}, usecase_room.ErrResourceNotFound
		}
		return model.Room{}, err
	}

	var roles []model.Role
	rolesQuery := `
		SELECT r.id, r.name
		FROM roles r
		JOIN room_roles rr ON rr.role_id = r.id
		WHERE rr.room_id = $1
		ORDER BY r.id
	`
	if err := d.db.SelectContext(ctx, &roles, rolesQuery, roomID); err != nil {
		return model.Room{}, err
	}

	return toModel(room, roles), nil
}

func (d *Driver) ByUser(ctx context.Context, userID int64) ([]model.Room, error) {
	var rooms []roomDTO

	query := `
		SELECT r.id, r.name, r.author_id, r.secret_code, r.voting, r.created, r.expired
		FROM rooms r
		JOIN participants p ON p.room_id = r.id
		WHERE p.user_id = $1 AND r.expired > now()
		ORDER BY r.id
	`
	if err := d.db.SelectContext(ctx, &rooms, query, userID); err != nil {
		return nil, err
	}

	result := make([]model.Room, 0, len(rooms))
	for _, room := range rooms {
		result = append(result, toModel(room, nil))
	}
	return result, nil
}

func (d *Driver) Participants(ctx context.Context, roomID int64) ([]model.Participant, error) {
	var participants []participantDTO

	query := `
		SELECT p.room_id, p.user_id, p.role_id, u.last_name || ' ' || u.first_name AS display_name, p.score
		FROM participants p
		JOIN users u ON u.id = p.user_id
		WHERE p.room_id = $1
		ORDER BY p.user_id
	`
	if err := d.db.SelectContext(ctx, &participants, query, roomID); err != nil {
		return nil, err
	}

	result := make([]model.Participant, 0, len(participants))
	for _, p := range participants {
		participant := model.Participant{
			RoomID:      p.RoomID,
			UserID:      p.UserID,
			RoleID:      p.RoleID,
			DisplayName: p.DisplayName,
		}
		if p.Score.Valid {
			score := p.Score.String
			participant.Score = &score
		}
		result = append(result, participant)
	}
	return result, nil
}

func (d *Driver) ParticipantsCount(ctx context.Context, roomID int64) (int, error) {
	var count int

	query := `
		SELECT COUNT(user_id)
		FROM participants
		WHERE room_id = $1
	`
	if err := d.db.GetContext(ctx, &count, query, roomID); err != nil {
		return 0, err
	}
	return count, nil
}

func (d *Driver) UpsertParticipant(ctx context.Context, p model.Participant) error {
	query := `
		INSERT INTO participants (room_id, user_id, role_id)
		VALUES ($1, $2, $3)
		ON CONFLICT (room_id, user_id)
		DO UPDATE SET role_id = EXCLUDED.role_id
	`
	_, err := d.db.ExecContext(ctx, query, p.RoomID, p.UserID, p.RoleID)
	return err
}

func (d *Driver) RemoveParticipant(ctx context.Context, roomID, userID int64) error {
	result, err := d.db.ExecContext(ctx,
		`DELETE FROM participants WHERE room_id = $1 AND user_id = $2`,
		roomID, userID,
	)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return usecase_room.ErrResourceNotFound
	}
	return nil
}

// CastVote records a score inside a transaction holding the room row lock,
// so a vote never interleaves with a round transition.
func (d *Driver) CastVote(ctx context.Context, roomID, userID int64, score string) error {
	tx, err := d.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var voting bool
	if err := tx.GetContext(ctx, &voting,
		`SELECT voting FROM rooms WHERE id = $1 FOR UPDATE`,
		roomID,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return usecase_room.ErrResourceNotFound
		}
		return err
	}
	if !voting {
		return usecase_room.ErrVotingClosed
	}

	result, err := tx.ExecContext(ctx,
		`UPDATE participants SET score = $1 WHERE room_id = $2 AND user_id = $3`,
		score, roomID, userID,
	)
	if err != nil {
		return err
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return usecase_room.ErrNotParticipant
	}

	return tx.Commit()
}

// SetVoting switches the round state under the room row lock. Opening a
// round wipes every score in the same transaction.
func (d *Driver) SetVoting(ctx context.Context, roomID int64, voting bool) error {
	tx, err := d.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var current bool
	if err := tx.GetContext(ctx, &current,
		`SELECT voting FROM rooms WHERE id = $1 FOR UPDATE`,
		roomID,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return usecase_room.ErrResourceNotFound
		}
		return err
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE rooms SET voting = $1 WHERE id = $2`,
		voting, roomID,
	); err != nil {
		return err
	}

	if voting {
		if _, err := tx.ExecContext(ctx,
			`UPDATE participants SET score = NULL WHERE room_id = $1`,
			roomID,
		); err != nil {
			return err
		}
	}

	return tx.Commit()
}

func (d *Driver) Roles(ctx context.Context) ([]model.Role, error) {
	var roles []model.Role

	query := `SELECT id, name FROM roles ORDER BY id`
	if err := d.db.SelectContext(ctx, &roles, query); err != nil {
		return nil, err
	}
	return roles, nil
}

func (d *Driver) DeleteExpired(ctx context.Context) (int64, error) {
	result, err := d.db.ExecContext(ctx, `DELETE FROM rooms WHERE expired <= now()`)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

func toModel(room roomDTO, roles []model.Role) model.Room {
	m := model.Room{
		ID:       room.ID,
		Name:     room.Name,
		AuthorID: room.AuthorID,
		Roles:    roles,
		Voting:   room.Voting,
		Created:  room.Created.Time,
		Expired:  room.Expired.Time,
	}
	if room.Secret.Valid {
		m.Secret = room.Secret.String
	}
	return m
}
