package infra_postgres_user

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/planpoker/core/internal/model"
	usecase_user "github.com/planpoker/core/internal/usecase/user"
)

const uniqueViolation = "23505"

type Driver struct {
	db *sqlx.DB
}

func New(
	db *sqlx.DB,
) *Driver {
	return &Driver{db: db}
}

type userDTO struct {
	ID        int64  `db:"id"`
	Login     string `db:"login"`
	Password  []byte `db:"password"`
	FirstName string `db:"first_name"`
	LastName  string `db:"last_name"`
}

func (d *Driver) Create(ctx context.Context, user model.User) (int64, error) {
	var userID int64

	query := `
		INSERT INTO users (login, password, first_name, last_name)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`
	err := d.db.QueryRowContext(ctx, query,
		user.Login, user.Password, user.FirstName, user.LastName,
	).Scan(&userID)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return 0, usecase_user.ErrLoginIsBusy
		}
		return 0, err
	}
	return userID, nil
}

func (d *Driver) ByLogin(ctx context.Context, login string) (model.User, error) {
	var user userDTO

	query := `
		SELECT id, login, password, first_name, last_name
		FROM users
		WHERE login = $1
	`
	if err := d.db.GetContext(ctx, &user, query, login); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.User{}, usecase_user.ErrNotFound
		}
		return model.User{}, err
	}
	return toModel(user), nil
}

func (d *Driver) ByID(ctx context.Context, userID int64) (model.User, error) {
	var user userDTO

	query := `
		SELECT id, login, password, first_name, last_name
		FROM users
		WHERE id = $1
	`
	if err := d.db.GetContext(ctx, &user, query, userID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.User{}, usecase_user.ErrNotFound
		}
		return model.User{}, err
	}
	return toModel(user), nil
}

func (d *Driver) UpdateName(ctx context.Context, userID int64, firstName, lastName string) error {
	result, err := d.db.ExecContext(ctx,
		`UPDATE users SET first_name = $1, last_name = $2 WHERE id = $3`,
		firstName, lastName, userID,
	)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return usecase_user.ErrNotFound
	}
	return nil
}

func (d *Driver) UpdatePassword(ctx context.Context, userID int64, password []byte) error {
	result, err := d.db.ExecContext(ctx,
		`UPDATE users SET password = $1 WHERE id = $2`,
		password, userID,
	)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return usecase_user.ErrNotFound
	}
	return nil
}

func toModel(user userDTO) model.User {
	return model.User{
		ID:        user.ID,
		Login:     user.Login,
		Password:  user.Password,
		FirstName: user.FirstName,
		LastName:  user.LastName,
	}
}
