package usecase_user

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/planpoker/core/internal/model"
)

var (
	ErrInternal     = errors.New("internal error")
	ErrNotFound     = errors.New("user not found")
	ErrLoginIsBusy  = errors.New("login is busy")
	ErrUnauthorized = errors.New("unauthorized")
)

//go:generate mockery --name=UserRepository --output=./mocks/repository --filename=repository.go
type UserRepository interface {
	Create(ctx context.Context, user model.User) (int64, error)
	ByLogin(ctx context.Context, login string) (model.User, error)
	ByID(ctx context.Context, userID int64) (model.User, error)
	UpdateName(ctx context.Context, userID int64, firstName, lastName string) error
	UpdatePassword(ctx context.Context, userID int64, password []byte) error
}

type SessionIssuer interface {
	Create(userID int64) (string, error)
	Drop(token string) error
}

type Usecase struct {
	userRepository UserRepository
	sessions       SessionIssuer
	logger         *slog.Logger
}

func New(userRepository UserRepository, sessions SessionIssuer) *Usecase {
	return &Usecase{
		userRepository: userRepository,
		sessions:       sessions,
		logger:         slog.Default(),
	}
}

// Register creates the user and logs it in right away.
// Logins are stored lowercased, duplicates fail with ErrLoginIsBusy.
func (u *Usecase) Register(ctx context.Context, login, password, firstName, lastName string) (string, error) {
	login = strings.ToLower(login)

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", errors.Join(ErrInternal, err)
	}

	userID, err := u.userRepository.Create(ctx, model.User{
		Login:     login,
		Password:  hash,
		FirstName: firstName,
		LastName:  lastName,
	})
	if err != nil {
		if errors.Is(err, ErrLoginIsBusy) {
			return "", ErrLoginIsBusy
		}
		return "", errors.Join(ErrInternal, err)
	}

	return u.issueSession(userID)
}

// Login resolves login+password into a fresh session token.
// An unknown login and a wrong password are indistinguishable to the caller.
func (u *Usecase) Login(ctx context.Context, login, password string) (string, error) {
	user, err := u.userRepository.ByLogin(ctx, strings.ToLower(login))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return "", ErrNotFound
		}
		return "", errors.Join(ErrInternal, err)
	}

	if bcrypt.CompareHashAndPassword(user.Password, []byte(password)) != nil {
		u.logger.Warn("wrong password", slog.String("login", login))
		return "", ErrNotFound
	}

	return u.issueSession(user.ID)
}

func (u *Usecase) Logout(token string) error {
	if token == "" {
		return nil
	}
	if err := u.sessions.Drop(token); err != nil {
		return errors.Join(ErrInternal, err)
	}
	return nil
}

func (u *Usecase) ByID(ctx context.Context, userID int64) (model.User, error) {
	user, err := u.userRepository.ByID(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return model.User{}, ErrUnauthorized
		}
		return model.User{}, errors.Join(ErrInternal, err)
	}
	return user, nil
}

func (u *Usecase) Update(ctx context.Context, userID int64, firstName, lastName string) error {
	if err := u.userRepository.UpdateName(ctx, userID, firstName, lastName); err != nil {
		if errors.Is(err, ErrNotFound) {
			return ErrUnauthorized
		}
		return errors.Join(ErrInternal, err)
	}
	return nil
}

// ChangePassword re-hashes and stores the password. Setting the same
// password again is a no-op.
func (u *Usecase) ChangePassword(ctx context.Context, userID int64, password string) error {
	user, err := u.userRepository.ByID(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return ErrUnauthorized
		}
		return errors.Join(ErrInternal, err)
	}
	if bcrypt.CompareHashAndPassword(user.Password, []byte(password)) == nil {
		return nil
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return errors.Join(ErrInternal, err)
	}
	if err := u.userRepository.UpdatePassword(ctx, userID, hash); err != nil {
		return errors.Join(ErrInternal, err)
	}
	return nil
}

func (u *Usecase) issueSession(userID int64) (string, error) {
	token, err := u.sessions.Create(userID)
	if err != nil {
		return "", errors.Join(ErrInternal, err)
	}
	return token, nil
}
