package usecase_user

import (
	"context"
	"errors"
	"testing"

	"github.com/ozontech/allure-go/pkg/framework/provider"
	"github.com/ozontech/allure-go/pkg/framework/suite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"golang.org/x/crypto/bcrypt"

	"github.com/planpoker/core/internal/model"
	repo_mocks "github.com/planpoker/core/internal/usecase/user/mocks/repository"
)

type stubSessions struct {
	token   string
	err     error
	dropped []string
}

func (s *stubSessions) Create(userID int64) (string, error) {
	return s.token, s.err
}

func (s *stubSessions) Drop(token string) error {
	s.dropped = append(s.dropped, token)
	return s.err
}

type UsecaseUserUnitSuite struct {
	suite.Suite

	usecase *Usecase

	userRepo *repo_mocks.UserRepository
	sessions *stubSessions

	ctx context.Context
}

func (s *UsecaseUserUnitSuite) BeforeEach(t provider.T) {
	s.userRepo = repo_mocks.NewUserRepository(t)
	s.sessions = &stubSessions{token: "token-1"}
	s.usecase = New(s.userRepo, s.sessions)
	s.ctx = context.Background()
}

func hashOf(password string) []byte {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		panic(err)
	}
	return hash
}

func (s *UsecaseUserUnitSuite) TestRegister(t provider.T) {
	t.Run("Should store lowercased login and return a session", func(t provider.T) {
		s.userRepo.On("Create", s.ctx, mock.MatchedBy(func(u model.User) bool {
			return u.Login == "ivan@example.com" &&
				bcrypt.CompareHashAndPassword(u.Password, []byte("password123")) == nil
		})).Return(int64(1), nil).Once()

		token, err := s.usecase.Register(s.ctx, "Ivan@Example.com", "password123", "Ivan", "Petrov")

		assert.NoError(t, err)
		assert.Equal(t, "token-1", token)
	})

	t.Run("Should pass through busy login", func(t provider.T) {
		s.userRepo.On("Create", s.ctx, mock.Anything).Return(int64(0), ErrLoginIsBusy).Once()

		_, err := s.usecase.Register(s.ctx, "ivan@example.com", "password123", "Ivan", "Petrov")

		assert.ErrorIs(t, err, ErrLoginIsBusy)
	})
}

func (s *UsecaseUserUnitSuite) TestLogin(t provider.T) {
	t.Run("Should issue a session for valid credentials", func(t provider.T) {
		user := model.User{ID: 1, Login: "ivan@example.com", Password: hashOf("password123")}

		s.userRepo.On("ByLogin", s.ctx, "ivan@example.com").Return(user, nil).Once()

		token, err := s.usecase.Login(s.ctx, "Ivan@Example.com", "password123")

		assert.NoError(t, err)
		assert.Equal(t, "token-1", token)
	})

	t.Run("Should not distinguish wrong password from unknown login", func(t provider.T) {
		user := model.User{ID: 1, Login: "ivan@example.com", Password: hashOf("password123")}

		s.userRepo.On("ByLogin", s.ctx, "ivan@example.com").Return(user, nil).Once()

		_, wrongPassword := s.usecase.Login(s.ctx, "ivan@example.com", "nope-nope-nope")

		s.userRepo.On("ByLogin", s.ctx, "ghost@example.com").Return(model.User{}, ErrNotFound).Once()

		_, unknownLogin := s.usecase.Login(s.ctx, "ghost@example.com", "password123")

		assert.ErrorIs(t, wrongPassword, ErrNotFound)
		assert.ErrorIs(t, unknownLogin, ErrNotFound)
	})
}

func (s *UsecaseUserUnitSuite) TestLogout(t provider.T) {
	t.Run("Should drop the session", func(t provider.T) {
		err := s.usecase.Logout("token-1")

		assert.NoError(t, err)
		assert.Equal(t, []string{"token-1"}, s.sessions.dropped)
	})

	t.Run("Should ignore an empty token", func(t provider.T) {
		s.sessions.dropped = nil

		err := s.usecase.Logout("")

		assert.NoError(t, err)
		assert.Empty(t, s.sessions.dropped)
	})
}

func (s *UsecaseUserUnitSuite) TestByID(t provider.T) {
	t.Run("Should map missing user to ErrUnauthorized", func(t provider.T) {
		s.userRepo.On("ByID", s.ctx, int64(404)).Return(model.User{}, ErrNotFound).Once()

		_, err := s.usecase.ByID(s.ctx, 404)

		assert.ErrorIs(t, err, ErrUnauthorized)
	})
}

func (s *UsecaseUserUnitSuite) TestChangePassword(t provider.T) {
	t.Run("Should rehash and store a new password", func(t provider.T) {
		user := model.User{ID: 1, Password: hashOf("old-password")}

		s.userRepo.On("ByID", s.ctx, int64(1)).Return(user, nil).Once()
		s.userRepo.On("UpdatePassword", s.ctx, int64(1), mock.MatchedBy(func(hash []byte) bool {
			return bcrypt.CompareHashAndPassword(hash, []byte("new-password")) == nil
		})).Return(nil).Once()

		err := s.usecase.ChangePassword(s.ctx, 1, "new-password")

		assert.NoError(t, err)
	})

	t.Run("Should skip the update when the password is unchanged", func(t provider.T) {
		user := model.User{ID: 1, Password: hashOf("same-password")}

		s.userRepo.On("ByID", s.ctx, int64(1)).Return(user, nil).Once()

		err := s.usecase.ChangePassword(s.ctx, 1, "same-password")

		assert.NoError(t, err)
	})
}

func (s *UsecaseUserUnitSuite) TestInternalWrap(t provider.T) {
	t.Run("Should wrap unexpected repository errors", func(t provider.T) {
		repoError := errors.New("connection reset")

		s.userRepo.On("ByLogin", s.ctx, "ivan@example.com").Return(model.User{}, repoError).Once()

		_, err := s.usecase.Login(s.ctx, "ivan@example.com", "password123")

		assert.ErrorIs(t, err, ErrInternal)
		assert.ErrorContains(t, err, repoError.Error())
	})
}

func TestUserUnitSuite(t *testing.T) {
	suite.RunSuite(t, new(UsecaseUserUnitSuite))
}
