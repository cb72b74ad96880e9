package http_session_middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	http_common "github.com/planpoker/core/internal/delivery/http/common"
	"github.com/planpoker/core/internal/model"
	session_auth "github.com/planpoker/core/internal/service/auth/session"
	usecase_user "github.com/planpoker/core/internal/usecase/user"
)

// HeaderSessionID carries the opaque bearer session token.
const HeaderSessionID = "X-Session-Id"

const contextUserKey = "session.user"

type SessionResolver interface {
	Resolve(token string) (int64, error)
}

type UserFetcher interface {
	ByID(ctx context.Context, userID int64) (model.User, error)
}

type Middleware struct {
	sessions SessionResolver
	users    UserFetcher
	logger   *slog.Logger
}

func New(
	sessions SessionResolver,
	users UserFetcher,
) *Middleware {
	return &Middleware{
		sessions: sessions,
		users:    users,
		logger:   slog.Default(),
	}
}

// AuthRequired resolves the session header into a user and aborts with
// the Unauthorized result code when it cannot. Failures keep HTTP 200,
// the result code is the contract.
func (m *Middleware) AuthRequired() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		token := ctx.GetHeader(HeaderSessionID)
		if token == "" {
			ctx.JSON(http.StatusOK, http_common.Fail(http_common.CodeUnauthorized))
			ctx.Abort()
			return
		}

		userID, err := m.sessions.Resolve(token)
		if err != nil {
			m.unauthorized(ctx, token, err)
			return
		}

		user, err := m.users.ByID(ctx, userID)
		if err != nil {
			m.unauthorized(ctx, token, err)
			return
		}

		ctx.Set(contextUserKey, user)
		ctx.Next()
	}
}

func (m *Middleware) unauthorized(ctx *gin.Context, token string, err error) {
	if !isAuthError(err) {
		m.logger.Error("session resolution failed", slog.String("error", err.Error()))
		ctx.JSON(http.StatusOK, http_common.Fail(http_common.CodeUnexpectedError))
		ctx.Abort()
		return
	}

	m.logger.Warn("unauthorized session", slog.String("token", tokenPrefix(token)))
	ctx.JSON(http.StatusOK, http_common.Fail(http_common.CodeUnauthorized))
	ctx.Abort()
}

// tokenPrefix keeps logs greppable without writing the credential itself.
func tokenPrefix(token string) string {
	const visible = 8
	if len(token) <= visible {
		return token
	}
	return token[:visible] + "..."
}

func isAuthError(err error) bool {
	return errors.Is(err, session_auth.ErrUnauthorized) || errors.Is(err, usecase_user.ErrUnauthorized)
}

// CurrentUser returns the user resolved by AuthRequired.
func CurrentUser(ctx *gin.Context) (model.User, bool) {
	v, ok := ctx.Get(contextUserKey)
	if !ok {
		return model.User{}, false
	}
	user, ok := v.(model.User)
	return user, ok
}
