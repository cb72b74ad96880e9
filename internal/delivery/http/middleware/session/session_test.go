package http_session_middleware

import (
	"bytes"
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/planpoker/core/internal/model"
	session_auth "github.com/planpoker/core/internal/service/auth/session"
)

type rejectingSessions struct{}

func (rejectingSessions) Resolve(string) (int64, error) {
	return 0, session_auth.ErrUnauthorized
}

type noUsers struct{}

func (noUsers) ByID(context.Context, int64) (model.User, error) {
	return model.User{}, nil
}

func TestTokenPrefix(t *testing.T) {
	assert.Equal(t, "3f8a2c1b...", tokenPrefix("3f8a2c1b-9d4e-4f6a-8b2c-1d3e5f7a9b0c"))
	assert.Equal(t, "short", tokenPrefix("short"))
}

func TestUnauthorizedLogOmitsToken(t *testing.T) {
	gin.SetMode(gin.TestMode)

	var buf bytes.Buffer
	restore := slog.Default()
	slog.SetDefault(slog.New(slog.NewTextHandler(&buf, nil)))
	defer slog.SetDefault(restore)

	m := New(rejectingSessions{}, noUsers{})

	engine := gin.New()
	engine.GET("/secure", m.AuthRequired(), func(ctx *gin.Context) {
		ctx.Status(http.StatusOK)
	})

	const token = "3f8a2c1b-9d4e-4f6a-8b2c-1d3e5f7a9b0c"
	req := httptest.NewRequest(http.MethodGet, "/secure", nil)
	req.Header.Set(HeaderSessionID, token)
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"Unauthorized"`)

	logged := buf.String()
	assert.NotContains(t, logged, token)
	assert.Contains(t, logged, "3f8a2c1b...")
}
