package http_user

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	http_common "github.com/planpoker/core/internal/delivery/http/common"
	http_session_middleware "github.com/planpoker/core/internal/delivery/http/middleware/session"
	usecase_user "github.com/planpoker/core/internal/usecase/user"
)

type Controller struct {
	usecase    *usecase_user.Usecase
	middleware *http_session_middleware.Middleware
	logger     *slog.Logger
}

func New(
	usecase *usecase_user.Usecase,
	middleware *http_session_middleware.Middleware,
) *Controller {
	return &Controller{
		usecase:    usecase,
		middleware: middleware,
		logger:     slog.Default(),
	}
}

func (c *Controller) RegisterRoutes(router *gin.RouterGroup) {
	user := router.Group("/user")
	{
		user.POST("/login", c.login)
		user.POST("/registration", c.registration)
		user.GET("/logout", c.logout)

		authed := user.Group("", c.middleware.AuthRequired())
		authed.POST("/update", c.update)
		authed.POST("/changePassword", c.changePassword)
	}
}

type LoginRequestDTO struct {
	Login    string `json:"login" binding:"required,email,min=8,max=128"`
	Password string `json:"password" binding:"required,min=8,max=128"`
}

func (c *Controller) login(ctx *gin.Context) {
	var req LoginRequestDTO
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusOK, http_common.FromBindingError(err))
		return
	}

	sessionID, err := c.usecase.Login(ctx, req.Login, req.Password)
	if err != nil {
		if errors.Is(err, usecase_user.ErrNotFound) {
			ctx.JSON(http.StatusOK, http_common.Fail(http_common.CodeNotFound))
			return
		}
		c.logger.Error("login failed", slog.String("error", err.Error()))
		ctx.JSON(http.StatusOK, http_common.Fail(http_common.CodeUnexpectedError))
		return
	}

	ctx.Header(http_session_middleware.HeaderSessionID, sessionID)
	ctx.JSON(http.StatusOK, http_common.Ok())
}

type RegistrationRequestDTO struct {
	Login     string `json:"login" binding:"required,email,min=8,max=128"`
	Password  string `json:"password" binding:"required,min=8,max=128"`
	FirstName string `json:"firstName" binding:"required,min=1,max=128"`
	LastName  string `json:"lastName" binding:"required,min=1,max=128"`
}

func (c *Controller) registration(ctx *gin.Context) {
	var req RegistrationRequestDTO
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusOK, http_common.FromBindingError(err))
		return
	}

	sessionID, err := c.usecase.Register(ctx, req.Login, req.Password, req.FirstName, req.LastName)
	if err != nil {
		if errors.Is(err, usecase_user.ErrLoginIsBusy) {
			ctx.JSON(http.StatusOK, http_common.Fail(http_common.CodeLoginIsBusy))
			return
		}
		c.logger.Error("registration failed", slog.String("error", err.Error()))
		ctx.JSON(http.StatusOK, http_common.Fail(http_common.CodeUnexpectedError))
		return
	}

	ctx.Header(http_session_middleware.HeaderSessionID, sessionID)
	ctx.JSON(http.StatusOK, http_common.Ok())
}

// Logging out an unknown session is fine, nothing happens.
func (c *Controller) logout(ctx *gin.Context) {
	token := ctx.GetHeader(http_session_middleware.HeaderSessionID)
	if err := c.usecase.Logout(token); err != nil {
		c.logger.Error("logout failed", slog.String("error", err.Error()))
		ctx.JSON(http.StatusOK, http_common.Fail(http_common.CodeUnexpectedError))
		return
	}
	ctx.JSON(http.StatusOK, http_common.Ok())
}

type UpdateUserRequestDTO struct {
	FirstName string `json:"firstName" binding:"required,min=1,max=128"`
	LastName  string `json:"lastName" binding:"required,min=1,max=128"`
}

func (c *Controller) update(ctx *gin.Context) {
	var req UpdateUserRequestDTO
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusOK, http_common.FromBindingError(err))
		return
	}

	user, ok := http_session_middleware.CurrentUser(ctx)
	if !ok {
		ctx.JSON(http.StatusOK, http_common.Fail(http_common.CodeUnauthorized))
		return
	}

	if err := c.usecase.Update(ctx, user.ID, req.FirstName, req.LastName); err != nil {
		c.fail(ctx, "update failed", err)
		return
	}
	ctx.JSON(http.StatusOK, http_common.Ok())
}

type ChangePasswordRequestDTO struct {
	Password string `json:"password" binding:"required,min=8,max=128"`
}

func (c *Controller) changePassword(ctx *gin.Context) {
	var req ChangePasswordRequestDTO
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusOK, http_common.FromBindingError(err))
		return
	}

	user, ok := http_session_middleware.CurrentUser(ctx)
	if !ok {
		ctx.JSON(http.StatusOK, http_common.Fail(http_common.CodeUnauthorized))
		return
	}

	if err := c.usecase.ChangePassword(ctx, user.ID, req.Password); err != nil {
		c.fail(ctx, "change password failed", err)
		return
	}
	ctx.JSON(http.StatusOK, http_common.Ok())
}

func (c *Controller) fail(ctx *gin.Context, msg string, err error) {
	if errors.Is(err, usecase_user.ErrUnauthorized) {
		ctx.JSON(http.StatusOK, http_common.Fail(http_common.CodeUnauthorized))
		return
	}
	c.logger.Error(msg, slog.String("error", err.Error()))
	ctx.JSON(http.StatusOK, http_common.Fail(http_common.CodeUnexpectedError))
}
