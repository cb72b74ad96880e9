package http_room

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	http_common "github.com/planpoker/core/internal/delivery/http/common"
	http_session_middleware "github.com/planpoker/core/internal/delivery/http/middleware/session"
	"github.com/planpoker/core/internal/model"
	usecase_room "github.com/planpoker/core/internal/usecase/room"
)

// RoomNotifier lets the controller nudge watchers after a mutation.
// Polling clients do not depend on it.
type RoomNotifier interface {
	NotifyRoomUpdated(roomID int64)
}

type Controller struct {
	usecase    *usecase_room.Usecase
	middleware *http_session_middleware.Middleware
	notifier   RoomNotifier
	logger     *slog.Logger
}

func New(
	usecase *usecase_room.Usecase,
	middleware *http_session_middleware.Middleware,
	notifier RoomNotifier,
) *Controller {
	return &Controller{
		usecase:    usecase,
		middleware: middleware,
		notifier:   notifier,
		logger:     slog.Default(),
	}
}

func (c *Controller) RegisterRoutes(router *gin.RouterGroup) {
	room := router.Group("/room", c.middleware.AuthRequired())
	{
		room.POST("/createRoom", c.createRoom)
		room.POST("/join", c.join)
		room.POST("/leave", c.leave)
		room.POST("/getRoom", c.getRoom)
		room.POST("/vote", c.vote)
		room.POST("/setVoting", c.setVoting)
		room.GET("/roles", c.roles)
		room.GET("/rooms", c.rooms)
	}
}

type CreateRoomRequestDTO struct {
	Name       string `json:"name" binding:"required,min=4,max=128"`
	SecretCode string `json:"secretCode" binding:"omitempty,min=4,max=128"`
	Roles      []int  `json:"roles" binding:"required,min=1,dive,min=1"`
	Days       int    `json:"days" binding:"required,min=1"`
	RoleID     int    `json:"roleId" binding:"required,min=1"`
}

type CreateRoomResponseDTO struct {
	http_common.StandardResponse
	RoomID int64 `json:"roomId"`
}

func (c *Controller) createRoom(ctx *gin.Context) {
	var req CreateRoomRequestDTO
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusOK, http_common.FromBindingError(err))
		return
	}

	user, ok := http_session_middleware.CurrentUser(ctx)
	if !ok {
		ctx.JSON(http.StatusOK, http_common.Fail(http_common.CodeUnauthorized))
		return
	}

	roomID, err := c.usecase.Create(ctx, user, usecase_room.CreateParams{
		Name:       req.Name,
		RoleIDs:    req.Roles,
		RoleID:     req.RoleID,
		Days:       req.Days,
		SecretCode: req.SecretCode,
	})
	if err != nil {
		if errors.Is(err, usecase_room.ErrRoleNotAllowed) {
			ctx.JSON(http.StatusOK, http_common.NewValidationErrorResponse([]http_common.ValidationError{
				{Field: "roleId", Message: "role is not in the room role set"},
			}))
			return
		}
		c.fail(ctx, "create room failed", err)
		return
	}

	ctx.JSON(http.StatusOK, CreateRoomResponseDTO{
		StandardResponse: http_common.Ok(),
		RoomID:           roomID,
	})
}

type JoinRoomRequestDTO struct {
	RoomID     int64  `json:"roomId" binding:"required,min=1"`
	RoleID     int    `json:"roleId" binding:"required,min=1"`
	SecretCode string `json:"secretCode"`
}

type RoomInfoResponseDTO struct {
	http_common.StandardResponse
	RoomInfo usecase_room.RoomInfo `json:"roomInfo"`
}

func (c *Controller) join(ctx *gin.Context) {
	var req JoinRoomRequestDTO
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusOK, http_common.FromBindingError(err))
		return
	}

	user, ok := http_session_middleware.CurrentUser(ctx)
	if !ok {
		ctx.JSON(http.StatusOK, http_common.Fail(http_common.CodeUnauthorized))
		return
	}

	roomInfo, err := c.usecase.Join(ctx, user, req.RoomID, req.RoleID, req.SecretCode)
	if err != nil {
		switch {
		case errors.Is(err, usecase_room.ErrWrongSecretCode):
			ctx.JSON(http.StatusOK, http_common.Fail(http_common.CodeWrongSecretCode))
		case errors.Is(err, usecase_room.ErrRoleNotAllowed):
			ctx.JSON(http.StatusOK, http_common.NewValidationErrorResponse([]http_common.ValidationError{
				{Field: "roleId", Message: "role is not allowed in this room"},
			}))
		default:
			c.fail(ctx, "join room failed", err)
		}
		return
	}

	c.notifier.NotifyRoomUpdated(req.RoomID)
	ctx.JSON(http.StatusOK, RoomInfoResponseDTO{
		StandardResponse: http_common.Ok(),
		RoomInfo:         roomInfo,
	})
}

type LeaveRoomRequestDTO struct {
	RoomID int64 `json:"roomId" binding:"required,min=1"`
}

func (c *Controller) leave(ctx *gin.Context) {
	var req LeaveRoomRequestDTO
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusOK, http_common.FromBindingError(err))
		return
	}

	user, ok := http_session_middleware.CurrentUser(ctx)
	if !ok {
		ctx.JSON(http.StatusOK, http_common.Fail(http_common.CodeUnauthorized))
		return
	}

	if err := c.usecase.Leave(ctx, user, req.RoomID); err != nil {
		c.fail(ctx, "leave room failed", err)
		return
	}

	c.notifier.NotifyRoomUpdated(req.RoomID)
	ctx.JSON(http.StatusOK, http_common.Ok())
}

type GetRoomRequestDTO struct {
	RoomID int64 `json:"roomId" binding:"required,min=1"`
}

func (c *Controller) getRoom(ctx *gin.Context) {
	var req GetRoomRequestDTO
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusOK, http_common.FromBindingError(err))
		return
	}

	user, ok := http_session_middleware.CurrentUser(ctx)
	if !ok {
		ctx.JSON(http.StatusOK, http_common.Fail(http_common.CodeUnauthorized))
		return
	}

	roomInfo, err := c.usecase.Get(ctx, user, req.RoomID)
	if err != nil {
		// A valid session without membership reads as Unauthorized here,
		// not NotAllowed.
		if errors.Is(err, usecase_room.ErrNotParticipant) {
			ctx.JSON(http.StatusOK, http_common.Fail(http_common.CodeUnauthorized))
			return
		}
		c.fail(ctx, "get room failed", err)
		return
	}

	ctx.JSON(http.StatusOK, RoomInfoResponseDTO{
		StandardResponse: http_common.Ok(),
		RoomInfo:         roomInfo,
	})
}

type VoteRoomRequestDTO struct {
	RoomID int64  `json:"roomId" binding:"required,min=1"`
	Score  string `json:"score" binding:"required,min=1,max=3"`
}

func (c *Controller) vote(ctx *gin.Context) {
	var req VoteRoomRequestDTO
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusOK, http_common.FromBindingError(err))
		return
	}

	user, ok := http_session_middleware.CurrentUser(ctx)
	if !ok {
		ctx.JSON(http.StatusOK, http_common.Fail(http_common.CodeUnauthorized))
		return
	}

	if err := c.usecase.Vote(ctx, user, req.RoomID, req.Score); err != nil {
		if errors.Is(err, usecase_room.ErrBadScore) {
			ctx.JSON(http.StatusOK, http_common.NewValidationErrorResponse([]http_common.ValidationError{
				{Field: "score", Message: "score is not in the deck"},
			}))
			return
		}
		c.fail(ctx, "vote failed", err)
		return
	}

	c.notifier.NotifyRoomUpdated(req.RoomID)
	ctx.JSON(http.StatusOK, http_common.Ok())
}

type SetVotingRequestDTO struct {
	RoomID int64 `json:"roomId" binding:"required,min=1"`
	Voting *bool `json:"voting" binding:"required"`
}

func (c *Controller) setVoting(ctx *gin.Context) {
	var req SetVotingRequestDTO
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusOK, http_common.FromBindingError(err))
		return
	}

	user, ok := http_session_middleware.CurrentUser(ctx)
	if !ok {
		ctx.JSON(http.StatusOK, http_common.Fail(http_common.CodeUnauthorized))
		return
	}

	roomInfo, err := c.usecase.SetVoting(ctx, user, req.RoomID, *req.Voting)
	if err != nil {
		c.fail(ctx, "set voting failed", err)
		return
	}

	c.notifier.NotifyRoomUpdated(req.RoomID)
	ctx.JSON(http.StatusOK, RoomInfoResponseDTO{
		StandardResponse: http_common.Ok(),
		RoomInfo:         roomInfo,
	})
}

type RolesResponseDTO struct {
	http_common.StandardResponse
	Roles []model.Role `json:"roles"`
}

func (c *Controller) roles(ctx *gin.Context) {
	roles, err := c.usecase.Roles(ctx)
	if err != nil {
		c.fail(ctx, "list roles failed", err)
		return
	}

	ctx.JSON(http.StatusOK, RolesResponseDTO{
		StandardResponse: http_common.Ok(),
		Roles:            roles,
	})
}

type RoomsResponseDTO struct {
	http_common.StandardResponse
	Rooms []usecase_room.RoomSummary `json:"rooms"`
}

func (c *Controller) rooms(ctx *gin.Context) {
	user, ok := http_session_middleware.CurrentUser(ctx)
	if !ok {
		ctx.JSON(http.StatusOK, http_common.Fail(http_common.CodeUnauthorized))
		return
	}

	rooms, err := c.usecase.Rooms(ctx, user)
	if err != nil {
		c.fail(ctx, "list rooms failed", err)
		return
	}

	ctx.JSON(http.StatusOK, RoomsResponseDTO{
		StandardResponse: http_common.Ok(),
		Rooms:            rooms,
	})
}

func (c *Controller) fail(ctx *gin.Context, msg string, err error) {
	switch {
	case errors.Is(err, usecase_room.ErrResourceNotFound):
		ctx.JSON(http.StatusOK, http_common.Fail(http_common.CodeNotFound))
	case errors.Is(err, usecase_room.ErrNotParticipant),
		errors.Is(err, usecase_room.ErrNotAllowed),
		errors.Is(err, usecase_room.ErrVotingClosed):
		ctx.JSON(http.StatusOK, http_common.Fail(http_common.CodeNotAllowed))
	default:
		c.logger.Error(msg, slog.String("error", err.Error()))
		ctx.JSON(http.StatusOK, http_common.Fail(http_common.CodeUnexpectedError))
	}
}
