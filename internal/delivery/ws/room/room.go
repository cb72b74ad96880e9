package ws_room

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	http_session_middleware "github.com/planpoker/core/internal/delivery/http/middleware/session"
	"github.com/planpoker/core/internal/model"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

type SessionResolver interface {
	Resolve(token string) (int64, error)
}

type UserFetcher interface {
	ByID(ctx context.Context, userID int64) (model.User, error)
}

type Controller struct {
	hub      *Hub
	sessions SessionResolver
	users    UserFetcher
	logger   *slog.Logger
}

func NewController(
	hub *Hub,
	sessions SessionResolver,
	users UserFetcher,
) *Controller {
	return &Controller{
		hub:      hub,
		sessions: sessions,
		users:    users,
		logger:   slog.Default(),
	}
}

func (c *Controller) RegisterRoutes(router *gin.RouterGroup) {
	router.GET("/room/watch", c.watch)
}

// watch upgrades to a websocket and streams room snapshots. Browser
// websocket clients cannot set headers, so the session token is accepted
// from the query string as well.
func (c *Controller) watch(ctx *gin.Context) {
	token := ctx.GetHeader(http_session_middleware.HeaderSessionID)
	if token == "" {
		token = ctx.Query("sessionId")
	}

	userID, err := c.sessions.Resolve(token)
	if err != nil {
		ctx.Status(http.StatusUnauthorized)
		return
	}
	user, err := c.users.ByID(ctx, userID)
	if err != nil {
		ctx.Status(http.StatusUnauthorized)
		return
	}

	roomID, err := strconv.ParseInt(ctx.Query("roomId"), 10, 64)
	if err != nil || roomID < 1 {
		ctx.Status(http.StatusBadRequest)
		return
	}

	conn, err := upgrader.Upgrade(ctx.Writer, ctx.Request, nil)
	if err != nil {
		c.logger.Warn("websocket upgrade failed", slog.String("error", err.Error()))
		return
	}

	client := &Client{
		hub:    c.hub,
		conn:   conn,
		send:   make(chan Event, 8),
		user:   user,
		roomID: roomID,
	}
	c.hub.register <- client

	go client.writePump()
	go client.readPump()
}
