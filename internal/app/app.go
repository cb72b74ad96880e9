package app

import (
	"context"

	"github.com/planpoker/core/internal/config"
	http_init "github.com/planpoker/core/internal/delivery/http/init"
	http_access_middleware "github.com/planpoker/core/internal/delivery/http/middleware/access"
	http_session_middleware "github.com/planpoker/core/internal/delivery/http/middleware/session"
	http_room "github.com/planpoker/core/internal/delivery/http/room"
	http_user "github.com/planpoker/core/internal/delivery/http/user"
	ws_room "github.com/planpoker/core/internal/delivery/ws/room"
	infra_memory_room "github.com/planpoker/core/internal/infra/memory/room"
	infra_memory_session "github.com/planpoker/core/internal/infra/memory/session"
	infra_memory_user "github.com/planpoker/core/internal/infra/memory/user"
	infra_pg_init "github.com/planpoker/core/internal/infra/postgres/init"
	infra_postgres_room "github.com/planpoker/core/internal/infra/postgres/room"
	infra_postgres_user "github.com/planpoker/core/internal/infra/postgres/user"
	infra_redis_init "github.com/planpoker/core/internal/infra/redis/init"
	infra_session_cache "github.com/planpoker/core/internal/infra/redis/session"
	"github.com/planpoker/core/internal/model"
	"github.com/planpoker/core/internal/scheduler"
	session_auth "github.com/planpoker/core/internal/service/auth/session"
	usecase_room "github.com/planpoker/core/internal/usecase/room"
	usecase_user "github.com/planpoker/core/internal/usecase/user"
)

func Go(cfg *config.Config) {
	var (
		roomRepository usecase_room.RoomRepository
		userRepository usecase_user.UserRepository
		sessionCache   session_auth.SessionCache
	)

	if cfg.Postgres.Host == "" {
		// No database configured, run self-contained.
		roomRepository = infra_memory_room.New(defaultRoles())
		userRepository = infra_memory_user.New()
		sessionCache = infra_memory_session.New()
	} else {
		pgConn := infra_pg_init.MustEstablishConn(cfg.Postgres)
		redisConn := infra_redis_init.MustEstablishConn(cfg.Redis)

		roomRepository = infra_postgres_room.New(pgConn)
		userRepository = infra_postgres_user.New(pgConn)
		sessionCache = infra_session_cache.New(redisConn, "session_cache")
	}

	sessionService := session_auth.New(sessionCache, cfg.Session.TTL)

	roomUC := usecase_room.New(roomRepository)
	userUC := usecase_user.New(userRepository, sessionService)

	sessionMiddleware := http_session_middleware.New(sessionService, userUC)

	hub := ws_room.NewHub(roomUC)
	go hub.Run()

	cleaner := scheduler.NewRoomCleaner(roomRepository, cfg.Cleaner.Interval, cfg.Cleaner.InitialDelay)
	go cleaner.Run(context.Background())

	controllerPool := http_init.NewControllerPool(
		http_access_middleware.ReadOnlyMiddleware(cfg.HTTP.Mode),
	)
	controllerPool.Add(http_user.New(userUC, sessionMiddleware))
	controllerPool.Add(http_room.New(roomUC, sessionMiddleware, hub))
	controllerPool.Add(ws_room.NewController(hub, sessionService, userUC))

	controllerPool.Register()
	controllerPool.RunAll(cfg.HTTP.Port)
}

// defaultRoles mirrors the seed in migrations/init.sql for the
// self-contained mode.
func defaultRoles() []model.Role {
	return []model.Role{
		{ID: 1, Name: "Developer"},
		{ID: 2, Name: "QA"},
		{ID: 3, Name: "Analyst"},
		{ID: 4, Name: "Observer"},
	}
}
