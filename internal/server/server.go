package server

import (
	"backend-carewatch/internal/alert"
	"backend-carewatch/internal/audio"
	"backend-carewatch/internal/auth"
	"backend-carewatch/internal/cache"
	"backend-carewatch/internal/child"
	"backend-carewatch/internal/config"
	"backend-carewatch/internal/session"
	"backend-carewatch/internal/stream"
	"backend-carewatch/internal/syncer"
	"backend-carewatch/internal/tracking"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

type Server struct {
	App    *fiber.App
	Cfg    config.Config
	DB     *pgxpool.Pool
	Redis  *redis.Client
	Cache  *cache.Store
	Sync   *syncer.Syncer
	Stream *stream.Hub
	Claims *auth.ClaimsCache
	Log    *logrus.Logger

	stopResync func()
}

func NewServer(cfg config.Config, db *pgxpool.Pool, redisClient *redis.Client, cacheStore *cache.Store, log *logrus.Logger) *Server {
	app := fiber.New()
	app.Use(recover.New())
	app.Use(logger.New())

	if log == nil {
		log = logrus.New()
	}

	hub := stream.NewHub(redisClient)

	sessionStore := session.NewStore(db)
	alertStore := alert.NewStore(db)
	storeStrategy := syncer.NewStoreStrategy(sessionStore, alertStore, auth.NewUserAdapter(db))

	// Reads and writes prefer the primary API when one is configured,
	// then fall back to the local store; the cache is the last resort
	// inside the syncer itself. Reads additionally fall through to the
	// caller's verified token claims, which can still describe a minimal
	// user when both API and store are down.
	claimsCache := auth.NewClaimsCache()
	var write []syncer.Strategy
	if cfg.PrimaryAPIURL != "" {
		write = append(write, syncer.NewAPIClient(cfg.PrimaryAPIURL, cfg.PrimaryAPIToken))
	}
	write = append(write, storeStrategy)
	read := append(append([]syncer.Strategy{}, write...), syncer.NewTokenStrategy(claimsCache.Minimal))
	sync := syncer.New(cacheStore, log, read, write)

	s := &Server{
		App:    app,
		Cfg:    cfg,
		DB:     db,
		Redis:  redisClient,
		Cache:  cacheStore,
		Sync:   sync,
		Stream: hub,
		Claims: claimsCache,
		Log:    log,
	}

	if cfg.ResyncInterval > 0 {
		s.stopResync = sync.StartResync(cfg.ResyncInterval)
	}

	registerRoutes(s, sessionStore, alertStore)
	return s
}

// Close stops background work. The fiber app is shut down separately.
func (s *Server) Close() {
	if s.stopResync != nil {
		s.stopResync()
	}
	if s.Cache != nil {
		_ = s.Cache.Close()
	}
}

func registerRoutes(s *Server, sessionStore *session.Store, alertStore *alert.Store) {
	s.App.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	jwtMiddleware := auth.JWTMiddleware(s.Cfg.JWTSecret, s.Claims)

	sessionSvc := session.NewService(sessionStore, s.Sync, s.Stream)
	alertSvc := alert.NewService(alertStore, s.Sync, s.Stream)
	fence := tracking.NewGeofence(s.Cfg.GeofenceRadiusM)
	trackingSvc := tracking.NewService(s.DB, sessionSvc, alertSvc, fence, s.Stream)
	audioSvc := audio.NewService(sessionSvc, alertSvc,
		audio.NewHTTPClassifier(s.Cfg.ClassifierURL), s.Cfg.CryThreshold, s.Cfg.AudioChunkMs, s.Log)

	auth.RegisterRoutes(s.App.Group("/auth"), auth.NewService(s.Cfg.JWTSecret, s.DB))
	session.RegisterRoutes(s.App.Group("/sessions"), sessionSvc, jwtMiddleware)
	child.RegisterRoutes(s.App.Group("/children"), child.NewService(s.DB), jwtMiddleware)
	tracking.RegisterRoutes(s.App.Group("/tracking"), trackingSvc, jwtMiddleware)
	alert.RegisterRoutes(s.App.Group("/alerts"), alertSvc, jwtMiddleware)
	audio.RegisterRoutes(s.App.Group("/audio"), audioSvc, jwtMiddleware)
	stream.RegisterRoutes(s.App.Group("/stream"), s.Stream)
}
