package server

import (
	"context"

	"github.com/Charan951/driveflow-dashboard-sub000/internal/auth"
	"github.com/Charan951/driveflow-dashboard-sub000/internal/booking"
	"github.com/Charan951/driveflow-dashboard-sub000/internal/config"
	"github.com/Charan951/driveflow-dashboard-sub000/internal/geocode"
	"github.com/Charan951/driveflow-dashboard-sub000/internal/presence"
	"github.com/Charan951/driveflow-dashboard-sub000/internal/stream"
	"github.com/Charan951/driveflow-dashboard-sub000/internal/tracking"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

type Server struct {
	App      *fiber.App
	Cfg      config.Config
	DB       *pgxpool.Pool
	Redis    *redis.Client
	Stream   *stream.Hub
	Sessions *tracking.Registry
}

func NewServer(cfg config.Config, db *pgxpool.Pool, redisClient *redis.Client) *Server {
	app := fiber.New()
	app.Use(recover.New())
	app.Use(logger.New())

	s := &Server{
		App:    app,
		Cfg:    cfg,
		DB:     db,
		Redis:  redisClient,
		Stream: stream.NewHub(redisClient),
	}

	registerRoutes(s)
	return s
}

// bookingFanout forwards booking events to the live channel and tees
// status changes into the tracking sessions, which react with the
// milestone unbind and ETA relevance checks. A transition is emitted to
// both the booking room and the admin room; only the booking-room
// emission tees, so the session sees each status change exactly once.
type bookingFanout struct {
	hub *stream.Hub
	reg *tracking.Registry
}

func (f *bookingFanout) Emit(room, event string, payload any) {
	f.hub.Emit(room, event, payload)
	if event != booking.EventBookingUpdated {
		return
	}
	if bk, ok := payload.(booking.Booking); ok && room == stream.BookingRoom(bk.ID) {
		f.reg.BookingUpdated(context.Background(), bk)
	}
}

func registerRoutes(s *Server) {
	s.App.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	jwtMiddleware := auth.JWTMiddleware(s.Cfg.JWTSecret)

	directions := geocode.NewClient(s.Cfg.GeocodeBaseURL, s.Cfg.DirectionsBaseURL)
	presenceSvc := presence.NewService(s.DB)

	var state tracking.StateStore = tracking.NewMemoryState()
	var dedup tracking.DedupStore = tracking.NewMemoryDedup()
	if s.Redis != nil {
		state = tracking.NewRedisState(s.Redis)
		dedup = tracking.NewRedisDedup(s.Redis)
	}

	fanout := &bookingFanout{hub: s.Stream}
	bookingSvc := booking.NewService(s.DB, fanout)

	s.Sessions = tracking.NewRegistry(tracking.RegistryOptions{
		Hub:              s.Stream,
		Persistence:      presenceSvc,
		Bookings:         bookingSvc,
		State:            state,
		Dedup:            dedup,
		Directions:       directions,
		BroadcastGate:    s.Cfg.BroadcastGate(),
		PersistGate:      s.Cfg.PersistGate(),
		ProximityRadiusM: float64(s.Cfg.ProximityRadiusM),
		ETADebounce:      s.Cfg.ETADebounce(),
		DiscoveryPoll:    s.Cfg.DiscoveryPoll(),
	})
	fanout.reg = s.Sessions

	trackingGroup := s.App.Group("/tracking")

	booking.RegisterRoutes(s.App.Group("/bookings"), bookingSvc, jwtMiddleware)
	presence.RegisterRoutes(s.App.Group("/users"), presenceSvc, jwtMiddleware)
	geocode.RegisterRoutes(trackingGroup, directions)
	tracking.RegisterRoutes(trackingGroup, s.Sessions, jwtMiddleware)
	stream.RegisterRoutes(s.App.Group("/stream"), s.Stream, s.Sessions, jwtMiddleware)
}
