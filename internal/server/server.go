package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/prostay/apiserver/config"
	"github.com/prostay/apiserver/internal/auth"
	"github.com/prostay/apiserver/internal/db"
	"github.com/prostay/apiserver/internal/handlers"
	"github.com/prostay/apiserver/internal/logger"
	"github.com/prostay/apiserver/internal/metrics"
	"github.com/prostay/apiserver/internal/mq"
	"github.com/prostay/apiserver/internal/services"
	"github.com/prostay/apiserver/internal/storage"
	"github.com/prostay/apiserver/internal/store"
)

// Server wraps the HTTP server and router.
type Server struct {
	httpServer *http.Server
	router     *chi.Mux
	db         *sql.DB
	bus        *mq.Bus
	logger     *slog.Logger
}

// New opens the database, storage and event bus and mounts every route.
func New(ctx context.Context, cfg config.Config, log *slog.Logger) (*Server, error) {
	dbConn, err := db.Open(ctx, cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	objectStorage, err := storage.NewFromConfig(ctx, cfg.Storage)
	if err != nil {
		_ = dbConn.Close()
		return nil, fmt.Errorf("init storage: %w", err)
	}

	bus, err := mq.NewFromConfig(ctx, cfg.MQ, log)
	if err != nil {
		_ = dbConn.Close()
		return nil, fmt.Errorf("init event bus: %w", err)
	}

	userRepo := store.NewUserRepository(dbConn)
	propertyRepo := store.NewPropertyRepository(dbConn)
	favoriteRepo := store.NewFavoriteRepository(dbConn)
	bookingRepo := store.NewBookingRepository(dbConn)
	paymentRepo := store.NewPaymentRepository(dbConn)

	// A nil *storage.Storage must not leak into the interfaces as a non-nil value.
	var images services.ImageStore
	var opener handlers.ImageOpener
	if objectStorage != nil {
		images = objectStorage
		opener = objectStorage
	}

	userService := services.NewUserService(userRepo, images)
	propertyService := services.NewPropertyService(propertyRepo, images, bus)
	favoriteService := services.NewFavoriteService(favoriteRepo, propertyRepo)
	bookingService := services.NewBookingService(bookingRepo, propertyRepo, bus)
	paymentService := services.NewPaymentService(paymentRepo, bus)
	statsService := services.NewStatsService(userRepo, propertyRepo, bookingRepo, paymentRepo)

	authenticator, err := auth.New(userService, auth.Config{
		Secret:       cfg.Auth.JWTSecret,
		TokenTTL:     cfg.Auth.TokenTTL,
		CookieName:   cfg.Auth.CookieName,
		CookieSecure: cfg.Auth.CookieSecure,
		CookieDomain: cfg.Auth.CookieDomain,
	})
	if err != nil {
		_ = bus.Close()
		_ = dbConn.Close()
		return nil, err
	}
	authenticator.OnReject(func(r *http.Request, err error) {
		metrics.AuthRejectionsTotal.WithLabelValues(auth.Reason(err)).Inc()
		log.DebugContext(r.Context(), "request rejected", "path", r.URL.Path, "reason", auth.Reason(err))
	})

	dashboard := handlers.NewDashboardHandler(propertyService, bookingService, paymentService, statsService)

	router := chi.NewRouter()
	router.Use(
		middleware.RequestID,
		middleware.RealIP,
		logger.StructuredLogger(log),
		middleware.Recoverer,
		metrics.Instrument,
		middleware.Timeout(cfg.RequestTimeout),
		cors.Handler(cors.Options{
			AllowedOrigins:   cfg.CORS.AllowedOrigins,
			AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
			AllowCredentials: true,
			MaxAge:           300,
		}),
	)

	router.Get("/healthz", handlers.Healthz(dbConn))
	router.Handle("/metrics", promhttp.Handler())
	router.Route("/auth", func(r chi.Router) {
		handlers.AuthRouter(r, authenticator, userService, cfg.Auth.LoginRateLimit)
	})
	router.Route("/properties", func(r chi.Router) {
		handlers.PropertyRouter(r, propertyService, authenticator)
	})
	router.Route("/favorites", func(r chi.Router) {
		handlers.FavoriteRouter(r, favoriteService, authenticator)
	})
	router.Route("/bookings", func(r chi.Router) {
		handlers.BookingRouter(r, bookingService, authenticator)
	})
	router.Route("/payments", func(r chi.Router) {
		handlers.PaymentRouter(r, paymentService, authenticator)
	})
	router.Route("/users", func(r chi.Router) {
		handlers.UserRouter(r, userService, authenticator)
	})
	router.Route("/landlord", func(r chi.Router) {
		handlers.LandlordRouter(r, dashboard, authenticator)
	})
	router.Route("/admin", func(r chi.Router) {
		handlers.AdminRouter(r, dashboard, authenticator)
	})
	router.Route("/images", func(r chi.Router) {
		handlers.ImageRouter(r, opener)
	})

	port := cfg.ServerPort
	if port == 0 {
		port = 8081
	}

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.RequestTimeout + 5*time.Second,
		IdleTimeout:  60 * time.Second,
		ErrorLog:     slog.NewLogLogger(log.Handler(), slog.LevelError),
	}

	return &Server{
		httpServer: httpServer,
		router:     router,
		db:         dbConn,
		bus:        bus,
		logger:     log,
	}, nil
}

// Router exposes the chi router for route registration.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// Start runs the HTTP server until Shutdown is called.
func (s *Server) Start() error {
	s.logger.Info("server listening", "addr", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests, then closes the bus and the pool.
func (s *Server) Shutdown(ctx context.Context) error {
	err := s.httpServer.Shutdown(ctx)
	if s.bus != nil {
		if closeErr := s.bus.Close(); closeErr != nil {
			s.logger.Warn("close event bus", "error", closeErr)
		}
	}
	if s.db != nil {
		_ = s.db.Close()
	}
	return err
}
