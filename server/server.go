package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/hrygo/cartsync/internal/money"
	"github.com/hrygo/cartsync/internal/profile"
	"github.com/hrygo/cartsync/server/internal/observability"
	apiv1 "github.com/hrygo/cartsync/server/router/api/v1"
	"github.com/hrygo/cartsync/server/service/cart"
	"github.com/hrygo/cartsync/server/service/video"
	"github.com/hrygo/cartsync/store"
	"github.com/hrygo/cartsync/store/cache"
)

const memoryTierCapacity = 10000

type Server struct {
	Profile *profile.Profile
	Store   *store.Store

	echoServer *echo.Echo
	cache      *cache.QueryCache
	logger     *slog.Logger
}

// NewServer builds the query cache, the cart and video services and the HTTP
// routes.
// reg may be nil, in which case a private registry is used.
func NewServer(ctx context.Context, profile *profile.Profile, st *store.Store, reg *prometheus.Registry) (*Server, error) {
	logger := slog.Default().With(slog.String("component", "server"))
	if reg == nil {
		reg = prometheus.NewRegistry()
		reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	}

	s := &Server{
		Profile: profile,
		Store:   st,
		logger:  logger,
	}

	tier, err := newTier(ctx, profile, logger)
	if err != nil {
		return nil, err
	}

	opts := []cache.Option{
		cache.WithLogger(logger.With(slog.String("component", "cache"))),
		cache.WithMetrics(cache.NewMetrics(reg)),
	}
	if tier != nil {
		opts = append(opts, cache.WithTier(tier, profile.CacheTTL))
	}
	s.cache = cache.NewQueryCache(opts...)

	formatter, err := money.NewCurrencyFormatter(profile.Currency, profile.Locale)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create price formatter")
	}

	e := echo.New()
	e.Debug = profile.IsDev()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())

	e.GET("/healthz", func(c echo.Context) error {
		return c.String(http.StatusOK, "Service ready.")
	})
	e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})))

	carts := cart.NewService(st, s.cache, logger.With(slog.String("component", "cart")))
	videos := video.NewService(st, s.cache, logger.With(slog.String("component", "video")))
	api := apiv1.NewAPIV1Service(profile, carts, videos, formatter, observability.NewMetrics(1000, reg), logger)
	api.RegisterRoutes(e)

	s.echoServer = e
	return s, nil
}

func newTier(ctx context.Context, profile *profile.Profile, logger *slog.Logger) (cache.Tier, error) {
	switch profile.CacheTier {
	case "", "none":
		return nil, nil
	case "memory":
		return cache.NewMemoryTier(memoryTierCapacity, profile.CacheTTL), nil
	case "redis":
		cfg := cache.DefaultRedisConfig()
		cfg.Addr = profile.RedisAddr
		cfg.Password = profile.RedisPassword
		cfg.DB = profile.RedisDB
		cfg.DefaultTTL = profile.CacheTTL
		tier, err := cache.NewRedisCache(ctx, cfg, logger)
		if err != nil {
			return nil, err
		}
		return tier, nil
	default:
		return nil, errors.Errorf("unknown cache tier %q: expected none, memory or redis", profile.CacheTier)
	}
}

// Handler exposes the routes, mostly for tests.
func (s *Server) Handler() http.Handler {
	return s.echoServer
}

// Start serves HTTP until Shutdown is called.
func (s *Server) Start() error {
	address := fmt.Sprintf("%s:%d", s.Profile.Addr, s.Profile.Port)
	s.logger.Info("cartsync started", slog.String("addr", address), slog.String("mode", s.Profile.Mode))
	if err := s.echoServer.Start(address); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return errors.Wrap(err, "failed to start server")
	}
	return nil
}

// Shutdown drains open requests, then closes the cache (and its tier) before
// the store.
func (s *Server) Shutdown(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := s.echoServer.Shutdown(ctx); err != nil {
		s.logger.Error("failed to shutdown http server", slog.String("error", err.Error()))
	}
	if err := s.cache.Close(); err != nil {
		s.logger.Error("failed to close query cache", slog.String("error", err.Error()))
	}
	if err := s.Store.Close(); err != nil {
		s.logger.Error("failed to close store", slog.String("error", err.Error()))
	}
	s.logger.Info("cartsync stopped")
}
