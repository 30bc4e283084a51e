package v1

import (
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/hrygo/cartsync/internal/money"
	"github.com/hrygo/cartsync/internal/profile"
	apierrors "github.com/hrygo/cartsync/server/internal/errors"
	"github.com/hrygo/cartsync/server/internal/observability"
	"github.com/hrygo/cartsync/server/middleware"
	"github.com/hrygo/cartsync/server/service/cart"
	"github.com/hrygo/cartsync/server/service/video"
)

// UserIDHeader carries the caller's user id. Authentication happens upstream.
const UserIDHeader = "X-User-ID"

const userIDContextKey = "user_id"

type APIV1Service struct {
	Profile      *profile.Profile
	CartService  cart.Service
	VideoService video.Service
	Formatter    money.Formatter
	Metrics      *observability.Metrics
	RateLimiter  *middleware.RateLimiter
	Logger       *slog.Logger
}

// NewAPIV1Service wires the handlers. videos may be nil, in which case the
// video routes are not mounted.
func NewAPIV1Service(profile *profile.Profile, carts cart.Service, videos video.Service, formatter money.Formatter, metrics *observability.Metrics, logger *slog.Logger) *APIV1Service {
	if logger == nil {
		logger = slog.Default()
	}
	if metrics == nil {
		metrics = observability.NewMetrics(0, nil)
	}
	return &APIV1Service{
		Profile:      profile,
		CartService:  carts,
		VideoService: videos,
		Formatter:    formatter,
		Metrics:      metrics,
		RateLimiter:  middleware.NewRateLimiter(profile.RateLimit, profile.RateBurst),
		Logger:       logger,
	}
}

// RegisterRoutes mounts the API under /api/v1.
func (s *APIV1Service) RegisterRoutes(e *echo.Echo) {
	api := e.Group("/api/v1", s.requestContextMiddleware)
	api.GET("/system/metrics/overview", s.GetMetricsOverview)

	limit := s.RateLimiter.Middleware(userID, func(c echo.Context) error {
		return s.writeError(c, apierrors.RateLimitExceeded("too many requests"))
	})
	carts := api.Group("/carts", s.requireUser, limit)
	carts.GET("", s.GetCartOverview)
	carts.GET("/events", s.StreamCartEvents)

	carts.GET("/personal", s.GetPersonalCart)
	carts.POST("/personal/items", s.AddPersonalItem)
	carts.PATCH("/personal/items/:id", s.UpdatePersonalItem)
	carts.DELETE("/personal/items/:id", s.DeletePersonalItem)

	carts.GET("/recipes", s.ListRecipeCarts)
	carts.GET("/recipes/:id", s.GetRecipeCart)
	carts.DELETE("/recipes/:id", s.DeleteRecipeCart)
	carts.DELETE("/recipes/:id/items/:itemId", s.DeleteRecipeCartItem)

	carts.GET("/preconfigured", s.ListPreconfiguredCarts)
	carts.POST("/preconfigured/:id/apply", s.ApplyPreconfiguredCart)

	if s.VideoService != nil {
		videos := api.Group("/videos", s.requireUser, limit)
		videos.GET("", s.ListVideos)
		videos.POST("", s.CreateVideo)
		videos.PATCH("/:id", s.UpdateVideo)
		videos.DELETE("/:id", s.DeleteVideo)
	}
}

func userID(c echo.Context) string {
	id, _ := c.Get(userIDContextKey).(string)
	return id
}

// requestContextMiddleware attaches a request-scoped logger and records the
// request in the metrics once the handler returns.
func (s *APIV1Service) requestContextMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		user := c.Request().Header.Get(UserIDHeader)
		if user != "" {
			c.Set(userIDContextKey, user)
		}
		operation := c.Request().Method + " " + c.Path()
		reqCtx := observability.NewRequestContext(s.Logger, operation, user)
		c.Response().Header().Set(echo.HeaderXRequestID, reqCtx.RequestID)
		c.SetRequest(c.Request().WithContext(observability.WithRequestContext(c.Request().Context(), reqCtx)))

		err := next(c)

		status := c.Response().Status
		if err != nil {
			if he, ok := err.(*echo.HTTPError); ok {
				status = he.Code
			}
		}
		s.Metrics.Record(operation, reqCtx.Duration(), err != nil || status >= http.StatusInternalServerError)
		reqCtx.Debug("request served",
			slog.Int(observability.LogFieldStatus, status),
			slog.Int64(observability.LogFieldDuration, reqCtx.DurationMs()))
		return err
	}
}

func (s *APIV1Service) requireUser(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if userID(c) == "" {
			return s.writeError(c, apierrors.Unauthorized("missing "+UserIDHeader+" header"))
		}
		return next(c)
	}
}

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Code    apierrors.ErrorCode `json:"code"`
	Message string              `json:"message"`
	Detail  string              `json:"detail,omitempty"`
}

func (s *APIV1Service) writeError(c echo.Context, err error) error {
	apiErr := apierrors.FromError(err)
	status := apiErr.HTTPStatus()

	resp := ErrorResponse{Code: apiErr.Code, Message: apiErr.Message}
	if apiErr.Cause != nil && (status < http.StatusInternalServerError || apiErr.Code == apierrors.ErrCodeMutationFailed) {
		resp.Detail = apiErr.Cause.Error()
	}

	logger := observability.LoggerFromContext(c.Request().Context())
	if status >= http.StatusInternalServerError {
		logger.Error("request failed",
			slog.String(observability.LogFieldErrorCode, string(apiErr.Code)),
			slog.String("error", err.Error()))
	} else {
		logger.Info("request rejected",
			slog.String(observability.LogFieldErrorCode, string(apiErr.Code)),
			slog.String("error", err.Error()))
	}
	return c.JSON(status, resp)
}
