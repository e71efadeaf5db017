package http

import (
	"context"
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/geocoder89/eventparser/internal/access"
	"github.com/geocoder89/eventparser/internal/auth"
	"github.com/geocoder89/eventparser/internal/http/handlers"
	"github.com/geocoder89/eventparser/internal/http/middlewares"
	"github.com/geocoder89/eventparser/internal/objectstore"
	"github.com/geocoder89/eventparser/internal/observability"
)

// UserStore is everything the HTTP layer needs from user storage.
type UserStore interface {
	handlers.UserAccounts
	handlers.AccountStore
}

// EventStore is everything the HTTP layer needs from event storage.
type EventStore interface {
	handlers.EventsStore
	handlers.UserEventsReader
	handlers.EventImageStore
}

type Deps struct {
	Log         *slog.Logger
	Env         string
	ServiceName string
	Prom        *observability.Prom
	JWT         *auth.Manager

	Users  UserStore
	Events EventStore
	Ledger handlers.Ledger
	// Ping checks the database; nil means in-memory storage.
	Ping func(ctx context.Context) error

	// Parser and Uploader stay nil when their cloud integration is off.
	Parser   handlers.ImageParser
	Uploader objectstore.Uploader

	RateStore      middlewares.WindowStore
	AuthRateLimit  int
	AuthRateWindow time.Duration

	CORSOrigins    []string
	MaxBodyBytes   int64
	MaxUploadBytes int64
}

const (
	routeLogin       = "/auth/login"
	routeRegister    = "/auth/register"
	routeParseImage  = "/events/parse_image"
	routeUploadImage = "/events/:id/image"
)

func NewRouter(d Deps) *gin.Engine {
	if d.Env != "dev" {
		gin.SetMode(gin.ReleaseMode)
	}
	if d.Log == nil {
		d.Log = slog.Default()
	}
	if d.MaxBodyBytes <= 0 {
		d.MaxBodyBytes = 1 << 20
	}

	handlers.RegisterValidators()

	r := gin.New()

	r.Use(gin.Recovery())
	r.Use(otelgin.Middleware(d.ServiceName))
	r.Use(middlewares.RequestID())
	r.Use(middlewares.RequestLogger(d.Log))
	if d.Prom != nil {
		r.Use(d.Prom.GinHandleMiddleware())
	}
	r.Use(middlewares.SecurityHeaders())
	r.Use(middlewares.CORSMiddleware(d.CORSOrigins))
	// auth runs before any body checks so anonymous callers only ever see 401
	r.Use(middlewares.NewAccessGuard(access.DefaultPolicy(), d.JWT, d.Users, d.Log).Enforce())
	r.Use(middlewares.MaxBodyBytes(d.MaxBodyBytes, d.MaxUploadBytes+(1<<20), routeParseImage, routeUploadImage))
	r.Use(middlewares.RequireJSON(routeLogin, routeRegister, routeParseImage, routeUploadImage))

	withID := middlewares.WithIdentity

	// public
	health := handlers.NewHealthHandler(d.Ping)
	r.GET("/health", health.Health)
	r.GET("/docs", handlers.SwaggerUI)
	r.GET("/docs/openapi.yaml", handlers.OpenAPI)
	r.GET("/openapi.json", handlers.OpenAPI)

	authLimiter := middlewares.NewRateLimiter(d.RateStore, d.AuthRateLimit, d.AuthRateWindow, d.Log)
	authHandler := handlers.NewAuthHandler(d.Users, d.JWT)
	authGroup := r.Group("/auth", authLimiter.RateLimiterMiddleware(middlewares.KeyByIP))
	{
		authGroup.POST("/register", authHandler.Register)
		authGroup.POST("/login", authHandler.Login)
	}

	// events
	eventsHandler := handlers.NewEventsHandler(d.Events, d.Log)
	registrationHandler := handlers.NewRegistrationHandler(d.Ledger, d.Prom)
	postersHandler := handlers.NewPostersHandler(d.Parser, d.Uploader, d.Events, d.MaxUploadBytes)

	r.GET("/events", eventsHandler.ListEvents)
	r.POST("/events/create", withID(eventsHandler.CreateEvent))
	r.POST(routeParseImage, withID(postersHandler.ParseImage))
	r.GET("/events/:id", eventsHandler.GetEvent)
	r.PATCH("/events/:id", withID(eventsHandler.PatchEvent))
	r.DELETE("/events/:id", withID(eventsHandler.DeleteEvent))
	r.POST(routeUploadImage, withID(postersHandler.UploadImage))
	r.GET("/events/:id/qrcode", eventsHandler.QRCode)
	r.POST("/events/:id/register", withID(registrationHandler.Register))
	r.DELETE("/events/:id/unregister", withID(registrationHandler.Unregister))

	// account
	usersHandler := handlers.NewUsersHandler(d.Users, d.Events)
	r.GET("/users/me", withID(usersHandler.Me))
	r.DELETE("/users/me", withID(usersHandler.DeleteMe))
	r.PATCH("/users/me/password", withID(usersHandler.ChangePassword))

	return r
}
