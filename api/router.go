package api

import (
	"net/http"

	"github.com/MonkyMars/gecho"
	httpSwagger "github.com/swaggo/http-swagger/v2"
	"gorm.io/gorm"

	"github.com/CLDWare/pollroom-backend/config"
	_ "github.com/CLDWare/pollroom-backend/docs"
	"github.com/CLDWare/pollroom-backend/internal/handlers"
	"github.com/CLDWare/pollroom-backend/internal/metrics"
	"github.com/CLDWare/pollroom-backend/internal/middleware"
	"github.com/CLDWare/pollroom-backend/internal/store"
)

// API holds the API dependencies
type API struct {
	db *gorm.DB

	versionHandler        *handlers.VersionHandler
	websocketHandler      *handlers.WebsocketHandler
	pollHandler           *handlers.PollHandler
	authenticationHandler *handlers.AuthenticationHandler
	userHandler           *handlers.UserHandler
	metricsHandler        *handlers.MetricsHandler
}

// NewAPI creates a new API instance. The timer manager is shared
// between the store and the websocket handler: the handler arms
// question countdowns, the store cancels them on close and teardown.
func NewAPI(db *gorm.DB) *API {
	cfg := config.Get()

	timers := store.NewTimerManager()
	pollStore := store.New(cfg.Poll, timers)
	serverMetrics := metrics.New()

	return &API{
		db:                    db,
		versionHandler:        handlers.NewVersionHandler(cfg),
		websocketHandler:      handlers.NewWebsocketHandler(cfg, db, pollStore, timers, serverMetrics),
		pollHandler:           handlers.NewPollHandler(cfg, db, pollStore),
		authenticationHandler: handlers.NewAuthenticationHandler(cfg, db),
		userHandler:           handlers.NewUserHandler(cfg, db),
		metricsHandler:        handlers.NewMetricsHandler(serverMetrics),
	}
}

// CreateMux creates and configures the HTTP mux
func (api *API) CreateMux() *http.ServeMux {
	mux := http.NewServeMux()
	api.setupRoutes(mux)
	return mux
}

// setupRoutes configures all the routes.
func (api *API) setupRoutes(mux *http.ServeMux) {
	authMW := middleware.AuthenticationMiddleware{DB: api.db}

	// Version route
	mux.HandleFunc("/v", api.versionHandler.GetVersion)
	// Websocket connection
	mux.HandleFunc("/ws", api.websocketHandler.InitialiseWebsocket)

	// Authentication
	mux.HandleFunc("/login", api.authenticationHandler.GetLogin)
	mux.HandleFunc("/oauth2callback", api.authenticationHandler.GetOAuthCallback)
	mux.HandleFunc("/me", authMW.Required(api.userHandler.GetMe))

	// Poll REST surface
	mux.HandleFunc("/api/polls", authMW.Required(api.pollHandler.PostPoll))
	mux.HandleFunc("/api/polls/{pollId}", api.pollHandler.GetPoll)
	mux.HandleFunc("/api/polls/{pollId}/results", api.pollHandler.GetPollResults)
	mux.HandleFunc("/api/health", api.pollHandler.GetHealth)

	// Observability
	mux.HandleFunc("/metrics", api.metricsHandler.GetMetrics)

	// Swagger documentation
	mux.Handle("/swagger/", httpSwagger.WrapHandler)

	// fallback route - must be last because it matches all routes.
	mux.HandleFunc("/", fallBack)
}

// ApplyMiddleware applies middleware to a handler
func ApplyMiddleware(handler http.Handler) http.Handler {
	return middleware.LoggingMiddleware(
		middleware.CORSMiddleware(handler),
	)
}

func fallBack(w http.ResponseWriter, r *http.Request) {
	gecho.NotFound(w).Send()
}
