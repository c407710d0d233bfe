package handlers

import (
	"net/http"
	"net/netip"
	"strings"
	"time"

	"github.com/eduguide/backend/internal/cache"
	"github.com/eduguide/backend/internal/metrics"
	mW "github.com/eduguide/backend/internal/middleware"
	"github.com/eduguide/backend/internal/services"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	httpSwagger "github.com/swaggo/http-swagger"
	"go.uber.org/zap"
)

// RouterConfig is what NewRouter wires together.
type RouterConfig struct {
	Auth          *AuthHandler
	Links         *LinkHandler
	Profiles      *ProfileHandler
	Authenticator *mW.Authenticator

	// APILimiter applies to every /api route, AuthLimiter additionally to
	// login and forgot-password. Either may be nil.
	APILimiter  *cache.RateLimiter
	AuthLimiter *cache.RateLimiter

	// TrustedProxies may set the client address through X-Forwarded-For.
	// Rate limits key on that address.
	TrustedProxies []netip.Prefix

	AllowedOrigins []string
	RequestTimeout time.Duration
	Environment    string
	StaticDir      string
	SwaggerURL     string
	Logger         *zap.Logger
}

type HealthResponse struct {
	Status      string    `json:"status" example:"OK"`
	Timestamp   time.Time `json:"timestamp"`
	Environment string    `json:"environment" example:"development"`
}

func NewRouter(cfg RouterConfig) http.Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}

	r := chi.NewRouter()

	r.Use(mW.SecurityHeaders)
	r.Use(middleware.RequestID)
	r.Use(mW.RealIP(cfg.TrustedProxies))
	r.Use(middleware.RequestLogger(&middleware.DefaultLogFormatter{
		Logger:  zap.NewStdLog(logger.Named("http")),
		NoColor: true,
	}))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(timeout))
	r.Use(metrics.Middleware)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Retry-After", "X-RateLimit-Limit", "X-RateLimit-Remaining"},
		AllowCredentials: true,
		MaxAge:           86400,
	}))

	r.Handle("/metrics", metrics.Handler())

	swaggerURL := cfg.SwaggerURL
	if swaggerURL == "" {
		swaggerURL = "/swagger/doc.json"
	}
	r.Get("/swagger/*", httpSwagger.Handler(httpSwagger.URL(swaggerURL)))

	r.Route("/api", func(r chi.Router) {
		r.Use(mW.RateLimit(cfg.APILimiter, logger))

		r.Get("/health", health(cfg.Environment))

		authLimit := mW.RateLimit(cfg.AuthLimiter, logger)
		requireAuth := cfg.Authenticator.RequireAuth

		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", cfg.Auth.Register)
			r.With(authLimit).Post("/login", cfg.Auth.Login)
			r.With(authLimit).Post("/login/2fa", cfg.Auth.LoginTwoFactor)
			r.With(authLimit).Post("/forgot-password", cfg.Auth.ForgotPassword)
			r.Post("/reset-password", cfg.Auth.ResetPassword)
			r.Post("/verify-email", cfg.Auth.VerifyEmail)

			r.Group(func(r chi.Router) {
				r.Use(requireAuth)

				r.Post("/logout", cfg.Auth.Logout)
				r.Post("/resend-verification", cfg.Auth.ResendVerification)
				r.Post("/send-phone-code", cfg.Auth.SendPhoneCode)
				r.Post("/verify-phone", cfg.Auth.VerifyPhone)
				r.Post("/setup-2fa", cfg.Auth.SetupTwoFactor)
				r.Post("/verify-2fa", cfg.Auth.VerifyTwoFactor)
				r.Post("/disable-2fa", cfg.Auth.DisableTwoFactor)

				r.Post("/link-users", cfg.Links.LinkUsers)
				r.Get("/linked-users", cfg.Links.LinkedUsers)
				r.Get("/search-users", cfg.Links.SearchUsers)
			})
		})

		r.Route("/user", func(r chi.Router) {
			r.Use(requireAuth)

			r.Get("/profile", cfg.Profiles.GetProfile)
			r.Put("/profile", cfg.Profiles.UpdateProfile)
			r.Post("/test-result", cfg.Profiles.SaveTestResult)
			r.Get("/test-results", cfg.Profiles.ListTestResults)
			r.Post("/recommendation", cfg.Profiles.SaveRecommendation)
			r.Get("/recommendations", cfg.Profiles.ListRecommendations)
			r.Put("/recommendation/{id}", cfg.Profiles.UpdateRecommendation)
			r.Put("/preferences", cfg.Profiles.UpdatePreferences)
			r.Delete("/account", cfg.Profiles.DeleteAccount)
		})

		r.NotFound(routeNotFound)
	})

	if cfg.StaticDir != "" {
		r.Handle("/*", mW.StaticFileServer(cfg.StaticDir))
	} else {
		r.NotFound(routeNotFound)
	}

	return r
}

// health reports liveness
// @Summary Health check
// @Tags system
// @Produce json
// @Success 200 {object} HealthResponse
// @Router /health [get]
func health(environment string) http.HandlerFunc {
	if environment == "" {
		environment = "development"
	}
	return func(w http.ResponseWriter, r *http.Request) {
		services.SendJSON(w, http.StatusOK, HealthResponse{
			Status:      "OK",
			Timestamp:   time.Now().UTC(),
			Environment: environment,
		})
	}
}

func routeNotFound(w http.ResponseWriter, r *http.Request) {
	msg := "Route not found"
	if strings.HasPrefix(r.URL.Path, "/api/") {
		msg = "Route not found: " + r.Method + " " + r.URL.Path
	}
	services.SendErrorResponse(w, msg, http.StatusNotFound, nil)
}
