package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"gorm.io/gorm"

	"tonalli/internal/auth"
	"tonalli/internal/config"
	"tonalli/internal/habit"
	"tonalli/internal/http/handler"
	mw "tonalli/internal/http/middleware"
	"tonalli/internal/metrics"
	"tonalli/internal/notify"
)

func NewRouter(cfg config.Config, db *gorm.DB, jwtSvc *auth.JWT, coll *metrics.Collector) http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)

	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(mw.CORS(cfg.CORSAllowedOrigins, cfg.CORSAllowCredentials))
	}
	if cfg.RateLimitRPS > 0 {
		r.Use(mw.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst).Handler)
	}
	if coll != nil {
		r.Use(mw.Metrics(coll))
	}

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	if coll != nil {
		r.Method(http.MethodGet, "/metrics", coll.Handler())
	}

	ah := &handler.AuthHandler{DB: db, JWT: jwtSvc}
	r.Post("/auth/register", ah.Register)
	r.Post("/auth/login", ah.Login)

	me := &handler.MeHandler{DB: db}
	r.With(auth.RequireAuth(jwtSvc)).Get("/me", me.Me)

	svc := &habit.Service{DB: db}
	rh := &handler.ReminderHandler{Svc: svc}
	agh := &handler.AgendaHandler{Svc: svc}
	sh := &handler.SummaryHandler{Svc: svc}

	bot := notify.NewTelegram(nil, cfg.TelegramBotToken, slog.Default())
	var tone handler.ChatTone
	if cfg.OpenRouterAPIKey != "" {
		tone = notify.NewTone(cfg.OpenRouterAPIKey)
	}
	th := &handler.TelegramHandler{Svc: svc, DB: db, Bot: bot, Tone: tone, Logger: slog.Default()}

	r.Route("/api", func(r chi.Router) {
		// Telegram calls this directly; it authenticates by bot identity,
		// not by bearer token.
		r.Post("/telegram/webhook", th.Webhook)

		r.Group(func(r chi.Router) {
			r.Use(auth.RequireAuth(jwtSvc))

			r.Route("/reminders/{userID}", func(r chi.Router) {
				r.Get("/", rh.List)
				r.Post("/", rh.Create)
				r.Put("/{reminderID}", rh.Update)
				r.Delete("/{reminderID}", rh.Delete)
			})

			r.Route("/agenda/{userID}", func(r chi.Router) {
				r.Get("/", agh.List)
				r.Post("/", agh.Create)
				r.Delete("/{activityID}", agh.Delete)
			})

			r.Get("/summary/{userID}", sh.Get)
		})
	})

	return r
}
