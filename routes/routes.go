package routes

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/Dosada05/tournament-teams/docs"
	"github.com/Dosada05/tournament-teams/handlers"
	"github.com/Dosada05/tournament-teams/middleware"
	"github.com/Dosada05/tournament-teams/models"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware" // Alias to avoid conflict
	"github.com/go-chi/cors"
	httpSwagger "github.com/swaggo/http-swagger"
)

const requestTimeout = 30 * time.Second

type Options struct {
	JWTSecret      []byte
	AllowedOrigins []string
	Logger         *slog.Logger
}

func SetupRoutes(
	router chi.Router,
	opts Options,
	teamHandler *handlers.TeamHandler,
	playerHandler *handlers.PlayerHandler,
	webSocketHandler *handlers.WebSocketHandler,
) {
	router.Use(chiMiddleware.RealIP)
	router.Use(middleware.RequestLogger(opts.Logger))
	router.Use(chiMiddleware.Recoverer)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   opts.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", middleware.RequestIDHeader},
		ExposedHeaders:   []string{middleware.RequestIDHeader},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	router.Get("/swagger/doc.json", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(docs.SwaggerJSON)
	})
	router.Get("/swagger/*", httpSwagger.Handler(httpSwagger.URL("/swagger/doc.json")))

	// вебсокет живет вне таймаута, соединение долгое
	router.Get("/ws/bracket", webSocketHandler.ServeWs)

	authenticate := middleware.Authenticate(opts.JWTSecret)

	router.Route("/api", func(r chi.Router) {
		r.Use(chiMiddleware.Timeout(requestTimeout))

		r.Route("/teams", func(r chi.Router) {
			// Публичные маршруты
			r.Get("/code/{code}", teamHandler.GetByCode)
			r.Get("/search", teamHandler.Search)

			// Администрирование сетки
			r.Group(func(r chi.Router) {
				r.Use(authenticate)
				r.Use(middleware.Authorize(models.RoleAdmin))

				r.Post("/bracket", teamHandler.BuildBracket)
				r.Delete("/bracket", teamHandler.DeactivateBracket)
				r.Get("/", teamHandler.ListTeams)
				r.Get("/stats", teamHandler.Stats)
				r.Get("/groups", teamHandler.GroupStats)
			})

			// Игрок сам выбирает команду
			r.Group(func(r chi.Router) {
				r.Use(authenticate)
				r.Use(middleware.Authorize(models.RolePlayer))

				r.Post("/join", teamHandler.JoinByCode)
				r.Post("/join/random", teamHandler.JoinRandom)
				r.Get("/me", teamHandler.MyStatus)
			})
		})

		r.Route("/players", func(r chi.Router) {
			r.Use(authenticate)
			r.Use(middleware.Authorize(models.RoleAdmin, models.RoleCoach))

			r.Post("/", playerHandler.Register)
			r.Get("/{playerID}", playerHandler.GetByID)
		})
	})
}
