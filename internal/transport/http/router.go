package http

import (
	"net/http"
	"time"

	"github.com/cwrk-planet/chat-service/internal/metrics"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

type Deps struct {
	Auth           AuthService
	Colors         ColorSource
	Rooms          RoomLister
	Deleter        RoomDeleter
	Tokens         Authenticator
	WS             http.HandlerFunc
	AllowedOrigins []string
}

func NewRouter(d Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(WithRequestLogger)
	r.Use(RequestLogger)
	r.Use(metrics.Middleware)

	origins := d.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Handle("/metrics", metrics.Handler())

	if d.WS != nil {
		r.Get("/ws", d.WS)
	}

	ah := &AuthHandlers{Auth: d.Auth, Colors: d.Colors}
	r.Group(func(pr chi.Router) {
		pr.Use(middleware.Timeout(30 * time.Second))
		pr.Post("/auth/register", ah.Register)
		pr.Post("/auth/login", ah.Login)
	})

	rh := &RoomHandlers{Rooms: d.Rooms, Deleter: d.Deleter}
	r.Group(func(pr chi.Router) {
		pr.Use(RequireAuth(d.Tokens))
		pr.Use(middleware.Timeout(30 * time.Second))

		pr.Get("/rooms", rh.List)
		pr.Delete("/rooms/{id}", rh.Delete)
		pr.Post("/delete_room/{id}", rh.Delete)
	})

	return r
}
