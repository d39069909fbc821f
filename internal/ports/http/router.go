package http

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	approom "github.com/vinib1903/cineus-api/internal/app/room"
	"github.com/vinib1903/cineus-api/internal/infra/media"
	"github.com/vinib1903/cineus-api/internal/ports/http/handlers"
	"github.com/vinib1903/cineus-api/internal/ports/ws"
)

// RouterConfig contém as dependências do router.
type RouterConfig struct {
	RoomService *approom.Service
	MediaClient *media.Client
	WSHandler   *ws.Handler
	DBPool      *pgxpool.Pool
}

// NewRouter cria e configura o router HTTP.
func NewRouter(cfg RouterConfig) *chi.Mux {
	r := chi.NewRouter()

	// Middlewares globais
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(Logger)
	r.Use(Recoverer)
	r.Use(CORS)

	// Handlers
	healthHandler := handlers.NewHealthHandler(cfg.DBPool)
	roomHandler := handlers.NewRoomHandler(cfg.RoomService)
	mediaHandler := handlers.NewMediaHandler(cfg.MediaClient)

	// Rotas públicas
	r.Get("/health", healthHandler.Health)
	r.Get("/ws", cfg.WSHandler.HandleConnection)
	r.Get("/ws/stats", cfg.WSHandler.GetStats)

	// Rotas da API v1
	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/rooms", func(r chi.Router) {
			r.Post("/", roomHandler.Create)
			r.Get("/{code}", roomHandler.GetByCode)
		})

		r.Route("/media", func(r chi.Router) {
			r.Get("/search", mediaHandler.Search)
			r.Get("/video", mediaHandler.GetVideo)
			r.Get("/playlist", mediaHandler.GetPlaylist)
		})
	})

	return r
}
