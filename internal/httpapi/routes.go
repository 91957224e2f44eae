package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/DoyleJ11/rally-backend/internal/hub"
	"github.com/DoyleJ11/rally-backend/internal/profile"
	"github.com/DoyleJ11/rally-backend/internal/ws"
)

type Deps struct {
	Hub            *hub.Hub
	Profiles       profile.Store
	AllowedOrigins []string
	Logger         *zap.Logger
}

func SetupRoutes(d Deps) http.Handler {
	log := d.Logger
	if log == nil {
		log = zap.NewNop()
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(log))
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: d.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-Id"},
		MaxAge:         300,
	}))

	// Public routes
	r.Get("/healthz", Healthz)
	r.Route("/api", func(r chi.Router) {
		r.Get("/skills", Skills)
		r.Get("/rooms", ListRooms(d.Hub))
		r.Post("/room/create", CreateRoom(d.Hub, log))
		r.Get("/room/{roomID}/qr", RoomQR(d.Hub))
		r.Get("/player/{username}", GetPlayer(d.Profiles, log))
		r.Post("/player/save", SavePlayer(d.Profiles, log))
	})
	r.Get("/ws/{roomID}/{username}", ws.Handler(d.Hub, d.Profiles, ws.Options{
		AllowedOrigins: d.AllowedOrigins,
		Logger:         log,
	}))
	return r
}

func requestLogger(log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			log.Info("http request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Int("bytes", ww.BytesWritten()),
				zap.Duration("took", time.Since(start)),
				zap.String("request_id", middleware.GetReqID(r.Context())))
		})
	}
}
