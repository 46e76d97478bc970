package controller

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

func (c controller) GetMux() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(c.requestIdMw)
	r.Use(c.requestLoggingMw)
	r.Use(cors.AllowAll().Handler)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
			w.Write([]byte("OK"))
		})
		r.Route("/rooms", func(r chi.Router) {
			r.Post("/", c.createRoom)
			r.Route("/{room-id}", func(r chi.Router) {
				r.Use(c.roomIdMw)
				r.Get("/", c.getRoom)
				r.Get("/player", c.getPlayer)
				r.Patch("/player", c.updatePlayer)
				r.Post("/participants", c.joinRoom)
				r.Delete("/participants/me", c.leaveRoom)
				r.Post("/host", c.claimHost)
				r.Post("/messages", c.addMessage)
				r.Post("/reactions", c.addReaction)
			})
		})
		r.Route("/ws/rooms/{room-id}", func(r chi.Router) {
			r.Use(c.roomIdMw)
			r.Get("/", c.watchRoom)
		})
		r.Route("/admin", func(r chi.Router) {
			r.Use(c.adminMw)
			r.Get("/rooms", c.listRooms)
			r.Delete("/rooms/{room-id}", c.deleteRoom)
		})
	})

	return r
}
