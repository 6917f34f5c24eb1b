package api

import (
	"net/http"

	"phonesim/pkg/api/handlers"
	"phonesim/pkg/config"
	"phonesim/pkg/sim"

	"github.com/gorilla/mux"
)

// Handler builds the versioned API router over the engine.
func Handler(svc *sim.Service, cfg *config.Config) http.Handler {
	r := mux.NewRouter()
	v1 := r.PathPrefix("/v1").Subrouter()
	handlers.RegisterPhone(v1, svc)
	return RateLimit(cfg.Server.RateLimit)(r)
}
