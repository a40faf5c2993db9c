package controllers

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/veloxcrm/velox/pkg/application"
	"github.com/veloxcrm/velox/pkg/httpapi"
)

type HealthController struct {
	app application.Application
}

func NewHealthController(app application.Application) application.Controller {
	return &HealthController{app: app}
}

func (c *HealthController) Key() string {
	return "/health"
}

func (c *HealthController) Register(r *mux.Router) {
	r.HandleFunc("/health", c.Get).Methods(http.MethodGet).Name("health.get")
}

func (c *HealthController) Get(w http.ResponseWriter, r *http.Request) {
	if pool := c.app.DB(); pool != nil {
		if err := pool.Ping(r.Context()); err != nil {
			httpapi.WriteProblem(w, http.StatusServiceUnavailable, "Service Unavailable", "Database is unreachable.")
			return
		}
	}
	httpapi.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
