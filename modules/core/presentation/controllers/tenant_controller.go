package controllers

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/veloxcrm/velox/modules/core/domain/entities/principal"
	"github.com/veloxcrm/velox/modules/core/presentation/dtos"
	"github.com/veloxcrm/velox/modules/core/services"
	"github.com/veloxcrm/velox/pkg/application"
	"github.com/veloxcrm/velox/pkg/composables"
	"github.com/veloxcrm/velox/pkg/httpapi"
	"github.com/veloxcrm/velox/pkg/middleware"
)

type TenantController struct {
	app           application.Application
	tenantService *services.TenantService
	cache         *middleware.CacheRegistry
}

func NewTenantController(app application.Application, cache *middleware.CacheRegistry) application.Controller {
	return &TenantController{
		app:           app,
		tenantService: app.Service(services.TenantService{}).(*services.TenantService),
		cache:         cache,
	}
}

func (c *TenantController) Key() string {
	return "/tenant"
}

func (c *TenantController) Register(r *mux.Router) {
	router := r.PathPrefix("/").Subrouter()
	router.Use(middleware.RequireTenantFromHost())

	router.HandleFunc("/tenant", c.Get).Methods(http.MethodGet).Name("tenant.get")
	router.HandleFunc("/me", c.Me).Methods(http.MethodGet).Name("tenant.me")

	c.cache.Cacheable("tenant.get", middleware.CachePolicy{TTL: 30 * time.Second})
}

func (c *TenantController) Get(w http.ResponseWriter, r *http.Request) {
	t, err := c.tenantService.Current(r.Context())
	if err != nil {
		composables.UseLogger(r.Context()).WithError(err).Error("tenant lookup failed")
		httpapi.WriteProblem(w, http.StatusInternalServerError, "Internal Server Error", "An unexpected error occurred.")
		return
	}
	httpapi.WriteJSON(w, http.StatusOK, dtos.NewTenantResponse(t))
}

func (c *TenantController) Me(w http.ResponseWriter, r *http.Request) {
	p := principal.FromContext(r.Context())
	if !p.Authenticated() {
		httpapi.WriteProblem(w, http.StatusUnauthorized, "Unauthorized", "Authentication required.")
		return
	}
	httpapi.WriteJSON(w, http.StatusOK, dtos.NewPrincipalResponse(p))
}
