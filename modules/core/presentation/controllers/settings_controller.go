package controllers

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/veloxcrm/velox/modules/core/permissions"
	"github.com/veloxcrm/velox/modules/core/presentation/dtos"
	"github.com/veloxcrm/velox/modules/core/services"
	"github.com/veloxcrm/velox/pkg/application"
	"github.com/veloxcrm/velox/pkg/composables"
	"github.com/veloxcrm/velox/pkg/httpapi"
	"github.com/veloxcrm/velox/pkg/middleware"
)

type SettingsController struct {
	app           application.Application
	tenantService *services.TenantService
	guard         *middleware.PermissionRegistry
}

func NewSettingsController(app application.Application, guard *middleware.PermissionRegistry) application.Controller {
	return &SettingsController{
		app:           app,
		tenantService: app.Service(services.TenantService{}).(*services.TenantService),
		guard:         guard,
	}
}

func (c *SettingsController) Key() string {
	return "/settings"
}

func (c *SettingsController) Register(r *mux.Router) {
	router := r.PathPrefix("/settings").Subrouter()
	router.Use(middleware.RequireTenantFromHost())

	router.HandleFunc("", c.Get).Methods(http.MethodGet).Name("settings.get")
	router.HandleFunc("", c.Update).Methods(http.MethodPut).Name("settings.update")

	c.guard.Require("settings.get", permissions.SettingsManage)
	c.guard.Require("settings.update", permissions.SettingsManage)
}

func (c *SettingsController) Get(w http.ResponseWriter, r *http.Request) {
	t, err := c.tenantService.Current(r.Context())
	if err != nil {
		composables.UseLogger(r.Context()).WithError(err).Error("settings lookup failed")
		httpapi.WriteProblem(w, http.StatusInternalServerError, "Internal Server Error", "An unexpected error occurred.")
		return
	}
	httpapi.WriteJSON(w, http.StatusOK, t.Settings())
}

func (c *SettingsController) Update(w http.ResponseWriter, r *http.Request) {
	dto := &dtos.UpdateSettingsDTO{}
	if err := json.NewDecoder(r.Body).Decode(dto); err != nil {
		httpapi.WriteProblem(w, http.StatusBadRequest, "Bad Request", "Malformed request body.")
		return
	}
	if fields, ok := dto.Ok(); !ok {
		httpapi.WriteValidationProblem(w, fields)
		return
	}

	t, err := c.tenantService.UpdateSettings(r.Context(), dto.Settings)
	if err != nil {
		composables.UseLogger(r.Context()).WithError(err).Error("settings update failed")
		httpapi.WriteProblem(w, http.StatusInternalServerError, "Internal Server Error", "An unexpected error occurred.")
		return
	}
	httpapi.WriteJSON(w, http.StatusOK, t.Settings())
}
