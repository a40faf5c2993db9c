package controllers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/veloxcrm/velox/modules/core/presentation/dtos"
	"github.com/veloxcrm/velox/modules/core/services"
	"github.com/veloxcrm/velox/pkg/application"
	"github.com/veloxcrm/velox/pkg/composables"
	"github.com/veloxcrm/velox/pkg/httpapi"
	"github.com/veloxcrm/velox/pkg/middleware"
	"github.com/veloxcrm/velox/pkg/tenancy"
)

type AuthController struct {
	app         application.Application
	authService *services.AuthService
}

func NewAuthController(app application.Application) application.Controller {
	return &AuthController{
		app:         app,
		authService: app.Service(services.AuthService{}).(*services.AuthService),
	}
}

func (c *AuthController) Key() string {
	return "/auth"
}

func (c *AuthController) Register(r *mux.Router) {
	router := r.PathPrefix("/auth").Subrouter()
	router.Use(
		middleware.RequireTenantFromHost(),
		middleware.IPRateLimitPeriod(10, time.Minute),
	)
	router.HandleFunc("/login", c.Login).Methods(http.MethodPost).Name("auth.login")
	router.HandleFunc("/refresh", c.Refresh).Methods(http.MethodPost).Name("auth.refresh")
	router.HandleFunc("/logout", c.Logout).Methods(http.MethodPost).Name("auth.logout")
}

func (c *AuthController) Login(w http.ResponseWriter, r *http.Request) {
	dto := &dtos.LoginDTO{}
	if err := json.NewDecoder(r.Body).Decode(dto); err != nil {
		httpapi.WriteProblem(w, http.StatusBadRequest, "Bad Request", "Malformed request body.")
		return
	}
	if fields, ok := dto.Ok(); !ok {
		httpapi.WriteValidationProblem(w, fields)
		return
	}

	pair, err := c.authService.Login(r.Context(), dto.Email, dto.Password)
	if err != nil {
		var unresolved *tenancy.UnresolvedError
		var notFound *tenancy.NotFoundError
		var dirErr *tenancy.DirectoryError
		switch {
		case errors.As(err, &dirErr):
			composables.UseLogger(r.Context()).WithError(err).Error("tenant directory unavailable")
			httpapi.WriteProblem(w, http.StatusServiceUnavailable, "Service Unavailable", "Tenant lookup is temporarily unavailable.")
		case errors.As(err, &notFound):
			httpapi.WriteProblem(w, http.StatusNotFound, "Not Found", notFound.Error())
		case errors.As(err, &unresolved) || errors.Is(err, composables.ErrNoTenant):
			httpapi.WriteProblem(w, http.StatusBadRequest, "Bad Request", "No tenant could be determined for this host.")
		case errors.Is(err, services.ErrInvalidCredentials):
			httpapi.WriteProblem(w, http.StatusUnauthorized, "Unauthorized", "Invalid email or password.")
		case errors.Is(err, services.ErrTenantMismatch):
			httpapi.WriteProblem(w, http.StatusForbidden, "Forbidden", "You are not a member of this workspace.")
		default:
			composables.UseLogger(r.Context()).WithError(err).Error("login failed")
			httpapi.WriteProblem(w, http.StatusInternalServerError, "Internal Server Error", "An unexpected error occurred.")
		}
		return
	}
	httpapi.WriteJSON(w, http.StatusOK, dtos.NewTokenPairResponse(pair))
}

func (c *AuthController) Refresh(w http.ResponseWriter, r *http.Request) {
	dto := &dtos.RefreshDTO{}
	if err := json.NewDecoder(r.Body).Decode(dto); err != nil {
		httpapi.WriteInvalidToken(w)
		return
	}
	if _, ok := dto.Ok(); !ok {
		httpapi.WriteInvalidToken(w)
		return
	}

	pair, err := c.authService.Refresh(r.Context(), dto.RefreshToken)
	if err != nil {
		if errors.Is(err, services.ErrRefreshTokenInvalid) {
			httpapi.WriteInvalidToken(w)
			return
		}
		composables.UseLogger(r.Context()).WithError(err).Error("refresh failed")
		httpapi.WriteProblem(w, http.StatusInternalServerError, "Internal Server Error", "An unexpected error occurred.")
		return
	}
	httpapi.WriteJSON(w, http.StatusOK, dtos.NewTokenPairResponse(pair))
}

func (c *AuthController) Logout(w http.ResponseWriter, r *http.Request) {
	if err := c.authService.Logout(r.Context()); err != nil {
		composables.UseLogger(r.Context()).WithError(err).Error("logout failed")
		httpapi.WriteProblem(w, http.StatusInternalServerError, "Internal Server Error", "An unexpected error occurred.")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
