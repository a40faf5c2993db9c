package controllers

import (
	"net/http"

	"github.com/veloxcrm/velox/pkg/httpapi"
)

func NotFound() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		httpapi.WriteProblem(w, http.StatusNotFound, "Not Found", "The requested resource does not exist.")
	})
}

func MethodNotAllowed() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		httpapi.WriteProblem(w, http.StatusMethodNotAllowed, "Method Not Allowed", "")
	})
}
