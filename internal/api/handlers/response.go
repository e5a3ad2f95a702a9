package handlers

import (
	"errors"
	"net/http"

	"github.com/FerDeNetlab/auramarket/internal/domain/models"
	"github.com/go-chi/render"
)

// errorResponse представляет структуру ответа с ошибкой
type errorResponse struct {
	Error   string `json:"error"`
	Code    int    `json:"code"`
	Message string `json:"message,omitempty"`
}

// response представляет структуру успешного ответа
type response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Meta    interface{} `json:"meta,omitempty"`
}

func respond(w http.ResponseWriter, r *http.Request, data, meta interface{}) {
	render.Status(r, http.StatusOK)
	render.JSON(w, r, response{
		Success: true,
		Data:    data,
		Meta:    meta,
	})
}

func respondError(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	render.Status(r, status)
	render.JSON(w, r, errorResponse{
		Error:   code,
		Code:    status,
		Message: message,
	})
}

// statusFor переводит ошибку оркестратора или хранилища в HTTP статус
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, models.ErrEntityNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, models.ErrAlreadyInFlight):
		return http.StatusConflict, "already_in_flight"
	case models.IsStoreError(err, ""):
		return http.StatusServiceUnavailable, "store_unavailable"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}
