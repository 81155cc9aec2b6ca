package http

import (
	"net/http"

	"toolrent-backend/internal/domain"
	"toolrent-backend/internal/logger"
)

type errorBody struct {
	Error *domain.Error `json:"error"`
}

// StatusFor maps an engine error to its HTTP status. Errors that are not
// business outcomes are storage failures: the caller may retry.
func StatusFor(err error) int {
	de, ok := domain.AsError(err)
	if !ok {
		return http.StatusServiceUnavailable
	}
	switch de.Kind {
	case domain.KindValidation:
		return http.StatusBadRequest
	case domain.KindNotFound:
		return http.StatusNotFound
	case domain.KindForbidden:
		return http.StatusForbidden
	case domain.KindInvalidStateTransition, domain.KindAlreadyRetired, domain.KindAlreadyPaid:
		return http.StatusConflict
	case domain.KindNoUnitsAvailable, domain.KindIneligibleCustomer:
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := StatusFor(err)
	de, ok := domain.AsError(err)
	if !ok {
		logger.ErrorContext(r.Context(), "Request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		de = &domain.Error{Kind: "UNAVAILABLE", Message: "storage temporarily unavailable, retry later"}
	} else if status >= http.StatusInternalServerError {
		logger.ErrorContext(r.Context(), "Unmapped business error", "kind", de.Kind, "error", err)
	}
	writeJSON(w, status, errorBody{Error: de})
}

func writeUnauthenticated(w http.ResponseWriter, message string) {
	writeJSON(w, http.StatusUnauthorized, errorBody{Error: &domain.Error{Kind: "UNAUTHENTICATED", Message: message}})
}
