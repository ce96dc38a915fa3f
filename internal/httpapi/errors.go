package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/hedgehog/ivdmiddleware/internal/apperrors"
)

var statusByKind = map[apperrors.Kind]int{
	apperrors.KindNotFound:               http.StatusNotFound,
	apperrors.KindConflict:                http.StatusConflict,
	apperrors.KindInvalidInput:            http.StatusBadRequest,
	apperrors.KindImmutable:               http.StatusConflict,
	apperrors.KindInvalidStateTransition:  http.StatusConflict,
	apperrors.KindUnauthorized:            http.StatusUnauthorized,
	apperrors.KindForbidden:               http.StatusForbidden,
	apperrors.KindUpstreamFailure:         http.StatusBadGateway,
	apperrors.KindInternal:                http.StatusInternalServerError,
}

type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Detail  string `json:"detail,omitempty"`
}

// WriteError maps err to an HTTP status via its apperrors.Kind and writes a
// JSON body. detail is omitted in production for Internal/UpstreamFailure
// errors, since those messages may wrap driver/adapter internals.
func WriteError(w http.ResponseWriter, logger *zap.SugaredLogger, environment string, err error) {
	kind := apperrors.KindOf(err)
	status, ok := statusByKind[kind]
	if !ok {
		status = http.StatusInternalServerError
	}

	message := http.StatusText(status)
	var appErr *apperrors.Error
	if errors.As(err, &appErr) {
		message = appErr.Message
	}

	body := errorBody{Error: string(kind), Message: message, Detail: err.Error()}
	if environment == "production" && (kind == apperrors.KindInternal || kind == apperrors.KindUpstreamFailure) {
		body.Detail = ""
		logger.Errorw("request failed", "kind", kind, "error", err)
	}

	writeJSON(w, status, body)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
