package utils

import (
	"errors"
	"net/http"

	"github.com/go-chi/render"
)

type ErrorType struct {
	Code        int
	Description string
}

var (
	ErrInvalid         = ErrorType{http.StatusBadRequest, "Invalid request"}
	ErrUnAuthorized    = ErrorType{http.StatusUnauthorized, "Do I know you?"}
	ErrForbidden       = ErrorType{http.StatusForbidden, "Not yours to touch"}
	ErrNotFound        = ErrorType{http.StatusNotFound, "Not found"}
	ErrConflict        = ErrorType{http.StatusConflict, "Somebody got there first"}
	ErrTooManyRequests = ErrorType{http.StatusTooManyRequests, "Slow down"}
	ErrInternal        = ErrorType{http.StatusInternalServerError, "Internal Server Error"}
	ErrBadGateway      = ErrorType{http.StatusBadGateway, "Upstream unavailable"}
)

type ErrorResponse struct {
	Error  string `json:"error"`
	Status int    `json:"status,omitempty"`
}

// StatusError is implemented by errors that carry the HTTP status of a failed
// upstream call.
type StatusError interface {
	error
	StatusCode() int
}

func HandleError(errType ErrorType, err error, w http.ResponseWriter, r *http.Request, msg *string) {
	errMsg := errType.Description
	if msg != nil && len(*msg) > 0 {
		errMsg = *msg
	}

	if err != nil {
		Log.Warnw(errMsg, "status", errType.Code, "path", r.URL.Path, "error", err)
	} else {
		Log.Debugw(errMsg, "status", errType.Code, "path", r.URL.Path)
	}

	render.Status(r, errType.Code)
	render.JSON(w, r, ErrorResponse{Error: errMsg})
}

// HandleUpstreamError surfaces the status and message of a failed upstream API
// call as-is. Errors without a status are treated as a bad gateway.
func HandleUpstreamError(err error, w http.ResponseWriter, r *http.Request) {
	var statusErr StatusError
	if !errors.As(err, &statusErr) || statusErr.StatusCode() < 400 {
		HandleError(ErrBadGateway, err, w, r, nil)
		return
	}

	Log.Warnw("[UPSTREAM] request failed", "status", statusErr.StatusCode(), "path", r.URL.Path, "error", err)

	render.Status(r, statusErr.StatusCode())
	render.JSON(w, r, ErrorResponse{Error: statusErr.Error(), Status: statusErr.StatusCode()})
}
