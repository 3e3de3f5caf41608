package controller

import (
	"context"
	"errors"
	"net/http"

	"github.com/nimburion/docmanager/pkg/manager"
	"github.com/nimburion/docmanager/pkg/middleware/requestid"
)

// ErrorResponse represents the consistent error response format.
type ErrorResponse struct {
	Error     string `json:"error"`
	Message   string `json:"message,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

// errUnknownCollection is returned for a collection that is not configured.
var errUnknownCollection = errors.New("unknown collection")

// MapError maps manager errors to HTTP responses. Store failures and
// anything unrecognized become a 500 without the cause in the message.
func MapError(ctx context.Context, err error) (int, ErrorResponse) {
	resp := ErrorResponse{RequestID: requestid.GetRequestID(ctx)}

	var storeErr *manager.StoreError
	switch {
	case errors.As(err, &storeErr):
		resp.Error = "store_error"
		resp.Message = "the document store failed to serve the request"
		return http.StatusInternalServerError, resp
	case errors.Is(err, manager.ErrConfiguration), errors.Is(err, errInvalidFilter):
		resp.Error = "bad_request"
		resp.Message = err.Error()
		return http.StatusBadRequest, resp
	case errors.Is(err, manager.ErrNotFound), errors.Is(err, errUnknownCollection):
		resp.Error = "not_found"
		resp.Message = err.Error()
		return http.StatusNotFound, resp
	case errors.Is(err, manager.ErrAmbiguousResult):
		resp.Error = "conflict"
		resp.Message = err.Error()
		return http.StatusConflict, resp
	default:
		resp.Error = "internal_server_error"
		resp.Message = "an unexpected error occurred"
		return http.StatusInternalServerError, resp
	}
}
