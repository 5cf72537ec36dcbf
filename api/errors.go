package api

import (
	"net/http"

	"github.com/cordialsys/substrate-sidecar/errors"
	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
)

// ErrorResponse is the envelope of every non-2xx reply. Kind carries the
// stable machine-readable status; Message is for humans.
type ErrorResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Kind    string `json:"kind"`
}

// httpCode maps an error status onto its HTTP code. Malformed on-chain
// data and unknown failures are integrity errors of the node or the
// sidecar, not of the caller, and report as 500. An unreachable node is
// a gateway failure, not a sidecar one.
func httpCode(status errors.Status) int {
	switch status {
	case errors.InvalidBlockID, errors.InvalidIndexFormat, errors.IndexOutOfRange:
		return http.StatusBadRequest
	case errors.NotFound:
		return http.StatusNotFound
	case errors.NetworkError:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func renderError(ctx echo.Context, err error) error {
	status := errors.StatusOf(err)
	code := httpCode(status)
	if code >= http.StatusInternalServerError {
		logrus.WithFields(logrus.Fields{
			"path": ctx.Path(),
			"kind": string(status),
		}).WithError(err).Warn("request failed")
	}
	return ctx.JSON(code, ErrorResponse{
		Code:    code,
		Message: errors.MessageOf(err),
		Kind:    string(status),
	})
}
