package client

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/dmitrijs2005/gatekeeper/internal/common"
)

var (
	ErrUnavailable = errors.New("server unavailable")
	ErrNotLoggedIn = errors.New("not logged in")
)

// mapStatus turns a non-2xx envelope into one of the shared sentinels,
// keeping the server's message as the reason.
func mapStatus(status int, message string) error {
	var sentinel error
	switch status {
	case http.StatusBadRequest, http.StatusRequestEntityTooLarge:
		sentinel = common.ErrValidation
	case http.StatusUnauthorized:
		sentinel = common.ErrUnauthorized
	case http.StatusForbidden:
		sentinel = common.ErrForbidden
	case http.StatusNotFound:
		sentinel = common.ErrNotFound
	case http.StatusConflict:
		sentinel = common.ErrConflict
	case http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		sentinel = ErrUnavailable
	default:
		sentinel = common.ErrInternal
	}

	if message == "" {
		message = http.StatusText(status)
	}
	return fmt.Errorf("%w: %s", sentinel, message)
}
