package gcp

import (
	"context"
	"errors"
	"net/http"

	"google.golang.org/api/googleapi"

	"github.com/yairfalse/kartta/types"
)

// classify maps Google API failures onto the extraction error taxonomy.
// Quota rejections are marked rate-limited so the throttle hears them.
func classify(op string, err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return types.NewError(types.ErrTransient, op, err)
	}

	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		switch {
		case gerr.Code == http.StatusTooManyRequests || hasQuotaReason(gerr):
			return types.NewRateLimited(op, err)
		case gerr.Code == http.StatusForbidden:
			return types.NewError(types.ErrPermissionDenied, op, err)
		case gerr.Code == http.StatusNotFound:
			return types.NewError(types.ErrNotFound, op, err)
		case gerr.Code >= http.StatusInternalServerError:
			return types.NewError(types.ErrTransient, op, err)
		default:
			return types.NewError(types.ErrFatal, op, err)
		}
	}

	// Transport-level failures with no API status are worth retrying
	return types.NewError(types.ErrTransient, op, err)
}

// hasQuotaReason catches quota rejections that arrive as 403s.
func hasQuotaReason(gerr *googleapi.Error) bool {
	for _, item := range gerr.Errors {
		switch item.Reason {
		case "rateLimitExceeded", "userRateLimitExceeded", "quotaExceeded":
			return true
		}
	}
	return false
}
