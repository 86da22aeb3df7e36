package aws

import (
	"context"
	"errors"
	"strings"

	"github.com/aws/smithy-go"

	"github.com/yairfalse/kartta/types"
)

// classify maps AWS API failures onto the extraction error taxonomy.
// Errors without an API error code are treated as transient: transport
// failures are worth retrying.
func classify(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return types.NewError(types.ErrTransient, op, err)
	}

	var apiErr smithy.APIError
	if !errors.As(err, &apiErr) {
		return types.NewError(types.ErrTransient, op, err)
	}

	code := apiErr.ErrorCode()
	switch {
	case isThrottleCode(code):
		return types.NewRateLimited(op, err)
	case isAccessDeniedCode(code):
		return types.NewError(types.ErrPermissionDenied, op, err)
	case isNotFoundCode(code):
		return types.NewError(types.ErrNotFound, op, err)
	case isTransientCode(code):
		return types.NewError(types.ErrTransient, op, err)
	default:
		return types.NewError(types.ErrFatal, op, err)
	}
}

func isThrottleCode(code string) bool {
	switch code {
	case "Throttling", "ThrottlingException", "RequestLimitExceeded",
		"TooManyRequestsException", "SlowDown", "RequestThrottled",
		"ProvisionedThroughputExceededException":
		return true
	}
	return false
}

func isAccessDeniedCode(code string) bool {
	switch code {
	case "AccessDenied", "AccessDeniedException", "UnauthorizedOperation",
		"AuthFailure", "UnrecognizedClientException":
		return true
	}
	return false
}

func isNotFoundCode(code string) bool {
	if strings.HasSuffix(code, "NotFound") || strings.HasSuffix(code, "NotFoundException") {
		return true
	}
	switch code {
	case "NoSuchEntity", "NoSuchBucket", "NoSuchHostedZone", "NoSuchQueue":
		return true
	}
	return false
}

func isTransientCode(code string) bool {
	switch code {
	case "RequestTimeout", "ServiceUnavailable", "ServiceFailure",
		"InternalError", "InternalFailure", "InternalServiceError":
		return true
	}
	return false
}
