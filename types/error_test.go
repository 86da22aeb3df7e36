package types

import (
	"errors"
	"fmt"
	"testing"
)

func TestKindOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorKind
	}{
		{
			name: "transient",
			err:  NewError(ErrTransient, "list instances", errors.New("connection reset")),
			want: ErrTransient,
		},
		{
			name: "permission denied",
			err:  NewError(ErrPermissionDenied, "list folders", errors.New("403")),
			want: ErrPermissionDenied,
		},
		{
			name: "wrapped keeps kind",
			err:  fmt.Errorf("page 3: %w", NewError(ErrNotFound, "get resource", errors.New("404"))),
			want: ErrNotFound,
		},
		{
			name: "unclassified is fatal",
			err:  errors.New("nil pointer somewhere"),
			want: ErrFatal,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := KindOf(tt.err); got != tt.want {
				t.Errorf("KindOf() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestIsRetryable(t *testing.T) {
	if !IsRetryable(NewError(ErrTransient, "list", errors.New("503"))) {
		t.Error("transient should be retryable")
	}
	if IsRetryable(NewError(ErrFatal, "list", errors.New("bad config"))) {
		t.Error("fatal should not be retryable")
	}
	if IsRetryable(NewError(ErrRetryExhausted, "list", errors.New("gave up"))) {
		t.Error("exhausted should not be retryable again")
	}
}

func TestIsRateLimited(t *testing.T) {
	quota := NewRateLimited("list instances", errors.New("429"))
	if !IsRateLimited(quota) {
		t.Error("quota rejection should be rate limited")
	}
	if KindOf(quota) != ErrTransient {
		t.Error("quota rejection should still classify as transient")
	}

	plain := NewError(ErrTransient, "list instances", errors.New("timeout"))
	if IsRateLimited(plain) {
		t.Error("plain transient should not be rate limited")
	}
}

func TestExtractionError_Error(t *testing.T) {
	err := NewError(ErrPermissionDenied, "list folders", errors.New("caller lacks permission"))
	want := "list folders: permission_denied: caller lacks permission"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}

	bare := NewError(ErrFatal, "resolve root", nil)
	if bare.Error() != "resolve root: fatal" {
		t.Errorf("Error() = %q", bare.Error())
	}
}

func TestExtractionError_Unwrap(t *testing.T) {
	cause := errors.New("boom")
	err := NewError(ErrTransient, "list", cause)
	if !errors.Is(err, cause) {
		t.Error("errors.Is should find the wrapped cause")
	}
}
