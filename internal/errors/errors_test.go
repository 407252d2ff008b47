package errors_test

import (
	stderrors "errors"
	"fmt"
	"testing"

	apperrors "github.com/convocore/convocore/internal/errors"
)

func TestCode(t *testing.T) {
	t.Parallel()

	cause := stderrors.New("boom")

	tests := []struct {
		name string
		err  error
		want string
	}{
		{name: "validation", err: apperrors.NewValidationError("bad input", nil), want: apperrors.CodeValidation},
		{name: "identity conflict", err: apperrors.NewIdentityConflictError("two owners"), want: apperrors.CodeIdentityConflict},
		{name: "not found", err: apperrors.NewNotFoundError("missing", nil), want: apperrors.CodeNotFound},
		{name: "conflict", err: apperrors.NewConflictError("raced", cause), want: apperrors.CodeConflict},
		{name: "storage", err: apperrors.NewStorageError("db down", cause), want: apperrors.CodeStorage},
		{name: "plain error", err: cause, want: apperrors.CodeUnknown},
		{name: "nil", err: nil, want: apperrors.CodeUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := apperrors.Code(tt.err); got != tt.want {
				t.Errorf("Code() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestCodeSurvivesWrapping(t *testing.T) {
	t.Parallel()

	err := apperrors.NewNotFoundError("user gone", nil)
	wrapped := fmt.Errorf("handling request: %w", err)

	if got := apperrors.Code(wrapped); got != apperrors.CodeNotFound {
		t.Errorf("Code(wrapped) = %q, want %q", got, apperrors.CodeNotFound)
	}
	if !apperrors.HasCode(wrapped, apperrors.CodeNotFound) {
		t.Error("HasCode(wrapped, NOT_FOUND) = false, want true")
	}
}

func TestUnwrapExposesCause(t *testing.T) {
	t.Parallel()

	cause := stderrors.New("disk full")
	err := apperrors.NewStorageError("write failed", cause)

	if !stderrors.Is(err, cause) {
		t.Error("errors.Is(err, cause) = false, want true")
	}
	if msg := err.Error(); msg != "write failed: disk full" {
		t.Errorf("Error() = %q, want %q", msg, "write failed: disk full")
	}
}
