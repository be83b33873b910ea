package core

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestFriendlyCommitError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{
			"unique violation",
			errors.New(`duplicate key value violates unique constraint "assets_patrimony_key"`),
			"an asset with this patrimony number already exists",
		},
		{
			"foreign key violation",
			errors.New(`insert or update violates foreign key constraint "assets_location_fk"`),
			"the resolved location or category no longer exists",
		},
		{
			"connection failure",
			errors.New("dial tcp 127.0.0.1:5432: connection refused"),
			"the database is unavailable, try confirming again later",
		},
		{
			"deadlock",
			errors.New("ERROR: deadlock detected (SQLSTATE 40P01)"),
			"the database was busy with a conflicting operation, try again",
		},
		{
			"oversized value",
			errors.New("value too long for type character varying(255)"),
			"a field value exceeds the maximum allowed length",
		},
		{
			"timeout",
			fmt.Errorf("create asset: %w", context.DeadlineExceeded),
			"the operation timed out",
		},
		{
			"cancellation",
			context.Canceled,
			"the operation was cancelled",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FriendlyCommitError(tt.err); got != tt.want {
				t.Errorf("FriendlyCommitError(%v) = %q, want %q", tt.err, got, tt.want)
			}
		})
	}
}

func TestFriendlyCommitError_UnknownPassesThrough(t *testing.T) {
	err := errors.New("something very unexpected")
	got := FriendlyCommitError(err)
	if !strings.Contains(got, "something very unexpected") {
		t.Errorf("original detail lost: %q", got)
	}
}

func TestFriendlyCommitError_Nil(t *testing.T) {
	if got := FriendlyCommitError(nil); got != "" {
		t.Errorf("FriendlyCommitError(nil) = %q, want empty", got)
	}
}
