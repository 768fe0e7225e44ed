package core

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestMapError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode string
	}{
		{name: "nil error returns empty", err: nil, wantCode: ""},

		// Ingestion errors
		{name: "missing natural key", err: fmt.Errorf("%w: serial", ErrMissingNaturalKey), wantCode: "ING001"},
		{name: "identifier conflict", err: fmt.Errorf("%w: SN1 has A, file has B", ErrIdentifierConflict), wantCode: "ING002"},
		{name: "identifier taken", err: fmt.Errorf("%w: NOR-PC-001", ErrIdentifierTaken), wantCode: "ING003"},
		{name: "limiter rejection", err: ErrTooManyImports, wantCode: "ING004"},
		{name: "unknown kind", err: errors.New(`unknown entity kind: "vehicle"`), wantCode: "ING005"},
		{name: "cancelled", err: context.Canceled, wantCode: "ING006"},
		{name: "deadline", err: context.DeadlineExceeded, wantCode: "ING007"},

		// Database errors
		{name: "duplicate key", err: errors.New("ERROR: duplicate key value violates unique constraint"), wantCode: "DB001"},
		{name: "unique constraint", err: errors.New("ERROR: unique constraint violated"), wantCode: "DB002"},
		{name: "check constraint", err: errors.New("new row violates check constraint"), wantCode: "DB003"},
		{name: "connection refused", err: errors.New("dial tcp: connection refused"), wantCode: "DB004"},
		{name: "timeout", err: errors.New("i/o timeout"), wantCode: "DB006"},
		{name: "deadlock", err: errors.New("deadlock detected"), wantCode: "DB007"},

		// File errors
		{name: "file too large", err: ErrFileTooLarge, wantCode: "FILE001"},
		{name: "unsupported type", err: fmt.Errorf("%w: .xls", ErrUnsupportedFile), wantCode: "FILE002"},
		{name: "bad workbook", err: errors.New("open workbook: zip: not a valid zip file"), wantCode: "FILE003"},
		{name: "nothing readable", err: ErrNoReadableFiles, wantCode: "FILE004"},

		// Fallback
		{name: "unknown error", err: errors.New("something odd"), wantCode: "ERR000"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MapError(tt.err)
			if got.Code != tt.wantCode {
				t.Errorf("MapError(%v).Code = %q, want %q", tt.err, got.Code, tt.wantCode)
			}
			if tt.err != nil && got.Message == "" {
				t.Errorf("MapError(%v).Message is empty", tt.err)
			}
		})
	}
}

func TestMapError_CaseInsensitive(t *testing.T) {
	if got := MapError(errors.New("DEADLOCK DETECTED")); got.Code != "DB007" {
		t.Errorf("MapError(uppercase).Code = %q, want %q", got.Code, "DB007")
	}
}

func TestFormatUserError(t *testing.T) {
	got := FormatUserError(ErrFileTooLarge)
	if !strings.Contains(got, "(Code: FILE001)") {
		t.Errorf("FormatUserError() = %q, want it to carry the code", got)
	}
	if FormatUserError(nil) != "" {
		t.Error("FormatUserError(nil) should be empty")
	}
}

func TestIsUserFacing(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"known", ErrTooManyImports, true},
		{"unknown", errors.New("random failure"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsUserFacing(tt.err); got != tt.want {
				t.Errorf("IsUserFacing(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestNewUserError(t *testing.T) {
	if NewUserError(nil) != nil {
		t.Error("NewUserError(nil) should return nil")
	}

	orig := fmt.Errorf("%w: NOR-PC-001", ErrIdentifierTaken)
	ue := NewUserError(orig)
	if ue.User.Code != "ING003" {
		t.Errorf("Code = %q, want ING003", ue.User.Code)
	}
	if !errors.Is(ue, ErrIdentifierTaken) {
		t.Error("UserError should unwrap to the technical error")
	}
	if ue.Error() != ue.User.Message {
		t.Errorf("Error() = %q, want %q", ue.Error(), ue.User.Message)
	}
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		in   string
		n    int
		want string
	}{
		{"short", 10, "short"},
		{"exactly", 7, "exactly"},
		{"much too long", 8, "much ..."},
		{"cédula número", 5, "cé..."},
		{"abc", 0, "abc"},
	}
	for _, tt := range tests {
		if got := truncate(tt.in, tt.n); got != tt.want {
			t.Errorf("truncate(%q, %d) = %q, want %q", tt.in, tt.n, got, tt.want)
		}
	}
}
