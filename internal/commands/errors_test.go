package commands

import (
	"bytes"
	"errors"
	"net/http"
	"reflect"
	"testing"

	"taskdeck/internal/api"
	"taskdeck/internal/exitcode"
)

func TestFailUnauthorized(t *testing.T) {
	var buf bytes.Buffer
	code := fail(&buf, &api.Error{Status: http.StatusUnauthorized, Message: "Not authorized"}, "")

	if code != exitcode.AuthError {
		t.Errorf("expected exit code %d, got %d", exitcode.AuthError, code)
	}
	expected := "error: session expired (run: taskdeck login)\n"
	if buf.String() != expected {
		t.Errorf("expected %q, got %q", expected, buf.String())
	}
}

func TestFailValidationListsFields(t *testing.T) {
	var buf bytes.Buffer
	err := &api.Error{
		Status:  http.StatusBadRequest,
		Message: "Validation failed",
		Fields: []api.FieldError{
			{Field: "title", Message: "title is required"},
			{Field: "priority", Message: "priority must be one of low, medium, high, urgent"},
		},
	}
	code := fail(&buf, err, "")

	if code != exitcode.UserError {
		t.Errorf("expected exit code %d, got %d", exitcode.UserError, code)
	}
	expected := "error: Validation failed\n" +
		"  - title is required\n" +
		"  - priority must be one of low, medium, high, urgent\n"
	if buf.String() != expected {
		t.Errorf("expected %q, got %q", expected, buf.String())
	}
}

func TestFailClientErrorIsUserError(t *testing.T) {
	var buf bytes.Buffer
	code := fail(&buf, &api.Error{Status: http.StatusNotFound, Message: "Task not found"}, "")

	if code != exitcode.UserError {
		t.Errorf("expected exit code %d, got %d", exitcode.UserError, code)
	}
	if buf.String() != "error: Task not found\n" {
		t.Errorf("unexpected output %q", buf.String())
	}
}

func TestFailBackendErrorWithRetryHint(t *testing.T) {
	var buf bytes.Buffer
	code := fail(&buf, errors.New("connection refused"), "taskdeck list")

	if code != exitcode.BackendError {
		t.Errorf("expected exit code %d, got %d", exitcode.BackendError, code)
	}
	expected := "error: connection refused\n(retry: taskdeck list)\n"
	if buf.String() != expected {
		t.Errorf("expected %q, got %q", expected, buf.String())
	}
}

func TestFailServerErrorWithoutHint(t *testing.T) {
	var buf bytes.Buffer
	code := fail(&buf, &api.Error{Status: http.StatusInternalServerError, Message: "boom"}, "")

	if code != exitcode.BackendError {
		t.Errorf("expected exit code %d, got %d", exitcode.BackendError, code)
	}
	if buf.String() != "error: boom\n" {
		t.Errorf("unexpected output %q", buf.String())
	}
}

func TestSplitTags(t *testing.T) {
	cases := []struct {
		in   string
		want []string
	}{
		{"", nil},
		{"   ", nil},
		{"a", []string{"a"}},
		{"a,b,c", []string{"a", "b", "c"}},
		{" a , b ", []string{"a", "b"}},
		{"a,,b,", []string{"a", "b"}},
	}
	for _, tc := range cases {
		got := splitTags(tc.in)
		if !reflect.DeepEqual(got, tc.want) {
			t.Errorf("splitTags(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
}
