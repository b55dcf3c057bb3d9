package application

import "testing"

func TestValidationError_Error(t *testing.T) {
	t.Parallel()

	var err *ValidationError
	if err.Error() != "" {
		t.Fatalf("expected empty string for nil error, got %q", err.Error())
	}

	empty := &ValidationError{}
	if got := empty.Error(); got != "validation failed" {
		t.Fatalf("expected generic message for empty error, got %q", got)
	}

	withMessage := newValidationError(KindRoomConflict, "Room conflict detected")
	if got := withMessage.Error(); got != "Room conflict detected" {
		t.Fatalf("expected message to be surfaced verbatim, got %q", got)
	}
}

func TestValidationError_HasErrors(t *testing.T) {
	t.Parallel()

	if (&ValidationError{}).HasErrors() {
		t.Fatalf("expected HasErrors to report false for empty error")
	}

	if !(&ValidationError{FieldErrors: map[string]string{"field": "bad"}}).HasErrors() {
		t.Fatalf("expected HasErrors to report true when fields are present")
	}
}

func TestValidationError_AddKeepsFirstMessage(t *testing.T) {
	t.Parallel()

	v := &ValidationError{Kind: KindMissingField}
	v.add("details", "You must provide a description of the event")
	v.add("rooms", "You must select a room to reserve.")
	v.add("details", "ignored")

	if v.Message != "You must provide a description of the event" {
		t.Fatalf("expected first message to headline, got %q", v.Message)
	}
	if got := v.FieldErrors["details"]; got != "You must provide a description of the event" {
		t.Fatalf("expected first field message to stick, got %q", got)
	}
	if len(v.FieldErrors) != 2 {
		t.Fatalf("expected two field errors, got %d", len(v.FieldErrors))
	}
}
