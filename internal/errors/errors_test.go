package errors

import (
	"fmt"
	"testing"
)

func TestSpansError_Error(t *testing.T) {
	err := &SpansError{
		Code:    ErrNotFound,
		Status:  404,
		Message: "series not found",
	}

	expected := "NOT_FOUND: series not found"
	if err.Error() != expected {
		t.Errorf("Error() = %q, want %q", err.Error(), expected)
	}
}

func TestNewInvalidInterval(t *testing.T) {
	err := NewInvalidInterval(10, 5)

	if err.Code != ErrInvalidInterval {
		t.Errorf("Code = %q, want %q", err.Code, ErrInvalidInterval)
	}
	if err.Status != 400 {
		t.Errorf("Status = %d, want 400", err.Status)
	}
	if err.Details["start"] != int64(10) || err.Details["end"] != int64(5) {
		t.Errorf("Details = %v, want start=10 end=5", err.Details)
	}
}

func TestNewInvalidArgument(t *testing.T) {
	err := NewInvalidArgument("pair 2 has 3 elements, want 2")

	if err.Code != ErrInvalidArgument {
		t.Errorf("Code = %q, want %q", err.Code, ErrInvalidArgument)
	}
	if err.Message != "pair 2 has 3 elements, want 2" {
		t.Errorf("Message = %q", err.Message)
	}
}

func TestOperandErrors(t *testing.T) {
	missing := NewMissingOperand("AND")
	if missing.Code != ErrMissingOperand {
		t.Errorf("Code = %q, want %q", missing.Code, ErrMissingOperand)
	}
	if missing.Details["operation"] != "AND" {
		t.Errorf("Details[operation] = %v, want AND", missing.Details["operation"])
	}

	unexpected := NewUnexpectedOperand("NOT")
	if unexpected.Code != ErrUnexpectedOperand {
		t.Errorf("Code = %q, want %q", unexpected.Code, ErrUnexpectedOperand)
	}

	unsupported := NewUnsupportedOperation("NAND")
	if unsupported.Code != ErrUnsupportedOperation {
		t.Errorf("Code = %q, want %q", unsupported.Code, ErrUnsupportedOperation)
	}
	if unsupported.Message != `unsupported operation "NAND"` {
		t.Errorf("Message = %q", unsupported.Message)
	}
}

func TestTransformErrors(t *testing.T) {
	unknown := NewUnknownTransform("smooth")
	if unknown.Code != ErrUnknownTransform || unknown.Status != 404 {
		t.Errorf("got %s/%d, want %s/404", unknown.Code, unknown.Status, ErrUnknownTransform)
	}

	dup := NewDuplicateName("group")
	if dup.Code != ErrDuplicateName || dup.Status != 409 {
		t.Errorf("got %s/%d, want %s/409", dup.Code, dup.Status, ErrDuplicateName)
	}
	if dup.Details["name"] != "group" {
		t.Errorf("Details[name] = %v, want %q", dup.Details["name"], "group")
	}
}

func TestNewNotFound(t *testing.T) {
	err := NewNotFound("whisks")

	if err.Code != ErrNotFound {
		t.Errorf("Code = %q, want %q", err.Code, ErrNotFound)
	}
	if err.Status != 404 {
		t.Errorf("Status = %d, want 404", err.Status)
	}
	if err.Details["identifier"] != "whisks" {
		t.Errorf("Details[identifier] = %v, want %q", err.Details["identifier"], "whisks")
	}
}

func TestNewNameAlreadyExists(t *testing.T) {
	err := NewNameAlreadyExists("default", "whisks")

	if err.Code != ErrNameAlreadyExists {
		t.Errorf("Code = %q, want %q", err.Code, ErrNameAlreadyExists)
	}
	if err.Status != 409 {
		t.Errorf("Status = %d, want 409", err.Status)
	}
	if err.Details["workspace"] != "default" {
		t.Errorf("Details[workspace] = %v, want %q", err.Details["workspace"], "default")
	}
	if err.Details["name"] != "whisks" {
		t.Errorf("Details[name] = %v, want %q", err.Details["name"], "whisks")
	}
}

func TestNewInternal(t *testing.T) {
	t.Run("with error", func(t *testing.T) {
		err := NewInternal(fmt.Errorf("database connection failed"))

		if err.Code != ErrInternal {
			t.Errorf("Code = %q, want %q", err.Code, ErrInternal)
		}
		if err.Status != 500 {
			t.Errorf("Status = %d, want 500", err.Status)
		}
		if err.Message != "an internal error occurred" {
			t.Errorf("Message = %q, want %q", err.Message, "an internal error occurred")
		}
		if err.Details["internal_error"] != "database connection failed" {
			t.Errorf("Details[internal_error] = %q, want %q", err.Details["internal_error"], "database connection failed")
		}
	})

	t.Run("with nil", func(t *testing.T) {
		err := NewInternal(nil)

		if err.Message != "an internal error occurred" {
			t.Errorf("Message = %q, want %q", err.Message, "an internal error occurred")
		}
		if err.Details == nil {
			t.Error("Details should not be nil")
		}
	})
}

func TestIs(t *testing.T) {
	t.Run("matching code", func(t *testing.T) {
		err := NewNotFound("test")
		if !Is(err, ErrNotFound) {
			t.Error("Is() = false, want true")
		}
	})

	t.Run("non-matching code", func(t *testing.T) {
		err := NewNotFound("test")
		if Is(err, ErrDuplicateName) {
			t.Error("Is() = true, want false")
		}
	})

	t.Run("non-SpansError", func(t *testing.T) {
		err := fmt.Errorf("plain error")
		if Is(err, ErrNotFound) {
			t.Error("Is() = true, want false for non-SpansError")
		}
	})

	t.Run("wrapped SpansError", func(t *testing.T) {
		wrapped := fmt.Errorf("step 2: %w", NewUnknownTransform("smooth"))
		if !Is(wrapped, ErrUnknownTransform) {
			t.Error("Is() = false, want true for wrapped SpansError")
		}
		if Is(wrapped, ErrNotFound) {
			t.Error("Is() = true, want false for wrong code on wrapped SpansError")
		}
	})
}

func TestNewAmbiguousAddressing(t *testing.T) {
	err := NewAmbiguousAddressing()
	if err.Code != ErrAmbiguousAddressing || err.Status != 400 {
		t.Errorf("got %s/%d, want %s/400", err.Code, err.Status, ErrAmbiguousAddressing)
	}
}
