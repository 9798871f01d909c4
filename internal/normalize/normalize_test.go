package normalize

import (
	"errors"
	"testing"
	"time"
)

func TestOptionalString(t *testing.T) {
	tests := []struct {
		name  string
		input any
		want  string
	}{
		{"nil", nil, ""},
		{"plain string", "GDP", "GDP"},
		{"padded string", "  CPIAUCSL  ", "CPIAUCSL"},
		{"whitespace only", "   ", ""},
		{"empty string", "", ""},
		{"float", 4.5, "4.5"},
		{"whole float", 12.0, "12"},
		{"int", 7, "7"},
		{"int64", int64(42), "42"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := OptionalString(tt.input)
			if err != nil {
				t.Fatalf("OptionalString(%v) returned unexpected error: %v", tt.input, err)
			}
			if got != tt.want {
				t.Errorf("OptionalString(%v) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestOptionalString_RejectsUnknownTypes(t *testing.T) {
	inputs := []any{true, []string{"a"}, map[string]string{}, struct{}{}}

	for _, input := range inputs {
		_, err := OptionalString(input)
		if !errors.Is(err, ErrInvalidInput) {
			t.Errorf("OptionalString(%T) error = %v, want ErrInvalidInput", input, err)
		}
	}
}

func TestDateInput_Absent(t *testing.T) {
	for _, input := range []any{nil, ""} {
		got, err := DateInput(input)
		if err != nil {
			t.Fatalf("DateInput(%v) returned unexpected error: %v", input, err)
		}
		if got != "" {
			t.Errorf("DateInput(%v) = %q, want empty", input, got)
		}
	}
}

func TestDateInput_StringPassthrough(t *testing.T) {
	// Strings are not validated here; the upstream API is the source of truth.
	inputs := []string{"2024-01-15", "2024/01/15", "not-a-date"}

	for _, input := range inputs {
		got, err := DateInput(input)
		if err != nil {
			t.Fatalf("DateInput(%q) returned unexpected error: %v", input, err)
		}
		if got != input {
			t.Errorf("DateInput(%q) = %q, want passthrough", input, got)
		}
	}
}

func TestDateInput_Time(t *testing.T) {
	input := time.Date(2023, time.June, 30, 23, 15, 0, 0, time.UTC)

	got, err := DateInput(input)
	if err != nil {
		t.Fatalf("DateInput(time) returned unexpected error: %v", err)
	}
	if got != "2023-06-30" {
		t.Errorf("DateInput(time) = %q, want %q", got, "2023-06-30")
	}
}

func TestDateInput_ZeroTime(t *testing.T) {
	_, err := DateInput(time.Time{})
	if !errors.Is(err, ErrInvalidDate) {
		t.Errorf("DateInput(zero time) error = %v, want ErrInvalidDate", err)
	}
}

func TestDateInput_Serial(t *testing.T) {
	tests := []struct {
		serial any
		want   string
	}{
		{0, "1899-12-30"},
		{1, "1899-12-31"},
		{2, "1900-01-01"},
		// Serial 60 is the spreadsheet's fabricated Feb 29 1900; the
		// epoch offset absorbs it so later serials stay aligned.
		{59, "1900-02-27"},
		{60, "1900-02-28"},
		{61, "1900-03-01"},
		{45292, "2024-01-01"},
		{45292.75, "2024-01-01"},
	}

	for _, tt := range tests {
		got, err := DateInput(tt.serial)
		if err != nil {
			t.Fatalf("DateInput(%v) returned unexpected error: %v", tt.serial, err)
		}
		if got != tt.want {
			t.Errorf("DateInput(%v) = %q, want %q", tt.serial, got, tt.want)
		}
	}
}

func TestDateInput_SerialMonotonic(t *testing.T) {
	// Each successive serial must map exactly one calendar day later,
	// including across the 1900 leap-bug window.
	prev, err := DateInput(0)
	if err != nil {
		t.Fatalf("DateInput(0) returned unexpected error: %v", err)
	}

	for serial := 1; serial <= 400; serial++ {
		cur, err := DateInput(serial)
		if err != nil {
			t.Fatalf("DateInput(%d) returned unexpected error: %v", serial, err)
		}

		prevDay, _ := time.Parse(time.DateOnly, prev)
		curDay, _ := time.Parse(time.DateOnly, cur)
		if got := curDay.Sub(prevDay); got != 24*time.Hour {
			t.Fatalf("serial %d maps to %s, %v after serial %d (%s); want 24h", serial, cur, got, serial-1, prev)
		}
		prev = cur
	}
}

func TestDateInput_NegativeSerial(t *testing.T) {
	for _, input := range []any{-1, -0.5, -45292} {
		_, err := DateInput(input)
		if !errors.Is(err, ErrInvalidDateSerial) {
			t.Errorf("DateInput(%v) error = %v, want ErrInvalidDateSerial", input, err)
		}
	}
}

func TestDateInput_RejectsUnknownTypes(t *testing.T) {
	inputs := []any{true, []int{1}, map[string]any{}}

	for _, input := range inputs {
		_, err := DateInput(input)
		if !errors.Is(err, ErrInvalidDateInput) {
			t.Errorf("DateInput(%T) error = %v, want ErrInvalidDateInput", input, err)
		}
	}
}
