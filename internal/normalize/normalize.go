// Package normalize coerces the loosely-typed values a spreadsheet host
// hands to formula functions into canonical request parameters. Accepted
// shapes are strings, numbers, time values and absent (nil); everything
// else is rejected with a typed error rather than silently stringified.
package normalize

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

var (
	// ErrInvalidInput indicates a value of a type the formula layer does not accept
	ErrInvalidInput = errors.New("Invalid input.")
	// ErrInvalidDate indicates a time value that does not represent a real instant
	ErrInvalidDate = errors.New("Invalid date.")
	// ErrInvalidDateSerial indicates a negative spreadsheet serial date
	ErrInvalidDateSerial = errors.New("Invalid date serial number.")
	// ErrInvalidDateInput indicates a date argument of an unsupported type
	ErrInvalidDateInput = errors.New("Invalid date input.")
)

// serialEpoch is the spreadsheet serial-date epoch, 1899-12-30 UTC.
// The day before 1899-12-31 reproduces the host spreadsheet's fabricated
// Feb 29 1900: serial 60 lands on the real Feb 28 and serial 61 on Mar 1,
// so serials from 61 on line up with the host's (buggy) calendar.
var serialEpoch = time.Date(1899, time.December, 30, 0, 0, 0, 0, time.UTC)

const msPerDay = 24 * 60 * 60 * 1000

// OptionalString normalizes an optional string argument.
// The empty string means the argument was absent.
func OptionalString(v any) (string, error) {
	switch s := v.(type) {
	case nil:
		return "", nil
	case string:
		return strings.TrimSpace(s), nil
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64), nil
	case float32:
		return strconv.FormatFloat(float64(s), 'f', -1, 32), nil
	case int:
		return strconv.Itoa(s), nil
	case int32:
		return strconv.FormatInt(int64(s), 10), nil
	case int64:
		return strconv.FormatInt(s, 10), nil
	default:
		return "", fmt.Errorf("%w (unsupported type %T)", ErrInvalidInput, v)
	}
}

// DateInput normalizes an optional date argument to a YYYY-MM-DD string.
// The empty string means the argument was absent. Numbers are interpreted
// as spreadsheet serial dates, time values as their UTC calendar date and
// strings pass through unmodified; the upstream API validates formats.
func DateInput(v any) (string, error) {
	switch d := v.(type) {
	case nil:
		return "", nil
	case string:
		return d, nil
	case time.Time:
		if d.IsZero() {
			return "", ErrInvalidDate
		}
		return d.UTC().Format(time.DateOnly), nil
	case float64:
		return serialToDate(d)
	case float32:
		return serialToDate(float64(d))
	case int:
		return serialToDate(float64(d))
	case int32:
		return serialToDate(float64(d))
	case int64:
		return serialToDate(float64(d))
	default:
		return "", fmt.Errorf("%w (unsupported type %T)", ErrInvalidDateInput, v)
	}
}

func serialToDate(serial float64) (string, error) {
	if serial < 0 {
		return "", ErrInvalidDateSerial
	}
	ms := serialEpoch.UnixMilli() + int64(serial*msPerDay)
	return time.UnixMilli(ms).UTC().Format(time.DateOnly), nil
}
