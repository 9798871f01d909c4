package datasetiq

import "strings"

// ErrorCode is the closed set of upstream error codes. Codes are only ever
// produced by parsing an upstream error body; the client never fabricates
// one outside that path.
type ErrorCode string

const (
	CodeNone          ErrorCode = ""
	CodeNoKey         ErrorCode = "NO_KEY"
	CodeInvalidKey    ErrorCode = "INVALID_KEY"
	CodeRevokedKey    ErrorCode = "REVOKED_KEY"
	CodeFreeLimit     ErrorCode = "FREE_LIMIT"
	CodeQuotaExceeded ErrorCode = "QUOTA_EXCEEDED"
	CodePlanRequired  ErrorCode = "PLAN_REQUIRED"
	CodeUnknown       ErrorCode = "UNKNOWN"
)

// User-facing messages for classified errors. Every message is a complete,
// actionable sentence; raw codes and stack traces never reach the caller.
const (
	ConnectMessage           = "Please connect to DataSetIQ to continue."
	invalidKeyMessage        = "Invalid API Key. Reconnect at datasetiq.com/dashboard/api-keys"
	revokedKeyMessage        = "API Key revoked. Get a new key at datasetiq.com/dashboard/api-keys"
	freeLimitMessage         = "Free plan limit reached. Upgrade at datasetiq.com/pricing"
	quotaExceededMessage     = "Daily Quota Exceeded. Upgrade at datasetiq.com/pricing"
	planRequiredMessage      = "Upgrade required. Visit datasetiq.com/pricing"
	rateLimitedMessage       = "Rate limited. Please retry shortly."
	serverUnavailableMessage = "Server unavailable. Please retry."
	genericFetchMessage      = "Unable to fetch data."
)

// sourcePrefixes are data-source qualifiers upstream occasionally prepends
// to an error code (e.g. "WORLD_BANK_QUOTA_EXCEEDED"). They are stripped
// before matching against the canonical set.
var sourcePrefixes = []string{
	"WORLD_BANK_",
	"WORLDBANK_",
	"FRED_",
	"BLS_",
	"OECD_",
	"EUROSTAT_",
	"IMF_",
	"ECB_",
	"BOE_",
	"CENSUS_",
	"EIA_",
}

// ParseErrorCode normalizes a raw code string from an upstream error body
// to its canonical ErrorCode. Hyphenated and source-prefixed spellings are
// folded onto the canonical set; anything unrecognized maps to CodeUnknown
// and an empty input to CodeNone.
func ParseErrorCode(raw string) ErrorCode {
	code := strings.ToUpper(strings.TrimSpace(raw))
	if code == "" {
		return CodeNone
	}
	code = strings.ReplaceAll(code, "-", "_")
	for _, prefix := range sourcePrefixes {
		if trimmed := strings.TrimPrefix(code, prefix); trimmed != code {
			code = trimmed
			break
		}
	}

	switch c := ErrorCode(code); c {
	case CodeNoKey, CodeInvalidKey, CodeRevokedKey, CodeFreeLimit, CodeQuotaExceeded, CodePlanRequired:
		return c
	default:
		return CodeUnknown
	}
}

// Classify maps an error code plus HTTP status to a user-facing message.
// Precedence is fixed: credential and entitlement codes first, then the
// transient status classes, then the upstream-provided fallback message.
// It always returns a non-empty string and never panics.
func Classify(code ErrorCode, status int, fallback string) string {
	switch code {
	case CodeNoKey:
		return ConnectMessage
	case CodeInvalidKey:
		return invalidKeyMessage
	case CodeRevokedKey:
		return revokedKeyMessage
	case CodeFreeLimit:
		return freeLimitMessage
	case CodeQuotaExceeded:
		return quotaExceededMessage
	case CodePlanRequired:
		return planRequiredMessage
	}
	if status == 429 {
		return rateLimitedMessage
	}
	if status >= 500 {
		return serverUnavailableMessage
	}
	if fallback != "" {
		return fallback
	}
	return genericFetchMessage
}
