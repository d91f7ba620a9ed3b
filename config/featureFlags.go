package config

import (
	"os"
	"strings"
)

// StrictStatementImmutability enables fintech-grade guardrails:
// statement lines on a validated/posted statement cannot be edited; the statement must be reopened first.
//
// Set via env:
// - STRICT_STATEMENT_IMMUTABLE=true
func StrictStatementImmutability() bool {
	v := strings.ToLower(strings.TrimSpace(os.Getenv("STRICT_STATEMENT_IMMUTABLE")))
	return v == "1" || v == "true" || v == "yes" || v == "y"
}

// PaymentSessionLockDisabled turns off the per-sale redis lock taken while a
// payment session commits. Only for environments without Redis.
//
// Set via env:
// - PAYMENT_SESSION_LOCK_DISABLED=true
func PaymentSessionLockDisabled() bool {
	v := strings.ToLower(strings.TrimSpace(os.Getenv("PAYMENT_SESSION_LOCK_DISABLED")))
	return v == "1" || v == "true" || v == "yes" || v == "y"
}
