// Package domain provides type-safe identifiers shared across the ledger.
package domain

import (
	"regexp"
	"strings"

	dErrors "shebuilds/pkg/domain-errors"
)

// Principal identifies an account on the ledger: a 20-byte address in
// 0x-prefixed hex. Principals are stored lowercased so comparisons are exact.
type Principal string

// ZeroPrincipal is the all-zero address. It never owns a credential.
const ZeroPrincipal Principal = "0x0000000000000000000000000000000000000000"

var principalPattern = regexp.MustCompile(`^0x[0-9a-fA-F]{40}$`)

// ParsePrincipal validates and normalizes a principal at trust boundaries.
func ParsePrincipal(s string) (Principal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "principal cannot be empty")
	}
	if !principalPattern.MatchString(s) {
		return "", dErrors.New(dErrors.CodeInvalidInput, "principal must be a 0x-prefixed 40 hex character address")
	}
	return Principal(strings.ToLower(s)), nil
}

// MustPrincipal panics on invalid input. Use for constants and tests only.
func MustPrincipal(s string) Principal {
	p, err := ParsePrincipal(s)
	if err != nil {
		panic(err)
	}
	return p
}

func (p Principal) String() string { return string(p) }

// IsZero reports whether p is unset or the zero address.
func (p Principal) IsZero() bool { return p == "" || p == ZeroPrincipal }
