package service

import (
	"context"
	"errors"

	"shebuilds/internal/ledger/store/credential"
	dErrors "shebuilds/pkg/domain-errors"
	"shebuilds/pkg/platform/sentinel"
)

// errorMapping maps a store sentinel to a domain error.
type errorMapping struct {
	sentinel error
	code     dErrors.Code
	msg      string
}

// errorMappings are checked in order; more specific errors come first.
var errorMappings = []errorMapping{
	{credential.ErrNotFound, dErrors.CodeTokenNotFound, "credential does not exist"},
	{credential.ErrAlreadyRevoked, dErrors.CodeTokenAlreadyRevoked, "credential already revoked"},
	{credential.ErrInvalidProficiency, dErrors.CodeInvalidProficiency, "proficiency must be between 1 and 5"},
	{sentinel.ErrNotFound, dErrors.CodeNotFound, "resource not found"},
	{sentinel.ErrConflict, dErrors.CodeConflict, "conflicting ledger write"},
	{sentinel.ErrUnavailable, dErrors.CodeUnavailable, "ledger storage unavailable"},
	{context.DeadlineExceeded, dErrors.CodeTimeout, "ledger operation timed out"},
	{context.Canceled, dErrors.CodeTimeout, "ledger operation cancelled"},
}

// translate converts dependency errors to domain errors. Domain errors pass
// through unchanged; anything unmapped becomes internal_error.
func translate(err error, op string) error {
	if err == nil {
		return nil
	}
	var de *dErrors.Error
	if errors.As(err, &de) {
		return err
	}
	for _, m := range errorMappings {
		if errors.Is(err, m.sentinel) {
			return dErrors.Wrap(err, m.code, m.msg)
		}
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, op+" failed")
}
