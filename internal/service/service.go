// Package service contains the business rules of SkillSwap.
//
// THE THREE-LAYER ARCHITECTURE:
//
//	Handler (HTTP layer)     → parses requests, writes responses
//	Service (Business layer) → validates, authorizes, enforces the request state machine
//	Repository (Data layer)  → reads/writes the database
//
// Services take an auth.Identity for the acting user instead of an
// *http.Request. They return apperror values and never pick HTTP status
// codes; the handler layer maps error kinds to statuses in one place.
//
// Every service depends on repository interfaces, not on *sqlite.DB, so the
// tests in this package run against an in-memory fake store.
package service

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/sakif/skillswap/internal/apperror"
	"github.com/sakif/skillswap/internal/auth"
)

// Validation limits, counted in characters.
const (
	MaxUserNameLength         = 100
	MaxBioLength              = 500
	MaxSkillNameLength        = 100
	MaxSkillDescriptionLength = 2000
	MaxRequestMessageLength   = 1000

	// MaxListLimit caps a paged listing. A zero limit still means "all".
	MaxListLimit = 100
)

// requireIdentity rejects anonymous callers.
func requireIdentity(actor auth.Identity) error {
	if actor.UserID == "" {
		return apperror.Unauthenticated("authentication required")
	}
	return nil
}

// requireID trims id and reports a validation error when it is empty.
func requireID(resource, id string) (string, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return "", apperror.ValidationFailed("id", resource+" ID is required")
	}
	return id, nil
}

// checkLength reports a validation error when value is longer than max
// characters.
func checkLength(field, label, value string, max int) error {
	if utf8.RuneCountInString(value) > max {
		return apperror.ValidationFailed(field,
			fmt.Sprintf("%s must be %d characters or less", label, max))
	}
	return nil
}
