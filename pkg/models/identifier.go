// Package models contains the domain entities of tracelens-engine: the data
// catalog (tables, columns), the actor roles, the business flow hierarchy
// (flows, nodes, edges), and the CRUD traceability facts linking them.
//
// All entities are created through named factories that validate invariants
// before construction; mutation methods re-validate on every change. Two
// entities are equal iff their identifiers match.
package models

import (
	"regexp"

	"github.com/tracelens-io/tracelens-engine/pkg/apperrors"
)

var (
	slugPattern  = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*$`)
	emailPattern = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)
)

// Slug is a URL-safe, lowercase identifier: letters/digits separated by
// single hyphens, no leading or trailing hyphen.
type Slug string

// NewSlug validates and returns a Slug.
func NewSlug(s string) (Slug, error) {
	if s == "" {
		return "", apperrors.NewValidation("slug", "must not be empty")
	}
	if !slugPattern.MatchString(s) {
		return "", apperrors.NewValidation("slug", "must be lowercase letters, digits and single hyphens")
	}
	return Slug(s), nil
}

func (s Slug) String() string { return string(s) }

// Email is a validated email address.
type Email string

// NewEmail validates and returns an Email.
func NewEmail(s string) (Email, error) {
	if s == "" {
		return "", apperrors.NewValidation("email", "must not be empty")
	}
	if !emailPattern.MatchString(s) {
		return "", apperrors.NewValidation("email", "is not a valid email address")
	}
	return Email(s), nil
}

func (e Email) String() string { return string(e) }
