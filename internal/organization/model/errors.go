package model

import "errors"

var (
	// ErrOrganizationNotFound indicates that the requested organization does not exist.
	ErrOrganizationNotFound = errors.New("organization not found")
	// ErrReviewerNotFound indicates that the requested reviewer does not exist.
	ErrReviewerNotFound = errors.New("reviewer not found")
)
