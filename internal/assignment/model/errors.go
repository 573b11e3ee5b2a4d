package model

import "errors"

var (
	// ErrAssignmentExists indicates that the (pull request, reviewer) pair is already assigned.
	ErrAssignmentExists = errors.New("assignment already exists")
	// ErrAssignmentNotFound indicates that the requested assignment does not exist.
	ErrAssignmentNotFound = errors.New("assignment not found")
	// ErrUnknownReviewState indicates a provider review state with no internal status mapping.
	ErrUnknownReviewState = errors.New("unknown review state")
)
