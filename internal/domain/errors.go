package domain

import "errors"

var (
	// ErrNotFound is returned by repositories when a row does not exist.
	ErrNotFound = errors.New("not found")
	// ErrInterestExists is returned when adding an interest whose name is taken.
	ErrInterestExists = errors.New("interest already exists")
	// ErrUnknownInteraction is returned for interaction types outside click, like and dislike.
	ErrUnknownInteraction = errors.New("unknown interaction type")
)
