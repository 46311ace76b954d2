package domain

import "errors"

var (
	// ErrNoUsableSources means selection finished without a single eligible source.
	ErrNoUsableSources = errors.New("no usable sources")
	// ErrNoEvidence means synthesis was requested without evidence text.
	ErrNoEvidence = errors.New("no evidence with content")
	// ErrSynthesisFailed means the model output could not be turned into a draft.
	ErrSynthesisFailed = errors.New("synthesis failed")
	// ErrArticleNotFound means no generated article has the requested id.
	ErrArticleNotFound = errors.New("generated article not found")
	// ErrNoProvenance means an article has no recorded source links.
	ErrNoProvenance = errors.New("no provenance recorded for article")
	// ErrRunFailed is the opaque failure returned from a generation run.
	ErrRunFailed = errors.New("generation run failed")
	// ErrInvalidParams means generation parameters are out of range.
	ErrInvalidParams = errors.New("invalid generation parameters")
)
