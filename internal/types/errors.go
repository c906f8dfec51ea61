package types

import "errors"

var (
	// ErrInvalidRequest marks a malformed request; no work is attempted.
	ErrInvalidRequest = errors.New("invalid request")
	// ErrPlanning marks a failed oracle or transcription call.
	ErrPlanning = errors.New("planning failed")
	// ErrMalformedProposal marks an oracle response whose insertion list is not a list.
	ErrMalformedProposal = errors.New("malformed proposal")
	// ErrMediaUnavailable marks media that could not be fetched, probed or decoded.
	ErrMediaUnavailable = errors.New("media unavailable")
	// ErrRender marks a composition, encode or publish failure.
	ErrRender = errors.New("render failed")
)
