package domain

import (
	"errors"
	"fmt"
	"strings"
)

// Kind classifies a pipeline failure.
type Kind string

const (
	KindInvalidIdentifier Kind = "invalid_identifier"
	KindInvalidRegion     Kind = "invalid_region"
	KindNotFound          Kind = "not_found"
	KindTimeout           Kind = "timeout"
	KindExtraction        Kind = "extraction"
	KindResponseShape     Kind = "response_shape"
	KindConfiguration     Kind = "configuration"
	KindUnknown           Kind = "unknown"
)

// Sentinels for errors.Is checks against a kind.
var (
	ErrInvalidIdentifier = errors.New("invalid product identifier")
	ErrInvalidRegion     = errors.New("invalid region")
	ErrNotFound          = errors.New("not found")
	ErrTimeout           = errors.New("timed out")
	ErrExtraction        = errors.New("extraction failed")
	ErrResponseShape     = errors.New("malformed completion response")
	ErrConfiguration     = errors.New("configuration error")
)

var kindSentinels = map[Kind]error{
	KindInvalidIdentifier: ErrInvalidIdentifier,
	KindInvalidRegion:     ErrInvalidRegion,
	KindNotFound:          ErrNotFound,
	KindTimeout:           ErrTimeout,
	KindExtraction:        ErrExtraction,
	KindResponseShape:     ErrResponseShape,
	KindConfiguration:     ErrConfiguration,
}

// Error carries the kind of failure plus the identifier, region and stage it
// happened at.
type Error struct {
	Kind   Kind
	ASIN   string
	Region Region
	Stage  string
	Err    error
}

func (e *Error) Error() string {
	var sb strings.Builder
	if e.Stage != "" {
		sb.WriteString(e.Stage)
		sb.WriteString(": ")
	}
	if e.Err != nil {
		sb.WriteString(e.Err.Error())
	} else if s, ok := kindSentinels[e.Kind]; ok {
		sb.WriteString(s.Error())
	} else {
		sb.WriteString(string(e.Kind))
	}
	if e.ASIN != "" {
		fmt.Fprintf(&sb, " (asin=%s", e.ASIN)
		if e.Region != "" {
			fmt.Fprintf(&sb, " region=%s", e.Region)
		}
		sb.WriteString(")")
	}
	return sb.String()
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches the kind sentinel so errors.Is(err, ErrNotFound) works for
// any *Error of KindNotFound.
func (e *Error) Is(target error) bool {
	s, ok := kindSentinels[e.Kind]
	return ok && s == target
}

// NewError builds an *Error.
func NewError(kind Kind, stage string, err error) *Error {
	return &Error{Kind: kind, Stage: stage, Err: err}
}

// Errorf builds an *Error with a formatted message.
func Errorf(kind Kind, stage, format string, args ...any) *Error {
	return &Error{Kind: kind, Stage: stage, Err: fmt.Errorf(format, args...)}
}

// WithTarget stamps the identifier and region onto err when it is an *Error
// that lacks them, or wraps it as an unknown-kind *Error otherwise.
func WithTarget(err error, asin string, region Region, stage string) error {
	if err == nil {
		return nil
	}
	var de *Error
	if errors.As(err, &de) {
		if de.ASIN == "" {
			de.ASIN = asin
		}
		if de.Region == "" {
			de.Region = region
		}
		if de.Stage == "" {
			de.Stage = stage
		}
		return de
	}
	return &Error{Kind: KindUnknown, ASIN: asin, Region: region, Stage: stage, Err: err}
}

// KindOf returns the kind of err, or KindUnknown.
func KindOf(err error) Kind {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	for k, s := range kindSentinels {
		if errors.Is(err, s) {
			return k
		}
	}
	return KindUnknown
}

// Retryable reports whether a caller may reasonably try again.
func Retryable(err error) bool {
	return KindOf(err) == KindTimeout
}
