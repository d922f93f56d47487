package services

import (
	"errors"
	"strings"
)

// Markers classify failures. Every error built by Wrap matches exactly one.
var (
	ErrExternalTool  = errors.New("external tool error")
	ErrValidation    = errors.New("validation error")
	ErrConfiguration = errors.New("configuration error")
	ErrNotFound      = errors.New("not found")
	ErrTimeout       = errors.New("timeout")
	ErrTransient     = errors.New("transient failure")
)

// Failure is the error type produced by Wrap. Stage names the broadcaster
// component that failed (feed, translate, tts, image, render, publish) and Op
// the action within it.
type Failure struct {
	Marker error
	Stage  string
	Op     string
	Detail string
	Cause  error
}

func (f *Failure) Error() string {
	var b strings.Builder
	b.WriteString(f.Marker.Error())
	b.WriteString(": ")
	wrote := false
	for _, part := range []string{f.Stage, f.Op, f.Detail} {
		if part == "" {
			continue
		}
		if wrote {
			b.WriteString(": ")
		}
		b.WriteString(part)
		wrote = true
	}
	if !wrote {
		b.WriteString("service failure")
	}
	if f.Cause != nil {
		b.WriteString(": ")
		b.WriteString(f.Cause.Error())
	}
	return b.String()
}

// Unwrap exposes both the marker and the cause to errors.Is and errors.As.
func (f *Failure) Unwrap() []error {
	if f.Cause == nil {
		return []error{f.Marker}
	}
	return []error{f.Marker, f.Cause}
}

// Wrap tags err with marker and the stage/op where it happened. A nil marker
// means ErrTransient; a nil err yields a failure with no cause.
func Wrap(marker error, stage, operation, message string, err error) error {
	if marker == nil {
		marker = ErrTransient
	}
	return &Failure{
		Marker: marker,
		Stage:  strings.TrimSpace(stage),
		Op:     strings.TrimSpace(operation),
		Detail: strings.TrimSpace(message),
		Cause:  err,
	}
}

// StageOf returns the stage of the outermost Failure in err's chain.
func StageOf(err error) string {
	var f *Failure
	if errors.As(err, &f) {
		return f.Stage
	}
	return ""
}

// IsPermanent reports whether retrying cannot help: validation,
// configuration and not-found failures. Untagged errors are retryable.
func IsPermanent(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, ErrValidation) || errors.Is(err, ErrConfiguration) || errors.Is(err, ErrNotFound)
}

// Classify returns the label persisted in history and logged as error_kind.
func Classify(err error) string {
	if err == nil {
		return ""
	}
	for _, m := range classes {
		if errors.Is(err, m.marker) {
			return m.label
		}
	}
	return "transient"
}

var classes = []struct {
	marker error
	label  string
}{
	{ErrConfiguration, "configuration"},
	{ErrValidation, "validation"},
	{ErrNotFound, "not_found"},
	{ErrTimeout, "timeout"},
	{ErrExternalTool, "external_tool"},
}
