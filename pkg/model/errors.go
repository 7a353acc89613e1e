package model

import (
	"errors"
	"fmt"
)

// Kind classifies failures across normalization, the capability registry,
// the rendering core and the surface transports.
type Kind string

const (
	KindMalformedKey         Kind = "MalformedKey"
	KindUnknownPlugin        Kind = "UnknownPlugin"
	KindUnknownTemplate      Kind = "UnknownTemplate"
	KindMetadataLoad         Kind = "MetadataLoadError"
	KindIncompatiblePlugin   Kind = "IncompatiblePlugin"
	KindPluginFailure        Kind = "PluginFailure"
	KindRenderFailure        Kind = "RenderFailure"
	KindStartupTimeout       Kind = "StartupTimeout"
	KindProcessExitNonZero   Kind = "ProcessExitNonZero"
	KindUnexpectedServerExit Kind = "UnexpectedServerExit"
	KindUnknown              Kind = "Unknown"
)

// Sentinel errors, one per Kind. Use errors.Is against these; *Error values
// match the sentinel of their Kind.
var (
	ErrMalformedKey         = errors.New("malformed key")
	ErrUnknownPlugin        = errors.New("unknown plugin")
	ErrUnknownTemplate      = errors.New("unknown template")
	ErrMetadataLoad         = errors.New("metadata load error")
	ErrIncompatiblePlugin   = errors.New("incompatible plugin")
	ErrPluginFailure        = errors.New("plugin failure")
	ErrRenderFailure        = errors.New("render failure")
	ErrStartupTimeout       = errors.New("startup timeout")
	ErrProcessExitNonZero   = errors.New("process exited with non-zero status")
	ErrUnexpectedServerExit = errors.New("unexpected server exit")
)

var sentinels = map[Kind]error{
	KindMalformedKey:         ErrMalformedKey,
	KindUnknownPlugin:        ErrUnknownPlugin,
	KindUnknownTemplate:      ErrUnknownTemplate,
	KindMetadataLoad:         ErrMetadataLoad,
	KindIncompatiblePlugin:   ErrIncompatiblePlugin,
	KindPluginFailure:        ErrPluginFailure,
	KindRenderFailure:        ErrRenderFailure,
	KindStartupTimeout:       ErrStartupTimeout,
	KindProcessExitNonZero:   ErrProcessExitNonZero,
	KindUnexpectedServerExit: ErrUnexpectedServerExit,
}

// Error carries a Kind, the subject it concerns (a key, plugin or template
// id) and an optional cause.
type Error struct {
	Kind    Kind
	Subject string
	Detail  string
	Err     error
}

// NewError builds an *Error.
func NewError(kind Kind, subject, detail string, cause error) *Error {
	return &Error{Kind: kind, Subject: subject, Detail: detail, Err: cause}
}

// Errorf builds an *Error with a formatted detail.
func Errorf(kind Kind, subject, format string, args ...any) *Error {
	return &Error{Kind: kind, Subject: subject, Detail: fmt.Sprintf(format, args...)}
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	msg := string(e.Kind)
	if e.Subject != "" {
		msg += fmt.Sprintf(" %q", e.Subject)
	}
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap exposes the cause.
func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Is matches the sentinel for the error's kind.
func (e *Error) Is(target error) bool {
	if e == nil {
		return false
	}
	sentinel, ok := sentinels[e.Kind]
	return ok && sentinel == target
}

// KindOf reports the Kind carried by err, or KindUnknown.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var typed *Error
	if errors.As(err, &typed) {
		return typed.Kind
	}
	for kind, sentinel := range sentinels {
		if errors.Is(err, sentinel) {
			return kind
		}
	}
	return KindUnknown
}
