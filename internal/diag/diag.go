// Package diag provides positional error reporting shared by every pass of the
// assembler pipeline, from the source loader through the encoder.
package diag

import (
	"fmt"
	"strings"
)

// Position identifies a location in original source, surviving include expansion.
type Position struct {
	File   string
	Line   int
	Column int
}

func (p Position) String() string {
	return fmt.Sprintf("%s:%d:%d", p.File, p.Line, p.Column)
}

// Kind categorizes a reported error, matching the error kinds of spec §7.
type Kind int

const (
	KindSyntax Kind = iota
	KindInclude
	KindNameResolution
	KindRange
	KindAlignment
	KindInstructionForm
	KindAbort
	KindIO
)

func (k Kind) String() string {
	switch k {
	case KindSyntax:
		return "syntax"
	case KindInclude:
		return "include"
	case KindNameResolution:
		return "name-resolution"
	case KindRange:
		return "range"
	case KindAlignment:
		return "alignment"
	case KindInstructionForm:
		return "instruction-form"
	case KindAbort:
		return "abort"
	case KindIO:
		return "io"
	default:
		return "unknown"
	}
}

// Error is a single user-visible diagnostic with origin and offending context.
type Error struct {
	Pos     Position
	Kind    Kind
	Message string
	Context string
}

func New(pos Position, kind Kind, format string, args ...any) *Error {
	return &Error{Pos: pos, Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func (e *Error) Error() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s: error: %s", e.Pos, e.Message)
	if e.Context != "" {
		fmt.Fprintf(&sb, "\n    %s", e.Context)
	}
	return sb.String()
}

// List collects independent errors from a single pass so they can be reported
// together instead of aborting on the first one (spec §7).
type List struct {
	Errors []*Error
}

func (l *List) Add(err *Error) {
	l.Errors = append(l.Errors, err)
}

func (l *List) Addf(pos Position, kind Kind, format string, args ...any) {
	l.Add(New(pos, kind, format, args...))
}

func (l *List) HasErrors() bool {
	return len(l.Errors) > 0
}

func (l *List) Error() string {
	lines := make([]string, len(l.Errors))
	for i, e := range l.Errors {
		lines[i] = e.Error()
	}
	return strings.Join(lines, "\n")
}
