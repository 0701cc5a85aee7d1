package tyco

import "fmt"

// Kind enumerates the exhaustive set of ways a parse can fail.
type Kind int

const (
	FileAccess Kind = iota
	Malformatted
	InvalidComment
	MissingColon
	DuplicateGlobal
	DuplicateAttr
	SchemaAfterInit
	PrimaryKeyOnArray
	UnknownAttr
	UnknownReference
	DuplicatePrimaryKey
	MissingAttr
	PositionalAfterKeyword
	ExpectedArray
	StrayColon
	BadDelimiter
	UnclosedString
	InvalidBool
	InvalidNumber
	DoubleRender
	UnresolvedReferenceInTemplate
	ParentOverflow
	UntemplatableType
)

var kindNames = map[Kind]string{
	FileAccess:                    "FileAccess",
	Malformatted:                  "Malformatted",
	InvalidComment:                "InvalidComment",
	MissingColon:                  "MissingColon",
	DuplicateGlobal:               "DuplicateGlobal",
	DuplicateAttr:                 "DuplicateAttr",
	SchemaAfterInit:               "SchemaAfterInit",
	PrimaryKeyOnArray:             "PrimaryKeyOnArray",
	UnknownAttr:                   "UnknownAttr",
	UnknownReference:              "UnknownReference",
	DuplicatePrimaryKey:           "DuplicatePrimaryKey",
	MissingAttr:                   "MissingAttr",
	PositionalAfterKeyword:        "PositionalAfterKeyword",
	ExpectedArray:                 "ExpectedArray",
	StrayColon:                    "StrayColon",
	BadDelimiter:                  "BadDelimiter",
	UnclosedString:                "UnclosedString",
	InvalidBool:                   "InvalidBool",
	InvalidNumber:                 "InvalidNumber",
	DoubleRender:                  "DoubleRender",
	UnresolvedReferenceInTemplate: "UnresolvedReferenceInTemplate",
	ParentOverflow:                "ParentOverflow",
	UntemplatableType:             "UntemplatableType",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "Unknown"
}

// Error is the single error type surfaced by the parser. It always carries
// a Kind and, whenever a location is available, the Fragment it occurred at.
type Error struct {
	Kind     Kind
	Fragment *Fragment
	Message  string
	cause    error
}

func (e *Error) Error() string {
	if e.Fragment == nil {
		return fmt.Sprintf("%s: %s", e.Kind, e.Message)
	}
	f := e.Fragment
	loc := f.Source
	if loc == "" {
		loc = "<input>"
	}
	return fmt.Sprintf("%s:%d:%d - %s\n    %s", loc, f.Row, f.Column, e.Message, f.LineText)
}

func (e *Error) Unwrap() error { return e.cause }

// errAt builds a located Error of the given kind.
func errAt(kind Kind, f Fragment, format string, args ...any) *Error {
	frag := f
	return &Error{Kind: kind, Fragment: &frag, Message: fmt.Sprintf(format, args...)}
}

// errAtPtr is like errAt but accepts a possibly-nil fragment (e.g. FileAccess
// before any source text has been read).
func errAtPtr(kind Kind, f *Fragment, format string, args ...any) *Error {
	return &Error{Kind: kind, Fragment: f, Message: fmt.Sprintf(format, args...)}
}

// wrap attaches a causal error without changing the Kind/location.
func (e *Error) wrap(cause error) *Error {
	e.cause = cause
	return e
}
