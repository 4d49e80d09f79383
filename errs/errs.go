// Package errs defines the error values shared by all otukit packages.
//
// Every failure surfaced by the pipeline matches exactly one of the sentinel
// errors below through errors.Is. Typed errors carry the offending identifiers
// so callers can report them without parsing messages:
//
//	summary, err := diversity.Estimate(ctx, ds, 1000, 100, 42)
//	var depthErr *errs.InsufficientDepthError
//	if errors.As(err, &depthErr) {
//	    fmt.Printf("sample %s has only %d reads\n", depthErr.SampleID, depthErr.Total)
//	}
//
// None of these errors are transient; nothing in otukit retries.
package errs

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrMalformedInput indicates that an input parses but violates a table
	// invariant: mismatched identifier sets, duplicate identifiers, ragged rows.
	ErrMalformedInput = errors.New("malformed input")

	// ErrInsufficientDepth indicates that a rarefaction depth exceeds a sample's total reads.
	ErrInsufficientDepth = errors.New("insufficient sequencing depth")

	// ErrUnknownRank indicates that a taxonomic rank is not defined by the taxonomy table.
	ErrUnknownRank = errors.New("unknown taxonomic rank")

	// ErrEmptySampleGroup indicates that a filter or grouping left no samples or taxa.
	ErrEmptySampleGroup = errors.New("empty sample group")

	// ErrInvalidArgument indicates an out-of-range parameter such as a
	// non-positive depth or a prune threshold outside [0,1).
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrDuplicateID indicates that an identifier appears twice on one table axis.
	// It always travels wrapped in a MalformedInputError.
	ErrDuplicateID = errors.New("duplicate identifier")

	// ErrEmptyID indicates a blank sample or taxon identifier.
	ErrEmptyID = errors.New("empty identifier")

	// ErrChecksumMismatch indicates that a snapshot payload does not match its stored checksum.
	ErrChecksumMismatch = errors.New("checksum mismatch")
)

// MalformedInputError describes an input table that violates an invariant.
type MalformedInputError struct {
	// Source names the file or table the problem was found in.
	Source string
	// Reason is a short human-readable description.
	Reason string
	// IDs lists the offending identifiers, if any.
	IDs []string
	// Err is an optional underlying cause.
	Err error
}

func (e *MalformedInputError) Error() string {
	var sb strings.Builder
	sb.WriteString(ErrMalformedInput.Error())
	if e.Source != "" {
		sb.WriteString(" in ")
		sb.WriteString(e.Source)
	}
	sb.WriteString(": ")
	sb.WriteString(e.Reason)
	if len(e.IDs) > 0 {
		sb.WriteString(" [")
		sb.WriteString(summarizeIDs(e.IDs, 5))
		sb.WriteString("]")
	}
	if e.Err != nil {
		sb.WriteString(": ")
		sb.WriteString(e.Err.Error())
	}

	return sb.String()
}

func (e *MalformedInputError) Is(target error) bool {
	return target == ErrMalformedInput
}

func (e *MalformedInputError) Unwrap() error {
	return e.Err
}

// Malformed is a shorthand constructor for MalformedInputError.
func Malformed(source, reason string, ids ...string) *MalformedInputError {
	return &MalformedInputError{Source: source, Reason: reason, IDs: ids}
}

// InsufficientDepthError reports a sample whose total read count is below the
// requested rarefaction depth.
type InsufficientDepthError struct {
	SampleID string
	Total    uint64
	Depth    int
}

func (e *InsufficientDepthError) Error() string {
	return fmt.Sprintf("%s: sample %q has %d reads, depth %d requested",
		ErrInsufficientDepth, e.SampleID, e.Total, e.Depth)
}

func (e *InsufficientDepthError) Is(target error) bool {
	return target == ErrInsufficientDepth
}

// UnknownRankError reports a rank name missing from the taxonomy table.
type UnknownRankError struct {
	Rank  string
	Known []string
}

func (e *UnknownRankError) Error() string {
	return fmt.Sprintf("%s %q (known ranks: %s)", ErrUnknownRank, e.Rank, strings.Join(e.Known, ", "))
}

func (e *UnknownRankError) Is(target error) bool {
	return target == ErrUnknownRank
}

// EmptySampleGroupError reports an operation that was left with nothing to work on.
type EmptySampleGroupError struct {
	// Stage names the operation, e.g. "filter" or "rarefaction".
	Stage string
	// Axis is "samples" or "taxa".
	Axis string
}

func (e *EmptySampleGroupError) Error() string {
	return fmt.Sprintf("%s: %s left no %s", ErrEmptySampleGroup, e.Stage, e.Axis)
}

func (e *EmptySampleGroupError) Is(target error) bool {
	return target == ErrEmptySampleGroup
}

// InvalidArgument wraps ErrInvalidArgument with a formatted message.
func InvalidArgument(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidArgument, fmt.Sprintf(format, args...))
}

func summarizeIDs(ids []string, limit int) string {
	if len(ids) <= limit {
		return strings.Join(ids, ", ")
	}

	return fmt.Sprintf("%s, ... (%d more)", strings.Join(ids[:limit], ", "), len(ids)-limit)
}
