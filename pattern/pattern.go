// Package pattern parses and classifies organization/project/repository query
// patterns. A pattern has up to three slash-separated segments, each of which
// may carry leading/trailing wildcards. Matching is always case-insensitive.
package pattern

import (
	"strings"
)

// Separator splits a raw pattern into its segments.
const Separator = "/"

// MaxSegments is the number of segments a fully-expanded pattern carries.
const MaxSegments = 3

// Kind classifies how a single segment matches candidate values.
type Kind int8

const (
	// Any matches every value. Written as a bare "*".
	Any Kind = iota

	// Exact matches the needle exactly (case-insensitive).
	Exact

	// Prefix matches values starting with the needle. Written as "needle*".
	Prefix

	// Suffix matches values ending with the needle. Written as "*needle".
	Suffix

	// Contains matches values containing the needle. Written as "*needle*".
	Contains
)

// String returns a human-readable name for the segment kind.
func (k Kind) String() string {
	switch k {
	case Any:
		return "any"
	case Exact:
		return "exact"
	case Prefix:
		return "prefix"
	case Suffix:
		return "suffix"
	case Contains:
		return "contains"
	default:
		return "unknown"
	}
}

// Segment is one slot of a pattern: a match kind plus its needle.
// The needle is empty for Any segments.
type Segment struct {
	Kind   Kind
	Needle string
}

// AnySegment is the segment that matches everything.
var AnySegment = Segment{Kind: Any}

// Match reports whether the segment matches the given value.
// Matching is case-insensitive; an Any segment matches everything,
// including the empty string.
func (s Segment) Match(value string) bool {
	if s.Kind == Any {
		return true
	}

	v := strings.ToLower(value)
	needle := strings.ToLower(s.Needle)

	switch s.Kind {
	case Exact:
		return v == needle
	case Prefix:
		return strings.HasPrefix(v, needle)
	case Suffix:
		return strings.HasSuffix(v, needle)
	case Contains:
		return strings.Contains(v, needle)
	default:
		return false
	}
}

// IsAny reports whether the segment matches everything.
func (s Segment) IsAny() bool {
	return s.Kind == Any
}

// String renders the segment back in its wildcard notation.
func (s Segment) String() string {
	switch s.Kind {
	case Any:
		return "*"
	case Prefix:
		return s.Needle + "*"
	case Suffix:
		return "*" + s.Needle
	case Contains:
		return "*" + s.Needle + "*"
	default:
		return s.Needle
	}
}

// Query is a parsed pattern plus its resolution scope. A query with fewer
// than three supplied segments preserves both candidate expansions of the
// two-token form; Triple materializes the one a backend's capability model
// supports.
type Query struct {
	raw      string
	segments []Segment

	// Backend restricts resolution to the named backend when non-empty.
	Backend string

	// Endpoint restricts resolution to the backend configured with this
	// endpoint URL when non-empty.
	Endpoint string
}

// Parse parses a raw pattern string. The explicit backend name and endpoint
// URL are optional; supplying either forces single-backend resolution.
// It returns a *SyntaxError for an empty pattern, more than three segments,
// or disallowed characters.
func Parse(raw, backend, endpoint string) (*Query, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return nil, newSyntaxError(raw, "pattern is empty")
	}

	tokens := strings.Split(trimmed, Separator)
	if len(tokens) > MaxSegments {
		return nil, newSyntaxError(raw, "more than three segments")
	}

	segments := make([]Segment, 0, len(tokens))
	for _, tok := range tokens {
		seg, err := classify(raw, tok)
		if err != nil {
			return nil, err
		}
		segments = append(segments, seg)
	}

	return &Query{
		raw:      trimmed,
		segments: segments,
		Backend:  backend,
		Endpoint: endpoint,
	}, nil
}

// classify turns a single token into a Segment based on its wildcard markers.
func classify(raw, token string) (Segment, error) {
	if token == "" {
		return Segment{}, newSyntaxError(raw, "empty segment")
	}

	if token == "*" {
		return AnySegment, nil
	}

	leading := strings.HasPrefix(token, "*")
	trailing := strings.HasSuffix(token, "*")

	needle := strings.TrimPrefix(token, "*")
	needle = strings.TrimSuffix(needle, "*")

	if needle == "" {
		return Segment{}, newSyntaxError(raw, "segment is only wildcards")
	}
	if err := checkChars(raw, needle); err != nil {
		return Segment{}, err
	}

	switch {
	case leading && trailing:
		return Segment{Kind: Contains, Needle: needle}, nil
	case trailing:
		return Segment{Kind: Prefix, Needle: needle}, nil
	case leading:
		return Segment{Kind: Suffix, Needle: needle}, nil
	default:
		return Segment{Kind: Exact, Needle: needle}, nil
	}
}

// checkChars rejects characters outside the allowed repository-name alphabet.
// Wildcards are only valid at segment boundaries, so an embedded "*" is
// rejected here as well.
func checkChars(raw, needle string) error {
	for _, r := range needle {
		switch {
		case r >= 'a' && r <= 'z':
		case r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9':
		case r == '-' || r == '_' || r == '.' || r == ' ':
		default:
			return newSyntaxError(raw, "disallowed character "+string(r))
		}
	}
	return nil
}

// Raw returns the pattern string as supplied by the caller.
func (q *Query) Raw() string {
	return q.raw
}

// Segments returns the segments exactly as supplied (1-3 of them),
// before any expansion.
func (q *Query) Segments() []Segment {
	out := make([]Segment, len(q.segments))
	copy(out, q.segments)
	return out
}

// Federated reports whether the query fans out to every configured backend.
// Supplying an explicit backend or endpoint forces single-backend resolution,
// regardless of whether the pattern itself contains wildcards.
func (q *Query) Federated() bool {
	return q.Backend == "" && q.Endpoint == ""
}

// Triple expands the supplied segments to exactly three, choosing the
// expansion the target backend's capability model supports:
//
//   - one token is a repository-name filter: {Any, Any, token}
//   - two tokens against a backend with a project hierarchy: {org, project, Any}
//   - two tokens against a project-less backend: {org, Any, repo}
//   - three tokens are used as-is
//
// The result is indexed organization, project, repository.
func (q *Query) Triple(hasProjects bool) [3]Segment {
	switch len(q.segments) {
	case 1:
		return [3]Segment{AnySegment, AnySegment, q.segments[0]}
	case 2:
		if hasProjects {
			return [3]Segment{q.segments[0], q.segments[1], AnySegment}
		}
		return [3]Segment{q.segments[0], AnySegment, q.segments[1]}
	default:
		return [3]Segment{q.segments[0], q.segments[1], q.segments[2]}
	}
}

// String renders the pattern in its canonical wildcard notation.
func (q *Query) String() string {
	parts := make([]string, len(q.segments))
	for i, s := range q.segments {
		parts[i] = s.String()
	}
	return strings.Join(parts, Separator)
}
