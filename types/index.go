package types

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// RootID is the identifier of the whole-tree root node.
const RootID = "root"

var ErrInvalidID = errors.New("invalid test identifier")

// Index is the positional identifier of a case: the suite position and the
// case position within that suite. Both are assigned in first-seen order.
type Index struct {
	Suite int
	Case  int
}

func (i Index) String() string {
	return fmt.Sprintf("%d.%d", i.Suite, i.Case)
}

// SuiteID returns the identifier of a suite node.
func SuiteID(suite int) string {
	return strconv.Itoa(suite)
}

// IDKind describes what an identifier string refers to.
type IDKind int

const (
	IDRoot IDKind = iota
	IDSuite
	IDCase
)

// ID is a parsed test tree identifier.
type ID struct {
	Kind  IDKind
	Index Index // Case is meaningless for suites
}

func (id ID) String() string {
	switch id.Kind {
	case IDRoot:
		return RootID
	case IDSuite:
		return SuiteID(id.Index.Suite)
	default:
		return id.Index.String()
	}
}

// ParseID parses "root", "<suite>" or "<suite>.<case>".
func ParseID(s string) (ID, error) {
	if s == RootID {
		return ID{Kind: IDRoot}, nil
	}
	parts := strings.Split(s, ".")
	if len(parts) > 2 {
		return ID{}, fmt.Errorf("%w: %q", ErrInvalidID, s)
	}
	suite, err := parsePosition(parts[0])
	if err != nil {
		return ID{}, fmt.Errorf("%w: %q", ErrInvalidID, s)
	}
	if len(parts) == 1 {
		return ID{Kind: IDSuite, Index: Index{Suite: suite}}, nil
	}
	c, err := parsePosition(parts[1])
	if err != nil {
		return ID{}, fmt.Errorf("%w: %q", ErrInvalidID, s)
	}
	return ID{Kind: IDCase, Index: Index{Suite: suite, Case: c}}, nil
}

// ParseIndex parses a case identifier of the form "<suite>.<case>".
func ParseIndex(s string) (Index, error) {
	id, err := ParseID(s)
	if err != nil {
		return Index{}, err
	}
	if id.Kind != IDCase {
		return Index{}, fmt.Errorf("%w: %q is not a case identifier", ErrInvalidID, s)
	}
	return id.Index, nil
}

// parsePosition accepts only the canonical decimal form: digits without a
// sign and without leading zeros.
func parsePosition(s string) (int, error) {
	if s == "" || (len(s) > 1 && s[0] == '0') {
		return 0, ErrInvalidID
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0, ErrInvalidID
		}
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, ErrInvalidID
	}
	return n, nil
}

// IndexSet is an insertion-ordered set of case indexes. It holds the ids a
// caller asked to run and shrinks as results for them arrive.
type IndexSet struct {
	order []Index
	pos   map[Index]int
}

// NewIndexSet creates a set holding the given indexes in order.
func NewIndexSet(indexes ...Index) *IndexSet {
	s := &IndexSet{pos: make(map[Index]int, len(indexes))}
	for _, idx := range indexes {
		s.Add(idx)
	}
	return s
}

// Add inserts idx if it is not already present.
func (s *IndexSet) Add(idx Index) {
	if s.pos == nil {
		s.pos = make(map[Index]int)
	}
	if _, ok := s.pos[idx]; ok {
		return
	}
	s.pos[idx] = len(s.order)
	s.order = append(s.order, idx)
}

// Remove deletes idx and reports whether it was present.
func (s *IndexSet) Remove(idx Index) bool {
	i, ok := s.pos[idx]
	if !ok {
		return false
	}
	delete(s.pos, idx)
	s.order = append(s.order[:i], s.order[i+1:]...)
	for j := i; j < len(s.order); j++ {
		s.pos[s.order[j]] = j
	}
	return true
}

func (s *IndexSet) Contains(idx Index) bool {
	_, ok := s.pos[idx]
	return ok
}

func (s *IndexSet) Len() int {
	return len(s.order)
}

// Items returns the remaining indexes in insertion order.
func (s *IndexSet) Items() []Index {
	out := make([]Index, len(s.order))
	copy(out, s.order)
	return out
}
