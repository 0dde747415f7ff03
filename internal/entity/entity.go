package entity

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrInvalidEntityCollection is returned when a pair of entity collections
// cannot be matched against each other.
var ErrInvalidEntityCollection = errors.New("invalid entity collection")

// Side tells which collection an entity belongs to.
type Side int

const (
	SideA Side = iota
	SideB
)

func (s Side) String() string {
	switch s {
	case SideA:
		return "a"
	case SideB:
		return "b"
	default:
		return fmt.Sprintf("side(%d)", int(s))
	}
}

// Entity is a named item carrying a set of attribute tokens.
// Attributes keep the spelling they were supplied with; comparison
// always goes through Normalize.
type Entity struct {
	ID         string   `json:"id" mapstructure:"id"`
	Attributes []string `json:"attributes" mapstructure:"attributes"`
}

func New(id string, attributes ...string) Entity {
	return Entity{ID: id, Attributes: attributes}
}

// Normalize returns the comparison form of a token.
func Normalize(token string) string {
	return strings.ToLower(strings.TrimSpace(token))
}

// AttributeSet returns normalized attribute tokens mapped to the first
// original spelling seen. Blank tokens are skipped.
func (e Entity) AttributeSet() map[string]string {
	set := make(map[string]string, len(e.Attributes))
	for _, attr := range e.Attributes {
		key := Normalize(attr)
		if key == "" {
			continue
		}
		if _, ok := set[key]; !ok {
			set[key] = strings.TrimSpace(attr)
		}
	}

	return set
}

// Normalized returns the sorted, deduplicated normalized attributes.
func (e Entity) Normalized() []string {
	set := e.AttributeSet()
	out := make([]string, 0, len(set))
	for key := range set {
		out = append(out, key)
	}
	sort.Strings(out)

	return out
}

// Clone returns a deep copy of the entity.
func (e Entity) Clone() Entity {
	attrs := make([]string, len(e.Attributes))
	copy(attrs, e.Attributes)

	return Entity{ID: e.ID, Attributes: attrs}
}

// Snapshot deep-copies a collection so later mutation of the source is not
// observed by a running computation.
func Snapshot(entities []Entity) []Entity {
	out := make([]Entity, len(entities))
	for i, e := range entities {
		out[i] = e.Clone()
	}

	return out
}

// IDs returns the identifiers of the collection in order.
func IDs(entities []Entity) []string {
	ids := make([]string, 0, len(entities))
	for _, e := range entities {
		ids = append(ids, e.ID)
	}

	return ids
}

// ValidateSides checks that both collections can form one matching run:
// identifiers are non-empty, unique within a side and never on both sides.
func ValidateSides(sideA, sideB []Entity) error {
	seenA, err := validateSide(SideA, sideA)
	if err != nil {
		return err
	}

	if _, err := validateSide(SideB, sideB); err != nil {
		return err
	}

	for _, e := range sideB {
		if _, ok := seenA[e.ID]; ok {
			return fmt.Errorf("%w: entity %q appears on both sides", ErrInvalidEntityCollection, e.ID)
		}
	}

	return nil
}

func validateSide(side Side, entities []Entity) (map[string]struct{}, error) {
	seen := make(map[string]struct{}, len(entities))
	for i, e := range entities {
		if strings.TrimSpace(e.ID) == "" {
			return nil, fmt.Errorf("%w: side %s entity #%d has an empty id", ErrInvalidEntityCollection, side, i)
		}
		if _, ok := seen[e.ID]; ok {
			return nil, fmt.Errorf("%w: duplicate id %q on side %s", ErrInvalidEntityCollection, e.ID, side)
		}
		seen[e.ID] = struct{}{}
	}

	return seen, nil
}
