package filtering

import (
	"context"
	"fmt"
	"strconv"

	"go.uber.org/zap"

	"github.com/spigell/skill-matcher/internal/entity"
)

type minAttributesFilter struct {
	min      int
	disabled bool
	reason   string
}

// NewMinAttributes creates a filter that drops entities with fewer distinct
// attributes than configured.
func NewMinAttributes() Filter {
	return &minAttributesFilter{}
}

func (f *minAttributesFilter) Name() string { return "min_attributes" }

func (f *minAttributesFilter) Disable(reason string) {
	f.disabled = true
	f.reason = reason
}

func (f *minAttributesFilter) IsEnabled() bool { return !f.disabled }

func (f *minAttributesFilter) Validate(cfg *Config) error {
	f.min = 0
	if cfg == nil {
		return nil
	}
	if cfg.MinAttributes < 0 {
		return fmt.Errorf("min-attributes must not be negative, got %d", cfg.MinAttributes)
	}
	f.min = cfg.MinAttributes
	return nil
}

func (f *minAttributesFilter) Apply(_ context.Context, deps Deps, items []entity.Entity) ([]entity.Entity, Step, error) {
	initial := len(items)
	if f.min == 0 {
		return items, Step{Initial: initial, Dropped: 0, Left: initial}, nil
	}

	kept := make([]entity.Entity, 0, len(items))
	var removed []string
	for _, e := range items {
		if len(e.AttributeSet()) < f.min {
			removed = append(removed, e.ID)
			continue
		}
		kept = append(kept, e)
	}

	if len(removed) > 0 {
		deps.Logger.Info("excluding entities with too few attributes",
			zap.Int("min_attributes", f.min),
			zap.Strings("excluded_entities", removed),
			zap.Int("entities_left", len(kept)),
		)
	}

	return kept, Step{Initial: initial, Dropped: len(removed), Left: len(kept)}, nil
}

func (f *minAttributesFilter) Status() Status {
	return Status{
		Name:    f.Name(),
		Enabled: f.IsEnabled(),
		Reason:  f.reason,
		Details: map[string]string{"min_attributes": strconv.Itoa(f.min)},
	}
}
