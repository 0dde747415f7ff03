package filtering

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/spigell/skill-matcher/internal/entity"
)

type excludedFilter struct {
	ids      []string
	disabled bool
	reason   string
}

// NewExcluded creates a filter that removes entities listed in the config.
func NewExcluded() Filter {
	return &excludedFilter{}
}

func (f *excludedFilter) Name() string { return "excluded" }

func (f *excludedFilter) Disable(reason string) {
	f.disabled = true
	f.reason = reason
}

func (f *excludedFilter) IsEnabled() bool { return !f.disabled }

func (f *excludedFilter) Validate(cfg *Config) error {
	f.ids = nil
	if cfg != nil {
		for _, id := range cfg.Exclude {
			if id = strings.TrimSpace(id); id != "" {
				f.ids = append(f.ids, id)
			}
		}
	}
	return nil
}

func (f *excludedFilter) Apply(_ context.Context, deps Deps, items []entity.Entity) ([]entity.Entity, Step, error) {
	initial := len(items)
	kept, removed := exclude(items, f.ids)
	if len(removed) > 0 {
		deps.Logger.Info("excluding entities listed in config",
			zap.Strings("excluded_entities", removed),
			zap.Int("entities_left", len(kept)),
		)
	}

	return kept, Step{Initial: initial, Dropped: len(removed), Left: len(kept)}, nil
}

func (f *excludedFilter) Status() Status {
	details := map[string]string{}
	if len(f.ids) > 0 {
		details["entities"] = strings.Join(f.ids, ",")
	}
	return Status{Name: f.Name(), Enabled: f.IsEnabled(), Reason: f.reason, Details: details}
}
