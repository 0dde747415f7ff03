package filtering

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/spigell/skill-matcher/internal/entity"
	"github.com/spigell/skill-matcher/internal/logger"
)

// Filter represents a single filtering step applied to an entity collection
// before it is matched.
type Filter interface {
	Name() string
	Disable(reason string)
	IsEnabled() bool

	Validate(cfg *Config) error
	Apply(ctx context.Context, deps Deps, items []entity.Entity) ([]entity.Entity, Step, error)
}

// Deps aggregates dependencies shared across all filtering steps.
type Deps struct {
	Logger *zap.Logger
	Side   entity.Side
}

// Step describes the result of executing a filtering step.
type Step struct {
	Initial int
	Dropped int
	Left    int
}

// Config contains configuration settings consumed by the filters.
type Config struct {
	Disabled      []string `mapstructure:"disabled"`
	Exclude       []string `mapstructure:"exclude"`
	ExcludeFile   string   `mapstructure:"exclude-file"`
	MinAttributes int      `mapstructure:"min-attributes"`
}

// Status represents runtime information about a filter.
type Status struct {
	Name    string
	Enabled bool
	Reason  string
	Details map[string]string
}

// statusProvider is implemented by filters that can supply detailed status information.
type statusProvider interface {
	Status() Status
}

// Default returns the standard filter chain.
func Default() []Filter {
	return []Filter{
		NewExcluded(),
		NewExcludeFile(),
		NewMinAttributes(),
	}
}

// Configured returns the standard chain with the filters listed in
// cfg.Disabled switched off.
func Configured(cfg *Config) []Filter {
	steps := Default()
	if cfg == nil {
		return steps
	}

	for _, name := range cfg.Disabled {
		DisableByName(steps, name, "disabled in config")
	}
	return steps
}

// DisableByName marks a filter with the provided name as disabled while keeping it in the list.
func DisableByName(steps []Filter, name, reason string) {
	for _, step := range steps {
		if step.Name() == name {
			step.Disable(reason)
		}
	}
}

// Run executes the supplied filters sequentially and returns the entities
// that survived. The input slice is left untouched.
func Run(ctx context.Context, cfg *Config, deps Deps, steps []Filter, items []entity.Entity) ([]entity.Entity, error) {
	for _, step := range steps {
		if !step.IsEnabled() {
			continue
		}
		if err := step.Validate(cfg); err != nil {
			return nil, fmt.Errorf("%s: %w", step.Name(), err)
		}
	}

	log := logger.WithFields(deps.Logger, zap.Stringer("side", deps.Side))

	for _, step := range steps {
		if !step.IsEnabled() {
			log.Debug("filter disabled", zap.String("name", step.Name()))
			continue
		}

		next, info, err := step.Apply(ctx, Deps{Logger: log, Side: deps.Side}, items)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", step.Name(), err)
		}

		log.Debug("filter step",
			zap.String("name", step.Name()),
			zap.Int("initial", info.Initial),
			zap.Int("dropped", info.Dropped),
			zap.Int("left", info.Left),
		)

		items = next
	}

	return items, nil
}

// Describe returns status entries for the provided filters.
func Describe(steps []Filter) []Status {
	statuses := make([]Status, 0, len(steps))
	for _, step := range steps {
		if reporter, ok := step.(statusProvider); ok {
			statuses = append(statuses, reporter.Status())
			continue
		}

		statuses = append(statuses, Status{
			Name:    step.Name(),
			Enabled: step.IsEnabled(),
		})
	}
	return statuses
}

// exclude returns the entities whose id is not in ids, plus the ids removed.
func exclude(items []entity.Entity, ids []string) ([]entity.Entity, []string) {
	if len(ids) == 0 {
		return items, nil
	}

	drop := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		drop[id] = struct{}{}
	}

	kept := make([]entity.Entity, 0, len(items))
	var removed []string
	for _, e := range items {
		if _, ok := drop[e.ID]; ok {
			removed = append(removed, e.ID)
			continue
		}
		kept = append(kept, e)
	}

	return kept, removed
}
