package filtering

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/spigell/skill-matcher/internal/entity"
)

// ExcludedEntities is the document stored in an exclude file.
type ExcludedEntities struct {
	Items []*ExcludedEntity
}

type ExcludedEntity struct {
	ID         string
	Reason     string
	ExcludedAt time.Time
}

// NewExcludedEntities marks ids as excluded now for the given reason.
func NewExcludedEntities(reason string, ids ...string) *ExcludedEntities {
	excluded := &ExcludedEntities{}
	for _, id := range ids {
		excluded.Items = append(excluded.Items, &ExcludedEntity{
			ID:         id,
			Reason:     reason,
			ExcludedAt: time.Now().UTC(),
		})
	}
	return excluded
}

// ExcludedFromFile reads an exclude file. A missing or empty file yields an
// empty list.
func ExcludedFromFile(path string) (*ExcludedEntities, error) {
	file, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return &ExcludedEntities{}, nil
	}
	if err != nil {
		return nil, err
	}
	defer file.Close()

	stat, err := file.Stat()
	if err != nil {
		return nil, err
	}

	if stat.Size() == 0 {
		return &ExcludedEntities{}, nil
	}

	var excluded ExcludedEntities
	if err := json.NewDecoder(file).Decode(&excluded); err != nil {
		return nil, err
	}
	return &excluded, nil
}

func (e *ExcludedEntities) Append(s *ExcludedEntities) {
	e.Items = append(e.Items, s.Items...)
}

func (e *ExcludedEntities) IDs() []string {
	ids := make([]string, 0, len(e.Items))
	for _, item := range e.Items {
		ids = append(ids, item.ID)
	}
	return ids
}

// ToFile overwrites path with the list. A failure to flush the file on close
// is reported as well.
func (e *ExcludedEntities) ToFile(path string) (err error) {
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := file.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("closing exclude file: %w", cerr)
		}
	}()

	enc := json.NewEncoder(file)
	enc.SetIndent("", "  ")
	if err := enc.Encode(e); err != nil {
		return fmt.Errorf("writing exclude file: %w", err)
	}
	return nil
}

type excludeFileFilter struct {
	path     string
	disabled bool
	reason   string
}

// NewExcludeFile creates a filter that removes entities contained in the exclude file.
func NewExcludeFile() Filter {
	return &excludeFileFilter{}
}

func (f *excludeFileFilter) Name() string { return "exclude_file" }

func (f *excludeFileFilter) Disable(reason string) {
	f.disabled = true
	f.reason = reason
}

func (f *excludeFileFilter) IsEnabled() bool { return !f.disabled }

func (f *excludeFileFilter) Validate(cfg *Config) error {
	f.path = ""
	if cfg != nil {
		f.path = strings.TrimSpace(cfg.ExcludeFile)
	}
	return nil
}

func (f *excludeFileFilter) Apply(_ context.Context, deps Deps, items []entity.Entity) ([]entity.Entity, Step, error) {
	initial := len(items)
	if f.path == "" {
		return items, Step{Initial: initial, Dropped: 0, Left: initial}, nil
	}

	excluded, err := ExcludedFromFile(f.path)
	if err != nil {
		return nil, Step{}, fmt.Errorf("getting excluded entities from file: %w", err)
	}

	kept, removed := exclude(items, excluded.IDs())
	if len(removed) > 0 {
		deps.Logger.Info("excluding entities based on exclude file",
			zap.String("path", f.path),
			zap.Strings("excluded_entities", removed),
			zap.Int("entities_left", len(kept)),
		)
	}

	return kept, Step{Initial: initial, Dropped: len(removed), Left: len(kept)}, nil
}

func (f *excludeFileFilter) Status() Status {
	details := map[string]string{}
	if f.path != "" {
		details["path"] = f.path
	}
	return Status{Name: f.Name(), Enabled: f.IsEnabled(), Reason: f.reason, Details: details}
}
