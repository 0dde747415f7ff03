package catalog

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spigell/skill-matcher/internal/entity"
)

const smallCatalog = `
positions:
  - name: Acme
    role: Backend Intern
    skills: [Go, SQL]
applicants:
  - name: alice
    skills: [go]
`

func TestDefault(t *testing.T) {
	c, err := Default()
	require.NoError(t, err)

	assert.Len(t, c.Positions, 10)
	assert.Len(t, c.Applicants, 10)

	google, ok := c.Position("Google")
	require.True(t, ok)
	assert.Equal(t, "Software Engineering Intern", google.Role)
	assert.Equal(t, []string{"Python", "Machine Learning", "Data Structures"}, google.Skills)

	ian, ok := c.Applicant("Ian")
	require.True(t, ok)
	assert.Equal(t, []string{"Game Development", "Unity", "C#"}, ian.Skills)
}

func TestParseRejectsDuplicates(t *testing.T) {
	doc := `
positions:
  - name: Acme
    skills: [go]
  - name: Acme
    skills: [sql]
`
	_, err := Parse([]byte(doc))
	require.Error(t, err)
	assert.True(t, errors.Is(err, entity.ErrInvalidEntityCollection))
}

func TestLoadOrDefault(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.yaml")
	require.NoError(t, os.WriteFile(path, []byte(smallCatalog), 0o600))

	c, err := LoadOrDefault(path)
	require.NoError(t, err)
	assert.Equal(t, []entity.Entity{entity.New("alice", "go")}, c.ApplicantEntities())
	assert.Equal(t, []entity.Entity{entity.New("Acme", "Go", "SQL")}, c.PositionEntities())

	c, err = LoadOrDefault("  ")
	require.NoError(t, err)
	assert.Len(t, c.Positions, 10)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestVocabulary(t *testing.T) {
	c := &Catalog{Positions: []Position{
		{Name: "Tesla", Skills: []string{"C", "C++"}},
		{Name: "IBM", Skills: []string{"Python", "c"}},
	}}

	assert.Equal(t, []string{"C", "C++", "Python"}, c.Vocabulary())
}

func TestStoreSnapshotIsolation(t *testing.T) {
	c, err := Parse([]byte(smallCatalog))
	require.NoError(t, err)

	s := NewStore(c)
	snap := s.Snapshot()
	snap.Positions[0].Skills[0] = "Rust"

	assert.Equal(t, "Go", s.Snapshot().Positions[0].Skills[0])

	s.Replace(&Catalog{})
	assert.Empty(t, s.Snapshot().Positions)
	assert.Equal(t, "Rust", snap.Positions[0].Skills[0])
}

func TestWatcherReloadsCatalog(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.yaml")
	require.NoError(t, os.WriteFile(path, []byte(smallCatalog), 0o600))

	c, err := Load(path)
	require.NoError(t, err)
	store := NewStore(c)

	w, err := NewWatcher(path, store, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Run(ctx)

	updated := smallCatalog + `  - name: bob
    skills: [sql]
`
	require.NoError(t, os.WriteFile(path, []byte(updated), 0o600))

	assert.Eventually(t, func() bool {
		return len(store.Snapshot().Applicants) == 2
	}, 5*time.Second, 20*time.Millisecond)
}

func TestWatcherKeepsCatalogOnBadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.yaml")
	require.NoError(t, os.WriteFile(path, []byte(smallCatalog), 0o600))

	c, err := Load(path)
	require.NoError(t, err)
	store := NewStore(c)

	w, err := NewWatcher(path, store, nil)
	require.NoError(t, err)
	defer w.watcher.Close()

	require.NoError(t, os.WriteFile(path, []byte("positions: ["), 0o600))
	w.reload()

	assert.Len(t, store.Snapshot().Applicants, 1)
}
