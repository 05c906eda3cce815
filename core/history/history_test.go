// Copyright 2025, the lingosync contributors
// SPDX-License-Identifier: AGPL-3.0-only

package history

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"codeberg.org/lingosync/lingosync/core/catalog"
	"codeberg.org/lingosync/lingosync/core/merge"
)

func openStore(t *testing.T) *Store {
	t.Helper()

	s, err := Open(filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, s.Close()) })

	return s
}

func TestRecordAndList(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := openStore(t)

	first := NewRun("sync", false)
	first.StartedAt = time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	first.FinishedAt = first.StartedAt.Add(2 * time.Second)

	previous := []byte("<?xml version=\"1.0\"?>\n<TS language=\"sv\"></TS>\n")

	require.NoError(t, s.Record(ctx, first, []Locale{
		{
			Locale:  "sv",
			Path:    "translations/sv.ts",
			Format:  "ts",
			Written: true,
			Stats:   merge.Stats{New: 2, Fuzzy: 1},
			Changes: []merge.Change{
				{Kind: merge.Added, Context: "Dialog", Source: "Save", From: catalog.Unfinished, To: catalog.Unfinished},
				{
					Kind: merge.Matched, Context: "Dialog", Source: "Close", PreviousSource: "Cancel",
					From: catalog.Finished, To: catalog.Fuzzy,
				},
			},
			Previous: previous,
		},
		{Locale: "ru", Path: "translations/ru.ts", Format: "ts", Stats: merge.Stats{New: 3}},
	}))

	second := NewRun("compact", true)
	second.StartedAt = first.StartedAt.Add(time.Hour)
	require.NoError(t, s.Record(ctx, second, nil))

	runs, err := s.List(ctx, 0)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, second.ID, runs[0].ID)
	assert.True(t, runs[0].DryRun)
	assert.Empty(t, runs[0].Locales)

	got := runs[1]
	assert.Equal(t, first.ID, got.ID)
	assert.Equal(t, "sync", got.Command)
	assert.True(t, first.StartedAt.Equal(got.StartedAt))
	assert.True(t, first.FinishedAt.Equal(got.FinishedAt))
	assert.Equal(t, 2, got.Changes)
	require.Len(t, got.Locales, 2)
	assert.Equal(t, "ru", got.Locales[0].Locale)
	assert.Equal(t, merge.Stats{New: 2, Fuzzy: 1}, got.Locales[1].Stats)
	assert.True(t, got.Locales[1].Written)

	limited, err := s.List(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)

	changes, err := s.Changes(ctx, first.ID, "sv")
	require.NoError(t, err)
	require.Len(t, changes, 2)
	assert.Equal(t, merge.Matched, changes[1].Kind)
	assert.Equal(t, "Cancel", changes[1].PreviousSource)
	assert.Equal(t, catalog.Fuzzy, changes[1].To)

	snap, err := s.Snapshot(ctx, first.ID, "sv")
	require.NoError(t, err)
	assert.Equal(t, previous, snap.Content)
	assert.Equal(t, "translations/sv.ts", snap.Path)
	assert.Equal(t, "ts", snap.Format)
}

func TestSnapshotMissing(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := openStore(t)

	run := NewRun("sync", false)
	require.NoError(t, s.Record(ctx, run, []Locale{{Locale: "ru", Path: "ru.po", Format: "po"}}))

	_, err := s.Snapshot(ctx, run.ID, "ru")
	require.ErrorIs(t, err, ErrNoSnapshot)

	_, err = s.Snapshot(ctx, run.ID, "de")
	require.ErrorIs(t, err, ErrNoSnapshot)

	_, err = s.Snapshot(ctx, uuid.New(), "ru")
	require.ErrorIs(t, err, ErrRunNotFound)

	_, err = s.Get(ctx, uuid.New())
	require.ErrorIs(t, err, ErrRunNotFound)
}

func TestRecordIsAtomic(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := openStore(t)

	run := NewRun("sync", false)
	err := s.Record(ctx, run, []Locale{
		{Locale: "sv", Path: "sv.ts", Format: "ts"},
		{Locale: "sv", Path: "sv.ts", Format: "ts"},
	})
	require.Error(t, err)

	runs, err := s.List(ctx, 0)
	require.NoError(t, err)
	assert.Empty(t, runs)
}

func TestReopen(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "history.db")

	s, err := Open(path)
	require.NoError(t, err)
	run := NewRun("sync", false)
	require.NoError(t, s.Record(ctx, run, nil))
	require.NoError(t, s.Close())

	s, err = Open(path)
	require.NoError(t, err)
	defer s.Close()

	got, err := s.Get(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, "sync", got.Command)
}
