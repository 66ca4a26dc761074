package versioning

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edilcheck/compliance-pipeline/internal/entity"
)

func greenVerdict() entity.Verdict {
	return entity.Verdict{
		Doc: entity.Doc{DocType: "DURC"},
		Overall: entity.Overall{
			Status: "green", IsValid: true, Confidence: 0.9,
			Reasons: []string{"ok"},
		},
	}
}

func TestFirstVersionIsOne(t *testing.T) {
	store := NewMemoryStore()
	m := NewManager(store, nil)

	res, err := m.CreateVersionedDocument(context.Background(), "t1", "c1", "DURC", "hash-a", greenVerdict())

	require.NoError(t, err)
	assert.True(t, res.DidCreateNewVersion)
	assert.Nil(t, res.SupersededID)
	assert.Equal(t, 1, res.Record.Version)
	assert.True(t, res.Record.IsCurrent)
	assert.Equal(t, "t1:c1:DURC", res.Record.LogicalKey)
}

func TestSameContentHashIsIdempotent(t *testing.T) {
	store := NewMemoryStore()
	m := NewManager(store, nil)
	ctx := context.Background()

	first, err := m.CreateVersionedDocument(ctx, "t1", "c1", "DURC", "hash-a", greenVerdict())
	require.NoError(t, err)

	again, err := m.CreateVersionedDocument(ctx, "t1", "c1", "DURC", "hash-a", greenVerdict())
	require.NoError(t, err)

	assert.False(t, again.DidCreateNewVersion)
	assert.Equal(t, first.Record.ID, again.Record.ID)
	assert.Len(t, store.History("t1:c1:DURC"), 1)
}

func TestChangedContentAppendsVersion(t *testing.T) {
	store := NewMemoryStore()
	m := NewManager(store, nil)
	ctx := context.Background()

	v1, err := m.CreateVersionedDocument(ctx, "t1", "c1", "DURC", "hash-a", greenVerdict())
	require.NoError(t, err)
	v2, err := m.CreateVersionedDocument(ctx, "t1", "c1", "DURC", "hash-b", greenVerdict())
	require.NoError(t, err)

	assert.True(t, v2.DidCreateNewVersion)
	assert.Equal(t, 2, v2.Record.Version)
	require.NotNil(t, v2.Record.Supersedes)
	assert.Equal(t, v1.Record.ID, *v2.Record.Supersedes)
	require.NotNil(t, v2.SupersededID)
	assert.Equal(t, v1.Record.ID, *v2.SupersededID)

	old, ok := store.Get(v1.Record.ID)
	require.True(t, ok)
	assert.False(t, old.IsCurrent)
	require.NotNil(t, old.SupersededBy)
	assert.Equal(t, v2.Record.ID, *old.SupersededBy)
}

func TestChainStaysConsistentAcrossVersions(t *testing.T) {
	store := NewMemoryStore()
	m := NewManager(store, nil)
	ctx := context.Background()

	hashes := []string{"h1", "h2", "h3", "h4"}
	for _, h := range hashes {
		_, err := m.CreateVersionedDocument(ctx, "t1", "c1", "VISURA", h, greenVerdict())
		require.NoError(t, err)
	}

	history := store.History("t1:c1:VISURA")
	require.Len(t, history, 4)

	currents := 0
	for i, rec := range history {
		assert.Equal(t, i+1, rec.Version)
		if rec.IsCurrent {
			currents++
		}
	}
	assert.Equal(t, 1, currents)
	assert.True(t, history[3].IsCurrent)
}

func TestLogicalKeysAreIsolated(t *testing.T) {
	store := NewMemoryStore()
	m := NewManager(store, nil)
	ctx := context.Background()

	_, err := m.CreateVersionedDocument(ctx, "t1", "c1", "DURC", "h1", greenVerdict())
	require.NoError(t, err)
	other, err := m.CreateVersionedDocument(ctx, "t2", "c1", "DURC", "h1", greenVerdict())
	require.NoError(t, err)

	assert.Equal(t, 1, other.Record.Version)
	assert.True(t, other.DidCreateNewVersion)
}

func TestConcurrentWritersKeepOneCurrent(t *testing.T) {
	store := NewMemoryStore()
	m := NewManager(store, nil)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			hash := string(rune('a' + n))
			_, err := m.CreateVersionedDocument(ctx, "t1", "c1", "POS", hash, greenVerdict())
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	history := store.History("t1:c1:POS")
	require.Len(t, history, 8)
	currents := 0
	for _, rec := range history {
		if rec.IsCurrent {
			currents++
		}
	}
	assert.Equal(t, 1, currents)
}
