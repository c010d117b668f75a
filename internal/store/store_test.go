package store_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shoplens/internal/rawdoc"
	"shoplens/internal/store"
	"shoplens/internal/testsupport"
)

func TestSaveAndLoadDocuments(t *testing.T) {
	db := testsupport.SetupTestDB(t)
	dbManager := testsupport.NewTestDBManager(db)
	logger := testsupport.GetLogger()

	day := time.Date(2024, 10, 1, 10, 0, 0, 0, time.UTC)
	docs := []rawdoc.Doc{
		testsupport.TrackingDoc("s1", "v1", "DE", day, []string{"X"}, []string{"X"}),
		testsupport.TrackingDoc("s2", "v2", "FR", day, []string{"Y"}, nil),
	}

	stored, err := store.SaveDocuments(dbManager, logger, "tracking", docs)
	require.NoError(t, err)
	assert.Equal(t, 2, stored)

	loaded, err := store.LoadCollection(db, logger, "tracking", 0)
	require.NoError(t, err)
	require.Len(t, loaded, 2)

	ids := []string{rawdoc.ResolveID(loaded[0]), rawdoc.ResolveID(loaded[1])}
	assert.ElementsMatch(t, []string{"s1", "s2"}, ids)
}

func TestLoadCollectionAppliesCap(t *testing.T) {
	db := testsupport.SetupTestDB(t)
	dbManager := testsupport.NewTestDBManager(db)
	logger := testsupport.GetLogger()

	day := time.Date(2024, 10, 1, 10, 0, 0, 0, time.UTC)
	var docs []rawdoc.Doc
	for i := 0; i < 10; i++ {
		docs = append(docs, testsupport.TrackingDoc("s", "v", "DE", day, nil, nil))
	}
	_, err := store.SaveDocuments(dbManager, logger, "tracking", docs)
	require.NoError(t, err)

	capped, err := store.LoadCollection(db, logger, "tracking", 3)
	require.NoError(t, err)
	assert.Len(t, capped, 3)
}

func TestCollectionsAreIsolated(t *testing.T) {
	db := testsupport.SetupTestDB(t)
	dbManager := testsupport.NewTestDBManager(db)
	logger := testsupport.GetLogger()

	_, err := store.SaveDocuments(dbManager, logger, "listings", []rawdoc.Doc{
		testsupport.ListingDoc("p1", "Sneaker", 79.90, "c1", "Acme"),
	})
	require.NoError(t, err)
	_, err = store.SaveDocuments(dbManager, logger, "categories", []rawdoc.Doc{
		testsupport.CategoryDoc("c1", "Shoes"),
	})
	require.NoError(t, err)

	listings, err := store.LoadCollection(db, logger, "listings", 0)
	require.NoError(t, err)
	assert.Len(t, listings, 1)

	count, err := store.CountCollection(db, "categories")
	require.NoError(t, err)
	assert.EqualValues(t, 1, count)
}

func TestRevisionChangesOnWrite(t *testing.T) {
	db := testsupport.SetupTestDB(t)
	dbManager := testsupport.NewTestDBManager(db)
	logger := testsupport.GetLogger()

	before, err := store.Revision(db)
	require.NoError(t, err)

	_, err = store.SaveDocuments(dbManager, logger, "tracking", []rawdoc.Doc{
		testsupport.TrackingDoc("s1", "v1", "DE", time.Now().UTC(), nil, nil),
	})
	require.NoError(t, err)

	after, err := store.Revision(db)
	require.NoError(t, err)
	assert.NotEqual(t, before, after)
}

func TestPruneOlderThan(t *testing.T) {
	db := testsupport.SetupTestDB(t)
	dbManager := testsupport.NewTestDBManager(db)
	logger := testsupport.GetLogger()

	_, err := store.SaveDocuments(dbManager, logger, "tracking", []rawdoc.Doc{
		testsupport.TrackingDoc("s1", "v1", "DE", time.Now().UTC(), nil, nil),
	})
	require.NoError(t, err)

	// Everything was just written: a cutoff in the past removes nothing.
	removed, err := store.PruneOlderThan(dbManager, logger, time.Now().UTC().Add(-24*time.Hour))
	require.NoError(t, err)
	assert.Zero(t, removed)

	// A future cutoff removes the lot.
	removed, err = store.PruneOlderThan(dbManager, logger, time.Now().UTC().Add(time.Hour))
	require.NoError(t, err)
	assert.EqualValues(t, 1, removed)
}
