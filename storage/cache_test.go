package storage

import (
	"context"
	"testing"

	"github.com/c360studio/semprofile/vocabulary/profile"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCached_OneFetchPerEntity(t *testing.T) {
	s, bucket := seededKVStore(t)
	f := Cached(NewFactory(s))
	ctx := context.Background()

	_, err := f.Individuals.Individual(ctx, adaURI)
	require.NoError(t, err)
	_, err = f.Individuals.Individual(ctx, adaURI)
	require.NoError(t, err)
	assert.Equal(t, 1, bucket.gets)

	for _, prop := range []string{
		profile.FOAFFirstName,
		profile.FOAFLastName,
		profile.CoreEmail,
		profile.CorePreferredTitle,
		profile.CorePhoneNumber,
	} {
		_, err := f.DataPropertyStatements.StatementsByProperty(ctx, adaURI, prop)
		require.NoError(t, err)
	}
	assert.Equal(t, 2, bucket.gets, "individual plus one statement fetch")

	last, err := f.DataPropertyStatements.StatementsByProperty(ctx, adaURI, profile.FOAFLastName)
	require.NoError(t, err)
	require.Len(t, last, 1)
	assert.Equal(t, "Lovelace", last[0].Data)
}

func TestCached_NotFoundNotCached(t *testing.T) {
	bucket := newStubBucket()
	s := NewKVStoreFromBucket(bucket)
	f := Cached(NewFactory(s))
	ctx := context.Background()

	_, err := f.Individuals.Individual(ctx, adaURI)
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, s.Put(ctx, Individual{URI: adaURI, Label: "Lovelace, Ada"}, nil))
	ind, err := f.Individuals.Individual(ctx, adaURI)
	require.NoError(t, err)
	assert.Equal(t, "Lovelace, Ada", ind.Label)
}

func TestCached_UnderVisibilityFilter(t *testing.T) {
	policy, err := NewVisibilityPolicy([]VisibilityRule{
		{Pattern: profile.CoreEmail, MinLevel: LevelSelf},
	})
	require.NoError(t, err)
	s, _ := seededKVStore(t)
	f := Filtered(Cached(NewFactory(s)), policy, LevelPublic)
	ctx := context.Background()

	hidden, err := f.DataPropertyStatements.StatementsByProperty(ctx, adaURI, profile.CoreEmail)
	require.NoError(t, err)
	assert.Empty(t, hidden)

	all, err := f.DataPropertyStatements.StatementsByProperty(ctx, adaURI, profile.CoreEmail, IgnoreVisibility())
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "ada@example.org", all[0].Data)
}
