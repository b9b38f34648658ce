package storage

import (
	"context"
	"testing"

	"github.com/c360studio/semprofile/vocabulary/profile"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    Level
		wantErr bool
	}{
		{"", LevelPublic, false},
		{"public", LevelPublic, false},
		{"SELF", LevelSelf, false},
		{" editor ", LevelEditor, false},
		{"curator", LevelCurator, false},
		{"admin", LevelAdmin, false},
		{"root", LevelPublic, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseLevel(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, got, mustParse(t, got.String()))
		})
	}
	assert.Equal(t, "level(42)", Level(42).String())
}

func mustParse(t *testing.T, s string) Level {
	t.Helper()
	l, err := ParseLevel(s)
	require.NoError(t, err)
	return l
}

func TestVisibilityPolicy(t *testing.T) {
	policy, err := NewVisibilityPolicy([]VisibilityRule{
		{Pattern: profile.CoreEmail, MinLevel: LevelSelf},
		{Pattern: "http://vivoweb.org/ontology/core#phone*", MinLevel: LevelEditor},
		{Pattern: "http://example.org/private/*", MinLevel: LevelAdmin},
	})
	require.NoError(t, err)

	tests := []struct {
		property string
		level    Level
		want     bool
	}{
		{profile.FOAFFirstName, LevelPublic, true},
		{profile.CoreEmail, LevelPublic, false},
		{profile.CoreEmail, LevelSelf, true},
		{profile.CorePhoneNumber, LevelSelf, false},
		{profile.CorePhoneNumber, LevelCurator, true},
		{"http://example.org/private/ssn", LevelCurator, false},
		{"http://example.org/private/ssn", LevelAdmin, true},
	}
	for _, tt := range tests {
		t.Run(tt.property+"@"+tt.level.String(), func(t *testing.T) {
			assert.Equal(t, tt.want, policy.CanDisplay(tt.property, tt.level))
		})
	}

	var nilPolicy *VisibilityPolicy
	assert.True(t, nilPolicy.CanDisplay(profile.CoreEmail, LevelPublic))
}

func TestNewVisibilityPolicy_Invalid(t *testing.T) {
	_, err := NewVisibilityPolicy([]VisibilityRule{{Pattern: ""}})
	assert.Error(t, err)

	_, err = NewVisibilityPolicy([]VisibilityRule{{Pattern: "http://example.org/[unclosed"}})
	assert.Error(t, err)
}

func TestFiltered(t *testing.T) {
	s := NewMemoryStore()
	s.AddStatement(DataPropertyStatement{IndividualURI: adaURI, PropertyURI: profile.CoreEmail, Data: "ada@example.edu"})
	s.AddStatement(DataPropertyStatement{IndividualURI: adaURI, PropertyURI: profile.FOAFFirstName, Data: "Ada"})

	policy, err := NewVisibilityPolicy([]VisibilityRule{{Pattern: profile.CoreEmail, MinLevel: LevelSelf}})
	require.NoError(t, err)

	f := Filtered(NewFactory(s), policy, LevelPublic)
	ctx := context.Background()

	hidden, err := f.DataPropertyStatements.StatementsByProperty(ctx, adaURI, profile.CoreEmail)
	require.NoError(t, err)
	assert.Empty(t, hidden, "email is hidden from public viewers")

	visible, err := f.DataPropertyStatements.StatementsByProperty(ctx, adaURI, profile.FOAFFirstName)
	require.NoError(t, err)
	assert.Len(t, visible, 1)

	bypass, err := f.DataPropertyStatements.StatementsByProperty(ctx, adaURI, profile.CoreEmail, IgnoreVisibility())
	require.NoError(t, err)
	require.Len(t, bypass, 1)
	assert.Equal(t, "ada@example.edu", bypass[0].Data)

	self := Filtered(NewFactory(s), policy, LevelSelf)
	own, err := self.DataPropertyStatements.StatementsByProperty(ctx, adaURI, profile.CoreEmail)
	require.NoError(t, err)
	assert.Len(t, own, 1)
}

func TestFiltered_Statements(t *testing.T) {
	s := NewMemoryStore()
	s.AddStatement(DataPropertyStatement{IndividualURI: adaURI, PropertyURI: profile.CoreEmail, Data: "ada@example.edu"})
	s.AddStatement(DataPropertyStatement{IndividualURI: adaURI, PropertyURI: profile.FOAFFirstName, Data: "Ada"})

	policy, err := NewVisibilityPolicy([]VisibilityRule{{Pattern: profile.CoreEmail, MinLevel: LevelSelf}})
	require.NoError(t, err)
	f := Filtered(NewFactory(s), policy, LevelPublic)
	ctx := context.Background()

	visible, err := f.DataPropertyStatements.Statements(ctx, adaURI)
	require.NoError(t, err)
	require.Len(t, visible, 1)
	assert.Equal(t, profile.FOAFFirstName, visible[0].PropertyURI)

	all, err := f.DataPropertyStatements.Statements(ctx, adaURI, IgnoreVisibility())
	require.NoError(t, err)
	assert.Len(t, all, 2)

	_, err = s.Statements(ctx, "")
	assert.ErrorIs(t, err, ErrEmptyURI)
}
