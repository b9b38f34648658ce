package storage

import (
	"context"
	"fmt"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// Level is a viewer's visibility level. Higher levels see more.
type Level int

const (
	LevelPublic Level = iota
	LevelSelf
	LevelEditor
	LevelCurator
	LevelAdmin
)

var levelNames = [...]string{"public", "self", "editor", "curator", "admin"}

func (l Level) String() string {
	if l < LevelPublic || int(l) >= len(levelNames) {
		return fmt.Sprintf("level(%d)", int(l))
	}
	return levelNames[l]
}

// ParseLevel parses a level name. The empty string is LevelPublic.
func ParseLevel(s string) (Level, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return LevelPublic, nil
	}
	for i, name := range levelNames {
		if name == s {
			return Level(i), nil
		}
	}
	return LevelPublic, fmt.Errorf("unknown visibility level: %q", s)
}

// VisibilityRule restricts properties matching Pattern to viewers at MinLevel
// or above. Pattern is a doublestar glob matched against the property IRI.
type VisibilityRule struct {
	Pattern  string
	MinLevel Level
}

// VisibilityPolicy decides which properties a viewer may see.
// Rules are evaluated in order and the first match wins; properties that match
// no rule are public.
type VisibilityPolicy struct {
	rules []VisibilityRule
}

// NewVisibilityPolicy validates every pattern and returns the policy.
func NewVisibilityPolicy(rules []VisibilityRule) (*VisibilityPolicy, error) {
	for _, r := range rules {
		if r.Pattern == "" {
			return nil, fmt.Errorf("visibility rule has empty pattern")
		}
		if !doublestar.ValidatePattern(r.Pattern) {
			return nil, fmt.Errorf("invalid visibility pattern %q: %w", r.Pattern, doublestar.ErrBadPattern)
		}
	}
	return &VisibilityPolicy{rules: append([]VisibilityRule(nil), rules...)}, nil
}

// MinLevel returns the level required to see propertyURI.
func (p *VisibilityPolicy) MinLevel(propertyURI string) Level {
	if p == nil {
		return LevelPublic
	}
	for _, r := range p.rules {
		if ok, _ := doublestar.Match(r.Pattern, propertyURI); ok {
			return r.MinLevel
		}
	}
	return LevelPublic
}

// CanDisplay reports whether a viewer at level may see propertyURI.
func (p *VisibilityPolicy) CanDisplay(propertyURI string, level Level) bool {
	return level >= p.MinLevel(propertyURI)
}

// Filtered returns a factory whose statement lookups hide properties the
// viewer cannot see. Lookups made with IgnoreVisibility bypass the policy.
func Filtered(f Factory, policy *VisibilityPolicy, level Level) Factory {
	return Factory{
		Individuals: f.Individuals,
		DataPropertyStatements: &filteredStatements{
			next:   f.DataPropertyStatements,
			policy: policy,
			level:  level,
		},
	}
}

type filteredStatements struct {
	next   DataPropertyStatementDAO
	policy *VisibilityPolicy
	level  Level
}

func (f *filteredStatements) StatementsByProperty(ctx context.Context, individualURI, propertyURI string, opts ...LookupOption) ([]DataPropertyStatement, error) {
	o := applyLookupOptions(opts)
	if !o.ignoreVisibility && !f.policy.CanDisplay(propertyURI, f.level) {
		return nil, nil
	}
	return f.next.StatementsByProperty(ctx, individualURI, propertyURI, opts...)
}

func (f *filteredStatements) Statements(ctx context.Context, individualURI string, opts ...LookupOption) ([]DataPropertyStatement, error) {
	stmts, err := f.next.Statements(ctx, individualURI, opts...)
	if err != nil || applyLookupOptions(opts).ignoreVisibility {
		return stmts, err
	}
	visible := stmts[:0:0]
	for _, st := range stmts {
		if f.policy.CanDisplay(st.PropertyURI, f.level) {
			visible = append(visible, st)
		}
	}
	return visible, nil
}
