package models

import (
	"fmt"
	"strings"
	"time"
)

// DefaultProfileID is the id (and name) of the profile every session owns
const DefaultProfileID = "default"

// PositionTarget forces the Nth (1-based) token of a category into the randomized set
type PositionTarget struct {
	Enabled  bool   `json:"enabled" yaml:"enabled"`
	Category string `json:"category,omitempty" yaml:"category,omitempty"`
	Ordinal  int    `json:"ordinal,omitempty" yaml:"ordinal,omitempty"`
}

// Profile is a named, session-owned bag of randomization policy settings plus a seed
type Profile struct {
	ID        string `json:"id" yaml:"id"`
	SessionID string `json:"sessionId" yaml:"session"`
	Name      string `json:"name" yaml:"name"`

	JitterEnabled         bool               `json:"jitterEnabled" yaml:"jitter_enabled"`
	JitterProbability     float64            `json:"jitterProbability" yaml:"jitter_probability"`
	CategoryProbabilities map[string]float64 `json:"categoryProbabilities,omitempty" yaml:"category_probabilities,omitempty"`
	MaxRandomSlots        int                `json:"maxRandomSlots" yaml:"max_random_slots"`
	EnsureTwoRandom       bool               `json:"ensureTwoRandom" yaml:"ensure_two_random"`
	Position              PositionTarget     `json:"position" yaml:"position"`
	RegexPattern          string             `json:"regexPattern,omitempty" yaml:"regex_pattern,omitempty"`
	RegexProbability      float64            `json:"regexProbability" yaml:"regex_probability"`
	NounBoost             bool               `json:"nounBoost" yaml:"noun_boost"`
	AutoBind              bool               `json:"autoBind" yaml:"auto_bind"`
	Mutators              []string           `json:"mutators,omitempty" yaml:"mutators,omitempty"`
	Seed                  string             `json:"seed,omitempty" yaml:"seed,omitempty"`

	CreatedAt time.Time `json:"createdAt" yaml:"created_at"`
	UpdatedAt time.Time `json:"updatedAt" yaml:"updated_at"`
}

// DefaultProfile returns the documented defaults: jitter on at 30%,
// auto-bind on, ensure-2 on, everything else off.
func DefaultProfile(sessionID string) *Profile {
	return &Profile{
		ID:                DefaultProfileID,
		SessionID:         sessionID,
		Name:              DefaultProfileID,
		JitterEnabled:     true,
		JitterProbability: 0.3,
		EnsureTwoRandom:   true,
		AutoBind:          true,
	}
}

// IsDefault reports whether this is the session's default profile
func (p *Profile) IsDefault() bool {
	return p.ID == DefaultProfileID
}

// Clone returns a deep copy of the profile
func (p *Profile) Clone() *Profile {
	if p == nil {
		return nil
	}
	out := *p
	if p.CategoryProbabilities != nil {
		out.CategoryProbabilities = make(map[string]float64, len(p.CategoryProbabilities))
		for k, v := range p.CategoryProbabilities {
			out.CategoryProbabilities[k] = v
		}
	}
	out.Mutators = append([]string(nil), p.Mutators...)
	return &out
}

// Validate checks every field that has a legal range. A malformed regex
// pattern is deliberately accepted: it only disables the regex pass.
func (p *Profile) Validate() error {
	var problems []string
	check := func(name string, v float64) {
		if v < 0 || v > 1 {
			problems = append(problems, fmt.Sprintf("%s must be within [0,1], got %v", name, v))
		}
	}

	if strings.TrimSpace(p.ID) == "" {
		problems = append(problems, "id is required")
	}
	check("jitter probability", p.JitterProbability)
	check("regex probability", p.RegexProbability)
	for tag, v := range p.CategoryProbabilities {
		check("probability for "+tag, v)
	}
	if p.MaxRandomSlots < 0 {
		problems = append(problems, fmt.Sprintf("max random slots must not be negative, got %d", p.MaxRandomSlots))
	}
	if p.Position.Enabled {
		if strings.TrimSpace(p.Position.Category) == "" {
			problems = append(problems, "position targeting needs a category")
		}
		if p.Position.Ordinal < 1 {
			problems = append(problems, fmt.Sprintf("position ordinal is 1-based, got %d", p.Position.Ordinal))
		}
	}

	if len(problems) > 0 {
		return fmt.Errorf("invalid profile %q: %s", p.ID, strings.Join(problems, "; "))
	}
	return nil
}

// ProfilePatch is a partial profile; nil fields are left untouched
type ProfilePatch struct {
	Name                  *string            `json:"name,omitempty" yaml:"name,omitempty"`
	JitterEnabled         *bool              `json:"jitterEnabled,omitempty" yaml:"jitter_enabled,omitempty"`
	JitterProbability     *float64           `json:"jitterProbability,omitempty" yaml:"jitter_probability,omitempty"`
	CategoryProbabilities map[string]float64 `json:"categoryProbabilities,omitempty" yaml:"category_probabilities,omitempty"`
	MaxRandomSlots        *int               `json:"maxRandomSlots,omitempty" yaml:"max_random_slots,omitempty"`
	EnsureTwoRandom       *bool              `json:"ensureTwoRandom,omitempty" yaml:"ensure_two_random,omitempty"`
	Position              *PositionTarget    `json:"position,omitempty" yaml:"position,omitempty"`
	RegexPattern          *string            `json:"regexPattern,omitempty" yaml:"regex_pattern,omitempty"`
	RegexProbability      *float64           `json:"regexProbability,omitempty" yaml:"regex_probability,omitempty"`
	NounBoost             *bool              `json:"nounBoost,omitempty" yaml:"noun_boost,omitempty"`
	AutoBind              *bool              `json:"autoBind,omitempty" yaml:"auto_bind,omitempty"`
	Mutators              []string           `json:"mutators,omitempty" yaml:"mutators,omitempty"`
	Seed                  *string            `json:"seed,omitempty" yaml:"seed,omitempty"`
}

// Apply returns a patched copy of p. Category probabilities are merged;
// a negative value removes the category.
func (pp ProfilePatch) Apply(p *Profile) *Profile {
	out := p.Clone()
	if pp.Name != nil {
		out.Name = *pp.Name
	}
	if pp.JitterEnabled != nil {
		out.JitterEnabled = *pp.JitterEnabled
	}
	if pp.JitterProbability != nil {
		out.JitterProbability = *pp.JitterProbability
	}
	if pp.CategoryProbabilities != nil {
		if out.CategoryProbabilities == nil {
			out.CategoryProbabilities = make(map[string]float64)
		}
		for tag, v := range pp.CategoryProbabilities {
			if v < 0 {
				delete(out.CategoryProbabilities, tag)
				continue
			}
			out.CategoryProbabilities[tag] = v
		}
	}
	if pp.MaxRandomSlots != nil {
		out.MaxRandomSlots = *pp.MaxRandomSlots
	}
	if pp.EnsureTwoRandom != nil {
		out.EnsureTwoRandom = *pp.EnsureTwoRandom
	}
	if pp.Position != nil {
		out.Position = *pp.Position
	}
	if pp.RegexPattern != nil {
		out.RegexPattern = *pp.RegexPattern
	}
	if pp.RegexProbability != nil {
		out.RegexProbability = *pp.RegexProbability
	}
	if pp.NounBoost != nil {
		out.NounBoost = *pp.NounBoost
	}
	if pp.AutoBind != nil {
		out.AutoBind = *pp.AutoBind
	}
	if pp.Mutators != nil {
		out.Mutators = append([]string(nil), pp.Mutators...)
	}
	if pp.Seed != nil {
		out.Seed = *pp.Seed
	}
	return out
}
