package engine

import (
	"sort"
	"strings"
	"time"

	"github.com/dlclark/regexp2"
	"go.uber.org/zap"

	"github.com/CalmEddy/SimpleThink-v3-sub001/internal/models"
)

// RegexTimeout bounds a single regex gate match
const RegexTimeout = 250 * time.Millisecond

// IndexSet is the mutable randomized-index set the policy passes accumulate
type IndexSet map[int]bool

// NewIndexSet builds a set from indices
func NewIndexSet(indices ...int) IndexSet {
	s := make(IndexSet, len(indices))
	for _, i := range indices {
		s[i] = true
	}
	return s
}

// Clone copies the set
func (s IndexSet) Clone() IndexSet {
	out := make(IndexSet, len(s))
	for i := range s {
		out[i] = true
	}
	return out
}

// Sorted returns the members in ascending order
func (s IndexSet) Sorted() []int {
	out := make([]int, 0, len(s))
	for i := range s {
		out = append(out, i)
	}
	sort.Ints(out)
	return out
}

// PolicyContext is the read-only input every pass sees
type PolicyContext struct {
	Tokens      []models.PhraseToken
	Profile     *models.Profile
	Preselected []int
	Source      Source
	Recorder    *Recorder
	Logger      *zap.Logger
}

// Text is the phrase text the regex gate matches against
func (pc *PolicyContext) Text() string {
	parts := make([]string, 0, len(pc.Tokens))
	for _, tok := range pc.Tokens {
		parts = append(parts, tok.Text)
	}
	return strings.Join(parts, " ")
}

// randomizable lists randomizable token indices in ascending order
func (pc *PolicyContext) randomizable() []int {
	var out []int
	for i, tok := range pc.Tokens {
		if tok.IsRandomizable() {
			out = append(out, i)
		}
	}
	return out
}

// undecided lists randomizable indices not yet in s, ascending
func (pc *PolicyContext) undecided(s IndexSet) []int {
	var out []int
	for _, i := range pc.randomizable() {
		if !s[i] {
			out = append(out, i)
		}
	}
	return out
}

// floor is the coverage floor: min(2, randomizable) when ensure-2 is on
func (pc *PolicyContext) floor() int {
	if !pc.Profile.EnsureTwoRandom {
		return 0
	}
	n := len(pc.randomizable())
	if n < 2 {
		return n
	}
	return 2
}

// Pass is one policy step. Apply must not modify its input set.
type Pass struct {
	Name  string
	Apply func(s IndexSet, pc *PolicyContext) IndexSet
}

// Passes is the fixed pass order
var Passes = []Pass{
	{Name: "position", Apply: positionPass},
	{Name: "preselect", Apply: preselectPass},
	{Name: "category", Apply: categoryPass},
	{Name: "jitter", Apply: jitterPass},
	{Name: "nounBoost", Apply: nounBoostPass},
	{Name: "regex", Apply: regexPass},
	{Name: "cap", Apply: capPass},
	{Name: "floor", Apply: floorPass},
}

func positionPass(s IndexSet, pc *PolicyContext) IndexSet {
	pos := pc.Profile.Position
	if !pos.Enabled || pos.Ordinal < 1 || pos.Category == "" {
		return s
	}
	// the ordinal counts every token of the category; a target without
	// letters cannot be randomized and forces nothing
	out := s.Clone()
	seen := 0
	for i, tok := range pc.Tokens {
		if !tokenFits(tok, pos.Category) {
			continue
		}
		seen++
		if seen == pos.Ordinal {
			if tok.IsRandomizable() {
				out[i] = true
			}
			break
		}
	}
	return out
}

func tokenFits(tok models.PhraseToken, category string) bool {
	for _, tag := range tok.Tags() {
		if TagsCompatible(category, tag) {
			return true
		}
	}
	return false
}

func preselectPass(s IndexSet, pc *PolicyContext) IndexSet {
	if len(pc.Preselected) == 0 {
		return s
	}
	out := s.Clone()
	for _, i := range pc.Preselected {
		if i >= 0 && i < len(pc.Tokens) && pc.Tokens[i].IsRandomizable() {
			out[i] = true
		}
	}
	return out
}

func categoryPass(s IndexSet, pc *PolicyContext) IndexSet {
	probs := pc.Profile.CategoryProbabilities
	if len(probs) == 0 {
		return s
	}
	out := s.Clone()
	for _, i := range pc.undecided(s) {
		p := 0.0
		for _, tag := range pc.Tokens[i].Tags() {
			v, ok := probs[tag]
			if !ok {
				v = probs[models.BasePOS(tag)]
			}
			if v > p {
				p = v
			}
		}
		if chance(pc.Source, p) {
			out[i] = true
		}
	}
	return out
}

func jitterPass(s IndexSet, pc *PolicyContext) IndexSet {
	if !pc.Profile.JitterEnabled || pc.Profile.JitterProbability <= 0 {
		return s
	}
	out := s.Clone()
	for _, i := range pc.undecided(s) {
		if chance(pc.Source, pc.Profile.JitterProbability) {
			out[i] = true
		}
	}
	return out
}

func nounBoostPass(s IndexSet, pc *PolicyContext) IndexSet {
	if !pc.Profile.NounBoost {
		return s
	}
	out := s.Clone()
	for _, i := range pc.randomizable() {
		tok := pc.Tokens[i]
		if tok.HasBase("NOUN") || tok.HasBase("PROPN") {
			out[i] = true
		}
	}
	return out
}

func regexPass(s IndexSet, pc *PolicyContext) IndexSet {
	pattern := pc.Profile.RegexPattern
	if pattern == "" || pc.Profile.RegexProbability <= 0 {
		return s
	}
	re, err := regexp2.Compile(pattern, regexp2.IgnoreCase)
	if err != nil {
		pc.Logger.Warn("regex gate disabled: malformed pattern",
			zap.String("pattern", pattern), zap.Error(err))
		pc.Recorder.Record("regexGate", map[string]interface{}{"pattern": pattern}, "malformed: "+err.Error())
		return s
	}
	re.MatchTimeout = RegexTimeout

	text := pc.Text()
	matched, err := re.MatchString(text)
	if err != nil {
		pc.Logger.Warn("regex gate skipped", zap.String("pattern", pattern), zap.Error(err))
		return s
	}
	pc.Recorder.Record("regexGate", map[string]interface{}{"pattern": pattern, "text": text}, matched)
	if !matched {
		return s
	}

	out := s.Clone()
	for _, i := range pc.undecided(s) {
		if chance(pc.Source, pc.Profile.RegexProbability) {
			out[i] = true
		}
	}
	return out
}

func capPass(s IndexSet, pc *PolicyContext) IndexSet {
	limit := pc.Profile.MaxRandomSlots
	if limit <= 0 {
		return s
	}
	if f := pc.floor(); f > limit {
		limit = f
	}
	if len(s) <= limit {
		return s
	}
	out := s.Clone()
	for len(out) > limit {
		members := out.Sorted()
		delete(out, members[intN(pc.Source, len(members))])
	}
	return out
}

func floorPass(s IndexSet, pc *PolicyContext) IndexSet {
	f := pc.floor()
	if len(s) >= f {
		return s
	}
	out := s.Clone()
	for len(out) < f {
		pool := pc.undecided(out)
		if len(pool) == 0 {
			break
		}
		out[pool[intN(pc.Source, len(pool))]] = true
	}
	return out
}

// SlotPolicy configures one RandomizeSlots call
type SlotPolicy struct {
	Profile *models.Profile
	// Preselected token indices forced into the randomized set
	Preselected []int
	Recorder    *Recorder
	Logger      *zap.Logger
}

// RandomizeSlots runs the policy passes over a phrase and returns a copy of
// the tokens with final randomize flags. Tokens left out of the set lose
// their randomize flag and binding label.
func RandomizeSlots(tokens []models.PhraseToken, policy SlotPolicy, src Source) []models.PhraseToken {
	profile := policy.Profile
	if profile == nil {
		profile = &models.Profile{}
	}
	logger := policy.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	pc := &PolicyContext{
		Tokens:      tokens,
		Profile:     profile,
		Preselected: policy.Preselected,
		Source:      src,
		Recorder:    policy.Recorder,
		Logger:      logger,
	}

	set := make(IndexSet)
	for i, tok := range tokens {
		if tok.Randomize && tok.IsRandomizable() {
			set[i] = true
		}
	}
	initial := set.Sorted()

	for _, pass := range Passes {
		before := len(set)
		set = pass.Apply(set, pc)
		if pc.Recorder.Enabled() && len(set) != before {
			pc.Recorder.Record("policy."+pass.Name, map[string]interface{}{"before": before}, set.Sorted())
		}
	}

	out := make([]models.PhraseToken, len(tokens))
	for i, tok := range tokens {
		tok.POSSet = append([]string(nil), tok.POSSet...)
		if set[i] {
			tok.Randomize = true
		} else {
			tok.Randomize = false
			tok.SlotLabel = ""
		}
		out[i] = tok
	}

	if pc.Recorder.Enabled() {
		pc.Recorder.Record("randomizeSlots", map[string]interface{}{
			"tokens":  len(tokens),
			"initial": initial,
			"profile": profile.ID,
		}, set.Sorted())
	}
	return out
}
