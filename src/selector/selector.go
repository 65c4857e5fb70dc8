package selector

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/modelmux/modelmux/src/models"
)

var (
	wordPattern      = regexp.MustCompile(`[a-z0-9']+`)
	reasoningPattern = regexp.MustCompile(`(?i)\b(why|how|explain|what if|reason about)\b`)
	mathPattern      = regexp.MustCompile(`[0-9+\-*/=%<>^]`)
)

// codingKeywords are checked against the raw query alongside code
// punctuation; they signal source code pasted into the prompt.
var codingKeywords = []string{"function", "class", "const", "let", "var"}

const codePunctuation = "{}();=<>[]"

// Selector maps a free-text query to a ranked choice among the enabled
// models using keyword-weighted capability scoring.
type Selector struct {
	configs      map[string]models.ModelConfig
	order        []string // stable enumeration order for tie-breaking
	defaultModel string
}

func New(configs map[string]models.ModelConfig, defaultModel string) *Selector {
	order := make([]string, 0, len(configs))
	for id := range configs {
		order = append(order, id)
	}
	sort.Strings(order)

	return &Selector{
		configs:      configs,
		order:        order,
		defaultModel: defaultModel,
	}
}

// AnalyzeQuery builds a capability weight vector from the query and its
// optional context. Counting is case-insensitive and whole-word; three
// heuristic boosts fire on the raw query text.
func (s *Selector) AnalyzeQuery(query, context string) CapabilityVector {
	vector := CapabilityVector{}

	text := strings.ToLower(query + " " + context)
	counts := make(map[string]int)
	for _, token := range wordPattern.FindAllString(text, -1) {
		counts[token]++
	}

	for cap, keywords := range capabilityKeywords {
		for _, kw := range keywords {
			if n := counts[kw]; n > 0 {
				vector[cap] += n
			}
		}
	}

	if reasoningPattern.MatchString(query) {
		vector[CapReasoning] += 2
	}
	if looksLikeCode(query) {
		vector[CapCoding] += 3
	}
	if mathPattern.MatchString(query) {
		vector[CapMath]++
	}

	return vector
}

func looksLikeCode(query string) bool {
	if strings.ContainsAny(query, codePunctuation) {
		return true
	}
	lower := strings.ToLower(query)
	for _, kw := range codingKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// CalculateScore is the dot product of the normalized query weights and
// the model's fixed capability scores. A zero-sum query vector is treated
// as having total weight 1, so signal-free queries score zero everywhere.
func CalculateScore(queryVec, modelVec CapabilityVector) float64 {
	total := 0
	for _, w := range queryVec {
		total += w
	}
	if total == 0 {
		total = 1
	}

	score := 0.0
	for cap, w := range queryVec {
		score += float64(w) / float64(total) * float64(modelVec[cap])
	}
	return score
}

// SelectBestModel resolves a model id for the query. An explicit
// preferences.model is returned unconditionally; the router validates it
// against the configured adapters later. When no models are enabled the
// configured default id is returned even though it may itself be disabled
// or unknown; callers own that edge case.
func (s *Selector) SelectBestModel(query, context string, prefs *models.Preferences) string {
	if prefs != nil && prefs.Model != "" {
		return prefs.Model
	}

	queryVec := s.AnalyzeQuery(query, context)
	if prefs != nil && prefs.Prioritize != "" {
		if axis := ParseCapability(prefs.Prioritize); axis != "" {
			queryVec[axis] *= 2
		}
	}

	best := ""
	bestScore := 0.0
	for _, id := range s.order {
		cfg := s.configs[id]
		if !cfg.Enabled {
			continue
		}
		score := CalculateScore(queryVec, ModelVector(id))
		if best == "" || score > bestScore {
			best = id
			bestScore = score
		}
	}

	if best == "" {
		return s.defaultModel
	}
	return best
}

// Recommendations scores every enabled model and returns them in
// descending score order, truncated to limit.
func (s *Selector) Recommendations(query, context string, limit int) []models.Recommendation {
	queryVec := s.AnalyzeQuery(query, context)

	recs := make([]models.Recommendation, 0, len(s.order))
	for _, id := range s.order {
		cfg := s.configs[id]
		if !cfg.Enabled {
			continue
		}
		modelVec := ModelVector(id)
		recs = append(recs, models.Recommendation{
			Model:     id,
			Score:     CalculateScore(queryVec, modelVec),
			Strengths: topStrengths(modelVec, 3),
			Reasoning: explainFit(queryVec, modelVec),
		})
	}

	sort.SliceStable(recs, func(i, j int) bool { return recs[i].Score > recs[j].Score })
	if limit > 0 && len(recs) > limit {
		recs = recs[:limit]
	}
	return recs
}

// topStrengths returns the n highest-scoring axes of a model vector,
// enumerated in the stable axis order so equal scores rank consistently.
func topStrengths(modelVec CapabilityVector, n int) []string {
	type axisScore struct {
		axis  Capability
		score int
	}
	scored := make([]axisScore, 0, len(Capabilities))
	for _, axis := range Capabilities {
		scored = append(scored, axisScore{axis, modelVec[axis]})
	}
	sort.SliceStable(scored, func(i, j int) bool { return scored[i].score > scored[j].score })

	out := make([]string, 0, n)
	for _, s := range scored {
		if len(out) == n {
			break
		}
		out = append(out, string(s.axis))
	}
	return out
}

// explainFit names the two heaviest query axes; "Excellent" when the model
// scores at least 8 on one of them, a generic phrase otherwise, and a
// default line when the query carries no capability signal.
func explainFit(queryVec, modelVec CapabilityVector) string {
	top := topQueryAxes(queryVec, 2)
	if len(top) == 0 {
		return "Balanced general-purpose choice for this query"
	}

	for _, axis := range top {
		if modelVec[axis] >= 8 {
			return fmt.Sprintf("Excellent for %s", joinAxes(top))
		}
	}
	return fmt.Sprintf("Suitable for %s", joinAxes(top))
}

func topQueryAxes(queryVec CapabilityVector, n int) []Capability {
	type axisWeight struct {
		axis   Capability
		weight int
	}
	weighted := make([]axisWeight, 0, len(Capabilities))
	for _, axis := range Capabilities {
		if w := queryVec[axis]; w > 0 {
			weighted = append(weighted, axisWeight{axis, w})
		}
	}
	sort.SliceStable(weighted, func(i, j int) bool { return weighted[i].weight > weighted[j].weight })

	out := make([]Capability, 0, n)
	for _, w := range weighted {
		if len(out) == n {
			break
		}
		out = append(out, w.axis)
	}
	return out
}

func joinAxes(axes []Capability) string {
	names := make([]string, len(axes))
	for i, a := range axes {
		names[i] = string(a)
	}
	return strings.Join(names, " and ")
}
