package selector

// Capability is one scoring axis used to match queries to models.
type Capability string

const (
	CapReasoning  Capability = "reasoning"
	CapCoding     Capability = "coding"
	CapAnalysis   Capability = "analysis"
	CapMath       Capability = "math"
	CapCreative   Capability = "creative"
	CapSpeed      Capability = "speed"
	CapCost       Capability = "cost"
	CapMultimodal Capability = "multimodal"
)

// Capabilities enumerates every axis in a stable order. Scoring and
// tie-breaking iterate this slice, never a map, so results are
// deterministic.
var Capabilities = []Capability{
	CapReasoning,
	CapCoding,
	CapAnalysis,
	CapMath,
	CapCreative,
	CapSpeed,
	CapCost,
	CapMultimodal,
}

// CapabilityVector maps an axis to a non-negative integer weight. Query
// vectors hold keyword counts; model vectors hold fixed 0-10 scores.
type CapabilityVector map[Capability]int

// ParseCapability returns the axis named by s, or "" when unknown.
func ParseCapability(s string) Capability {
	for _, c := range Capabilities {
		if string(c) == s {
			return c
		}
	}
	return ""
}

// capabilityKeywords drives query analysis. The lists are a design
// artifact, fixed at build time and deliberately not configurable.
var capabilityKeywords = map[Capability][]string{
	CapReasoning: {"why", "how", "explain", "reason", "because", "therefore", "logic", "think", "understand", "conclude"},
	CapCoding:    {"code", "function", "debug", "implement", "program", "algorithm", "compile", "refactor", "bug", "api"},
	CapAnalysis:  {"analyze", "compare", "evaluate", "assess", "review", "examine", "data", "trend", "summarize", "insight"},
	CapMath:      {"calculate", "solve", "equation", "math", "sum", "integral", "derivative", "probability", "percentage", "average"},
	CapCreative:  {"write", "story", "poem", "creative", "imagine", "design", "brainstorm", "draft", "slogan", "lyrics"},
	CapSpeed:     {"quick", "fast", "brief", "short", "simple", "now", "immediately"},
	CapCost:      {"cheap", "budget", "cost", "affordable", "free"},
	CapMultimodal: {"image", "picture", "photo", "diagram", "chart", "screenshot", "visual", "video"},
}

// modelCapabilities is the static per-model capability table: hard-coded
// domain knowledge, not derived from ModelConfig. A model id absent here
// scores zero on every axis.
var modelCapabilities = map[string]CapabilityVector{
	"gpt-4o": {
		CapReasoning: 9, CapCoding: 9, CapAnalysis: 9, CapMath: 8,
		CapCreative: 8, CapSpeed: 6, CapCost: 4, CapMultimodal: 9,
	},
	"gpt-4o-mini": {
		CapReasoning: 7, CapCoding: 7, CapAnalysis: 7, CapMath: 6,
		CapCreative: 6, CapSpeed: 9, CapCost: 9, CapMultimodal: 7,
	},
	"claude-sonnet-4-5-20250929": {
		CapReasoning: 9, CapCoding: 10, CapAnalysis: 9, CapMath: 8,
		CapCreative: 9, CapSpeed: 6, CapCost: 4, CapMultimodal: 7,
	},
	"claude-haiku-4-5-20251001": {
		CapReasoning: 7, CapCoding: 8, CapAnalysis: 7, CapMath: 6,
		CapCreative: 7, CapSpeed: 9, CapCost: 8, CapMultimodal: 6,
	},
	"gemini-2.5-pro": {
		CapReasoning: 9, CapCoding: 8, CapAnalysis: 9, CapMath: 9,
		CapCreative: 7, CapSpeed: 5, CapCost: 5, CapMultimodal: 10,
	},
	"gemini-2.5-flash": {
		CapReasoning: 7, CapCoding: 7, CapAnalysis: 7, CapMath: 7,
		CapCreative: 6, CapSpeed: 10, CapCost: 9, CapMultimodal: 8,
	},
	"llama-3.3-70b-versatile": {
		CapReasoning: 8, CapCoding: 7, CapAnalysis: 8, CapMath: 7,
		CapCreative: 7, CapSpeed: 8, CapCost: 10, CapMultimodal: 0,
	},
	"llama-3.1-8b-instant": {
		CapReasoning: 5, CapCoding: 5, CapAnalysis: 5, CapMath: 4,
		CapCreative: 5, CapSpeed: 10, CapCost: 10, CapMultimodal: 0,
	},
	"mixtral-8x7b-32768": {
		CapReasoning: 6, CapCoding: 6, CapAnalysis: 6, CapMath: 6,
		CapCreative: 6, CapSpeed: 9, CapCost: 10, CapMultimodal: 0,
	},
}

// ModelVector returns the static capability scores for a model id. Unknown
// ids get an empty vector, which scores zero everywhere.
func ModelVector(modelID string) CapabilityVector {
	if v, ok := modelCapabilities[modelID]; ok {
		return v
	}
	return CapabilityVector{}
}
