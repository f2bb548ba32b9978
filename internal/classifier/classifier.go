// Package classifier routes free-text prompts to agent personas by weighted
// keyword matching. Analyze is a pure function of its input and the static
// trigger tables.
package classifier

import (
	"fmt"
	"math"
	"sort"
	"strings"
)

const (
	// SecondaryThreshold is the minimum confidence for a non-top category
	// to be activated as secondary.
	SecondaryThreshold = 0.5
	// FallbackConfidence is assigned to the general persona when nothing
	// matches.
	FallbackConfidence = 0.1
	// supportFactor scales the top category's confidence for its helpers.
	supportFactor = 0.5
	// supportCap keeps support confidences strictly below secondary ones.
	supportCap = SecondaryThreshold - 0.01
	// maxIntentLen bounds the echoed prompt inside the intent summary.
	maxIntentLen = 80
)

// Tier orders activations: primary first, then secondary, then support.
type Tier string

const (
	TierPrimary   Tier = "primary"
	TierSecondary Tier = "secondary"
	TierSupport   Tier = "support"
)

// rank returns the sort position of a tier.
func (t Tier) rank() int {
	switch t {
	case TierPrimary:
		return 0
	case TierSecondary:
		return 1
	default:
		return 2
	}
}

// Urgency is derived from time-pressure phrases.
type Urgency string

const (
	UrgencyLow    Urgency = "low"
	UrgencyMedium Urgency = "medium"
	UrgencyHigh   Urgency = "high"
)

// Activation associates one persona with a request.
type Activation struct {
	AgentID          string   `json:"agent_id"`
	Category         Category `json:"category"`
	Tier             Tier     `json:"tier"`
	Confidence       float64  `json:"confidence"`
	Reasoning        string   `json:"reasoning"`
	SuggestedActions []string `json:"suggested_actions"`
}

// CategoryScore is the explainable per-category result of a scan.
type CategoryScore struct {
	Category   Category `json:"category"`
	Raw        float64  `json:"raw"`
	Confidence float64  `json:"confidence"`
	Matched    []string `json:"matched"`
	FirstMatch int      `json:"first_match"` // byte offset, -1 when unmatched
}

// Analysis is the router's verdict for one submission.
type Analysis struct {
	Input       string          `json:"input"`
	Intent      string          `json:"intent"`
	Category    Category        `json:"category"`
	Urgency     Urgency         `json:"urgency"`
	MultiAgent  bool            `json:"multi_agent"`
	Activations []Activation    `json:"activations"`
	Scores      []CategoryScore `json:"scores"`
}

// Primary returns the primary activation, if any.
func (a Analysis) Primary() (Activation, bool) {
	if len(a.Activations) == 0 || a.Activations[0].Tier != TierPrimary {
		return Activation{}, false
	}
	return a.Activations[0], true
}

// Responders returns the activations that should produce a reply: the
// primary and every secondary.
func (a Analysis) Responders() []Activation {
	var out []Activation
	for _, act := range a.Activations {
		if act.Tier == TierPrimary || act.Tier == TierSecondary {
			out = append(out, act)
		}
	}
	return out
}

// Confidence maps a raw score to [0, 1) with diminishing returns: each
// additional unit of score halves the remaining distance to 1.
func Confidence(raw float64) float64 {
	if raw <= 0 {
		return 0
	}
	c := 1 - math.Pow(0.5, raw)
	return math.Min(math.Max(c, 0), 1)
}

// Analyze classifies text. Blank input yields an empty activation list;
// input that matches no category yields a single low-confidence general
// activation.
func Analyze(text string) Analysis {
	trimmed := strings.TrimSpace(text)
	lower := strings.ToLower(trimmed)

	a := Analysis{
		Input:       trimmed,
		Category:    CategoryGeneral,
		Urgency:     urgency(lower),
		Activations: []Activation{},
	}
	if trimmed == "" {
		return a
	}

	scores := scan(lower)
	a.Scores = scores

	ranked := rankMatched(scores)
	if len(ranked) == 0 {
		general := rules[len(rules)-1]
		a.Intent = intent(general.label, trimmed)
		a.Activations = []Activation{{
			AgentID:          general.primary,
			Category:         CategoryGeneral,
			Tier:             TierPrimary,
			Confidence:       FallbackConfidence,
			Reasoning:        "no category keywords matched",
			SuggestedActions: cloneStrings(general.actions),
		}}
		return a
	}

	top := ranked[0]
	topRule := rules[top]
	a.Category = topRule.category
	a.Intent = intent(topRule.label, trimmed)

	acts := &activationSet{index: map[string]int{}}
	acts.add(Activation{
		AgentID:          topRule.primary,
		Category:         topRule.category,
		Tier:             TierPrimary,
		Confidence:       scores[top].Confidence,
		Reasoning:        reasoning(scores[top]),
		SuggestedActions: cloneStrings(topRule.actions),
	})

	aboveThreshold := 1
	for _, i := range ranked[1:] {
		s := scores[i]
		tier := TierSupport
		conf := s.Confidence
		if conf >= SecondaryThreshold {
			tier = TierSecondary
			aboveThreshold++
		}
		acts.add(Activation{
			AgentID:          rules[i].primary,
			Category:         rules[i].category,
			Tier:             tier,
			Confidence:       conf,
			Reasoning:        reasoning(s),
			SuggestedActions: cloneStrings(rules[i].actions),
		})
	}

	helperConf := math.Min(scores[top].Confidence*supportFactor, supportCap)
	for _, helper := range topRule.support {
		acts.add(Activation{
			AgentID:    helper,
			Category:   topRule.category,
			Tier:       TierSupport,
			Confidence: helperConf,
			Reasoning:  fmt.Sprintf("supports %s request", topRule.label),
		})
	}

	a.MultiAgent = scores[top].Confidence >= SecondaryThreshold && aboveThreshold > 1
	a.Activations = acts.sorted()
	return a
}

// scan scores every category in table order.
func scan(lower string) []CategoryScore {
	scores := make([]CategoryScore, len(rules))
	for i, r := range rules {
		s := CategoryScore{Category: r.category, FirstMatch: -1}
		for _, t := range r.triggers {
			n := strings.Count(lower, t.phrase)
			if n == 0 {
				continue
			}
			s.Raw += float64(n) * t.weight
			s.Matched = append(s.Matched, t.phrase)
			if idx := strings.Index(lower, t.phrase); s.FirstMatch < 0 || idx < s.FirstMatch {
				s.FirstMatch = idx
			}
		}
		s.Confidence = Confidence(s.Raw)
		scores[i] = s
	}
	return scores
}

// rankMatched returns indexes of categories with a nonzero score ordered by
// confidence, then earliest match in the input, then table order.
func rankMatched(scores []CategoryScore) []int {
	var idx []int
	for i, s := range scores {
		if s.Raw > 0 {
			idx = append(idx, i)
		}
	}
	sort.SliceStable(idx, func(a, b int) bool {
		sa, sb := scores[idx[a]], scores[idx[b]]
		if sa.Confidence != sb.Confidence {
			return sa.Confidence > sb.Confidence
		}
		if sa.FirstMatch != sb.FirstMatch {
			return sa.FirstMatch < sb.FirstMatch
		}
		return idx[a] < idx[b]
	})
	return idx
}

// activationSet keeps one activation per agent, preferring the higher tier
// and then the higher confidence.
type activationSet struct {
	list  []Activation
	index map[string]int
}

func (s *activationSet) add(a Activation) {
	i, ok := s.index[a.AgentID]
	if !ok {
		s.index[a.AgentID] = len(s.list)
		s.list = append(s.list, a)
		return
	}
	cur := s.list[i]
	if a.Tier.rank() < cur.Tier.rank() ||
		(a.Tier == cur.Tier && a.Confidence > cur.Confidence) {
		s.list[i] = a
	}
}

func (s *activationSet) sorted() []Activation {
	out := make([]Activation, len(s.list))
	copy(out, s.list)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Tier.rank() != out[j].Tier.rank() {
			return out[i].Tier.rank() < out[j].Tier.rank()
		}
		return out[i].Confidence > out[j].Confidence
	})
	return out
}

func urgency(lower string) Urgency {
	for _, p := range highUrgency {
		if strings.Contains(lower, p) {
			return UrgencyHigh
		}
	}
	for _, p := range mediumUrgency {
		if strings.Contains(lower, p) {
			return UrgencyMedium
		}
	}
	return UrgencyLow
}

func intent(label, text string) string {
	if r := []rune(text); len(r) > maxIntentLen {
		text = string(r[:maxIntentLen]) + "..."
	}
	return fmt.Sprintf("%s request: %s", label, text)
}

func reasoning(s CategoryScore) string {
	quoted := make([]string, len(s.Matched))
	for i, m := range s.Matched {
		quoted[i] = fmt.Sprintf("%q", m)
	}
	return fmt.Sprintf("matched %s (score %.1f)", strings.Join(quoted, ", "), s.Raw)
}

func cloneStrings(in []string) []string {
	if in == nil {
		return nil
	}
	out := make([]string, len(in))
	copy(out, in)
	return out
}
