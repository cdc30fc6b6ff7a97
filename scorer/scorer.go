// Package scorer grades a pitch transcript against a sales objection using
// deterministic keyword and structure heuristics. Score is a pure function:
// same text and category in, same result out, no I/O.
package scorer

import (
	"math"
	"strings"
)

type Category string

const (
	Price       Category = "Price"
	Trust       Category = "Trust"
	Timing      Category = "Timing"
	Authority   Category = "Authority"
	Competition Category = "Competition"
	Need        Category = "Need"
)

// Categories lists the known objection categories in display order.
func Categories() []Category {
	return []Category{Price, Trust, Timing, Authority, Competition, Need}
}

// ParseCategory matches a category label case-insensitively. Unrecognized
// labels are returned as-is; Score falls back to the generic ideal response
// for them.
func ParseCategory(s string) Category {
	for _, c := range Categories() {
		if strings.EqualFold(s, string(c)) {
			return c
		}
	}
	return Category(s)
}

type Aspect struct {
	Rating   int
	Feedback string
}

type Result struct {
	Score             int // 0..100, rounded mean of the three aspects
	Tone              Aspect
	Clarity           Aspect
	ObjectionHandling Aspect
	Strengths         []string
	Improvements      []string
	IdealResponse     string
}

var (
	empathyMarkers     = []string{"understand", "hear", "appreciate", "feel"}
	specificityMarkers = []string{"example", "specifically", "case study", "data"}
	valueMarkers       = []string{"value", "benefit", "roi", "save"}
	genericFillers     = []string{"great question", "good point"}
)

const baseScore = 60

// Score grades text against the given objection category. Prior conversation
// turns may be supplied for interface compatibility; the heuristics do not
// use them.
func Score(text string, category Category, _ ...string) Result {
	lower := strings.ToLower(text)

	empathy := containsAny(lower, empathyMarkers)
	specific := containsAny(lower, specificityMarkers)
	value := containsAny(lower, valueMarkers)
	generic := containsAny(lower, genericFillers)
	question := strings.Contains(text, "?")

	var strengths, improvements []string

	// Tone
	tone := baseScore
	if empathy {
		tone += 20
		strengths = append(strengths, "Acknowledged the customer's perspective with empathetic language")
	}
	if !generic && len(text) > 30 {
		tone += 10
	}
	if generic {
		tone -= 15
		improvements = append(improvements, "Drop filler openers like \"great question\" and engage the objection directly")
	}

	// Clarity
	clarity := baseScore
	if specific {
		clarity += 25
		strengths = append(strengths, "Backed the response with specifics (examples, data, case studies)")
	}
	if len(text) > 50 {
		clarity += 10
	}

	// Objection handling
	handling := baseScore
	switch {
	case empathy && specific:
		handling += 25
		strengths = append(strengths, "Combined empathy with evidence, the core of objection handling")
	case empathy:
		handling += 10
		improvements = append(improvements, "Add a concrete example or data point to ground your empathy")
	case specific:
		handling += 10
		improvements = append(improvements, "Acknowledge the customer's concern before presenting evidence")
	}
	if question {
		handling += 15
		strengths = append(strengths, "Kept the conversation open with a follow-up question")
	}
	if value {
		handling += 10
		strengths = append(strengths, "Framed the response around value and outcomes")
	}

	tone = clamp(tone)
	clarity = clamp(clarity)
	handling = clamp(handling)
	overall := int(math.Round(float64(tone+clarity+handling) / 3))

	return Result{
		Score:             overall,
		Tone:              Aspect{Rating: tone, Feedback: toneFeedback(tone)},
		Clarity:           Aspect{Rating: clarity, Feedback: clarityFeedback(clarity)},
		ObjectionHandling: Aspect{Rating: handling, Feedback: handlingFeedback(handling)},
		Strengths:         strengths,
		Improvements:      improvements,
		IdealResponse:     idealResponse(category),
	}
}

func containsAny(lower string, markers []string) bool {
	for _, m := range markers {
		if strings.Contains(lower, m) {
			return true
		}
	}
	return false
}

func clamp(v int) int {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

func toneFeedback(rating int) string {
	switch {
	case rating >= 80:
		return "Warm and customer-focused; the empathy lands."
	case rating >= 60:
		return "Neutral tone; lead with acknowledgment of the customer's concern."
	default:
		return "Reads as dismissive; replace filler with genuine acknowledgment."
	}
}

func clarityFeedback(rating int) string {
	switch {
	case rating >= 80:
		return "Concrete and easy to follow."
	case rating >= 60:
		return "Understandable but abstract; add a specific example or number."
	default:
		return "Too vague; the customer has nothing to anchor on."
	}
}

func handlingFeedback(rating int) string {
	switch {
	case rating >= 80:
		return "Addresses the objection head-on and moves the conversation forward."
	case rating >= 60:
		return "Partially addresses the objection; combine empathy with evidence and a question."
	default:
		return "The objection is left standing; acknowledge it, counter it, then ask."
	}
}
