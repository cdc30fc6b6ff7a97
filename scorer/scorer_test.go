package scorer

import (
	"reflect"
	"testing"
)

func TestScoreDeterministic(t *testing.T) {
	text := "I understand your concern, here's an example with data showing ROI"
	a := Score(text, Price)
	b := Score(text, Price)
	if !reflect.DeepEqual(a, b) {
		t.Fatal("Score is not deterministic for identical input")
	}
}

func TestStrongResponse(t *testing.T) {
	r := Score("I understand your concern, here's an example with data showing ROI", Price)
	if r.Tone.Rating < 80 {
		t.Errorf("tone = %d, want >= 80", r.Tone.Rating)
	}
	if r.Clarity.Rating < 85 {
		t.Errorf("clarity = %d, want >= 85", r.Clarity.Rating)
	}
	if len(r.Strengths) == 0 {
		t.Error("expected strengths for a strong response")
	}
}

func TestGenericFillerPenalty(t *testing.T) {
	r := Score("great question", Price)
	if r.Score > 55 {
		t.Errorf("overall = %d, want <= 55", r.Score)
	}
	if r.Tone.Rating != 45 {
		t.Errorf("tone = %d, want 45 (60 - 15 filler penalty)", r.Tone.Rating)
	}
	if len(r.Improvements) == 0 {
		t.Error("expected an improvement note for the filler phrase")
	}
}

func TestEmpathyWithoutSpecificity(t *testing.T) {
	r := Score("I really hear you and appreciate where you're coming from on this one", Trust)
	// empathy present, specificity absent: partial handling credit plus a
	// complementary improvement note
	if r.ObjectionHandling.Rating != 70 {
		t.Errorf("handling = %d, want 70", r.ObjectionHandling.Rating)
	}
	found := false
	for _, imp := range r.Improvements {
		if imp != "" {
			found = true
		}
	}
	if !found {
		t.Error("expected improvement note for missing specificity")
	}
}

func TestSpecificityWithoutEmpathy(t *testing.T) {
	r := Score("Specifically, the case study data shows a 40% reduction in churn", Need)
	if r.ObjectionHandling.Rating != 70 {
		t.Errorf("handling = %d, want 70", r.ObjectionHandling.Rating)
	}
}

func TestQuestionAndValueBonus(t *testing.T) {
	with := Score("I understand. For example, the ROI data is strong. What would success look like for you?", Timing)
	without := Score("I understand. For example, the evidence here is strong and detailed today.", Timing)
	if with.ObjectionHandling.Rating <= without.ObjectionHandling.Rating {
		t.Errorf("question+value should raise handling: %d vs %d",
			with.ObjectionHandling.Rating, without.ObjectionHandling.Rating)
	}
}

func TestSubScoresClamped(t *testing.T) {
	// Every bonus at once must still cap at 100.
	r := Score("I understand and appreciate it. Specifically, this case study data shows the ROI and value you'd save. Shall we look at an example together?", Price)
	for _, a := range []Aspect{r.Tone, r.Clarity, r.ObjectionHandling} {
		if a.Rating < 0 || a.Rating > 100 {
			t.Errorf("aspect rating %d out of range", a.Rating)
		}
	}
	if r.Score < 0 || r.Score > 100 {
		t.Errorf("overall %d out of range", r.Score)
	}
}

func TestIdealResponsePerCategory(t *testing.T) {
	seen := map[string]bool{}
	for _, c := range Categories() {
		r := Score("anything", c)
		if r.IdealResponse == "" {
			t.Errorf("%s: empty ideal response", c)
		}
		if seen[r.IdealResponse] {
			t.Errorf("%s: ideal response duplicated across categories", c)
		}
		seen[r.IdealResponse] = true
	}
}

func TestIdealResponseFallback(t *testing.T) {
	r := Score("anything", Category("Weather"))
	if r.IdealResponse != genericIdealResponse {
		t.Error("unknown category should use the generic ideal response")
	}
}

func TestParseCategory(t *testing.T) {
	if ParseCategory("price") != Price {
		t.Error("ParseCategory should be case-insensitive")
	}
	if ParseCategory("COMPETITION") != Competition {
		t.Error("ParseCategory should be case-insensitive")
	}
	if ParseCategory("weather") != Category("weather") {
		t.Error("unknown labels pass through")
	}
}

func TestHistoryIgnored(t *testing.T) {
	plain := Score("I understand, here's data", Price)
	withHistory := Score("I understand, here's data", Price, "prior turn one", "prior turn two")
	if !reflect.DeepEqual(plain, withHistory) {
		t.Error("conversation history must not affect scoring")
	}
}
