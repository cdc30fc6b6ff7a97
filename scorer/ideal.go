package scorer

var idealResponses = map[Category]string{
	Price: "I understand budget is a real constraint. Let me share specifically what " +
		"similar teams saved: one case study showed a 3x ROI within two quarters because " +
		"the tool replaced two manual processes. What would the outcome need to look like " +
		"for the price to feel justified?",
	Trust: "I hear you — you haven't worked with us before, and trust is earned. " +
		"Specifically, we offer a 30-day pilot with full data export, and I can connect you " +
		"with two current customers in your industry. What evidence would help you feel " +
		"confident moving forward?",
	Timing: "I appreciate that now feels busy. Many of our customers felt the same, and " +
		"the data shows teams that started during a crunch saved the most time, because the " +
		"onboarding is handled by us. What would have to change for the timing to feel right?",
	Authority: "I understand you need sign-off from others. To make that easier, I can " +
		"prepare a one-page summary with the specific ROI data your decision-maker cares " +
		"about. Who else should be in the conversation, and what matters most to them?",
	Competition: "I appreciate you're evaluating options — you should. Specifically, where " +
		"we differ is the integration depth: one customer's case study showed migration in " +
		"under a week. What criteria matter most in your comparison?",
	Need: "I hear that this doesn't feel urgent. Can I share data from a team that thought " +
		"the same? They found they were losing 6 hours a week to the manual process. " +
		"What does that workflow cost your team today?",
}

const genericIdealResponse = "I understand your concern, and it's a fair one. Let me " +
	"share a specific example of how we've addressed it for similar customers, and then " +
	"I'd love to hear what an ideal outcome looks like for you — what matters most here?"

func idealResponse(c Category) string {
	if r, ok := idealResponses[c]; ok {
		return r
	}
	return genericIdealResponse
}
