package prompt

// ToneConfig tunes the voice of the assistant in product mode. It is a pure
// value object supplied per request (or cached client-side); it carries no
// identity beyond the tenant it arrived with.
type ToneConfig struct {
	Style        string `json:"style"`        // energetic, calm, professional, friendly
	Approach     string `json:"approach"`     // direct, detailed, storytelling
	Expertise    string `json:"expertise"`    // beginner, intermediate, expert
	AskQuestions bool   `json:"askQuestions"` // consultative mode
}

// DefaultTone is used whenever a tone value falls outside the enumerated
// sets. A broken tone configuration must never block a conversation.
var DefaultTone = ToneConfig{
	Style:        "professional",
	Approach:     "detailed",
	Expertise:    "intermediate",
	AskQuestions: true,
}

var styleBlocks = map[string]string{
	"energetic":    "Communication style: energetic. Write with momentum and enthusiasm. Use vivid, active language, keep sentences punchy, and make the reader feel the upside of acting now.",
	"calm":         "Communication style: calm. Write with a steady, reassuring voice. Avoid hype and exclamation, let the substance carry the message, and give the reader room to think.",
	"professional": "Communication style: professional. Write with polish and precision. Stay businesslike without being stiff, and favor clear claims backed by reasoning over casual filler.",
	"friendly":     "Communication style: friendly. Write like a trusted colleague. Be warm and approachable, use everyday language, and keep the conversation human.",
}

var approachBlocks = map[string]string{
	"direct":       "Approach: direct. Lead with the answer or recommendation, then support it briefly. Cut preamble and avoid hedging when the path is clear.",
	"detailed":     "Approach: detailed. Walk through the reasoning step by step. Cover the relevant options and trade-offs so the reader understands why, not just what.",
	"storytelling": "Approach: storytelling. Anchor advice in concrete scenarios and examples. Show how the idea plays out for a real business before generalizing.",
}

var expertiseBlocks = map[string]string{
	"beginner":     "Audience level: beginner. Assume no marketing background. Define terms on first use, avoid jargon, and prefer one clear next step over a menu of options.",
	"intermediate": "Audience level: intermediate. Assume working familiarity with common marketing channels and terms. Skip the basics, but still explain non-obvious reasoning.",
	"expert":       "Audience level: expert. Assume deep marketing fluency. Be dense and specific, reference advanced tactics freely, and skip explanations of standard practice.",
}

const askQuestionsOn = "Consultative mode: on. When the request is ambiguous or missing key facts, ask one or two sharp clarifying questions before committing to an answer."

const askQuestionsOff = "Consultative mode: off. Do not ask clarifying questions. Make reasonable assumptions, state them briefly, and give the most useful answer you can."

// normalize returns a tone with every axis inside its enumerated set,
// substituting the documented default for any malformed value.
func normalize(t *ToneConfig) ToneConfig {
	if t == nil {
		return DefaultTone
	}
	out := *t
	if _, ok := styleBlocks[out.Style]; !ok {
		out.Style = DefaultTone.Style
	}
	if _, ok := approachBlocks[out.Approach]; !ok {
		out.Approach = DefaultTone.Approach
	}
	if _, ok := expertiseBlocks[out.Expertise]; !ok {
		out.Expertise = DefaultTone.Expertise
	}
	return out
}
