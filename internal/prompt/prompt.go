// Package prompt assembles the system prompt for a chat turn from trusted
// server-side configuration. Nothing in this package accepts a system-prompt
// string from the client; that is a hard security invariant of the gateway,
// not a style choice.
package prompt

import (
	"strings"

	"github.com/vireoai/convo-gateway/internal/profile"
	"github.com/vireoai/convo-gateway/internal/tenant"
)

const workshopPrompt = `You are the live workshop assistant for the Vireo marketing platform.

You are talking to a workshop participant trying the product for the first time. Conversations are anonymous and short-lived: there is no saved profile, no history beyond this session, and nothing you are told should be treated as an account setting.

Your job:
- Demonstrate, hands-on, how Vireo turns a plain business description into usable marketing copy.
- Answer in the participant's language, keep answers under 200 words, and always end with a concrete thing they can try next.
- If asked about pricing, plans, or account features, give the one-line answer and point them to the host of the workshop.

Stay inside marketing topics. If the participant asks for something unrelated, redirect in one friendly sentence.`

const philosophySection = `Our philosophy: good marketing is specific. Generic copy that could describe any business sells nothing. Always push toward the concrete detail that only this business can claim, and prefer one sharp message over three vague ones.`

const capabilitiesSection = `You can help with: positioning and messaging, ad and social copy, email campaigns, landing-page text, content calendars, offer design, and reviewing copy the user brings. You do not design images, write code, or give legal or financial advice; say so plainly when asked.`

// Compose builds the final system prompt for a turn.
//
// Workshop mode returns the fixed workshop prompt verbatim and ignores both
// the profile and the tone. Product mode builds a tone-parameterized base
// prompt and appends personal and business context blocks when present.
// Output is deterministic for identical inputs.
func Compose(mode tenant.Mode, p *profile.BusinessProfile, tone *ToneConfig) string {
	if mode == tenant.ModeWorkshop {
		return workshopPrompt
	}

	t := normalize(tone)

	var b strings.Builder
	b.WriteString("You are Vireo, the marketing assistant built into this workspace.\n\n")
	b.WriteString(styleBlocks[t.Style])
	b.WriteString("\n\n")
	b.WriteString(approachBlocks[t.Approach])
	b.WriteString("\n\n")
	b.WriteString(expertiseBlocks[t.Expertise])
	b.WriteString("\n\n")
	if t.AskQuestions {
		b.WriteString(askQuestionsOn)
	} else {
		b.WriteString(askQuestionsOff)
	}
	b.WriteString("\n\n")
	b.WriteString(philosophySection)
	b.WriteString("\n\n")
	b.WriteString(capabilitiesSection)

	writePersonalContext(&b, p)
	writeBusinessContext(&b, p)

	return b.String()
}

func writePersonalContext(b *strings.Builder, p *profile.BusinessProfile) {
	if p == nil {
		return
	}

	var lines []string
	appendField(&lines, "Name", p.DisplayName)
	appendField(&lines, "Gender", p.Gender)
	appendField(&lines, "Country", p.Country)
	if len(lines) == 0 {
		return
	}

	b.WriteString("\n\nAbout the person you are talking to:\n")
	b.WriteString(strings.Join(lines, "\n"))
}

func writeBusinessContext(b *strings.Builder, p *profile.BusinessProfile) {
	if p == nil {
		return
	}

	var lines []string
	appendField(&lines, "Business name", p.BusinessName)
	appendField(&lines, "Business type", p.BusinessType)
	appendField(&lines, "Target audience", p.TargetAudience)
	appendField(&lines, "Brand voice", p.BrandVoice)
	appendField(&lines, "Products and services", p.Products)
	appendField(&lines, "Value proposition", p.ValueProposition)
	appendField(&lines, "Additional instructions from the user", p.CustomInstructions)
	if len(lines) == 0 {
		return
	}

	b.WriteString("\n\nAbout their business:\n")
	b.WriteString(strings.Join(lines, "\n"))
}

func appendField(lines *[]string, label, value string) {
	value = strings.TrimSpace(value)
	if value == "" {
		return
	}
	*lines = append(*lines, "- "+label+": "+value)
}
