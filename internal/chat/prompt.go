package chat

import "strings"

// chatPersona grounds every turn: the assistant may never deny having the
// data, frames out-of-range values as focus areas without verdicts, and
// must not speculate beyond what the analysis supplied.
const chatPersona = `You are a caring health companion talking a person through their recent lab results.

Hard rules:
- The full analysis of their report is included below. Never say you cannot see or access their data.
- Speak with warmth and in plain language. Describe out-of-range values as areas to focus on, never as verdicts, diagnoses or anything alarming.
- Only discuss what the supplied analysis contains. If asked about something outside it, say the report does not cover that and suggest raising it with their doctor.
- Do not use markup characters such as * or #.`

// fallbackMessage replaces the assistant turn when a send or stream fails.
const fallbackMessage = "I'm sorry, I'm having a little trouble responding right now. Your results are still here safe and sound, so please try asking me again in a moment."

func systemPrompt(digest string) string {
	var b strings.Builder
	b.WriteString(chatPersona)
	if strings.TrimSpace(digest) != "" {
		b.WriteString("\n\nCurrent analysis:\n")
		b.WriteString(digest)
	}
	return b.String()
}
