package orchestrator

import "strings"

// Turn labels used in history lines and in the prompt. The bot marker also
// delimits where the generated continuation begins.
const (
	UserTurnPrefix = "المستخدم: "
	BotTurnPrefix  = "البوت: "
	botMarker      = "البوت:"
)

// promptHistoryLines is how many trailing history lines the prompt carries.
const promptHistoryLines = 6

// dialectArabicNames maps dialect ids to the Arabic name used in the prompt
// instruction. Unknown dialects fall back to plain Arabic.
var dialectArabicNames = map[string]string{
	"iraqi":           "العراقية",
	"khaleeji":        "الخليجية",
	"egyptian":        "المصرية",
	"standard_arabic": "العربية الفصحى",
}

// BuildPrompt composes the generation prompt: a dialect instruction line,
// the trailing history turns, the user's message, and the bot marker as the
// closing cue.
func BuildPrompt(text, dialect string, history []string) string {
	name, ok := dialectArabicNames[dialect]
	if !ok {
		name = "العربية"
	}

	var sb strings.Builder
	sb.WriteString("أنت بوت عربي ودود يتكلم باللهجة ")
	sb.WriteString(name)
	sb.WriteString(". جاوب بإيجاز وبنفس اللهجة.\n")

	if len(history) > promptHistoryLines {
		history = history[len(history)-promptHistoryLines:]
	}
	for _, line := range history {
		sb.WriteString(line)
		sb.WriteString("\n")
	}

	sb.WriteString(UserTurnPrefix)
	sb.WriteString(text)
	sb.WriteString("\n")
	sb.WriteString(botMarker)
	return sb.String()
}

// ExtractReply isolates the generated continuation. Completion-style models
// may echo the prompt, so the text after the last bot marker is taken when
// present; otherwise the prompt prefix is stripped; otherwise the raw output
// is returned as is.
func ExtractReply(raw, prompt string) string {
	if idx := strings.LastIndex(raw, botMarker); idx >= 0 {
		return strings.TrimSpace(raw[idx+len(botMarker):])
	}
	if strings.HasPrefix(raw, prompt) {
		return strings.TrimSpace(strings.TrimPrefix(raw, prompt))
	}
	return strings.TrimSpace(raw)
}
