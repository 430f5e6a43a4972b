package bot

import "strings"

// Characters that need escaping in MarkdownV2: _*[]()~`>#+-=|{}.!
var specialChars = []string{"_", "*", "[", "]", "(", ")", "~", "`", ">", "#", "+", "-", "=", "|", "{", "}", ".", "!"}

func escapeMarkdown(text string) string {
	// Don't escape characters within code blocks
	parts := strings.Split(text, "```")
	for i := 0; i < len(parts); i += 2 {
		parts[i] = strings.ReplaceAll(parts[i], `\`, `\\`)
		for _, char := range specialChars {
			parts[i] = strings.ReplaceAll(parts[i], char, `\`+char)
		}
	}
	return strings.Join(parts, "```")
}

// toMarkdownV2 renders the session's **bold** markup as Telegram bold and
// escapes everything else
func toMarkdownV2(text string) string {
	return strings.ReplaceAll(escapeMarkdown(text), `\*\*`, "*")
}
