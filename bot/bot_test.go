package bot

import (
	"strings"
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToMarkdownV2(t *testing.T) {
	assert.Equal(t, `*Quiz \#1*  \(Física · General\)`, toMarkdownV2("**Quiz #1**  (Física · General)"))
	assert.Equal(t, `Resultado: *4\.5*`, toMarkdownV2("Resultado: **4.5**"))
	assert.Equal(t, `a\\b`, toMarkdownV2(`a\b`))
	assert.Equal(t, "Código:\n```\nx = 1.5\n```\n\\.", toMarkdownV2("Código:\n```\nx = 1.5\n```\n."))
}

func TestQuizNumber(t *testing.T) {
	n, ok := quizNumber("📝 **Quiz #7**  (Cálculo · Derivadas)\n\n**¿?**")
	require.True(t, ok)
	assert.Equal(t, 7, n)

	_, ok = quizNumber("Resultado: **4**")
	assert.False(t, ok)
}

func TestParseCallback(t *testing.T) {
	q, c, err := parseCallback("answer:3:2")
	require.NoError(t, err)
	assert.Equal(t, 3, q)
	assert.Equal(t, 2, c)

	for _, bad := range []string{"foo:1:1", "answer:1", "answer:x:1", "answer:1:4", "answer:1:-1"} {
		_, _, err := parseCallback(bad)
		assert.Error(t, err, bad)
	}
}

func TestCommandText(t *testing.T) {
	cmd := func(text string, length int) *tgbotapi.Message {
		return &tgbotapi.Message{
			Text:     text,
			Entities: []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: length}},
		}
	}

	assert.Equal(t, "/materia Física", commandText(cmd("/materia@ProfeBot Física", len("/materia@ProfeBot"))))
	assert.Equal(t, "/help", commandText(cmd("/start", len("/start"))))
	assert.Equal(t, "/usuarios", commandText(cmd("/usuarios", len("/usuarios"))))
	assert.Equal(t, "2+2", commandText(&tgbotapi.Message{Text: "2+2"}))
}

func TestSplitMessage(t *testing.T) {
	assert.Equal(t, []string{"corto"}, splitMessage("corto", 10))
	assert.Equal(t, []string{"línea1", "línea2"}, splitMessage("línea1\nlínea2", 10))

	parts := splitMessage(strings.Repeat("ñ", 10), 5)
	for _, p := range parts {
		assert.LessOrEqual(t, len(p), 5)
		assert.True(t, strings.HasPrefix(p, "ñ"))
	}
	assert.Equal(t, strings.Repeat("ñ", 10), strings.Join(parts, ""))
}

func TestDisplayName(t *testing.T) {
	assert.Equal(t, "ana", displayName(&tgbotapi.User{UserName: "ana", FirstName: "Ana"}))
	assert.Equal(t, "Ana Pérez", displayName(&tgbotapi.User{FirstName: "Ana", LastName: "Pérez"}))
	assert.Equal(t, "", displayName(nil))
}
