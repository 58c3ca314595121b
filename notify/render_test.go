package notify

import (
	"strings"
	"testing"
	"text/template"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	logvault "github.com/dm112-tadbox/log-vault"
)

func TestEscapeMarkdown(t *testing.T) {
	assert.Equal(t, `my\-app\.v1`, escapeMarkdown("my-app.v1"))
	assert.Equal(t, `\(\+03:00\)`, escapeMarkdown("(+03:00)"))
	assert.Equal(t, `plain text`, escapeMarkdown("plain text"))
	assert.Equal(t, `\*\_\~\|\{\}\[\]\(\)\#\>\!\=\+\.`, escapeMarkdown(`*_~|{}[]()#>!=+.`))
}

func TestEmojiForLevel(t *testing.T) {
	assert.Equal(t, "🔴", emojiForLevel(logvault.LevelError))
	assert.Equal(t, "🟡", emojiForLevel(logvault.LevelWarn))
	assert.Equal(t, "🟢", emojiForLevel(logvault.LevelInfo))
	assert.Equal(t, "🐤", emojiForLevel(logvault.LevelSilly))
	assert.Equal(t, "🔵", emojiForLevel(logvault.Level("custom")))
}

func defaultTmpl(t *testing.T) *template.Template {
	t.Helper()
	tmpl, err := template.New("telegram").Parse(DefaultTelegramTemplate)
	require.NoError(t, err)
	return tmpl
}

func TestRenderMessage_Layout(t *testing.T) {
	event := logvault.LogEvent{
		Timestamp: time.Date(2024, time.March, 5, 12, 30, 45, 0, time.UTC),
		Level:     logvault.LevelError,
		Message:   "An error appear!",
		Meta: logvault.Meta{
			"process":     "svc",
			"environment": "test",
			"project":     "X",
		},
	}

	out, err := renderMessage(defaultTmpl(t), event)
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(out, "🔴 *error log message*"))
	assert.Contains(t, out, `⏱ _05 Mar 2024 12:30:45 \(\+00:00\)_`)
	// Meta lines are sorted by label.
	assert.Contains(t, out, "`[environment]: test`\n`[process]: svc`\n`[project]: X`")
	// The message body inside the code fence is escaped as well.
	assert.Contains(t, out, "```json\n\"An error appear\\!\"\n```")
	assert.NotContains(t, out, "shrunk")
}

func TestRenderMessage_EscapesAllInterpolatedFields(t *testing.T) {
	event := logvault.LogEvent{
		Timestamp: time.Date(2024, time.March, 5, 12, 30, 45, 0, time.UTC),
		Level:     logvault.LevelWarn,
		Message:   map[string]string{"note": "dots.and-dashes too"},
		Meta:      logvault.Meta{"app.name": "my-app.v1"},
	}

	out, err := renderMessage(defaultTmpl(t), event)
	require.NoError(t, err)

	// Meta label and value are escaped for MarkdownV2.
	assert.Contains(t, out, "`[app\\.name]: my\\-app\\.v1`")
	// So is the JSON body, braces included.
	assert.Contains(t, out, `"note": "dots\.and\-dashes too"`)
	assert.Contains(t, out, "\\{\n")
}

func TestRenderMessage_ShrinksOversizedBodies(t *testing.T) {
	event := logvault.LogEvent{
		Timestamp: time.Now(),
		Level:     logvault.LevelError,
		Message:   strings.Repeat("x", ShrinkLimit+100),
	}

	out, err := renderMessage(defaultTmpl(t), event)
	require.NoError(t, err)

	assert.Contains(t, out, "is shrunk as it's over 2048 characters")
	// Body is capped at the limit.
	fenced := out[strings.Index(out, "```json"):]
	assert.LessOrEqual(t, len(fenced), ShrinkLimit+len("```json\n")+len("\n```"))
}

func TestShrinkString_CountsCharactersNotBytes(t *testing.T) {
	s := strings.Repeat("é", 10)

	out, shrunk := shrinkString(s, 4)
	assert.True(t, shrunk)
	assert.Equal(t, strings.Repeat("é", 4), out)
	assert.True(t, utf8.ValidString(out))

	// At or under the limit, nothing is cut.
	out, shrunk = shrinkString(s, 10)
	assert.False(t, shrunk)
	assert.Equal(t, s, out)
}

func TestRenderMessage_UnserializableMessage(t *testing.T) {
	event := logvault.LogEvent{
		Timestamp: time.Now(),
		Level:     logvault.LevelError,
		Message:   make(chan int),
	}

	_, err := renderMessage(defaultTmpl(t), event)
	assert.Error(t, err)
}
