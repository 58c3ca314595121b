package notify

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"text/template"
	"time"
	"unicode/utf8"

	logvault "github.com/dm112-tadbox/log-vault"
)

// ShrinkLimit caps the JSON-rendered message body embedded in a
// notification text.
const ShrinkLimit = 2048

// timestampLayout matches the facade's human-readable timestamp form.
const timestampLayout = "02 Jan 2006 15:04:05 (-07:00)"

// DefaultTelegramTemplate lays a log event out as a MarkdownV2
// message: emoji and level headline, timestamp, meta lines, an
// optional shrink warning and the JSON body in a code fence. Every
// field, the fenced body included, arrives pre-escaped.
const DefaultTelegramTemplate = "{{.EmojiLevel}} *{{.Level}} log message* {{if .Timestamp}}⏱ _{{.Timestamp}}_{{end}}\n" +
	"\n" +
	"{{range .Meta}}`[{{.Label}}]: {{.Value}}`\n" +
	"{{end}}" +
	"{{if .Shrunk}}>The message is shrunk as it's over {{.Shrunk}} characters length\\.\n" +
	">Please, consider a more accurate handler for this log entry in your code\\.\n" +
	"{{end}}" +
	"\n" +
	"```json\n" +
	"{{.Message}}\n" +
	"```"

var levelEmojis = map[logvault.Level]string{
	logvault.LevelError:   "🔴",
	logvault.LevelWarn:    "🟡",
	logvault.LevelInfo:    "🟢",
	logvault.LevelHTTP:    "🔵",
	logvault.LevelVerbose: "🟣",
	logvault.LevelDebug:   "🪲",
	logvault.LevelSilly:   "🐤",
}

const defaultEmoji = "🔵"

func emojiForLevel(level logvault.Level) string {
	if emoji, ok := levelEmojis[level]; ok {
		return emoji
	}
	return defaultEmoji
}

// markdownSpecials are the MarkdownV2 control characters escaped in
// every interpolated field outside the code fence.
const markdownSpecials = "|{[]*_~}+)(#>!=-."

// escapeMarkdown prefixes every MarkdownV2 control character with a
// backslash.
func escapeMarkdown(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r < 0x80 && strings.ContainsRune(markdownSpecials, r) {
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}

// shrinkString truncates s to limit characters, reporting whether it
// was cut. Characters, not bytes: a multibyte rune is never split.
func shrinkString(s string, limit int) (string, bool) {
	if utf8.RuneCountInString(s) <= limit {
		return s, false
	}
	return string([]rune(s)[:limit]), true
}

type metaField struct {
	Label string
	Value string
}

type messageData struct {
	EmojiLevel string
	Level      string
	Timestamp  string
	Meta       []metaField
	// Shrunk carries the limit when the body was cut, zero otherwise.
	Shrunk  int
	Message string
}

// renderMessage renders one log event with the given template. Every
// interpolated field, the JSON message body included, is escaped for
// MarkdownV2; the shrink limit applies to the body before escaping.
func renderMessage(tmpl *template.Template, event logvault.LogEvent) (string, error) {
	body, err := json.MarshalIndent(event.Message, "", "  ")
	if err != nil {
		return "", fmt.Errorf("serialize message: %w", err)
	}

	message, shrunk := shrinkString(string(body), ShrinkLimit)

	data := messageData{
		EmojiLevel: emojiForLevel(event.Level),
		Level:      escapeMarkdown(string(event.Level)),
		Message:    escapeMarkdown(message),
	}
	if shrunk {
		data.Shrunk = ShrinkLimit
	}
	if !event.Timestamp.IsZero() {
		data.Timestamp = escapeMarkdown(formatTimestamp(event.Timestamp))
	}

	labels := make([]string, 0, len(event.Meta))
	for label := range event.Meta {
		labels = append(labels, label)
	}
	sort.Strings(labels)
	for _, label := range labels {
		data.Meta = append(data.Meta, metaField{
			Label: escapeMarkdown(label),
			Value: escapeMarkdown(event.Meta[label]),
		})
	}

	var out strings.Builder
	if err := tmpl.Execute(&out, data); err != nil {
		return "", fmt.Errorf("render template: %w", err)
	}
	return out.String(), nil
}

func formatTimestamp(t time.Time) string {
	return t.Format(timestampLayout)
}
