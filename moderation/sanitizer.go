package moderation

import (
	"log/slog"
	"strings"

	"github.com/abadojack/whatlanggo"
	"golang.org/x/net/html"
)

// Elements whose text is dropped along with the tags.
var discardedElements = map[string]struct{}{
	"script":   {},
	"style":    {},
	"textarea": {},
	"option":   {},
}

// Sanitizer turns a raw message body into the stored content: every HTML tag
// is removed, the text is trimmed, then censored words are masked when a
// Moderator is configured. An empty result means the message must be refused.
type Sanitizer struct {
	log       *slog.Logger
	moderator *Moderator
}

func NewSanitizer(log *slog.Logger, moderator *Moderator) *Sanitizer {
	return &Sanitizer{log: log, moderator: moderator}
}

// Sanitize returns the content to store and the same text before censored
// words were masked. Mentions are read from the latter because masking may
// hide part of a username.
func (s *Sanitizer) Sanitize(content string) (stored, unmasked string) {
	text := strings.TrimSpace(StripTags(content))
	if text == "" || s.moderator == nil {
		return text, text
	}

	censored, words := s.moderator.Censor(text)
	if len(words) > 0 {
		info := whatlanggo.Detect(text)
		s.log.Debug("Censored words masked",
			"count", len(words),
			"lang", info.Lang.Iso6391(),
			"confidence", info.Confidence)
	}
	return censored, text
}

// textEscaper re-escapes decoded text so an entity never turns back into markup.
var textEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")

// StripTags keeps only the text nodes of content, escaped.
func StripTags(content string) string {
	var sb strings.Builder
	z := html.NewTokenizer(strings.NewReader(content))
	depth := 0
	for {
		switch z.Next() {
		case html.ErrorToken:
			// io.EOF or a malformed tail: keep what was read so far
			return sb.String()
		case html.TextToken:
			if depth == 0 {
				_, _ = textEscaper.WriteString(&sb, string(z.Text()))
			}
		case html.StartTagToken:
			name, _ := z.TagName()
			if _, ok := discardedElements[string(name)]; ok {
				depth++
			}
		case html.EndTagToken:
			name, _ := z.TagName()
			if _, ok := discardedElements[string(name)]; ok && depth > 0 {
				depth--
			}
		}
	}
}
