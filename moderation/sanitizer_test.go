package moderation

import (
	"log/slog"
	"testing"

	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
)

func TestSanitizer_Sanitize(t *testing.T) {
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	mod, err := NewModerator([]string{"badger"}, replacementChar, log)
	require.NoError(t, err)

	tests := []struct {
		name      string
		moderator *Moderator
		input     string
		expected  string
	}{
		{"plain text is trimmed", nil, "  hello @bob  ", "hello @bob"},
		{"tags are stripped", nil, "<b>bold</b> and <i>italic</i>", "bold and italic"},
		{"script content is dropped", nil, "hi<script>alert(1)</script>", "hi"},
		{"only markup is empty", nil, "<p> </p><br/>", ""},
		{"entities stay escaped", nil, "fish &amp; chips", "fish &amp; chips"},
		{"escaped markup is not revived", nil, "&lt;img src=x onerror=alert(1)&gt;", "&lt;img src=x onerror=alert(1)&gt;"},
		{"bare brackets are escaped", nil, "1 < 2 > 0 & done", "1 &lt; 2 &gt; 0 &amp; done"},
		{"quotes are left alone", nil, `it's "fine"`, `it's "fine"`},
		{"censor runs after stripping", mod, "<em>the badger</em>", "the ******"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sanitizer := NewSanitizer(log, tt.moderator)
			stored, _ := sanitizer.Sanitize(tt.input)
			require.Equal(t, tt.expected, stored)
		})
	}
}

func TestSanitizer_Keeps_Unmasked_Text(t *testing.T) {
	req := require.New(t)
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	mod, err := NewModerator([]string{"abob"}, replacementChar, log)
	req.NoError(err)

	// When a censored word covers a mention token
	stored, unmasked := NewSanitizer(log, mod).Sanitize(" <b>hi @bob</b> ")

	// Then only the stored text is masked
	req.Equal("hi ****", stored)
	req.Equal("hi @bob", unmasked)
}
