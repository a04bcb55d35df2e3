package moderation

import (
	"fmt"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func newBenchModerator(b *testing.B, wordCount int) *Moderator {
	words := make([]string, 0, wordCount)
	for i := 0; i < wordCount; i++ {
		words = append(words, fmt.Sprintf("word%d", i))
	}
	moderator, err := NewModerator(words, '*', slog.Default())
	require.NoError(b, err)
	return moderator
}

func BenchmarkModerator_Build(b *testing.B) {
	for _, n := range []int{1_000, 100_000} {
		b.Run(fmt.Sprintf("%d words", n), func(b *testing.B) {
			for i := 0; i < b.N; i++ {
				newBenchModerator(b, n)
			}
		})
	}
}

// A chat message at the content limit, with a censored word every few words
// and some markup the sanitizer has to strip.
func BenchmarkSanitizer_Sanitize(b *testing.B) {
	sanitizer := NewSanitizer(slog.Default(), newBenchModerator(b, 10_000))
	var sb strings.Builder
	for i := 0; sb.Len() < 5000; i++ {
		if i%7 == 0 {
			fmt.Fprintf(&sb, "<b>word%d</b> ", i)
			continue
		}
		sb.WriteString("hello there ")
	}
	content := sb.String()

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		sanitizer.Sanitize(content)
	}
}
