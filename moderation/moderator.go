package moderation

import (
	"log/slog"
	"unicode"

	goahocorasick "github.com/anknown/ahocorasick"
	"github.com/samber/lo"
)

// leet maps look-alike characters to the letter they stand for.
var leet = map[rune]rune{
	'4': 'a', '@': 'a',
	'3': 'e', '€': 'e',
	'1': 'i', '!': 'i', '|': 'i',
	'0': 'o',
	'5': 's', '$': 's',
}

// Moderator masks censored words in message bodies. Matching runs on a
// folded copy of the text (lowercase, leet decoded, punctuation and spaces
// removed) so "B.A.D.G.E.R" is caught by "badger".
type Moderator struct {
	matcher      *goahocorasick.Machine
	censoredChar rune
	log          *slog.Logger
}

// folded is the searchable form of a text. positions[i] is the index in the
// original runes of folded rune i.
type folded struct {
	runes     []rune
	positions []int
}

func fold(input []rune) folded {
	f := folded{runes: make([]rune, 0, len(input)), positions: make([]int, 0, len(input))}
	for i, r := range input {
		if alias, ok := leet[r]; ok {
			r = alias
		}
		if unicode.IsPunct(r) || unicode.IsSpace(r) || unicode.IsSymbol(r) {
			continue
		}
		f.runes = append(f.runes, unicode.ToLower(r))
		f.positions = append(f.positions, i)
	}
	return f
}

// NewModerator builds the automaton over the folded censored words. Words
// that fold to nothing are dropped.
func NewModerator(censoredWords []string, censoredChar rune, log *slog.Logger) (*Moderator, error) {
	patterns := lo.FilterMap(censoredWords, func(word string, _ int) ([]rune, bool) {
		f := fold([]rune(word))
		return f.runes, len(f.runes) > 0
	})

	m := new(goahocorasick.Machine)
	if err := m.Build(patterns); err != nil {
		return nil, err
	}
	log.Debug("Moderator ready", "patterns", len(patterns))
	return &Moderator{matcher: m, censoredChar: censoredChar, log: log}, nil
}

// Censor masks every match in the original text, separators inside the
// match included, and returns the matched words in order of appearance.
func (m *Moderator) Censor(original string) (string, []string) {
	runes := []rune(original)
	f := fold(runes)
	if len(f.runes) == 0 {
		return original, nil
	}

	var words []string
	for _, term := range m.matcher.MultiPatternSearch(f.runes, false) {
		end := term.Pos + len(term.Word)
		if term.Pos < 0 || end > len(f.positions) {
			continue
		}
		for i := f.positions[term.Pos]; i <= f.positions[end-1]; i++ {
			runes[i] = m.censoredChar
		}
		words = append(words, string(term.Word))
	}
	if len(words) == 0 {
		return original, nil
	}
	return string(runes), words
}
