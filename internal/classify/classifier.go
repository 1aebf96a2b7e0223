// Package classify provides the Classifier collaborator consumed by the
// worker oracle loop. The protocol only requires string -> bool; the bundled
// keyword classifier stands in for a real model.
package classify

import (
	"context"
	"strings"

	"github.com/abadojack/whatlanggo"
	"golang.org/x/text/language"
)

// Classifier labels a piece of text. true means the positive (toxic) label.
type Classifier interface {
	Classify(ctx context.Context, text string) (bool, error)
}

// KeywordClassifier flags text containing words from a per-language block
// list. The language is detected first so e.g. Spanish text is matched
// against the Spanish list.
type KeywordClassifier struct {
	matcher   language.Matcher
	supported []language.Tag
	words     map[language.Tag][]string
}

var defaultWords = map[language.Tag][]string{
	language.English: {
		"hate", "stupid", "idiot", "moron", "loser", "trash",
		"ugly", "dumb", "shut up", "worthless",
	},
	language.Spanish: {
		"odio", "estupido", "estúpido", "idiota", "imbecil", "imbécil",
		"basura", "inutil", "inútil",
	},
}

func NewKeywordClassifier() *KeywordClassifier {
	// English first: the matcher falls back to the first tag.
	supported := []language.Tag{language.English}
	for tag := range defaultWords {
		if tag != language.English {
			supported = append(supported, tag)
		}
	}
	return &KeywordClassifier{
		matcher:   language.NewMatcher(supported),
		supported: supported,
		words:     defaultWords,
	}
}

// Classify never fails; the error return exists for model-backed
// implementations.
func (c *KeywordClassifier) Classify(ctx context.Context, text string) (bool, error) {
	list := c.wordsFor(text)
	lowered := strings.ToLower(text)
	for _, word := range list {
		if strings.Contains(lowered, word) {
			return true, nil
		}
	}
	return false, nil
}

func (c *KeywordClassifier) wordsFor(text string) []string {
	detected, err := language.Parse(whatlanggo.DetectLang(text).Iso6391())
	if err != nil {
		return c.words[language.English]
	}
	_, index, confidence := c.matcher.Match(detected)
	if confidence == language.No {
		return c.words[language.English]
	}
	return c.words[c.supported[index]]
}
