// Package text provides text preprocessing utilities for Spanish TTS.
//
// The voice model reads Spanish abbreviations literally and tends to run
// punctuation into neighbouring words, so text is normalized before it is
// sent for synthesis: abbreviations are expanded, every punctuation mark is
// isolated by spaces and whitespace is collapsed.
package text

import (
	"strings"
)

// Punctuation marks that are isolated with surrounding spaces.
var spacedPunctuation = []string{".", ",", ";", ":", "?", "¿", "!", "¡"}

// spanishAbbreviations is applied in table order. The list is literal: no
// word-boundary detection is performed.
var spanishAbbreviations = []string{
	"Sr.", "Señor",
	"Sra.", "Señora",
	"Dr.", "Doctor",
	"Dra.", "Doctora",
	"Ud.", "Usted",
	"Uds.", "Ustedes",
}

// Preprocessor provides Spanish text normalization for TTS.
type Preprocessor struct {
	abbreviationReplacer *strings.Replacer
	punctuationReplacer  *strings.Replacer
}

// NewPreprocessor creates a new text preprocessor with compiled patterns and replacers.
func NewPreprocessor() *Preprocessor {
	pairs := make([]string, 0, len(spacedPunctuation)*2)
	for _, mark := range spacedPunctuation {
		pairs = append(pairs, mark, " "+mark+" ")
	}

	return &Preprocessor{
		abbreviationReplacer: strings.NewReplacer(spanishAbbreviations...),
		punctuationReplacer:  strings.NewReplacer(pairs...),
	}
}

// PreprocessText expands abbreviations, spaces out punctuation and collapses
// whitespace. Running it on its own output returns the same string.
func (p *Preprocessor) PreprocessText(text string) string {
	if strings.TrimSpace(text) == "" {
		return ""
	}

	expanded := p.expandAbbreviations(text)
	spaced := p.spacePunctuation(expanded)

	return p.normalizeWhitespace(spaced)
}

// Abbreviations returns the abbreviation table as (abbreviation, expansion) pairs.
func Abbreviations() [][2]string {
	out := make([][2]string, 0, len(spanishAbbreviations)/2)
	for i := 0; i+1 < len(spanishAbbreviations); i += 2 {
		out = append(out, [2]string{spanishAbbreviations[i], spanishAbbreviations[i+1]})
	}

	return out
}

// expandAbbreviations converts common abbreviations to their full form.
func (p *Preprocessor) expandAbbreviations(text string) string {
	return p.abbreviationReplacer.Replace(text)
}

// spacePunctuation isolates each punctuation mark between spaces.
func (p *Preprocessor) spacePunctuation(text string) string {
	return p.punctuationReplacer.Replace(text)
}

// normalizeWhitespace collapses runs of Unicode whitespace to a single space.
func (p *Preprocessor) normalizeWhitespace(text string) string {
	return strings.Join(strings.Fields(text), " ")
}
