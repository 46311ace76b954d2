// Package prompt holds the template set used to talk to the language model.
// Templates are parsed once at startup and never change afterwards.
package prompt

import (
	"bytes"
	"embed"
	"fmt"
	"os"
	"strings"
	"text/template"
)

//go:embed templates/*.tmpl
var defaults embed.FS

const (
	nameScoring      = "scoring"
	nameSynthesis    = "synthesis"
	nameModification = "modification"
	nameSuggestions  = "suggestions"
)

// bodyPreviewRunes caps how much of an article body goes into the suggestions prompt.
const bodyPreviewRunes = 2000

// Overrides points at template files that replace the embedded defaults.
// Empty paths keep the default.
type Overrides struct {
	Scoring      string
	Synthesis    string
	Modification string
	Suggestions  string
}

// Set is an immutable collection of parsed templates.
type Set struct {
	scoring      *template.Template
	synthesis    *template.Template
	modification *template.Template
	suggestions  *template.Template
}

// ScoringData fills the relevance scoring template.
type ScoringData struct {
	Topic string
	Text  string
}

// EvidenceBlock is one labeled source inside the synthesis prompt.
type EvidenceBlock struct {
	Label string
	Text  string
}

// SynthesisData fills the article synthesis template.
type SynthesisData struct {
	Topic        string
	Sources      []EvidenceBlock
	LengthWords  int
	Tone         string
	Modification string
}

// SourceCount is the number of evidence blocks.
func (d SynthesisData) SourceCount() int {
	return len(d.Sources)
}

// ModificationData fills the revision block appended to a synthesis prompt.
type ModificationData struct {
	Title       string
	CurrentText string
	Instruction string
}

// SuggestionsData fills the copilot suggestions template.
type SuggestionsData struct {
	Title           string
	MetaDescription string
	Tags            []string
	Topic           string
	AverageScore    float64
	Body            string
	Tone            string
}

type suggestionsView struct {
	SuggestionsData
	Tags        string
	BodyPreview string
	BodyLength  int
}

// Default returns the embedded template set.
func Default() (*Set, error) {
	return Load(Overrides{})
}

// Load parses the embedded templates, replacing any with the given override files.
func Load(o Overrides) (*Set, error) {
	var (
		s   Set
		err error
	)
	if s.scoring, err = parse(nameScoring, o.Scoring); err != nil {
		return nil, err
	}
	if s.synthesis, err = parse(nameSynthesis, o.Synthesis); err != nil {
		return nil, err
	}
	if s.modification, err = parse(nameModification, o.Modification); err != nil {
		return nil, err
	}
	if s.suggestions, err = parse(nameSuggestions, o.Suggestions); err != nil {
		return nil, err
	}
	return &s, nil
}

// Scoring renders the relevance scoring prompt.
func (s *Set) Scoring(d ScoringData) (string, error) {
	return render(s.scoring, d)
}

// Synthesis renders the article synthesis prompt.
func (s *Set) Synthesis(d SynthesisData) (string, error) {
	return render(s.synthesis, d)
}

// Modification renders the revision block for regeneration.
func (s *Set) Modification(d ModificationData) (string, error) {
	return render(s.modification, d)
}

// Suggestions renders the improvement suggestions prompt.
func (s *Set) Suggestions(d SuggestionsData) (string, error) {
	preview := d.Body
	if runes := []rune(preview); len(runes) > bodyPreviewRunes {
		preview = string(runes[:bodyPreviewRunes])
	}
	return render(s.suggestions, suggestionsView{
		SuggestionsData: d,
		Tags:            strings.Join(d.Tags, ", "),
		BodyPreview:     preview,
		BodyLength:      len([]rune(d.Body)),
	})
}

func parse(name, overridePath string) (*template.Template, error) {
	var (
		raw []byte
		err error
	)
	if overridePath != "" {
		raw, err = os.ReadFile(overridePath)
		if err != nil {
			return nil, fmt.Errorf("read %s template %s: %w", name, overridePath, err)
		}
	} else {
		raw, err = defaults.ReadFile("templates/" + name + ".tmpl")
		if err != nil {
			return nil, fmt.Errorf("read embedded %s template: %w", name, err)
		}
	}

	tmpl, err := template.New(name).Option("missingkey=error").Parse(string(raw))
	if err != nil {
		return nil, fmt.Errorf("parse %s template: %w", name, err)
	}
	return tmpl, nil
}

func render(tmpl *template.Template, data any) (string, error) {
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render %s prompt: %w", tmpl.Name(), err)
	}
	return buf.String(), nil
}
