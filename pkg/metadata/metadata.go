package metadata

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

const minLyricsLines = 5

const promptTemplate = `You are a songwriting assistant. Given a song idea, produce song metadata.
Respond with a single JSON object with exactly these fields:
- "title": a short song title
- "lyrics": the full lyrics, one line per lyric line, using section tags such as [Verse] and [Chorus]
- "tags": a list of 3 to 5 music style tags
Do not add any other field.
Song idea: %s`

// LLM is the transport used to run the prompt. *openai.Client satisfies it.
type LLM interface {
	ChatCompletion(ctx context.Context, message string) (string, error)
}

// Metadata is the structured result of one generation. It is either fully
// populated and valid or not returned at all.
type Metadata struct {
	Title  string   `json:"title"`
	Lyrics string   `json:"lyrics"`
	Tags   []string `json:"tags"`
}

// ValidationError reports a structural violation in the LLM output.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("metadata: invalid %s: %s", e.Field, e.Reason)
}

type Generator struct {
	llm LLM
}

func New(llm LLM) *Generator {
	return &Generator{
		llm: llm,
	}
}

// Generate runs a single LLM call for the given idea and returns validated
// metadata. There is no retry or multi-turn refinement, callers retry the
// whole generation if they want another attempt.
func (g *Generator) Generate(ctx context.Context, idea string) (*Metadata, error) {
	if strings.TrimSpace(idea) == "" {
		return nil, errors.New("metadata: idea is empty")
	}
	raw, err := g.llm.ChatCompletion(ctx, fmt.Sprintf(promptTemplate, idea))
	if err != nil {
		return nil, fmt.Errorf("metadata: couldn't run prompt: %w", err)
	}
	js, err := ExtractJSON(raw)
	if err != nil {
		return nil, err
	}
	var m Metadata
	if err := json.Unmarshal([]byte(js), &m); err != nil {
		return nil, &ValidationError{Field: "json", Reason: err.Error()}
	}
	if err := m.validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

func (m *Metadata) validate() error {
	if m.Title == "" {
		return &ValidationError{Field: "title", Reason: "missing or empty"}
	}
	if m.Lyrics == "" {
		return &ValidationError{Field: "lyrics", Reason: "missing or empty"}
	}
	if lines := strings.Split(m.Lyrics, "\n"); len(lines) < minLyricsLines {
		return &ValidationError{Field: "lyrics", Reason: fmt.Sprintf("only %d lines, want at least %d", len(lines), minLyricsLines)}
	}
	if len(m.Tags) == 0 {
		return &ValidationError{Field: "tags", Reason: "missing or empty"}
	}
	for _, tag := range m.Tags {
		if strings.TrimSpace(tag) == "" {
			return &ValidationError{Field: "tags", Reason: "contains an empty tag"}
		}
	}
	return nil
}
