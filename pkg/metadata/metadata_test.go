package metadata

import (
	"context"
	"errors"
	"strings"
	"testing"
)

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    string
		wantErr bool
	}{
		{
			name: "prose around object",
			raw:  "Sure! Here is your data: {\"title\":\"X\",\"lyrics\":\"a\\nb\\nc\\nd\\ne\",\"tags\":[\"pop\"]}",
			want: "{\"title\":\"X\",\"lyrics\":\"a\\nb\\nc\\nd\\ne\",\"tags\":[\"pop\"]}",
		},
		{
			name: "object only",
			raw:  `{"a":1}`,
			want: `{"a":1}`,
		},
		{
			name: "array",
			raw:  `the tags are ["pop","rock"] as requested`,
			want: `["pop","rock"]`,
		},
		{
			name: "braces inside strings",
			raw:  `{"lyrics":"la {la} \"la\"","tags":["pop"]} trailing`,
			want: `{"lyrics":"la {la} \"la\"","tags":["pop"]}`,
		},
		{
			name: "nested objects",
			raw:  `note {"a":{"b":[1,2]},"c":"d"} note`,
			want: `{"a":{"b":[1,2]},"c":"d"}`,
		},
		{
			name:    "no json",
			raw:     "sorry, I can't help with that",
			wantErr: true,
		},
		{
			name:    "unbalanced",
			raw:     `{"a":1`,
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ExtractJSON(tt.raw)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("ExtractJSON() err = nil; want error")
				}
				return
			}
			if err != nil {
				t.Fatalf("ExtractJSON() err = %v; want nil", err)
			}
			if got != tt.want {
				t.Fatalf("ExtractJSON() = %q; want %q", got, tt.want)
			}
		})
	}
}

type fakeLLM struct {
	response string
	err      error
	prompt   string
}

func (f *fakeLLM) ChatCompletion(ctx context.Context, message string) (string, error) {
	f.prompt = message
	return f.response, f.err
}

func TestGenerate(t *testing.T) {
	valid := `{"title":"Night Drive","lyrics":"[Verse]\nline one\nline two\nline three\n[Chorus]\nline four","tags":["synthwave","pop","electronic"]}`
	tests := []struct {
		name      string
		idea      string
		response  string
		llmErr    error
		wantErr   bool
		wantField string
	}{
		{
			name:     "valid",
			idea:     "a night drive",
			response: "Here you go!\n" + valid,
		},
		{
			name:      "missing tags",
			idea:      "a night drive",
			response:  `{"title":"X","lyrics":"a\nb\nc\nd\ne"}`,
			wantErr:   true,
			wantField: "tags",
		},
		{
			name:      "short lyrics",
			idea:      "a night drive",
			response:  `{"title":"X","lyrics":"a\nb\nc","tags":["pop"]}`,
			wantErr:   true,
			wantField: "lyrics",
		},
		{
			name:      "missing title",
			idea:      "a night drive",
			response:  `{"lyrics":"a\nb\nc\nd\ne","tags":["pop"]}`,
			wantErr:   true,
			wantField: "title",
		},
		{
			name:      "tags not strings",
			idea:      "a night drive",
			response:  `{"title":"X","lyrics":"a\nb\nc\nd\ne","tags":[1,2,3]}`,
			wantErr:   true,
			wantField: "json",
		},
		{
			name:     "no json in response",
			idea:     "a night drive",
			response: "I'm sorry, I can't do that.",
			wantErr:  true,
		},
		{
			name:    "empty idea",
			idea:    "   ",
			wantErr: true,
		},
		{
			name:    "llm error",
			idea:    "a night drive",
			llmErr:  errors.New("rate limited"),
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			llm := &fakeLLM{response: tt.response, err: tt.llmErr}
			got, err := New(llm).Generate(context.Background(), tt.idea)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("Generate() err = nil; want error")
				}
				if got != nil {
					t.Fatalf("Generate() = %+v; want nil on error", got)
				}
				if tt.wantField != "" {
					var vErr *ValidationError
					if !errors.As(err, &vErr) {
						t.Fatalf("Generate() err = %T (%v); want *ValidationError", err, err)
					}
					if vErr.Field != tt.wantField {
						t.Fatalf("Generate() field = %q; want %q", vErr.Field, tt.wantField)
					}
				}
				return
			}
			if err != nil {
				t.Fatalf("Generate() err = %v; want nil", err)
			}
			if got.Title != "Night Drive" {
				t.Fatalf("Generate() title = %q; want %q", got.Title, "Night Drive")
			}
			if len(got.Tags) != 3 {
				t.Fatalf("Generate() tags = %v; want 3 tags", got.Tags)
			}
		})
	}
}

func TestGenerateEmbedsIdeaInPrompt(t *testing.T) {
	llm := &fakeLLM{response: `{"title":"X","lyrics":"a\nb\nc\nd\ne","tags":["pop"]}`}
	if _, err := New(llm).Generate(context.Background(), "a song about tides"); err != nil {
		t.Fatalf("Generate() err = %v; want nil", err)
	}
	if want := "a song about tides"; !strings.Contains(llm.prompt, want) {
		t.Fatalf("Generate() prompt = %q; want it to contain %q", llm.prompt, want)
	}
}
