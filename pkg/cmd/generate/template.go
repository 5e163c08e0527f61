package generate

import (
	"fmt"
	"math/rand"
	"os"
	"path/filepath"

	"github.com/gocarina/gocsv"
	"gopkg.in/yaml.v3"
)

// Template is one weighted generation candidate, loaded from a csv or yaml
// input file.
type Template struct {
	Weight int    `csv:"weight" yaml:"weight,omitempty"`
	Prompt string `csv:"prompt" yaml:"prompt"`
	Style  string `csv:"style" yaml:"style,omitempty"`
	Title  string `csv:"title" yaml:"title,omitempty"`
	Tags   string `csv:"tags" yaml:"tags,omitempty"`
	Lyrics string `csv:"lyrics" yaml:"lyrics,omitempty"`
	Model  string `csv:"model" yaml:"model,omitempty"`
}

func (t Template) String() string {
	return fmt.Sprintf("{p: %s, s: %s, t: %s}", t.Prompt, t.Style, t.Tags)
}

func loadTemplates(path string) ([]Template, error) {
	if path == "" {
		return nil, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("couldn't read input file: %w", err)
	}
	var templates []Template
	switch ext := filepath.Ext(path); ext {
	case ".csv":
		if err := gocsv.UnmarshalBytes(b, &templates); err != nil {
			return nil, fmt.Errorf("couldn't parse csv input: %w", err)
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(b, &templates); err != nil {
			return nil, fmt.Errorf("couldn't parse yaml input: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported input extension: %s", ext)
	}
	return templates, nil
}

// nextTemplate picks a weighted random template. A zero weight counts as one.
func nextTemplate(templates []Template) Template {
	if len(templates) == 0 {
		return Template{}
	}
	var opts []int
	for i, t := range templates {
		weight := t.Weight
		if weight <= 0 {
			weight = 1
		}
		for j := 0; j < weight; j++ {
			opts = append(opts, i)
		}
	}
	return templates[opts[rand.Intn(len(opts))]]
}
