package metadata

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/altzarra/songsmith/pkg/metadata"
	"github.com/altzarra/songsmith/pkg/openai"
)

type Config struct {
	Debug bool
	Proxy string

	Key   string
	Model string
	Host  string

	Idea   string
	Input  string
	Output string
	Limit  int
}

// Run generates song metadata for one idea or for each line of an input file.
func Run(ctx context.Context, cfg *Config) error {
	var count int
	log.Println("metadata: started")
	defer func() {
		log.Printf("metadata: ended (%d)\n", count)
	}()

	debug := func(format string, args ...interface{}) {
		if !cfg.Debug {
			return
		}
		format += "\n"
		log.Printf(format, args...)
	}

	var ideas []string
	switch {
	case cfg.Idea != "":
		ideas = []string{cfg.Idea}
	case cfg.Input != "":
		b, err := os.ReadFile(cfg.Input)
		if err != nil {
			return fmt.Errorf("metadata: couldn't read input file: %w", err)
		}
		for _, line := range strings.Split(string(b), "\n") {
			line = strings.TrimSpace(line)
			if line == "" {
				continue
			}
			ideas = append(ideas, line)
		}
	default:
		return errors.New("metadata: idea or input file is required")
	}

	httpClient := &http.Client{
		Timeout: 2 * time.Minute,
	}
	if cfg.Proxy != "" {
		u, err := url.Parse(cfg.Proxy)
		if err != nil {
			return fmt.Errorf("invalid proxy URL: %w", err)
		}
		httpClient.Transport = &http.Transport{
			Proxy: http.ProxyURL(u),
		}
	}
	llm, err := openai.New(&openai.Config{
		Token:  cfg.Key,
		Model:  cfg.Model,
		Host:   cfg.Host,
		Debug:  cfg.Debug,
		Client: httpClient,
	})
	if err != nil {
		return fmt.Errorf("metadata: couldn't create openai client: %w", err)
	}
	generator := metadata.New(llm)

	var out *os.File
	if cfg.Output != "" {
		out, err = os.OpenFile(cfg.Output, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			return fmt.Errorf("metadata: couldn't open output file: %w", err)
		}
		defer out.Close()
	} else {
		out = os.Stdout
	}

	for _, idea := range ideas {
		if cfg.Limit > 0 && count >= cfg.Limit {
			break
		}
		debug("metadata: generating %q", idea)
		md, err := generator.Generate(ctx, idea)
		if err != nil {
			return fmt.Errorf("metadata: couldn't generate metadata for %q: %w", idea, err)
		}
		js, err := json.Marshal(md)
		if err != nil {
			return fmt.Errorf("metadata: couldn't marshal metadata: %w", err)
		}
		if _, err := fmt.Fprintf(out, "%s\n", js); err != nil {
			return fmt.Errorf("metadata: couldn't write output: %w", err)
		}
		count++
	}
	return nil
}
