package songsmith

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"time"

	"github.com/altzarra/songsmith/pkg/metadata"
	"github.com/altzarra/songsmith/pkg/openai"
	"github.com/altzarra/songsmith/pkg/songapi"
	"github.com/altzarra/songsmith/pkg/sound"
)

type Config struct {
	Key          string
	Host         string
	Proxy        string
	Wait         time.Duration
	PollInterval time.Duration
	MaxWait      time.Duration
	MaxDuration  time.Duration
	Debug        bool
	Dummy        bool

	OpenAIKey   string
	OpenAIModel string
}

// GenerateSong generates a song given a prompt and waits for the result.
func GenerateSong(ctx context.Context, cfg *Config, req *songapi.GenerateRequest) (*songapi.Song, error) {
	httpClient, err := newHTTPClient(cfg.Proxy)
	if err != nil {
		return nil, err
	}
	client, err := songapi.New(&songapi.Config{
		Key:          cfg.Key,
		Host:         cfg.Host,
		Wait:         cfg.Wait,
		PollInterval: cfg.PollInterval,
		MaxWait:      cfg.MaxWait,
		MaxDuration:  cfg.MaxDuration,
		Debug:        cfg.Debug,
		Dummy:        cfg.Dummy,
		Client:       httpClient,
		Resolver:     sound.NewResolver(httpClient),
	})
	if err != nil {
		return nil, fmt.Errorf("couldn't create songapi client: %w", err)
	}
	song, err := client.Generate(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("couldn't generate song: %w", err)
	}
	log.Println("job:", song.JobID)
	log.Println("music:", song.MusicID)
	log.Println("title:", song.Title)
	log.Println("url:", song.AudioURL)
	log.Println("duration:", song.Duration)
	return song, nil
}

// GenerateMetadata generates structured song metadata from a short idea.
func GenerateMetadata(ctx context.Context, cfg *Config, idea string) (*metadata.Metadata, error) {
	httpClient, err := newHTTPClient(cfg.Proxy)
	if err != nil {
		return nil, err
	}
	llm, err := openai.New(&openai.Config{
		Token:  cfg.OpenAIKey,
		Model:  cfg.OpenAIModel,
		Debug:  cfg.Debug,
		Client: httpClient,
	})
	if err != nil {
		return nil, fmt.Errorf("couldn't create openai client: %w", err)
	}
	md, err := metadata.New(llm).Generate(ctx, idea)
	if err != nil {
		return nil, fmt.Errorf("couldn't generate metadata: %w", err)
	}
	return md, nil
}

func newHTTPClient(proxy string) (*http.Client, error) {
	httpClient := &http.Client{
		Timeout: 2 * time.Minute,
	}
	if proxy != "" {
		u, err := url.Parse(proxy)
		if err != nil {
			return nil, fmt.Errorf("invalid proxy URL: %w", err)
		}
		httpClient.Transport = &http.Transport{
			Proxy: http.ProxyURL(u),
		}
	}
	return httpClient, nil
}
