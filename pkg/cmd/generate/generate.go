package generate

import (
	"context"
	"fmt"
	"log"
	"math/rand"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/altzarra/songsmith/pkg/songapi"
	"github.com/altzarra/songsmith/pkg/sound"
	"github.com/altzarra/songsmith/pkg/storage"
	"github.com/oklog/ulid/v2"
)

type Config struct {
	Debug       bool
	DBType      string
	DBConn      string
	Timeout     time.Duration
	Concurrency int
	WaitMin     time.Duration
	WaitMax     time.Duration
	Limit       int
	Proxy       string

	Account string
	Key     string
	Host    string
	Dummy   bool

	Input  string
	Prompt string
	Style  string
	Title  string
	Tags   string
	Lyrics string
	Model  string
	Notes  string

	PollInterval time.Duration
	MaxWait      time.Duration
	MaxDuration  time.Duration
}

// Run launches the song generation process.
func Run(ctx context.Context, cfg *Config) error {
	var iteration int
	log.Println("generate: process started")
	defer func() {
		log.Printf("generate: process ended (%d)\n", iteration)
	}()

	debug := func(format string, args ...interface{}) {
		if !cfg.Debug {
			return
		}
		format += "\n"
		log.Printf(format, args...)
	}

	store, err := storage.New(cfg.DBType, cfg.DBConn, cfg.Debug)
	if err != nil {
		return fmt.Errorf("generate: couldn't create orm store: %w", err)
	}
	if err := store.Start(ctx); err != nil {
		return fmt.Errorf("generate: couldn't start orm store: %w", err)
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

	// Take the api key from the database when it isn't given explicitly.
	key := cfg.Key
	if key == "" && !cfg.Dummy {
		account := cfg.Account
		if account == "" {
			account = "default"
		}
		key, err = store.NewKeyStore("songapi", account).GetKey(ctx)
		if err != nil {
			return fmt.Errorf("generate: couldn't get api key: %w", err)
		}
	}

	generator, err := songapi.New(&songapi.Config{
		Key:          key,
		Host:         cfg.Host,
		Wait:         4 * time.Second,
		PollInterval: cfg.PollInterval,
		MaxWait:      cfg.MaxWait,
		MaxDuration:  cfg.MaxDuration,
		Debug:        cfg.Debug,
		Dummy:        cfg.Dummy,
		Client:       httpClient,
		Resolver:     sound.NewResolver(httpClient),
	})
	if err != nil {
		return fmt.Errorf("generate: couldn't create songapi client: %w", err)
	}

	// Load generation templates
	templates, err := loadTemplates(cfg.Input)
	if err != nil {
		return fmt.Errorf("generate: %w", err)
	}
	if cfg.Prompt == "" && len(templates) == 0 {
		return fmt.Errorf("generate: no prompt and no input templates")
	}

	// Print time stats
	start := time.Now()
	defer func() {
		if iteration == 0 {
			return
		}
		total := time.Since(start)
		log.Printf("generate: total time %s, average time %s\n", total, total/time.Duration(iteration))
	}()

	nErr := 0
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 24 * time.Hour
	}
	ticker := time.NewTicker(timeout)
	last := time.Now()
	defer ticker.Stop()

	// Concurrency settings
	concurrency := cfg.Concurrency
	if concurrency == 0 {
		concurrency = 1
	}
	errC := make(chan error, concurrency)
	defer close(errC)
	for i := 0; i < concurrency; i++ {
		errC <- nil
	}
	var wg sync.WaitGroup
	defer wg.Wait()

	for {
		select {
		case <-ctx.Done():
			return fmt.Errorf("generate: %w", ctx.Err())
		case <-ticker.C:
			return nil
		case err := <-errC:
			if err != nil {
				nErr += 1
			} else {
				nErr = 0
			}

			// Check exit conditions
			if nErr > 10 {
				return fmt.Errorf("generate: too many consecutive errors: %w", err)
			}
			if cfg.Limit > 0 && iteration >= cfg.Limit {
				return nil
			}

			iteration++
			if time.Since(last) > 60*time.Minute {
				last = time.Now()
				log.Printf("generate: iteration %d\n", iteration)
			}

			// Wait for a random time.
			wait := 1 * time.Second
			if iteration > 1 && cfg.WaitMax > cfg.WaitMin {
				wait = time.Duration(rand.Int63n(int64(cfg.WaitMax-cfg.WaitMin))) + cfg.WaitMin
			}
			select {
			case <-ctx.Done():
				return fmt.Errorf("generate: %w", ctx.Err())
			case <-time.After(wait):
			}

			// Get a template
			tmpl := Template{
				Prompt: cfg.Prompt,
				Style:  cfg.Style,
				Title:  cfg.Title,
				Tags:   cfg.Tags,
				Lyrics: cfg.Lyrics,
				Model:  cfg.Model,
			}
			if tmpl.Prompt == "" {
				tmpl = nextTemplate(templates)
			}

			// Launch generate in a goroutine
			wg.Add(1)
			go func() {
				defer wg.Done()
				debug("generate: start %s", tmpl)
				err := generate(ctx, generator, store, tmpl, cfg.Notes)
				if err != nil {
					log.Println(err)
				}
				debug("generate: end %s", tmpl)
				errC <- err
			}()
		}
	}
}

func generate(ctx context.Context, generator *songapi.Client, store *storage.Store, t Template, notes string) error {
	var tags []string
	if t.Tags != "" {
		tags = strings.Split(t.Tags, ",")
	}
	song, err := generator.Generate(ctx, &songapi.GenerateRequest{
		Prompt:       t.Prompt,
		Style:        t.Style,
		Title:        t.Title,
		Tags:         tags,
		Lyrics:       t.Lyrics,
		ModelVersion: t.Model,
	})
	if err != nil {
		return fmt.Errorf("generate: couldn't generate song %s: %w", t, err)
	}
	if err := store.SetGeneration(ctx, &storage.Generation{
		ID:       ulid.Make().String(),
		JobID:    song.JobID,
		MusicID:  song.MusicID,
		Title:    song.Title,
		Audio:    song.AudioURL,
		Prompt:   t.Prompt,
		Style:    t.Style,
		Tags:     t.Tags,
		Model:    t.Model,
		Notes:    notes,
		Duration: float32(song.Duration.Seconds()),
	}); err != nil {
		return fmt.Errorf("generate: couldn't save generation to database: %w", err)
	}
	return nil
}
