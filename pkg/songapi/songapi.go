package songapi

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	defaultModelVersion = "verse-v3"
	defaultTitle        = "Untitled"
)

var defaultTags = []string{"pop"}

// State is a job status value as reported by the remote service.
type State string

const (
	StateQueued     State = "QUEUED"
	StateInProgress State = "IN_PROGRESS"
	StateSucceeded  State = "SUCCEEDED"
	StateFailed     State = "FAILED"
)

// Terminal reports whether no further polling can change the state. Unknown
// values introduced by the remote service are treated as non-terminal.
func (s State) Terminal() bool {
	return s == StateSucceeded || s == StateFailed
}

// GenerateRequest holds the parameters of one generation job.
type GenerateRequest struct {
	Prompt       string
	Style        string
	Title        string
	Tags         []string
	Lyrics       string
	ModelVersion string
}

type submitRequest struct {
	Prompt       string `json:"prompt"`
	Style        string `json:"style,omitempty"`
	Title        string `json:"title"`
	Tags         string `json:"tags"`
	Lyrics       string `json:"lyrics,omitempty"`
	ModelVersion string `json:"modelVersion"`
}

type submitResponse struct {
	JobID string `json:"jobId"`
}

type statusResponse struct {
	JobID    string      `json:"jobId"`
	Status   string      `json:"status"`
	Progress int         `json:"progress"`
	Data     *statusData `json:"data"`
}

type statusData struct {
	Musics       []Music `json:"musics"`
	ErrorMessage string  `json:"errorMessage"`
}

// Music is one generated track inside a job status payload.
type Music struct {
	MusicID  string  `json:"musicId"`
	Title    string  `json:"title"`
	AudioURL string  `json:"audioUrl"`
	Duration float32 `json:"duration"`
}

// JobStatus is the result of one poll. It is superseded by the next poll and
// never cached.
type JobStatus struct {
	JobID        string
	State        State
	Progress     int
	Musics       []Music
	ErrorMessage string
}

// Song is the normalized result of a succeeded job.
type Song struct {
	JobID    string
	MusicID  string
	Title    string
	AudioURL string
	Duration time.Duration
}

// Submit sends a generation request and returns the opaque job id.
func (c *Client) Submit(ctx context.Context, req *GenerateRequest) (string, error) {
	if strings.TrimSpace(req.Prompt) == "" {
		return "", errors.New("songapi: prompt is empty")
	}
	title := req.Title
	if title == "" {
		title = defaultTitle
	}
	tags := req.Tags
	if len(tags) == 0 {
		tags = defaultTags
	}
	model := req.ModelVersion
	if model == "" {
		model = defaultModelVersion
	}
	in := &submitRequest{
		Prompt: req.Prompt,
		Style:  req.Style,
		Title:  title,
		// The remote protocol expects a flat comma-separated string.
		Tags:         strings.Join(tags, ","),
		Lyrics:       req.Lyrics,
		ModelVersion: model,
	}
	var resp submitResponse
	body, err := c.do(ctx, "POST", "api/v1/generate", in, &resp)
	if err != nil {
		return "", &IntegrationError{Op: "submit", Body: string(body), Err: err}
	}
	if resp.JobID == "" {
		return "", &IntegrationError{Op: "submit", Body: string(body), Err: errors.New("response is missing jobId")}
	}
	return resp.JobID, nil
}

// Status queries the current status of a job.
func (c *Client) Status(ctx context.Context, jobID string) (*JobStatus, error) {
	if jobID == "" {
		return nil, errors.New("songapi: job id is empty")
	}
	var resp statusResponse
	u := fmt.Sprintf("api/v1/status?jobId=%s", jobID)
	body, err := c.do(ctx, "GET", u, nil, &resp)
	if err != nil {
		return nil, &IntegrationError{Op: "status", Body: string(body), Err: err}
	}
	status := &JobStatus{
		JobID:    jobID,
		State:    State(resp.Status),
		Progress: resp.Progress,
	}
	if resp.Data != nil {
		status.Musics = resp.Data.Musics
		status.ErrorMessage = resp.Data.ErrorMessage
	}
	return status, nil
}

// Wait polls the job until it reaches a terminal state. It returns nil on
// success and a JobError carrying the remote message on failure. A zero
// interval falls back to the configured poll interval. Transport errors abort
// the wait, they are not retried here.
func (c *Client) Wait(ctx context.Context, jobID string, interval time.Duration) error {
	if interval == 0 {
		interval = c.pollInterval
	}
	var deadline time.Time
	if c.maxWait > 0 {
		deadline = time.Now().Add(c.maxWait)
	}
	for {
		status, err := c.Status(ctx, jobID)
		if err != nil {
			return err
		}
		switch status.State {
		case StateSucceeded:
			return nil
		case StateFailed:
			msg := status.ErrorMessage
			if msg == "" {
				msg = "generation failed"
			}
			return &JobError{JobID: jobID, Message: msg}
		}
		c.log("songapi: job %s %s (%d%%)", jobID, status.State, status.Progress)
		if !deadline.IsZero() && time.Now().After(deadline) {
			return fmt.Errorf("songapi: job %s: %w", jobID, ErrWaitTimeout)
		}
		t := time.NewTimer(interval)
		select {
		case <-ctx.Done():
			t.Stop()
			return fmt.Errorf("songapi: %w", ctx.Err())
		case <-t.C:
		}
	}
}

// Song re-derives the normalized result from a fresh status check. It fails
// when the job hasn't succeeded and never returns a partial result.
func (c *Client) Song(ctx context.Context, jobID string) (*Song, error) {
	status, err := c.Status(ctx, jobID)
	if err != nil {
		return nil, err
	}
	switch status.State {
	case StateSucceeded:
	case StateFailed:
		msg := status.ErrorMessage
		if msg == "" {
			msg = "generation failed"
		}
		return nil, &JobError{JobID: jobID, Message: msg}
	default:
		return nil, fmt.Errorf("songapi: job %s is %s: %w", jobID, status.State, ErrNotFinished)
	}
	if len(status.Musics) == 0 {
		return nil, fmt.Errorf("songapi: job %s has no musics: %w", jobID, ErrIncompleteResult)
	}
	music := status.Musics[0]
	if music.AudioURL == "" {
		return nil, fmt.Errorf("songapi: job %s has no audio url: %w", jobID, ErrIncompleteResult)
	}
	duration, err := c.resolveDuration(ctx, music, time.Duration(music.Duration*float32(time.Second)))
	if err != nil {
		return nil, fmt.Errorf("songapi: couldn't resolve duration of %s: %w", music.AudioURL, err)
	}
	// The cap only clamps the reported value, the audio itself is untouched.
	if c.maxDuration > 0 && duration > c.maxDuration {
		duration = c.maxDuration
	}
	return &Song{
		JobID:    jobID,
		MusicID:  music.MusicID,
		Title:    music.Title,
		AudioURL: music.AudioURL,
		Duration: duration,
	}, nil
}

func (c *Client) resolveDuration(ctx context.Context, music Music, reported time.Duration) (time.Duration, error) {
	if c.resolver == nil {
		return reported, nil
	}
	return c.resolver.Resolve(ctx, music.AudioURL)
}

// Generate submits a request, waits for completion and returns the song.
func (c *Client) Generate(ctx context.Context, req *GenerateRequest) (*Song, error) {
	jobID, err := c.Submit(ctx, req)
	if err != nil {
		return nil, err
	}
	c.log("songapi: job %s submitted", jobID)
	if err := c.Wait(ctx, jobID, 0); err != nil {
		return nil, err
	}
	return c.Song(ctx, jobID)
}
