package songapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"
)

func newTestClient(t *testing.T, cfg *Config, handler http.Handler) (*Client, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	if cfg == nil {
		cfg = &Config{}
	}
	cfg.Key = "test-key"
	cfg.Host = server.URL
	if cfg.Wait == 0 {
		cfg.Wait = time.Millisecond
	}
	if cfg.PollInterval == 0 {
		cfg.PollInterval = 10 * time.Millisecond
	}
	client, err := New(cfg)
	if err != nil {
		t.Fatalf("New() err = %v; want nil", err)
	}
	return client, server
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func TestNewMissingKey(t *testing.T) {
	if _, err := New(&Config{}); err == nil {
		t.Fatal("New() err = nil; want missing key error")
	}
	if _, err := New(&Config{Dummy: true}); err != nil {
		t.Fatalf("New(dummy) err = %v; want nil", err)
	}
}

func TestSubmit(t *testing.T) {
	tests := []struct {
		name    string
		prompt  string
		status  int
		body    any
		want    string
		wantErr bool
	}{
		{
			name:   "ok",
			prompt: "an upbeat song about rain",
			status: http.StatusOK,
			body:   map[string]string{"jobId": "job-1"},
			want:   "job-1",
		},
		{
			name:    "missing job id",
			prompt:  "an upbeat song about rain",
			status:  http.StatusOK,
			body:    map[string]string{"message": "accepted"},
			wantErr: true,
		},
		{
			name:    "server error",
			prompt:  "an upbeat song about rain",
			status:  http.StatusInternalServerError,
			body:    map[string]string{"error": "boom"},
			wantErr: true,
		},
		{
			name:    "empty prompt",
			prompt:  "",
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotAuth, gotTags string
			client, _ := newTestClient(t, nil, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				gotAuth = r.Header.Get("Authorization")
				var in map[string]any
				_ = json.NewDecoder(r.Body).Decode(&in)
				gotTags, _ = in["tags"].(string)
				writeJSON(w, tt.status, tt.body)
			}))
			got, err := client.Submit(context.Background(), &GenerateRequest{
				Prompt: tt.prompt,
				Tags:   []string{"pop", "rock"},
			})
			if tt.wantErr {
				if err == nil {
					t.Fatalf("Submit() err = nil; want error")
				}
				return
			}
			if err != nil {
				t.Fatalf("Submit() err = %v; want nil", err)
			}
			if got != tt.want {
				t.Fatalf("Submit() = %v; want %v", got, tt.want)
			}
			if gotAuth != "Bearer test-key" {
				t.Fatalf("Submit() auth = %q; want bearer key", gotAuth)
			}
			if gotTags != "pop,rock" {
				t.Fatalf("Submit() tags = %q; want %q", gotTags, "pop,rock")
			}
		})
	}
}

func TestSubmitErrorEmbedsBody(t *testing.T) {
	client, _ := newTestClient(t, nil, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid style"})
	}))
	_, err := client.Submit(context.Background(), &GenerateRequest{Prompt: "p"})
	var intErr *IntegrationError
	if !errors.As(err, &intErr) {
		t.Fatalf("Submit() err = %T; want *IntegrationError", err)
	}
	if intErr.Op != "submit" {
		t.Fatalf("Submit() op = %q; want %q", intErr.Op, "submit")
	}
	if intErr.Body == "" || intErr.Err == nil {
		t.Fatalf("Submit() err = %v; want body and cause embedded", intErr)
	}
}

func statusScript(t *testing.T, responses []statusResponse) http.Handler {
	t.Helper()
	var lck sync.Mutex
	var i int
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		lck.Lock()
		resp := responses[i]
		if i < len(responses)-1 {
			i++
		}
		lck.Unlock()
		resp.JobID = r.URL.Query().Get("jobId")
		writeJSON(w, http.StatusOK, resp)
	})
}

func TestWait(t *testing.T) {
	tests := []struct {
		name      string
		responses []statusResponse
		wantErr   string
	}{
		{
			name: "queued then succeeded",
			responses: []statusResponse{
				{Status: "QUEUED"},
				{Status: "IN_PROGRESS", Progress: 50},
				{Status: "SUCCEEDED", Progress: 100},
			},
		},
		{
			name: "unknown status is not terminal",
			responses: []statusResponse{
				{Status: "WARMING_UP"},
				{Status: "SUCCEEDED"},
			},
		},
		{
			name: "failed with message",
			responses: []statusResponse{
				{Status: "QUEUED"},
				{Status: "FAILED", Data: &statusData{ErrorMessage: "content policy"}},
			},
			wantErr: "content policy",
		},
		{
			name: "failed without message",
			responses: []statusResponse{
				{Status: "FAILED"},
			},
			wantErr: "generation failed",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, _ := newTestClient(t, nil, statusScript(t, tt.responses))
			err := client.Wait(context.Background(), "job-1", 0)
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("Wait() err = %v; want nil", err)
				}
				return
			}
			var jobErr *JobError
			if !errors.As(err, &jobErr) {
				t.Fatalf("Wait() err = %T (%v); want *JobError", err, err)
			}
			if jobErr.Message != tt.wantErr {
				t.Fatalf("Wait() message = %q; want %q", jobErr.Message, tt.wantErr)
			}
		})
	}
}

func TestWaitTransportErrorAborts(t *testing.T) {
	var calls int
	client, _ := newTestClient(t, nil, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "boom"})
	}))
	err := client.Wait(context.Background(), "job-1", 0)
	var intErr *IntegrationError
	if !errors.As(err, &intErr) {
		t.Fatalf("Wait() err = %T (%v); want *IntegrationError", err, err)
	}
	if calls != 1 {
		t.Fatalf("Wait() calls = %d; want 1", calls)
	}
}

func TestWaitTimeout(t *testing.T) {
	client, _ := newTestClient(t, &Config{MaxWait: 25 * time.Millisecond}, statusScript(t, []statusResponse{
		{Status: "QUEUED"},
	}))
	err := client.Wait(context.Background(), "job-1", 0)
	if !errors.Is(err, ErrWaitTimeout) {
		t.Fatalf("Wait() err = %v; want ErrWaitTimeout", err)
	}
}

func TestWaitCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	client, _ := newTestClient(t, nil, statusScript(t, []statusResponse{
		{Status: "QUEUED"},
	}))
	go func() {
		time.Sleep(5 * time.Millisecond)
		cancel()
	}()
	err := client.Wait(ctx, "job-1", time.Second)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Wait() err = %v; want context.Canceled", err)
	}
}

func TestSong(t *testing.T) {
	succeeded := statusResponse{
		Status: "SUCCEEDED",
		Data: &statusData{
			Musics: []Music{
				{MusicID: "m-1", Title: "Rainfall", AudioURL: "https://cdn.invalid/m-1.mp3"},
			},
		},
	}
	tests := []struct {
		name         string
		response     statusResponse
		resolver     DurationResolver
		maxDuration  time.Duration
		wantDuration time.Duration
		wantErr      error
	}{
		{
			name:         "clamped to max duration",
			response:     succeeded,
			resolver:     fixedResolver(500 * time.Second),
			maxDuration:  300 * time.Second,
			wantDuration: 300 * time.Second,
		},
		{
			name:         "no max duration keeps resolved value",
			response:     succeeded,
			resolver:     fixedResolver(500 * time.Second),
			wantDuration: 500 * time.Second,
		},
		{
			name:     "queued is not finished",
			response: statusResponse{Status: "QUEUED"},
			wantErr:  ErrNotFinished,
		},
		{
			name:     "in progress is not finished",
			response: statusResponse{Status: "IN_PROGRESS"},
			wantErr:  ErrNotFinished,
		},
		{
			name:     "succeeded without musics",
			response: statusResponse{Status: "SUCCEEDED", Data: &statusData{}},
			wantErr:  ErrIncompleteResult,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, _ := newTestClient(t, &Config{
				Resolver:    tt.resolver,
				MaxDuration: tt.maxDuration,
			}, statusScript(t, []statusResponse{tt.response}))
			song, err := client.Song(context.Background(), "job-1")
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("Song() err = %v; want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Song() err = %v; want nil", err)
			}
			if song.Duration != tt.wantDuration {
				t.Fatalf("Song() duration = %v; want %v", song.Duration, tt.wantDuration)
			}
			if song.JobID != "job-1" || song.MusicID != "m-1" || song.Title != "Rainfall" {
				t.Fatalf("Song() = %+v; want normalized fields", song)
			}
		})
	}
}

func TestSongFailedJob(t *testing.T) {
	client, _ := newTestClient(t, nil, statusScript(t, []statusResponse{
		{Status: "FAILED", Data: &statusData{ErrorMessage: "no credits"}},
	}))
	_, err := client.Song(context.Background(), "job-1")
	var jobErr *JobError
	if !errors.As(err, &jobErr) {
		t.Fatalf("Song() err = %T (%v); want *JobError", err, err)
	}
	if jobErr.Message != "no credits" {
		t.Fatalf("Song() message = %q; want %q", jobErr.Message, "no credits")
	}
}

type countingRecorder struct {
	lck    sync.Mutex
	events []*Event
}

func (r *countingRecorder) Record(ctx context.Context, ev *Event) {
	r.lck.Lock()
	defer r.lck.Unlock()
	r.events = append(r.events, ev)
}

func TestRecorder(t *testing.T) {
	recorder := &countingRecorder{}
	client, _ := newTestClient(t, &Config{Recorder: recorder}, statusScript(t, []statusResponse{
		{Status: "SUCCEEDED"},
	}))
	if _, err := client.Status(context.Background(), "job-1"); err != nil {
		t.Fatalf("Status() err = %v; want nil", err)
	}
	if len(recorder.events) != 1 {
		t.Fatalf("Record() events = %d; want 1", len(recorder.events))
	}
	ev := recorder.events[0]
	if ev.Method != "GET" || ev.Status != http.StatusOK || len(ev.Response) == 0 {
		t.Fatalf("Record() event = %+v; want populated request/response pair", ev)
	}
}

func TestGenerateDummy(t *testing.T) {
	client, err := New(&Config{
		Dummy:        true,
		Wait:         time.Millisecond,
		PollInterval: time.Millisecond,
	})
	if err != nil {
		t.Fatalf("New() err = %v; want nil", err)
	}
	song, err := client.Generate(context.Background(), &GenerateRequest{Prompt: "test"})
	if err != nil {
		t.Fatalf("Generate() err = %v; want nil", err)
	}
	if song.JobID == "" || song.MusicID == "" || song.AudioURL == "" {
		t.Fatalf("Generate() = %+v; want synthetic song", song)
	}
	if song.Duration != 3*time.Minute {
		t.Fatalf("Generate() duration = %v; want %v", song.Duration, 3*time.Minute)
	}
}

func TestStateTerminal(t *testing.T) {
	tests := []struct {
		state State
		want  bool
	}{
		{StateQueued, false},
		{StateInProgress, false},
		{State("WARMING_UP"), false},
		{StateSucceeded, true},
		{StateFailed, true},
	}
	for _, tt := range tests {
		t.Run(string(tt.state), func(t *testing.T) {
			if got := tt.state.Terminal(); got != tt.want {
				t.Fatalf("Terminal(%s) = %v; want %v", tt.state, got, tt.want)
			}
		})
	}
}
