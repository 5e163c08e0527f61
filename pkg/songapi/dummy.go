package songapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
)

// dummyTransport answers submit and status requests with synthetic data and
// instant completion. It lets the rest of the pipeline run without touching
// the network.
type dummyTransport struct{}

func newDummyTransport() http.RoundTripper {
	return &dummyTransport{}
}

func (t *dummyTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	switch {
	case req.Method == "POST" && strings.HasSuffix(req.URL.Path, "/generate"):
		return jsonResponse(req, http.StatusOK, submitResponse{
			JobID: ulid.Make().String(),
		})
	case req.Method == "GET" && strings.HasSuffix(req.URL.Path, "/status"):
		jobID := req.URL.Query().Get("jobId")
		return jsonResponse(req, http.StatusOK, statusResponse{
			JobID:    jobID,
			Status:   string(StateSucceeded),
			Progress: 100,
			Data: &statusData{
				Musics: []Music{
					{
						MusicID:  ulid.Make().String(),
						Title:    "Dummy song",
						AudioURL: fmt.Sprintf("https://dummy.invalid/%s.mp3", jobID),
						Duration: 180,
					},
				},
			},
		})
	default:
		return jsonResponse(req, http.StatusNotFound, map[string]string{"error": "not found"})
	}
}

func jsonResponse(req *http.Request, status int, v any) (*http.Response, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return &http.Response{
		StatusCode: status,
		Header:     http.Header{"Content-Type": []string{"application/json"}},
		Body:       io.NopCloser(bytes.NewReader(b)),
		Request:    req,
	}, nil
}

// fixedResolver reports the same duration for every audio URL.
type fixedResolver time.Duration

func (r fixedResolver) Resolve(ctx context.Context, url string) (time.Duration, error) {
	return time.Duration(r), nil
}
