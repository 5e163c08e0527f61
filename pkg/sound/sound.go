package sound

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	mp3 "github.com/hajimehoshi/go-mp3"
)

// bytesPerFrame is the decoded frame size: 2 channels of 16-bit samples.
const bytesPerFrame = 4

// Resolver measures the playable duration of mp3 audio. The remote service
// doesn't report durations reliably, so the audio is fetched and decoded.
type Resolver struct {
	client *http.Client
}

func NewResolver(client *http.Client) *Resolver {
	if client == nil {
		client = &http.Client{
			Timeout: 2 * time.Minute,
		}
	}
	return &Resolver{
		client: client,
	}
}

// Resolve returns the duration of the audio at the given URL or local path.
func (r *Resolver) Resolve(ctx context.Context, u string) (time.Duration, error) {
	var b []byte
	if strings.HasPrefix(u, "http") {
		var err error
		b, err = r.download(ctx, u)
		if err != nil {
			return 0, err
		}
	} else {
		var err error
		b, err = os.ReadFile(u)
		if err != nil {
			return 0, fmt.Errorf("sound: couldn't read song: %w", err)
		}
	}
	return Duration(b)
}

func (r *Resolver) download(ctx context.Context, u string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("sound: couldn't create request: %w", err)
	}
	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("sound: couldn't download song: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("sound: couldn't download song: status %d", resp.StatusCode)
	}
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("sound: couldn't read song: %w", err)
	}
	return b, nil
}

// Duration decodes mp3 data and returns its playable duration.
func Duration(b []byte) (time.Duration, error) {
	decoder, err := mp3.NewDecoder(bytes.NewReader(b))
	if err != nil {
		return 0, fmt.Errorf("sound: couldn't create decoder: %w", err)
	}
	length := decoder.Length()
	if length < 0 {
		// Non-seekable source, count the decoded bytes instead.
		n, err := io.Copy(io.Discard, decoder)
		if err != nil {
			return 0, fmt.Errorf("sound: couldn't read samples: %w", err)
		}
		length = n
	}
	samples := length / bytesPerFrame
	return time.Duration(float64(samples) / float64(decoder.SampleRate()) * float64(time.Second)), nil
}
