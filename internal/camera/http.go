package camera

import (
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/sortacle/sortacle/internal/monitoring"
)

// HTTPCamera implements FrameSource against an IP camera's JPEG snapshot
// endpoint. Each Capture issues one GET and wraps the body as a frame.
type HTTPCamera struct {
	url    string
	client *http.Client

	mu       sync.Mutex
	released bool
}

// NewHTTPCamera builds a snapshot camera for the given URL. The timeout
// bounds a single capture; a slow camera costs one frame, not the loop.
func NewHTTPCamera(url string, timeout time.Duration) *HTTPCamera {
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	return &HTTPCamera{
		url:    url,
		client: &http.Client{Timeout: timeout},
	}
}

// Capture fetches one snapshot. Any transport or status failure yields
// nil, matching the FrameSource contract for transient failures.
func (c *HTTPCamera) Capture() *Frame {
	c.mu.Lock()
	released := c.released
	c.mu.Unlock()
	if released {
		return nil
	}

	resp, err := c.client.Get(c.url)
	if err != nil {
		monitoring.Logf("snapshot capture failed: %v", err)
		return nil
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		monitoring.Logf("snapshot capture returned status %d", resp.StatusCode)
		return nil
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil || len(data) == 0 {
		monitoring.Logf("snapshot body read failed: %v", err)
		return nil
	}
	return NewFrame(data)
}

func (c *HTTPCamera) Release() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.released = true
	c.client.CloseIdleConnections()
	return nil
}
