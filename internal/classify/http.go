package classify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/sortacle/sortacle/internal/camera"
	"github.com/sortacle/sortacle/internal/httputil"
	"github.com/sortacle/sortacle/internal/waste"
)

// DefaultEndpoint is used when no endpoint is configured. Override with the
// CLOUD_INFERENCE_URL environment variable or the constructor argument.
const DefaultEndpoint = "http://localhost:8000"

// HTTPClassifier sends frames to the remote inference service as multipart
// JPEG uploads and decodes the detection response.
type HTTPClassifier struct {
	endpoint string
	client   httputil.HTTPClient
	timeout  time.Duration
}

// NewHTTPClassifier builds a classifier for the given endpoint. An empty
// endpoint falls back to CLOUD_INFERENCE_URL, then DefaultEndpoint.
func NewHTTPClassifier(endpoint string, timeout time.Duration) *HTTPClassifier {
	if endpoint == "" {
		endpoint = os.Getenv("CLOUD_INFERENCE_URL")
	}
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	return &HTTPClassifier{
		endpoint: endpoint,
		client:   httputil.NewStandardClient(nil),
		timeout:  timeout,
	}
}

// SetClient swaps the underlying HTTP client, primarily so tests can
// inject a httputil.MockHTTPClient.
func (c *HTTPClassifier) SetClient(client httputil.HTTPClient) {
	c.client = client
}

// inferResponse mirrors the service's wire format.
type inferResponse struct {
	Detections []struct {
		BBox       []float64 `json:"bbox"`
		Label      string    `json:"label"`
		Confidence float64   `json:"confidence"`
	} `json:"detections"`
	InferenceTimeMs float64 `json:"inference_time_ms"`
}

// Classify uploads one encoded frame and returns the parsed result. The
// effective deadline is the tighter of ctx and the configured timeout.
func (c *HTTPClassifier) Classify(ctx context.Context, frame *camera.Frame) (*waste.ClassificationResult, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", "frame.jpg")
	if err != nil {
		return nil, fmt.Errorf("%w: building upload: %v", ErrProtocol, err)
	}
	if _, err := part.Write(frame.Data); err != nil {
		return nil, fmt.Errorf("%w: building upload: %v", ErrProtocol, err)
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("%w: building upload: %v", ErrProtocol, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+"/infer", &body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProtocol, err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, classifyTransportError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("%w: status %d", ErrProtocol, resp.StatusCode)
	}

	var decoded inferResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("%w: decoding response: %v", ErrProtocol, err)
	}

	result := &waste.ClassificationResult{
		Source:          waste.SourceRemote,
		InferenceTimeMs: decoded.InferenceTimeMs,
	}
	for _, d := range decoded.Detections {
		if len(d.BBox) != 4 {
			return nil, fmt.Errorf("%w: detection %q has %d bbox coordinates", ErrProtocol, d.Label, len(d.BBox))
		}
		if d.Confidence < 0 || d.Confidence > 1 {
			return nil, fmt.Errorf("%w: detection %q has confidence %v outside [0,1]", ErrProtocol, d.Label, d.Confidence)
		}
		if d.BBox[0] >= d.BBox[2] || d.BBox[1] >= d.BBox[3] {
			return nil, fmt.Errorf("%w: detection %q has degenerate bbox %v", ErrProtocol, d.Label, d.BBox)
		}
		result.Detections = append(result.Detections, waste.Detection{
			Label:      d.Label,
			Confidence: d.Confidence,
			BBox:       [4]float64{d.BBox[0], d.BBox[1], d.BBox[2], d.BBox[3]},
		})
	}
	return result, nil
}

// Ping checks whether the inference service is reachable.
func (c *HTTPClassifier) Ping(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint+"/", nil)
	if err != nil {
		return false
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

// classifyTransportError maps an http transport failure onto the error
// taxonomy: deadline expiry is a timeout, anything else a connectivity
// failure.
func classifyTransportError(err error) error {
	var uerr *url.Error
	if errors.As(err, &uerr) && uerr.Timeout() {
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	}
	return fmt.Errorf("%w: %v", ErrUnreachable, err)
}
