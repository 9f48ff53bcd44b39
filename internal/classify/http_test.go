package classify

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/sortacle/sortacle/internal/camera"
	"github.com/sortacle/sortacle/internal/httputil"
	"github.com/sortacle/sortacle/internal/waste"
)

func testFrame() *camera.Frame {
	return camera.NewFrame([]byte("not really a jpeg"))
}

func TestHTTPClassifier_Classify(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/infer" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		if r.Method != http.MethodPost {
			t.Errorf("unexpected method %q", r.Method)
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("request was not multipart: %v", err)
		}
		if _, _, err := r.FormFile("file"); err != nil {
			t.Errorf("missing file part: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"detections": [
				{"bbox": [10, 20, 110, 220], "label": "bottle", "confidence": 0.91},
				{"bbox": [5, 5, 50, 50], "label": "straw", "confidence": 0.42}
			],
			"inference_time_ms": 83.5
		}`))
	}))
	defer srv.Close()

	c := NewHTTPClassifier(srv.URL, 5*time.Second)
	result, err := c.Classify(context.Background(), testFrame())
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}

	if result.Source != waste.SourceRemote {
		t.Errorf("Source = %q, want remote", result.Source)
	}
	if result.InferenceTimeMs != 83.5 {
		t.Errorf("InferenceTimeMs = %v, want 83.5", result.InferenceTimeMs)
	}
	if len(result.Detections) != 2 {
		t.Fatalf("got %d detections, want 2", len(result.Detections))
	}
	first := result.Detections[0]
	if first.Label != "bottle" || first.Confidence != 0.91 {
		t.Errorf("first detection = %+v", first)
	}
	if first.BBox != [4]float64{10, 20, 110, 220} {
		t.Errorf("first bbox = %v", first.BBox)
	}
}

func TestHTTPClassifier_Timeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
	}))
	defer srv.Close()
	defer close(release)

	c := NewHTTPClassifier(srv.URL, 50*time.Millisecond)
	_, err := c.Classify(context.Background(), testFrame())
	if !errors.Is(err, ErrTimeout) {
		t.Errorf("err = %v, want ErrTimeout", err)
	}
	if !Unavailable(err) {
		t.Error("timeout should count as unavailable")
	}
}

func TestHTTPClassifier_Unreachable(t *testing.T) {
	// Grab a port nothing is listening on.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	addr := srv.URL
	srv.Close()

	c := NewHTTPClassifier(addr, time.Second)
	_, err := c.Classify(context.Background(), testFrame())
	if !errors.Is(err, ErrUnreachable) {
		t.Errorf("err = %v, want ErrUnreachable", err)
	}
}

func TestHTTPClassifier_ProtocolErrors(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{
			name: "bad status",
			handler: func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "model exploded", http.StatusInternalServerError)
			},
		},
		{
			name: "bad json",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte("{not json"))
			},
		},
		{
			name: "bad bbox",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(`{"detections": [{"bbox": [1, 2], "label": "can", "confidence": 0.9}]}`))
			},
		},
		{
			name: "confidence above one",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(`{"detections": [{"bbox": [1, 2, 3, 4], "label": "can", "confidence": 1.5}]}`))
			},
		},
		{
			name: "negative confidence",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(`{"detections": [{"bbox": [1, 2, 3, 4], "label": "can", "confidence": -0.1}]}`))
			},
		},
		{
			name: "inverted bbox",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(`{"detections": [{"bbox": [5, 5, 1, 9], "label": "can", "confidence": 0.9}]}`))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(tt.handler)
			defer srv.Close()

			c := NewHTTPClassifier(srv.URL, time.Second)
			_, err := c.Classify(context.Background(), testFrame())
			if !errors.Is(err, ErrProtocol) {
				t.Errorf("err = %v, want ErrProtocol", err)
			}
		})
	}
}

func TestHTTPClassifier_Ping(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	c := NewHTTPClassifier(srv.URL, time.Second)
	if !c.Ping(context.Background()) {
		t.Error("Ping should succeed against a live server")
	}
	srv.Close()
	if c.Ping(context.Background()) {
		t.Error("Ping should fail against a closed server")
	}
}

func TestHTTPClassifier_InjectedClient(t *testing.T) {
	c := NewHTTPClassifier("http://sorter.invalid", time.Second)

	mock := httputil.NewMockHTTPClient()
	mock.AddResponse(http.StatusOK, `{"detections":[{"bbox":[1,2,3,4],"label":"can","confidence":0.91}],"inference_time_ms":12}`)
	c.SetClient(mock)

	result, err := c.Classify(context.Background(), testFrame())
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}
	if len(result.Detections) != 1 || result.Detections[0].Label != "can" {
		t.Fatalf("unexpected result: %+v", result)
	}
	if req := mock.GetRequest(0); req == nil || req.URL.Path != "/infer" {
		t.Errorf("request not recorded or wrong path: %+v", req)
	}

	mock.Reset()
	mock.DefaultError = context.DeadlineExceeded
	if _, err := c.Classify(context.Background(), testFrame()); !errors.Is(err, ErrTimeout) {
		t.Errorf("err = %v, want ErrTimeout", err)
	}
}
