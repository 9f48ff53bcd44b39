package camera

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/sortacle/sortacle/internal/monitoring"
)

// FixtureCamera implements FrameSource by cycling through JPEG files in a
// directory. It backs dev mode, where the controller runs on a workstation
// with no sensor attached.
type FixtureCamera struct {
	mu       sync.Mutex
	paths    []string
	next     int
	released bool
}

// NewFixtureCamera scans dir for .jpg/.jpeg files. At least one fixture
// must be present; an empty directory is a construction error rather than
// a silent no-frame source.
func NewFixtureCamera(dir string) (*FixtureCamera, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read fixture directory: %w", err)
	}

	var paths []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(e.Name()))
		if ext == ".jpg" || ext == ".jpeg" {
			paths = append(paths, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(paths)

	if len(paths) == 0 {
		return nil, fmt.Errorf("no jpeg fixtures found in %s", dir)
	}
	return &FixtureCamera{paths: paths}, nil
}

// Capture reads the next fixture file. A read failure yields nil, matching
// the FrameSource contract for transient acquisition failures.
func (c *FixtureCamera) Capture() *Frame {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.released {
		return nil
	}

	path := c.paths[c.next%len(c.paths)]
	c.next++

	data, err := os.ReadFile(path)
	if err != nil {
		monitoring.Logf("fixture capture failed for %s: %v", path, err)
		return nil
	}
	return NewFrame(data)
}

func (c *FixtureCamera) Release() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.released = true
	return nil
}
