// Package classify adapts the external classification service. The pipeline
// depends only on the Classifier contract; choosing the remote HTTP service
// or a local stand-in is an explicit construction decision, never runtime
// auto-switching.
package classify

import (
	"context"
	"errors"

	"github.com/sortacle/sortacle/internal/camera"
	"github.com/sortacle/sortacle/internal/waste"
)

// Classification failures come in exactly three kinds. The pipeline never
// retries within a cycle; a failed call skips the cycle and the next frame
// is the retry.
var (
	// ErrTimeout means the call exceeded its deadline.
	ErrTimeout = errors.New("classification timed out")
	// ErrUnreachable means the service could not be reached.
	ErrUnreachable = errors.New("classification service unreachable")
	// ErrProtocol means the service answered with something we could not use.
	ErrProtocol = errors.New("classification protocol error")
)

// Classifier runs inference on one frame. Implementations must honour the
// context deadline and surface failures as one of the three error kinds
// above (wrapped, so errors.Is works).
type Classifier interface {
	Classify(ctx context.Context, frame *camera.Frame) (*waste.ClassificationResult, error)
}

// Unavailable reports whether err is one of the expected transient
// classification failures, as opposed to a programming error.
func Unavailable(err error) bool {
	return errors.Is(err, ErrTimeout) || errors.Is(err, ErrUnreachable) || errors.Is(err, ErrProtocol)
}
