package actuator

import (
	"fmt"
	"sync"

	"go.bug.st/serial"
)

// ErrWriteFailed wraps short or failed writes to the servo board.
var ErrWriteFailed = fmt.Errorf("failed to write to servo controller")

// SerialDriver drives a servo controller board over a serial line. Commands
// are plain text, one per line: "P<channel>:<angle>\n". Writes are
// serialised so interleaved callers cannot corrupt a command.
type SerialDriver struct {
	mu   sync.Mutex
	port serial.Port
	path string
}

// DefaultSerialMode is the board's factory line configuration.
var DefaultSerialMode = &serial.Mode{BaudRate: 115200}

// NewSerialDriver opens the servo controller at the given device path.
func NewSerialDriver(path string) (*SerialDriver, error) {
	port, err := serial.Open(path, DefaultSerialMode)
	if err != nil {
		return nil, fmt.Errorf("failed to open servo controller at %s: %w", path, err)
	}
	return &SerialDriver{port: port, path: path}, nil
}

func (d *SerialDriver) SetPosition(channel int, angleDegrees float64) error {
	if angleDegrees < 0 || angleDegrees > 180 {
		return fmt.Errorf("angle %.1f out of range [0,180]", angleDegrees)
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if d.port == nil {
		return fmt.Errorf("%w: port closed", ErrWriteFailed)
	}

	command := fmt.Sprintf("P%d:%.1f\n", channel, angleDegrees)
	n, err := d.port.Write([]byte(command))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrWriteFailed, err)
	}
	if n != len(command) {
		return fmt.Errorf("%w: wrote %d of %d bytes", ErrWriteFailed, n, len(command))
	}
	return nil
}

// Close closes the serial port. Safe to call repeatedly.
func (d *SerialDriver) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.port == nil {
		return nil
	}
	err := d.port.Close()
	d.port = nil
	return err
}
