// Package actuator sequences the physical sorting gate. The Driver
// capability is injected at construction: callers choose the serial servo
// board or a simulated driver explicitly, there is no import-time probing
// or hidden fallback.
package actuator

// Driver is the minimal capability the controller needs from servo
// hardware: move one channel to an absolute angle in degrees.
type Driver interface {
	// SetPosition commands the servo on channel to angleDegrees (0-180).
	SetPosition(channel int, angleDegrees float64) error
	// Close releases the underlying device. Idempotent.
	Close() error
}
