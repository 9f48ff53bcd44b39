package actuator

import (
	"errors"
	"testing"
)

func TestSerialDriver_AngleRange(t *testing.T) {
	d := &SerialDriver{}

	if err := d.SetPosition(0, -1); err == nil {
		t.Error("negative angle should be rejected")
	}
	if err := d.SetPosition(0, 181); err == nil {
		t.Error("angle above 180 should be rejected")
	}
}

func TestSerialDriver_ClosedPort(t *testing.T) {
	d := &SerialDriver{}

	err := d.SetPosition(0, 90)
	if !errors.Is(err, ErrWriteFailed) {
		t.Errorf("SetPosition on closed port = %v, want ErrWriteFailed", err)
	}
	// Close on an already-closed driver is a no-op.
	if err := d.Close(); err != nil {
		t.Errorf("Close: %v", err)
	}
}

func TestNewSerialDriver_BadPath(t *testing.T) {
	if _, err := NewSerialDriver("/dev/definitely-not-a-port"); err == nil {
		t.Error("expected error opening a nonexistent device")
	}
}
