package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/sortacle/sortacle/internal/actuator"
	"github.com/sortacle/sortacle/internal/pipeline"
)

// DefaultConfigPath is the path to the canonical defaults file. It is the
// single source of truth for all default sorter values.
const DefaultConfigPath = "config/sorter.defaults.json"

// SorterConfig is the root configuration for the sorting controller.
// All fields are pointers so a partial JSON file only overrides what it
// names; the Get* accessors supply defaults for everything else.
type SorterConfig struct {
	// Detection params
	ConfidenceThreshold *float64 `json:"confidence_threshold,omitempty"`
	CooldownSeconds     *float64 `json:"cooldown_seconds,omitempty"`
	PerLabelDedup       *bool    `json:"per_label_dedup,omitempty"`

	// Pipeline params
	QueueCapacity   *int    `json:"queue_capacity,omitempty"`
	CaptureInterval *string `json:"capture_interval,omitempty"` // duration string like "500ms"
	ClassifyTimeout *string `json:"classify_timeout,omitempty"` // duration string like "5s"

	// Inference params
	InferenceURL *string `json:"inference_url,omitempty"`

	// Camera params
	CameraURL *string `json:"camera_url,omitempty"`

	// Actuator params
	MaxClearWaitSeconds *float64 `json:"max_clear_wait_seconds,omitempty"`
	ServoChannel        *int     `json:"servo_channel,omitempty"`
	CenterAngle         *float64 `json:"center_angle,omitempty"`
	RecycleAngle        *float64 `json:"recycle_angle,omitempty"`
	TrashAngle          *float64 `json:"trash_angle,omitempty"`
	ServoInverted       *bool    `json:"servo_inverted,omitempty"`
	SettleDelay         *string  `json:"settle_delay,omitempty"` // duration string like "2s"

	// Deployment identity
	BinID    *string `json:"bin_id,omitempty"`
	Location *string `json:"location,omitempty"`
}

// Helper functions to create pointers
func ptrFloat64(v float64) *float64 { return &v }
func ptrBool(v bool) *bool          { return &v }
func ptrString(v string) *string    { return &v }
func ptrInt(v int) *int             { return &v }

// EmptySorterConfig returns a SorterConfig with all fields set to nil.
// Use LoadSorterConfig to load actual values from a file.
func EmptySorterConfig() *SorterConfig {
	return &SorterConfig{}
}

// LoadSorterConfig loads a SorterConfig from a JSON file.
// Fields omitted from the JSON file retain their default values, so
// partial configs are safe.
func LoadSorterConfig(path string) (*SorterConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	// Check file size for safety (max 1MB)
	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := EmptySorterConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// MustLoadDefaultConfig loads the canonical sorter defaults from
// DefaultConfigPath. It searches for the file in the current directory and
// common parent directories. Panics if the file cannot be loaded, intended
// for test setup.
func MustLoadDefaultConfig() *SorterConfig {
	// Try paths from current dir up to repo root
	candidates := []string{
		DefaultConfigPath,
		"../../" + DefaultConfigPath, // from internal/config/
		"../../../" + DefaultConfigPath,
	}
	for _, path := range candidates {
		if cfg, err := LoadSorterConfig(path); err == nil {
			return cfg
		}
	}
	panic("cannot find " + DefaultConfigPath + " - run tests from repository root")
}

// Validate checks that the configuration values are valid. It is called
// at startup so a bad file is rejected before any hardware is touched.
func (c *SorterConfig) Validate() error {
	if c.ConfidenceThreshold != nil {
		if *c.ConfidenceThreshold < 0 || *c.ConfidenceThreshold > 1 {
			return fmt.Errorf("confidence_threshold must be between 0 and 1, got %f", *c.ConfidenceThreshold)
		}
	}

	if c.CooldownSeconds != nil {
		if *c.CooldownSeconds <= 0 {
			return fmt.Errorf("cooldown_seconds must be positive, got %f", *c.CooldownSeconds)
		}
	}

	if c.QueueCapacity != nil {
		if *c.QueueCapacity < 1 {
			return fmt.Errorf("queue_capacity must be at least 1, got %d", *c.QueueCapacity)
		}
	}

	if c.MaxClearWaitSeconds != nil {
		if *c.MaxClearWaitSeconds <= 0 {
			return fmt.Errorf("max_clear_wait_seconds must be positive, got %f", *c.MaxClearWaitSeconds)
		}
	}

	for name, angle := range map[string]*float64{
		"center_angle":  c.CenterAngle,
		"recycle_angle": c.RecycleAngle,
		"trash_angle":   c.TrashAngle,
	} {
		if angle != nil && (*angle < 0 || *angle > 180) {
			return fmt.Errorf("%s must be between 0 and 180, got %f", name, *angle)
		}
	}

	for name, dur := range map[string]*string{
		"capture_interval": c.CaptureInterval,
		"classify_timeout": c.ClassifyTimeout,
		"settle_delay":     c.SettleDelay,
	} {
		if dur != nil && *dur != "" {
			if _, err := time.ParseDuration(*dur); err != nil {
				return fmt.Errorf("invalid %s '%s': %w", name, *dur, err)
			}
		}
	}

	return nil
}

// GetConfidenceThreshold returns the confidence_threshold value or the default.
func (c *SorterConfig) GetConfidenceThreshold() float64 {
	if c.ConfidenceThreshold == nil {
		return 0.5 // default
	}
	return *c.ConfidenceThreshold
}

// GetCooldown returns the cooldown window as a time.Duration.
func (c *SorterConfig) GetCooldown() time.Duration {
	if c.CooldownSeconds == nil {
		return 5 * time.Second // default
	}
	return time.Duration(*c.CooldownSeconds * float64(time.Second))
}

// GetPerLabelDedup returns the per_label_dedup value or the default.
func (c *SorterConfig) GetPerLabelDedup() bool {
	if c.PerLabelDedup == nil {
		return false // default: one global cooldown window
	}
	return *c.PerLabelDedup
}

// GetQueueCapacity returns the queue_capacity value or the default.
func (c *SorterConfig) GetQueueCapacity() int {
	if c.QueueCapacity == nil {
		return 2 // default
	}
	return *c.QueueCapacity
}

// GetCaptureInterval parses and returns the CaptureInterval as a time.Duration.
func (c *SorterConfig) GetCaptureInterval() time.Duration {
	if c.CaptureInterval == nil || *c.CaptureInterval == "" {
		return 500 * time.Millisecond // default
	}
	d, err := time.ParseDuration(*c.CaptureInterval)
	if err != nil {
		return 500 * time.Millisecond // default on parse error
	}
	return d
}

// GetClassifyTimeout parses and returns the ClassifyTimeout as a time.Duration.
func (c *SorterConfig) GetClassifyTimeout() time.Duration {
	if c.ClassifyTimeout == nil || *c.ClassifyTimeout == "" {
		return 5 * time.Second // default
	}
	d, err := time.ParseDuration(*c.ClassifyTimeout)
	if err != nil {
		return 5 * time.Second // default on parse error
	}
	return d
}

// GetInferenceURL returns the inference_url value or the empty string,
// leaving endpoint resolution to the classifier constructor.
func (c *SorterConfig) GetInferenceURL() string {
	if c.InferenceURL == nil {
		return ""
	}
	return *c.InferenceURL
}

// GetCameraURL returns the camera_url value or the empty string, meaning
// no network camera is configured.
func (c *SorterConfig) GetCameraURL() string {
	if c.CameraURL == nil {
		return ""
	}
	return *c.CameraURL
}

// GetMaxClearWait returns the clear-wait bound as a time.Duration.
func (c *SorterConfig) GetMaxClearWait() time.Duration {
	if c.MaxClearWaitSeconds == nil {
		return 5 * time.Second // default
	}
	return time.Duration(*c.MaxClearWaitSeconds * float64(time.Second))
}

// GetServoChannel returns the servo_channel value or the default.
func (c *SorterConfig) GetServoChannel() int {
	if c.ServoChannel == nil {
		return 0
	}
	return *c.ServoChannel
}

// GetCenterAngle returns the center_angle value or the default.
func (c *SorterConfig) GetCenterAngle() float64 {
	if c.CenterAngle == nil {
		return 90
	}
	return *c.CenterAngle
}

// GetRecycleAngle returns the recycle_angle value or the default.
func (c *SorterConfig) GetRecycleAngle() float64 {
	if c.RecycleAngle == nil {
		return 0
	}
	return *c.RecycleAngle
}

// GetTrashAngle returns the trash_angle value or the default.
func (c *SorterConfig) GetTrashAngle() float64 {
	if c.TrashAngle == nil {
		return 180
	}
	return *c.TrashAngle
}

// GetServoInverted returns the servo_inverted value or the default.
func (c *SorterConfig) GetServoInverted() bool {
	if c.ServoInverted == nil {
		return false
	}
	return *c.ServoInverted
}

// GetSettleDelay parses and returns the SettleDelay as a time.Duration.
func (c *SorterConfig) GetSettleDelay() time.Duration {
	if c.SettleDelay == nil || *c.SettleDelay == "" {
		return 2 * time.Second // default
	}
	d, err := time.ParseDuration(*c.SettleDelay)
	if err != nil {
		return 2 * time.Second // default on parse error
	}
	return d
}

// GetBinID returns the bin_id value or the default.
func (c *SorterConfig) GetBinID() string {
	if c.BinID == nil || *c.BinID == "" {
		return "bin_001"
	}
	return *c.BinID
}

// GetLocation returns the location value or the default.
func (c *SorterConfig) GetLocation() string {
	if c.Location == nil || *c.Location == "" {
		return "unknown"
	}
	return *c.Location
}

// PipelineConfig renders the sorter config into the pipeline's view of it.
func (c *SorterConfig) PipelineConfig() pipeline.Config {
	return pipeline.Config{
		ConfidenceThreshold: c.GetConfidenceThreshold(),
		Cooldown:            c.GetCooldown(),
		PerLabelDedup:       c.GetPerLabelDedup(),
		QueueCapacity:       c.GetQueueCapacity(),
		CaptureInterval:     c.GetCaptureInterval(),
		ClassifyTimeout:     c.GetClassifyTimeout(),
		BinID:               c.GetBinID(),
		Location:            c.GetLocation(),
	}
}

// ActuatorConfig renders the sorter config into the actuator's view of it.
func (c *SorterConfig) ActuatorConfig() actuator.Config {
	cfg := actuator.DefaultConfig()
	cfg.Channel = c.GetServoChannel()
	cfg.CenterAngle = c.GetCenterAngle()
	cfg.RecycleAngle = c.GetRecycleAngle()
	cfg.TrashAngle = c.GetTrashAngle()
	cfg.Inverted = c.GetServoInverted()
	cfg.SettleDelay = c.GetSettleDelay()
	cfg.MaxClearWait = c.GetMaxClearWait()
	return cfg
}
