package mmu

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.yaml.in/yaml/v3"

	"github.com/sarchlab/segsim/segment"
)

// ResetProfile names the table image restored on reset.
type ResetProfile string

// Reset profiles.
const (
	// ResetZero clears every descriptor.
	ResetZero ResetProfile = "zero"
	// ResetDefault installs segment.DefaultTable.
	ResetDefault ResetProfile = "default"
	// ResetCustom installs Config.ResetTable.
	ResetCustom ResetProfile = "custom"
)

// ErrUnknownResetProfile is returned for a reset_profile value that is not
// one of the defined profiles.
var ErrUnknownResetProfile = errors.New("unknown reset profile")

// DescriptorConfig is the file form of one descriptor of a custom reset
// image. Status is the packed status word.
type DescriptorConfig struct {
	PhysicalBase uint32 `json:"physical_base" yaml:"physical_base"`
	LogicalBase  uint32 `json:"logical_base" yaml:"logical_base"`
	Mask         uint32 `json:"mask" yaml:"mask"`
	Status       uint32 `json:"status" yaml:"status"`
}

// Config holds the unit's configuration.
type Config struct {
	// ResetProfile selects the table image installed on reset.
	// Default: "zero".
	ResetProfile ResetProfile `json:"reset_profile" yaml:"reset_profile"`

	// ResetTable is the image for the "custom" profile. It must hold exactly
	// four descriptors when used.
	ResetTable []DescriptorConfig `json:"reset_table,omitempty" yaml:"reset_table,omitempty"`

	// DisabledMatchFaults makes a translation that matches a disabled
	// descriptor report a segmentation fault, the same as no match at all.
	// When false such a translation is a silent miss (physical address 0, no
	// fault flag). Default: true.
	DisabledMatchFaults bool `json:"disabled_match_faults" yaml:"disabled_match_faults"`

	// ClockFreqMHz is the clock frequency of the clocked wrapper.
	// Default: 1000 MHz.
	ClockFreqMHz float64 `json:"clock_freq_mhz" yaml:"clock_freq_mhz"`
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() *Config {
	return &Config{
		ResetProfile:        ResetZero,
		DisabledMatchFaults: true,
		ClockFreqMHz:        1000,
	}
}

// LoadConfig loads a Config from a JSON or YAML file. Fields missing from
// the file keep their default values.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if isYAML(path) {
		err = yaml.Unmarshal(data, config)
	} else {
		err = json.Unmarshal(data, config)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	return config, nil
}

// SaveConfig writes the Config to a file, as YAML when the extension says
// so and as JSON otherwise.
func (c *Config) SaveConfig(path string) error {
	var (
		data []byte
		err  error
	)
	if isYAML(path) {
		data, err = yaml.Marshal(c)
	} else {
		data, err = json.MarshalIndent(c, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("failed to serialize config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Validate checks the configuration for consistency.
func (c *Config) Validate() error {
	switch c.ResetProfile {
	case ResetZero, ResetDefault:
	case ResetCustom:
		if len(c.ResetTable) != segment.NumDescriptors {
			return fmt.Errorf("reset_table must hold %d descriptors, got %d",
				segment.NumDescriptors, len(c.ResetTable))
		}
	default:
		return fmt.Errorf("%w: %q", ErrUnknownResetProfile, c.ResetProfile)
	}
	if c.ClockFreqMHz <= 0 {
		return fmt.Errorf("clock_freq_mhz must be > 0")
	}
	return nil
}

// ResetImage builds the table installed on reset.
func (c *Config) ResetImage() (segment.Table, error) {
	switch c.ResetProfile {
	case ResetZero:
		return segment.ZeroTable(), nil
	case ResetDefault:
		return segment.DefaultTable(), nil
	case ResetCustom:
		if len(c.ResetTable) != segment.NumDescriptors {
			return segment.Table{}, fmt.Errorf("reset_table must hold %d descriptors, got %d",
				segment.NumDescriptors, len(c.ResetTable))
		}
		var t segment.Table
		for i, d := range c.ResetTable {
			t[i] = segment.Descriptor{
				PhysicalBase: d.PhysicalBase,
				LogicalBase:  d.LogicalBase,
				Mask:         d.Mask,
				Status:       segment.UnpackStatus(d.Status),
			}
		}
		return t, nil
	}
	return segment.Table{}, fmt.Errorf("%w: %q", ErrUnknownResetProfile, c.ResetProfile)
}

// Clone returns a deep copy of the Config.
func (c *Config) Clone() *Config {
	clone := *c
	if c.ResetTable != nil {
		clone.ResetTable = append([]DescriptorConfig(nil), c.ResetTable...)
	}
	return &clone
}

func isYAML(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".yaml" || ext == ".yml"
}
