package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Config holds processing defaults for the rawplanes CLI. Every field is
// optional; the Get* methods fall back to built-in defaults and command line
// flags override whatever the file sets.
type Config struct {
	// Histogram params
	RawBitDepth   *int `json:"raw_bit_depth,omitempty"`
	HistogramBins *int `json:"histogram_bins,omitempty"`

	// Export params
	TIFFSampleFormat *string `json:"tiff_sample_format,omitempty"` // "uint8", "uint16" or "float32"
	TIFFCompression  *bool   `json:"tiff_compression,omitempty"`
	FITSChannel      *string `json:"fits_channel,omitempty"`

	// Bad pixel params
	BadPixelKappa        *float64 `json:"badpixel_kappa,omitempty"`
	BadPixelConfirmRatio *float64 `json:"badpixel_confirm_ratio,omitempty"`
	BadPixelMedianKernel *int     `json:"badpixel_median_kernel,omitempty"`
	BadPixelMinDeviation *float64 `json:"badpixel_min_deviation,omitempty"`

	Workers *int `json:"workers,omitempty"`
}

const maxFileSize = 1 * 1024 * 1024 // 1MB

// Empty returns a Config with all fields unset.
func Empty() *Config {
	return &Config{}
}

// Load reads a Config from a JSON file. The path must have a .json
// extension and the file must be under 1MB. Omitted fields keep their
// defaults.
func Load(path string) (*Config, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := Empty()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Validate checks that the set values are usable.
func (c *Config) Validate() error {
	if c.RawBitDepth != nil && (*c.RawBitDepth < 1 || *c.RawBitDepth > 16) {
		return fmt.Errorf("raw_bit_depth must be between 1 and 16, got %d", *c.RawBitDepth)
	}
	if c.HistogramBins != nil && *c.HistogramBins < 1 {
		return fmt.Errorf("histogram_bins must be at least 1, got %d", *c.HistogramBins)
	}
	if c.TIFFSampleFormat != nil {
		switch *c.TIFFSampleFormat {
		case "uint8", "uint16", "float32":
		default:
			return fmt.Errorf("tiff_sample_format must be uint8, uint16 or float32, got %q", *c.TIFFSampleFormat)
		}
	}
	if c.FITSChannel != nil && *c.FITSChannel == "" {
		return fmt.Errorf("fits_channel must not be empty")
	}
	if c.BadPixelKappa != nil && *c.BadPixelKappa <= 0 {
		return fmt.Errorf("badpixel_kappa must be positive, got %f", *c.BadPixelKappa)
	}
	if c.BadPixelConfirmRatio != nil && (*c.BadPixelConfirmRatio <= 0 || *c.BadPixelConfirmRatio > 1) {
		return fmt.Errorf("badpixel_confirm_ratio must be in (0, 1], got %f", *c.BadPixelConfirmRatio)
	}
	if c.BadPixelMedianKernel != nil && *c.BadPixelMedianKernel != 3 && *c.BadPixelMedianKernel != 5 {
		return fmt.Errorf("badpixel_median_kernel must be 3 or 5, got %d", *c.BadPixelMedianKernel)
	}
	if c.BadPixelMinDeviation != nil && *c.BadPixelMinDeviation < 0 {
		return fmt.Errorf("badpixel_min_deviation must be non-negative, got %f", *c.BadPixelMinDeviation)
	}
	if c.Workers != nil && *c.Workers < 0 {
		return fmt.Errorf("workers must be non-negative, got %d", *c.Workers)
	}
	return nil
}

// GetRawBitDepth returns the raw_bit_depth value or the default.
func (c *Config) GetRawBitDepth() int {
	if c.RawBitDepth == nil {
		return 14 // default
	}
	return *c.RawBitDepth
}

// GetHistogramBins returns the histogram_bins value or the default.
func (c *Config) GetHistogramBins() int {
	if c.HistogramBins == nil {
		return 256 // default
	}
	return *c.HistogramBins
}

// GetTIFFSampleFormat returns the tiff_sample_format value or the default.
func (c *Config) GetTIFFSampleFormat() string {
	if c.TIFFSampleFormat == nil {
		return "uint16" // default
	}
	return *c.TIFFSampleFormat
}

// GetTIFFCompression returns the tiff_compression value or the default.
func (c *Config) GetTIFFCompression() bool {
	if c.TIFFCompression == nil {
		return true // default
	}
	return *c.TIFFCompression
}

// GetFITSChannel returns the fits_channel value or the default.
func (c *Config) GetFITSChannel() string {
	if c.FITSChannel == nil {
		return "G1" // default
	}
	return *c.FITSChannel
}

// GetBadPixelKappa returns the badpixel_kappa value or the default.
func (c *Config) GetBadPixelKappa() float64 {
	if c.BadPixelKappa == nil {
		return 5 // default
	}
	return *c.BadPixelKappa
}

// GetBadPixelConfirmRatio returns the badpixel_confirm_ratio value or the default.
func (c *Config) GetBadPixelConfirmRatio() float64 {
	if c.BadPixelConfirmRatio == nil {
		return 1 // default
	}
	return *c.BadPixelConfirmRatio
}

// GetBadPixelMedianKernel returns the badpixel_median_kernel value or the default.
func (c *Config) GetBadPixelMedianKernel() int {
	if c.BadPixelMedianKernel == nil {
		return 5 // default
	}
	return *c.BadPixelMedianKernel
}

// GetBadPixelMinDeviation returns the badpixel_min_deviation value or the default.
func (c *Config) GetBadPixelMinDeviation() float64 {
	if c.BadPixelMinDeviation == nil {
		return 20 // default
	}
	return *c.BadPixelMinDeviation
}

// GetWorkers returns the workers value or 0, meaning one per CPU.
func (c *Config) GetWorkers() int {
	if c.Workers == nil {
		return 0
	}
	return *c.Workers
}
