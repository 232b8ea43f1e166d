package metrics

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
)

// StaticSource loads a calibration from a JSON file.
// Used for testing, offline analysis, and CI pipelines.
type StaticSource struct {
	filePath string
	cal      *Calibration
}

// NewStaticSource creates a source that reads from a JSON file.
func NewStaticSource(filePath string) *StaticSource {
	return &StaticSource{filePath: filePath}
}

// NewStaticSourceFromCalibration creates a source from a pre-built Calibration.
func NewStaticSourceFromCalibration(cal *Calibration) *StaticSource {
	return &StaticSource{cal: cal}
}

// Ping checks that the file exists.
func (s *StaticSource) Ping(ctx context.Context) error {
	if s.cal != nil {
		return nil
	}
	_, err := os.Stat(s.filePath)
	if err != nil {
		return fmt.Errorf("static calibration file: %w", err)
	}
	return nil
}

// BackendType returns "static".
func (s *StaticSource) BackendType() string {
	return "static"
}

// Calibrate loads the calibration from the JSON file.
func (s *StaticSource) Calibrate(ctx context.Context, opts CalibrateOptions) (*Calibration, error) {
	if s.cal != nil {
		return s.cal, nil
	}

	data, err := os.ReadFile(s.filePath)
	if err != nil {
		return nil, fmt.Errorf("reading static calibration file: %w", err)
	}

	var cal Calibration
	if err := json.Unmarshal(data, &cal); err != nil {
		return nil, fmt.Errorf("parsing static calibration file: %w", err)
	}

	if cal.TotalCount == 0 {
		return nil, ErrNoMetricsFound
	}
	if err := validate(&cal); err != nil {
		return nil, fmt.Errorf("static calibration file: %w", err)
	}
	if cal.Backend == "" {
		cal.Backend = s.BackendType()
	}

	return &cal, nil
}

// WriteFile stores a calibration as indented JSON for later use with
// NewStaticSource.
func WriteFile(path string, cal *Calibration) error {
	data, err := json.MarshalIndent(cal, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling calibration: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing calibration file: %w", err)
	}
	return nil
}
