package camera

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
)

// Config load failures that abort startup.
var (
	ErrNoCameras = fmt.Errorf("no cameras defined")
)

// Skip reasons reported in the assignment summary.
const (
	SkipInvalidConfig = "invalid config"
	SkipNoSlot        = "no capture device"
)

// LoadFile reads the camera list from a JSON file. The file may carry a
// UTF-8 BOM (some Windows editors add one). An empty or unparsable file
// is an error; callers treat it as fatal.
func LoadFile(path string) ([]Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read camera config: %w", err)
	}
	return Parse(data)
}

// Parse decodes a camera list from raw JSON bytes.
func Parse(data []byte) ([]Record, error) {
	data = bytes.TrimPrefix(data, []byte{0xEF, 0xBB, 0xBF})
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, fmt.Errorf("camera config is empty: %w", ErrNoCameras)
	}

	var records []Record
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("parse camera config: %w", err)
	}
	if len(records) == 0 {
		return nil, ErrNoCameras
	}
	return records, nil
}

// Register validates records against the provisioned slot set and assigns
// slot indices by configuration order. Records beyond the provisioned slot
// count are dropped with a warning. Malformed or unslotted records are
// returned marked skipped; they are excluded from supervision but still
// accounted for in the summary.
func Register(records []Record, slots map[int]string, logger *slog.Logger) []*Camera {
	if len(records) > len(slots) {
		logger.Warn("More cameras configured than capture devices, ignoring extras",
			"configured", len(records), "slots", len(slots))
		records = records[:len(slots)]
	}

	cameras := make([]*Camera, 0, len(records))
	for i, rec := range records {
		cam := &Camera{
			Slot:     i,
			Address:  rec.Address,
			Username: rec.Username,
			Password: rec.Password,
		}
		if cam.Username == "" {
			cam.Username = DefaultUsername
		}

		switch {
		case rec.Address == "" || rec.Password == "":
			cam.Skipped = true
			cam.SkipReason = SkipInvalidConfig
			logger.Error("Invalid camera record, skipping", "slot", i, "address", rec.Address)
		case slots[i] == "":
			cam.Skipped = true
			cam.SkipReason = SkipNoSlot
			logger.Error("No capture device for camera, skipping", "slot", i, "address", rec.Address)
		}

		cameras = append(cameras, cam)
	}
	return cameras
}
