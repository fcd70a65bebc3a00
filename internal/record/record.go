// Package record defines the video metadata document and its JSON codec.
package record

import (
	"fmt"
	"strings"
	"time"
)

// Record mirrors one video metadata sidecar document.
type Record struct {
	FrameRate        uint32 `json:"fps"`
	Format           string `json:"format"`
	ResolutionHeight uint32 `json:"res_y"`
	ResolutionWidth  uint32 `json:"res_x"`
	CaptureStart     uint64 `json:"capture_start"` // ms since Unix epoch
	LoggerID         string `json:"logger_id"`
	DeviceID         string `json:"device_id"`
	Tick             uint64 `json:"tick"` // ms since Unix epoch, 10s bucket
}

// String renders the record for display, one labelled field per line.
func (r Record) String() string {
	lines := []string{
		fmt.Sprintf("Device ID: %s", r.DeviceID),
		fmt.Sprintf("Logger ID: %s", r.LoggerID),
		fmt.Sprintf("Capture Start: %d", r.CaptureStart),
		fmt.Sprintf("Tick: %d", r.Tick),
		fmt.Sprintf("FPS: %d Format: %s", r.FrameRate, r.Format),
		fmt.Sprintf("Resolution: %d by %d", r.ResolutionHeight, r.ResolutionWidth),
	}
	return strings.Join(lines, "\n")
}

// CaptureTime returns CaptureStart as a UTC time.
func (r Record) CaptureTime() time.Time {
	return millisToTime(r.CaptureStart)
}

// TickTime returns Tick as a UTC time.
func (r Record) TickTime() time.Time {
	return millisToTime(r.Tick)
}

func millisToTime(ms uint64) time.Time {
	return time.UnixMilli(int64(ms)).UTC()
}
