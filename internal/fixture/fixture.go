// Package fixture produces synthetic metadata records for test data.
package fixture

import (
	"math"
	"time"

	"github.com/kokistudios/metamagic/internal/catalog"
	"github.com/kokistudios/metamagic/internal/record"
)

// Field values shared by every fixture record.
const (
	FrameRate        = 10   // fps
	ResolutionHeight = 1232 // res_y
	ResolutionWidth  = 1640 // res_x
	Format           = "video/mp4"
	LoggerID         = "internal_test"
	DeviceID         = "faux_device"

	// DefaultPath is where the CLI writes a fixture when no path is given.
	DefaultPath = "test_file.json"

	tickBucket = 10_000 // ms
)

// Clock returns the current time.
type Clock func() time.Time

// SystemClock reads the wall clock.
var SystemClock Clock = time.Now

// RoundTick rounds ms to the nearest 10 second boundary, halves rounding up.
// Values within 5s of the uint64 limit cannot round up and round down instead.
func RoundTick(ms uint64) uint64 {
	if ms > math.MaxUint64-tickBucket/2 {
		return ms / tickBucket * tickBucket
	}
	return (ms + tickBucket/2) / tickBucket * tickBucket
}

// Generate builds a fixture record captured at now. Times before the Unix
// epoch are clamped to it.
func Generate(now time.Time) record.Record {
	var captureStart uint64
	if ms := now.UnixMilli(); ms > 0 {
		captureStart = uint64(ms)
	}
	return record.Record{
		FrameRate:        FrameRate,
		Format:           Format,
		ResolutionHeight: ResolutionHeight,
		ResolutionWidth:  ResolutionWidth,
		CaptureStart:     captureStart,
		LoggerID:         LoggerID,
		DeviceID:         DeviceID,
		Tick:             RoundTick(captureStart),
	}
}

// Writer persists fixtures stamped by its Clock.
type Writer struct {
	Clock Clock
}

// NewWriter returns a Writer on the system clock.
func NewWriter() *Writer {
	return &Writer{Clock: SystemClock}
}

// Generate builds a fixture at the writer's current time.
func (w *Writer) Generate() record.Record {
	clock := w.Clock
	if clock == nil {
		clock = SystemClock
	}
	return Generate(clock())
}

// Write generates a fixture and writes it to path, creating or truncating it.
func (w *Writer) Write(path string) (record.Record, error) {
	r := w.Generate()
	if err := catalog.WriteOne(path, r); err != nil {
		return record.Record{}, err
	}
	return r, nil
}
