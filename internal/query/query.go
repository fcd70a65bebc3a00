// Package query filters, sorts and summarizes loaded metadata records.
package query

import (
	"cmp"
	"slices"

	"github.com/kokistudios/metamagic/internal/record"
)

// FilterByDevice returns copies of the records whose DeviceID equals id,
// in input order. The result is never nil.
func FilterByDevice(id string, in []record.Record) []record.Record {
	out := make([]record.Record, 0)
	for _, r := range in {
		if r.DeviceID == id {
			out = append(out, r)
		}
	}
	return out
}

// SortByCaptureStart returns a new slice ordered by CaptureStart. Records
// with equal CaptureStart keep their input order. The input is not modified.
func SortByCaptureStart(in []record.Record) []record.Record {
	out := slices.Clone(in)
	if out == nil {
		out = []record.Record{}
	}
	slices.SortStableFunc(out, func(a, b record.Record) int {
		return cmp.Compare(a.CaptureStart, b.CaptureStart)
	})
	return out
}

// DeviceSummary aggregates the records of one device.
type DeviceSummary struct {
	DeviceID      string
	Count         int
	FirstCapture  uint64
	LatestCapture uint64
}

// Devices summarizes records per device, ordered by device id.
func Devices(in []record.Record) []DeviceSummary {
	byID := make(map[string]*DeviceSummary)
	for _, r := range in {
		s, ok := byID[r.DeviceID]
		if !ok {
			s = &DeviceSummary{DeviceID: r.DeviceID, FirstCapture: r.CaptureStart, LatestCapture: r.CaptureStart}
			byID[r.DeviceID] = s
		}
		s.Count++
		s.FirstCapture = min(s.FirstCapture, r.CaptureStart)
		s.LatestCapture = max(s.LatestCapture, r.CaptureStart)
	}

	out := make([]DeviceSummary, 0, len(byID))
	for _, s := range byID {
		out = append(out, *s)
	}
	slices.SortFunc(out, func(a, b DeviceSummary) int {
		return cmp.Compare(a.DeviceID, b.DeviceID)
	})
	return out
}
