package query

import (
	"testing"

	"github.com/kokistudios/metamagic/internal/record"
)

func rec(device, logger string, captureStart uint64) record.Record {
	return record.Record{DeviceID: device, LoggerID: logger, CaptureStart: captureStart}
}

func TestFilterByDevice(t *testing.T) {
	in := []record.Record{
		rec("A", "1", 30),
		rec("B", "2", 10),
		rec("A", "3", 20),
		rec("a", "4", 5),
		rec("A", "5", 20),
	}
	got := FilterByDevice("A", in)
	wantLoggers := []string{"1", "3", "5"}
	if len(got) != len(wantLoggers) {
		t.Fatalf("len = %d, want %d", len(got), len(wantLoggers))
	}
	for i, r := range got {
		if r.DeviceID != "A" {
			t.Errorf("got[%d].DeviceID = %q", i, r.DeviceID)
		}
		if r.LoggerID != wantLoggers[i] {
			t.Errorf("got[%d].LoggerID = %q, want %q (order must be preserved)", i, r.LoggerID, wantLoggers[i])
		}
	}
}

func TestFilterByDevice_CopiesRecords(t *testing.T) {
	in := []record.Record{rec("A", "orig", 1)}
	got := FilterByDevice("A", in)
	got[0].LoggerID = "changed"
	if in[0].LoggerID != "orig" {
		t.Error("filter result must not alias the input")
	}
}

func TestFilterByDevice_NoMatch(t *testing.T) {
	cases := [][]record.Record{
		nil,
		{},
		{rec("A", "1", 1), rec("B", "2", 2)},
	}
	for _, in := range cases {
		got := FilterByDevice("Z", in)
		if got == nil || len(got) != 0 {
			t.Errorf("FilterByDevice on %v = %v, want empty non-nil", in, got)
		}
	}
}

func TestSortByCaptureStart(t *testing.T) {
	in := []record.Record{
		rec("X", "a", 300),
		rec("X", "b", 100),
		rec("X", "c", 200),
		rec("X", "d", 100),
		rec("X", "e", 0),
		rec("X", "f", 200),
	}
	got := SortByCaptureStart(in)
	want := []string{"e", "b", "d", "c", "f", "a"}
	if len(got) != len(want) {
		t.Fatalf("len = %d, want %d", len(got), len(want))
	}
	for i := range got {
		if got[i].LoggerID != want[i] {
			t.Errorf("got[%d] = %s, want %s", i, got[i].LoggerID, want[i])
		}
		if i > 0 && got[i-1].CaptureStart > got[i].CaptureStart {
			t.Errorf("not ordered at %d: %d > %d", i, got[i-1].CaptureStart, got[i].CaptureStart)
		}
	}
	if in[0].LoggerID != "a" || in[1].LoggerID != "b" {
		t.Error("input must keep its input order")
	}
}

func TestSortByCaptureStart_Empty(t *testing.T) {
	if got := SortByCaptureStart(nil); got == nil || len(got) != 0 {
		t.Errorf("SortByCaptureStart(nil) = %v, want empty non-nil", got)
	}
}

func TestFilterThenSort(t *testing.T) {
	a := rec("X", "a", 200)
	b := rec("X", "b", 100)
	got := SortByCaptureStart(FilterByDevice("X", []record.Record{a, rec("Y", "y", 50), b}))
	if len(got) != 2 || got[0] != b || got[1] != a {
		t.Errorf("got %v, want [b a]", got)
	}
}

func TestDevices(t *testing.T) {
	in := []record.Record{
		rec("B", "", 50),
		rec("A", "", 30),
		rec("B", "", 10),
		rec("A", "", 40),
		rec("B", "", 20),
	}
	got := Devices(in)
	want := []DeviceSummary{
		{DeviceID: "A", Count: 2, FirstCapture: 30, LatestCapture: 40},
		{DeviceID: "B", Count: 3, FirstCapture: 10, LatestCapture: 50},
	}
	if len(got) != len(want) {
		t.Fatalf("len = %d, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("got[%d] = %+v, want %+v", i, got[i], want[i])
		}
	}
}
