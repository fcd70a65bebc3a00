package report

import (
	"errors"
	"strings"
	"testing"

	"github.com/kokistudios/metamagic/internal/catalog"
	"github.com/kokistudios/metamagic/internal/record"
)

func TestMarkdown(t *testing.T) {
	res := &catalog.Result{
		Dir: "./metadata",
		Records: []record.Record{
			{DeviceID: "cam|1", CaptureStart: 0},
			{DeviceID: "cam|1", CaptureStart: 1000},
			{DeviceID: "", CaptureStart: 500},
		},
		Skipped: []catalog.Skipped{
			{Path: "metadata/broken.json", Err: errors.New("schema mismatch: missing field \"tick\"")},
		},
	}

	md := Markdown(res)

	for _, want := range []string{
		"# Metadata report: ./metadata",
		"- **Loaded:** 3",
		"- **Skipped:** 1",
		`| cam\|1 | 2 | 1970-01-01 00:00:00.000 | 1970-01-01 00:00:01.000 |`,
		"| _(empty)_ | 1 |",
		"## Skipped",
		"- `broken.json`: schema mismatch",
	} {
		if !strings.Contains(md, want) {
			t.Errorf("report missing %q:\n%s", want, md)
		}
	}
}

func TestMarkdown_Empty(t *testing.T) {
	md := Markdown(&catalog.Result{Dir: "d"})
	if strings.Contains(md, "## Devices") || strings.Contains(md, "## Skipped") {
		t.Errorf("empty report should have no sections:\n%s", md)
	}
	if !strings.Contains(md, "- **Loaded:** 0") {
		t.Errorf("expected zero count:\n%s", md)
	}
}
