// Package report summarizes a loaded metadata directory as Markdown.
package report

import (
	"bytes"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/kokistudios/metamagic/internal/catalog"
	"github.com/kokistudios/metamagic/internal/query"
)

// Markdown renders a summary of res: totals, per-device table and skipped entries.
func Markdown(res *catalog.Result) string {
	var buf bytes.Buffer

	buf.WriteString(fmt.Sprintf("# Metadata report: %s\n\n", res.Dir))
	buf.WriteString(fmt.Sprintf("- **Loaded:** %d\n", len(res.Records)))
	buf.WriteString(fmt.Sprintf("- **Skipped:** %d\n\n", len(res.Skipped)))

	devices := query.Devices(res.Records)
	if len(devices) > 0 {
		buf.WriteString("## Devices\n\n")
		buf.WriteString("| Device | Records | First capture | Latest capture |\n")
		buf.WriteString("|---|---|---|---|\n")
		for _, d := range devices {
			buf.WriteString(fmt.Sprintf("| %s | %d | %s | %s |\n",
				cell(d.DeviceID), d.Count, stamp(d.FirstCapture), stamp(d.LatestCapture)))
		}
		buf.WriteString("\n")
	}

	if len(res.Skipped) > 0 {
		buf.WriteString("## Skipped\n\n")
		for _, sk := range res.Skipped {
			buf.WriteString(fmt.Sprintf("- `%s`: %v\n", filepath.Base(sk.Path), sk.Err))
		}
		buf.WriteString("\n")
	}

	return buf.String()
}

func stamp(ms uint64) string {
	return time.UnixMilli(int64(ms)).UTC().Format("2006-01-02 15:04:05.000")
}

func cell(s string) string {
	if s == "" {
		return "_(empty)_"
	}
	return strings.ReplaceAll(s, "|", `\|`)
}
