package audit

import (
	"strings"
	"time"

	"github.com/goccy/go-json"
)

// Format selects the export document type.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatJSON Format = "json"
)

// ParseFormat accepts "csv" or "json", case-insensitively.
func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(s))) {
	case FormatCSV:
		return FormatCSV, nil
	case FormatJSON:
		return FormatJSON, nil
	}
	return "", NewValidationError("format", "oneof", "must be one of: csv json")
}

// ContentType returns the MIME type of f.
func (f Format) ContentType() string {
	if f == FormatCSV {
		return "text/csv; charset=utf-8"
	}
	return "application/json"
}

// Document is a rendered export.
type Document struct {
	Name        string
	ContentType string
	Body        []byte
	Count       int
}

// CSVColumns is the fixed column order of CSV exports.
var CSVColumns = []string{"id", "createdAt", "actorId", "action", "module", "entityType", "entityId", "result", "severity", "ip"}

// FileName returns audit-export-<date>.<ext> for the UTC date of now.
func FileName(now time.Time, f Format) string {
	return "audit-export-" + now.UTC().Format("2006-01-02") + "." + string(f)
}

// Render renders entries in format f.
func Render(f Format, entries []Entry, now time.Time) (*Document, error) {
	var (
		body []byte
		err  error
	)
	switch f {
	case FormatCSV:
		body = renderCSV(entries)
	case FormatJSON:
		if entries == nil {
			entries = []Entry{}
		}
		body, err = json.MarshalIndent(entries, "", "  ")
		if err != nil {
			return nil, err
		}
	default:
		return nil, NewValidationError("format", "oneof", "must be one of: csv json")
	}

	return &Document{
		Name:        FileName(now, f),
		ContentType: f.ContentType(),
		Body:        body,
		Count:       len(entries),
	}, nil
}

// renderCSV quotes every field unconditionally, which encoding/csv cannot do.
func renderCSV(entries []Entry) []byte {
	var b strings.Builder
	writeCSVRow(&b, CSVColumns)
	for _, e := range entries {
		writeCSVRow(&b, []string{
			e.ID,
			e.CreatedAt.UTC().Format(time.RFC3339Nano),
			e.ActorID,
			e.Action,
			e.Module,
			e.EntityType,
			e.EntityID,
			string(e.Result),
			string(e.Severity),
			e.IP,
		})
	}
	return []byte(b.String())
}

func writeCSVRow(b *strings.Builder, fields []string) {
	for i, f := range fields {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteByte('"')
		b.WriteString(strings.ReplaceAll(f, `"`, `""`))
		b.WriteByte('"')
	}
	b.WriteByte('\n')
}
