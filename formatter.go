package listgrab

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"strings"
)

// Format selects an output representation for a Listing.
type Format string

// Format constants for FormatListing.
const (
	FormatJSON Format = "json"
	FormatText Format = "text"
	FormatCSV  Format = "csv"
)

// Formats lists the supported formats.
func Formats() []Format {
	return []Format{FormatJSON, FormatText, FormatCSV}
}

// ParseFormat validates s as a Format. The empty string selects FormatJSON.
// Returns EINVALID for unknown formats.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case "":
		return FormatJSON, nil
	case FormatJSON, FormatText, FormatCSV:
		return f, nil
	}
	return "", Errorf(EINVALID, "unknown output format %q (valid: %s)", s, FormatNames(", "))
}

// FormatNames joins the names of the supported formats with sep.
func FormatNames(sep string) string {
	names := make([]string, 0, len(Formats()))
	for _, f := range Formats() {
		names = append(names, string(f))
	}
	return strings.Join(names, sep)
}

// FormatListing renders l in the given format. It never fails.
// Formats are validated with ParseFormat at the boundary; anything else
// is rendered as JSON.
func FormatListing(l Listing, f Format) string {
	switch f {
	case FormatText:
		return formatText(l)
	case FormatCSV:
		return formatCSV(l)
	default:
		return formatJSON(l)
	}
}

func formatJSON(l Listing) string {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	// Listing holds only strings; encoding cannot fail.
	_ = enc.Encode(l)
	return strings.TrimSuffix(buf.String(), "\n")
}

func formatText(l Listing) string {
	var b strings.Builder
	rule := strings.Repeat("=", 60)
	b.WriteString(rule)
	b.WriteString("\nLISTING\n")
	b.WriteString(rule)
	b.WriteString("\n")

	var description Field
	for _, f := range l.Fields() {
		if f.Key == "description" {
			description = f
			continue
		}
		if !f.Present() {
			continue
		}
		b.WriteString(f.Label)
		b.WriteString(": ")
		b.WriteString(f.Value)
		b.WriteString("\n")
	}

	if description.Value != "" {
		b.WriteString("\nDescription:\n")
		b.WriteString(strings.Repeat("-", 60))
		b.WriteString("\n")
		b.WriteString(description.Value)
		b.WriteString("\n")
	}

	b.WriteString(rule)
	return b.String()
}

func formatCSV(l Listing) string {
	fields := l.Fields()
	header := make([]string, 0, len(fields))
	row := make([]string, 0, len(fields))
	for _, f := range fields {
		header = append(header, f.Key)
		row = append(row, f.Value)
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	// Writes go to memory and cannot fail.
	_ = w.Write(header)
	_ = w.Write(row)
	w.Flush()
	return strings.TrimSuffix(buf.String(), "\n")
}
