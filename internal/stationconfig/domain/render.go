package domain

import (
	"bytes"
	"fmt"
	"time"
)

// RenderInfo is written into the header of the materialized file.
type RenderInfo struct {
	Operator string
	Hostname string
	At       time.Time
}

// Render materializes the document as the INI text read by the station service.
func Render(doc *Document, info RenderInfo) []byte {
	var buf bytes.Buffer
	_, _ = fmt.Fprintf(&buf, "# YateBTS configuration v%d managed by btsguard\n", doc.Version)
	_, _ = fmt.Fprintf(&buf, "# Digest: %s\n", doc.Digest)
	_, _ = fmt.Fprintf(&buf, "# Last modified: %s\n", info.At.Format("2006-01-02 15:04:05"))
	_, _ = fmt.Fprintf(&buf, "# Authorized operators: %s@%s\n", info.Operator, info.Hostname)

	for _, section := range doc.Content {
		_, _ = fmt.Fprintf(&buf, "\n[%s]\n", section.Name)
		for _, field := range section.Fields {
			_, _ = fmt.Fprintf(&buf, "%s=%s\n", field.Key, field.Value.INI())
		}
	}
	return buf.Bytes()
}
