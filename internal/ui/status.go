package ui

import (
	"encoding/json"
	"fmt"
	"io"
	"time"
)

// StatusInfo is the index health summary rendered by `docrag status`.
type StatusInfo struct {
	DocumentsDir string    `json:"documents_dir"`
	Files        int       `json:"files"`
	Chunks       int       `json:"chunks"`
	Dimensions   int       `json:"dimensions"`
	LastIndexed  time.Time `json:"last_indexed"`
	SnapshotSize int64     `json:"snapshot_size"`
	Embedder     string    `json:"embedder"`
	Reranker     string    `json:"reranker"`
}

// StatusRenderer displays index status.
type StatusRenderer struct {
	out    io.Writer
	styles Styles
}

// NewStatusRenderer creates a status renderer.
func NewStatusRenderer(out io.Writer, noColor bool) *StatusRenderer {
	return &StatusRenderer{out: out, styles: GetStyles(noColor)}
}

// Render writes the status in human-readable form.
func (r *StatusRenderer) Render(info StatusInfo) error {
	_, _ = fmt.Fprintf(r.out, "%s\n\n", r.styles.Header.Render("Index Status"))

	_, _ = fmt.Fprintf(r.out, "  Documents:    %s\n", info.DocumentsDir)
	_, _ = fmt.Fprintf(r.out, "  Files:        %d\n", info.Files)
	_, _ = fmt.Fprintf(r.out, "  Chunks:       %d\n", info.Chunks)
	_, _ = fmt.Fprintf(r.out, "  Dimensions:   %d\n", info.Dimensions)
	if !info.LastIndexed.IsZero() {
		_, _ = fmt.Fprintf(r.out, "  Last indexed: %s\n", formatTime(info.LastIndexed))
	}
	if info.SnapshotSize > 0 {
		_, _ = fmt.Fprintf(r.out, "  Snapshot:     %s\n", FormatBytes(info.SnapshotSize))
	}
	_, _ = fmt.Fprintln(r.out)
	_, _ = fmt.Fprintf(r.out, "  Embedder:     %s\n", info.Embedder)
	_, _ = fmt.Fprintf(r.out, "  Reranker:     %s\n", info.Reranker)
	return nil
}

// RenderJSON writes the status as indented JSON.
func (r *StatusRenderer) RenderJSON(info StatusInfo) error {
	enc := json.NewEncoder(r.out)
	enc.SetIndent("", "  ")
	return enc.Encode(info)
}

// formatTime renders a timestamp relative to now when it is recent.
func formatTime(t time.Time) string {
	elapsed := time.Since(t)
	switch {
	case elapsed < time.Minute:
		return "just now"
	case elapsed < time.Hour:
		return fmt.Sprintf("%d minutes ago", int(elapsed.Minutes()))
	case elapsed < 24*time.Hour:
		return fmt.Sprintf("%d hours ago", int(elapsed.Hours()))
	default:
		return t.Format("2006-01-02 15:04")
	}
}

// FormatBytes renders a byte count in binary units.
func FormatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
