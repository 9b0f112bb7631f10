package audit

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/viant/afs"
	"github.com/viant/afs/file"
)

// Export formats recognised by Export and ExportTo.
const (
	FormatJSON = "json"
	FormatCSV  = "csv"
)

// Export serialises the filtered trail as a JSON array or CSV document.
func (s *Service) Export(ctx context.Context, workspaceID, format string, filter *Filter) (string, error) {
	entries, err := s.Trail(ctx, workspaceID, filter)
	if err != nil {
		return "", err
	}
	switch format {
	case FormatJSON:
		data, err := json.MarshalIndent(entries, "", "  ")
		if err != nil {
			return "", fmt.Errorf("audit: failed to export %s: %w", workspaceID, err)
		}
		return string(data), nil
	case FormatCSV:
		return exportCSV(entries)
	}
	return "", fmt.Errorf("audit: unsupported export format %q", format)
}

func exportCSV(entries []*Entry) (string, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write([]string{"gate_id", "action", "user_id", "timestamp", "reason", "ip_address", "user_agent"}); err != nil {
		return "", err
	}
	for _, e := range entries {
		reason := ""
		if e.Details != nil {
			switch v := e.Details["reason"].(type) {
			case string:
				reason = v
			case float64:
				reason = strconv.FormatFloat(v, 'f', -1, 64)
			}
		}
		record := []string{
			e.GateID,
			e.Action,
			e.UserID,
			e.Timestamp.Format(time.RFC3339),
			reason,
			e.IPAddress,
			e.UserAgent,
		}
		if err := w.Write(record); err != nil {
			return "", err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// ExportTo uploads the export to a destination URL (file, s3, gs, mem)
// resolved through the abstract file storage layer.
func (s *Service) ExportTo(ctx context.Context, workspaceID, format, destURL string, filter *Filter) error {
	content, err := s.Export(ctx, workspaceID, format, filter)
	if err != nil {
		return err
	}
	fs := afs.New()
	if err := fs.Upload(ctx, destURL, file.DefaultFileOsMode, bytes.NewReader([]byte(content))); err != nil {
		return fmt.Errorf("audit: failed to upload export to %s: %w", destURL, err)
	}
	return nil
}
