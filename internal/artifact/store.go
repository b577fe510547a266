package artifact

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"
)

var ErrNotFound = errors.New("artifact: not found")

// SiteStore keeps the generated demo site of each lead, one object per file.
type SiteStore interface {
	PutSite(ctx context.Context, leadID string, files map[string]string) error
	GetSite(ctx context.Context, leadID string) (map[string]string, error)
	// SiteURL returns a link to a stored file, or "" when the backend has none.
	SiteURL(ctx context.Context, leadID, name string) (string, error)
}

func objectKey(leadID, name string) (string, error) {
	leadID = strings.TrimSpace(leadID)
	if leadID == "" {
		return "", fmt.Errorf("artifact: lead id is required")
	}
	name = strings.TrimLeft(strings.TrimSpace(name), "/")
	if name == "" {
		return "", fmt.Errorf("artifact: file name is required")
	}
	clean := path.Clean(name)
	if clean == ".." || strings.HasPrefix(clean, "../") {
		return "", fmt.Errorf("artifact: file name %q escapes the site", name)
	}
	return "sites/" + leadID + "/" + clean, nil
}

func sitePrefix(leadID string) string {
	return "sites/" + strings.TrimSpace(leadID) + "/"
}

func contentType(name string) string {
	switch strings.ToLower(path.Ext(name)) {
	case ".html", ".htm":
		return "text/html; charset=utf-8"
	case ".css":
		return "text/css; charset=utf-8"
	case ".js":
		return "application/javascript"
	case ".svg":
		return "image/svg+xml"
	case ".json":
		return "application/json"
	default:
		return "text/plain; charset=utf-8"
	}
}
