// Package upload hands generated thumbnails to the simple-content service as
// derived content of the original.
package upload

import (
	"context"
	"fmt"
	"image"
	_ "image/jpeg"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	simplecontent "github.com/tendant/simple-content/pkg/simplecontent"

	"github.com/tendant/thumbcache/internal/cache"
	"github.com/tendant/thumbcache/internal/media"
)

// contentService is the part of simplecontent.Service the client needs.
type contentService interface {
	GetContent(ctx context.Context, id uuid.UUID) (*simplecontent.Content, error)
	UploadDerivedContent(ctx context.Context, req simplecontent.UploadDerivedContentRequest) (*simplecontent.Content, error)
}

// Client coordinates thumbnail uploads with the simple-content domain service.
type Client struct {
	svc     contentService
	backend string
	logger  *slog.Logger
}

// NewClient wraps a simple-content service with the configured default storage backend.
func NewClient(svc contentService, defaultBackend string, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{svc: svc, backend: defaultBackend, logger: logger}
}

// NotReadyError means the parent content cannot have derivations yet.
type NotReadyError struct {
	ContentID uuid.UUID
	Status    string
}

func (e *NotReadyError) Error() string {
	return fmt.Sprintf("parent content %s status is '%s', expected '%s'", e.ContentID, e.Status, simplecontent.ContentStatusUploaded)
}

// Uploaded describes one thumbnail stored as derived content.
type Uploaded struct {
	Size      string
	Variant   string
	ContentID uuid.UUID
	Width     int
	Height    int
}

// Variant is the derived content variant name for a thumbnail size.
func Variant(s cache.Size) string {
	return "thumbnail_" + s.Name
}

// SyncThumbnailSet uploads both thumbnails of set as derived content of parentID.
// It stops at the first failed upload.
func (c *Client) SyncThumbnailSet(ctx context.Context, parentID uuid.UUID, set cache.ThumbnailSet) ([]Uploaded, error) {
	parent, err := c.svc.GetContent(ctx, parentID)
	if err != nil {
		return nil, fmt.Errorf("fetch content: %w", err)
	}
	if parent.Status != string(simplecontent.ContentStatusUploaded) {
		return nil, &NotReadyError{ContentID: parentID, Status: parent.Status}
	}

	out := make([]Uploaded, 0, len(cache.Sizes))
	for _, size := range cache.Sizes {
		u, err := c.uploadOne(ctx, parent, size, set.Path(size))
		if err != nil {
			return out, fmt.Errorf("upload %s thumbnail: %w", size.Name, err)
		}
		c.logger.Info("thumbnail uploaded", "parent_id", parentID, "variant", u.Variant, "content_id", u.ContentID)
		out = append(out, u)
	}
	return out, nil
}

func (c *Client) uploadOne(ctx context.Context, parent *simplecontent.Content, size cache.Size, path string) (Uploaded, error) {
	file, err := os.Open(path)
	if err != nil {
		return Uploaded{}, &media.IOError{Op: "open", Path: path, Err: err}
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return Uploaded{}, &media.IOError{Op: "stat", Path: path, Err: err}
	}
	cfg, _, err := image.DecodeConfig(file)
	if err != nil {
		return Uploaded{}, &media.DecodeError{Format: "jpeg", Detail: "read thumbnail dimensions", Err: err}
	}
	if _, err := file.Seek(0, io.SeekStart); err != nil {
		return Uploaded{}, &media.IOError{Op: "seek", Path: path, Err: err}
	}

	mimeType, err := media.Sniff(path)
	if err != nil {
		mimeType = "image/jpeg"
	}

	variant := Variant(size)
	derived, err := c.svc.UploadDerivedContent(ctx, simplecontent.UploadDerivedContentRequest{
		ParentID:           parent.ID,
		OwnerID:            parent.OwnerID,
		TenantID:           parent.TenantID,
		DerivationType:     "thumbnail",
		Variant:            variant,
		StorageBackendName: c.backend,
		Reader:             file,
		FileName:           filepath.Base(path),
		FileSize:           info.Size(),
		Tags:               []string{"thumbnail"},
		Metadata: map[string]interface{}{
			"width":     cfg.Width,
			"height":    cfg.Height,
			"mime_type": mimeType,
		},
	})
	if err != nil {
		return Uploaded{}, fmt.Errorf("upload derived content: %w", err)
	}

	return Uploaded{
		Size:      size.Name,
		Variant:   variant,
		ContentID: derived.ID,
		Width:     cfg.Width,
		Height:    cfg.Height,
	}, nil
}
