package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/snacktacular/snacktacular/backend/go-services/internal/place"
	"github.com/snacktacular/snacktacular/backend/go-services/pkg/logger"
)

const snapshotURLTTL = 15 * time.Minute

// Uploader is the part of MinIOStorage the snapshot writer needs.
type Uploader interface {
	UploadFile(ctx context.Context, key string, reader io.Reader, size int64, contentType string) error
	GetPresignedURL(ctx context.Context, key string, expires time.Duration) (string, error)
}

// Snapshot describes one exported copy of the place list.
type Snapshot struct {
	Key   string    `json:"key"`
	Count int       `json:"count"`
	Taken time.Time `json:"taken"`
	URL   string    `json:"url,omitempty"`
}

type snapshotBody struct {
	Taken  time.Time      `json:"taken"`
	Places []place.Record `json:"places"`
}

// SnapshotWriter exports place lists as JSON objects under places/.
type SnapshotWriter struct {
	up  Uploader
	now func() time.Time
}

func NewSnapshotWriter(up Uploader) *SnapshotWriter {
	return &SnapshotWriter{up: up, now: time.Now}
}

// Write uploads places and returns where they went. A failure to presign
// the download link is logged and leaves URL empty.
func (w *SnapshotWriter) Write(ctx context.Context, places []place.Record) (Snapshot, error) {
	taken := w.now().UTC()
	if places == nil {
		places = []place.Record{}
	}
	b, err := json.Marshal(snapshotBody{Taken: taken, Places: places})
	if err != nil {
		return Snapshot{}, fmt.Errorf("encode snapshot: %w", err)
	}
	key := fmt.Sprintf("places/snapshot-%s.json", taken.Format("20060102T150405.000Z"))
	if err := w.up.UploadFile(ctx, key, bytes.NewReader(b), int64(len(b)), "application/json"); err != nil {
		logger.Errorf("snapshot: upload %s failed: %v", key, err)
		return Snapshot{}, fmt.Errorf("upload snapshot: %w", err)
	}
	snap := Snapshot{Key: key, Count: len(places), Taken: taken}
	if u, err := w.up.GetPresignedURL(ctx, key, snapshotURLTTL); err != nil {
		logger.Warnf("snapshot: presign %s failed: %v", key, err)
	} else {
		snap.URL = u
	}
	logger.Infof("snapshot: wrote %d places to %s", snap.Count, key)
	return snap, nil
}
