package delivery

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"BeatStudio/logger"
	"BeatStudio/model"

	"github.com/fsnotify/fsnotify"
)

// TrackStore is the slice of the recording repository the watcher needs.
type TrackStore interface {
	GetByID(ctx context.Context, id int64) (*model.Recording, error)
	SetDeliveredTrack(ctx context.Context, id int64, trackPath string) error
}

// UploadFunc pushes a finished track into object storage and returns its key.
type UploadFunc func(ctx context.Context, objectName string, reader io.Reader, size int64, contentType string) (string, error)

// Watcher picks up finished studio tracks dropped into a local directory.
// Engineers export a file named <recordingID>.<ext>; the watcher uploads it
// to object storage, marks the recording completed and removes the local copy.
type Watcher struct {
	dir       string
	store     TrackStore
	upload    UploadFunc
	objPrefix string

	// 已处理的文件追踪
	processed sync.Map
}

// NewWatcher creates a watcher over dir. objPrefix is prepended to uploaded
// object keys, e.g. "delivered/".
func NewWatcher(dir string, store TrackStore, upload UploadFunc, objPrefix string) *Watcher {
	return &Watcher{dir: dir, store: store, upload: upload, objPrefix: objPrefix}
}

// Run watches the delivery directory until ctx is cancelled. Files already
// present at startup are handled first, so deliveries made while the server
// was down are not lost.
func (w *Watcher) Run(ctx context.Context) error {
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return fmt.Errorf("failed to create delivery dir %s: %w", w.dir, err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create delivery watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(w.dir); err != nil {
		return fmt.Errorf("failed to watch delivery dir %s: %w", w.dir, err)
	}

	// Sweep files that were dropped before the watcher started.
	entries, err := os.ReadDir(w.dir)
	if err != nil {
		return fmt.Errorf("failed to read delivery dir %s: %w", w.dir, err)
	}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		w.Deliver(ctx, filepath.Join(w.dir, entry.Name()))
	}

	// 文件稳定性检查的延迟队列
	pendingFiles := make(map[string]time.Time)
	checkTicker := time.NewTicker(200 * time.Millisecond)
	defer checkTicker.Stop()

	logger.Info("Delivery watcher started", logger.String("dir", w.dir))

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) != 0 {
				pendingFiles[event.Name] = time.Now()
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Error("Delivery watcher error", logger.ErrorField(err))

		case <-checkTicker.C:
			now := time.Now()
			for path, lastModTime := range pendingFiles {
				// 文件可能还在写入
				if now.Sub(lastModTime) < 500*time.Millisecond {
					continue
				}
				delete(pendingFiles, path)
				w.Deliver(ctx, path)
			}
		}
	}
}

// Deliver processes a single dropped file. Errors are logged, not returned:
// a malformed file must not stop the watcher.
func (w *Watcher) Deliver(ctx context.Context, path string) {
	name := filepath.Base(path)
	if _, loaded := w.processed.LoadOrStore(name, true); loaded {
		return
	}

	recordingID, err := parseRecordingID(name)
	if err != nil {
		logger.Warn("Ignoring delivery file with unparseable name", logger.String("file", name))
		w.processed.Delete(name)
		return
	}

	if err := w.deliver(ctx, path, name, recordingID); err != nil {
		logger.Error("Failed to deliver track",
			logger.String("file", name),
			logger.Int64("recordingId", recordingID),
			logger.ErrorField(err))
		w.processed.Delete(name)
		return
	}

	logger.Info("Track delivered",
		logger.Int64("recordingId", recordingID),
		logger.String("file", name))
}

func (w *Watcher) deliver(ctx context.Context, path, name string, recordingID int64) error {
	rec, err := w.store.GetByID(ctx, recordingID)
	if err != nil {
		return fmt.Errorf("failed to load recording %d: %w", recordingID, err)
	}
	if rec == nil {
		return fmt.Errorf("recording %d does not exist", recordingID)
	}
	// Only paid work gets delivered. A file for a pending or cancelled
	// recording stays in the directory for the engineer to sort out.
	if rec.Status != model.RecordingPaid && rec.Status != model.RecordingInProgress {
		return fmt.Errorf("recording %d has status %q, not deliverable", recordingID, rec.Status)
	}

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("failed to stat %s: %w", path, err)
	}

	objectName := w.objPrefix + name
	if _, err := w.upload(ctx, objectName, f, info.Size(), contentTypeFor(name)); err != nil {
		return fmt.Errorf("failed to upload %s: %w", objectName, err)
	}

	if err := w.store.SetDeliveredTrack(ctx, recordingID, objectName); err != nil {
		return fmt.Errorf("failed to record delivery of %d: %w", recordingID, err)
	}

	f.Close()
	if err := os.Remove(path); err != nil {
		logger.Warn("Failed to remove delivered file", logger.String("file", path), logger.ErrorField(err))
	}
	return nil
}

// parseRecordingID extracts the numeric recording ID from a file name like
// "42.wav".
func parseRecordingID(name string) (int64, error) {
	base := strings.TrimSuffix(name, filepath.Ext(name))
	id, err := strconv.ParseInt(base, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("file name %q does not start with a recording ID", name)
	}
	return id, nil
}

func contentTypeFor(name string) string {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".mp3":
		return "audio/mpeg"
	case ".wav":
		return "audio/wav"
	case ".flac":
		return "audio/flac"
	case ".aac":
		return "audio/aac"
	case ".ogg":
		return "audio/ogg"
	default:
		return "application/octet-stream"
	}
}
