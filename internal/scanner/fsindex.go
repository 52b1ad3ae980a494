package scanner

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"sync"

	"montage/internal/metadata"

	"github.com/sirupsen/logrus"
)

// FSIndex is the default MediaIndex: it enumerates the configured library
// directories on the local filesystem and probes each file for technical
// metadata. Probe failures degrade the entry (zero duration and dimensions)
// rather than dropping the file from the index.
type FSIndex struct {
	roots     []string
	extractor *metadata.Extractor
	logger    *logrus.Logger
}

// NewFSIndex creates a filesystem media index over the given root directories.
func NewFSIndex(roots []string, extractor *metadata.Extractor) *FSIndex {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})

	return &FSIndex{
		roots:     roots,
		extractor: extractor,
		logger:    logger,
	}
}

// Entries walks every library root and returns one entry per supported
// video file, newest first (matching the platform index ordering).
func (idx *FSIndex) Entries(ctx context.Context) ([]Entry, error) {
	var mu sync.Mutex
	var entries []Entry
	var wg sync.WaitGroup
	jobs := make(chan string, 100)

	// Probe files concurrently; ffprobe dominates scan time
	numWorkers := runtime.NumCPU()
	for i := 0; i < numWorkers; i++ {
		go func() {
			for path := range jobs {
				entry := idx.buildEntry(ctx, path)
				mu.Lock()
				entries = append(entries, entry)
				mu.Unlock()
				wg.Done()
			}
		}()
	}

	var walkErr error
	for _, root := range idx.roots {
		err := filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
			if err != nil {
				idx.logger.WithError(err).WithField("path", path).Warn("Skipping unreadable path")
				return nil
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if !info.IsDir() && idx.extractor.IsVideoFile(path) {
				wg.Add(1)
				jobs <- path
			}
			return nil
		})
		if err != nil && walkErr == nil {
			walkErr = err
		}
	}

	close(jobs)
	wg.Wait()

	if walkErr != nil {
		return nil, walkErr
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].DateAdded > entries[j].DateAdded
	})
	return entries, nil
}

// buildEntry stats and probes one file. The stat already succeeded during
// the walk, so a failure here only costs the technical fields.
func (idx *FSIndex) buildEntry(ctx context.Context, path string) Entry {
	entry := Entry{
		Path:         path,
		DisplayName:  filepath.Base(path),
		BucketName:   filepath.Base(filepath.Dir(path)),
		RelativePath: filepath.Dir(path),
	}

	if info, err := os.Stat(path); err == nil {
		entry.Size = info.Size()
		entry.DateAdded = info.ModTime().Unix()
		entry.DateModified = info.ModTime().Unix()
	}

	probe, err := idx.extractor.ProbeFile(ctx, path)
	if err != nil {
		idx.logger.WithError(err).WithField("path", path).Warn("Probe failed, indexing without technical metadata")
		return entry
	}

	entry.Title = probe.Title
	entry.Duration = probe.Duration
	entry.Width = probe.Width
	entry.Height = probe.Height
	entry.FrameRate = probe.FrameRate
	entry.Bitrate = probe.Bitrate
	entry.HasSubtitles = probe.HasSubtitles
	return entry
}
