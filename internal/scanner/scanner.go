// Package scanner walks a media index and turns its entries into Video and
// Folder records. The index itself is a collaborator: the default
// implementation enumerates the configured library directories, but tests
// (and other platforms) can supply their own.
package scanner

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"montage/internal/metadata"
	"montage/pkg/models"

	"github.com/sirupsen/logrus"
)

// Entry is one row of the media index: the raw per-file facts the scanner
// converts into a Video record. Dates are in epoch seconds, the way the
// index stores them; durations are in milliseconds.
type Entry struct {
	Path         string
	DisplayName  string
	Title        string
	Size         int64
	Duration     int64
	DateAdded    int64
	DateModified int64
	MimeType     string
	Width        int
	Height       int
	BucketName   string // display name of the containing folder
	RelativePath string // path of the containing folder
	HasSubtitles bool
	FrameRate    float64
	Bitrate      int64
}

// MediaIndex enumerates every video entry the platform knows about.
type MediaIndex interface {
	Entries(ctx context.Context) ([]Entry, error)
}


// Scanner converts media index entries into library records.
type Scanner struct {
	index     MediaIndex
	extractor *metadata.Extractor
	logger    *logrus.Logger
}

// NewScanner creates a scanner over the given media index.
func NewScanner(index MediaIndex, extractor *metadata.Extractor) *Scanner {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})

	return &Scanner{
		index:     index,
		extractor: extractor,
		logger:    logger,
	}
}

// ScanAll enumerates the whole media index and produces the video list and
// the folder aggregates in a single pass. Individual entry failures are
// skipped; the scan never fails on one bad file. This is a full-replacement
// scan: the caller is expected to swap the produced records in for whatever
// was persisted before. onProgress is invoked synchronously after every
// entry; callers decide how often to act on it, the scanner never throttles.
func (s *Scanner) ScanAll(ctx context.Context, onProgress func(processed, total int)) ([]models.Video, []models.Folder, error) {
	entries, err := s.index.Entries(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to enumerate media index: %w", err)
	}

	now := time.Now().UnixMilli()
	total := len(entries)
	videos := make([]models.Video, 0, total)
	folderIndex := make(map[string]int)
	var folders []models.Folder

	for processed, entry := range entries {
		video, err := videoFromEntry(entry)
		if err != nil {
			s.logger.WithError(err).WithField("path", entry.Path).Warn("Skipping unreadable index entry")
		} else {
			videos = append(videos, video)

			// Accumulate folder aggregates in the same pass
			if i, ok := folderIndex[video.Folder]; ok {
				folders[i].VideoCount++
				folders[i].TotalDuration += video.Duration
				folders[i].TotalSize += video.Size
			} else {
				folderIndex[video.Folder] = len(folders)
				folders = append(folders, models.Folder{
					Path:          video.Folder,
					Name:          video.FolderName,
					VideoCount:    1,
					TotalDuration: video.Duration,
					TotalSize:     video.Size,
					LastScanned:   now,
				})
			}
		}

		if onProgress != nil {
			onProgress(processed+1, total)
		}
	}

	return videos, folders, nil
}

// ScanOne inspects a single file directly, reading its embedded metadata
// rather than consulting the index. Any failure (missing file, unreadable
// metadata) yields no video.
func (s *Scanner) ScanOne(ctx context.Context, filePath string) (*models.Video, error) {
	info, err := os.Stat(filePath)
	if err != nil {
		return nil, fmt.Errorf("video file not found: %w", err)
	}

	probe, err := s.extractor.ProbeFile(ctx, filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to probe %s: %w", filePath, err)
	}

	displayName := filepath.Base(filePath)
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(displayName)), ".")
	title := probe.Title
	if title == "" {
		title = strings.TrimSuffix(displayName, filepath.Ext(displayName))
	}

	parent := filepath.Dir(filePath)
	resolution, aspectRatio := deriveDimensions(probe.Width, probe.Height)

	video := &models.Video{
		Path:         filePath,
		Title:        title,
		DisplayName:  displayName,
		Duration:     probe.Duration,
		Size:         info.Size(),
		DateAdded:    time.Now().UnixMilli(),
		DateModified: info.ModTime().UnixMilli(),
		MimeType:     metadata.ContentType(ext),
		Resolution:   resolution,
		Folder:       parent,
		FolderName:   filepath.Base(parent),
		IsVideo:      true,
		Format:       ext,
		AspectRatio:  aspectRatio,
		FrameRate:    probe.FrameRate,
		Bitrate:      probe.Bitrate,
		HasSubtitles: probe.HasSubtitles,
	}
	return video, nil
}

// videoFromEntry converts one index row into a Video record.
func videoFromEntry(entry Entry) (models.Video, error) {
	if entry.Path == "" {
		return models.Video{}, fmt.Errorf("index entry has no path")
	}

	displayName := entry.DisplayName
	if displayName == "" {
		displayName = filepath.Base(entry.Path)
	}
	title := entry.Title
	if title == "" {
		title = displayName
	}

	dateAdded := entry.DateAdded * 1000
	if entry.DateAdded == 0 {
		dateAdded = time.Now().UnixMilli()
	}
	dateModified := entry.DateModified * 1000
	if entry.DateModified == 0 {
		dateModified = time.Now().UnixMilli()
	}

	folderName := entry.BucketName
	folder := entry.RelativePath
	if folder == "" {
		folder = folderName
	}

	ext := ""
	if i := strings.LastIndex(displayName, "."); i >= 0 && i < len(displayName)-1 {
		ext = strings.ToLower(displayName[i+1:])
	}

	mimeType := entry.MimeType
	if mimeType == "" {
		mimeType = metadata.ContentType(ext)
	}

	resolution, aspectRatio := deriveDimensions(entry.Width, entry.Height)

	return models.Video{
		Path:         entry.Path,
		Title:        title,
		DisplayName:  displayName,
		Duration:     entry.Duration,
		Size:         entry.Size,
		DateAdded:    dateAdded,
		DateModified: dateModified,
		MimeType:     mimeType,
		Resolution:   resolution,
		Folder:       folder,
		FolderName:   folderName,
		IsVideo:      true,
		Format:       ext,
		AspectRatio:  aspectRatio,
		FrameRate:    entry.FrameRate,
		Bitrate:      entry.Bitrate,
		HasSubtitles: entry.HasSubtitles,
	}, nil
}

// deriveDimensions produces the "WxH" resolution and the GCD-reduced "W:H"
// aspect ratio. Both are empty when either dimension is missing.
func deriveDimensions(width, height int) (resolution, aspectRatio string) {
	if width <= 0 || height <= 0 {
		return "", ""
	}
	divisor := gcd(width, height)
	return fmt.Sprintf("%dx%d", width, height),
		fmt.Sprintf("%d:%d", width/divisor, height/divisor)
}

func gcd(a, b int) int {
	for b != 0 {
		a, b = b, a%b
	}
	return a
}
