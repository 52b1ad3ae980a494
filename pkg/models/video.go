package models

import "fmt"

// Video represents one physical media file in the library. The path is the
// identity of the record; every other field can be rewritten by a rescan.
type Video struct {
	Path            string  `json:"path"`
	Title           string  `json:"title"`
	DisplayName     string  `json:"displayName"`
	Duration        int64   `json:"duration"` // in milliseconds
	Size            int64   `json:"size"`     // in bytes
	DateAdded       int64   `json:"dateAdded"`    // epoch milliseconds
	DateModified    int64   `json:"dateModified"` // epoch milliseconds
	MimeType        string  `json:"mimeType"`
	Resolution      string  `json:"resolution,omitempty"` // e.g. "1920x1080"
	Thumbnail       string  `json:"thumbnail,omitempty"`
	Folder          string  `json:"folder"`     // parent folder path
	FolderName      string  `json:"folderName"` // parent folder display name
	IsVideo         bool    `json:"isVideo"`
	Format          string  `json:"format,omitempty"`      // file extension, lowercased
	AspectRatio     string  `json:"aspectRatio,omitempty"` // e.g. "16:9"
	FrameRate       float64 `json:"frameRate,omitempty"`   // frames per second
	Bitrate         int64   `json:"bitrate,omitempty"`     // in bps
	HasSubtitles    bool    `json:"hasSubtitles"`
	IsWatched       bool    `json:"isWatched"`
	IsFavorite      bool    `json:"isFavorite"`
	LastWatchedTime *int64  `json:"lastWatchedTime,omitempty"` // epoch milliseconds
	WatchProgress   float64 `json:"watchProgress"`             // 0.0 to 1.0
}

// IsPartiallyWatched reports whether playback was started but not finished.
func (v Video) IsPartiallyWatched() bool {
	return v.WatchProgress > 0 && v.WatchProgress < 1
}

// FormattedDuration renders the duration as h:mm:ss or m:ss.
func (v Video) FormattedDuration() string {
	return formatDuration(v.Duration)
}

// FormattedSize renders the file size in human-readable units.
func (v Video) FormattedSize() string {
	return formatFileSize(v.Size)
}

// Folder is an aggregate over all videos sharing a parent directory. The
// count and totals are recomputed from scratch on every full scan; IsHidden
// is user-set and survives rescans.
type Folder struct {
	Path          string `json:"path"`
	Name          string `json:"name"`
	VideoCount    int    `json:"videoCount"`
	TotalDuration int64  `json:"totalDuration"` // in milliseconds
	TotalSize     int64  `json:"totalSize"`     // in bytes
	LastScanned   int64  `json:"lastScanned"`   // epoch milliseconds
	IsHidden      bool   `json:"isHidden"`
}

// FormattedTotalDuration renders the aggregate duration as h:mm:ss or m:ss.
func (f Folder) FormattedTotalDuration() string {
	return formatDuration(f.TotalDuration)
}

// FormattedTotalSize renders the aggregate size in human-readable units.
func (f Folder) FormattedTotalSize() string {
	return formatFileSize(f.TotalSize)
}

// PlaybackState is the playback engine's per-title resume state. Keyed by
// the media title the player reports, not by path.
type PlaybackState struct {
	MediaTitle        string  `json:"mediaTitle"`
	LastPosition      int64   `json:"lastPosition"` // in seconds
	PlaybackSpeed     float64 `json:"playbackSpeed"`
	SubDelay          int     `json:"subDelay"` // in milliseconds
	SecondarySubDelay int     `json:"secondarySubDelay"`
	AudioDelay        int     `json:"audioDelay"`
	SubSpeed          float64 `json:"subSpeed"`
}

// CustomButton is a user-defined on-screen control. SortIndex orders buttons
// in the presentation layer.
type CustomButton struct {
	ID               int64  `json:"id"`
	Title            string `json:"title"`
	Content          string `json:"content"`
	LongPressContent string `json:"longPressContent"`
	SortIndex        int    `json:"sortIndex"`
}

// LibraryStats summarizes the whole library.
type LibraryStats struct {
	TotalVideos   int   `json:"totalVideos"`
	TotalSize     int64 `json:"totalSize"`
	TotalDuration int64 `json:"totalDuration"`
}

func formatDuration(durationMs int64) string {
	seconds := durationMs / 1000
	hours := seconds / 3600
	minutes := (seconds % 3600) / 60
	secs := seconds % 60

	if hours > 0 {
		return fmt.Sprintf("%d:%02d:%02d", hours, minutes, secs)
	}
	return fmt.Sprintf("%d:%02d", minutes, secs)
}

func formatFileSize(bytes int64) string {
	units := []string{"B", "KB", "MB", "GB", "TB"}
	size := float64(bytes)
	unitIndex := 0

	for size >= 1024 && unitIndex < len(units)-1 {
		size /= 1024
		unitIndex++
	}

	return fmt.Sprintf("%.1f %s", size, units[unitIndex])
}
