package metadata

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/dhowden/tag"
	"github.com/sirupsen/logrus"
)

// Extractor handles metadata extraction from video files. Technical stream
// data comes from ffprobe; embedded container tags (MP4 title metadata) are
// read directly.
type Extractor struct {
	supportedFormats []string
	probeTimeout     time.Duration
	logger           *logrus.Logger
}

// Probe is the technical metadata ffprobe reports for one file.
type Probe struct {
	Title        string
	Duration     int64 // in milliseconds
	Width        int
	Height       int
	Bitrate      int64 // in bps
	FrameRate    float64
	HasSubtitles bool
}

// NewExtractor creates a new metadata extractor
func NewExtractor(supportedFormats []string, probeTimeout time.Duration) *Extractor {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})

	return &Extractor{
		supportedFormats: supportedFormats,
		probeTimeout:     probeTimeout,
		logger:           logger,
	}
}

// ProbeFile extracts technical metadata from a video file using ffprobe and
// fills in the title from embedded container tags when present.
func (e *Extractor) ProbeFile(ctx context.Context, filePath string) (Probe, error) {
	startTime := time.Now()

	probe, err := e.ffprobe(ctx, filePath)
	if err != nil {
		e.logger.WithFields(logrus.Fields{
			"filePath": filePath,
			"error":    err.Error(),
		}).Warn("ffprobe failed")
		return Probe{}, err
	}

	// Embedded tag title beats the filename, ffprobe's format tags lose to
	// neither. Tag read failures just mean no embedded title.
	if title, err := e.embeddedTitle(filePath); err == nil && title != "" {
		probe.Title = title
	}

	e.logger.WithFields(logrus.Fields{
		"filePath":       filePath,
		"duration":       probe.Duration,
		"width":          probe.Width,
		"height":         probe.Height,
		"processingTime": time.Since(startTime),
	}).Debug("Successfully probed video metadata")

	return probe, nil
}

// ffprobe invokes the ffprobe binary with JSON output and parses the format
// and stream sections.
func (e *Extractor) ffprobe(ctx context.Context, filePath string) (Probe, error) {
	ctx, cancel := context.WithTimeout(ctx, e.probeTimeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, "ffprobe",
		"-v", "quiet",
		"-print_format", "json",
		"-show_format",
		"-show_streams",
		filePath,
	)
	output, err := cmd.Output()
	if err != nil {
		return Probe{}, fmt.Errorf("ffprobe: %w", err)
	}

	var parsed struct {
		Format struct {
			Duration string            `json:"duration"`
			BitRate  string            `json:"bit_rate"`
			Tags     map[string]string `json:"tags"`
		} `json:"format"`
		Streams []struct {
			CodecType    string `json:"codec_type"`
			Width        int    `json:"width"`
			Height       int    `json:"height"`
			AvgFrameRate string `json:"avg_frame_rate"`
		} `json:"streams"`
	}
	if err := json.Unmarshal(output, &parsed); err != nil {
		return Probe{}, fmt.Errorf("parse ffprobe output: %w", err)
	}

	var probe Probe

	if parsed.Format.Duration != "" {
		if secs, err := strconv.ParseFloat(parsed.Format.Duration, 64); err == nil {
			probe.Duration = int64(secs * 1000)
		}
	}
	if parsed.Format.BitRate != "" {
		if bps, err := strconv.ParseInt(parsed.Format.BitRate, 10, 64); err == nil {
			probe.Bitrate = bps
		}
	}
	for k, v := range parsed.Format.Tags {
		if strings.ToLower(k) == "title" {
			probe.Title = v
		}
	}

	for _, stream := range parsed.Streams {
		switch stream.CodecType {
		case "video":
			if probe.Width == 0 {
				probe.Width = stream.Width
				probe.Height = stream.Height
				probe.FrameRate = parseFrameRate(stream.AvgFrameRate)
			}
		case "subtitle":
			probe.HasSubtitles = true
		}
	}

	return probe, nil
}

// embeddedTitle reads the title from embedded container tags (MP4/M4V).
func (e *Extractor) embeddedTitle(filePath string) (string, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return "", err
	}
	defer file.Close()

	metadata, err := tag.ReadFrom(file)
	if err != nil {
		return "", err
	}
	return metadata.Title(), nil
}

// parseFrameRate converts ffprobe's fractional rate ("30000/1001") to fps.
func parseFrameRate(raw string) float64 {
	if raw == "" || raw == "0/0" {
		return 0
	}
	parts := strings.SplitN(raw, "/", 2)
	if len(parts) == 1 {
		fps, _ := strconv.ParseFloat(parts[0], 64)
		return fps
	}
	num, err1 := strconv.ParseFloat(parts[0], 64)
	den, err2 := strconv.ParseFloat(parts[1], 64)
	if err1 != nil || err2 != nil || den == 0 {
		return 0
	}
	return num / den
}

// IsVideoFile checks if a file is a supported video format
func (e *Extractor) IsVideoFile(filePath string) bool {
	ext := strings.ToLower(filepath.Ext(filePath))
	for _, format := range e.supportedFormats {
		if ext == format {
			return true
		}
	}
	return false
}

// ContentType returns the MIME type for a video file based on its extension.
func ContentType(extension string) string {
	switch strings.ToLower(strings.TrimPrefix(extension, ".")) {
	case "mp4", "m4v":
		return "video/mp4"
	case "avi":
		return "video/avi"
	case "mkv":
		return "video/mkv"
	case "webm":
		return "video/webm"
	case "mov":
		return "video/mov"
	case "wmv":
		return "video/wmv"
	case "flv":
		return "video/flv"
	case "3gp":
		return "video/3gp"
	case "mpg", "mpeg":
		return "video/mpeg"
	case "ogv":
		return "video/ogv"
	case "ts":
		return "video/ts"
	case "vob":
		return "video/vob"
	default:
		return "video/*"
	}
}
