package server

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// handleStreamVideo streams a library video by path with Range support.
// Only paths present in the library can be streamed.
func (vs *VideoServer) handleStreamVideo(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Query().Get("path")
	if path == "" {
		jsonError(w, "Missing path parameter", http.StatusBadRequest)
		return
	}

	// Look the video up so arbitrary filesystem paths cannot be read
	video, found := vs.videoCache.GetVideo("video:" + path)
	if !found {
		var err error
		video, err = vs.db.GetVideoByPath(path)
		if err != nil {
			jsonError(w, "Video not found", http.StatusNotFound)
			return
		}
		vs.videoCache.SetVideo("video:"+path, video)
	}

	file, err := os.Open(video.Path)
	if err != nil {
		vs.logger.WithError(err).WithField("path", video.Path).Error("Error opening video file")
		jsonError(w, "Error opening video file", http.StatusInternalServerError)
		return
	}
	defer file.Close()

	stat, err := file.Stat()
	if err != nil {
		jsonError(w, "Error reading file info", http.StatusInternalServerError)
		return
	}

	contentType := video.MimeType
	if contentType == "" {
		contentType = "video/" + strings.TrimPrefix(filepath.Ext(video.Path), ".")
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Length", fmt.Sprintf("%d", stat.Size()))
	w.Header().Set("Accept-Ranges", "bytes")

	// Handle range requests for seeking support
	rangeHeader := r.Header.Get("Range")
	if rangeHeader != "" {
		vs.handleRangeRequest(w, file, stat.Size(), rangeHeader)
		return
	}

	vs.logger.WithField("title", video.Title).Debug("Streaming video")
	if _, err := io.Copy(w, file); err != nil {
		vs.logger.WithError(err).Debug("Error streaming file")
	}
}

// handleRangeRequest implements simple single-range byte serving for seeking.
func (vs *VideoServer) handleRangeRequest(w http.ResponseWriter, file *os.File, fileSize int64, rangeHeader string) {
	// Parse range header (e.g., "bytes=0-1023")
	ranges := strings.TrimPrefix(rangeHeader, "bytes=")
	rangeParts := strings.Split(ranges, "-")

	start, err := strconv.ParseInt(rangeParts[0], 10, 64)
	if err != nil {
		start = 0
	}

	var end int64
	if len(rangeParts) > 1 && rangeParts[1] != "" {
		end, err = strconv.ParseInt(rangeParts[1], 10, 64)
		if err != nil {
			end = fileSize - 1
		}
	} else {
		end = fileSize - 1
	}

	// Validate range
	if start < 0 || end >= fileSize || start > end {
		w.Header().Set("Content-Range", fmt.Sprintf("bytes */%d", fileSize))
		jsonError(w, "Range Not Satisfiable", http.StatusRequestedRangeNotSatisfiable)
		return
	}

	// Set partial content headers
	contentLength := end - start + 1
	w.Header().Set("Content-Range", fmt.Sprintf("bytes %d-%d/%d", start, end, fileSize))
	w.Header().Set("Content-Length", fmt.Sprintf("%d", contentLength))
	w.WriteHeader(http.StatusPartialContent)

	// Seek to start position and copy the requested range
	file.Seek(start, io.SeekStart)
	io.CopyN(w, file, contentLength)
}
