package server

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"
)

// startFileWatcher initializes fsnotify watchers for recursive library dir monitoring.
func (vs *VideoServer) startFileWatcher() error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	vs.watcher = watcher

	// Start monitoring in a goroutine
	go vs.watchFiles()

	// Add every library root to the watcher
	for _, root := range vs.config.Library.Paths {
		if err := vs.addDirectoryToWatcher(root); err != nil {
			return err
		}
	}

	vs.logger.WithField("library_paths", vs.config.Library.Paths).Info("File watcher started")
	return nil
}

// addDirectoryToWatcher recursively walks and adds subdirectories to watcher.
func (vs *VideoServer) addDirectoryToWatcher(dir string) error {
	return filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return vs.watcher.Add(path)
		}
		return nil
	})
}

// watchFiles selects on watcher channels and dispatches events.
func (vs *VideoServer) watchFiles() {
	defer vs.watcher.Close()

	for {
		select {
		case event, ok := <-vs.watcher.Events:
			if !ok {
				return
			}
			vs.handleFileEvent(event)

		case err, ok := <-vs.watcher.Errors:
			if !ok {
				return
			}
			vs.logger.WithError(err).Error("File watcher error")
		}
	}
}

// handleFileEvent applies filtering & delegates creation/removal actions.
func (vs *VideoServer) handleFileEvent(event fsnotify.Event) {
	// Ignore temporary files and hidden files
	fileName := filepath.Base(event.Name)
	if strings.HasPrefix(fileName, ".") || strings.HasSuffix(fileName, ".tmp") {
		return
	}

	isVideoFile := vs.extractor.IsVideoFile(event.Name)

	switch {
	case event.Has(fsnotify.Create) && isVideoFile:
		// Dispatch new file processing asynchronously
		go func(name string) {
			time.Sleep(500 * time.Millisecond) // Ensure file is fully written
			vs.handleNewFile(name)
		}(event.Name)

	case event.Has(fsnotify.Remove) && isVideoFile:
		// Dispatch removal processing asynchronously
		go vs.handleRemovedFile(event.Name)

	case event.Has(fsnotify.Create):
		// Check if it's a new directory
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			vs.watcher.Add(event.Name)
			vs.logger.WithField("directory", event.Name).Info("Watching new directory")
		}
	}
}

// handleNewFile probes and inserts a new video if unseen.
func (vs *VideoServer) handleNewFile(filePath string) {
	vs.logger.WithField("file_path", filePath).Info("New video file detected")

	// Check if file already exists in database
	exists, err := vs.db.VideoExists(filePath)
	if err != nil {
		vs.logger.WithError(err).WithField("file_path", filePath).Error("Error checking if video exists")
		return
	}
	if exists {
		vs.logger.WithField("file_path", filePath).Debug("Video already exists in database")
		return
	}

	// Probe the file and add it to the database
	video, err := vs.scanner.ScanOne(context.Background(), filePath)
	if err != nil {
		vs.logger.WithError(err).WithField("file_path", filePath).Error("Error probing video")
		return
	}

	if err := vs.db.UpsertVideo(*video); err != nil {
		vs.logger.WithError(err).Error("Error inserting new video into database")
		return
	}

	vs.videoCache.Clear()
	vs.logger.WithFields(logrus.Fields{
		"title":    video.Title,
		"duration": video.FormattedDuration(),
	}).Info("Added new video")
}

// handleRemovedFile removes video rows referencing deleted files.
func (vs *VideoServer) handleRemovedFile(filePath string) {
	vs.logger.WithField("file_path", filePath).Info("Video file removed")

	if err := vs.db.DeleteVideoByPath(filePath); err != nil {
		vs.logger.WithError(err).WithField("file_path", filePath).Error("Error removing video from database")
		return
	}

	vs.videoCache.Clear()
	vs.logger.WithField("file_path", filePath).Info("Removed video from database")
}

// stopFileWatcher closes the watcher (idempotent).
func (vs *VideoServer) stopFileWatcher() {
	if vs.watcher != nil {
		vs.watcher.Close()
	}
}
