package server

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"montage/internal/cache"
	"montage/internal/config"
	"montage/internal/database"
	"montage/internal/library"
	"montage/internal/metadata"
	"montage/internal/ngrok"
	"montage/internal/preferences"
	"montage/internal/scanner"

	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"
)

// VideoServer represents the main video library server
type VideoServer struct {
	db           *database.Database
	config       *config.Config
	logger       *logrus.Logger
	watcher      *fsnotify.Watcher
	extractor    *metadata.Extractor
	scanner      *scanner.Scanner
	controller   *library.Controller
	videoCache   *cache.VideoCache
	ngrokService *ngrok.Service
	mux          *http.ServeMux
}

// NewVideoServer creates a new video server instance
func NewVideoServer(cfg *config.Config, db *database.Database) (*VideoServer, error) {
	logger := newLogger(&cfg.Logging)

	// Create ngrok service
	ngrokSvc, err := ngrok.NewService(&cfg.Ngrok)
	if err != nil {
		logger.WithError(err).Warn("Ngrok service not available")
		ngrokSvc = nil
	}

	extractor := metadata.NewExtractor(cfg.Library.SupportedFormats, time.Duration(cfg.Library.ProbeTimeout)*time.Second)
	index := scanner.NewFSIndex(cfg.Library.Paths, extractor)
	scan := scanner.NewScanner(index, extractor)
	prefs := preferences.NewLibrary(db)

	server := &VideoServer{
		db:           db,
		config:       cfg,
		logger:       logger,
		extractor:    extractor,
		scanner:      scan,
		controller:   library.NewController(db, prefs, scan),
		videoCache:   cache.NewVideoCache(),
		ngrokService: ngrokSvc,
		mux:          http.NewServeMux(),
	}
	server.setupRoutes()

	return server, nil
}

// newLogger builds a logrus logger from the logging configuration.
func newLogger(cfg *config.LoggingConfig) *logrus.Logger {
	logger := logrus.New()

	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)

	if cfg.Format == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{})
	}

	if cfg.File != "" {
		file, err := os.OpenFile(cfg.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			logger.WithError(err).Warn("Could not open log file, using stderr")
		} else {
			logger.SetOutput(file)
		}
	}

	return logger
}

// Controller exposes the library state controller for direct embedding.
func (vs *VideoServer) Controller() *library.Controller {
	return vs.controller
}

// ScanOnStartup runs a full library scan if enabled in the configuration.
func (vs *VideoServer) ScanOnStartup() {
	if !vs.config.Library.ScanOnStartup {
		vs.logger.Info("Skipping library scan (disabled in config)")
		return
	}

	jobID, started := vs.controller.ScanLibrary()
	if started {
		vs.logger.WithField("job_id", jobID).Info("Startup library scan started")
	}
}

// Start starts the video server and blocks until it exits.
func (vs *VideoServer) Start() error {
	// Start file watcher if enabled
	if vs.config.Library.WatchForChanges {
		if err := vs.startFileWatcher(); err != nil {
			vs.logger.WithError(err).Warn("Could not start file watcher")
		} else {
			defer vs.stopFileWatcher()
		}
	}

	// Get video count from database
	stats, err := vs.db.GetLibraryStats()
	if err == nil {
		vs.logger.WithField("video_count", stats.TotalVideos).Info("Video library loaded")
	}

	localAddress := fmt.Sprintf("http://%s", vs.config.GetAddress())
	vs.logger.WithField("address", localAddress).Info("Montage server starting")

	// Start ngrok tunnel if enabled
	if vs.ngrokService != nil {
		ctx := context.Background()
		if err := vs.ngrokService.StartTunnel(ctx, localAddress); err != nil {
			vs.logger.WithError(err).Warn("Could not start ngrok tunnel")
		} else {
			defer vs.ngrokService.Stop()
		}
	}

	handler := vs.panicRecoveryMiddleware(vs.corsMiddleware(vs.requestLoggingMiddleware(vs.mux)))

	server := &http.Server{
		Addr:        vs.config.GetAddress(),
		Handler:     handler,
		ReadTimeout: time.Duration(vs.config.Server.ReadTimeout) * time.Second,
	}

	return server.ListenAndServe()
}

func (vs *VideoServer) setupRoutes() {
	vs.mux.HandleFunc("/api/videos", vs.handleGetVideos)
	vs.mux.HandleFunc("/api/videos/count", vs.handleGetVideoCount)
	vs.mux.HandleFunc("/api/videos/favorite", vs.handleToggleFavorite)
	vs.mux.HandleFunc("/api/videos/progress", vs.handleUpdateProgress)
	vs.mux.HandleFunc("/api/videos/watched", vs.handleSetWatched)
	vs.mux.HandleFunc("/api/videos/delete", vs.handleDeleteVideo)
	vs.mux.HandleFunc("/api/folders", vs.handleGetFolders)
	vs.mux.HandleFunc("/api/folders/hide", vs.handleHideFolder)
	vs.mux.HandleFunc("/api/stats", vs.handleGetStats)
	vs.mux.HandleFunc("/api/scan", vs.handleScan)
	vs.mux.HandleFunc("/stream", vs.handleStreamVideo)
	vs.mux.HandleFunc("/health", vs.handleHealthCheck)

	// Library state routes
	vs.mux.HandleFunc("/api/state", vs.handleGetState)
	vs.mux.HandleFunc("/api/state/events", vs.handleStateEvents)
	vs.mux.HandleFunc("/api/state/search", vs.handleSetSearch)
	vs.mux.HandleFunc("/api/state/sort", vs.handleSetSort)
	vs.mux.HandleFunc("/api/state/filter", vs.handleSetFilter)
	vs.mux.HandleFunc("/api/state/group", vs.handleSetGroup)
	vs.mux.HandleFunc("/api/state/view-mode", vs.handleSetViewMode)
	vs.mux.HandleFunc("/api/state/folder", vs.handleSelectFolder)
	vs.mux.HandleFunc("/api/state/selection", vs.handleSelection)
	vs.mux.HandleFunc("/api/state/selection/delete", vs.handleDeleteSelected)
	vs.mux.HandleFunc("/api/state/scroll", vs.handleScrollPosition)

	// Playback routes
	vs.mux.HandleFunc("/api/playback-state", vs.handlePlaybackState)
	vs.mux.HandleFunc("/api/buttons", vs.handleButtons)
	vs.mux.HandleFunc("/api/buttons/", vs.handleButtonByID)
	vs.mux.HandleFunc("/api/preferences", vs.handlePreferences)
}

// Shutdown gracefully shuts down the video server
func (vs *VideoServer) Shutdown() {
	vs.logger.Info("Shutting down video server...")

	vs.stopFileWatcher()
	vs.controller.Close()

	vs.logger.Info("Video server shutdown complete")
}
