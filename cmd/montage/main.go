package main

import (
	"os"
	"os/signal"
	"syscall"

	"montage/internal/config"
	"montage/internal/database"
	"montage/internal/server"

	"github.com/sirupsen/logrus"
)

func main() {
	configPath := "./config.toml"
	if len(os.Args) > 1 {
		configPath = os.Args[1]
	}

	// Initialize basic logger for startup
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})

	// Load configuration
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		logger.WithError(err).Fatal("Error loading configuration")
	}

	// Check that at least one library directory exists
	existing := 0
	for _, root := range cfg.Library.Paths {
		if _, err := os.Stat(root); err == nil {
			existing++
		} else {
			logger.WithField("library_path", root).Warn("Library directory does not exist")
		}
	}
	if existing == 0 {
		logger.WithField("library_paths", cfg.Library.Paths).Fatal("No library directory exists. Please create one and add your video files.")
	}

	// Initialize database
	db, err := database.NewDatabase(cfg.Database.Path)
	if err != nil {
		logger.WithError(err).Fatal("Error initializing database")
	}
	defer db.Close()

	// Create and configure the video server
	videoServer, err := server.NewVideoServer(cfg, db)
	if err != nil {
		logger.WithError(err).Fatal("Error creating video server")
	}

	// Scan the video library in the background
	videoServer.ScanOnStartup()

	// Handle graceful shutdown
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)

	// Start the server in a goroutine
	go func() {
		if err := videoServer.Start(); err != nil {
			logger.WithError(err).Fatal("Server failed to start")
		}
	}()

	// Wait for shutdown signal
	<-c

	logger.Info("Received shutdown signal")
	videoServer.Shutdown()
}
