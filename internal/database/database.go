package database

import (
	"database/sql"
	"fmt"
	"time"

	"montage/pkg/models"

	_ "github.com/mattn/go-sqlite3"
	"github.com/sirupsen/logrus"
)

// Database wraps a *sql.DB providing higher-level helper methods for
// interacting with the application's persistent store. It is safe for
// concurrent use because the underlying *sql.DB is concurrency-safe.
type Database struct {
	conn   *sql.DB
	logger *logrus.Logger

	// Prepared statements for better performance
	insertVideoStmt    *sql.Stmt
	getVideoByPathStmt *sql.Stmt
	videoExistsStmt    *sql.Stmt
	removeVideoStmt    *sql.Stmt
	updateFavoriteStmt *sql.Stmt
	updateWatchedStmt  *sql.Stmt
	updateProgressStmt *sql.Stmt
}

// NewDatabase opens (or creates) a SQLite database at the provided path and
// ensures all required tables and indices exist. It also applies lightweight
// performance-oriented pragmas (WAL, cache sizing). Caller should Close() it
// when finished.
func NewDatabase(dbPath string) (*Database, error) {
	// Initialize logger
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})

	conn, err := sql.Open("sqlite3", dbPath+"?cache=shared&mode=rwc")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Configure connection pool - adjusted for SQLite
	conn.SetMaxOpenConns(5) // SQLite works better with fewer connections
	conn.SetMaxIdleConns(2)
	conn.SetConnMaxLifetime(15 * time.Minute)

	// Enable WAL mode for better concurrency
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA cache_size=2000;",
		"PRAGMA temp_store=memory;",
		"PRAGMA foreign_keys=ON;",
		"PRAGMA auto_vacuum=INCREMENTAL;",
	}

	for _, pragma := range pragmas {
		if _, err := conn.Exec(pragma); err != nil {
			logger.WithError(err).WithField("pragma", pragma).Warn("Failed to set pragma")
		}
	}

	db := &Database{
		conn:   conn,
		logger: logger,
	}

	if err := db.createTables(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	if err := db.prepareStatements(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to prepare statements: %w", err)
	}

	logger.WithField("db_path", dbPath).Info("Database initialized successfully")
	return db, nil
}

// createTables creates tables and indices if they do not already exist, then
// executes any migrations. This is idempotent and safe to call multiple times.
func (db *Database) createTables() error {
	// Create videos table
	videosTable := `
	CREATE TABLE IF NOT EXISTS videos (
		path TEXT PRIMARY KEY,
		title TEXT NOT NULL,
		display_name TEXT NOT NULL,
		duration INTEGER NOT NULL DEFAULT 0,
		size INTEGER NOT NULL DEFAULT 0,
		date_added INTEGER NOT NULL DEFAULT 0,
		date_modified INTEGER NOT NULL DEFAULT 0,
		mime_type TEXT NOT NULL DEFAULT '',
		resolution TEXT,
		thumbnail TEXT,
		folder TEXT NOT NULL DEFAULT '',
		folder_name TEXT NOT NULL DEFAULT '',
		is_video INTEGER NOT NULL DEFAULT 1,
		format TEXT,
		aspect_ratio TEXT,
		frame_rate REAL,
		bitrate INTEGER,
		has_subtitles INTEGER NOT NULL DEFAULT 0,
		is_watched INTEGER NOT NULL DEFAULT 0,
		is_favorite INTEGER NOT NULL DEFAULT 0,
		last_watched_time INTEGER,
		watch_progress REAL NOT NULL DEFAULT 0
	);`

	// Create folders table
	foldersTable := `
	CREATE TABLE IF NOT EXISTS folders (
		path TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		video_count INTEGER NOT NULL DEFAULT 0,
		total_duration INTEGER NOT NULL DEFAULT 0,
		total_size INTEGER NOT NULL DEFAULT 0,
		last_scanned INTEGER NOT NULL DEFAULT 0,
		is_hidden INTEGER NOT NULL DEFAULT 0
	);`

	// Create playback_states table (per-title resume state for the player)
	playbackStatesTable := `
	CREATE TABLE IF NOT EXISTS playback_states (
		media_title TEXT PRIMARY KEY,
		last_position INTEGER NOT NULL DEFAULT 0,
		playback_speed REAL NOT NULL DEFAULT 0,
		sub_delay INTEGER NOT NULL DEFAULT 0,
		secondary_sub_delay INTEGER NOT NULL DEFAULT 0,
		audio_delay INTEGER NOT NULL DEFAULT 0,
		sub_speed REAL NOT NULL DEFAULT 0
	);`

	// Create custom_buttons table (user-defined on-screen controls)
	customButtonsTable := `
	CREATE TABLE IF NOT EXISTS custom_buttons (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		title TEXT NOT NULL,
		content TEXT NOT NULL,
		sort_index INTEGER NOT NULL DEFAULT 0
	);`

	// Create preferences table (typed key-value store for query defaults etc.)
	preferencesTable := `
	CREATE TABLE IF NOT EXISTS preferences (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);`

	// Create indices for better performance
	indices := []string{
		"CREATE INDEX IF NOT EXISTS idx_videos_folder ON videos(folder);",
		"CREATE INDEX IF NOT EXISTS idx_videos_date_added ON videos(date_added);",
		"CREATE INDEX IF NOT EXISTS idx_videos_is_favorite ON videos(is_favorite);",
		"CREATE INDEX IF NOT EXISTS idx_videos_is_watched ON videos(is_watched);",
		"CREATE INDEX IF NOT EXISTS idx_videos_search ON videos(title, display_name, folder_name);",
		"CREATE INDEX IF NOT EXISTS idx_folders_name ON folders(name);",
		"CREATE INDEX IF NOT EXISTS idx_custom_buttons_index ON custom_buttons(sort_index);",
	}

	tables := []string{videosTable, foldersTable, playbackStatesTable, customButtonsTable, preferencesTable}
	for _, table := range tables {
		if _, err := db.conn.Exec(table); err != nil {
			return err
		}
	}

	for _, index := range indices {
		if _, err := db.conn.Exec(index); err != nil {
			return err
		}
	}

	// Run migrations
	if err := db.runMigrations(); err != nil {
		return err
	}

	return nil
}

// runMigrations performs incremental schema updates in-place. Each migration
// should be idempotent and safe to re-run; keep them lightweight.
func (db *Database) runMigrations() error {
	// Migration 1: Add long_press_content column to custom_buttons if it doesn't exist
	var columnExists bool
	err := db.conn.QueryRow(`
		SELECT COUNT(*) > 0
		FROM pragma_table_info('custom_buttons')
		WHERE name = 'long_press_content'`).Scan(&columnExists)

	if err != nil {
		return err
	}

	if !columnExists {
		_, err = db.conn.Exec("ALTER TABLE custom_buttons ADD COLUMN long_press_content TEXT NOT NULL DEFAULT ''")
		if err != nil {
			return err
		}

		db.logger.Info("Added long_press_content column to custom_buttons table")
	}

	return nil
}

// prepareStatements prepares commonly used SQL statements for better performance
func (db *Database) prepareStatements() error {
	var err error

	db.insertVideoStmt, err = db.conn.Prepare(`
		INSERT OR REPLACE INTO videos (
			path, title, display_name, duration, size, date_added, date_modified,
			mime_type, resolution, thumbnail, folder, folder_name, is_video, format,
			aspect_ratio, frame_rate, bitrate, has_subtitles, is_watched, is_favorite,
			last_watched_time, watch_progress)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert video statement: %w", err)
	}

	db.getVideoByPathStmt, err = db.conn.Prepare(selectVideoColumns + ` FROM videos WHERE path = ?`)
	if err != nil {
		return fmt.Errorf("failed to prepare get video by path statement: %w", err)
	}

	db.videoExistsStmt, err = db.conn.Prepare(`SELECT COUNT(*) FROM videos WHERE path = ?`)
	if err != nil {
		return fmt.Errorf("failed to prepare video exists statement: %w", err)
	}

	db.removeVideoStmt, err = db.conn.Prepare(`DELETE FROM videos WHERE path = ?`)
	if err != nil {
		return fmt.Errorf("failed to prepare remove video statement: %w", err)
	}

	db.updateFavoriteStmt, err = db.conn.Prepare(`UPDATE videos SET is_favorite = ? WHERE path = ?`)
	if err != nil {
		return fmt.Errorf("failed to prepare update favorite statement: %w", err)
	}

	db.updateWatchedStmt, err = db.conn.Prepare(`UPDATE videos SET is_watched = ?, last_watched_time = ? WHERE path = ?`)
	if err != nil {
		return fmt.Errorf("failed to prepare update watched statement: %w", err)
	}

	db.updateProgressStmt, err = db.conn.Prepare(`UPDATE videos SET watch_progress = ?, last_watched_time = ? WHERE path = ?`)
	if err != nil {
		return fmt.Errorf("failed to prepare update progress statement: %w", err)
	}

	return nil
}

const selectVideoColumns = `
	SELECT path, title, display_name, duration, size, date_added, date_modified,
		mime_type, resolution, thumbnail, folder, folder_name, is_video, format,
		aspect_ratio, frame_rate, bitrate, has_subtitles, is_watched, is_favorite,
		last_watched_time, watch_progress`

// UpsertVideo inserts a new video or replaces an existing one matched by path.
func (db *Database) UpsertVideo(video models.Video) error {
	_, err := db.insertVideoStmt.Exec(videoArgs(video)...)
	if err != nil {
		db.logger.WithError(err).WithField("path", video.Path).Error("Failed to upsert video")
	}
	return err
}

// ReplaceLibrary replaces the entire video table with the scan result inside
// one transaction. Folder rows are upserted so the user-set hidden flag
// survives rescans; folders no longer present in the scan are pruned.
func (db *Database) ReplaceLibrary(videos []models.Video, folders []models.Folder) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin library replace: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM videos"); err != nil {
		return fmt.Errorf("failed to clear videos: %w", err)
	}

	insertVideo := tx.Stmt(db.insertVideoStmt)
	for _, video := range videos {
		if _, err := insertVideo.Exec(videoArgs(video)...); err != nil {
			return fmt.Errorf("failed to insert video %s: %w", video.Path, err)
		}
	}

	upsertFolder, err := tx.Prepare(`
		INSERT INTO folders (path, name, video_count, total_duration, total_size, last_scanned, is_hidden)
		VALUES (?, ?, ?, ?, ?, ?, 0)
		ON CONFLICT(path) DO UPDATE SET
			name=excluded.name,
			video_count=excluded.video_count,
			total_duration=excluded.total_duration,
			total_size=excluded.total_size,
			last_scanned=excluded.last_scanned`)
	if err != nil {
		return fmt.Errorf("failed to prepare folder upsert: %w", err)
	}
	defer upsertFolder.Close()

	seen := make([]interface{}, 0, len(folders))
	for _, folder := range folders {
		if _, err := upsertFolder.Exec(folder.Path, folder.Name, folder.VideoCount,
			folder.TotalDuration, folder.TotalSize, folder.LastScanned); err != nil {
			return fmt.Errorf("failed to upsert folder %s: %w", folder.Path, err)
		}
		seen = append(seen, folder.Path)
	}

	// Prune folders that vanished from disk
	if len(seen) == 0 {
		if _, err := tx.Exec("DELETE FROM folders"); err != nil {
			return fmt.Errorf("failed to prune folders: %w", err)
		}
	} else {
		placeholders := "?"
		for i := 1; i < len(seen); i++ {
			placeholders += ", ?"
		}
		if _, err := tx.Exec("DELETE FROM folders WHERE path NOT IN ("+placeholders+")", seen...); err != nil {
			return fmt.Errorf("failed to prune folders: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit library replace: %w", err)
	}

	db.logger.WithFields(logrus.Fields{
		"videos":  len(videos),
		"folders": len(folders),
	}).Info("Replaced library contents")
	return nil
}

// GetAllVideos returns all videos ordered by date added, newest first.
func (db *Database) GetAllVideos() ([]models.Video, error) {
	rows, err := db.conn.Query(selectVideoColumns + ` FROM videos ORDER BY date_added DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanVideoRows(rows)
}

// GetVideoByPath returns a single video by its path.
func (db *Database) GetVideoByPath(path string) (*models.Video, error) {
	row := db.getVideoByPathStmt.QueryRow(path)
	video, err := scanVideoRow(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("video with path %s not found", path)
		}
		db.logger.WithError(err).WithField("path", path).Error("Failed to get video by path")
		return nil, err
	}
	return video, nil
}

// VideoExists returns true if a video exists with the given path.
func (db *Database) VideoExists(path string) (bool, error) {
	var count int
	err := db.videoExistsStmt.QueryRow(path).Scan(&count)
	if err != nil {
		db.logger.WithError(err).WithField("path", path).Error("Failed to check if video exists")
		return false, err
	}
	return count > 0, nil
}

// DeleteVideoByPath deletes a video row identified by its path.
func (db *Database) DeleteVideoByPath(path string) error {
	_, err := db.removeVideoStmt.Exec(path)
	if err != nil {
		db.logger.WithError(err).WithField("path", path).Error("Failed to delete video by path")
	}
	return err
}

// UpdateFavoriteStatus flips only the favorite flag of a single video.
func (db *Database) UpdateFavoriteStatus(path string, isFavorite bool) error {
	_, err := db.updateFavoriteStmt.Exec(isFavorite, path)
	if err != nil {
		db.logger.WithError(err).WithField("path", path).Error("Failed to update favorite status")
	}
	return err
}

// UpdateWatchedStatus sets the watched flag together with the last watched
// timestamp; clearing the flag clears the timestamp.
func (db *Database) UpdateWatchedStatus(path string, isWatched bool, timestamp *int64) error {
	var ts sql.NullInt64
	if timestamp != nil {
		ts = sql.NullInt64{Int64: *timestamp, Valid: true}
	}
	_, err := db.updateWatchedStmt.Exec(isWatched, ts, path)
	if err != nil {
		db.logger.WithError(err).WithField("path", path).Error("Failed to update watched status")
	}
	return err
}

// UpdateWatchProgress sets the watch progress (clamped to [0,1]) and the
// last watched timestamp of a single video.
func (db *Database) UpdateWatchProgress(path string, progress float64, timestamp int64) error {
	if progress < 0 {
		progress = 0
	} else if progress > 1 {
		progress = 1
	}
	_, err := db.updateProgressStmt.Exec(progress, timestamp, path)
	if err != nil {
		db.logger.WithError(err).WithField("path", path).Error("Failed to update watch progress")
	}
	return err
}

// GetLibraryStats returns totals over the whole video table.
func (db *Database) GetLibraryStats() (models.LibraryStats, error) {
	var stats models.LibraryStats
	err := db.conn.QueryRow(`
		SELECT COUNT(*), COALESCE(SUM(size), 0), COALESCE(SUM(duration), 0)
		FROM videos`).Scan(&stats.TotalVideos, &stats.TotalSize, &stats.TotalDuration)
	if err != nil {
		db.logger.WithError(err).Error("Failed to get library stats")
		return models.LibraryStats{}, err
	}
	return stats, nil
}

// GetAllFolders returns all folders ordered by name.
func (db *Database) GetAllFolders() ([]models.Folder, error) {
	return db.queryFolders(`
		SELECT path, name, video_count, total_duration, total_size, last_scanned, is_hidden
		FROM folders ORDER BY name ASC`)
}

// GetVisibleFolders returns folders the user has not hidden, ordered by name.
func (db *Database) GetVisibleFolders() ([]models.Folder, error) {
	return db.queryFolders(`
		SELECT path, name, video_count, total_duration, total_size, last_scanned, is_hidden
		FROM folders WHERE is_hidden = 0 ORDER BY name ASC`)
}

func (db *Database) queryFolders(query string) ([]models.Folder, error) {
	rows, err := db.conn.Query(query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var folders []models.Folder
	for rows.Next() {
		var folder models.Folder
		if err := rows.Scan(&folder.Path, &folder.Name, &folder.VideoCount,
			&folder.TotalDuration, &folder.TotalSize, &folder.LastScanned, &folder.IsHidden); err != nil {
			return nil, err
		}
		folders = append(folders, folder)
	}
	return folders, rows.Err()
}

// SetFolderHidden updates only the user-set hidden flag of a folder.
func (db *Database) SetFolderHidden(path string, isHidden bool) error {
	_, err := db.conn.Exec(`UPDATE folders SET is_hidden = ? WHERE path = ?`, isHidden, path)
	if err != nil {
		db.logger.WithError(err).WithField("path", path).Error("Failed to update folder visibility")
	}
	return err
}

// Close closes the underlying database connection and prepared statements.
func (db *Database) Close() error {
	// Close prepared statements
	statements := []*sql.Stmt{
		db.insertVideoStmt,
		db.getVideoByPathStmt,
		db.videoExistsStmt,
		db.removeVideoStmt,
		db.updateFavoriteStmt,
		db.updateWatchedStmt,
		db.updateProgressStmt,
	}

	for _, stmt := range statements {
		if stmt != nil {
			if err := stmt.Close(); err != nil {
				db.logger.WithError(err).Error("Failed to close prepared statement")
			}
		}
	}

	// Close database connection
	if db.conn != nil {
		return db.conn.Close()
	}
	return nil
}

func videoArgs(v models.Video) []interface{} {
	var lastWatched sql.NullInt64
	if v.LastWatchedTime != nil {
		lastWatched = sql.NullInt64{Int64: *v.LastWatchedTime, Valid: true}
	}
	return []interface{}{
		v.Path, v.Title, v.DisplayName, v.Duration, v.Size, v.DateAdded, v.DateModified,
		v.MimeType, nullString(v.Resolution), nullString(v.Thumbnail), v.Folder, v.FolderName,
		v.IsVideo, nullString(v.Format), nullString(v.AspectRatio), nullFloat(v.FrameRate),
		nullInt(v.Bitrate), v.HasSubtitles, v.IsWatched, v.IsFavorite, lastWatched, v.WatchProgress,
	}
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullInt(i int64) sql.NullInt64 {
	return sql.NullInt64{Int64: i, Valid: i != 0}
}

func nullFloat(f float64) sql.NullFloat64 {
	return sql.NullFloat64{Float64: f, Valid: f != 0}
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanVideo(s rowScanner) (models.Video, error) {
	var video models.Video
	var resolution, thumbnail, format, aspectRatio sql.NullString
	var frameRate sql.NullFloat64
	var bitrate, lastWatched sql.NullInt64

	err := s.Scan(&video.Path, &video.Title, &video.DisplayName, &video.Duration,
		&video.Size, &video.DateAdded, &video.DateModified, &video.MimeType,
		&resolution, &thumbnail, &video.Folder, &video.FolderName, &video.IsVideo,
		&format, &aspectRatio, &frameRate, &bitrate, &video.HasSubtitles,
		&video.IsWatched, &video.IsFavorite, &lastWatched, &video.WatchProgress)
	if err != nil {
		return models.Video{}, err
	}

	video.Resolution = resolution.String
	video.Thumbnail = thumbnail.String
	video.Format = format.String
	video.AspectRatio = aspectRatio.String
	video.FrameRate = frameRate.Float64
	video.Bitrate = bitrate.Int64
	if lastWatched.Valid {
		video.LastWatchedTime = &lastWatched.Int64
	}
	return video, nil
}

func scanVideoRow(row *sql.Row) (*models.Video, error) {
	video, err := scanVideo(row)
	if err != nil {
		return nil, err
	}
	return &video, nil
}

// scanVideoRows scans standard video result sets into a slice of
// models.Video. It centralizes row iteration logic to reduce duplication
// across query helpers. Callers must have already deferred rows.Close().
func scanVideoRows(rows *sql.Rows) ([]models.Video, error) {
	var videos []models.Video
	for rows.Next() {
		video, err := scanVideo(rows)
		if err != nil {
			return nil, err
		}
		videos = append(videos, video)
	}
	return videos, rows.Err()
}
