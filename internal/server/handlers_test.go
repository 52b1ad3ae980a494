package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"montage/internal/config"
	"montage/internal/database"
	"montage/pkg/models"
)

func setupTestServer(t *testing.T) (*VideoServer, *database.Database) {
	t.Helper()

	cfg := config.DefaultConfig()
	cfg.Database.Path = filepath.Join(t.TempDir(), "test.db")
	cfg.Library.Paths = []string{t.TempDir()}
	cfg.Library.ScanOnStartup = false
	cfg.Library.WatchForChanges = false
	cfg.Logging.RequestLogging = false

	db, err := database.NewDatabase(cfg.Database.Path)
	if err != nil {
		t.Fatalf("failed to create database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	vs, err := NewVideoServer(cfg, db)
	if err != nil {
		t.Fatalf("failed to create server: %v", err)
	}
	t.Cleanup(vs.Shutdown)

	return vs, db
}

func seedVideo(t *testing.T, db *database.Database, path, title string) {
	t.Helper()
	err := db.UpsertVideo(models.Video{
		Path:        path,
		Title:       title,
		DisplayName: filepath.Base(path),
		Duration:    60000,
		Size:        1024,
		DateAdded:   time.Now().UnixMilli(),
		MimeType:    "video/mp4",
		Folder:      filepath.Dir(path),
		FolderName:  filepath.Base(filepath.Dir(path)),
		IsVideo:     true,
		Format:      "mp4",
	})
	if err != nil {
		t.Fatal(err)
	}
}

func doJSON(t *testing.T, vs *VideoServer, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatal(err)
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	rec := httptest.NewRecorder()
	vs.mux.ServeHTTP(rec, req)
	return rec
}

func TestHandleGetVideos(t *testing.T) {
	vs, db := setupTestServer(t)
	seedVideo(t, db, "/videos/trips/beach.mp4", "Beach Trip")
	seedVideo(t, db, "/videos/movies/heist.mp4", "The Heist")

	t.Run("lists everything", func(t *testing.T) {
		rec := doJSON(t, vs, http.MethodGet, "/api/videos", nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d", rec.Code)
		}
		var videos []models.Video
		if err := json.Unmarshal(rec.Body.Bytes(), &videos); err != nil {
			t.Fatal(err)
		}
		if len(videos) != 2 {
			t.Errorf("got %d videos, want 2", len(videos))
		}
	})

	t.Run("search narrows", func(t *testing.T) {
		rec := doJSON(t, vs, http.MethodGet, "/api/videos?search=heist", nil)
		var videos []models.Video
		if err := json.Unmarshal(rec.Body.Bytes(), &videos); err != nil {
			t.Fatal(err)
		}
		if len(videos) != 1 || videos[0].Title != "The Heist" {
			t.Errorf("search result = %+v", videos)
		}
	})

	t.Run("folder restricts", func(t *testing.T) {
		rec := doJSON(t, vs, http.MethodGet, "/api/videos?folder=%2Fvideos%2Ftrips", nil)
		var videos []models.Video
		if err := json.Unmarshal(rec.Body.Bytes(), &videos); err != nil {
			t.Fatal(err)
		}
		if len(videos) != 1 || videos[0].Title != "Beach Trip" {
			t.Errorf("folder result = %+v", videos)
		}
	})

	t.Run("grouped response", func(t *testing.T) {
		rec := doJSON(t, vs, http.MethodGet, "/api/videos?group=folder", nil)
		var groups []struct {
			Name   string         `json:"name"`
			Videos []models.Video `json:"videos"`
		}
		if err := json.Unmarshal(rec.Body.Bytes(), &groups); err != nil {
			t.Fatal(err)
		}
		if len(groups) != 2 {
			t.Errorf("got %d groups, want 2", len(groups))
		}
	})

	t.Run("post rejected", func(t *testing.T) {
		rec := doJSON(t, vs, http.MethodPost, "/api/videos", nil)
		if rec.Code != http.StatusMethodNotAllowed {
			t.Errorf("status = %d, want 405", rec.Code)
		}
	})
}

func TestHandleVideoCount(t *testing.T) {
	vs, db := setupTestServer(t)
	seedVideo(t, db, "/videos/a.mp4", "A")

	rec := doJSON(t, vs, http.MethodGet, "/api/videos/count", nil)
	var resp map[string]int
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp["count"] != 1 {
		t.Errorf("count = %d, want 1", resp["count"])
	}
}

func TestHandleFavorite(t *testing.T) {
	vs, db := setupTestServer(t)
	seedVideo(t, db, "/videos/a.mp4", "A")

	rec := doJSON(t, vs, http.MethodPost, "/api/videos/favorite", map[string]string{"path": "/videos/a.mp4"})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	// Persistence is async
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		v, err := db.GetVideoByPath("/videos/a.mp4")
		if err == nil && v.IsFavorite {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Error("favorite flag never persisted")
}

func TestHandleProgressMarksWatched(t *testing.T) {
	vs, db := setupTestServer(t)
	seedVideo(t, db, "/videos/a.mp4", "A")

	rec := doJSON(t, vs, http.MethodPost, "/api/videos/progress", map[string]interface{}{
		"path": "/videos/a.mp4", "progress": 0.95,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		v, err := db.GetVideoByPath("/videos/a.mp4")
		if err == nil && v.IsWatched && v.WatchProgress > 0.9 {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Error("progress past threshold never marked the video watched")
}

func TestHandleFolders(t *testing.T) {
	vs, db := setupTestServer(t)
	err := db.ReplaceLibrary(nil, []models.Folder{
		{Path: "/videos/a", Name: "a", LastScanned: 1},
		{Path: "/videos/b", Name: "b", LastScanned: 1},
	})
	if err != nil {
		t.Fatal(err)
	}

	rec := doJSON(t, vs, http.MethodPost, "/api/folders/hide", map[string]interface{}{
		"path": "/videos/b", "hidden": true,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("hide status = %d", rec.Code)
	}

	t.Run("default excludes hidden", func(t *testing.T) {
		rec := doJSON(t, vs, http.MethodGet, "/api/folders", nil)
		var folders []models.Folder
		if err := json.Unmarshal(rec.Body.Bytes(), &folders); err != nil {
			t.Fatal(err)
		}
		if len(folders) != 1 || folders[0].Path != "/videos/a" {
			t.Errorf("folders = %+v", folders)
		}
	})

	t.Run("all includes hidden", func(t *testing.T) {
		rec := doJSON(t, vs, http.MethodGet, "/api/folders?all=true", nil)
		var folders []models.Folder
		if err := json.Unmarshal(rec.Body.Bytes(), &folders); err != nil {
			t.Fatal(err)
		}
		if len(folders) != 2 {
			t.Errorf("got %d folders, want 2", len(folders))
		}
	})
}

func TestHandlePlaybackState(t *testing.T) {
	vs, _ := setupTestServer(t)

	rec := doJSON(t, vs, http.MethodPost, "/api/playback-state", models.PlaybackState{
		MediaTitle: "heist.mkv", LastPosition: 4200, PlaybackSpeed: 1.5,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("save status = %d", rec.Code)
	}

	rec = doJSON(t, vs, http.MethodGet, "/api/playback-state?title=heist.mkv", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("get status = %d", rec.Code)
	}
	var state models.PlaybackState
	if err := json.Unmarshal(rec.Body.Bytes(), &state); err != nil {
		t.Fatal(err)
	}
	if state.LastPosition != 4200 || state.PlaybackSpeed != 1.5 {
		t.Errorf("state = %+v", state)
	}

	rec = doJSON(t, vs, http.MethodGet, "/api/playback-state?title=unknown.mkv", nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("unknown title status = %d, want 404", rec.Code)
	}
}

func TestHandleButtons(t *testing.T) {
	vs, _ := setupTestServer(t)

	rec := doJSON(t, vs, http.MethodPost, "/api/buttons", map[string]interface{}{
		"title": "Skip Intro", "content": "seek 85", "sortIndex": 0,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("create status = %d", rec.Code)
	}
	var created map[string]int64
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
		t.Fatal(err)
	}

	rec = doJSON(t, vs, http.MethodGet, "/api/buttons", nil)
	var buttons []models.CustomButton
	if err := json.Unmarshal(rec.Body.Bytes(), &buttons); err != nil {
		t.Fatal(err)
	}
	if len(buttons) != 1 || buttons[0].Title != "Skip Intro" {
		t.Errorf("buttons = %+v", buttons)
	}

	rec = doJSON(t, vs, http.MethodDelete, "/api/buttons/"+jsonNumber(created["id"]), nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("delete status = %d", rec.Code)
	}

	rec = doJSON(t, vs, http.MethodGet, "/api/buttons", nil)
	buttons = nil
	if err := json.Unmarshal(rec.Body.Bytes(), &buttons); err != nil {
		t.Fatal(err)
	}
	if len(buttons) != 0 {
		t.Errorf("buttons after delete = %+v", buttons)
	}
}

func jsonNumber(id int64) string {
	data, _ := json.Marshal(id)
	return string(data)
}

func TestHandleStream(t *testing.T) {
	vs, db := setupTestServer(t)

	// A real file the streamer can serve
	dir := t.TempDir()
	path := filepath.Join(dir, "clip.mp4")
	if err := os.WriteFile(path, []byte("0123456789"), 0644); err != nil {
		t.Fatal(err)
	}
	seedVideo(t, db, path, "Clip")

	t.Run("full body", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/stream?path="+path, nil)
		rec := httptest.NewRecorder()
		vs.mux.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d", rec.Code)
		}
		if rec.Body.String() != "0123456789" {
			t.Errorf("body = %q", rec.Body.String())
		}
	})

	t.Run("range request", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/stream?path="+path, nil)
		req.Header.Set("Range", "bytes=2-5")
		rec := httptest.NewRecorder()
		vs.mux.ServeHTTP(rec, req)
		if rec.Code != http.StatusPartialContent {
			t.Fatalf("status = %d, want 206", rec.Code)
		}
		if rec.Body.String() != "2345" {
			t.Errorf("body = %q, want 2345", rec.Body.String())
		}
		if got := rec.Header().Get("Content-Range"); got != "bytes 2-5/10" {
			t.Errorf("Content-Range = %q", got)
		}
	})

	t.Run("unsatisfiable range", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/stream?path="+path, nil)
		req.Header.Set("Range", "bytes=50-60")
		rec := httptest.NewRecorder()
		vs.mux.ServeHTTP(rec, req)
		if rec.Code != http.StatusRequestedRangeNotSatisfiable {
			t.Errorf("status = %d, want 416", rec.Code)
		}
	})

	t.Run("unknown path rejected", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/stream?path=/etc/passwd", nil)
		rec := httptest.NewRecorder()
		vs.mux.ServeHTTP(rec, req)
		if rec.Code != http.StatusNotFound {
			t.Errorf("status = %d, want 404", rec.Code)
		}
	})

	t.Run("lookup served from cache", func(t *testing.T) {
		// The first request above populated the video cache, so the lookup
		// survives the row disappearing until the cache is invalidated.
		if err := db.DeleteVideoByPath(path); err != nil {
			t.Fatal(err)
		}
		req := httptest.NewRequest(http.MethodGet, "/stream?path="+path, nil)
		rec := httptest.NewRecorder()
		vs.mux.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200 from cached lookup", rec.Code)
		}

		vs.videoCache.Clear()
		rec = httptest.NewRecorder()
		vs.mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/stream?path="+path, nil))
		if rec.Code != http.StatusNotFound {
			t.Errorf("status after cache clear = %d, want 404", rec.Code)
		}
	})
}

func TestHandleHealth(t *testing.T) {
	vs, _ := setupTestServer(t)

	rec := doJSON(t, vs, http.MethodGet, "/health", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var health HealthStatus
	if err := json.Unmarshal(rec.Body.Bytes(), &health); err != nil {
		t.Fatal(err)
	}
	if health.Status != "healthy" || health.Database != "ok" {
		t.Errorf("health = %+v", health)
	}
}

func TestHandleState(t *testing.T) {
	vs, db := setupTestServer(t)
	seedVideo(t, db, "/videos/a.mp4", "A")

	rec := doJSON(t, vs, http.MethodPost, "/api/state/sort", map[string]string{"value": "name_asc"})
	if rec.Code != http.StatusOK {
		t.Fatalf("set sort status = %d", rec.Code)
	}

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		rec := doJSON(t, vs, http.MethodGet, "/api/state", nil)
		var state struct {
			SortOption string `json:"sortOption"`
		}
		if err := json.Unmarshal(rec.Body.Bytes(), &state); err != nil {
			t.Fatal(err)
		}
		if state.SortOption == "name_asc" {
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Error("sort option never reflected in published state")
}

func TestHandlePreferences(t *testing.T) {
	vs, _ := setupTestServer(t)

	rec := doJSON(t, vs, http.MethodPost, "/api/preferences", map[string]string{
		"key": "player_gesture_seek", "value": "true",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("set status = %d", rec.Code)
	}

	rec = doJSON(t, vs, http.MethodGet, "/api/preferences?key=player_gesture_seek&default=false", nil)
	var resp map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp["value"] != "true" {
		t.Errorf("value = %q, want true", resp["value"])
	}
}
