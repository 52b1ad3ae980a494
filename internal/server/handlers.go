package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"montage/internal/library"
)

// jsonError writes a plain-text error the way http.Error does.
func jsonError(w http.ResponseWriter, message string, code int) {
	http.Error(w, message, code)
}

// writeJSON encodes v as the JSON response body.
func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

// decodeJSON reads the request body into v.
func decodeJSON(r *http.Request, v interface{}) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(v)
}

// handleGetVideos returns the video listing filtered, searched, sorted and
// optionally grouped by the query parameters. Plain listings (no search)
// are served from the query cache when possible.
func (vs *VideoServer) handleGetVideos(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	params := r.URL.Query()
	sortOpt := library.ParseSortOption(params.Get("sort"))
	filter := library.ParseFilterOption(params.Get("filter"))
	group := library.ParseGroupOption(params.Get("group"))
	search := params.Get("search")
	folder := params.Get("folder")

	cacheKey := r.URL.RawQuery
	if search == "" && group == library.GroupNone {
		if videos, ok := vs.videoCache.GetVideos(cacheKey); ok {
			writeJSON(w, videos)
			return
		}
	}

	videos, err := vs.db.GetAllVideos()
	if err != nil {
		vs.logger.WithError(err).Error("Error retrieving videos")
		jsonError(w, "Error retrieving videos", http.StatusInternalServerError)
		return
	}

	folderPaths := make(map[string]bool)
	if folder != "" {
		folderPaths[folder] = true
	}

	now := time.Now()
	result := library.QueryVideos(videos, sortOpt, filter, search, folderPaths, now)

	if group != library.GroupNone {
		writeJSON(w, library.GroupVideos(result, group, now))
		return
	}

	if search == "" {
		vs.videoCache.SetVideos(cacheKey, result)
	}
	writeJSON(w, result)
}

// handleGetVideoCount responds with a JSON count of all videos.
func (vs *VideoServer) handleGetVideoCount(w http.ResponseWriter, r *http.Request) {
	stats, err := vs.db.GetLibraryStats()
	if err != nil {
		jsonError(w, "Error retrieving video count", http.StatusInternalServerError)
		return
	}

	writeJSON(w, map[string]int{"count": stats.TotalVideos})
}

// handleGetStats responds with aggregate library statistics.
func (vs *VideoServer) handleGetStats(w http.ResponseWriter, r *http.Request) {
	stats, err := vs.db.GetLibraryStats()
	if err != nil {
		jsonError(w, "Error retrieving library stats", http.StatusInternalServerError)
		return
	}

	writeJSON(w, stats)
}

// handleGetFolders lists folders; hidden folders are included only with
// ?all=true.
func (vs *VideoServer) handleGetFolders(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var folders interface{}
	var err error
	if r.URL.Query().Get("all") == "true" {
		folders, err = vs.db.GetAllFolders()
	} else {
		folders, err = vs.db.GetVisibleFolders()
	}
	if err != nil {
		jsonError(w, "Error retrieving folders", http.StatusInternalServerError)
		return
	}

	writeJSON(w, folders)
}

// handleHideFolder sets or clears the hidden flag on one folder.
func (vs *VideoServer) handleHideFolder(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		jsonError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req struct {
		Path   string `json:"path"`
		Hidden bool   `json:"hidden"`
	}
	if err := decodeJSON(r, &req); err != nil || req.Path == "" {
		jsonError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if err := vs.db.SetFolderHidden(req.Path, req.Hidden); err != nil {
		vs.logger.WithError(err).WithField("path", req.Path).Error("Error updating folder visibility")
		jsonError(w, "Error updating folder", http.StatusInternalServerError)
		return
	}

	writeJSON(w, map[string]bool{"success": true})
}

// handleToggleFavorite flips the favorite flag of one video.
func (vs *VideoServer) handleToggleFavorite(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		jsonError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req struct {
		Path string `json:"path"`
	}
	if err := decodeJSON(r, &req); err != nil || req.Path == "" {
		jsonError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	vs.controller.ToggleFavorite(req.Path)
	vs.videoCache.Clear()
	writeJSON(w, map[string]bool{"success": true})
}

// handleUpdateProgress records playback progress for one video.
func (vs *VideoServer) handleUpdateProgress(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		jsonError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req struct {
		Path     string  `json:"path"`
		Progress float64 `json:"progress"`
	}
	if err := decodeJSON(r, &req); err != nil || req.Path == "" {
		jsonError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	vs.controller.UpdateWatchProgress(req.Path, req.Progress)
	vs.videoCache.Clear()
	writeJSON(w, map[string]bool{"success": true})
}

// handleSetWatched sets the watched flag of one video directly.
func (vs *VideoServer) handleSetWatched(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		jsonError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req struct {
		Path    string `json:"path"`
		Watched bool   `json:"watched"`
	}
	if err := decodeJSON(r, &req); err != nil || req.Path == "" {
		jsonError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	var timestamp *int64
	if req.Watched {
		now := time.Now().UnixMilli()
		timestamp = &now
	}
	if err := vs.db.UpdateWatchedStatus(req.Path, req.Watched, timestamp); err != nil {
		jsonError(w, "Error updating watched status", http.StatusInternalServerError)
		return
	}

	vs.videoCache.Clear()
	writeJSON(w, map[string]bool{"success": true})
}

// handleDeleteVideo removes a video from disk and from the library.
func (vs *VideoServer) handleDeleteVideo(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		jsonError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req struct {
		Path string `json:"path"`
	}
	if err := decodeJSON(r, &req); err != nil || req.Path == "" {
		jsonError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	deleted := vs.controller.DeleteVideo(req.Path)
	vs.videoCache.Clear()
	writeJSON(w, map[string]bool{"deleted": deleted})
}

// handleScan starts a background library scan and reports its job ID.
func (vs *VideoServer) handleScan(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		jsonError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	jobID, started := vs.controller.ScanLibrary()
	vs.videoCache.Clear()
	writeJSON(w, map[string]interface{}{
		"jobId":   jobID,
		"started": started,
	})
}

// handleGetState returns a snapshot of the library view state.
func (vs *VideoServer) handleGetState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, vs.controller.GetState())
}

// handleStateEvents streams state changes as server-sent events until the
// client disconnects.
func (vs *VideoServer) handleStateEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		jsonError(w, "Streaming not supported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	updates := vs.controller.Subscribe()
	defer vs.controller.Unsubscribe(updates)

	// Send the current state first so clients don't wait for a change
	vs.sendStateEvent(w, vs.controller.GetState())
	flusher.Flush()

	for {
		select {
		case state, ok := <-updates:
			if !ok {
				return
			}
			vs.sendStateEvent(w, state)
			flusher.Flush()

		case <-r.Context().Done():
			return
		}
	}
}

func (vs *VideoServer) sendStateEvent(w http.ResponseWriter, state library.State) {
	data, err := json.Marshal(state)
	if err != nil {
		vs.logger.WithError(err).Error("Error encoding state event")
		return
	}
	fmt.Fprintf(w, "data: %s\n\n", data)
}

// handleSetSearch updates the live search query.
func (vs *VideoServer) handleSetSearch(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		jsonError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req struct {
		Query string `json:"query"`
	}
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	vs.controller.SetSearchQuery(req.Query)
	writeJSON(w, map[string]bool{"success": true})
}

// handleSetSort changes the live sort order.
func (vs *VideoServer) handleSetSort(w http.ResponseWriter, r *http.Request) {
	vs.handleSetOption(w, r, func(value string) {
		vs.controller.SetSortOption(library.ParseSortOption(value))
	})
}

// handleSetFilter changes the live filter.
func (vs *VideoServer) handleSetFilter(w http.ResponseWriter, r *http.Request) {
	vs.handleSetOption(w, r, func(value string) {
		vs.controller.SetFilterOption(library.ParseFilterOption(value))
	})
}

// handleSetGroup changes the live grouping.
func (vs *VideoServer) handleSetGroup(w http.ResponseWriter, r *http.Request) {
	vs.handleSetOption(w, r, func(value string) {
		vs.controller.SetGroupOption(library.ParseGroupOption(value))
	})
}

// handleSetViewMode switches between grid and list presentation.
func (vs *VideoServer) handleSetViewMode(w http.ResponseWriter, r *http.Request) {
	vs.handleSetOption(w, r, func(value string) {
		vs.controller.SetViewMode(library.ParseViewMode(value))
	})
}

// handleSetOption is the shared body of the single-value state setters.
func (vs *VideoServer) handleSetOption(w http.ResponseWriter, r *http.Request, apply func(string)) {
	if r.Method != http.MethodPost {
		jsonError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req struct {
		Value string `json:"value"`
	}
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	apply(req.Value)
	writeJSON(w, map[string]bool{"success": true})
}

// handleSelectFolder restricts the library view to one folder; an empty
// path clears the restriction.
func (vs *VideoServer) handleSelectFolder(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		jsonError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req struct {
		Path string `json:"path"`
	}
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	vs.controller.SelectFolder(req.Path)
	writeJSON(w, map[string]bool{"success": true})
}

// handleSelection applies one multi-select action.
func (vs *VideoServer) handleSelection(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		jsonError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req struct {
		Action string `json:"action"`
		Path   string `json:"path"`
	}
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	switch req.Action {
	case "toggle":
		vs.controller.ToggleVideoSelection(req.Path)
	case "clear":
		vs.controller.ClearVideoSelection()
	case "start-drag":
		vs.controller.StartDragSelection(req.Path)
	case "drag":
		vs.controller.SelectVideoOnDrag(req.Path)
	case "end-drag":
		vs.controller.EndDragSelection()
	default:
		jsonError(w, "Unknown selection action", http.StatusBadRequest)
		return
	}

	writeJSON(w, map[string]bool{"success": true})
}

// handleDeleteSelected deletes every currently selected video.
func (vs *VideoServer) handleDeleteSelected(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		jsonError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	vs.controller.DeleteSelectedVideos()
	vs.videoCache.Clear()
	writeJSON(w, map[string]bool{"success": true})
}

// handleScrollPosition reads (GET) or saves (POST) the persisted scroll
// position for the grid or list layout.
func (vs *VideoServer) handleScrollPosition(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		grid := r.URL.Query().Get("grid") != "false"
		index, offset := vs.controller.ScrollPosition(grid)
		writeJSON(w, map[string]int{"index": index, "offset": offset})

	case http.MethodPost:
		var req struct {
			Grid   *bool `json:"grid"`
			Index  int   `json:"index"`
			Offset int   `json:"offset"`
		}
		if err := decodeJSON(r, &req); err != nil {
			jsonError(w, "Invalid request body", http.StatusBadRequest)
			return
		}
		grid := true
		if req.Grid != nil {
			grid = *req.Grid
		}
		vs.controller.SaveScrollPosition(grid, req.Index, req.Offset)
		writeJSON(w, map[string]bool{"success": true})

	default:
		jsonError(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// handlePreferences reads or writes one raw preference value.
func (vs *VideoServer) handlePreferences(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		key := r.URL.Query().Get("key")
		if key == "" {
			jsonError(w, "Missing key parameter", http.StatusBadRequest)
			return
		}
		value := vs.db.GetPreference(key, r.URL.Query().Get("default"))
		writeJSON(w, map[string]string{"key": key, "value": value})

	case http.MethodPost:
		var req struct {
			Key   string `json:"key"`
			Value string `json:"value"`
		}
		if err := decodeJSON(r, &req); err != nil || req.Key == "" {
			jsonError(w, "Invalid request body", http.StatusBadRequest)
			return
		}
		if err := vs.db.SetPreference(req.Key, req.Value); err != nil {
			jsonError(w, "Error saving preference", http.StatusInternalServerError)
			return
		}
		writeJSON(w, map[string]bool{"success": true})

	default:
		jsonError(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}
