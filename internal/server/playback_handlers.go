package server

import (
	"net/http"
	"strconv"
	"strings"

	"montage/pkg/models"
)

// handlePlaybackState reads, saves or clears per-title playback resume data.
func (vs *VideoServer) handlePlaybackState(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		title := r.URL.Query().Get("title")
		if title == "" {
			jsonError(w, "Missing title parameter", http.StatusBadRequest)
			return
		}
		state, err := vs.db.GetPlaybackState(title)
		if err != nil {
			jsonError(w, "Error retrieving playback state", http.StatusInternalServerError)
			return
		}
		if state == nil {
			jsonError(w, "Playback state not found", http.StatusNotFound)
			return
		}
		writeJSON(w, state)

	case http.MethodPost:
		var state models.PlaybackState
		if err := decodeJSON(r, &state); err != nil || state.MediaTitle == "" {
			jsonError(w, "Invalid request body", http.StatusBadRequest)
			return
		}
		if err := vs.db.UpsertPlaybackState(state); err != nil {
			vs.logger.WithError(err).WithField("title", state.MediaTitle).Error("Error saving playback state")
			jsonError(w, "Error saving playback state", http.StatusInternalServerError)
			return
		}
		writeJSON(w, map[string]bool{"success": true})

	case http.MethodDelete:
		if err := vs.db.ClearPlaybackStates(); err != nil {
			jsonError(w, "Error clearing playback states", http.StatusInternalServerError)
			return
		}
		writeJSON(w, map[string]bool{"success": true})

	default:
		jsonError(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// handleButtons lists all custom buttons or creates a new one.
func (vs *VideoServer) handleButtons(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		buttons, err := vs.db.GetAllCustomButtons()
		if err != nil {
			jsonError(w, "Error retrieving buttons", http.StatusInternalServerError)
			return
		}
		writeJSON(w, buttons)

	case http.MethodPost:
		var req struct {
			Title            string `json:"title"`
			Content          string `json:"content"`
			LongPressContent string `json:"longPressContent"`
			SortIndex        int    `json:"sortIndex"`
		}
		if err := decodeJSON(r, &req); err != nil || req.Title == "" {
			jsonError(w, "Invalid request body", http.StatusBadRequest)
			return
		}
		id, err := vs.db.CreateCustomButton(req.Title, req.Content, req.LongPressContent, req.SortIndex)
		if err != nil {
			jsonError(w, "Error creating button", http.StatusInternalServerError)
			return
		}
		writeJSON(w, map[string]int64{"id": id})

	default:
		jsonError(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// handleButtonByID updates or deletes one custom button by its path ID.
func (vs *VideoServer) handleButtonByID(w http.ResponseWriter, r *http.Request) {
	idStr := strings.TrimPrefix(r.URL.Path, "/api/buttons/")
	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil {
		jsonError(w, "Invalid button ID", http.StatusBadRequest)
		return
	}

	switch r.Method {
	case http.MethodPut:
		var button models.CustomButton
		if err := decodeJSON(r, &button); err != nil {
			jsonError(w, "Invalid request body", http.StatusBadRequest)
			return
		}
		button.ID = id
		if err := vs.db.UpdateCustomButton(button); err != nil {
			jsonError(w, "Error updating button", http.StatusInternalServerError)
			return
		}
		writeJSON(w, map[string]bool{"success": true})

	case http.MethodDelete:
		if err := vs.db.DeleteCustomButton(id); err != nil {
			jsonError(w, "Error deleting button", http.StatusInternalServerError)
			return
		}
		writeJSON(w, map[string]bool{"success": true})

	default:
		jsonError(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}
