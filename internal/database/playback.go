package database

import (
	"database/sql"
	"fmt"

	"montage/pkg/models"
)

// UpsertPlaybackState inserts or updates the resume state for one media title.
func (db *Database) UpsertPlaybackState(state models.PlaybackState) error {
	_, err := db.conn.Exec(`
		INSERT INTO playback_states (media_title, last_position, playback_speed, sub_delay, secondary_sub_delay, audio_delay, sub_speed)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(media_title) DO UPDATE SET
			last_position=excluded.last_position,
			playback_speed=excluded.playback_speed,
			sub_delay=excluded.sub_delay,
			secondary_sub_delay=excluded.secondary_sub_delay,
			audio_delay=excluded.audio_delay,
			sub_speed=excluded.sub_speed
	`, state.MediaTitle, state.LastPosition, state.PlaybackSpeed, state.SubDelay,
		state.SecondarySubDelay, state.AudioDelay, state.SubSpeed)
	if err != nil {
		db.logger.WithError(err).WithField("media_title", state.MediaTitle).Error("Failed to upsert playback state")
	}
	return err
}

// GetPlaybackState returns the resume state for a media title, or nil if the
// title has never been played.
func (db *Database) GetPlaybackState(mediaTitle string) (*models.PlaybackState, error) {
	var state models.PlaybackState
	err := db.conn.QueryRow(`
		SELECT media_title, last_position, playback_speed, sub_delay, secondary_sub_delay, audio_delay, sub_speed
		FROM playback_states WHERE media_title = ?`, mediaTitle).Scan(
		&state.MediaTitle, &state.LastPosition, &state.PlaybackSpeed, &state.SubDelay,
		&state.SecondarySubDelay, &state.AudioDelay, &state.SubSpeed)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		db.logger.WithError(err).WithField("media_title", mediaTitle).Error("Failed to get playback state")
		return nil, err
	}
	return &state, nil
}

// ClearPlaybackStates removes all persisted resume state.
func (db *Database) ClearPlaybackStates() error {
	_, err := db.conn.Exec("DELETE FROM playback_states")
	if err != nil {
		db.logger.WithError(err).Error("Failed to clear playback states")
		return fmt.Errorf("failed to clear playback states: %w", err)
	}
	return nil
}
