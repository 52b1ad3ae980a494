package database

import (
	"montage/pkg/models"
)

// CreateCustomButton inserts a new custom button and returns its ID.
func (db *Database) CreateCustomButton(title, content, longPressContent string, sortIndex int) (int64, error) {
	result, err := db.conn.Exec(`
		INSERT INTO custom_buttons (title, content, long_press_content, sort_index)
		VALUES (?, ?, ?, ?)`, title, content, longPressContent, sortIndex)
	if err != nil {
		db.logger.WithError(err).WithField("title", title).Error("Failed to create custom button")
		return 0, err
	}
	return result.LastInsertId()
}

// GetAllCustomButtons returns all custom buttons ordered by their sort index.
func (db *Database) GetAllCustomButtons() ([]models.CustomButton, error) {
	rows, err := db.conn.Query(`
		SELECT id, title, content, long_press_content, sort_index
		FROM custom_buttons ORDER BY sort_index, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var buttons []models.CustomButton
	for rows.Next() {
		var button models.CustomButton
		if err := rows.Scan(&button.ID, &button.Title, &button.Content,
			&button.LongPressContent, &button.SortIndex); err != nil {
			return nil, err
		}
		buttons = append(buttons, button)
	}
	return buttons, rows.Err()
}

// UpdateCustomButton updates every field of an existing custom button.
func (db *Database) UpdateCustomButton(button models.CustomButton) error {
	_, err := db.conn.Exec(`
		UPDATE custom_buttons
		SET title = ?, content = ?, long_press_content = ?, sort_index = ?
		WHERE id = ?`,
		button.Title, button.Content, button.LongPressContent, button.SortIndex, button.ID)
	if err != nil {
		db.logger.WithError(err).WithField("button_id", button.ID).Error("Failed to update custom button")
	}
	return err
}

// DeleteCustomButton removes a custom button by ID.
func (db *Database) DeleteCustomButton(id int64) error {
	_, err := db.conn.Exec("DELETE FROM custom_buttons WHERE id = ?", id)
	if err != nil {
		db.logger.WithError(err).WithField("button_id", id).Error("Failed to delete custom button")
	}
	return err
}
