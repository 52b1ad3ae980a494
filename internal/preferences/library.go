// Package preferences exposes typed accessors over a narrow key-value store
// for the library's persisted user settings: the query-parameter defaults
// and the saved scroll positions.
package preferences

import (
	"strconv"

	"montage/internal/library"
)

// Store is the persisted key-value collaborator behind the typed accessors.
// *database.Database satisfies it.
type Store interface {
	GetPreference(key, defaultValue string) string
	SetPreference(key, value string) error
}

const (
	keySortOption         = "library_sort_option"
	keyFilterOption       = "library_filter_option"
	keyGroupOption        = "library_group_option"
	keyViewMode           = "library_view_mode"
	keySelectedFolderPath = "library_selected_folder_path"

	// For scroll position restoration
	keyGridScrollIndex  = "library_last_grid_scroll_index"
	keyGridScrollOffset = "library_last_grid_scroll_offset"
	keyListScrollIndex  = "library_last_list_scroll_index"
	keyListScrollOffset = "library_last_list_scroll_offset"
)

// Library wraps a Store with typed get/set for every library preference.
type Library struct {
	store Store
}

// NewLibrary creates typed library preferences over the given store.
func NewLibrary(store Store) *Library {
	return &Library{store: store}
}

// SortOption returns the persisted sort option, defaulting to newest first.
func (p *Library) SortOption() library.SortOption {
	return library.ParseSortOption(p.store.GetPreference(keySortOption, string(library.SortDateAddedDesc)))
}

// SetSortOption persists the sort option.
func (p *Library) SetSortOption(opt library.SortOption) error {
	return p.store.SetPreference(keySortOption, string(opt))
}

// FilterOption returns the persisted filter, defaulting to all videos.
func (p *Library) FilterOption() library.FilterOption {
	return library.ParseFilterOption(p.store.GetPreference(keyFilterOption, string(library.FilterAll)))
}

// SetFilterOption persists the filter.
func (p *Library) SetFilterOption(opt library.FilterOption) error {
	return p.store.SetPreference(keyFilterOption, string(opt))
}

// GroupOption returns the persisted grouping, defaulting to none.
func (p *Library) GroupOption() library.GroupOption {
	return library.ParseGroupOption(p.store.GetPreference(keyGroupOption, string(library.GroupNone)))
}

// SetGroupOption persists the grouping.
func (p *Library) SetGroupOption(opt library.GroupOption) error {
	return p.store.SetPreference(keyGroupOption, string(opt))
}

// ViewMode returns the persisted view mode, defaulting to grid.
func (p *Library) ViewMode() library.ViewMode {
	return library.ParseViewMode(p.store.GetPreference(keyViewMode, string(library.ViewModeGrid)))
}

// SetViewMode persists the view mode.
func (p *Library) SetViewMode(mode library.ViewMode) error {
	return p.store.SetPreference(keyViewMode, string(mode))
}

// SelectedFolderPath returns the persisted folder restriction, empty when
// the whole library is selected.
func (p *Library) SelectedFolderPath() string {
	return p.store.GetPreference(keySelectedFolderPath, "")
}

// SetSelectedFolderPath persists the folder restriction.
func (p *Library) SetSelectedFolderPath(path string) error {
	return p.store.SetPreference(keySelectedFolderPath, path)
}

// ScrollPosition returns the saved scroll index and offset for the grid or
// list layout.
func (p *Library) ScrollPosition(grid bool) (index, offset int) {
	if grid {
		return p.getInt(keyGridScrollIndex), p.getInt(keyGridScrollOffset)
	}
	return p.getInt(keyListScrollIndex), p.getInt(keyListScrollOffset)
}

// SaveScrollPosition persists the scroll index and offset for the grid or
// list layout.
func (p *Library) SaveScrollPosition(grid bool, index, offset int) error {
	if grid {
		if err := p.setInt(keyGridScrollIndex, index); err != nil {
			return err
		}
		return p.setInt(keyGridScrollOffset, offset)
	}
	if err := p.setInt(keyListScrollIndex, index); err != nil {
		return err
	}
	return p.setInt(keyListScrollOffset, offset)
}

func (p *Library) getInt(key string) int {
	value, err := strconv.Atoi(p.store.GetPreference(key, "0"))
	if err != nil {
		return 0
	}
	return value
}

func (p *Library) setInt(key string, value int) error {
	return p.store.SetPreference(key, strconv.Itoa(value))
}
