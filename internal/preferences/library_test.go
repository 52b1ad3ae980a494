package preferences

import (
	"testing"

	"montage/internal/library"
)

// The controller consumes the preference store through this interface.
var _ library.Preferences = (*Library)(nil)

// mapStore is an in-memory Store.
type mapStore struct {
	values map[string]string
}

func newMapStore() *mapStore {
	return &mapStore{values: make(map[string]string)}
}

func (s *mapStore) GetPreference(key, defaultValue string) string {
	if v, ok := s.values[key]; ok {
		return v
	}
	return defaultValue
}

func (s *mapStore) SetPreference(key, value string) error {
	s.values[key] = value
	return nil
}

func TestLibraryDefaults(t *testing.T) {
	prefs := NewLibrary(newMapStore())

	if got := prefs.SortOption(); got != library.SortDateAddedDesc {
		t.Errorf("default sort = %s, want newest first", got)
	}
	if got := prefs.FilterOption(); got != library.FilterAll {
		t.Errorf("default filter = %s, want all", got)
	}
	if got := prefs.GroupOption(); got != library.GroupNone {
		t.Errorf("default group = %s, want none", got)
	}
	if got := prefs.ViewMode(); got != library.ViewModeGrid {
		t.Errorf("default view mode = %s, want grid", got)
	}
	if got := prefs.SelectedFolderPath(); got != "" {
		t.Errorf("default folder = %q, want empty", got)
	}
	if index, offset := prefs.ScrollPosition(true); index != 0 || offset != 0 {
		t.Errorf("default scroll = %d, %d", index, offset)
	}
}

func TestLibraryRoundTrip(t *testing.T) {
	prefs := NewLibrary(newMapStore())

	if err := prefs.SetSortOption(library.SortDurationDesc); err != nil {
		t.Fatal(err)
	}
	if got := prefs.SortOption(); got != library.SortDurationDesc {
		t.Errorf("sort = %s after set", got)
	}

	if err := prefs.SetFilterOption(library.FilterFavorites); err != nil {
		t.Fatal(err)
	}
	if got := prefs.FilterOption(); got != library.FilterFavorites {
		t.Errorf("filter = %s after set", got)
	}

	if err := prefs.SetViewMode(library.ViewModeList); err != nil {
		t.Fatal(err)
	}
	if got := prefs.ViewMode(); got != library.ViewModeList {
		t.Errorf("view mode = %s after set", got)
	}

	if err := prefs.SetSelectedFolderPath("/videos/trips"); err != nil {
		t.Fatal(err)
	}
	if got := prefs.SelectedFolderPath(); got != "/videos/trips" {
		t.Errorf("folder = %q after set", got)
	}
}

func TestLibraryCorruptValueFallsBack(t *testing.T) {
	store := newMapStore()
	store.values["library_sort_option"] = "not_a_sort"
	store.values["library_last_grid_scroll_index"] = "banana"

	prefs := NewLibrary(store)
	if got := prefs.SortOption(); got != library.SortDateAddedDesc {
		t.Errorf("corrupt sort = %s, want fallback", got)
	}
	if index, _ := prefs.ScrollPosition(true); index != 0 {
		t.Errorf("corrupt scroll index = %d, want 0", index)
	}
}

func TestScrollPositionsPerLayout(t *testing.T) {
	prefs := NewLibrary(newMapStore())

	if err := prefs.SaveScrollPosition(true, 12, 340); err != nil {
		t.Fatal(err)
	}
	if err := prefs.SaveScrollPosition(false, 3, 80); err != nil {
		t.Fatal(err)
	}

	if index, offset := prefs.ScrollPosition(true); index != 12 || offset != 340 {
		t.Errorf("grid scroll = %d, %d; want 12, 340", index, offset)
	}
	if index, offset := prefs.ScrollPosition(false); index != 3 || offset != 80 {
		t.Errorf("list scroll = %d, %d; want 3, 80", index, offset)
	}
}
