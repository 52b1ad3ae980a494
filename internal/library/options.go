package library

// SortOption selects the ordering of the video list. Each key exists in an
// ascending and a descending variant.
type SortOption string

const (
	SortNameAsc          SortOption = "name_asc"
	SortNameDesc         SortOption = "name_desc"
	SortDateAddedAsc     SortOption = "date_added_asc"
	SortDateAddedDesc    SortOption = "date_added_desc"
	SortDateModifiedAsc  SortOption = "date_modified_asc"
	SortDateModifiedDesc SortOption = "date_modified_desc"
	SortSizeAsc          SortOption = "size_asc"
	SortSizeDesc         SortOption = "size_desc"
	SortDurationAsc      SortOption = "duration_asc"
	SortDurationDesc     SortOption = "duration_desc"
	SortLastWatchedAsc   SortOption = "last_watched_asc"
	SortLastWatchedDesc  SortOption = "last_watched_desc"
)

// SortOptions lists every supported sort variant.
var SortOptions = []SortOption{
	SortNameAsc, SortNameDesc,
	SortDateAddedAsc, SortDateAddedDesc,
	SortDateModifiedAsc, SortDateModifiedDesc,
	SortSizeAsc, SortSizeDesc,
	SortDurationAsc, SortDurationDesc,
	SortLastWatchedAsc, SortLastWatchedDesc,
}

// DisplayName returns the human-readable label for the sort option.
func (s SortOption) DisplayName() string {
	switch s {
	case SortNameAsc:
		return "Name (A-Z)"
	case SortNameDesc:
		return "Name (Z-A)"
	case SortDateAddedAsc:
		return "Date Added (Oldest)"
	case SortDateAddedDesc:
		return "Date Added (Newest)"
	case SortDateModifiedAsc:
		return "Modified (Oldest)"
	case SortDateModifiedDesc:
		return "Modified (Newest)"
	case SortSizeAsc:
		return "Size (Smallest)"
	case SortSizeDesc:
		return "Size (Largest)"
	case SortDurationAsc:
		return "Duration (Shortest)"
	case SortDurationDesc:
		return "Duration (Longest)"
	case SortLastWatchedAsc:
		return "Last Watched (Oldest)"
	case SortLastWatchedDesc:
		return "Last Watched (Recent)"
	default:
		return string(s)
	}
}

// ParseSortOption maps a stored or user-supplied value to a SortOption,
// falling back to the default ordering (newest first) for unknown input.
func ParseSortOption(value string) SortOption {
	for _, opt := range SortOptions {
		if string(opt) == value {
			return opt
		}
	}
	return SortDateAddedDesc
}

// FilterOption restricts the video set before search and sort run.
type FilterOption string

const (
	FilterAll              FilterOption = "all"
	FilterFavorites        FilterOption = "favorites"
	FilterWatched          FilterOption = "watched"
	FilterUnwatched        FilterOption = "unwatched"
	FilterPartiallyWatched FilterOption = "partially_watched"
	FilterRecent           FilterOption = "recent"
)

// FilterOptions lists every supported filter.
var FilterOptions = []FilterOption{
	FilterAll, FilterFavorites, FilterWatched,
	FilterUnwatched, FilterPartiallyWatched, FilterRecent,
}

// DisplayName returns the human-readable label for the filter.
func (f FilterOption) DisplayName() string {
	switch f {
	case FilterAll:
		return "All Videos"
	case FilterFavorites:
		return "Favorites"
	case FilterWatched:
		return "Watched"
	case FilterUnwatched:
		return "Unwatched"
	case FilterPartiallyWatched:
		return "Continue Watching"
	case FilterRecent:
		return "Recently Added"
	default:
		return string(f)
	}
}

// ParseFilterOption maps a stored or user-supplied value to a FilterOption,
// falling back to FilterAll for unknown input.
func ParseFilterOption(value string) FilterOption {
	for _, opt := range FilterOptions {
		if string(opt) == value {
			return opt
		}
	}
	return FilterAll
}

// GroupOption partitions the final video list into named buckets.
type GroupOption string

const (
	GroupNone      GroupOption = "none"
	GroupFolder    GroupOption = "folder"
	GroupFormat    GroupOption = "format"
	GroupDuration  GroupOption = "duration"
	GroupSize      GroupOption = "size"
	GroupDateAdded GroupOption = "date_added"
)

// GroupOptions lists every supported grouping.
var GroupOptions = []GroupOption{
	GroupNone, GroupFolder, GroupFormat,
	GroupDuration, GroupSize, GroupDateAdded,
}

// DisplayName returns the human-readable label for the grouping.
func (g GroupOption) DisplayName() string {
	switch g {
	case GroupNone:
		return "No Grouping"
	case GroupFolder:
		return "By Folder"
	case GroupFormat:
		return "By Format"
	case GroupDuration:
		return "By Duration"
	case GroupSize:
		return "By File Size"
	case GroupDateAdded:
		return "By Date Added"
	default:
		return string(g)
	}
}

// ParseGroupOption maps a stored or user-supplied value to a GroupOption,
// falling back to GroupNone for unknown input.
func ParseGroupOption(value string) GroupOption {
	for _, opt := range GroupOptions {
		if string(opt) == value {
			return opt
		}
	}
	return GroupNone
}

// ViewMode selects the presentation layout.
type ViewMode string

const (
	ViewModeGrid ViewMode = "grid"
	ViewModeList ViewMode = "list"
)

// ParseViewMode maps a stored value to a ViewMode, defaulting to grid.
func ParseViewMode(value string) ViewMode {
	if value == string(ViewModeList) {
		return ViewModeList
	}
	return ViewModeGrid
}
