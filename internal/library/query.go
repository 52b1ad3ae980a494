package library

import (
	"sort"
	"strings"
	"time"

	"montage/internal/search"
	"montage/pkg/models"
)

// matchThreshold is the minimum partial-ratio score a video must reach
// against the search query to stay in the result set.
const matchThreshold = 75

const (
	dayMs  = int64(24 * 60 * 60 * 1000)
	weekMs = 7 * dayMs
)

// QueryVideos runs the filter, search and sort stages over the in-memory
// video set and returns the ordered result. The now argument anchors the
// time-relative filters so results are reproducible in tests.
//
// Only the All filter honors the folderPaths restriction; the remaining
// filters intentionally operate on the full set. That asymmetry is inherited
// from the reference behavior and is preserved, not fixed.
func QueryVideos(videos []models.Video, sortOpt SortOption, filter FilterOption, query string, folderPaths map[string]bool, now time.Time) []models.Video {
	filtered := applyFilter(videos, filter, folderPaths, now)
	searched := applySearch(filtered, query)
	return applySort(searched, sortOpt)
}

func applyFilter(videos []models.Video, filter FilterOption, folderPaths map[string]bool, now time.Time) []models.Video {
	out := make([]models.Video, 0, len(videos))
	switch filter {
	case FilterFavorites:
		for _, v := range videos {
			if v.IsFavorite {
				out = append(out, v)
			}
		}
	case FilterWatched:
		for _, v := range videos {
			if v.IsWatched {
				out = append(out, v)
			}
		}
	case FilterUnwatched:
		for _, v := range videos {
			if !v.IsWatched {
				out = append(out, v)
			}
		}
	case FilterPartiallyWatched:
		for _, v := range videos {
			if v.IsPartiallyWatched() {
				out = append(out, v)
			}
		}
	case FilterRecent:
		weekAgo := now.UnixMilli() - weekMs
		for _, v := range videos {
			if v.DateAdded > weekAgo {
				out = append(out, v)
			}
		}
	default: // FilterAll
		if len(folderPaths) == 0 {
			return append(out, videos...)
		}
		for _, v := range videos {
			if folderPaths[v.Folder] {
				out = append(out, v)
			}
		}
	}
	return out
}

func applySearch(videos []models.Video, query string) []models.Video {
	qn := search.Normalize(query)
	if qn == "" {
		return videos
	}

	type scored struct {
		video models.Video
		score int
	}
	kept := make([]scored, 0, len(videos))
	for _, v := range videos {
		titleScore := search.PartialRatio(qn, search.Normalize(v.Title))
		displayNameScore := search.PartialRatio(qn, search.Normalize(v.DisplayName))
		folderScore := search.PartialRatio(qn, search.Normalize(v.FolderName))

		maxScore := titleScore
		if displayNameScore > maxScore {
			maxScore = displayNameScore
		}
		if folderScore > maxScore {
			maxScore = folderScore
		}
		if maxScore >= matchThreshold {
			kept = append(kept, scored{video: v, score: maxScore})
		}
	}

	// Stable so ties keep pre-search order.
	sort.SliceStable(kept, func(i, j int) bool {
		return kept[i].score > kept[j].score
	})

	out := make([]models.Video, len(kept))
	for i, s := range kept {
		out[i] = s.video
	}
	return out
}

func applySort(videos []models.Video, sortOpt SortOption) []models.Video {
	out := make([]models.Video, len(videos))
	copy(out, videos)

	less := lessFunc(sortOpt)
	if less != nil {
		sort.SliceStable(out, func(i, j int) bool {
			return less(out[i], out[j])
		})
	}
	return out
}

func lessFunc(sortOpt SortOption) func(a, b models.Video) bool {
	switch sortOpt {
	case SortNameAsc:
		return func(a, b models.Video) bool { return a.DisplayName < b.DisplayName }
	case SortNameDesc:
		return func(a, b models.Video) bool { return a.DisplayName > b.DisplayName }
	case SortDateAddedAsc:
		return func(a, b models.Video) bool { return a.DateAdded < b.DateAdded }
	case SortDateAddedDesc:
		return func(a, b models.Video) bool { return a.DateAdded > b.DateAdded }
	case SortDateModifiedAsc:
		return func(a, b models.Video) bool { return a.DateModified < b.DateModified }
	case SortDateModifiedDesc:
		return func(a, b models.Video) bool { return a.DateModified > b.DateModified }
	case SortSizeAsc:
		return func(a, b models.Video) bool { return a.Size < b.Size }
	case SortSizeDesc:
		return func(a, b models.Video) bool { return a.Size > b.Size }
	case SortDurationAsc:
		return func(a, b models.Video) bool { return a.Duration < b.Duration }
	case SortDurationDesc:
		return func(a, b models.Video) bool { return a.Duration > b.Duration }
	case SortLastWatchedAsc:
		return func(a, b models.Video) bool { return lastWatched(a) < lastWatched(b) }
	case SortLastWatchedDesc:
		return func(a, b models.Video) bool { return lastWatched(a) > lastWatched(b) }
	default:
		return nil
	}
}

func lastWatched(v models.Video) int64 {
	if v.LastWatchedTime == nil {
		return 0
	}
	return *v.LastWatchedTime
}

// VideoGroup is one named bucket produced by GroupVideos.
type VideoGroup struct {
	Name   string         `json:"name"`
	Videos []models.Video `json:"videos"`
}

// GroupVideos partitions the input into named buckets in first-seen order.
// Every video lands in exactly one bucket; within a bucket the input order
// is preserved. GroupNone yields a single bucket keyed by the empty string.
func GroupVideos(videos []models.Video, group GroupOption, now time.Time) []VideoGroup {
	if group == GroupNone {
		return []VideoGroup{{Name: "", Videos: videos}}
	}

	keyFor := groupKeyFunc(group, now)
	index := make(map[string]int)
	var groups []VideoGroup
	for _, v := range videos {
		key := keyFor(v)
		i, ok := index[key]
		if !ok {
			i = len(groups)
			index[key] = i
			groups = append(groups, VideoGroup{Name: key})
		}
		groups[i].Videos = append(groups[i].Videos, v)
	}
	if groups == nil {
		groups = []VideoGroup{}
	}
	return groups
}

func groupKeyFunc(group GroupOption, now time.Time) func(models.Video) string {
	switch group {
	case GroupFolder:
		return func(v models.Video) string { return v.FolderName }
	case GroupFormat:
		return func(v models.Video) string {
			if v.Format == "" {
				return "Unknown"
			}
			return strings.ToUpper(v.Format)
		}
	case GroupDuration:
		return func(v models.Video) string {
			switch {
			case v.Duration < 10*60*1000:
				return "Short"
			case v.Duration < 30*60*1000:
				return "Medium"
			case v.Duration < 60*60*1000:
				return "Long"
			case v.Duration < 120*60*1000:
				return "Very Long"
			default:
				return "Movie"
			}
		}
	case GroupSize:
		return func(v models.Video) string {
			switch {
			case v.Size < 100*1024*1024:
				return "Small"
			case v.Size < 500*1024*1024:
				return "Medium"
			case v.Size < 1024*1024*1024:
				return "Large"
			default:
				return "Very Large"
			}
		}
	case GroupDateAdded:
		nowMs := now.UnixMilli()
		return func(v models.Video) string {
			switch {
			case v.DateAdded > nowMs-dayMs:
				return "Today"
			case v.DateAdded > nowMs-7*dayMs:
				return "This Week"
			case v.DateAdded > nowMs-30*dayMs:
				return "This Month"
			case v.DateAdded > nowMs-365*dayMs:
				return "This Year"
			default:
				return "Older"
			}
		}
	default:
		return func(models.Video) string { return "" }
	}
}
