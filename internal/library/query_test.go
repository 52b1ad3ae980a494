package library

import (
	"testing"
	"time"

	"montage/pkg/models"
)

func int64Ptr(v int64) *int64 { return &v }

// testVideos builds a small fixed library anchored on now.
func testVideos(now time.Time) []models.Video {
	nowMs := now.UnixMilli()
	return []models.Video{
		{
			Path: "/videos/trips/beach.mp4", Title: "Beach Trip", DisplayName: "beach.mp4",
			Folder: "/videos/trips", FolderName: "trips", Format: "mp4",
			Duration: 5 * 60 * 1000, Size: 50 * 1024 * 1024,
			DateAdded: nowMs - 2*60*60*1000, DateModified: nowMs - 2*60*60*1000,
			IsFavorite: true, WatchProgress: 0.5, LastWatchedTime: int64Ptr(nowMs - 60*60*1000),
		},
		{
			Path: "/videos/trips/cafe visit.mp4", Title: "Café Visit", DisplayName: "cafe visit.mp4",
			Folder: "/videos/trips", FolderName: "trips", Format: "mp4",
			Duration: 45 * 60 * 1000, Size: 700 * 1024 * 1024,
			DateAdded: nowMs - 3*24*60*60*1000, DateModified: nowMs - 3*24*60*60*1000,
			IsWatched: true, WatchProgress: 1, LastWatchedTime: int64Ptr(nowMs - 2*24*60*60*1000),
		},
		{
			Path: "/videos/movies/heist.mkv", Title: "The Heist", DisplayName: "heist.mkv",
			Folder: "/videos/movies", FolderName: "movies", Format: "mkv",
			Duration: 130 * 60 * 1000, Size: 2 * 1024 * 1024 * 1024,
			DateAdded: nowMs - 20*24*60*60*1000, DateModified: nowMs - 20*24*60*60*1000,
		},
		{
			Path: "/videos/movies/western.avi", Title: "Western", DisplayName: "western.avi",
			Folder: "/videos/movies", FolderName: "movies", Format: "avi",
			Duration: 95 * 60 * 1000, Size: 900 * 1024 * 1024,
			DateAdded: nowMs - 100*24*60*60*1000, DateModified: nowMs - 100*24*60*60*1000,
			WatchProgress: 0.2, LastWatchedTime: int64Ptr(nowMs - 90*24*60*60*1000),
		},
	}
}

func paths(videos []models.Video) []string {
	out := make([]string, len(videos))
	for i, v := range videos {
		out[i] = v.Path
	}
	return out
}

func TestQueryVideosFilters(t *testing.T) {
	now := time.Now()
	videos := testVideos(now)

	tests := []struct {
		name     string
		filter   FilterOption
		expected []string
	}{
		{"favorites", FilterFavorites, []string{"/videos/trips/beach.mp4"}},
		{"watched", FilterWatched, []string{"/videos/trips/cafe visit.mp4"}},
		{"unwatched", FilterUnwatched, []string{
			"/videos/trips/beach.mp4", "/videos/movies/heist.mkv", "/videos/movies/western.avi",
		}},
		{"partially watched", FilterPartiallyWatched, []string{
			"/videos/trips/beach.mp4", "/videos/movies/western.avi",
		}},
		{"recently added", FilterRecent, []string{
			"/videos/trips/beach.mp4", "/videos/trips/cafe visit.mp4",
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Date-added ascending keeps expectations order-independent of input
			result := QueryVideos(videos, SortDateAddedAsc, tt.filter, "", nil, now)
			got := paths(result)
			want := make(map[string]bool, len(tt.expected))
			for _, p := range tt.expected {
				want[p] = true
			}
			if len(got) != len(tt.expected) {
				t.Fatalf("filter %s returned %d videos, want %d: %v", tt.filter, len(got), len(tt.expected), got)
			}
			for _, p := range got {
				if !want[p] {
					t.Errorf("filter %s returned unexpected video %s", tt.filter, p)
				}
			}
		})
	}
}

func TestFolderRestrictionOnlyAppliesToAllFilter(t *testing.T) {
	now := time.Now()
	videos := testVideos(now)
	folders := map[string]bool{"/videos/trips": true}

	t.Run("all filter restricted", func(t *testing.T) {
		result := QueryVideos(videos, SortNameAsc, FilterAll, "", folders, now)
		if len(result) != 2 {
			t.Fatalf("got %d videos, want 2", len(result))
		}
		for _, v := range result {
			if v.Folder != "/videos/trips" {
				t.Errorf("unexpected folder %s", v.Folder)
			}
		}
	})

	t.Run("unwatched filter ignores folder restriction", func(t *testing.T) {
		result := QueryVideos(videos, SortNameAsc, FilterUnwatched, "", folders, now)
		if len(result) != 3 {
			t.Fatalf("got %d videos, want 3 (restriction must not apply)", len(result))
		}
	})
}

func TestQueryVideosSearch(t *testing.T) {
	now := time.Now()
	videos := testVideos(now)

	t.Run("accent-insensitive title match", func(t *testing.T) {
		result := QueryVideos(videos, SortNameAsc, FilterAll, "cafe", nil, now)
		if len(result) == 0 {
			t.Fatal("expected a match for 'cafe'")
		}
		if result[0].Title != "Café Visit" {
			t.Errorf("top result = %s, want Café Visit", result[0].Title)
		}
	})

	t.Run("folder name matches too", func(t *testing.T) {
		result := QueryVideos(videos, SortNameAsc, FilterAll, "movies", nil, now)
		if len(result) != 2 {
			t.Fatalf("got %d results for folder-name search, want 2", len(result))
		}
	})

	t.Run("gibberish matches nothing", func(t *testing.T) {
		result := QueryVideos(videos, SortNameAsc, FilterAll, "zzxxqqyy", nil, now)
		if len(result) != 0 {
			t.Errorf("got %d results for gibberish, want 0", len(result))
		}
	})

	t.Run("blank query keeps everything", func(t *testing.T) {
		result := QueryVideos(videos, SortNameAsc, FilterAll, "   ", nil, now)
		if len(result) != len(videos) {
			t.Errorf("got %d results for blank query, want %d", len(result), len(videos))
		}
	})
}

func TestQueryVideosSorting(t *testing.T) {
	now := time.Now()
	videos := testVideos(now)

	tests := []struct {
		name  string
		sort  SortOption
		first string
		last  string
	}{
		{"name asc", SortNameAsc, "/videos/trips/beach.mp4", "/videos/movies/western.avi"},
		{"name desc", SortNameDesc, "/videos/movies/western.avi", "/videos/trips/beach.mp4"},
		{"date added asc", SortDateAddedAsc, "/videos/movies/western.avi", "/videos/trips/beach.mp4"},
		{"date added desc", SortDateAddedDesc, "/videos/trips/beach.mp4", "/videos/movies/western.avi"},
		{"size asc", SortSizeAsc, "/videos/trips/beach.mp4", "/videos/movies/heist.mkv"},
		{"size desc", SortSizeDesc, "/videos/movies/heist.mkv", "/videos/trips/beach.mp4"},
		{"duration asc", SortDurationAsc, "/videos/trips/beach.mp4", "/videos/movies/heist.mkv"},
		{"duration desc", SortDurationDesc, "/videos/movies/heist.mkv", "/videos/trips/beach.mp4"},
		{"last watched desc", SortLastWatchedDesc, "/videos/trips/beach.mp4", "/videos/movies/heist.mkv"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := QueryVideos(videos, tt.sort, FilterAll, "", nil, now)
			if len(result) != len(videos) {
				t.Fatalf("got %d videos, want %d", len(result), len(videos))
			}
			if result[0].Path != tt.first {
				t.Errorf("first = %s, want %s", result[0].Path, tt.first)
			}
			if result[len(result)-1].Path != tt.last {
				t.Errorf("last = %s, want %s", result[len(result)-1].Path, tt.last)
			}
		})
	}

	t.Run("never watched sorts before watched ascending", func(t *testing.T) {
		result := QueryVideos(videos, SortLastWatchedAsc, FilterAll, "", nil, now)
		if result[0].Path != "/videos/movies/heist.mkv" {
			t.Errorf("first = %s, want the never-watched video", result[0].Path)
		}
	})
}

func TestGroupVideosPartition(t *testing.T) {
	now := time.Now()
	videos := testVideos(now)

	for _, group := range []GroupOption{GroupFolder, GroupFormat, GroupDuration, GroupSize, GroupDateAdded} {
		t.Run(string(group), func(t *testing.T) {
			groups := GroupVideos(videos, group, now)
			total := 0
			seen := make(map[string]bool)
			for _, g := range groups {
				if seen[g.Name] {
					t.Errorf("duplicate group name %q", g.Name)
				}
				seen[g.Name] = true
				total += len(g.Videos)
			}
			if total != len(videos) {
				t.Errorf("groups hold %d videos, want %d", total, len(videos))
			}
		})
	}
}

func TestGroupVideosBuckets(t *testing.T) {
	now := time.Now()
	videos := testVideos(now)

	t.Run("duration buckets", func(t *testing.T) {
		groups := GroupVideos(videos, GroupDuration, now)
		byName := make(map[string][]models.Video)
		for _, g := range groups {
			byName[g.Name] = g.Videos
		}
		if len(byName["Short"]) != 1 {
			t.Errorf("Short bucket has %d videos, want 1", len(byName["Short"]))
		}
		if len(byName["Movie"]) != 1 {
			t.Errorf("Movie bucket has %d videos, want 1", len(byName["Movie"]))
		}
		if len(byName["Very Long"]) != 1 {
			t.Errorf("Very Long bucket has %d videos, want 1", len(byName["Very Long"]))
		}
	})

	t.Run("date buckets", func(t *testing.T) {
		groups := GroupVideos(videos, GroupDateAdded, now)
		byName := make(map[string]int)
		for _, g := range groups {
			byName[g.Name] = len(g.Videos)
		}
		if byName["Today"] != 1 {
			t.Errorf("Today = %d, want 1", byName["Today"])
		}
		if byName["This Week"] != 1 {
			t.Errorf("This Week = %d, want 1", byName["This Week"])
		}
		if byName["This Month"] != 1 {
			t.Errorf("This Month = %d, want 1", byName["This Month"])
		}
		if byName["This Year"] != 1 {
			t.Errorf("This Year = %d, want 1", byName["This Year"])
		}
	})

	t.Run("format groups uppercased", func(t *testing.T) {
		groups := GroupVideos(videos, GroupFormat, now)
		for _, g := range groups {
			if g.Name != "MP4" && g.Name != "MKV" && g.Name != "AVI" {
				t.Errorf("unexpected format group %q", g.Name)
			}
		}
	})

	t.Run("no grouping yields single bucket", func(t *testing.T) {
		groups := GroupVideos(videos, GroupNone, now)
		if len(groups) != 1 || groups[0].Name != "" {
			t.Fatalf("GroupNone = %+v, want one unnamed bucket", groups)
		}
		if len(groups[0].Videos) != len(videos) {
			t.Errorf("bucket holds %d videos, want %d", len(groups[0].Videos), len(videos))
		}
	})

	t.Run("empty input yields empty slice", func(t *testing.T) {
		groups := GroupVideos(nil, GroupFolder, now)
		if groups == nil || len(groups) != 0 {
			t.Errorf("got %v, want empty non-nil slice", groups)
		}
	})
}

func TestParseOptions(t *testing.T) {
	t.Run("unknown sort falls back", func(t *testing.T) {
		if got := ParseSortOption("bogus"); got != SortDateAddedDesc {
			t.Errorf("got %s, want %s", got, SortDateAddedDesc)
		}
	})
	t.Run("unknown filter falls back", func(t *testing.T) {
		if got := ParseFilterOption("bogus"); got != FilterAll {
			t.Errorf("got %s, want %s", got, FilterAll)
		}
	})
	t.Run("unknown group falls back", func(t *testing.T) {
		if got := ParseGroupOption("bogus"); got != GroupNone {
			t.Errorf("got %s, want %s", got, GroupNone)
		}
	})
	t.Run("known values round-trip", func(t *testing.T) {
		for _, opt := range SortOptions {
			if got := ParseSortOption(string(opt)); got != opt {
				t.Errorf("ParseSortOption(%s) = %s", opt, got)
			}
		}
	})
}
