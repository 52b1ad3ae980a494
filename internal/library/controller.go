package library

import (
	"context"
	"os"
	"sync"
	"time"

	"montage/pkg/models"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// debounceWindow coalesces rapid successive parameter changes (e.g. typing
// in the search field) before the query pipeline re-runs.
const debounceWindow = 250 * time.Millisecond

// watchedThreshold is the progress at which a video counts as watched.
const watchedThreshold = 0.9

// Store is the persistence collaborator the controller mutates and queries.
// *database.Database satisfies it.
type Store interface {
	GetAllVideos() ([]models.Video, error)
	GetAllFolders() ([]models.Folder, error)
	UpdateFavoriteStatus(path string, isFavorite bool) error
	UpdateWatchedStatus(path string, isWatched bool, timestamp *int64) error
	UpdateWatchProgress(path string, progress float64, timestamp int64) error
	DeleteVideoByPath(path string) error
	ReplaceLibrary(videos []models.Video, folders []models.Folder) error
}

// Preferences is the persisted user-settings collaborator.
// *preferences.Library satisfies it.
type Preferences interface {
	SortOption() SortOption
	SetSortOption(SortOption) error
	FilterOption() FilterOption
	SetFilterOption(FilterOption) error
	GroupOption() GroupOption
	SetGroupOption(GroupOption) error
	ViewMode() ViewMode
	SetViewMode(ViewMode) error
	SelectedFolderPath() string
	SetSelectedFolderPath(string) error
	ScrollPosition(grid bool) (index, offset int)
	SaveScrollPosition(grid bool, index, offset int) error
}

// LibraryScanner produces the full video and folder listing on demand.
// *scanner.Scanner satisfies it.
type LibraryScanner interface {
	ScanAll(ctx context.Context, onProgress func(processed, total int)) ([]models.Video, []models.Folder, error)
}

// State is the single continuously-updated view of the library a
// presentation layer renders. Snapshots are value copies; callers must not
// mutate the contained slices or maps.
type State struct {
	Videos          []models.Video  `json:"videos"`
	Grouped         []VideoGroup    `json:"grouped"`
	Folders         []models.Folder `json:"folders"`
	SelectedVideos  map[string]bool `json:"selectedVideos"`
	IsDragSelecting bool            `json:"isDragSelecting"`
	SearchQuery     string          `json:"searchQuery"`
	SortOption      SortOption      `json:"sortOption"`
	FilterOption    FilterOption    `json:"filterOption"`
	GroupOption     GroupOption     `json:"groupOption"`
	SelectedFolder  string          `json:"selectedFolder,omitempty"`
	ViewMode        ViewMode        `json:"viewMode"`
	IsLoading       bool            `json:"isLoading"`
	IsScanning      bool            `json:"isScanning"`
	ScanProgress    float64         `json:"scanProgress"`
	ScanJobID       string          `json:"scanJobId,omitempty"`
	UpdatedAt       time.Time       `json:"updatedAt"`
}

// queryParams are the ephemeral inputs of one query pipeline run.
type queryParams struct {
	sort           SortOption
	filter         FilterOption
	group          GroupOption
	searchQuery    string
	selectedFolder string
}

// Controller holds the published library state and re-derives it whenever
// the query parameters settle. Parameter changes are debounced; superseded
// in-flight queries are abandoned via context cancellation.
type Controller struct {
	store   Store
	prefs   Preferences
	scanner LibraryScanner
	logger  *logrus.Logger

	mu        sync.RWMutex
	state     State
	params    queryParams
	listeners []chan State

	paramCh     chan queryParams
	baseCtx     context.Context
	baseCancel  context.CancelFunc
	cancelQuery context.CancelFunc
	queryMu     sync.Mutex
}

// NewController loads the persisted preferences, seeds the published state
// from them and starts the debounced query pipeline. An initial query is
// queued immediately.
func NewController(store Store, prefs Preferences, scan LibraryScanner) *Controller {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})

	ctx, cancel := context.WithCancel(context.Background())
	c := &Controller{
		store:      store,
		prefs:      prefs,
		scanner:    scan,
		logger:     logger,
		paramCh:    make(chan queryParams, 1),
		baseCtx:    ctx,
		baseCancel: cancel,
	}

	// Seed both the parameter input and the published state from the
	// persisted preferences, synchronously.
	c.params = queryParams{
		sort:           prefs.SortOption(),
		filter:         prefs.FilterOption(),
		group:          prefs.GroupOption(),
		selectedFolder: prefs.SelectedFolderPath(),
	}
	c.state = State{
		SelectedVideos: make(map[string]bool),
		SortOption:     c.params.sort,
		FilterOption:   c.params.filter,
		GroupOption:    c.params.group,
		SelectedFolder: c.params.selectedFolder,
		ViewMode:       prefs.ViewMode(),
		IsLoading:      true,
		UpdatedAt:      time.Now(),
	}

	go c.run()
	c.pushParams(c.params)
	return c
}

// Close tears down the pipeline. In-flight work is abandoned.
func (c *Controller) Close() {
	c.baseCancel()
}

// GetState returns a snapshot of the current published state.
func (c *Controller) GetState() State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

// Subscribe adds a listener for state changes
func (c *Controller) Subscribe() <-chan State {
	c.mu.Lock()
	defer c.mu.Unlock()

	ch := make(chan State, 10) // Buffered channel to prevent blocking
	c.listeners = append(c.listeners, ch)
	return ch
}

// Unsubscribe removes a listener (call this when done to prevent memory leaks)
func (c *Controller) Unsubscribe(ch <-chan State) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for i, listener := range c.listeners {
		if listener == ch {
			close(listener)
			c.listeners = append(c.listeners[:i], c.listeners[i+1:]...)
			break
		}
	}
}

// notifyListeners sends state updates to all subscribers (must be called with lock held)
func (c *Controller) notifyListeners() {
	stateCopy := c.state
	for i := 0; i < len(c.listeners); i++ {
		select {
		case c.listeners[i] <- stateCopy:
			// Successfully sent
		default:
			// Channel is full or closed, remove it
			close(c.listeners[i])
			c.listeners = append(c.listeners[:i], c.listeners[i+1:]...)
			i--
		}
	}
}

// mutateState applies fn to the published state under the write lock and
// notifies subscribers.
func (c *Controller) mutateState(fn func(*State)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fn(&c.state)
	c.state.UpdatedAt = time.Now()
	c.notifyListeners()
}

// run is the debounce loop: it waits for the parameter stream to go quiet
// for one debounce window, then kicks off a query for the latest set.
func (c *Controller) run() {
	var timer *time.Timer
	var timerC <-chan time.Time
	var pending queryParams
	var havePending bool

	for {
		select {
		case p := <-c.paramCh:
			pending = p
			havePending = true
			if timer != nil {
				timer.Stop()
			}
			timer = time.NewTimer(debounceWindow)
			timerC = timer.C

		case <-timerC:
			timerC = nil
			if havePending {
				havePending = false
				c.startQuery(pending)
			}

		case <-c.baseCtx.Done():
			if timer != nil {
				timer.Stop()
			}
			return
		}
	}
}

// pushParams replaces any queued parameter set with the given one; the
// debounce loop only ever sees the latest.
func (c *Controller) pushParams(p queryParams) {
	for {
		select {
		case c.paramCh <- p:
			return
		default:
			select {
			case <-c.paramCh:
			default:
			}
		}
	}
}

// startQuery abandons any in-flight query and derives a fresh view state
// for the given parameters off the caller's goroutine.
func (c *Controller) startQuery(p queryParams) {
	c.queryMu.Lock()
	if c.cancelQuery != nil {
		c.cancelQuery()
	}
	ctx, cancel := context.WithCancel(c.baseCtx)
	c.cancelQuery = cancel
	c.queryMu.Unlock()

	go func() {
		// Load videos and folders concurrently
		var videos []models.Video
		var folders []models.Folder
		var videosErr, foldersErr error
		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			videos, videosErr = c.store.GetAllVideos()
		}()
		go func() {
			defer wg.Done()
			folders, foldersErr = c.store.GetAllFolders()
		}()
		wg.Wait()

		if videosErr != nil {
			c.logger.WithError(videosErr).Error("Failed to load videos")
		}
		if foldersErr != nil {
			c.logger.WithError(foldersErr).Error("Failed to load folders")
		}

		folderPaths := make(map[string]bool)
		if p.selectedFolder != "" {
			folderPaths[p.selectedFolder] = true
		}

		now := time.Now()
		result := QueryVideos(videos, p.sort, p.filter, p.searchQuery, folderPaths, now)
		grouped := GroupVideos(result, p.group, now)

		// A newer parameter set superseded this query; discard the result.
		if ctx.Err() != nil {
			return
		}

		c.mutateState(func(s *State) {
			s.Videos = result
			s.Grouped = grouped
			s.Folders = folders
			s.IsLoading = false
			s.SortOption = p.sort
			s.FilterOption = p.filter
			s.GroupOption = p.group
			s.SearchQuery = p.searchQuery
			s.SelectedFolder = p.selectedFolder
		})
	}()
}

// updateParams mutates the current parameter set and queues it for the
// debounced pipeline.
func (c *Controller) updateParams(fn func(*queryParams)) {
	c.mu.Lock()
	fn(&c.params)
	p := c.params
	c.mu.Unlock()
	c.pushParams(p)
}

// SetSearchQuery updates the displayed search text immediately (typing must
// stay responsive) while the actual query lags by the debounce window.
func (c *Controller) SetSearchQuery(query string) {
	c.mutateState(func(s *State) { s.SearchQuery = query })
	c.updateParams(func(p *queryParams) { p.searchQuery = query })
}

// ClearSearch resets the search text.
func (c *Controller) ClearSearch() {
	c.SetSearchQuery("")
}

// SetSortOption changes the sort order and persists it as the new default.
func (c *Controller) SetSortOption(opt SortOption) {
	c.updateParams(func(p *queryParams) { p.sort = opt })
	if err := c.prefs.SetSortOption(opt); err != nil {
		c.logger.WithError(err).Warn("Failed to persist sort option")
	}
}

// SetFilterOption changes the filter and persists it as the new default.
func (c *Controller) SetFilterOption(opt FilterOption) {
	c.updateParams(func(p *queryParams) { p.filter = opt })
	if err := c.prefs.SetFilterOption(opt); err != nil {
		c.logger.WithError(err).Warn("Failed to persist filter option")
	}
}

// SetGroupOption changes the grouping and persists it as the new default.
func (c *Controller) SetGroupOption(opt GroupOption) {
	c.updateParams(func(p *queryParams) { p.group = opt })
	if err := c.prefs.SetGroupOption(opt); err != nil {
		c.logger.WithError(err).Warn("Failed to persist group option")
	}
}

// SetViewMode switches between grid and list presentation.
func (c *Controller) SetViewMode(mode ViewMode) {
	c.mutateState(func(s *State) { s.ViewMode = mode })
	if err := c.prefs.SetViewMode(mode); err != nil {
		c.logger.WithError(err).Warn("Failed to persist view mode")
	}
}

// SelectFolder restricts the All filter to a single folder path; the empty
// string clears the restriction.
func (c *Controller) SelectFolder(path string) {
	c.updateParams(func(p *queryParams) { p.selectedFolder = path })
	if err := c.prefs.SetSelectedFolderPath(path); err != nil {
		c.logger.WithError(err).Warn("Failed to persist folder selection")
	}
}

// ClearFolderSelection removes the folder restriction.
func (c *Controller) ClearFolderSelection() {
	c.SelectFolder("")
}

// ToggleFavorite flips the favorite flag of one video: optimistically in
// the published state, then in the store.
func (c *Controller) ToggleFavorite(path string) {
	var newValue bool
	var found bool
	c.mutateState(func(s *State) {
		for i := range s.Videos {
			if s.Videos[i].Path == path {
				s.Videos[i].IsFavorite = !s.Videos[i].IsFavorite
				newValue = s.Videos[i].IsFavorite
				found = true
				return
			}
		}
	})
	if !found {
		// Not in the current view; read the stored value instead
		newValue = true
		if videos, err := c.store.GetAllVideos(); err == nil {
			for _, v := range videos {
				if v.Path == path {
					newValue = !v.IsFavorite
					break
				}
			}
		}
	}

	go func() {
		if err := c.store.UpdateFavoriteStatus(path, newValue); err != nil {
			c.logger.WithError(err).WithField("path", path).Error("Failed to persist favorite toggle")
		}
	}()
}

// UpdateWatchProgress records playback progress for one video. Progress at
// or above the watched threshold also marks the video watched.
func (c *Controller) UpdateWatchProgress(path string, progress float64) {
	if progress < 0 {
		progress = 0
	} else if progress > 1 {
		progress = 1
	}
	now := time.Now().UnixMilli()

	c.mutateState(func(s *State) {
		for i := range s.Videos {
			if s.Videos[i].Path == path {
				s.Videos[i].WatchProgress = progress
				s.Videos[i].LastWatchedTime = &now
				if progress >= watchedThreshold {
					s.Videos[i].IsWatched = true
				}
				return
			}
		}
	})

	go func() {
		if err := c.store.UpdateWatchProgress(path, progress, now); err != nil {
			c.logger.WithError(err).WithField("path", path).Error("Failed to persist watch progress")
			return
		}
		if progress >= watchedThreshold {
			if err := c.store.UpdateWatchedStatus(path, true, &now); err != nil {
				c.logger.WithError(err).WithField("path", path).Error("Failed to persist watched status")
			}
		}
	}()
}

// DeleteVideo removes the on-disk file (best effort; a missing file is not
// an error) and the database row. The row is removed even when the file
// removal fails; that failure is only reflected in the return value.
func (c *Controller) DeleteVideo(path string) bool {
	fileDeleted := true
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		c.logger.WithError(err).WithField("path", path).Warn("Failed to delete video file")
		fileDeleted = false
	}

	rowDeleted := true
	if err := c.store.DeleteVideoByPath(path); err != nil {
		rowDeleted = false
	}

	c.mutateState(func(s *State) {
		videos := make([]models.Video, 0, len(s.Videos))
		for _, v := range s.Videos {
			if v.Path != path {
				videos = append(videos, v)
			}
		}
		s.Videos = videos
		if s.SelectedVideos[path] {
			selected := copySelection(s.SelectedVideos)
			delete(selected, path)
			s.SelectedVideos = selected
		}
	})

	// Re-derive grouped view and folder aggregates
	c.updateParams(func(*queryParams) {})

	return fileDeleted && rowDeleted
}

// DeleteSelectedVideos deletes every selected video and clears the selection.
func (c *Controller) DeleteSelectedVideos() {
	state := c.GetState()
	for path := range state.SelectedVideos {
		c.DeleteVideo(path)
	}
	c.ClearVideoSelection()
}

// ToggleVideoSelection adds or removes one video from the multi-select set.
func (c *Controller) ToggleVideoSelection(path string) {
	c.mutateState(func(s *State) {
		selected := copySelection(s.SelectedVideos)
		if selected[path] {
			delete(selected, path)
		} else {
			selected[path] = true
		}
		s.SelectedVideos = selected
	})
}

// ClearVideoSelection empties the multi-select set and ends drag selection.
func (c *Controller) ClearVideoSelection() {
	c.mutateState(func(s *State) {
		s.SelectedVideos = make(map[string]bool)
		s.IsDragSelecting = false
	})
}

// StartDragSelection begins a drag selection anchored on one video.
func (c *Controller) StartDragSelection(path string) {
	c.mutateState(func(s *State) {
		s.IsDragSelecting = true
		s.SelectedVideos = map[string]bool{path: true}
	})
}

// SelectVideoOnDrag adds a video to the selection while dragging.
func (c *Controller) SelectVideoOnDrag(path string) {
	c.mutateState(func(s *State) {
		if !s.IsDragSelecting || s.SelectedVideos[path] {
			return
		}
		selected := copySelection(s.SelectedVideos)
		selected[path] = true
		s.SelectedVideos = selected
	})
}

// EndDragSelection finishes a drag selection, keeping the selected set.
func (c *Controller) EndDragSelection() {
	c.mutateState(func(s *State) { s.IsDragSelecting = false })
}

// ScanLibrary starts a full library scan in the background and returns its
// job ID. If a scan is already running, its ID is returned instead and no
// new scan starts. Progress publishes are throttled to one per 1% delta or
// 100ms, whichever comes first; progress only moves forward over one scan.
func (c *Controller) ScanLibrary() (jobID string, started bool) {
	c.mu.Lock()
	if c.state.IsScanning {
		id := c.state.ScanJobID
		c.mu.Unlock()
		return id, false
	}
	jobID = uuid.New().String()
	c.state.IsScanning = true
	c.state.ScanProgress = 0
	c.state.ScanJobID = jobID
	c.state.UpdatedAt = time.Now()
	c.notifyListeners()
	c.mu.Unlock()

	go func() {
		var lastPublished float64
		var lastUpdate time.Time

		videos, folders, err := c.scanner.ScanAll(c.baseCtx, func(processed, total int) {
			progress := 0.0
			if total > 0 {
				progress = float64(processed) / float64(total)
			}
			now := time.Now()
			if progress-lastPublished >= 0.01 || now.Sub(lastUpdate) >= 100*time.Millisecond {
				lastPublished = progress
				lastUpdate = now
				c.mutateState(func(s *State) { s.ScanProgress = progress })
			}
		})
		completed := false
		if err != nil {
			c.logger.WithError(err).Error("Library scan failed")
		} else if err := c.store.ReplaceLibrary(videos, folders); err != nil {
			c.logger.WithError(err).Error("Failed to persist scan results")
		} else {
			completed = true
		}

		// A failed scan keeps its last real progress so it does not read
		// as finished.
		c.mutateState(func(s *State) {
			s.IsScanning = false
			if completed {
				s.ScanProgress = 1
			}
		})

		// Trigger a full reload with the current parameters
		c.updateParams(func(*queryParams) {})
	}()

	return jobID, true
}

// SaveScrollPosition persists the scroll position for one layout.
func (c *Controller) SaveScrollPosition(grid bool, index, offset int) {
	if err := c.prefs.SaveScrollPosition(grid, index, offset); err != nil {
		c.logger.WithError(err).Warn("Failed to persist scroll position")
	}
}

// ScrollPosition returns the persisted scroll position for one layout.
func (c *Controller) ScrollPosition(grid bool) (index, offset int) {
	return c.prefs.ScrollPosition(grid)
}

func copySelection(selected map[string]bool) map[string]bool {
	out := make(map[string]bool, len(selected))
	for path := range selected {
		out[path] = true
	}
	return out
}
