package playlist

import (
	"context"
	"strings"

	"echofm/logger"
	"echofm/model"
	"echofm/repository"
	"echofm/storage"
)

// Reconciler recomputes the playable list from the two persisted collections.
// It runs on every playlist refresh: initial load, search input, add, delete
// and favorite toggle.
type Reconciler struct {
	songs     repository.SongRepository
	favorites repository.FavoriteRepository
	blobs     storage.BlobStore
}

// NewReconciler creates a Reconciler over the given stores.
func NewReconciler(songs repository.SongRepository, favorites repository.FavoriteRepository, blobs storage.BlobStore) *Reconciler {
	return &Reconciler{songs: songs, favorites: favorites, blobs: blobs}
}

// Result is the outcome of one reconciliation pass.
type Result struct {
	Entries     []*model.PlaylistEntry
	FavoriteIDs map[string]bool
	Purged      int
}

// Run executes a full pass: fetch both collections concurrently, drop and
// clean up invalid primaries, synthesize virtual entries for orphaned
// favorites, then apply the search filter. Per-record failures during cleanup
// are logged and skipped; the pass itself never fails on them.
func (r *Reconciler) Run(ctx context.Context, filter string) (*Result, error) {
	var (
		songs    []*model.Song
		favs     []*model.Favorite
		songsErr error
		favsErr  error
	)

	done := make(chan struct{})
	go func() {
		defer close(done)
		favs, favsErr = r.favorites.GetAllFavorites(ctx)
	}()
	songs, songsErr = r.songs.GetAllSongs(ctx)
	<-done

	if songsErr != nil {
		return nil, songsErr
	}
	if favsErr != nil {
		return nil, favsErr
	}

	valid, invalid := ClassifySongs(songs)
	purged := r.cleanupInvalid(ctx, invalid)

	favoriteIDs := make(map[string]bool, len(favs))
	for _, f := range favs {
		favoriteIDs[f.SongID] = true
	}

	liveIDs := make(map[string]bool, len(valid))
	entries := make([]*model.PlaylistEntry, 0, len(valid)+len(favs))
	for _, s := range valid {
		liveIDs[s.ID] = true
		entries = append(entries, model.EntryFromSong(s, favoriteIDs[s.ID]))
	}

	// Favorites whose primary record is gone stay playable as virtual rows,
	// appended after the live entries.
	for _, f := range favs {
		if !liveIDs[f.SongID] {
			entries = append(entries, model.EntryFromFavorite(f))
		}
	}

	if q := strings.ToLower(strings.TrimSpace(filter)); q != "" {
		filtered := entries[:0]
		for _, e := range entries {
			if strings.Contains(strings.ToLower(e.Name), q) || strings.Contains(strings.ToLower(e.Artist), q) {
				filtered = append(filtered, e)
			}
		}
		entries = filtered
	}

	return &Result{Entries: entries, FavoriteIDs: favoriteIDs, Purged: purged}, nil
}

// ClassifySongs splits records into valid and invalid. A song is valid iff it
// has a non-empty name and either a stored payload of positive size or a
// non-empty URL. Pure: no store access, no side effects.
func ClassifySongs(songs []*model.Song) (valid, invalid []*model.Song) {
	for _, s := range songs {
		if s == nil {
			continue
		}
		if strings.TrimSpace(s.Name) != "" && (s.HasBlob() || strings.TrimSpace(s.URL) != "") {
			valid = append(valid, s)
		} else {
			invalid = append(invalid, s)
		}
	}
	return valid, invalid
}

// cleanupInvalid deletes invalid primary records and their orphaned payloads.
// Self-healing: corrupt entries disappear from the store so later passes see
// a clean collection. Failures are logged per record and do not stop the pass.
func (r *Reconciler) cleanupInvalid(ctx context.Context, invalid []*model.Song) int {
	purged := 0
	for _, s := range invalid {
		if s.ID == "" {
			continue
		}
		if err := r.songs.DeleteSong(ctx, s.ID); err != nil {
			logger.Warn("failed to purge invalid song",
				logger.String("songId", s.ID), logger.ErrorField(err))
			continue
		}
		if s.BlobKey != "" && r.blobs != nil {
			if err := r.blobs.Remove(ctx, s.BlobKey); err != nil {
				logger.Warn("failed to remove payload of purged song",
					logger.String("songId", s.ID), logger.String("blobKey", s.BlobKey), logger.ErrorField(err))
			}
		}
		purged++
	}
	return purged
}
