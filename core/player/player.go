package player

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"echofm/cache"
	"echofm/core/playlist"
	"echofm/logger"
	"echofm/model"
	"echofm/repository"
	"echofm/storage"
)

// NotifyFunc receives the reconciled list after every pass. The server wires
// this to the WebSocket broadcaster and the Redis playlist mirror.
type NotifyFunc func(entries []*model.PlaylistEntry, favoriteIDs map[string]bool)

// NowPlaying describes the resolved playback source for the current entry.
// Blob-backed sources are addressed through a transient stream path; remote
// sources are played straight from their URL.
type NowPlaying struct {
	Entry      *model.PlaylistEntry `json:"entry"`
	StreamPath string               `json:"streamPath,omitempty"`
	SourceURL  string               `json:"sourceUrl,omitempty"`
}

// Player is the single controller that owns the reconciled list, the current
// index and the playback handle slot. All playlist state lives here; nothing
// is kept in package-level globals.
type Player struct {
	songs      repository.SongRepository
	favorites  repository.FavoriteRepository
	blobs      storage.BlobStore
	reconciler *playlist.Reconciler
	handles    *HandleManager
	rng        playlist.Rand
	notify     NotifyFunc

	mu          sync.Mutex
	entries     []*model.PlaylistEntry
	favoriteIDs map[string]bool
	index       int
	filter      string
	shuffle     bool
	now         *NowPlaying
}

// New creates a Player. notify may be nil.
func New(
	songs repository.SongRepository,
	favorites repository.FavoriteRepository,
	blobs storage.BlobStore,
	reconciler *playlist.Reconciler,
	handles *HandleManager,
	rng playlist.Rand,
	notify NotifyFunc,
) *Player {
	return &Player{
		songs:       songs,
		favorites:   favorites,
		blobs:       blobs,
		reconciler:  reconciler,
		handles:     handles,
		rng:         rng,
		notify:      notify,
		favoriteIDs: map[string]bool{},
	}
}

// LoadPlaylist runs a reconciliation pass and publishes the result as the new
// playable list. Overlapping passes are not excluded; the later publication
// silently supersedes the earlier one.
func (p *Player) LoadPlaylist(ctx context.Context, filter string) ([]*model.PlaylistEntry, error) {
	result, err := p.reconciler.Run(ctx, filter)
	if err != nil {
		return nil, err
	}

	p.mu.Lock()
	p.entries = result.Entries
	p.favoriteIDs = result.FavoriteIDs
	p.filter = filter
	if p.index >= len(p.entries) {
		p.index = 0
	}
	p.mu.Unlock()

	if p.notify != nil {
		p.notify(result.Entries, result.FavoriteIDs)
	}
	return result.Entries, nil
}

// Entries returns the current reconciled list.
func (p *Player) Entries() []*model.PlaylistEntry {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.entries
}

// Now returns the current playback source, or nil when nothing has played.
func (p *Player) Now() *NowPlaying {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.now
}

// SetShuffle toggles plain random selection for sequential Next calls.
func (p *Player) SetShuffle(on bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.shuffle = on
}

// PlayByID starts playback of the entry with the given id. If the id is not
// in the current list, the favorite snapshot is consulted and a virtual entry
// is injected at the head of the list, matching how a favorites-modal click
// resurrects a deleted song.
func (p *Player) PlayByID(ctx context.Context, id string) (*NowPlaying, error) {
	if id == "" {
		return nil, model.ErrInvalidArgument
	}

	p.mu.Lock()
	idx := p.findLocked(id)
	p.mu.Unlock()

	if idx < 0 {
		snap, err := p.favorites.GetFavoriteBySongID(ctx, id)
		if err != nil {
			return nil, err
		}
		if snap == nil {
			return nil, model.ErrNotFound
		}
		virtual := model.EntryFromFavorite(snap)

		p.mu.Lock()
		p.entries = append([]*model.PlaylistEntry{virtual}, p.entries...)
		if p.index >= 0 {
			p.index++
		}
		idx = 0
		p.mu.Unlock()
	}

	return p.PlayByIndex(ctx, idx)
}

// PlayByIndex starts playback of the entry at position i in the current list.
// The played entry is copied out of the list; play-stat bumps land on the
// copy and the persisted record, never on rows a concurrent reader may be
// encoding. The list catches up on the next reconciliation pass.
func (p *Player) PlayByIndex(ctx context.Context, i int) (*NowPlaying, error) {
	p.mu.Lock()
	if i < 0 || i >= len(p.entries) {
		p.mu.Unlock()
		return nil, model.ErrNotFound
	}
	entry := *p.entries[i]
	p.mu.Unlock()

	now, err := p.resolveSource(ctx, &entry)
	if err != nil {
		return nil, err
	}

	p.bumpPlayStats(ctx, &entry)

	p.mu.Lock()
	p.index = i
	p.now = now
	p.mu.Unlock()
	return now, nil
}

// Next advances playback. With smart enabled it delegates to the weighted
// favorite-biased selector; otherwise it steps sequentially (or randomly when
// shuffle is on), wrapping at the end. An empty list is a no-op.
func (p *Player) Next(ctx context.Context, smart bool) (*NowPlaying, error) {
	p.mu.Lock()
	count := len(p.entries)
	if count == 0 {
		p.mu.Unlock()
		return nil, nil
	}

	next := (p.index + 1) % count
	if smart {
		if pick, ok := playlist.SmartPick(p.entries, p.rng); ok {
			if idx := p.findLocked(pick.ID); idx >= 0 {
				next = idx
			}
		}
	} else if p.shuffle {
		next = p.rng.Intn(count)
	}
	p.mu.Unlock()

	return p.PlayByIndex(ctx, next)
}

// Previous steps back one entry, wrapping at the start. Empty list: no-op.
func (p *Player) Previous(ctx context.Context) (*NowPlaying, error) {
	p.mu.Lock()
	count := len(p.entries)
	if count == 0 {
		p.mu.Unlock()
		return nil, nil
	}
	prev := (p.index - 1 + count) % count
	p.mu.Unlock()

	return p.PlayByIndex(ctx, prev)
}

// ToggleFavorite adds or removes the favorite snapshot for a song and then
// refreshes the playlist. Adding copies the blob payload so the snapshot
// survives deletion of the source; removing drops the snapshot's own copy.
func (p *Player) ToggleFavorite(ctx context.Context, id string) error {
	if id == "" {
		return model.ErrInvalidArgument
	}

	existing, err := p.favorites.GetFavoriteBySongID(ctx, id)
	if err != nil {
		return err
	}

	if existing != nil {
		if err := p.favorites.DeleteFavorite(ctx, id); err != nil {
			return err
		}
		if existing.BlobKey != "" {
			if err := p.blobs.Remove(ctx, existing.BlobKey); err != nil {
				logger.Warn("failed to remove snapshot payload",
					logger.String("songId", id), logger.ErrorField(err))
			}
		}
	} else {
		song, err := p.songs.GetSongByID(ctx, id)
		if err != nil {
			return err
		}
		if song == nil {
			return model.ErrNotFound
		}

		snapshot := &model.Favorite{
			SongID:  song.ID,
			Name:    song.Name,
			Artist:  song.Artist,
			URL:     song.URL,
			Cover:   song.Cover,
			Lyrics:  song.Lyrics,
			Folder:  song.Folder,
			AddedAt: time.Now(),
		}
		if song.HasBlob() {
			snapKey := fmt.Sprintf("favorites/%s%s", song.ID, filepath.Ext(song.BlobKey))
			if err := p.blobs.Copy(ctx, song.BlobKey, snapKey); err != nil {
				return fmt.Errorf("failed to snapshot payload for %s: %w", song.ID, err)
			}
			snapshot.BlobKey = snapKey
			snapshot.BlobSize = song.BlobSize
		}
		if err := p.favorites.CreateFavorite(ctx, snapshot); err != nil {
			return err
		}
	}

	_, err = p.LoadPlaylist(ctx, p.currentFilter())
	return err
}

// DeleteSong removes a song record and its payload. The favorite snapshot, if
// any, is deliberately left alone; the next pass resurfaces it as a virtual
// entry.
func (p *Player) DeleteSong(ctx context.Context, id string) error {
	song, err := p.songs.GetSongByID(ctx, id)
	if err != nil {
		return err
	}

	if err := p.songs.DeleteSong(ctx, id); err != nil {
		return err
	}
	if song != nil && song.BlobKey != "" {
		if err := p.blobs.Remove(ctx, song.BlobKey); err != nil {
			logger.Warn("failed to remove payload of deleted song",
				logger.String("songId", id), logger.ErrorField(err))
		}
	}

	_, err = p.LoadPlaylist(ctx, p.currentFilter())
	return err
}

// History returns played songs, most recent first.
func (p *Player) History(ctx context.Context) ([]*model.Song, error) {
	return p.songs.GetHistory(ctx)
}

// Favorites returns all favorite snapshots.
func (p *Player) Favorites(ctx context.Context) ([]*model.Favorite, error) {
	return p.favorites.GetAllFavorites(ctx)
}

// ResetAll clears both collections and all payloads. Maintenance only.
func (p *Player) ResetAll(ctx context.Context) error {
	if err := p.handles.Release(ctx); err != nil {
		logger.Warn("failed to release playback handle during reset", logger.ErrorField(err))
	}
	if err := p.songs.ResetSongs(ctx); err != nil {
		return err
	}
	if err := p.favorites.ResetFavorites(ctx); err != nil {
		return err
	}
	if err := p.blobs.RemovePrefix(ctx, "songs/"); err != nil {
		logger.Warn("failed to clear song payloads", logger.ErrorField(err))
	}
	if err := p.blobs.RemovePrefix(ctx, "favorites/"); err != nil {
		logger.Warn("failed to clear snapshot payloads", logger.ErrorField(err))
	}

	p.mu.Lock()
	p.now = nil
	p.index = 0
	p.mu.Unlock()

	_, err := p.LoadPlaylist(ctx, "")
	return err
}

// resolveSource picks the playable source for an entry: its own payload
// first, then the favorite snapshot's payload, then a URL. The previous
// handle is released by Acquire before the new source is handed out.
func (p *Player) resolveSource(ctx context.Context, entry *model.PlaylistEntry) (*NowPlaying, error) {
	blobKey := ""
	if entry.BlobKey != "" && entry.BlobSize > 0 {
		blobKey = entry.BlobKey
	}

	if blobKey == "" {
		snap, err := p.favorites.GetFavoriteBySongID(ctx, entry.ID)
		if err != nil {
			logger.Warn("favorites fallback failed",
				logger.String("songId", entry.ID), logger.ErrorField(err))
		} else if snap != nil && snap.HasBlob() {
			blobKey = snap.BlobKey
		}
	}

	if blobKey != "" {
		token, err := p.handles.Acquire(ctx, cache.HandleRecord{
			BlobKey: blobKey,
			SongID:  entry.ID,
		})
		if err != nil {
			return nil, err
		}
		return &NowPlaying{Entry: entry, StreamPath: "/stream/" + token}, nil
	}

	if entry.URL != "" {
		return &NowPlaying{Entry: entry, SourceURL: entry.URL}, nil
	}

	return nil, fmt.Errorf("%s: %w", entry.Name, model.ErrNotPlayable)
}

// bumpPlayStats increments playCount and stamps lastPlayed for primary
// entries. Virtual entries have no write-back target. An update failure is
// logged; playback proceeds regardless.
func (p *Player) bumpPlayStats(ctx context.Context, entry *model.PlaylistEntry) {
	if entry.IsVirtual || entry.ID == "" {
		return
	}

	now := time.Now()
	count := entry.PlayCount + 1
	if err := p.songs.UpdateSong(ctx, entry.ID, repository.SongUpdate{
		PlayCount:  &count,
		LastPlayed: &now,
	}); err != nil {
		logger.Warn("failed to update play stats",
			logger.String("songId", entry.ID), logger.ErrorField(err))
		return
	}
	entry.PlayCount = count
	entry.LastPlayed = &now
}

func (p *Player) currentFilter() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.filter
}

// findLocked returns the index of id in the current list. Caller holds p.mu.
func (p *Player) findLocked(id string) int {
	for i, e := range p.entries {
		if e.ID == id {
			return i
		}
	}
	return -1
}
