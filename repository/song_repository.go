package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"echofm/model"

	"github.com/google/uuid"
)

// SongUpdate carries the partial fields merged into an existing song. Nil
// fields are left untouched.
type SongUpdate struct {
	PlayCount  *int64
	LastPlayed *time.Time
	Cover      *string
	Lyrics     *string
	URL        *string
}

// SongRepository defines the interface for song data operations. Writes are
// atomic per statement; cross-collection consistency with favorites is
// eventual and restored by the reconciliation pass.
type SongRepository interface {
	CreateSong(ctx context.Context, song *model.Song) (string, error)
	GetSongByID(ctx context.Context, id string) (*model.Song, error)
	GetAllSongs(ctx context.Context) ([]*model.Song, error)
	GetSongByNameAndFolder(ctx context.Context, name, folder string) (*model.Song, error)
	UpdateSong(ctx context.Context, id string, update SongUpdate) error
	DeleteSong(ctx context.Context, id string) error
	GetHistory(ctx context.Context) ([]*model.Song, error)
	ResetSongs(ctx context.Context) error
}

// mysqlSongRepository implements SongRepository for MySQL.
type mysqlSongRepository struct {
	DB *sql.DB
}

// NewMySQLSongRepository creates a new instance of mysqlSongRepository.
func NewMySQLSongRepository(db *sql.DB) SongRepository {
	return &mysqlSongRepository{DB: db}
}

const songColumns = `id, name, artist, blob_key, blob_size, url, cover, play_count, last_played, lyrics, folder, created_at, updated_at`

// CreateSong upserts a song by its stable identifier, assigning a fresh UUID
// and filling defaults when absent. Returns the identifier.
func (r *mysqlSongRepository) CreateSong(ctx context.Context, song *model.Song) (string, error) {
	if song == nil {
		return "", model.ErrInvalidArgument
	}
	if song.ID == "" {
		song.ID = uuid.NewString()
	}
	if strings.TrimSpace(song.Name) == "" {
		song.Name = "Untitled"
	}
	if song.Artist == "" {
		song.Artist = model.DefaultArtist
	}

	query := `INSERT INTO songs (id, name, artist, blob_key, blob_size, url, cover, play_count, last_played, lyrics, folder, created_at, updated_at)
	           VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	           ON DUPLICATE KEY UPDATE
	             name = VALUES(name), artist = VALUES(artist), blob_key = VALUES(blob_key),
	             blob_size = VALUES(blob_size), url = VALUES(url), cover = VALUES(cover),
	             play_count = VALUES(play_count), last_played = VALUES(last_played),
	             lyrics = VALUES(lyrics), folder = VALUES(folder), updated_at = VALUES(updated_at)`
	stmt, err := r.DB.PrepareContext(ctx, query)
	if err != nil {
		return "", fmt.Errorf("failed to prepare statement for CreateSong: %w", err)
	}
	defer stmt.Close()

	now := time.Now()
	_, err = stmt.ExecContext(ctx, song.ID, song.Name, song.Artist, song.BlobKey, song.BlobSize,
		song.URL, song.Cover, song.PlayCount, song.LastPlayed, song.Lyrics, song.Folder, now, now)
	if err != nil {
		return "", fmt.Errorf("failed to execute CreateSong: %w", err)
	}
	return song.ID, nil
}

// GetSongByID retrieves a song by its identifier. Returns (nil, nil) when the
// song does not exist.
func (r *mysqlSongRepository) GetSongByID(ctx context.Context, id string) (*model.Song, error) {
	query := `SELECT ` + songColumns + ` FROM songs WHERE id = ?`
	row := r.DB.QueryRowContext(ctx, query, id)

	song, err := scanSong(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to scan song by ID %s: %w", id, err)
	}
	return song, nil
}

// GetAllSongs retrieves every song record. Order is unspecified; callers
// impose their own ordering.
func (r *mysqlSongRepository) GetAllSongs(ctx context.Context) ([]*model.Song, error) {
	query := `SELECT ` + songColumns + ` FROM songs`
	rows, err := r.DB.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query songs: %w", err)
	}
	defer rows.Close()

	songs := make([]*model.Song, 0)
	for rows.Next() {
		song, err := scanSong(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan song in GetAllSongs: %w", err)
		}
		songs = append(songs, song)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error during rows iteration in GetAllSongs: %w", err)
	}

	return songs, nil
}

// GetSongByNameAndFolder looks up the dedup key used by the ingest pipeline.
// Returns (nil, nil) when no song matches.
func (r *mysqlSongRepository) GetSongByNameAndFolder(ctx context.Context, name, folder string) (*model.Song, error) {
	query := `SELECT ` + songColumns + ` FROM songs WHERE name = ? AND folder = ?`
	row := r.DB.QueryRowContext(ctx, query, name, folder)

	song, err := scanSong(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to scan song by name %q and folder %q: %w", name, folder, err)
	}
	return song, nil
}

// UpdateSong merges the non-nil update fields into an existing record. Fails
// with model.ErrNotFound when the identifier is absent; it never inserts.
func (r *mysqlSongRepository) UpdateSong(ctx context.Context, id string, update SongUpdate) error {
	var exists string
	err := r.DB.QueryRowContext(ctx, `SELECT id FROM songs WHERE id = ?`, id).Scan(&exists)
	if err != nil {
		if err == sql.ErrNoRows {
			return model.ErrNotFound
		}
		return fmt.Errorf("failed to check song %s before update: %w", id, err)
	}

	sets := make([]string, 0, 6)
	args := make([]interface{}, 0, 7)
	if update.PlayCount != nil {
		sets = append(sets, "play_count = ?")
		args = append(args, *update.PlayCount)
	}
	if update.LastPlayed != nil {
		sets = append(sets, "last_played = ?")
		args = append(args, *update.LastPlayed)
	}
	if update.Cover != nil {
		sets = append(sets, "cover = ?")
		args = append(args, *update.Cover)
	}
	if update.Lyrics != nil {
		sets = append(sets, "lyrics = ?")
		args = append(args, *update.Lyrics)
	}
	if update.URL != nil {
		sets = append(sets, "url = ?")
		args = append(args, *update.URL)
	}
	if len(sets) == 0 {
		return nil
	}
	sets = append(sets, "updated_at = ?")
	args = append(args, time.Now(), id)

	query := `UPDATE songs SET ` + strings.Join(sets, ", ") + ` WHERE id = ?`
	if _, err := r.DB.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to execute UpdateSong for %s: %w", id, err)
	}
	return nil
}

// DeleteSong removes a song record. Deleting an absent identifier is a no-op.
func (r *mysqlSongRepository) DeleteSong(ctx context.Context, id string) error {
	if _, err := r.DB.ExecContext(ctx, `DELETE FROM songs WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to execute DeleteSong for %s: %w", id, err)
	}
	return nil
}

// GetHistory returns all songs that have been played at least once, most
// recent first.
func (r *mysqlSongRepository) GetHistory(ctx context.Context) ([]*model.Song, error) {
	query := `SELECT ` + songColumns + ` FROM songs WHERE last_played IS NOT NULL ORDER BY last_played DESC`
	rows, err := r.DB.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query history: %w", err)
	}
	defer rows.Close()

	songs := make([]*model.Song, 0)
	for rows.Next() {
		song, err := scanSong(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan song in GetHistory: %w", err)
		}
		songs = append(songs, song)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error during rows iteration in GetHistory: %w", err)
	}

	return songs, nil
}

// ResetSongs clears the songs collection. Maintenance only.
func (r *mysqlSongRepository) ResetSongs(ctx context.Context) error {
	if _, err := r.DB.ExecContext(ctx, `DELETE FROM songs`); err != nil {
		return fmt.Errorf("failed to reset songs: %w", err)
	}
	return nil
}

// rowScanner covers *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanSong(row rowScanner) (*model.Song, error) {
	song := &model.Song{}
	var lastPlayed sql.NullTime
	err := row.Scan(&song.ID, &song.Name, &song.Artist, &song.BlobKey, &song.BlobSize,
		&song.URL, &song.Cover, &song.PlayCount, &lastPlayed, &song.Lyrics, &song.Folder,
		&song.CreatedAt, &song.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if lastPlayed.Valid {
		t := lastPlayed.Time
		song.LastPlayed = &t
	}
	return song, nil
}
