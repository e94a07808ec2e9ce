package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"echofm/model"
)

// FavoriteRepository defines the interface for favorite snapshot operations.
// A favorite is a full point-in-time copy of a song, keyed by the source
// song's identifier, and lives independently of the source record.
type FavoriteRepository interface {
	CreateFavorite(ctx context.Context, snapshot *model.Favorite) error
	GetFavoriteBySongID(ctx context.Context, songID string) (*model.Favorite, error)
	GetAllFavorites(ctx context.Context) ([]*model.Favorite, error)
	DeleteFavorite(ctx context.Context, songID string) error
	ResetFavorites(ctx context.Context) error
}

// mysqlFavoriteRepository implements FavoriteRepository for MySQL.
type mysqlFavoriteRepository struct {
	DB *sql.DB
}

// NewMySQLFavoriteRepository creates a new instance of mysqlFavoriteRepository.
func NewMySQLFavoriteRepository(db *sql.DB) FavoriteRepository {
	return &mysqlFavoriteRepository{DB: db}
}

const favoriteColumns = `song_id, name, artist, blob_key, blob_size, url, cover, lyrics, folder, added_at`

// CreateFavorite stores a full snapshot keyed by the source song id. Fails
// with model.ErrInvalidArgument when the snapshot lacks an identifier.
// Re-favoriting an already favorited song refreshes the snapshot.
func (r *mysqlFavoriteRepository) CreateFavorite(ctx context.Context, snapshot *model.Favorite) error {
	if snapshot == nil || snapshot.SongID == "" {
		return fmt.Errorf("favorite requires a song with a stable id: %w", model.ErrInvalidArgument)
	}
	if snapshot.AddedAt.IsZero() {
		snapshot.AddedAt = time.Now()
	}

	query := `INSERT INTO favorites (song_id, name, artist, blob_key, blob_size, url, cover, lyrics, folder, added_at)
	           VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	           ON DUPLICATE KEY UPDATE
	             name = VALUES(name), artist = VALUES(artist), blob_key = VALUES(blob_key),
	             blob_size = VALUES(blob_size), url = VALUES(url), cover = VALUES(cover),
	             lyrics = VALUES(lyrics), folder = VALUES(folder), added_at = VALUES(added_at)`
	stmt, err := r.DB.PrepareContext(ctx, query)
	if err != nil {
		return fmt.Errorf("failed to prepare statement for CreateFavorite: %w", err)
	}
	defer stmt.Close()

	_, err = stmt.ExecContext(ctx, snapshot.SongID, snapshot.Name, snapshot.Artist,
		snapshot.BlobKey, snapshot.BlobSize, snapshot.URL, snapshot.Cover,
		snapshot.Lyrics, snapshot.Folder, snapshot.AddedAt)
	if err != nil {
		return fmt.Errorf("failed to execute CreateFavorite for %s: %w", snapshot.SongID, err)
	}
	return nil
}

// GetFavoriteBySongID retrieves a snapshot by the source song id. Returns
// (nil, nil) when no snapshot exists.
func (r *mysqlFavoriteRepository) GetFavoriteBySongID(ctx context.Context, songID string) (*model.Favorite, error) {
	query := `SELECT ` + favoriteColumns + ` FROM favorites WHERE song_id = ?`
	row := r.DB.QueryRowContext(ctx, query, songID)

	fav, err := scanFavorite(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to scan favorite by song ID %s: %w", songID, err)
	}
	return fav, nil
}

// GetAllFavorites retrieves every favorite snapshot, newest first.
func (r *mysqlFavoriteRepository) GetAllFavorites(ctx context.Context) ([]*model.Favorite, error) {
	query := `SELECT ` + favoriteColumns + ` FROM favorites ORDER BY added_at DESC`
	rows, err := r.DB.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query favorites: %w", err)
	}
	defer rows.Close()

	favorites := make([]*model.Favorite, 0)
	for rows.Next() {
		fav, err := scanFavorite(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan favorite in GetAllFavorites: %w", err)
		}
		favorites = append(favorites, fav)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error during rows iteration in GetAllFavorites: %w", err)
	}

	return favorites, nil
}

// DeleteFavorite removes a snapshot. Removing an absent snapshot is a no-op.
func (r *mysqlFavoriteRepository) DeleteFavorite(ctx context.Context, songID string) error {
	if _, err := r.DB.ExecContext(ctx, `DELETE FROM favorites WHERE song_id = ?`, songID); err != nil {
		return fmt.Errorf("failed to execute DeleteFavorite for %s: %w", songID, err)
	}
	return nil
}

// ResetFavorites clears the favorites collection. Maintenance only.
func (r *mysqlFavoriteRepository) ResetFavorites(ctx context.Context) error {
	if _, err := r.DB.ExecContext(ctx, `DELETE FROM favorites`); err != nil {
		return fmt.Errorf("failed to reset favorites: %w", err)
	}
	return nil
}

func scanFavorite(row rowScanner) (*model.Favorite, error) {
	fav := &model.Favorite{}
	err := row.Scan(&fav.SongID, &fav.Name, &fav.Artist, &fav.BlobKey, &fav.BlobSize,
		&fav.URL, &fav.Cover, &fav.Lyrics, &fav.Folder, &fav.AddedAt)
	if err != nil {
		return nil, err
	}
	return fav, nil
}
