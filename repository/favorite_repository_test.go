package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"echofm/model"

	"github.com/DATA-DOG/go-sqlmock"
)

var favoriteCols = []string{"song_id", "name", "artist", "blob_key", "blob_size",
	"url", "cover", "lyrics", "folder", "added_at"}

func newFavoriteRepo(t *testing.T) (FavoriteRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewMySQLFavoriteRepository(db), mock
}

func TestCreateFavoriteRequiresSongID(t *testing.T) {
	repo, _ := newFavoriteRepo(t)

	for _, snapshot := range []*model.Favorite{nil, {Name: "Track"}} {
		if err := repo.CreateFavorite(context.Background(), snapshot); !errors.Is(err, model.ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument for %+v, got %v", snapshot, err)
		}
	}
}

func TestCreateFavoriteUpsert(t *testing.T) {
	repo, mock := newFavoriteRepo(t)

	mock.ExpectPrepare("INSERT INTO favorites").
		ExpectExec().
		WithArgs("s1", "Track", "Local", "favorites/s1.mp3", int64(99),
			"", "", "", "inbox", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	snapshot := &model.Favorite{
		SongID:   "s1",
		Name:     "Track",
		Artist:   "Local",
		BlobKey:  "favorites/s1.mp3",
		BlobSize: 99,
		Folder:   "inbox",
	}
	if err := repo.CreateFavorite(context.Background(), snapshot); err != nil {
		t.Fatalf("CreateFavorite: %v", err)
	}
	if snapshot.AddedAt.IsZero() {
		t.Error("AddedAt should default to now")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestGetFavoriteBySongIDMissing(t *testing.T) {
	repo, mock := newFavoriteRepo(t)

	mock.ExpectQuery("SELECT (.+) FROM favorites WHERE song_id = ?").
		WithArgs("nope").
		WillReturnRows(sqlmock.NewRows(favoriteCols))

	fav, err := repo.GetFavoriteBySongID(context.Background(), "nope")
	if err != nil {
		t.Fatalf("GetFavoriteBySongID: %v", err)
	}
	if fav != nil {
		t.Errorf("expected nil for missing snapshot, got %+v", fav)
	}
}

func TestGetAllFavoritesNewestFirst(t *testing.T) {
	repo, mock := newFavoriteRepo(t)

	newer := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	older := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows(favoriteCols).
		AddRow("b", "B", "Local", "", int64(0), "http://x/b", "", "", "", newer).
		AddRow("a", "A", "Local", "", int64(0), "http://x/a", "", "", "", older)
	mock.ExpectQuery("SELECT (.+) FROM favorites ORDER BY added_at DESC").
		WillReturnRows(rows)

	favs, err := repo.GetAllFavorites(context.Background())
	if err != nil {
		t.Fatalf("GetAllFavorites: %v", err)
	}
	if len(favs) != 2 || favs[0].SongID != "b" || favs[1].SongID != "a" {
		t.Errorf("favorites order wrong: %+v", favs)
	}
}

func TestDeleteFavoriteAbsentIsNoop(t *testing.T) {
	repo, mock := newFavoriteRepo(t)

	mock.ExpectExec("DELETE FROM favorites WHERE song_id = ?").
		WithArgs("ghost").
		WillReturnResult(sqlmock.NewResult(0, 0))

	if err := repo.DeleteFavorite(context.Background(), "ghost"); err != nil {
		t.Errorf("deleting an absent favorite should succeed, got %v", err)
	}
}
