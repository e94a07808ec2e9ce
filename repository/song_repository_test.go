package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"echofm/model"

	"github.com/DATA-DOG/go-sqlmock"
)

var songCols = []string{"id", "name", "artist", "blob_key", "blob_size", "url", "cover",
	"play_count", "last_played", "lyrics", "folder", "created_at", "updated_at"}

func songRow(s *model.Song) *sqlmock.Rows {
	var lastPlayed interface{}
	if s.LastPlayed != nil {
		lastPlayed = *s.LastPlayed
	}
	return sqlmock.NewRows(songCols).AddRow(s.ID, s.Name, s.Artist, s.BlobKey, s.BlobSize,
		s.URL, s.Cover, s.PlayCount, lastPlayed, s.Lyrics, s.Folder, s.CreatedAt, s.UpdatedAt)
}

func newSongRepo(t *testing.T) (SongRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewMySQLSongRepository(db), mock
}

func TestCreateSongAssignsIDAndDefaults(t *testing.T) {
	repo, mock := newSongRepo(t)

	mock.ExpectPrepare("INSERT INTO songs").
		ExpectExec().
		WithArgs(sqlmock.AnyArg(), "Untitled", model.DefaultArtist, "songs/a.mp3", int64(42),
			"", "", int64(0), nil, "", "inbox", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	song := &model.Song{BlobKey: "songs/a.mp3", BlobSize: 42, Folder: "inbox"}
	id, err := repo.CreateSong(context.Background(), song)
	if err != nil {
		t.Fatalf("CreateSong: %v", err)
	}
	if id == "" || song.ID != id {
		t.Errorf("expected assigned id, got %q (song.ID %q)", id, song.ID)
	}
	if song.Name != "Untitled" || song.Artist != model.DefaultArtist {
		t.Errorf("defaults not applied: name=%q artist=%q", song.Name, song.Artist)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestCreateSongNil(t *testing.T) {
	repo, _ := newSongRepo(t)

	if _, err := repo.CreateSong(context.Background(), nil); !errors.Is(err, model.ErrInvalidArgument) {
		t.Errorf("expected ErrInvalidArgument, got %v", err)
	}
}

func TestGetSongByIDMissing(t *testing.T) {
	repo, mock := newSongRepo(t)

	mock.ExpectQuery("SELECT (.+) FROM songs WHERE id = ?").
		WithArgs("nope").
		WillReturnRows(sqlmock.NewRows(songCols))

	song, err := repo.GetSongByID(context.Background(), "nope")
	if err != nil {
		t.Fatalf("GetSongByID: %v", err)
	}
	if song != nil {
		t.Errorf("expected nil song for missing id, got %+v", song)
	}
}

func TestGetSongByIDFound(t *testing.T) {
	repo, mock := newSongRepo(t)

	played := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	want := &model.Song{ID: "s1", Name: "Track", Artist: "Local", BlobKey: "songs/s1.mp3",
		BlobSize: 100, PlayCount: 3, LastPlayed: &played}
	mock.ExpectQuery("SELECT (.+) FROM songs WHERE id = ?").
		WithArgs("s1").
		WillReturnRows(songRow(want))

	got, err := repo.GetSongByID(context.Background(), "s1")
	if err != nil {
		t.Fatalf("GetSongByID: %v", err)
	}
	if got.ID != "s1" || got.PlayCount != 3 {
		t.Errorf("unexpected song: %+v", got)
	}
	if got.LastPlayed == nil || !got.LastPlayed.Equal(played) {
		t.Errorf("lastPlayed not restored: %v", got.LastPlayed)
	}
}

func TestGetSongByNameAndFolderMissing(t *testing.T) {
	repo, mock := newSongRepo(t)

	mock.ExpectQuery("SELECT (.+) FROM songs WHERE name = \\? AND folder = \\?").
		WithArgs("Track", "inbox").
		WillReturnRows(sqlmock.NewRows(songCols))

	song, err := repo.GetSongByNameAndFolder(context.Background(), "Track", "inbox")
	if err != nil {
		t.Fatalf("GetSongByNameAndFolder: %v", err)
	}
	if song != nil {
		t.Errorf("expected nil for missing dedup key, got %+v", song)
	}
}

func TestUpdateSongMissingID(t *testing.T) {
	repo, mock := newSongRepo(t)

	mock.ExpectQuery("SELECT id FROM songs WHERE id = ?").
		WithArgs("ghost").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	count := int64(1)
	err := repo.UpdateSong(context.Background(), "ghost", SongUpdate{PlayCount: &count})
	if !errors.Is(err, model.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	// No UPDATE (and certainly no insert) must follow the failed existence check.
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestUpdateSongPartial(t *testing.T) {
	repo, mock := newSongRepo(t)

	mock.ExpectQuery("SELECT id FROM songs WHERE id = ?").
		WithArgs("s1").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("s1"))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE songs SET play_count = ?, last_played = ?, updated_at = ? WHERE id = ?")).
		WithArgs(int64(5), sqlmock.AnyArg(), sqlmock.AnyArg(), "s1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	count := int64(5)
	now := time.Now()
	err := repo.UpdateSong(context.Background(), "s1", SongUpdate{PlayCount: &count, LastPlayed: &now})
	if err != nil {
		t.Fatalf("UpdateSong: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestUpdateSongNoFields(t *testing.T) {
	repo, mock := newSongRepo(t)

	mock.ExpectQuery("SELECT id FROM songs WHERE id = ?").
		WithArgs("s1").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("s1"))

	if err := repo.UpdateSong(context.Background(), "s1", SongUpdate{}); err != nil {
		t.Fatalf("UpdateSong with empty update: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestDeleteSongAbsentIsNoop(t *testing.T) {
	repo, mock := newSongRepo(t)

	mock.ExpectExec("DELETE FROM songs WHERE id = ?").
		WithArgs("ghost").
		WillReturnResult(sqlmock.NewResult(0, 0))

	if err := repo.DeleteSong(context.Background(), "ghost"); err != nil {
		t.Errorf("deleting an absent song should succeed, got %v", err)
	}
}

func TestGetHistoryOrder(t *testing.T) {
	repo, mock := newSongRepo(t)

	t1 := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	t2 := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows(songCols).
		AddRow("recent", "B", "Local", "", int64(0), "http://x/b", "", int64(2), t1, "", "", time.Now(), time.Now()).
		AddRow("older", "A", "Local", "", int64(0), "http://x/a", "", int64(1), t2, "", "", time.Now(), time.Now())
	mock.ExpectQuery(regexp.QuoteMeta("WHERE last_played IS NOT NULL ORDER BY last_played DESC")).
		WillReturnRows(rows)

	songs, err := repo.GetHistory(context.Background())
	if err != nil {
		t.Fatalf("GetHistory: %v", err)
	}
	if len(songs) != 2 || songs[0].ID != "recent" || songs[1].ID != "older" {
		t.Errorf("history order wrong: %+v", songs)
	}
}
