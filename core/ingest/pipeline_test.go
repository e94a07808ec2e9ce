package ingest

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"

	"echofm/model"
	"echofm/repository"
	"echofm/storage"
)

// fakeSongRepo is shared with the watcher tests, which ingest from settle
// timer goroutines, so access is locked.
type fakeSongRepo struct {
	mu        sync.Mutex
	songs     []*model.Song
	createErr error
}

func (f *fakeSongRepo) CreateSong(ctx context.Context, s *model.Song) (string, error) {
	if f.createErr != nil {
		return "", f.createErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.songs = append(f.songs, s)
	return s.ID, nil
}

func (f *fakeSongRepo) GetSongByID(ctx context.Context, id string) (*model.Song, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, s := range f.songs {
		if s.ID == id {
			return s, nil
		}
	}
	return nil, nil
}

func (f *fakeSongRepo) GetAllSongs(ctx context.Context) ([]*model.Song, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*model.Song(nil), f.songs...), nil
}

func (f *fakeSongRepo) GetSongByNameAndFolder(ctx context.Context, name, folder string) (*model.Song, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, s := range f.songs {
		if s.Name == name && s.Folder == folder {
			return s, nil
		}
	}
	return nil, nil
}

func (f *fakeSongRepo) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.songs)
}

func (f *fakeSongRepo) UpdateSong(ctx context.Context, id string, update repository.SongUpdate) error {
	return nil
}

func (f *fakeSongRepo) DeleteSong(ctx context.Context, id string) error { return nil }

func (f *fakeSongRepo) GetHistory(ctx context.Context) ([]*model.Song, error) { return nil, nil }

func (f *fakeSongRepo) ResetSongs(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.songs = nil
	return nil
}

type fakeBlobStore struct {
	puts    map[string]string // key -> content type
	removed []string
}

func newFakeBlobStore() *fakeBlobStore {
	return &fakeBlobStore{puts: map[string]string{}}
}

func (f *fakeBlobStore) Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error {
	f.puts[key] = contentType
	return nil
}

func (f *fakeBlobStore) Get(ctx context.Context, key string) (io.ReadCloser, *storage.BlobInfo, error) {
	return nil, nil, errors.New("not stored")
}

func (f *fakeBlobStore) Copy(ctx context.Context, srcKey, dstKey string) error { return nil }

func (f *fakeBlobStore) Remove(ctx context.Context, key string) error {
	f.removed = append(f.removed, key)
	return nil
}

func (f *fakeBlobStore) RemovePrefix(ctx context.Context, prefix string) error { return nil }

func (f *fakeBlobStore) List(ctx context.Context, prefix string) ([]storage.ObjectInfo, error) {
	return nil, nil
}

func audioFile(name, folder string) File {
	return File{
		Name:   name,
		Folder: folder,
		Data:   bytes.NewReader([]byte("riff")),
		Size:   4,
	}
}

func TestIngestRejectsNonAudio(t *testing.T) {
	blobs := newFakeBlobStore()
	p := NewPipeline(&fakeSongRepo{}, blobs)

	f := File{Name: "notes.txt", ContentType: "text/plain", Data: strings.NewReader("x"), Size: 1}
	if _, err := p.Ingest(context.Background(), f); !errors.Is(err, model.ErrIngestRejected) {
		t.Errorf("expected ErrIngestRejected, got %v", err)
	}
	if len(blobs.puts) != 0 {
		t.Errorf("rejected files must not reach storage: %v", blobs.puts)
	}
}

func TestIngestAcceptsAudioMimeWithUnknownExtension(t *testing.T) {
	songs := &fakeSongRepo{}
	p := NewPipeline(songs, newFakeBlobStore())

	f := audioFile("track.flac", "")
	f.ContentType = "audio/flac"
	song, err := p.Ingest(context.Background(), f)
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	if song.Name != "track" {
		t.Errorf("stored name should drop the extension, got %q", song.Name)
	}
}

func TestIngestStoresSongWithDefaults(t *testing.T) {
	songs := &fakeSongRepo{}
	blobs := newFakeBlobStore()
	p := NewPipeline(songs, blobs)

	song, err := p.Ingest(context.Background(), audioFile("Morning Coffee.mp3", "chill"))
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}

	if song.Name != "Morning Coffee" || song.Artist != model.DefaultArtist || song.Folder != "chill" {
		t.Errorf("unexpected song: %+v", song)
	}
	if !strings.HasPrefix(song.BlobKey, "songs/") || !strings.HasSuffix(song.BlobKey, ".mp3") {
		t.Errorf("payload key should carry prefix and extension: %q", song.BlobKey)
	}
	if ct := blobs.puts[song.BlobKey]; ct != "audio/mpeg" {
		t.Errorf("content type should default from the extension, got %q", ct)
	}
	if song.BlobSize != 4 {
		t.Errorf("payload size not recorded: %d", song.BlobSize)
	}
}

func TestIngestDeduplicatesAcrossExtensions(t *testing.T) {
	songs := &fakeSongRepo{}
	p := NewPipeline(songs, newFakeBlobStore())

	if _, err := p.Ingest(context.Background(), audioFile("Song.mp3", "mix")); err != nil {
		t.Fatalf("first ingest: %v", err)
	}

	// Same base name, same folder: duplicate regardless of extension.
	if _, err := p.Ingest(context.Background(), audioFile("Song.wav", "mix")); !errors.Is(err, model.ErrIngestRejected) {
		t.Errorf("expected duplicate rejection, got %v", err)
	}

	// Same name in a different folder is a distinct key.
	if _, err := p.Ingest(context.Background(), audioFile("Song.mp3", "other")); err != nil {
		t.Errorf("different folder should not collide: %v", err)
	}
}

func TestIngestRemovesOrphanPayloadOnStoreFailure(t *testing.T) {
	songs := &fakeSongRepo{createErr: errors.New("store offline")}
	blobs := newFakeBlobStore()
	p := NewPipeline(songs, blobs)

	_, err := p.Ingest(context.Background(), audioFile("Track.mp3", ""))
	if err == nil || errors.Is(err, model.ErrIngestRejected) {
		t.Fatalf("store failure should surface as a hard error, got %v", err)
	}
	if len(blobs.removed) != 1 {
		t.Errorf("orphan payload should be removed after a failed record write: %v", blobs.removed)
	}
}

func TestIngestBatchCounts(t *testing.T) {
	songs := &fakeSongRepo{}
	p := NewPipeline(songs, newFakeBlobStore())

	files := []File{
		audioFile("One.mp3", "mix"),
		audioFile("Two.ogg", "mix"),
		audioFile("One.wav", "mix"),
		{Name: "readme.txt", ContentType: "text/plain", Data: strings.NewReader("x"), Size: 1},
	}

	result, err := p.IngestBatch(context.Background(), files)
	if err != nil {
		t.Fatalf("IngestBatch: %v", err)
	}
	if result.Accepted != 2 || result.Duplicate != 1 || result.Rejected != 1 {
		t.Errorf("unexpected counts: %+v", result)
	}
	if len(result.SongIDs) != 2 {
		t.Errorf("expected 2 stored ids, got %v", result.SongIDs)
	}
}
