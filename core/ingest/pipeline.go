package ingest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"echofm/logger"
	"echofm/model"
	"echofm/repository"
	"echofm/storage"

	"github.com/google/uuid"
)

// validExtensions is the accepted audio extension set for files whose declared
// media type is not audio/*.
var validExtensions = map[string]string{
	".mp3": "audio/mpeg",
	".wav": "audio/wav",
	".ogg": "audio/ogg",
	".m4a": "audio/mp4",
}

// errDuplicate distinguishes dedup skips from other rejects in batch stats.
var errDuplicate = fmt.Errorf("duplicate file: %w", model.ErrIngestRejected)

// File is one incoming upload: either a raw file from the HTTP surface or a
// pre-built tuple from the watch-dir ingester.
type File struct {
	Name        string
	ContentType string
	Folder      string
	Data        io.Reader
	Size        int64
}

// BatchResult summarizes one ingest batch.
type BatchResult struct {
	Accepted  int
	Rejected  int
	Duplicate int
	SongIDs   []string
}

// Pipeline validates, deduplicates and stores incoming audio files.
type Pipeline struct {
	songs repository.SongRepository
	blobs storage.BlobStore
}

// NewPipeline creates an ingest pipeline over the song store and blob store.
func NewPipeline(songs repository.SongRepository, blobs storage.BlobStore) *Pipeline {
	return &Pipeline{songs: songs, blobs: blobs}
}

// Ingest processes a single file. Non-audio inputs and duplicates are dropped
// with a diagnostic log and a model.ErrIngestRejected-wrapped error; the
// caller treats those as skip-and-continue, not failures.
func (p *Pipeline) Ingest(ctx context.Context, f File) (*model.Song, error) {
	if f.Name == "" || f.Data == nil {
		logger.Warn("ingest called with empty input")
		return nil, fmt.Errorf("missing name or data: %w", model.ErrIngestRejected)
	}

	ext := strings.ToLower(filepath.Ext(f.Name))
	if !strings.HasPrefix(f.ContentType, "audio/") {
		if _, ok := validExtensions[ext]; !ok {
			logger.Warn("skipped non-audio file",
				logger.String("name", f.Name), logger.String("contentType", f.ContentType))
			return nil, fmt.Errorf("non-audio file %q: %w", f.Name, model.ErrIngestRejected)
		}
	}

	contentType := f.ContentType
	if contentType == "" {
		contentType = validExtensions[ext]
	}

	// Dedup key: extension-stripped name plus folder.
	cleanedName := strings.TrimSuffix(f.Name, filepath.Ext(f.Name))
	existing, err := p.songs.GetSongByNameAndFolder(ctx, cleanedName, f.Folder)
	if err != nil {
		return nil, fmt.Errorf("dedup lookup for %q failed: %w", cleanedName, err)
	}
	if existing != nil {
		logger.Warn("skipped duplicate file",
			logger.String("name", f.Name), logger.String("folder", f.Folder))
		return nil, fmt.Errorf("%q: %w", f.Name, errDuplicate)
	}

	id := uuid.NewString()
	blobKey := fmt.Sprintf("songs/%s%s", id, ext)
	if err := p.blobs.Put(ctx, blobKey, f.Data, f.Size, contentType); err != nil {
		return nil, fmt.Errorf("failed to store payload for %q: %w", f.Name, err)
	}

	song := &model.Song{
		ID:       id,
		Name:     cleanedName,
		Artist:   model.DefaultArtist,
		BlobKey:  blobKey,
		BlobSize: f.Size,
		Folder:   f.Folder,
	}
	if _, err := p.songs.CreateSong(ctx, song); err != nil {
		// The record failed after the payload landed; drop the orphan object.
		if rmErr := p.blobs.Remove(ctx, blobKey); rmErr != nil {
			logger.Warn("failed to remove orphan payload",
				logger.String("blobKey", blobKey), logger.ErrorField(rmErr))
		}
		return nil, fmt.Errorf("failed to store song %q: %w", cleanedName, err)
	}

	logger.Info("stored song",
		logger.String("songId", song.ID), logger.String("name", song.Name), logger.String("folder", song.Folder))
	return song, nil
}

// IngestBatch runs a batch, continuing past rejects and duplicates.
func (p *Pipeline) IngestBatch(ctx context.Context, files []File) (*BatchResult, error) {
	result := &BatchResult{}
	for _, f := range files {
		song, err := p.Ingest(ctx, f)
		if err != nil {
			if isRejected(err) {
				if errors.Is(err, errDuplicate) {
					result.Duplicate++
				} else {
					result.Rejected++
				}
				continue
			}
			return result, err
		}
		result.Accepted++
		result.SongIDs = append(result.SongIDs, song.ID)
	}
	return result, nil
}

func isRejected(err error) bool {
	return errors.Is(err, model.ErrIngestRejected)
}
