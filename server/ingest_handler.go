package server

import (
	"net/http"

	"echofm/core/ingest"
	"echofm/logger"
)

// UploadHandler accepts a multipart batch of audio files and runs them
// through the ingest pipeline. Non-audio and duplicate files are skipped, the
// rest of the batch continues, and the playlist is reloaded afterwards.
// Expected form fields:
// - files: one or more audio files
// - folder: optional grouping label applied to the whole batch
func (h *APIHandler) UploadHandler(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(128 << 20); err != nil { // 128MB max memory
		respondWithJSON(w, http.StatusBadRequest, map[string]string{"error": "failed to parse multipart form"})
		return
	}

	folder := r.FormValue("folder")
	headers := r.MultipartForm.File["files"]
	if len(headers) == 0 {
		respondWithJSON(w, http.StatusBadRequest, map[string]string{"error": "missing 'files' in form"})
		return
	}

	files := make([]ingest.File, 0, len(headers))
	opened := make([]interface{ Close() error }, 0, len(headers))
	defer func() {
		for _, f := range opened {
			f.Close()
		}
	}()

	for _, header := range headers {
		f, err := header.Open()
		if err != nil {
			logger.Warn("failed to open uploaded file",
				logger.String("name", header.Filename), logger.ErrorField(err))
			continue
		}
		opened = append(opened, f)
		files = append(files, ingest.File{
			Name:        header.Filename,
			ContentType: header.Header.Get("Content-Type"),
			Folder:      folder,
			Data:        f,
			Size:        header.Size,
		})
	}

	result, err := h.pipeline.IngestBatch(r.Context(), files)
	if err != nil {
		respondWithError(w, err)
		return
	}

	if _, err := h.player.LoadPlaylist(r.Context(), r.URL.Query().Get("filter")); err != nil {
		logger.Warn("playlist reload after upload failed", logger.ErrorField(err))
	}

	respondWithJSON(w, http.StatusOK, result)
}
