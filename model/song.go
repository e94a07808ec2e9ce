package model

import "time"

// DefaultArtist is assigned to songs ingested without artist metadata.
const DefaultArtist = "Local"

// Song represents a primary library entry. The audio payload lives in object
// storage under BlobKey; a song with neither a stored blob nor a URL is not
// playable and gets purged on the next reconciliation pass.
type Song struct {
	ID         string     `json:"id" gorm:"primaryKey;size:36"`
	Name       string     `json:"name" gorm:"size:255;index"`
	Artist     string     `json:"artist" gorm:"size:255"`
	BlobKey    string     `json:"-" gorm:"size:512"`
	BlobSize   int64      `json:"blobSize"`
	URL        string     `json:"url,omitempty" gorm:"size:1024"`
	Cover      string     `json:"cover,omitempty" gorm:"size:1024"`
	PlayCount  int64      `json:"playCount"`
	LastPlayed *time.Time `json:"lastPlayed,omitempty" gorm:"index"`
	Lyrics     string     `json:"lyrics,omitempty" gorm:"type:text"`
	Folder     string     `json:"folder,omitempty" gorm:"size:255;index"`
	CreatedAt  time.Time  `json:"createdAt"`
	UpdatedAt  time.Time  `json:"updatedAt"`
}

// HasBlob reports whether the song owns a stored audio payload.
func (s *Song) HasBlob() bool {
	return s.BlobKey != "" && s.BlobSize > 0
}

// Favorite is a full point-in-time snapshot of a song, keyed by the source
// song's id. It is intentionally decoupled from later mutations of the source:
// deleting or re-uploading the song leaves the snapshot untouched, so the
// favorite stays playable on its own copy of the blob.
type Favorite struct {
	SongID   string    `json:"songId" gorm:"primaryKey;size:36"`
	Name     string    `json:"name" gorm:"size:255"`
	Artist   string    `json:"artist" gorm:"size:255"`
	BlobKey  string    `json:"-" gorm:"size:512"`
	BlobSize int64     `json:"blobSize"`
	URL      string    `json:"url,omitempty" gorm:"size:1024"`
	Cover    string    `json:"cover,omitempty" gorm:"size:1024"`
	Lyrics   string    `json:"lyrics,omitempty" gorm:"type:text"`
	Folder   string    `json:"folder,omitempty" gorm:"size:255"`
	AddedAt  time.Time `json:"addedAt" gorm:"index"`
}

// HasBlob reports whether the snapshot carries its own audio payload.
func (f *Favorite) HasBlob() bool {
	return f.BlobKey != "" && f.BlobSize > 0
}

// PlaylistEntry is one row of the reconciled playable list. It is ephemeral:
// rebuilt from the two persisted collections on every reconciliation pass.
// Virtual entries are synthesized from favorite snapshots whose source song no
// longer exists and have no write-back target except the snapshot itself.
type PlaylistEntry struct {
	ID         string     `json:"id"`
	Name       string     `json:"name"`
	Artist     string     `json:"artist"`
	BlobKey    string     `json:"-"`
	BlobSize   int64      `json:"blobSize"`
	URL        string     `json:"url,omitempty"`
	Cover      string     `json:"cover,omitempty"`
	Lyrics     string     `json:"lyrics,omitempty"`
	Folder     string     `json:"folder,omitempty"`
	PlayCount  int64      `json:"playCount"`
	LastPlayed *time.Time `json:"lastPlayed,omitempty"`
	IsVirtual  bool       `json:"isVirtual"`
	Favorite   bool       `json:"favorite"`
}

// EntryFromSong builds a playlist row from a live song record.
func EntryFromSong(s *Song, favorite bool) *PlaylistEntry {
	return &PlaylistEntry{
		ID:         s.ID,
		Name:       s.Name,
		Artist:     s.Artist,
		BlobKey:    s.BlobKey,
		BlobSize:   s.BlobSize,
		URL:        s.URL,
		Cover:      s.Cover,
		Lyrics:     s.Lyrics,
		Folder:     s.Folder,
		PlayCount:  s.PlayCount,
		LastPlayed: s.LastPlayed,
		Favorite:   favorite,
	}
}

// EntryFromFavorite synthesizes a virtual row from a snapshot whose source
// song has no valid live record.
func EntryFromFavorite(f *Favorite) *PlaylistEntry {
	return &PlaylistEntry{
		ID:        f.SongID,
		Name:      f.Name,
		Artist:    f.Artist,
		BlobKey:   f.BlobKey,
		BlobSize:  f.BlobSize,
		URL:       f.URL,
		Cover:     f.Cover,
		Lyrics:    f.Lyrics,
		Folder:    f.Folder,
		IsVirtual: true,
		Favorite:  true,
	}
}
