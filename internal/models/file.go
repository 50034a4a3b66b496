package models

import (
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// FileRecord is one user file as seen by callers. Timestamps are
// milliseconds since the Unix epoch.
type FileRecord struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Content   string `json:"content"`
	CreatedAt int64  `json:"createdAt"`
	UpdatedAt int64  `json:"updatedAt"`
}

// IndexEntry is the metadata kept for a file in the index.
type IndexEntry struct {
	Title     string `json:"title"`
	CreatedAt int64  `json:"createdAt"`
	UpdatedAt int64  `json:"updatedAt"`
}

// Index maps file id to its entry. It is the authoritative list of files.
type Index map[string]IndexEntry

// TitleOwner returns the id of the entry titled title, if any.
func (ix Index) TitleOwner(title string) (string, bool) {
	for id, e := range ix {
		if e.Title == title {
			return id, true
		}
	}
	return "", false
}

// Record builds a FileRecord from an index entry and its content.
func (e IndexEntry) Record(id, content string) *FileRecord {
	return &FileRecord{
		ID:        id,
		Title:     e.Title,
		Content:   content,
		CreatedAt: e.CreatedAt,
		UpdatedAt: e.UpdatedAt,
	}
}

// NewFileID returns an opaque id: the creation time in base 36 followed by
// random hex taken from a v4 UUID.
func NewFileID(createdAt int64) string {
	random := strings.ReplaceAll(uuid.NewString(), "-", "")
	return strconv.FormatInt(createdAt, 36) + "-" + random[:12]
}
