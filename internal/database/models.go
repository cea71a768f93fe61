package database

import (
	"path/filepath"
	"time"

	"github.com/vncgregorio/videoteka-media-center/internal/category"
	"github.com/vncgregorio/videoteka-media-center/internal/mediatypes"
)

// MediaRecord is one indexed media file. Optional attributes are
// pointers so "not extracted" is distinguishable from a zero value.
type MediaRecord struct {
	ID              int64           `json:"id"`
	Path            string          `json:"path"`
	Name            string          `json:"name"`
	Kind            mediatypes.Kind `json:"kind"`
	SizeBytes       *int64          `json:"sizeBytes,omitempty"`
	DurationSeconds *float64        `json:"durationSeconds,omitempty"`
	Width           *int64          `json:"width,omitempty"`
	Height          *int64          `json:"height,omitempty"`
	FolderPath      string          `json:"folderPath"`
	ThumbnailRef    string          `json:"thumbnailRef,omitempty"`
	MimeType        string          `json:"mimeType,omitempty"`
	DateAdded       time.Time       `json:"dateAdded"`
	DateModified    time.Time       `json:"dateModified"`
}

// NewMediaRecord builds a record from a file path alone: the path is
// canonicalized, the display name is the base name, the kind comes from
// the extension (unrecognized extensions classify as video), and the
// folder path is the containing directory. Size and extracted metadata
// are filled in by the caller.
func NewMediaRecord(path string) MediaRecord {
	canonical := category.Canonicalize(path)
	return MediaRecord{
		Path:       canonical,
		Name:       filepath.Base(canonical),
		Kind:       mediatypes.Detect(canonical),
		FolderPath: filepath.Dir(canonical),
		MimeType:   mediatypes.MimeType(canonical),
	}
}

// RootFolder is a user-registered scan root.
type RootFolder struct {
	ID        int64     `json:"id"`
	Path      string    `json:"path"`
	Active    bool      `json:"active"`
	DateAdded time.Time `json:"dateAdded"`
}

// KindAll requests records of every kind in QueryOptions.
const KindAll mediatypes.Kind = "all"

// QueryOptions filters and pages a media record query. The zero value
// returns records of all kinds, ordered by name, limited to the
// default page size.
type QueryOptions struct {
	Kind         mediatypes.Kind
	FolderPath   string
	NameContains string
	Limit        int
	Offset       int
}

// DefaultQueryLimit caps query results when no limit is given.
const DefaultQueryLimit = 100

// kindFromString maps a stored file_type column back to a Kind. Rows
// written by older builds with a value outside the known set classify
// as video, matching extension detection.
func kindFromString(s string) mediatypes.Kind {
	k := mediatypes.Kind(s)
	if mediatypes.Valid(k) {
		return k
	}
	return mediatypes.KindVideo
}
