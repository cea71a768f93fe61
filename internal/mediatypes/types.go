package mediatypes

import (
	"path/filepath"
	"strings"
)

// Kind represents the coarse media category of a file.
type Kind string

const (
	// KindVideo represents a video file.
	KindVideo Kind = "video"
	// KindAudio represents an audio file.
	KindAudio Kind = "audio"
	// KindImage represents an image file.
	KindImage Kind = "image"
	// KindDocument represents a document file.
	KindDocument Kind = "document"
	// KindUnrecognized is returned by Lookup for extensions outside the
	// supported tables. It is never stored; Detect maps it to KindVideo.
	KindUnrecognized Kind = ""
)

// VideoExtensions maps file extensions to whether they are supported video formats.
var VideoExtensions = map[string]bool{
	".mp4":  true,
	".mkv":  true,
	".avi":  true,
	".mov":  true,
	".wmv":  true,
	".flv":  true,
	".webm": true,
	".m4v":  true,
	".mpg":  true,
	".mpeg": true,
	".3gp":  true,
}

// AudioExtensions maps file extensions to whether they are supported audio formats.
var AudioExtensions = map[string]bool{
	".mp3":  true,
	".flac": true,
	".wav":  true,
	".ogg":  true,
	".m4a":  true,
	".aac":  true,
	".wma":  true,
	".opus": true,
	".amr":  true,
}

// ImageExtensions maps file extensions to whether they are supported image formats.
var ImageExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".gif":  true,
	".bmp":  true,
	".webp": true,
	".svg":  true,
	".tiff": true,
	".tif":  true,
	".ico":  true,
}

// DocumentExtensions maps file extensions to whether they are supported document formats.
var DocumentExtensions = map[string]bool{
	".pdf": true,
}

// MimeTypes maps file extensions to their MIME types.
var MimeTypes = map[string]string{
	// Videos
	".mp4":  "video/mp4",
	".mkv":  "video/x-matroska",
	".avi":  "video/x-msvideo",
	".mov":  "video/quicktime",
	".wmv":  "video/x-ms-wmv",
	".flv":  "video/x-flv",
	".webm": "video/webm",
	".m4v":  "video/x-m4v",
	".mpg":  "video/mpeg",
	".mpeg": "video/mpeg",
	".3gp":  "video/3gpp",

	// Audio
	".mp3":  "audio/mpeg",
	".flac": "audio/flac",
	".wav":  "audio/wav",
	".ogg":  "audio/ogg",
	".m4a":  "audio/mp4",
	".aac":  "audio/aac",
	".wma":  "audio/x-ms-wma",
	".opus": "audio/opus",
	".amr":  "audio/amr",

	// Images
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".gif":  "image/gif",
	".bmp":  "image/bmp",
	".webp": "image/webp",
	".svg":  "image/svg+xml",
	".tiff": "image/tiff",
	".tif":  "image/tiff",
	".ico":  "image/x-icon",

	// Documents
	".pdf": "application/pdf",
}

// Lookup returns the Kind for a given file extension and whether the
// extension is in one of the supported tables. The extension is matched
// case-insensitively and should include the leading dot (e.g., ".mp4").
func Lookup(ext string) (Kind, bool) {
	ext = strings.ToLower(ext)
	switch {
	case VideoExtensions[ext]:
		return KindVideo, true
	case AudioExtensions[ext]:
		return KindAudio, true
	case ImageExtensions[ext]:
		return KindImage, true
	case DocumentExtensions[ext]:
		return KindDocument, true
	}
	return KindUnrecognized, false
}

// Detect classifies a path by its extension. Unrecognized extensions fall
// back to KindVideo; this is the record-construction policy and is
// deliberately different from IsMediaFile, which rejects unknown extensions.
func Detect(path string) Kind {
	if kind, ok := Lookup(filepath.Ext(path)); ok {
		return kind
	}
	return KindVideo
}

// IsMediaFile returns true if the path's extension is a supported media
// format. The path does not need to exist.
func IsMediaFile(path string) bool {
	_, ok := Lookup(filepath.Ext(path))
	return ok
}

// MimeType returns the MIME type for a path based on its extension.
// Returns "application/octet-stream" if the extension is not recognized.
func MimeType(path string) string {
	if mime, ok := MimeTypes[strings.ToLower(filepath.Ext(path))]; ok {
		return mime
	}
	return "application/octet-stream"
}

// Valid reports whether k is one of the four storable kinds.
func Valid(k Kind) bool {
	switch k {
	case KindVideo, KindAudio, KindImage, KindDocument:
		return true
	}
	return false
}
