// Package mediatypes classifies file paths into media kinds by extension.
//
// It is the single source of truth for kind strings used by both the
// storage layer and the scanner. Two distinct predicates are exposed:
//   - Detect: classifies any path, defaulting unrecognized extensions to
//     video (the record-construction policy)
//   - IsMediaFile: strict membership test that rejects unrecognized
//     extensions (the scan-filter policy)
//
// Supported extensions:
//   - Video: mp4, mkv, avi, mov, wmv, flv, webm, m4v, mpg, mpeg, 3gp
//   - Audio: mp3, flac, wav, ogg, m4a, aac, wma, opus, amr
//   - Image: jpg, jpeg, png, gif, bmp, webp, svg, tiff, tif, ico
//   - Document: pdf
package mediatypes
