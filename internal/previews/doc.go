// Package previews renders and caches small JPEG previews of library
// media. Image previews downscale via libvips when initialized, falling
// back to in-process resizing; video previews grab a frame with ffmpeg.
// Renders for the same source path are deduplicated.
package previews
