// Package logging provides leveled logging for the media center.
//
// The level is read once from the DEBUG or LOG_LEVEL environment variables
// and defaults to info. Messages are written through the standard library
// log package with a level prefix.
package logging
