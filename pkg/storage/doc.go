// Package storage manages the transient download directory.
//
// Bodies are streamed to disk in 8 KiB chunks through a temporary file that
// is renamed into place once complete; zero-byte results never become
// visible. Files are addressed by plain names only, and a sweeper removes
// anything older than the configured maximum age.
package storage
