// Package ytdlp wraps the yt-dlp CLI behind a small client used by the stager
// and the ingest dedup check. All execution goes through services.Runner so
// tests never shell out.
package ytdlp
