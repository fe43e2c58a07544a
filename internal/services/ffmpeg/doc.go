// Package ffmpeg renders GIF previews of staged media. Rendering is two-pass
// (palettegen then paletteuse) and shrinks the clip until it fits the
// configured byte budget. Execution goes through services.Runner so tests
// never shell out.
package ffmpeg
