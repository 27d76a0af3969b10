package organizer

import (
	"path/filepath"
	"strconv"
	"strings"

	"tagbrain/internal/metadata"
	"tagbrain/internal/services"
	"tagbrain/internal/textutil"
)

// Resolve returns the library path for a file with extension ext:
//
//	root/<album artist or artist>/<album>/[Disc N/]<track> - <title>.<ext>
//
// The disc directory appears only when the release has more than one disc.
// Track and disc numbers are zero-padded to the digit count of their totals.
func Resolve(ext, root string, md metadata.Metadata) (string, error) {
	ext = strings.TrimPrefix(strings.TrimSpace(ext), ".")
	if ext == "" {
		return "", services.Wrap(services.ErrValidation, "organize", "resolve path", "source has no extension", nil)
	}

	artist := textutil.SanitizeFileName(textutil.FirstNonEmpty(md.AlbumArtist, md.Artist))
	album := textutil.SanitizeFileName(md.Album)
	title := strings.TrimSpace(md.Title)
	var missing []string
	if artist == "" {
		missing = append(missing, "artist")
	}
	if album == "" {
		missing = append(missing, "album")
	}
	if textutil.SanitizeFileName(title) == "" {
		missing = append(missing, "title")
	}
	if len(missing) > 0 {
		return "", services.Wrap(services.ErrIncompleteMetadata, "organize", "resolve path", "missing "+strings.Join(missing, ", "), nil)
	}

	parts := []string{root, artist, album}
	if total, err := strconv.Atoi(strings.TrimSpace(md.TotalDiscs)); err == nil && total > 1 {
		parts = append(parts, "Disc "+PadNumber(md.Disc, md.TotalDiscs))
	}

	name := title
	if track := strings.TrimSpace(md.Track); track != "" {
		name = PadNumber(track, md.TotalTracks) + " - " + title
	}
	parts = append(parts, textutil.SanitizeFileName(name)+"."+ext)
	return filepath.Join(parts...), nil
}

// PadNumber left-pads value with zeros to the number of digits in total.
// Values that are not plain numbers are returned trimmed and unchanged.
func PadNumber(value, total string) string {
	value = strings.TrimSpace(value)
	n, err := strconv.Atoi(value)
	if err != nil || n < 0 {
		return value
	}
	width := 0
	if t, err := strconv.Atoi(strings.TrimSpace(total)); err == nil && t >= 0 {
		width = len(strconv.Itoa(t))
	}
	out := strconv.Itoa(n)
	if pad := width - len(out); pad > 0 {
		out = strings.Repeat("0", pad) + out
	}
	return out
}
