package pcm

import (
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/dhowden/tag"
	"golang.org/x/text/encoding/charmap"

	"github.com/tejashwikalptaru/visualplayer/internal/domain"
)

// Metadata holds the tags of a media file that the player displays.
type Metadata struct {
	Title  string
	Artist string
	Album  string

	// Picture is the embedded cover art, if any.
	Picture     []byte
	PictureMIME string
}

// DisplayTitle returns "Artist - Title", or whichever of the two is set.
func (m Metadata) DisplayTitle() string {
	switch {
	case m.Artist != "" && m.Title != "":
		return m.Artist + " - " + m.Title
	case m.Title != "":
		return m.Title
	default:
		return m.Artist
	}
}

// ReadMetadata extracts tags from a media file.
// Files without readable tags yield the base file name as title and no error.
func ReadMetadata(path string) (Metadata, error) {
	if path == "" {
		return Metadata{}, domain.NewMediaError("metadata", path, "empty path", nil)
	}

	md := Metadata{Title: strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))}

	f, err := os.Open(path)
	if err != nil {
		return md, domain.NewMediaError("metadata", path, err.Error(), err)
	}
	defer f.Close()

	tags, err := tag.ReadFrom(f)
	if err != nil || tags == nil {
		// Untagged files are normal (WAV in particular).
		return md, nil
	}

	if title := cleanTag(tags.Title()); title != "" {
		md.Title = title
	}
	md.Artist = cleanTag(tags.Artist())
	md.Album = cleanTag(tags.Album())

	if pic := tags.Picture(); pic != nil {
		md.Picture = pic.Data
		md.PictureMIME = pic.MIMEType
	}
	return md, nil
}

// cleanTag trims a tag value and repairs UTF-8 text that was stored in a
// Latin-1 frame ("BeyoncÃ©" becomes "Beyoncé").
func cleanTag(s string) string {
	s = strings.TrimSpace(strings.Trim(s, "\x00\ufeff"))
	if !hasHighLatin1(s) {
		return s
	}
	raw, err := charmap.ISO8859_1.NewEncoder().String(s)
	if err != nil || !utf8.ValidString(raw) {
		return s
	}
	return raw
}

// hasHighLatin1 reports whether s has runes in U+0080..U+00FF and none above.
func hasHighLatin1(s string) bool {
	high := false
	for _, r := range s {
		switch {
		case r > 0xff:
			return false
		case r >= 0x80:
			high = true
		}
	}
	return high
}
