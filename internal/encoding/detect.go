// Package encoding guesses the codec family of an audio file so the speech
// backend can be configured. The guess is best effort; the backend may
// override it and UNSPECIFIED lets it auto-detect.
package encoding

import (
	"bytes"
	"net/url"
	"path"
	"strings"
)

type Tag string

const (
	Linear16    Tag = "LINEAR16"
	MP3         Tag = "MP3"
	OggOpus     Tag = "OGG_OPUS"
	WebmOpus    Tag = "WEBM_OPUS"
	Unspecified Tag = "UNSPECIFIED"
)

// HeaderSize is the number of leading content bytes Detect looks at.
const HeaderSize = 12

var byExtension = map[string]Tag{
	".wav":  Linear16,
	".mp3":  MP3,
	".m4a":  MP3,
	".mp4":  MP3,
	".ogg":  OggOpus,
	".webm": WebmOpus,
}

// Detect returns the encoding for a file name or URL and/or the content header.
// A RIFF container is always LINEAR16. Otherwise the extension wins over the
// remaining header sniffing; nothing matching yields Unspecified.
func Detect(locator string, header []byte) Tag {
	if bytes.HasPrefix(header, []byte("RIFF")) {
		return Linear16
	}
	if tag, ok := FromLocator(locator); ok {
		return tag
	}
	if tag, ok := FromHeader(header); ok {
		return tag
	}
	return Unspecified
}

// FromLocator maps the extension of a file name or URL path. Query and
// fragment are only stripped when the locator has a scheme; a bare file name
// may legitimately contain '?' or '#'.
func FromLocator(locator string) (Tag, bool) {
	locator = strings.TrimSpace(locator)
	if locator == "" {
		return "", false
	}
	p := locator
	if u, err := url.Parse(locator); err == nil && u.Scheme != "" && u.Path != "" {
		p = u.Path
	}
	tag, ok := byExtension[strings.ToLower(path.Ext(p))]
	return tag, ok
}

// FromHeader sniffs the magic bytes of the first HeaderSize bytes.
func FromHeader(header []byte) (Tag, bool) {
	if len(header) > HeaderSize {
		header = header[:HeaderSize]
	}
	switch {
	case bytes.HasPrefix(header, []byte("RIFF")):
		return Linear16, true
	case bytes.HasPrefix(header, []byte("OggS")):
		return OggOpus, true
	case len(header) >= 2 && header[0] == 0xFF && header[1]&0xE0 == 0xE0:
		// MPEG audio frame sync: 11 set bits.
		return MP3, true
	}
	return "", false
}

// ContentType returns a MIME type for the tag, used when uploading.
func (t Tag) ContentType() string {
	switch t {
	case Linear16:
		return "audio/wav"
	case MP3:
		return "audio/mpeg"
	case OggOpus:
		return "audio/ogg"
	case WebmOpus:
		return "audio/webm"
	default:
		return "application/octet-stream"
	}
}

// Extension returns the canonical file extension for the tag, with the dot.
func (t Tag) Extension() string {
	switch t {
	case Linear16:
		return ".wav"
	case MP3:
		return ".mp3"
	case OggOpus:
		return ".ogg"
	case WebmOpus:
		return ".webm"
	default:
		return ""
	}
}
