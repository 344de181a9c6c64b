package pipeline

import (
	"fmt"
	"path"
	"path/filepath"
	"strings"
	"time"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// ObjectPrefix is the folder photos are uploaded under.
const ObjectPrefix = "images"

// ObjectName builds the storage key for a local photo: images/<name>.jpg
// where name is the file's base name made safe for object keys. A path
// without a usable base name gets image_<unix millis>.jpg.
func ObjectName(localPath string, now func() time.Time) string {
	base := strings.TrimSuffix(filepath.Base(localPath), filepath.Ext(localPath))
	base = sanitize(base)
	if base == "" {
		if now == nil {
			now = time.Now
		}
		base = fmt.Sprintf("image_%d", now().UnixMilli())
	}
	return path.Join(ObjectPrefix, base+".jpg")
}

// sanitize folds accents away and keeps only characters that are safe in
// object keys and URLs.
func sanitize(s string) string {
	// transformers carry state; build one per call
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, s)
	if err == nil {
		s = folded
	}

	var b strings.Builder
	for _, r := range strings.TrimSpace(s) {
		switch {
		case r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)):
			b.WriteRune(r)
		case r == '-' || r == '.' || r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	out := strings.Trim(b.String(), "._")
	if strings.Trim(out, "_-.") == "" {
		return ""
	}
	return out
}
