package acquire

import (
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/mozillazg/go-unidecode"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/htmlindex"

	"github.com/david/tender-digest/internal/auction"
)

var (
	extendedFilenameRe = regexp.MustCompile(`(?i)filename\*\s*=\s*([^;]+)`)
	plainFilenameRe    = regexp.MustCompile(`(?i)filename\s*=\s*"?([^";]+)"?`)
)

// ResolveFilename picks the name a downloaded file is saved under: the RFC 5987
// filename* parameter, then the plain filename parameter, then the name
// declared in the auction, then file_<id>.bin. Every candidate is
// transliterated to ASCII and stripped of directories; a candidate that ends
// up empty falls through to the next source.
func ResolveFilename(header http.Header, file auction.AttachedFile) string {
	disposition := header.Get("Content-Disposition")

	if m := extendedFilenameRe.FindStringSubmatch(disposition); m != nil {
		if decoded, err := decodeExtendedValue(m[1]); err == nil {
			if name := safeName(decoded); name != "" {
				return name
			}
		}
	}
	if m := plainFilenameRe.FindStringSubmatch(disposition); m != nil {
		if name := safeName(toUTF8(m[1])); name != "" {
			return name
		}
	}
	if name := safeName(file.Name); name != "" {
		return name
	}
	id := string(file.ID)
	if id == "" {
		id = "unknown"
	}
	return fmt.Sprintf("file_%s.bin", id)
}

// decodeExtendedValue decodes charset'lang'percent-encoded-value.
func decodeExtendedValue(raw string) (string, error) {
	parts := strings.SplitN(strings.Trim(strings.TrimSpace(raw), `"`), "'", 3)
	if len(parts) != 3 {
		return "", fmt.Errorf("malformed extended value %q", raw)
	}
	charset, encoded := strings.TrimSpace(parts[0]), parts[2]

	unescaped, err := url.PathUnescape(encoded)
	if err != nil {
		return "", fmt.Errorf("unescape %q: %w", encoded, err)
	}
	if charset == "" || strings.EqualFold(charset, "utf-8") {
		return strings.ToValidUTF8(unescaped, "?"), nil
	}

	enc, err := htmlindex.Get(charset)
	if err != nil {
		return "", fmt.Errorf("unknown charset %q: %w", charset, err)
	}
	decoded, err := enc.NewDecoder().String(unescaped)
	if err != nil {
		return "", fmt.Errorf("decode %s: %w", charset, err)
	}
	return decoded, nil
}

// toUTF8 reads a plain header value that is not valid UTF-8 as Windows-1251,
// the usual legacy encoding for Russian file names.
func toUTF8(s string) string {
	if utf8.ValidString(s) {
		return s
	}
	decoded, err := charmap.Windows1251.NewDecoder().String(s)
	if err != nil {
		return strings.ToValidUTF8(s, "?")
	}
	return decoded
}

func safeName(name string) string {
	name = unidecode.Unidecode(strings.TrimSpace(name))
	if i := strings.LastIndexAny(name, `/\`); i >= 0 {
		name = name[i+1:]
	}
	name = strings.TrimSpace(name)
	if name == "." || name == ".." {
		return ""
	}
	return name
}
