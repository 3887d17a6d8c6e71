package textutil

import (
	"path"
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var (
	// strictTitleYear requires a space before the parenthesised year. It is
	// used when verifying that a previously moved item still exists.
	strictTitleYear = regexp.MustCompile(`(.+?)\s\((\d{4})\)`)
	// looseTitleYear allows the space to be omitted and gates the move itself.
	looseTitleYear = regexp.MustCompile(`(.+?)\s*\((\d{4})\)`)

	releaseYear     = regexp.MustCompile(`(.*?)[.\s(](\d{4})[.\s)]`)
	releaseBrackets = regexp.MustCompile(`[\[(]`)
	releaseQuality  = regexp.MustCompile(`(?i)[.\s](WEB|1080|720|4k|2160)`)

	seriesPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)s\d{1,2}e\d{1,2}`),
		regexp.MustCompile(`(?i)s\d{1,2}`),
		regexp.MustCompile(`(?i)season\s*\d+`),
		regexp.MustCompile(`\d{1,2}x\d{1,2}`),
		regexp.MustCompile(`(?i)cap\.\d+`),
		regexp.MustCompile(`(?i)episodio\s*\d+`),
	}
)

// ContentBaseName returns the last path element of a torrent content path.
// Backslashes are treated as separators and trailing separators are ignored,
// so Windows-style client paths resolve the same way as POSIX ones.
func ContentBaseName(contentPath string) string {
	normalized := strings.ReplaceAll(contentPath, `\`, "/")
	normalized = strings.TrimRight(normalized, "/")
	if normalized == "" {
		return ""
	}
	return path.Base(normalized)
}

// ParseTitleYear extracts the title and year from a "Title (Year)" name.
// Strict parsing demands whitespace before the parenthesis.
func ParseTitleYear(name string, strict bool) (title, year string, ok bool) {
	re := looseTitleYear
	if strict {
		re = strictTitleYear
	}
	match := re.FindStringSubmatch(name)
	if match == nil {
		return "", "", false
	}
	title = strings.TrimSpace(match[1])
	if title == "" {
		return "", "", false
	}
	return title, strings.TrimSpace(match[2]), true
}

// FolderName renders the canonical library folder name "Title (Year)".
func FolderName(title, year string) string {
	return SanitizeFileName(title) + " (" + strings.TrimSpace(year) + ")"
}

// CleanTorrentName extracts a movie title and year from a release name such
// as "The.Matrix.1999.1080p.BluRay". Year is empty when none is present, in
// which case the title is cut at the first bracket or quality marker.
func CleanTorrentName(name string) (title, year string) {
	if match := releaseYear.FindStringSubmatch(name); match != nil {
		title = strings.TrimSpace(strings.ReplaceAll(match[1], ".", " "))
		if title != "" {
			return title, match[2]
		}
	}
	base := name
	if loc := releaseBrackets.FindStringIndex(base); loc != nil {
		base = base[:loc[0]]
	}
	if loc := releaseQuality.FindStringIndex(base); loc != nil {
		base = base[:loc[0]]
	}
	return strings.TrimSpace(strings.ReplaceAll(base, ".", " ")), ""
}

// IsSeries reports whether a torrent name follows a serialized TV naming
// pattern (S01E01, S01, Season 1, 1x01, Cap.1, Episodio 1).
func IsSeries(name string) bool {
	for _, re := range seriesPatterns {
		if re.MatchString(name) {
			return true
		}
	}
	return false
}

// DedupeKey builds a comparison key for title/year pairs that ignores case,
// diacritics, and repeated whitespace, so "Amélie" and "amelie" collide.
func DedupeKey(title, year string) string {
	stripper := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	plain, _, err := transform.String(stripper, title)
	if err != nil {
		plain = title
	}
	key := strings.Join(strings.Fields(cases.Fold().String(plain)), " ")
	if year = strings.TrimSpace(year); year != "" {
		key += "_" + year
	}
	return key
}
