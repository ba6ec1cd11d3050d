// Package slug turns note titles into URL-safe identifiers and validates
// slugs supplied by users.
//
// A slug is the note's public key: /note/{slug}/, /edit/{slug}/ and so on.
// Explicit slugs are accepted as typed (after validation). When the user
// leaves the slug empty, one is derived from the title by transliteration:
//
//	"Заголовок"        → "zagolovok"
//	"Щука"             → "schuka"
//	"Crème brûlée 101" → "creme-brulee-101"
//
// Cyrillic follows the classic Russian transliteration table (х → h,
// й → j, щ → sch, я → ya, hard and soft signs dropped). Everything else goes
// through gosimple/slug's unidecode pass.
//
// This package never talks to the store. Whether a slug is already taken is
// decided by the service against the database.
package slug

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	gosimple "github.com/gosimple/slug"

	"github.com/sakif/notes/internal/apperror"
)

// MaxLength matches the width of the notes.slug column.
const MaxLength = 100

var validSlug = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// cyrillic is applied before unidecode, which would otherwise pick its own
// spellings (х → kh, я → ia). Capitals are lower-cased afterwards.
var cyrillic = map[rune]string{
	'а': "a", 'б': "b", 'в': "v", 'г': "g", 'д': "d", 'е': "e", 'ё': "yo",
	'ж': "zh", 'з': "z", 'и': "i", 'й': "j", 'к': "k", 'л': "l", 'м': "m",
	'н': "n", 'о': "o", 'п': "p", 'р': "r", 'с': "s", 'т': "t", 'у': "u",
	'ф': "f", 'х': "h", 'ц': "ts", 'ч': "ch", 'ш': "sh", 'щ': "sch", 'ъ': "",
	'ы': "yi", 'ь': "", 'э': "e", 'ю': "yu", 'я': "ya",
	'є': "ye", 'і': "i", 'ї': "yi", 'ґ': "g",
}

func init() {
	if gosimple.CustomRuneSub == nil {
		gosimple.CustomRuneSub = make(map[rune]string, 2*len(cyrillic))
	}
	for lower, latin := range cyrillic {
		gosimple.CustomRuneSub[lower] = latin
		gosimple.CustomRuneSub[unicode.ToUpper(lower)] = latin
	}
}

// Make derives a slug from a title.
//
// The title is transliterated into Latin, lower-cased, and every run of
// characters outside [a-z0-9_] becomes a single hyphen. Leading and trailing
// hyphens are trimmed. The result may be empty when the title has nothing
// transliterable (e.g. only punctuation or emoji).
func Make(title string) string {
	s := gosimple.Make(title)
	return truncate(s, MaxLength)
}

// Validate checks an explicit, user-supplied slug.
// Allowed characters are ASCII letters, digits, hyphen and underscore.
func Validate(s string) error {
	if s == "" {
		return apperror.ValidationFailed("slug", "slug is required")
	}
	if utf8.RuneCountInString(s) > MaxLength {
		return apperror.ValidationFailed("slug", "slug must be 100 characters or less")
	}
	if !validSlug.MatchString(s) {
		return apperror.ValidationFailed("slug",
			"slug may only contain latin letters, digits, hyphens and underscores")
	}
	return nil
}

// Resolve returns the slug a note should be stored under.
//
// A non-blank explicit slug wins and must pass Validate. Otherwise the slug
// is derived from the title with Make.
func Resolve(title, explicit string) (string, error) {
	if explicit = strings.TrimSpace(explicit); explicit != "" {
		if err := Validate(explicit); err != nil {
			return "", err
		}
		return explicit, nil
	}

	derived := Make(title)
	if derived == "" {
		return "", apperror.ValidationFailed("slug",
			"could not derive a slug from the title, please enter one")
	}
	return derived, nil
}

// truncate cuts s to at most n runes without leaving a dangling separator.
func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return strings.TrimRight(string(runes[:n]), "-_")
}
