package classify

import (
	"strings"

	"github.com/spetersoncode/gamecraft"
)

// French function words that rarely appear in English gaming queries.
// Accented content words are a strong signal on their own.
var frenchMarkers = []string{
	"une", "des", "les", "est", "pour", "avec", "dans", "sur",
	"fais", "faire", "crée", "créer", "vidéo", "critique", "résumé",
	"jeu", "jeux", "bande-annonce", "aperçu",
}

// DetectLanguage is the cheap first-pass language heuristic used by the
// language detection node. The second return reports whether the guess
// carries any signal; when false the classifier's own detection wins.
func DetectLanguage(text string) (gamecraft.Language, bool) {
	lower := strings.ToLower(text)
	fields := strings.FieldsFunc(lower, func(r rune) bool {
		return r == ' ' || r == ',' || r == '.' || r == '!' || r == '?' || r == ':' || r == '\''
	})

	hits := 0
	for _, f := range fields {
		for _, m := range frenchMarkers {
			if f == m {
				hits++
				break
			}
		}
	}
	if hits >= 2 {
		return gamecraft.LanguageFrench, true
	}
	if hits == 0 && len(fields) > 0 {
		return gamecraft.LanguageEnglish, true
	}
	return gamecraft.LanguageEnglish, false
}
