package services

import "strings"

var (
	germanStopwords  = []string{"der", "die", "das", "und", "ist", "nicht", "mit", "von", "für", "eine"}
	englishStopwords = []string{"the", "and", "or", "of", "to", "in", "for", "with", "on", "at"}
)

// DetectLanguage performs simple stop-word based language detection.
// Returns "de", "en" or "unknown".
func DetectLanguage(text string) string {
	lowerText := " " + strings.ToLower(text) + " "

	germanCount := 0
	for _, word := range germanStopwords {
		germanCount += strings.Count(lowerText, " "+word+" ")
	}

	englishCount := 0
	for _, word := range englishStopwords {
		englishCount += strings.Count(lowerText, " "+word+" ")
	}

	switch {
	case germanCount >= 3 && germanCount >= englishCount:
		return "de"
	case englishCount >= 3:
		return "en"
	default:
		return "unknown"
	}
}
