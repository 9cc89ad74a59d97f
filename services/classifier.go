package services

import (
	"fmt"
	"regexp"
	"strings"
)

// DocumentTypeOther is the default bucket when no category matches.
const DocumentTypeOther = "sonstiges"

type documentTypeEntry struct {
	name     string
	keywords []string
}

// documentTypeTable is ordered: content-based classification returns the
// first category reaching two distinct keyword hits, so the order is part
// of the observable behavior and must stay stable.
var documentTypeTable = []documentTypeEntry{
	{"spendenquittung", []string{"spendenquittung", "spendenbescheinigung", "spende", "zuwendung", "gemeinnützig", "donation"}},
	{"rechnung", []string{"rechnung", "invoice", "rechnungsnummer", "rechnungsbetrag", "mwst", "umsatzsteuer"}},
	{"steuerbescheid", []string{"steuerbescheid", "finanzamt", "einkommensteuer", "bescheid", "steuernummer"}},
	{"gehaltsabrechnung", []string{"gehaltsabrechnung", "lohnabrechnung", "gehalt", "lohn", "brutto", "netto"}},
	{"kontoauszug", []string{"kontoauszug", "iban", "buchung", "saldo", "überweisung"}},
	{"vertrag", []string{"vertrag", "vereinbarung", "contract", "kündigungsfrist", "laufzeit"}},
}

// ClassifyDocumentType derives the document-type tag from filename and
// extracted text. A single filename keyword hit wins immediately; content
// needs at least two distinct keyword hits within one category. The
// asymmetry is deliberate and preserved for compatibility.
func ClassifyDocumentType(filename, text string) string {
	lowerName := strings.ToLower(filename)
	for _, entry := range documentTypeTable {
		for _, keyword := range entry.keywords {
			if strings.Contains(lowerName, keyword) {
				return entry.name
			}
		}
	}

	lowerText := strings.ToLower(text)
	for _, entry := range documentTypeTable {
		hits := 0
		for _, keyword := range entry.keywords {
			if strings.Contains(lowerText, keyword) {
				hits++
			}
		}
		if hits >= 2 {
			return entry.name
		}
	}

	return DocumentTypeOther
}

// ClassifyWithConfidence classifies from the filename alone and scores
// confidence as min(0.3 + 0.2*matches, 0.9). Without any match the
// result is the generic bucket at confidence 0.5.
func ClassifyWithConfidence(filename string) (string, float64) {
	lowerName := strings.ToLower(filename)

	bestType := ""
	bestHits := 0
	for _, entry := range documentTypeTable {
		hits := 0
		for _, keyword := range entry.keywords {
			if strings.Contains(lowerName, keyword) {
				hits++
			}
		}
		if hits > bestHits {
			bestHits = hits
			bestType = entry.name
		}
	}

	if bestHits == 0 {
		return DocumentTypeOther, 0.5
	}

	confidence := 0.3 + 0.2*float64(bestHits)
	if confidence > 0.9 {
		confidence = 0.9
	}
	return bestType, confidence
}

var yearPattern = regexp.MustCompile(`(19|20)\d{2}`)

// FallbackDescription builds the heuristic narrative stored when every
// PDF extraction strategy failed. It is deterministic for identical
// filename and size.
func FallbackDescription(filename string, size int64) string {
	docType, confidence := ClassifyWithConfidence(filename)

	var sb strings.Builder
	fmt.Fprintf(&sb, "Es konnte kein Text extrahiert werden – manuelle Prüfung erforderlich. Datei: %q (%d Bytes).", filename, size)
	fmt.Fprintf(&sb, " Vermuteter Dokumenttyp: %s (Konfidenz %.0f%%).", docType, confidence*100)
	if year := yearPattern.FindString(filename); year != "" {
		fmt.Fprintf(&sb, " Vermutetes Jahr: %s.", year)
	}
	return sb.String()
}
