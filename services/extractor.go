package services

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"tax-document-platform/internal/config"
	"tax-document-platform/internal/logger"
	"tax-document-platform/models"

	"github.com/lu4p/cat"
	"github.com/xuri/excelize/v2"
)

// Human-readable provenance prefixes persisted with every extraction
// outcome, and the deterministic placeholders substituted when a chain
// is exhausted. User-facing strings are German.
const (
	PrefixPDF   = "PDF-Dokument: "
	PrefixImage = "Bild-Dokument: "
	PrefixWord  = "Word-Dokument: "
	PrefixSheet = "Tabellendokument: "
	PrefixXML   = "XML-Dokument: "
	PrefixText  = "Textdokument: "

	PlaceholderImageNoText   = "Scan ohne extrahierbaren Text – manuelle Prüfung erforderlich."
	PlaceholderImageOCRError = "Texterkennung fehlgeschlagen – manuelle Prüfung erforderlich."
	PlaceholderWordEmpty     = "Kein Textinhalt gefunden – manuelle Prüfung erforderlich."
	PlaceholderWordError     = "Extraktion fehlgeschlagen – manuelle Prüfung erforderlich."
	PlaceholderSheetError    = "Tabelleninhalt konnte nicht gelesen werden – manuelle Prüfung erforderlich."
	PlaceholderUnsupported   = "Nicht unterstütztes Dateiformat – manuelle Prüfung erforderlich."
)

// maxExtractedChars caps stored text; longer extractions are truncated
// and flagged.
const maxExtractedChars = 200000

var ocrLanguageHints = []string{"de", "en"}

// Extractor turns raw upload bytes into the best available text. It
// never fails: every outcome is either extracted text or an explicit
// placeholder, always carrying a provenance prefix.
type Extractor struct {
	cfg           *config.Config
	ocr           OCREngine
	pdfStrategies []pdfStrategy
}

// NewExtractor wires the PDF strategy chain in its fixed priority order.
// A nil OCR engine is replaced by a null-object that reports engine
// unavailability, which the image path converts into a placeholder.
func NewExtractor(cfg *config.Config, ocr OCREngine) *Extractor {
	if ocr == nil {
		ocr = &unavailableOCR{}
	}

	timeout := time.Duration(cfg.ExtractionTimeout) * time.Second

	var remote pdfStrategy = &nullRemoteStrategy{}
	if cfg.PDFServiceURL != "" {
		remote = &remoteStrategy{client: NewRemoteExtractor(cfg.PDFServiceURL, timeout)}
	}

	return &Extractor{
		cfg: cfg,
		ocr: ocr,
		pdfStrategies: []pdfStrategy{
			&scriptStrategy{scriptPath: cfg.PDFScriptPath, timeout: timeout},
			remote,
			&parserStrategy{},
			&parserRawStrategy{},
			&rawScanStrategy{},
		},
	}
}

// Extract dispatches on the declared media type. The returned result
// always contains text; extraction never propagates an error.
func (e *Extractor) Extract(ctx context.Context, data []byte, mimeType, filename string) models.ExtractionResult {
	switch {
	case isPDF(mimeType, filename):
		return e.extractPDF(ctx, data, filename)
	case strings.HasPrefix(mimeType, "image/"):
		return e.extractImage(ctx, data)
	case isWord(mimeType, filename):
		return e.extractWord(data, filename)
	case isSpreadsheet(mimeType, filename):
		return e.extractSpreadsheet(data)
	case isXML(mimeType, filename):
		return finalize(PrefixXML+string(data), "direct", 1.0)
	case strings.HasPrefix(mimeType, "text/"):
		return finalize(PrefixText+string(data), "direct", 1.0)
	default:
		return finalize(PlaceholderUnsupported, "unsupported", 0)
	}
}

// extractPDF walks the strategy chain. The first strategy whose trimmed
// output exceeds its threshold wins; later strategies are never run.
// When every strategy fails the stored text is the filename/size/year
// heuristic narrative instead of raw content.
func (e *Extractor) extractPDF(ctx context.Context, data []byte, filename string) models.ExtractionResult {
	for _, strategy := range e.pdfStrategies {
		text, err := strategy.attempt(ctx, data)
		if err != nil {
			if err == ErrNotConfigured {
				logger.Debug("pdf strategy not configured", "strategy", strategy.name())
			} else {
				logger.Warn("pdf strategy failed", "strategy", strategy.name(), "error", err)
			}
			continue
		}
		if len(strings.TrimSpace(text)) > strategy.minChars() {
			logger.Info("pdf extraction succeeded", "strategy", strategy.name(), "chars", len(text))
			return finalize(PrefixPDF+text, strategy.name(), strategyConfidence(strategy.name()))
		}
		logger.Debug("pdf strategy below threshold", "strategy", strategy.name(), "chars", len(text))
	}

	logger.Warn("all pdf strategies exhausted", "filename", filename)
	return finalize(PrefixPDF+FallbackDescription(filename, int64(len(data))), "fallback", 0.1)
}

func (e *Extractor) extractImage(ctx context.Context, data []byte) models.ExtractionResult {
	text, err := e.ocr.Recognize(ctx, data, ocrLanguageHints)
	if err != nil {
		logger.Warn("ocr failed", "error", err)
		return finalize(PrefixImage+PlaceholderImageOCRError, "ocr", 0)
	}
	if len(strings.TrimSpace(text)) <= 10 {
		return finalize(PrefixImage+PlaceholderImageNoText, "ocr", 0)
	}
	return finalize(PrefixImage+text, "ocr", 0.8)
}

// extractWord shells the bytes through a temp file because the raw-text
// reader dispatches on the file extension.
func (e *Extractor) extractWord(data []byte, filename string) models.ExtractionResult {
	ext := strings.ToLower(filepath.Ext(filename))
	if ext == "" {
		ext = ".docx"
	}

	tmp, err := os.CreateTemp("", "extract-*"+ext)
	if err != nil {
		return finalize(PrefixWord+PlaceholderWordError, "word", 0)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return finalize(PrefixWord+PlaceholderWordError, "word", 0)
	}
	tmp.Close()

	text, err := cat.File(tmp.Name())
	if err != nil {
		logger.Warn("word extraction failed", "error", err)
		return finalize(PrefixWord+PlaceholderWordError, "word", 0)
	}
	if strings.TrimSpace(text) == "" {
		return finalize(PrefixWord+PlaceholderWordEmpty, "word", 0)
	}
	return finalize(PrefixWord+text, "word", 0.8)
}

func (e *Extractor) extractSpreadsheet(data []byte) models.ExtractionResult {
	workbook, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		logger.Warn("spreadsheet extraction failed", "error", err)
		return finalize(PrefixSheet+PlaceholderSheetError, "sheet", 0)
	}
	defer workbook.Close()

	var sb strings.Builder
	for _, sheet := range workbook.GetSheetList() {
		rows, err := workbook.GetRows(sheet)
		if err != nil {
			continue
		}
		for _, row := range rows {
			sb.WriteString(strings.Join(row, " "))
			sb.WriteString("\n")
		}
	}
	if strings.TrimSpace(sb.String()) == "" {
		return finalize(PrefixSheet+PlaceholderSheetError, "sheet", 0)
	}
	return finalize(PrefixSheet+sb.String(), "sheet", 0.8)
}

func finalize(text, method string, confidence float64) models.ExtractionResult {
	truncated := false
	if len(text) > maxExtractedChars {
		text = text[:maxExtractedChars]
		truncated = true
	}
	return models.ExtractionResult{
		Text:       text,
		Method:     method,
		Confidence: confidence,
		Truncated:  truncated,
	}
}

func strategyConfidence(name string) float64 {
	switch name {
	case "script":
		return 0.9
	case "remote":
		return 0.85
	case "parser":
		return 0.75
	case "parser_raw":
		return 0.6
	case "raw_scan":
		return 0.3
	default:
		return 0.5
	}
}

func isPDF(mimeType, filename string) bool {
	return strings.Contains(mimeType, "pdf") || strings.HasSuffix(strings.ToLower(filename), ".pdf")
}

func isWord(mimeType, filename string) bool {
	if strings.Contains(mimeType, "msword") ||
		strings.Contains(mimeType, "wordprocessingml") ||
		strings.Contains(mimeType, "opendocument.text") ||
		strings.Contains(mimeType, "rtf") {
		return true
	}
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".doc", ".docx", ".odt", ".rtf":
		return true
	}
	return false
}

func isSpreadsheet(mimeType, filename string) bool {
	if strings.Contains(mimeType, "spreadsheetml") || strings.Contains(mimeType, "ms-excel") {
		return true
	}
	return strings.ToLower(filepath.Ext(filename)) == ".xlsx"
}

func isXML(mimeType, filename string) bool {
	if strings.Contains(mimeType, "xml") {
		return true
	}
	return strings.ToLower(filepath.Ext(filename)) == ".xml"
}

// unavailableOCR is the null-object used when no OCR engine is
// configured; the image path turns its error into a placeholder.
type unavailableOCR struct{}

func (o *unavailableOCR) Recognize(ctx context.Context, data []byte, languageHints []string) (string, error) {
	return "", fmt.Errorf("ocr engine not configured: %w", ErrNotConfigured)
}
