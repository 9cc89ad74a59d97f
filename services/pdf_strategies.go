package services

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"os/exec"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/ledongthuc/pdf"
)

// pdfStrategy is one self-contained attempt at turning PDF bytes into
// text. The orchestrator tries strategies in declared order; the first
// whose trimmed result exceeds minChars wins and no later strategy runs.
type pdfStrategy interface {
	name() string
	minChars() int
	attempt(ctx context.Context, data []byte) (string, error)
}

// --- 1. sandboxed subprocess ---

// scriptResponse is the structured output of the extraction script.
type scriptResponse struct {
	Success    bool   `json:"success"`
	Text       string `json:"text"`
	Pages      int    `json:"pages"`
	TextLength int    `json:"text_length"`
	Error      string `json:"error,omitempty"`
}

type scriptStrategy struct {
	scriptPath string
	timeout    time.Duration
}

func (s *scriptStrategy) name() string  { return "script" }
func (s *scriptStrategy) minChars() int { return 10 }

func (s *scriptStrategy) attempt(ctx context.Context, data []byte) (string, error) {
	runCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	cmd := exec.CommandContext(runCtx, "python3", s.scriptPath)
	cmd.Stdin = strings.NewReader(base64.StdEncoding.EncodeToString(data))

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		// Timeout and process failure are treated alike: try the next strategy.
		return "", fmt.Errorf("extraction script failed: %v, stderr: %s", err, stderr.String())
	}

	var resp scriptResponse
	if err := json.Unmarshal(stdout.Bytes(), &resp); err != nil {
		return "", fmt.Errorf("failed to decode script output: %w", err)
	}
	if !resp.Success {
		return "", fmt.Errorf("extraction script reported failure: %s", resp.Error)
	}
	return resp.Text, nil
}

// --- 2. remote extraction service ---

type remoteStrategy struct {
	client *RemoteExtractor
}

func (s *remoteStrategy) name() string  { return "remote" }
func (s *remoteStrategy) minChars() int { return 10 }

func (s *remoteStrategy) attempt(ctx context.Context, data []byte) (string, error) {
	return s.client.Extract(ctx, data, "document.pdf")
}

// nullRemoteStrategy stands in when no remote service is configured.
// Absence of configuration is "not attempted", never a failure.
type nullRemoteStrategy struct{}

func (s *nullRemoteStrategy) name() string  { return "remote" }
func (s *nullRemoteStrategy) minChars() int { return 10 }

func (s *nullRemoteStrategy) attempt(ctx context.Context, data []byte) (string, error) {
	return "", ErrNotConfigured
}

// --- 3. in-process parser, default options ---

type parserStrategy struct{}

func (s *parserStrategy) name() string  { return "parser" }
func (s *parserStrategy) minChars() int { return 10 }

func (s *parserStrategy) attempt(ctx context.Context, data []byte) (text string, err error) {
	// The parser panics on some malformed files.
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("pdf parser panicked: %v", r)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("failed to create PDF reader: %w", err)
	}

	var sb strings.Builder
	fonts := make(map[string]*pdf.Font)
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		pageText, err := page.GetPlainText(fonts)
		if err != nil {
			continue
		}
		sb.WriteString(pageText)
		sb.WriteString("\n")
	}
	return sb.String(), nil
}

// --- 4. in-process parser, row-based normalization ---

// parserRawStrategy reassembles page content from positioned text
// fragments instead of the font-aware plain-text path. Some PDFs that
// defeat strategy 3 still yield words here, so the threshold is looser.
type parserRawStrategy struct{}

func (s *parserRawStrategy) name() string  { return "parser_raw" }
func (s *parserRawStrategy) minChars() int { return 5 }

func (s *parserRawStrategy) attempt(ctx context.Context, data []byte) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("pdf parser panicked: %v", r)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("failed to create PDF reader: %w", err)
	}

	var sb strings.Builder
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		sb.WriteString(assembleRows(page.Content().Text))
		sb.WriteString("\n")
	}
	return collapseWhitespace(sb.String()), nil
}

// assembleRows groups fragments by their Y coordinate into rows (top to
// bottom), sorted left to right within a row.
func assembleRows(fragments []pdf.Text) string {
	rows := make(map[int][]pdf.Text)
	for _, fragment := range fragments {
		key := int(fragment.Y)
		rows[key] = append(rows[key], fragment)
	}

	keys := make([]int, 0, len(rows))
	for key := range rows {
		keys = append(keys, key)
	}
	sort.Sort(sort.Reverse(sort.IntSlice(keys)))

	var sb strings.Builder
	for _, key := range keys {
		row := rows[key]
		sort.Slice(row, func(a, b int) bool { return row[a].X < row[b].X })
		for _, fragment := range row {
			sb.WriteString(fragment.S)
			sb.WriteString(" ")
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

var whitespacePattern = regexp.MustCompile(`[ \t]+`)

func collapseWhitespace(text string) string {
	return whitespacePattern.ReplaceAllString(text, " ")
}

// --- 5. raw-bytes heuristic scan ---

// rawScanStrategy treats the file as Latin-1 text and pulls parenthesized
// printable runs, the text-object pattern of uncompressed PDF streams.
type rawScanStrategy struct{}

func (s *rawScanStrategy) name() string  { return "raw_scan" }
func (s *rawScanStrategy) minChars() int { return 10 }

var textObjectPattern = regexp.MustCompile(`\(([\x20-\x7E]{2,})\)`)

// structuralNoise lists tokens from the PDF skeleton that the scan must
// not mistake for document text.
var structuralNoise = []string{
	"stream", "endstream", "xref", "startxref", "trailer",
	"obj", "endobj", "FlateDecode", "Filter", "Length", "Type",
}

func (s *rawScanStrategy) attempt(ctx context.Context, data []byte) (string, error) {
	matches := textObjectPattern.FindAllStringSubmatch(string(data), -1)
	if len(matches) == 0 {
		return "", ErrNoUsableContent
	}

	var parts []string
	for _, match := range matches {
		candidate := strings.TrimSpace(match[1])
		if candidate == "" || isStructuralNoise(candidate) {
			continue
		}
		parts = append(parts, candidate)
	}
	if len(parts) == 0 {
		return "", ErrNoUsableContent
	}
	return strings.Join(parts, " "), nil
}

func isStructuralNoise(candidate string) bool {
	for _, token := range structuralNoise {
		if candidate == token || strings.HasPrefix(candidate, "/"+token) {
			return true
		}
	}
	return false
}
