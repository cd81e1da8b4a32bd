// Package pdf extracts text from PDF documents.
//
// Text is extracted with pdftotext from poppler when it is installed, which
// handles CJK fonts and layout well. Without it an in-process reader is used.
package pdf

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"strings"

	pdfreader "github.com/ledongthuc/pdf"

	"github.com/custodia-labs/policycite/internal/core/domain"
	"github.com/custodia-labs/policycite/internal/core/ports/driven"
	"github.com/custodia-labs/policycite/internal/logger"
)

// Ensure Extractor implements the interface.
var _ driven.DocumentExtractor = (*Extractor)(nil)

// ToolName is the external extraction binary.
const ToolName = "pdftotext"

// ErrPDFToolNotFound indicates pdftotext is not installed.
var ErrPDFToolNotFound = errors.New("pdftotext not found in PATH")

// utf8BOM may precede the %PDF- marker in files written by some tools.
var utf8BOM = []byte("\xef\xbb\xbf")

var signature = []byte("%PDF-")

// CommandRunner runs an external command and returns its standard output.
type CommandRunner interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

type execRunner struct{}

func (execRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stderr = &stderr

	out, err := cmd.Output()
	if err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return nil, fmt.Errorf("%w: %s", err, msg)
		}
		return nil, err
	}
	return out, nil
}

// Extractor handles PDF documents.
type Extractor struct {
	runner   CommandRunner
	lookPath func(string) (string, error)
}

// New creates a PDF extractor that runs pdftotext when available.
func New() *Extractor {
	return &Extractor{runner: execRunner{}, lookPath: exec.LookPath}
}

// NewWithRunner creates a PDF extractor that always uses the given runner.
func NewWithRunner(runner CommandRunner) *Extractor {
	return &Extractor{
		runner:   runner,
		lookPath: func(name string) (string, error) { return name, nil },
	}
}

// NewInProcess creates a PDF extractor that never runs external tools.
func NewInProcess() *Extractor {
	return &Extractor{
		lookPath: func(string) (string, error) { return "", ErrPDFToolNotFound },
	}
}

// Format returns domain.FormatPDF.
func (e *Extractor) Format() domain.Format {
	return domain.FormatPDF
}

// Detect reports whether content starts with the %PDF- marker, allowing a
// leading BOM or whitespace.
func (e *Extractor) Detect(content []byte) bool {
	head := bytes.TrimPrefix(content, utf8BOM)
	head = bytes.TrimLeft(head, " \t\r\n\x00")
	return bytes.HasPrefix(head, signature)
}

// Extract returns the text of each page.
func (e *Extractor) Extract(ctx context.Context, path string, content []byte) (*domain.Extraction, error) {
	var (
		pages []string
		err   error
	)

	if _, lookErr := e.lookPath(ToolName); lookErr == nil {
		pages, err = e.extractWithTool(ctx, content)
	} else {
		logger.Debug("%s unavailable, reading %s in process", ToolName, path)
		pages, err = extractInProcess(content)
	}
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, domain.NewExtractionError(path, domain.FormatPDF, domain.ReasonCorrupt, err)
	}

	return &domain.Extraction{
		Format:    domain.FormatPDF,
		Title:     extractTitle(pages),
		Pages:     pages,
		Paginated: true,
	}, nil
}

// extractWithTool writes content to a temporary file and runs pdftotext.
// Pages are separated by form feeds in its output.
func (e *Extractor) extractWithTool(ctx context.Context, content []byte) ([]string, error) {
	tmp, err := os.CreateTemp("", "policycite-*.pdf")
	if err != nil {
		return nil, err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(content); err != nil {
		tmp.Close()
		return nil, err
	}
	if err := tmp.Close(); err != nil {
		return nil, err
	}

	out, err := e.runner.Run(ctx, ToolName, "-enc", "UTF-8", tmp.Name(), "-")
	if err != nil {
		return nil, fmt.Errorf("pdftotext failed: %w", err)
	}

	text := strings.ToValidUTF8(string(out), "�")
	pages := strings.Split(text, "\f")
	if len(pages) > 1 && strings.TrimSpace(pages[len(pages)-1]) == "" {
		pages = pages[:len(pages)-1]
	}
	return pages, nil
}

// extractInProcess reads page text with a pure Go PDF reader.
func extractInProcess(content []byte) (pages []string, err error) {
	// The reader panics on some malformed inputs
	defer func() {
		if r := recover(); r != nil {
			pages = nil
			err = fmt.Errorf("pdf reader: %v", r)
		}
	}()

	reader, err := pdfreader.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return nil, err
	}

	n := reader.NumPage()
	pages = make([]string, 0, n)
	for i := 1; i <= n; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			pages = append(pages, "")
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			return nil, fmt.Errorf("page %d: %w", i, err)
		}
		pages = append(pages, text)
	}
	return pages, nil
}

// extractTitle uses the first short non-empty line of the document.
func extractTitle(pages []string) string {
	for _, page := range pages {
		for _, line := range strings.Split(page, "\n") {
			line = strings.TrimSpace(line)
			if line == "" {
				continue
			}
			if len([]rune(line)) > 80 {
				return ""
			}
			return line
		}
	}
	return ""
}

// CheckAvailable returns nil if pdftotext is in PATH.
func CheckAvailable() error {
	if _, err := exec.LookPath(ToolName); err != nil {
		return ErrPDFToolNotFound
	}
	return nil
}

// InstallInstructions returns platform-specific instructions for pdftotext.
func InstallInstructions() string {
	switch runtime.GOOS {
	case "darwin":
		return "pdftotext gives the best PDF extraction. Install with: brew install poppler"
	case "windows":
		return "pdftotext gives the best PDF extraction. Install poppler from https://github.com/oschwartz10612/poppler-windows"
	default:
		return "pdftotext gives the best PDF extraction. Install with: apt install poppler-utils (Debian/Ubuntu) or dnf install poppler-utils (Fedora)"
	}
}
