// Package docx extracts text from Word (.docx) documents.
package docx

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/xml"
	"errors"
	"io"
	"strings"

	"github.com/custodia-labs/policycite/internal/core/domain"
	"github.com/custodia-labs/policycite/internal/core/ports/driven"
)

// Ensure Extractor implements the interface.
var _ driven.DocumentExtractor = (*Extractor)(nil)

const (
	documentPart = "word/document.xml"
	corePart     = "docProps/core.xml"
)

var zipSignature = []byte("PK\x03\x04")

// Extractor handles DOCX documents.
type Extractor struct{}

// New creates a new DOCX extractor.
func New() *Extractor {
	return &Extractor{}
}

// Format returns domain.FormatDOCX.
func (e *Extractor) Format() domain.Format {
	return domain.FormatDOCX
}

// Detect reports whether content is a ZIP archive holding a Word body part.
func (e *Extractor) Detect(content []byte) bool {
	if !bytes.HasPrefix(content, zipSignature) {
		return false
	}
	reader, err := zip.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return false
	}
	return findFile(reader, documentPart) != nil
}

// Extract returns the document text. Explicit page breaks split pages;
// without any the document is a single unpaginated page.
func (e *Extractor) Extract(ctx context.Context, path string, content []byte) (*domain.Extraction, error) {
	reader, err := zip.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return nil, domain.NewExtractionError(path, domain.FormatDOCX, domain.ReasonCorrupt, err)
	}

	body := findFile(reader, documentPart)
	if body == nil {
		return nil, domain.NewExtractionError(path, domain.FormatDOCX, domain.ReasonCorrupt,
			errors.New("missing "+documentPart))
	}

	rc, err := body.Open()
	if err != nil {
		return nil, domain.NewExtractionError(path, domain.FormatDOCX, domain.ReasonCorrupt, err)
	}
	defer rc.Close()

	pages, err := walkDocument(ctx, rc)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, domain.NewExtractionError(path, domain.FormatDOCX, domain.ReasonCorrupt, err)
	}

	return &domain.Extraction{
		Format:    domain.FormatDOCX,
		Title:     extractTitle(reader),
		Pages:     pages,
		Paginated: len(pages) > 1,
	}, nil
}

// walkDocument streams word/document.xml and collects text per page.
// Paragraphs end with a newline, table cells are tab separated and rows end
// with a newline.
func walkDocument(ctx context.Context, r io.Reader) ([]string, error) {
	decoder := xml.NewDecoder(r)

	var (
		pages  []string
		page   strings.Builder
		inText bool
		count  int
	)

	for {
		tok, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}

		// Large bodies are checked for cancellation periodically
		count++
		if count%4096 == 0 && ctx.Err() != nil {
			return nil, ctx.Err()
		}

		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "t":
				inText = true
			case "tab":
				page.WriteString("\t")
			case "br", "cr":
				if attr(t, "type") == "page" {
					pages = append(pages, page.String())
					page.Reset()
				} else {
					page.WriteString("\n")
				}
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "t":
				inText = false
			case "p", "tr":
				page.WriteString("\n")
			case "tc":
				page.WriteString("\t")
			}
		case xml.CharData:
			if inText {
				page.Write(t)
			}
		}
	}

	return append(pages, page.String()), nil
}

func attr(el xml.StartElement, local string) string {
	for _, a := range el.Attr {
		if a.Name.Local == local {
			return a.Value
		}
	}
	return ""
}

// coreXML represents the structure of docProps/core.xml.
type coreXML struct {
	Title string `xml:"title"`
}

// extractTitle reads the title from docProps/core.xml.
// Returns empty string when the document has none.
func extractTitle(reader *zip.Reader) string {
	file := findFile(reader, corePart)
	if file == nil {
		return ""
	}

	rc, err := file.Open()
	if err != nil {
		return ""
	}
	defer rc.Close()

	content, err := io.ReadAll(rc)
	if err != nil {
		return ""
	}

	var core coreXML
	if err := xml.Unmarshal(content, &core); err != nil {
		return ""
	}
	return strings.TrimSpace(core.Title)
}

func findFile(reader *zip.Reader, name string) *zip.File {
	for _, file := range reader.File {
		if file.Name == name {
			return file
		}
	}
	return nil
}
