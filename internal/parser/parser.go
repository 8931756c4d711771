package parser

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/nguyenthenguyen/docx"
	"github.com/tealeg/xlsx"
	"github.com/xuri/excelize/v2"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/text"
)

// ExtractError marks a document that could not be read or parsed. Callers
// skip the document and move on rather than abort the batch.
type ExtractError struct {
	Path string
	Err  error
}

func (e *ExtractError) Error() string {
	return fmt.Sprintf("extract %s: %v", e.Path, e.Err)
}

func (e *ExtractError) Unwrap() error { return e.Err }

// Supported reports whether the extension (with leading dot) can be extracted.
func Supported(ext string) bool {
	switch strings.ToLower(ext) {
	case ".pdf", ".docx", ".xlsx", ".ods", ".md", ".txt":
		return true
	}
	return false
}

// ExtractText reads a document and returns its plain text, pages or sheets
// concatenated in order, leading and trailing whitespace stripped.
func ExtractText(filePath string) (string, error) {
	var (
		content string
		err     error
	)
	switch ext := strings.ToLower(filepath.Ext(filePath)); ext {
	case ".pdf":
		content, err = extractPDF(filePath)
	case ".docx":
		content, err = extractDOCX(filePath)
	case ".xlsx":
		content, err = extractXLSX(filePath)
	case ".ods":
		content, err = extractODS(filePath)
	case ".md":
		content, err = extractMarkdown(filePath)
	case ".txt":
		content, err = extractPlain(filePath)
	default:
		err = fmt.Errorf("unsupported file format: %s", ext)
	}
	if err != nil {
		return "", &ExtractError{Path: filePath, Err: err}
	}
	return strings.TrimSpace(content), nil
}

func extractPDF(filePath string) (string, error) {
	f, err := os.Open(filePath)
	if err != nil {
		return "", err
	}
	defer f.Close()

	stat, err := f.Stat()
	if err != nil {
		return "", err
	}

	reader, err := pdf.NewReader(f, stat.Size())
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	numPages := reader.NumPage()
	for i := 1; i <= numPages; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		pageText, err := page.GetPlainText(nil)
		if err != nil {
			return "", fmt.Errorf("page %d: %w", i, err)
		}
		sb.WriteString(pageText)
		sb.WriteString("\n")
	}
	return sb.String(), nil
}

func extractDOCX(filePath string) (string, error) {
	r, err := docx.ReadDocxFile(filePath)
	if err != nil {
		return "", err
	}
	defer r.Close()

	doc := r.Editable()
	return doc.GetContent(), nil
}

func extractXLSX(filePath string) (string, error) {
	f, err := xlsx.OpenFile(filePath)
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	for _, sheet := range f.Sheets {
		sb.WriteString(sheet.Name + "\n")
		for _, row := range sheet.Rows {
			for _, cell := range row.Cells {
				sb.WriteString(cell.String() + "\t")
			}
			sb.WriteString("\n")
		}
	}
	return sb.String(), nil
}

func extractODS(filePath string) (string, error) {
	f, err := excelize.OpenFile(filePath)
	if err != nil {
		return "", err
	}
	defer f.Close()

	var sb strings.Builder
	for _, sheetName := range f.GetSheetList() {
		rows, err := f.GetRows(sheetName)
		if err != nil {
			continue
		}
		sb.WriteString(sheetName + "\n")
		for _, row := range rows {
			for _, cell := range row {
				sb.WriteString(cell + "\t")
			}
			sb.WriteString("\n")
		}
	}
	return sb.String(), nil
}

// extractMarkdown walks the goldmark AST and collects the text nodes, so
// formatting syntax never leaks into the chunks.
func extractMarkdown(filePath string) (string, error) {
	source, err := os.ReadFile(filePath)
	if err != nil {
		return "", err
	}

	md := goldmark.New(goldmark.WithExtensions(extension.GFM))
	doc := md.Parser().Parse(text.NewReader(source))

	var sb strings.Builder
	err = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			switch n.(type) {
			case *ast.Paragraph, *ast.Heading:
				sb.WriteString("\n")
			}
			return ast.WalkContinue, nil
		}
		if t, ok := n.(*ast.Text); ok {
			sb.Write(t.Segment.Value(source))
			sb.WriteString(" ")
		}
		return ast.WalkContinue, nil
	})
	if err != nil {
		return "", err
	}
	return sb.String(), nil
}

func extractPlain(filePath string) (string, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return "", err
	}
	return string(data), nil
}
