// Package export renders notes as downloadable documents.
package export

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/go-pdf/fpdf"

	"github.com/questlogger/questlogger/internal/models"
)

// Document is a rendered export ready to be sent as an attachment.
type Document struct {
	Content     []byte
	ContentType string
	Filename    string
}

const timeLayout = "2006-01-02 15:04:05"

// Render produces the note in the requested format. Unknown formats
// have already been normalized to text by the caller.
func Render(note models.Note, format models.ExportFormat) (Document, error) {
	base := strings.ReplaceAll(note.Title, " ", "_")

	switch format {
	case models.ExportMarkdown:
		return Document{
			Content:     []byte(asMarkdown(note)),
			ContentType: "text/markdown",
			Filename:    base + ".md",
		}, nil
	case models.ExportPDF:
		content, err := asPDF(note)
		if err != nil {
			return Document{}, err
		}
		return Document{
			Content:     content,
			ContentType: "application/pdf",
			Filename:    base + ".pdf",
		}, nil
	default:
		return Document{
			Content:     []byte(asText(note)),
			ContentType: "text/plain",
			Filename:    base + ".txt",
		}, nil
	}
}

func asText(note models.Note) string {
	divider := strings.Repeat("=", 40)
	rule := strings.Repeat("-", 40)

	var b strings.Builder
	fmt.Fprintf(&b, "Title: %s\n", note.Title)
	fmt.Fprintf(&b, "Created: %s\n", note.CreatedAt.Format(timeLayout))
	fmt.Fprintf(&b, "Updated: %s\n", note.UpdatedAt.Format(timeLayout))
	if note.Tags != "" {
		fmt.Fprintf(&b, "Tags: %s\n", note.Tags)
	}
	fmt.Fprintf(&b, "\n%s\n\n", divider)

	if note.AISummary != "" {
		fmt.Fprintf(&b, "SUMMARY\n%s\n%s\n\n%s\n\n", rule, note.AISummary, divider)
	}

	fmt.Fprintf(&b, "CONTENT\n%s\n%s", rule, note.Content)

	if note.ExtractedActionItems != "" {
		fmt.Fprintf(&b, "\n\n%s\n\nACTION ITEMS\n%s\n%s", divider, rule, note.ExtractedActionItems)
	}

	return b.String()
}

func asMarkdown(note models.Note) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n", note.Title)
	fmt.Fprintf(&b, "*Created: %s*\n", note.CreatedAt.Format(timeLayout))
	fmt.Fprintf(&b, "*Updated: %s*\n", note.UpdatedAt.Format(timeLayout))
	if note.Tags != "" {
		fmt.Fprintf(&b, "\n**Tags**: %s\n", note.Tags)
	}
	b.WriteString("\n---\n\n")

	if note.AISummary != "" {
		fmt.Fprintf(&b, "## Summary\n%s\n\n---\n\n", note.AISummary)
	}

	fmt.Fprintf(&b, "## Content\n%s", note.Content)

	if note.ExtractedActionItems != "" {
		fmt.Fprintf(&b, "\n\n---\n\n## Action Items\n%s", note.ExtractedActionItems)
	}

	return b.String()
}

func asPDF(note models.Note) ([]byte, error) {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetTitle(note.Title, true)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 18)
	pdf.MultiCell(0, 9, note.Title, "", "L", false)

	pdf.SetFont("Helvetica", "I", 9)
	pdf.CellFormat(0, 5, "Created: "+note.CreatedAt.Format(timeLayout), "", 1, "L", false, 0, "")
	pdf.CellFormat(0, 5, "Updated: "+note.UpdatedAt.Format(timeLayout), "", 1, "L", false, 0, "")
	if note.Tags != "" {
		pdf.CellFormat(0, 5, "Tags: "+note.Tags, "", 1, "L", false, 0, "")
	}
	pdf.Ln(4)

	writeSection := func(heading, body string) {
		pdf.SetFont("Helvetica", "B", 13)
		pdf.CellFormat(0, 7, heading, "", 1, "L", false, 0, "")
		pdf.SetFont("Helvetica", "", 11)
		pdf.MultiCell(0, 5.5, body, "", "L", false)
		pdf.Ln(3)
	}

	if note.AISummary != "" {
		writeSection("Summary", note.AISummary)
	}
	writeSection("Content", note.Content)
	if note.ExtractedActionItems != "" {
		writeSection("Action Items", note.ExtractedActionItems)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}

	return buf.Bytes(), nil
}
