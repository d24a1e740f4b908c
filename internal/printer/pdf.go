package printer

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-pdf/fpdf"
)

const (
	mmPerDot   = 25.4 / 203 // 203 dpi thermal head
	lineHeight = 3.6
	pdfMargin  = 3.0
)

type PDFPrinter struct {
	dir string
	now func() time.Time
}

func NewPDFPrinter(dir string) *PDFPrinter {
	return &PDFPrinter{dir: dir, now: time.Now}
}

// Print writes the document as a receipt-sized PDF in the output directory.
func (p *PDFPrinter) Print(ctx context.Context, doc string, pageWidth int) error {
	_, err := p.Render(ctx, doc, pageWidth)
	return err
}

// Render is Print that also returns the written file path.
func (p *PDFPrinter) Render(ctx context.Context, doc string, pageWidth int) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if err := os.MkdirAll(p.dir, 0o755); err != nil {
		return "", fmt.Errorf("pdf: create output dir: %w", err)
	}
	if pageWidth <= 0 {
		pageWidth = 576
	}

	lines := strings.Split(strings.TrimRight(doc, "\n"), "\n")
	widthMM := float64(pageWidth)*mmPerDot + 2*pdfMargin
	heightMM := float64(len(lines))*lineHeight + 2*pdfMargin + 4

	pdf := fpdf.NewCustom(&fpdf.InitType{
		OrientationStr: "P",
		UnitStr:        "mm",
		Size:           fpdf.SizeType{Wd: widthMM, Ht: heightMM},
	})
	pdf.SetMargins(pdfMargin, pdfMargin, pdfMargin)
	pdf.SetAutoPageBreak(false, 0)
	pdf.AddPage()

	cols := pageWidth / 12
	if cols < 1 {
		cols = 1
	}
	contentW := widthMM - 2*pdfMargin
	// Courier glyphs are 0.6em wide; size the font so cols characters fill the line.
	fontPt := contentW / float64(cols) / 0.6 * 72 / 25.4
	pdf.SetFont("Courier", "", fontPt)
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	for _, line := range lines {
		pdf.CellFormat(contentW, lineHeight, tr(line), "", 1, "L", false, 0, "")
	}

	path := filepath.Join(p.dir, fmt.Sprintf("receipt_%s.pdf", p.now().Format("20060102_150405.000")))
	if err := pdf.OutputFileAndClose(path); err != nil {
		return "", fmt.Errorf("pdf: write %s: %w", path, err)
	}
	return path, nil
}
