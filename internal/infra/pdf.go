package infra

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"aquafarm/internal/model"

	"github.com/go-pdf/fpdf"
)

// PDFReportGenerator renders harvest summaries to PDF files under a storage
// directory.
type PDFReportGenerator struct {
	storagePath string
}

func NewPDFReportGenerator(storagePath string) *PDFReportGenerator {
	return &PDFReportGenerator{storagePath: storagePath}
}

// HarvestReport renders the one-page harvest summary and returns the file path.
func (g *PDFReportGenerator) HarvestReport(h *model.HarvestRecord, c *model.CultureCycle, f *model.Farm) (string, error) {
	if err := os.MkdirAll(g.storagePath, 0o755); err != nil {
		return "", fmt.Errorf("creating report directory: %w", err)
	}

	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetTitle("Harvest Report", false)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 18)
	pdf.Cell(0, 12, "Harvest Report")
	pdf.Ln(14)

	pdf.SetFont("Helvetica", "", 11)
	pdf.Cell(0, 8, fmt.Sprintf("Farm: %s", f.Name))
	pdf.Ln(8)
	pdf.Cell(0, 8, fmt.Sprintf("Harvested: %s", h.HarvestedAt.Format("2006-01-02")))
	pdf.Ln(8)
	pdf.Cell(0, 8, fmt.Sprintf("Days of culture: %d", c.DOC(h.HarvestedAt)))
	pdf.Ln(12)

	rows := [][2]string{
		{"Biomass (kg)", h.BiomassKg.StringFixed(2)},
		{"Price per kg", h.PricePerKg.StringFixed(2)},
		{"Revenue", h.Revenue.StringFixed(2)},
		{"Survival (%)", h.SurvivalPct.StringFixed(2)},
		{"Post-larvae stocked", fmt.Sprintf("%d", c.PostLarvaeCount)},
	}
	pdf.SetFont("Helvetica", "B", 11)
	pdf.CellFormat(70, 8, "Metric", "1", 0, "L", false, 0, "")
	pdf.CellFormat(60, 8, "Value", "1", 1, "R", false, 0, "")
	pdf.SetFont("Helvetica", "", 11)
	for _, row := range rows {
		pdf.CellFormat(70, 8, row[0], "1", 0, "L", false, 0, "")
		pdf.CellFormat(60, 8, row[1], "1", 1, "R", false, 0, "")
	}

	if h.Notes != "" {
		pdf.Ln(6)
		pdf.SetFont("Helvetica", "I", 10)
		pdf.MultiCell(0, 6, "Notes: "+h.Notes, "", "L", false)
	}

	pdf.Ln(8)
	pdf.SetFont("Helvetica", "", 8)
	pdf.Cell(0, 6, fmt.Sprintf("Generated %s", time.Now().Format(time.RFC3339)))

	name := fmt.Sprintf("harvest_%s_%s.pdf", h.ID.String(), h.HarvestedAt.Format("20060102"))
	path := filepath.Join(g.storagePath, name)
	if err := pdf.OutputFileAndClose(path); err != nil {
		return "", fmt.Errorf("writing pdf: %w", err)
	}
	return path, nil
}
