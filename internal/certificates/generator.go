package certificates

import (
	"bytes"
	"context"
	"fmt"

	"github.com/jung-kurt/gofpdf"
	"go.uber.org/zap"

	"github.com/LeHuyTuong/Carbon-Credit-Marketplace-sub000/internal/accounts"
	"github.com/LeHuyTuong/Carbon-Credit-Marketplace-sub000/internal/credits"
	"github.com/LeHuyTuong/Carbon-Credit-Marketplace-sub000/internal/projects"
	"github.com/LeHuyTuong/Carbon-Credit-Marketplace-sub000/pkg/storage"
)

// Generator renders issuance certificates and stores them as artifacts
type Generator struct {
	s3     storage.S3Client
	bucket string
	logger *zap.Logger
}

// NewGenerator creates a new certificate generator
func NewGenerator(s3 storage.S3Client, bucket string, logger *zap.Logger) *Generator {
	return &Generator{
		s3:     s3,
		bucket: bucket,
		logger: logger,
	}
}

// GenerateBatchCertificate renders the certificate PDF for a batch, uploads
// it and returns the object key.
func (g *Generator) GenerateBatchCertificate(ctx context.Context, batch *credits.CreditBatch, company *accounts.Company, project *projects.Project) (string, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(20, 25, 20)
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 22)
	pdf.SetTextColor(34, 102, 68)
	pdf.CellFormat(0, 14, "Certificate of Carbon Credit Issuance", "", 1, "C", false, 0, "")
	pdf.Ln(6)

	pdf.SetFont("Arial", "", 12)
	pdf.SetTextColor(0, 0, 0)
	pdf.MultiCell(0, 7, fmt.Sprintf(
		"This certifies that %s has been issued %d carbon credit units under project %s.",
		company.Name, batch.UnitCount, project.Name), "", "C", false)
	pdf.Ln(8)

	rows := [][2]string{
		{"Batch code", batch.BatchCode},
		{"Vintage year", fmt.Sprintf("%d", batch.VintageYear)},
		{"Serial range", fmt.Sprintf("%06d - %06d", batch.SerialFrom, batch.SerialTo)},
		{"Verified quantity", batch.TotalQuantity.String() + " kg CO2e"},
		{"Issued at", batch.IssuedAt.Format("2006-01-02 15:04 MST")},
	}
	pdf.SetFont("Arial", "", 11)
	for _, row := range rows {
		pdf.SetFont("Arial", "B", 11)
		pdf.CellFormat(60, 8, row[0], "1", 0, "L", false, 0, "")
		pdf.SetFont("Arial", "", 11)
		pdf.CellFormat(0, 8, row[1], "1", 1, "L", false, 0, "")
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return "", fmt.Errorf("failed to render certificate: %w", err)
	}

	key := fmt.Sprintf("certificates/%d/%s.pdf", batch.VintageYear, batch.BatchCode)
	if err := g.s3.Upload(ctx, g.bucket, key, &buf); err != nil {
		return "", err
	}

	g.logger.Info("batch certificate stored",
		zap.Int64("batch_id", batch.ID),
		zap.String("key", key))
	return key, nil
}
