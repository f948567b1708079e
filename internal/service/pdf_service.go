package service

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"flow-platform/internal/models"
	"flow-platform/internal/transport"
	"flow-platform/internal/util"

	"github.com/go-pdf/fpdf"
	"go.uber.org/zap"
)

// PDFService renders checkout invoices. Company details come from the auth
// service; when that lookup fails the invoice falls back to placeholders
// rather than failing the generation.
type PDFService struct {
	bus       Requester
	outputDir string
	logger    *zap.Logger
}

// NewPDFService creates the documents service and ensures the output
// directory exists.
func NewPDFService(bus Requester, outputDir string) (*PDFService, error) {
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create invoice directory: %w", err)
	}
	return &PDFService{
		bus:       bus,
		outputDir: outputDir,
		logger:    util.NamedLogger("documents"),
	}, nil
}

// CheckoutPDF renders the invoice for a confirmed checkout and returns where
// it was written.
func (s *PDFService) CheckoutPDF(ctx context.Context, ev *models.CheckoutPaymentEvent) (*DocumentReply, error) {
	ctx, span := util.StartSpan(ctx, "PDFService.CheckoutPDF")
	defer span.End()

	companyName := "Company"
	email := "N/A"
	var profile AccountProfileReply
	if err := s.bus.Request(ctx, models.PatternAccountProfile, &GetUserRequest{AccountID: ev.CompanyID}, &profile); err != nil {
		s.logger.Warn("Company lookup failed, using placeholders",
			zap.Int64("company_id", ev.CompanyID),
			zap.Error(err))
	} else {
		if profile.Query.CompanyName != "" {
			companyName = profile.Query.CompanyName
		}
		if profile.Query.Email != "" {
			email = profile.Query.Email
		}
	}

	fileName := fmt.Sprintf("invoice-%d-%d.pdf", ev.OrderID, time.Now().Unix())
	filePath := filepath.Join(s.outputDir, fileName)

	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 16)
	pdf.CellFormat(0, 10, companyName, "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 10)
	pdf.CellFormat(0, 6, fmt.Sprintf("ID: %d", ev.CompanyID), "", 1, "L", false, 0, "")
	pdf.CellFormat(0, 6, fmt.Sprintf("Email: %s", email), "", 1, "L", false, 0, "")
	pdf.Ln(6)

	pdf.SetFont("Helvetica", "B", 13)
	pdf.CellFormat(0, 8, fmt.Sprintf("Purchase invoice - order #%d", ev.OrderID), "", 1, "L", false, 0, "")
	pdf.Ln(2)

	pdf.SetFont("Helvetica", "B", 10)
	pdf.CellFormat(60, 8, "Order", "1", 0, "L", false, 0, "")
	pdf.CellFormat(30, 8, "Quantity", "1", 0, "R", false, 0, "")
	pdf.CellFormat(40, 8, "Status", "1", 0, "L", false, 0, "")
	pdf.CellFormat(40, 8, "Date", "1", 1, "L", false, 0, "")

	pdf.SetFont("Helvetica", "", 10)
	pdf.CellFormat(60, 8, fmt.Sprintf("#%d", ev.OrderID), "1", 0, "L", false, 0, "")
	pdf.CellFormat(30, 8, fmt.Sprintf("%d", ev.Quantity), "1", 0, "R", false, 0, "")
	pdf.CellFormat(40, 8, ev.Status, "1", 0, "L", false, 0, "")
	pdf.CellFormat(40, 8, ev.Date.Format("2006-01-02"), "1", 1, "L", false, 0, "")

	pdf.SetFont("Helvetica", "B", 10)
	pdf.CellFormat(130, 8, "Total", "1", 0, "R", false, 0, "")
	pdf.CellFormat(40, 8, ev.OrderItemPrice, "1", 1, "R", false, 0, "")

	if err := pdf.OutputFileAndClose(filePath); err != nil {
		return nil, fmt.Errorf("failed to write invoice: %w", err)
	}

	util.DocumentsGeneratedTotal.Inc()
	s.logger.Info("Invoice rendered",
		zap.Int64("order_id", ev.OrderID),
		zap.String("file", fileName))

	return &DocumentReply{FilePath: filePath, FileName: fileName}, nil
}

// Mount registers the documents pattern on a responder.
func (s *PDFService) Mount(r *transport.Responder) {
	r.Handle(models.PatternCheckoutPDF, func(ctx context.Context, payload []byte) (interface{}, error) {
		var ev models.CheckoutPaymentEvent
		if err := transport.DecodeJSON(payload, &ev); err != nil {
			return nil, err
		}
		return s.CheckoutPDF(ctx, &ev)
	})
}
