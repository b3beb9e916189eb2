package credits

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/LeHuyTuong/Carbon-Credit-Marketplace-sub000/internal/accounts"
	"github.com/LeHuyTuong/Carbon-Credit-Marketplace-sub000/internal/auth"
	"github.com/LeHuyTuong/Carbon-Credit-Marketplace-sub000/internal/projects"
	"github.com/LeHuyTuong/Carbon-Credit-Marketplace-sub000/internal/reports"
	"github.com/LeHuyTuong/Carbon-Credit-Marketplace-sub000/pkg/async"
)

// CertificateGenerator renders and stores the issuance certificate artifact
type CertificateGenerator interface {
	GenerateBatchCertificate(ctx context.Context, batch *CreditBatch, company *accounts.Company, project *projects.Project) (string, error)
}

// Notifier delivers best-effort issuance notifications
type Notifier interface {
	NotifyCreditsIssued(ctx context.Context, company *accounts.Company, batch *CreditBatch) error
}

// Issuer orchestrates credit issuance: precondition checks, unit conversion,
// serial allocation, atomic materialization, then post-commit side effects.
type Issuer struct {
	reports  reports.Repository
	repo     Repository
	accounts accounts.Repository
	projects projects.Repository
	formula  *Formula
	pool     *async.Pool
	certs    CertificateGenerator
	notifier Notifier
	logger   *zap.Logger
}

// NewIssuer creates a new credit issuer
func NewIssuer(
	reportRepo reports.Repository,
	creditRepo Repository,
	accountRepo accounts.Repository,
	projectRepo projects.Repository,
	formula *Formula,
	pool *async.Pool,
	certs CertificateGenerator,
	notifier Notifier,
	logger *zap.Logger,
) *Issuer {
	return &Issuer{
		reports:  reportRepo,
		repo:     creditRepo,
		accounts: accountRepo,
		projects: projectRepo,
		formula:  formula,
		pool:     pool,
		certs:    certs,
		notifier: notifier,
		logger:   logger,
	}
}

// IssueForReport converts an admin-approved emission report into a uniquely
// numbered batch of credit units. Preconditions are checked in order, each
// with its own failure; the batch, its credits and the report status change
// commit as one unit. Side effects run after commit and never roll it back.
func (s *Issuer) IssueForReport(ctx context.Context, reportID int64, actor auth.Identity) (*BatchSummary, error) {
	report, err := s.reports.GetByID(ctx, reportID)
	if err != nil {
		return nil, err
	}
	if report == nil {
		return nil, ErrReportNotFound
	}
	if report.Status != reports.StatusAdminApproved {
		return nil, ErrReportNotApproved
	}

	existing, err := s.repo.GetBatchByReportID(ctx, reportID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrAlreadyIssued
	}

	result, err := s.formula.Compute(report.TotalCo2Kg)
	if err != nil {
		return nil, err
	}

	company, err := s.accounts.GetCompany(ctx, report.CompanyID)
	if err != nil {
		return nil, err
	}
	if company == nil {
		return nil, fmt.Errorf("company %d not found for report %d", report.CompanyID, reportID)
	}
	project, err := s.projects.GetByID(ctx, report.ProjectID)
	if err != nil {
		return nil, err
	}
	if project == nil {
		return nil, fmt.Errorf("project %d not found for report %d", report.ProjectID, reportID)
	}

	batch, err := s.repo.CreateIssuance(ctx, IssuanceSpec{
		ReportID:      report.ID,
		CompanyID:     company.ID,
		ProjectID:     project.ID,
		CompanyCode:   CompanyCode(company.Name, company.ID),
		ProjectCode:   ProjectCode(project.Name, project.ID),
		VintageYear:   vintageYear(report.Period),
		UnitCount:     result.UnitCount,
		TotalQuantity: result.TotalQuantity,
		Residual:      result.Residual,
		IssuedBy:      actor.UserID,
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("credit batch issued",
		zap.Int64("report_id", report.ID),
		zap.Int64("batch_id", batch.ID),
		zap.String("batch_code", batch.BatchCode),
		zap.Int64("unit_count", batch.UnitCount),
		zap.Int64("issued_by", actor.UserID))

	s.submitSideEffects(batch, company, project)

	return &BatchSummary{
		BatchID:    batch.ID,
		BatchCode:  batch.BatchCode,
		UnitCount:  batch.UnitCount,
		SerialFrom: batch.SerialFrom,
		SerialTo:   batch.SerialTo,
	}, nil
}

// submitSideEffects queues certificate generation and notification delivery
// on the background pool. Failures are logged by the pool and swallowed.
func (s *Issuer) submitSideEffects(batch *CreditBatch, company *accounts.Company, project *projects.Project) {
	if s.certs != nil {
		s.pool.Submit(async.Task{
			Name: fmt.Sprintf("batch-certificate-%d", batch.ID),
			Run: func(ctx context.Context) error {
				key, err := s.certs.GenerateBatchCertificate(ctx, batch, company, project)
				if err != nil {
					return err
				}
				return s.repo.SetCertificateKey(ctx, batch.ID, key)
			},
		})
	}
	if s.notifier != nil {
		s.pool.Submit(async.Task{
			Name: fmt.Sprintf("batch-notification-%d", batch.ID),
			Run: func(ctx context.Context) error {
				return s.notifier.NotifyCreditsIssued(ctx, company, batch)
			},
		})
	}
}

// GetBatch retrieves a batch by id
func (s *Issuer) GetBatch(ctx context.Context, id int64) (*CreditBatch, error) {
	return s.repo.GetBatchByID(ctx, id)
}

// ListBatches pages through issued batches
func (s *Issuer) ListBatches(ctx context.Context, filter BatchFilter) ([]*CreditBatch, int64, error) {
	normalizePage(&filter.Page, &filter.PageSize)
	return s.repo.ListBatches(ctx, filter)
}

// GetCredit retrieves a minted credit by id
func (s *Issuer) GetCredit(ctx context.Context, id int64) (*CarbonCredit, error) {
	return s.repo.GetCreditByID(ctx, id)
}

// ListCredits pages through minted credits
func (s *Issuer) ListCredits(ctx context.Context, filter CreditFilter) ([]*CarbonCredit, int64, error) {
	normalizePage(&filter.Page, &filter.PageSize)
	return s.repo.ListCredits(ctx, filter)
}

func normalizePage(page, pageSize *int) {
	if *page < 1 {
		*page = 1
	}
	if *pageSize < 1 || *pageSize > 100 {
		*pageSize = 20
	}
}

// vintageYear derives the vintage from a report period such as "2025-Q1" or
// "2025-03". Falls back to the current year for unparseable periods.
func vintageYear(period string) int {
	if len(period) >= 4 {
		if year, err := strconv.Atoi(period[:4]); err == nil && year > 2000 {
			return year
		}
	}
	return time.Now().Year()
}
