package distribution

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"github.com/LeHuyTuong/Carbon-Credit-Marketplace-sub000/internal/accounts"
	"github.com/LeHuyTuong/Carbon-Credit-Marketplace-sub000/internal/ledger"
	"github.com/LeHuyTuong/Carbon-Credit-Marketplace-sub000/internal/reports"
	"github.com/LeHuyTuong/Carbon-Credit-Marketplace-sub000/internal/vehicles"
)

// Notifier delivers best-effort payout notifications
type Notifier interface {
	NotifyPayoutSent(ctx context.Context, owner *accounts.User, amount string) error
}

const transferReason = "profit-sharing"

// ErrInvalidTotal rejects rounds with a non-positive pool.
var ErrInvalidTotal = errors.New("distribution total must be positive")

// ErrNoEligibleReports rejects rounds with nothing to pay out against.
var ErrNoEligibleReports = errors.New("no approved reports eligible for payout")

// Ledger is the slice of the wallet service the coordinator needs. Every
// payout task resolves both wallets fresh through it; no wallet snapshot
// crosses into the concurrent region.
type Ledger interface {
	ResolveWallet(ctx context.Context, ownerType ledger.OwnerType, ownerID int64) (*ledger.Wallet, error)
	Transfer(ctx context.Context, sourceID, destID int64, amount decimal.Decimal, reason string) (*ledger.TransferResult, error)
}

// Coordinator fans a company's payout pool out to contributing vehicle
// owners as independent ledger transfers.
type Coordinator struct {
	repo     Repository
	reports  reports.Repository
	vehicles vehicles.Resolver
	ledger   Ledger
	accounts accounts.Repository
	notifier Notifier
	logger   *zap.Logger

	workers       int
	payoutTimeout time.Duration

	// rounds tracks in-flight background rounds for graceful shutdown.
	rounds sync.WaitGroup
}

// NewCoordinator creates a new distribution coordinator. accountRepo and
// notifier may be nil; payout notifications are then skipped.
func NewCoordinator(
	repo Repository,
	reportRepo reports.Repository,
	resolver vehicles.Resolver,
	ledgerSvc Ledger,
	accountRepo accounts.Repository,
	notifier Notifier,
	workers int,
	payoutTimeout time.Duration,
	logger *zap.Logger,
) *Coordinator {
	if workers < 1 {
		workers = 1
	}
	return &Coordinator{
		repo:          repo,
		reports:       reportRepo,
		vehicles:      resolver,
		ledger:        ledgerSvc,
		accounts:      accountRepo,
		notifier:      notifier,
		workers:       workers,
		payoutTimeout: payoutTimeout,
		logger:        logger,
	}
}

// ShareCompanyProfit accepts a payout round and runs it asynchronously. The
// returned record is immediately visible in "processing" status; completion
// is observed by polling it.
func (c *Coordinator) ShareCompanyProfit(ctx context.Context, req ShareRequest) (*ProfitDistribution, error) {
	if !req.TotalAmount.IsPositive() {
		return nil, ErrInvalidTotal
	}
	if req.Formula == "" {
		req.Formula = FormulaEnergy
	}

	dist := &ProfitDistribution{
		CompanyID:   req.CompanyID,
		InitiatedBy: req.InitiatedBy,
		ReportID:    req.ReportID,
		TotalAmount: req.TotalAmount,
		Formula:     req.Formula,
		Status:      StatusProcessing,
		Description: req.Description,
	}
	if err := c.repo.Create(ctx, dist); err != nil {
		return nil, err
	}

	c.rounds.Add(1)
	go func() {
		defer c.rounds.Done()
		// The round outlives the request that accepted it.
		c.runRound(context.Background(), dist, req)
	}()

	return dist, nil
}

// Wait blocks until all in-flight rounds have finished. Used on shutdown.
func (c *Coordinator) Wait() {
	c.rounds.Wait()
}

// runRound executes one distribution round. Any failure before task dispatch
// marks the round failed and leaves every report untouched, so a failed
// round is safely re-runnable. Per-task failures after dispatch are recorded
// as detail rows and never fail the round.
func (c *Coordinator) runRound(ctx context.Context, dist *ProfitDistribution, req ShareRequest) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("distribution round panicked",
				zap.Int64("distribution_id", dist.ID),
				zap.Any("panic", r))
			c.failRound(ctx, dist.ID, fmt.Sprintf("internal error: %v", r))
		}
	}()

	eligible, err := c.resolveReports(ctx, req)
	if err != nil {
		c.failRound(ctx, dist.ID, err.Error())
		return
	}

	contributions, metrics, err := c.aggregateContributions(ctx, eligible, req.Formula)
	if err != nil {
		c.failRound(ctx, dist.ID, err.Error())
		return
	}

	shares := computePayouts(req.TotalAmount, contributions)
	if len(shares) == 0 {
		// Every contributing vehicle is unregistered: the company keeps the
		// pool and the round completes with zero transfers.
		c.logger.Info("distribution round has no registered contributors",
			zap.Int64("distribution_id", dist.ID))
		c.finishRound(ctx, dist.ID, eligible)
		return
	}

	c.dispatchPayouts(ctx, dist, shares, metrics)
	c.finishRound(ctx, dist.ID, eligible)
}

// resolveReports loads the payout scope: one specific report or every
// approved report of the company.
func (c *Coordinator) resolveReports(ctx context.Context, req ShareRequest) ([]*reports.EmissionReport, error) {
	if req.ReportID != nil {
		report, err := c.reports.GetByID(ctx, *req.ReportID)
		if err != nil {
			return nil, err
		}
		if report == nil || report.CompanyID != req.CompanyID {
			return nil, ErrNoEligibleReports
		}
		if report.Status != reports.StatusApproved {
			return nil, fmt.Errorf("report %d is %s, expected %s",
				report.ID, report.Status, reports.StatusApproved)
		}
		return []*reports.EmissionReport{report}, nil
	}

	eligible, err := c.reports.ListByCompanyAndStatus(ctx, req.CompanyID, reports.StatusApproved)
	if err != nil {
		return nil, err
	}
	if len(eligible) == 0 {
		return nil, ErrNoEligibleReports
	}
	return eligible, nil
}

// aggregateContributions sums each registered owner's metric across the
// eligible reports. Contributions of unregistered vehicles are left out and
// implicitly stay with the company.
func (c *Coordinator) aggregateContributions(ctx context.Context, eligible []*reports.EmissionReport, formula ShareFormula) (map[int64]decimal.Decimal, map[int64]decimal.Decimal, error) {
	var all []*reports.VehicleContribution
	plateSet := make(map[string]struct{})
	for _, report := range eligible {
		rows, err := c.reports.ListContributions(ctx, report.ID)
		if err != nil {
			return nil, nil, err
		}
		for _, row := range rows {
			all = append(all, row)
			plateSet[row.Plate] = struct{}{}
		}
	}

	plates := make([]string, 0, len(plateSet))
	for plate := range plateSet {
		plates = append(plates, plate)
	}
	owners, err := c.vehicles.ResolveOwners(ctx, plates)
	if err != nil {
		return nil, nil, err
	}

	contributions := make(map[int64]decimal.Decimal)
	energy := make(map[int64]decimal.Decimal)
	for _, row := range all {
		ownerID, registered := owners[row.Plate]
		if !registered {
			continue
		}
		metric := row.EnergyKwh
		if formula == FormulaCredits {
			metric = row.Co2Kg
		}
		contributions[ownerID] = contributions[ownerID].Add(metric)
		energy[ownerID] = energy[ownerID].Add(row.EnergyKwh)
	}
	return contributions, energy, nil
}

// dispatchPayouts runs one task per owner over a bounded pool and joins.
// Each task is isolated: its failure is captured in a detail row and must
// never cancel or fail sibling payouts.
func (c *Coordinator) dispatchPayouts(ctx context.Context, dist *ProfitDistribution, shares []ownerShare, energy map[int64]decimal.Decimal) {
	sem := semaphore.NewWeighted(int64(c.workers))
	var wg sync.WaitGroup

	for _, share := range shares {
		share := share
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := sem.Acquire(ctx, 1); err != nil {
				c.recordDetail(ctx, dist, share, energy[share.OwnerID], err)
				return
			}
			defer sem.Release(1)

			err := c.payOwner(ctx, dist, share)
			c.recordDetail(ctx, dist, share, energy[share.OwnerID], err)
		}()
	}
	wg.Wait()
}

// payOwner executes a single transfer inside its own timeout. Both wallets
// are read fresh here, after dispatch, so no task acts on a stale snapshot.
func (c *Coordinator) payOwner(ctx context.Context, dist *ProfitDistribution, share ownerShare) error {
	taskCtx := ctx
	if c.payoutTimeout > 0 {
		var cancel context.CancelFunc
		taskCtx, cancel = context.WithTimeout(ctx, c.payoutTimeout)
		defer cancel()
	}

	companyWallet, err := c.ledger.ResolveWallet(taskCtx, ledger.OwnerTypeCompany, dist.CompanyID)
	if err != nil {
		return fmt.Errorf("company wallet: %w", err)
	}
	ownerWallet, err := c.ledger.ResolveWallet(taskCtx, ledger.OwnerTypeUser, share.OwnerID)
	if err != nil {
		return fmt.Errorf("owner wallet: %w", err)
	}

	_, err = c.ledger.Transfer(taskCtx, companyWallet.ID, ownerWallet.ID, share.Payout, transferReason)
	return err
}

// recordDetail writes the append-only outcome row for one owner.
func (c *Coordinator) recordDetail(ctx context.Context, dist *ProfitDistribution, share ownerShare, energy decimal.Decimal, payErr error) {
	detail := &ProfitDistributionDetail{
		DistributionID: dist.ID,
		OwnerID:        share.OwnerID,
		AmountMoney:    share.Payout,
		AmountEnergy:   energy,
		Status:         DetailSuccess,
	}
	if payErr != nil {
		detail.Status = DetailFailed
		detail.ErrorMessage = payErr.Error()
		c.logger.Warn("payout failed",
			zap.Int64("distribution_id", dist.ID),
			zap.Int64("owner_id", share.OwnerID),
			zap.String("amount", share.Payout.String()),
			zap.Error(payErr))
	}
	if err := c.repo.CreateDetail(ctx, detail); err != nil {
		c.logger.Error("failed to record distribution detail",
			zap.Int64("distribution_id", dist.ID),
			zap.Int64("owner_id", share.OwnerID),
			zap.Error(err))
	}

	if payErr == nil {
		c.notifyOwner(ctx, share)
	}
}

// notifyOwner sends the best-effort payout notification for one successful
// transfer. Failures are logged and swallowed.
func (c *Coordinator) notifyOwner(ctx context.Context, share ownerShare) {
	if c.notifier == nil || c.accounts == nil {
		return
	}
	owner, err := c.accounts.GetUser(ctx, share.OwnerID)
	if err != nil || owner == nil {
		return
	}
	if err := c.notifier.NotifyPayoutSent(ctx, owner, share.Payout.String()); err != nil {
		c.logger.Warn("payout notification failed",
			zap.Int64("owner_id", share.OwnerID),
			zap.Error(err))
	}
}

// finishRound marks the processed reports paid-out and completes the round.
func (c *Coordinator) finishRound(ctx context.Context, distID int64, eligible []*reports.EmissionReport) {
	for _, report := range eligible {
		if err := c.reports.UpdateStatus(ctx, report.ID, reports.StatusPaidOut); err != nil {
			c.logger.Error("failed to mark report paid-out",
				zap.Int64("distribution_id", distID),
				zap.Int64("report_id", report.ID),
				zap.Error(err))
		}
	}
	if err := c.repo.MarkCompleted(ctx, distID); err != nil {
		c.logger.Error("failed to complete distribution",
			zap.Int64("distribution_id", distID),
			zap.Error(err))
		return
	}
	c.logger.Info("distribution round completed", zap.Int64("distribution_id", distID))
}

func (c *Coordinator) failRound(ctx context.Context, distID int64, reason string) {
	if err := c.repo.MarkFailed(ctx, distID, reason); err != nil {
		c.logger.Error("failed to mark distribution failed",
			zap.Int64("distribution_id", distID),
			zap.Error(err))
		return
	}
	c.logger.Warn("distribution round failed",
		zap.Int64("distribution_id", distID),
		zap.String("reason", reason))
}

// GetDistribution retrieves a round by id
func (c *Coordinator) GetDistribution(ctx context.Context, id int64) (*ProfitDistribution, error) {
	return c.repo.GetByID(ctx, id)
}

// ListDetails pages through a round's per-owner outcomes
func (c *Coordinator) ListDetails(ctx context.Context, id int64, page, pageSize int) ([]*ProfitDistributionDetail, int64, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}
	return c.repo.ListDetails(ctx, id, page, pageSize)
}

// ListAllDetails loads every outcome row of a round, for exports.
func (c *Coordinator) ListAllDetails(ctx context.Context, id int64) ([]*ProfitDistributionDetail, error) {
	const pageSize = 500
	var out []*ProfitDistributionDetail
	for page := 1; ; page++ {
		batch, total, err := c.repo.ListDetails(ctx, id, page, pageSize)
		if err != nil {
			return nil, err
		}
		out = append(out, batch...)
		if len(batch) < pageSize || int64(len(out)) >= total {
			return out, nil
		}
	}
}
