package distribution

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/LeHuyTuong/Carbon-Credit-Marketplace-sub000/internal/ledger"
	"github.com/LeHuyTuong/Carbon-Credit-Marketplace-sub000/internal/reports"
)

// fakeRoundRepo is an in-memory Repository. The coordinator hits it from
// multiple goroutines, so a mutex guards all state.
type fakeRoundRepo struct {
	mu      sync.Mutex
	nextID  int64
	rounds  map[int64]*ProfitDistribution
	details []*ProfitDistributionDetail
}

func newFakeRoundRepo() *fakeRoundRepo {
	return &fakeRoundRepo{rounds: make(map[int64]*ProfitDistribution)}
}

func (r *fakeRoundRepo) Create(_ context.Context, dist *ProfitDistribution) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	dist.ID = r.nextID
	dist.CreatedAt = time.Now()
	r.rounds[dist.ID] = dist
	return nil
}

func (r *fakeRoundRepo) GetByID(_ context.Context, id int64) (*ProfitDistribution, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	dist, ok := r.rounds[id]
	if !ok {
		return nil, nil
	}
	copied := *dist
	return &copied, nil
}

func (r *fakeRoundRepo) MarkCompleted(_ context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	dist, ok := r.rounds[id]
	if !ok || dist.Status != StatusProcessing {
		return nil
	}
	now := time.Now()
	dist.Status = StatusCompleted
	dist.CompletedAt = &now
	return nil
}

func (r *fakeRoundRepo) MarkFailed(_ context.Context, id int64, reason string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	dist, ok := r.rounds[id]
	if !ok || dist.Status != StatusProcessing {
		return nil
	}
	now := time.Now()
	dist.Status = StatusFailed
	dist.ErrorMessage = reason
	dist.CompletedAt = &now
	return nil
}

func (r *fakeRoundRepo) CreateDetail(_ context.Context, detail *ProfitDistributionDetail) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	detail.ID = int64(len(r.details) + 1)
	detail.CreatedAt = time.Now()
	r.details = append(r.details, detail)
	return nil
}

func (r *fakeRoundRepo) ListDetails(_ context.Context, distributionID int64, page, pageSize int) ([]*ProfitDistributionDetail, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var all []*ProfitDistributionDetail
	for _, d := range r.details {
		if d.DistributionID == distributionID {
			all = append(all, d)
		}
	}
	total := int64(len(all))
	start := (page - 1) * pageSize
	if start >= len(all) {
		return nil, total, nil
	}
	end := start + pageSize
	if end > len(all) {
		end = len(all)
	}
	return all[start:end], total, nil
}

func (r *fakeRoundRepo) ListStale(_ context.Context, olderThan time.Time) ([]*ProfitDistribution, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*ProfitDistribution
	for _, d := range r.rounds {
		if d.Status == StatusProcessing && d.CreatedAt.Before(olderThan) {
			out = append(out, d)
		}
	}
	return out, nil
}

func (r *fakeRoundRepo) detailsFor(distID int64) []*ProfitDistributionDetail {
	out, _, _ := r.ListDetails(context.Background(), distID, 1, 1000)
	return out
}

// fakeReportRepo is an in-memory reports.Repository.
type fakeReportRepo struct {
	mu            sync.Mutex
	reports       map[int64]*reports.EmissionReport
	contributions map[int64][]*reports.VehicleContribution
}

func newFakeReportRepo() *fakeReportRepo {
	return &fakeReportRepo{
		reports:       make(map[int64]*reports.EmissionReport),
		contributions: make(map[int64][]*reports.VehicleContribution),
	}
}

func (r *fakeReportRepo) GetByID(_ context.Context, id int64) (*reports.EmissionReport, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	report, ok := r.reports[id]
	if !ok {
		return nil, nil
	}
	copied := *report
	return &copied, nil
}

func (r *fakeReportRepo) ListByCompanyAndStatus(_ context.Context, companyID int64, status reports.ReportStatus) ([]*reports.EmissionReport, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*reports.EmissionReport
	for _, report := range r.reports {
		if report.CompanyID == companyID && report.Status == status {
			copied := *report
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (r *fakeReportRepo) UpdateStatus(_ context.Context, id int64, status reports.ReportStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if report, ok := r.reports[id]; ok {
		report.Status = status
	}
	return nil
}

func (r *fakeReportRepo) ListContributions(_ context.Context, reportID int64) ([]*reports.VehicleContribution, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.contributions[reportID], nil
}

func (r *fakeReportRepo) statusOf(id int64) reports.ReportStatus {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.reports[id].Status
}

// fakeResolver maps plates to owners from a fixed table.
type fakeResolver struct {
	owners map[string]int64
}

func (f *fakeResolver) ResolveOwners(_ context.Context, plates []string) (map[string]int64, error) {
	out := make(map[string]int64)
	for _, plate := range plates {
		if owner, ok := f.owners[plate]; ok {
			out[plate] = owner
		}
	}
	return out, nil
}

// fakeLedger keeps balances in memory and can be told to fail transfers into
// a given owner's wallet.
type fakeLedger struct {
	mu       sync.Mutex
	nextID   int64
	wallets  map[string]*ledger.Wallet
	byID     map[int64]*ledger.Wallet
	failInto map[int64]error
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{
		wallets:  make(map[string]*ledger.Wallet),
		byID:     make(map[int64]*ledger.Wallet),
		failInto: make(map[int64]error),
	}
}

func (f *fakeLedger) addWallet(ownerType ledger.OwnerType, ownerID int64, balance decimal.Decimal) *ledger.Wallet {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	w := &ledger.Wallet{ID: f.nextID, OwnerType: ownerType, OwnerID: ownerID, Balance: balance}
	f.wallets[fmt.Sprintf("%s/%d", ownerType, ownerID)] = w
	f.byID[w.ID] = w
	return w
}

func (f *fakeLedger) ResolveWallet(_ context.Context, ownerType ledger.OwnerType, ownerID int64) (*ledger.Wallet, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	w, ok := f.wallets[fmt.Sprintf("%s/%d", ownerType, ownerID)]
	if !ok {
		return nil, ledger.ErrWalletNotFound
	}
	copied := *w
	return &copied, nil
}

func (f *fakeLedger) Transfer(_ context.Context, sourceID, destID int64, amount decimal.Decimal, _ string) (*ledger.TransferResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err, ok := f.failInto[destID]; ok {
		return nil, err
	}
	source, ok := f.byID[sourceID]
	if !ok {
		return nil, ledger.ErrWalletNotFound
	}
	dest, ok := f.byID[destID]
	if !ok {
		return nil, ledger.ErrWalletNotFound
	}
	if source.Balance.LessThan(amount) {
		return nil, ledger.ErrInsufficientFunds
	}
	source.Balance = source.Balance.Sub(amount)
	dest.Balance = dest.Balance.Add(amount)
	return &ledger.TransferResult{}, nil
}

func (f *fakeLedger) balance(id int64) decimal.Decimal {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.byID[id].Balance
}

type coordinatorFixture struct {
	repo     *fakeRoundRepo
	reports  *fakeReportRepo
	resolver *fakeResolver
	ledger   *fakeLedger
	coord    *Coordinator
}

func newCoordinatorFixture() *coordinatorFixture {
	f := &coordinatorFixture{
		repo:     newFakeRoundRepo(),
		reports:  newFakeReportRepo(),
		resolver: &fakeResolver{owners: make(map[string]int64)},
		ledger:   newFakeLedger(),
	}
	f.coord = NewCoordinator(f.repo, f.reports, f.resolver, f.ledger,
		nil, nil, 4, time.Second, zap.NewNop())
	return f
}

// seedReport registers an approved report with contributions from the given
// plates. Energy is per plate; CO2 is energy doubled to tell the two metrics
// apart in formula tests.
func (f *coordinatorFixture) seedReport(id, companyID int64, energyByPlate map[string]int64) {
	report := &reports.EmissionReport{
		ID:        id,
		CompanyID: companyID,
		Period:    "2025-Q1",
		Status:    reports.StatusApproved,
	}
	f.reports.reports[id] = report
	for plate, kwh := range energyByPlate {
		f.reports.contributions[id] = append(f.reports.contributions[id], &reports.VehicleContribution{
			ReportID:  id,
			Plate:     plate,
			EnergyKwh: decimal.NewFromInt(kwh),
			Co2Kg:     decimal.NewFromInt(kwh * 2),
		})
	}
}

func (f *coordinatorFixture) run(t *testing.T, req ShareRequest) *ProfitDistribution {
	t.Helper()
	dist, err := f.coord.ShareCompanyProfit(context.Background(), req)
	require.NoError(t, err)
	require.Equal(t, StatusProcessing, dist.Status)
	f.coord.Wait()
	final, err := f.repo.GetByID(context.Background(), dist.ID)
	require.NoError(t, err)
	require.NotNil(t, final)
	return final
}

func TestShareCompanyProfitRejectsNonPositiveTotal(t *testing.T) {
	f := newCoordinatorFixture()

	_, err := f.coord.ShareCompanyProfit(context.Background(), ShareRequest{
		CompanyID:   1,
		TotalAmount: decimal.Zero,
	})
	assert.ErrorIs(t, err, ErrInvalidTotal)

	_, err = f.coord.ShareCompanyProfit(context.Background(), ShareRequest{
		CompanyID:   1,
		TotalAmount: decimal.NewFromInt(-50),
	})
	assert.ErrorIs(t, err, ErrInvalidTotal)
	assert.Empty(t, f.repo.rounds)
}

func TestRoundPaysOwnersProportionally(t *testing.T) {
	f := newCoordinatorFixture()
	f.seedReport(1, 10, map[string]int64{"A-1": 60, "B-2": 40})
	f.resolver.owners = map[string]int64{"A-1": 101, "B-2": 102}
	company := f.ledger.addWallet(ledger.OwnerTypeCompany, 10, decimal.NewFromInt(5000))
	w101 := f.ledger.addWallet(ledger.OwnerTypeUser, 101, decimal.Zero)
	w102 := f.ledger.addWallet(ledger.OwnerTypeUser, 102, decimal.Zero)

	final := f.run(t, ShareRequest{
		CompanyID:   10,
		InitiatedBy: 99,
		TotalAmount: decimal.NewFromInt(1000),
	})

	assert.Equal(t, StatusCompleted, final.Status)
	require.NotNil(t, final.CompletedAt)

	details := f.repo.detailsFor(final.ID)
	require.Len(t, details, 2)
	for _, d := range details {
		assert.Equal(t, DetailSuccess, d.Status)
	}

	assert.True(t, f.ledger.balance(w101.ID).Equal(decimal.NewFromInt(600)))
	assert.True(t, f.ledger.balance(w102.ID).Equal(decimal.NewFromInt(400)))
	assert.True(t, f.ledger.balance(company.ID).Equal(decimal.NewFromInt(4000)))
	assert.Equal(t, reports.StatusPaidOut, f.reports.statusOf(1))
}

// One owner's payout failing must not stop or fail the others, and the round
// still completes.
func TestRoundIsolatesPayoutFailures(t *testing.T) {
	f := newCoordinatorFixture()
	f.seedReport(1, 10, map[string]int64{"A-1": 50, "B-2": 30, "C-3": 20})
	f.resolver.owners = map[string]int64{"A-1": 101, "B-2": 102, "C-3": 103}
	company := f.ledger.addWallet(ledger.OwnerTypeCompany, 10, decimal.NewFromInt(1000))
	w101 := f.ledger.addWallet(ledger.OwnerTypeUser, 101, decimal.Zero)
	w102 := f.ledger.addWallet(ledger.OwnerTypeUser, 102, decimal.Zero)
	w103 := f.ledger.addWallet(ledger.OwnerTypeUser, 103, decimal.Zero)
	f.ledger.failInto[w102.ID] = fmt.Errorf("destination account frozen")

	final := f.run(t, ShareRequest{
		CompanyID:   10,
		InitiatedBy: 99,
		TotalAmount: decimal.NewFromInt(100),
	})

	assert.Equal(t, StatusCompleted, final.Status)

	details := f.repo.detailsFor(final.ID)
	require.Len(t, details, 3)
	byOwner := make(map[int64]*ProfitDistributionDetail)
	for _, d := range details {
		byOwner[d.OwnerID] = d
	}
	assert.Equal(t, DetailSuccess, byOwner[101].Status)
	assert.Equal(t, DetailFailed, byOwner[102].Status)
	assert.Contains(t, byOwner[102].ErrorMessage, "frozen")
	assert.Equal(t, DetailSuccess, byOwner[103].Status)

	assert.True(t, f.ledger.balance(w101.ID).Equal(decimal.NewFromInt(50)))
	assert.True(t, f.ledger.balance(w102.ID).IsZero())
	assert.True(t, f.ledger.balance(w103.ID).Equal(decimal.NewFromInt(20)))
	// Only the successful payouts left the company wallet.
	assert.True(t, f.ledger.balance(company.ID).Equal(decimal.NewFromInt(930)))
}

func TestRoundCompletesWithNoRegisteredContributors(t *testing.T) {
	f := newCoordinatorFixture()
	f.seedReport(1, 10, map[string]int64{"A-1": 60, "B-2": 40})
	// No plate resolves to an owner.
	company := f.ledger.addWallet(ledger.OwnerTypeCompany, 10, decimal.NewFromInt(5000))

	final := f.run(t, ShareRequest{
		CompanyID:   10,
		InitiatedBy: 99,
		TotalAmount: decimal.NewFromInt(1000),
	})

	assert.Equal(t, StatusCompleted, final.Status)
	assert.Empty(t, f.repo.detailsFor(final.ID))
	assert.True(t, f.ledger.balance(company.ID).Equal(decimal.NewFromInt(5000)))
	assert.Equal(t, reports.StatusPaidOut, f.reports.statusOf(1))
}

func TestRoundFailsWithNoEligibleReports(t *testing.T) {
	f := newCoordinatorFixture()

	final := f.run(t, ShareRequest{
		CompanyID:   10,
		InitiatedBy: 99,
		TotalAmount: decimal.NewFromInt(1000),
	})

	assert.Equal(t, StatusFailed, final.Status)
	assert.Equal(t, ErrNoEligibleReports.Error(), final.ErrorMessage)
	assert.Empty(t, f.repo.detailsFor(final.ID))
}

func TestRoundFailsForUnapprovedSpecificReport(t *testing.T) {
	f := newCoordinatorFixture()
	f.seedReport(1, 10, map[string]int64{"A-1": 60})
	f.reports.reports[1].Status = reports.StatusSubmitted
	reportID := int64(1)

	final := f.run(t, ShareRequest{
		CompanyID:   10,
		InitiatedBy: 99,
		ReportID:    &reportID,
		TotalAmount: decimal.NewFromInt(1000),
	})

	assert.Equal(t, StatusFailed, final.Status)
	assert.Contains(t, final.ErrorMessage, "expected")
	assert.Equal(t, reports.StatusSubmitted, f.reports.statusOf(1))
}

func TestRoundFailsForForeignSpecificReport(t *testing.T) {
	f := newCoordinatorFixture()
	f.seedReport(1, 20, map[string]int64{"A-1": 60})
	reportID := int64(1)

	final := f.run(t, ShareRequest{
		CompanyID:   10,
		InitiatedBy: 99,
		ReportID:    &reportID,
		TotalAmount: decimal.NewFromInt(1000),
	})

	assert.Equal(t, StatusFailed, final.Status)
	assert.Equal(t, ErrNoEligibleReports.Error(), final.ErrorMessage)
}

// CREDITS weighting uses the CO2 metric. The fixture doubles CO2 relative to
// energy, so the split still lands 60/40 here and the detail rows carry the
// energy amounts regardless of formula.
func TestRoundCreditsFormula(t *testing.T) {
	f := newCoordinatorFixture()
	f.seedReport(1, 10, map[string]int64{"A-1": 60, "B-2": 40})
	f.resolver.owners = map[string]int64{"A-1": 101, "B-2": 102}
	f.ledger.addWallet(ledger.OwnerTypeCompany, 10, decimal.NewFromInt(5000))
	w101 := f.ledger.addWallet(ledger.OwnerTypeUser, 101, decimal.Zero)

	final := f.run(t, ShareRequest{
		CompanyID:   10,
		InitiatedBy: 99,
		TotalAmount: decimal.NewFromInt(1000),
		Formula:     FormulaCredits,
	})

	assert.Equal(t, StatusCompleted, final.Status)
	assert.True(t, f.ledger.balance(w101.ID).Equal(decimal.NewFromInt(600)))

	details := f.repo.detailsFor(final.ID)
	require.Len(t, details, 2)
	for _, d := range details {
		if d.OwnerID == 101 {
			assert.True(t, d.AmountEnergy.Equal(decimal.NewFromInt(60)))
		}
	}
}

// Exports must carry every outcome row, not just the first page.
func TestListAllDetailsSpansPages(t *testing.T) {
	f := newCoordinatorFixture()
	const owners = 1203
	for i := 0; i < owners; i++ {
		require.NoError(t, f.repo.CreateDetail(context.Background(), &ProfitDistributionDetail{
			DistributionID: 1,
			OwnerID:        int64(i + 1),
			AmountMoney:    decimal.NewFromInt(1),
			AmountEnergy:   decimal.NewFromInt(1),
			Status:         DetailSuccess,
		}))
	}

	details, err := f.coord.ListAllDetails(context.Background(), 1)
	require.NoError(t, err)
	assert.Len(t, details, owners)
}

func TestRoundAggregatesAcrossReports(t *testing.T) {
	f := newCoordinatorFixture()
	f.seedReport(1, 10, map[string]int64{"A-1": 30})
	f.seedReport(2, 10, map[string]int64{"A-1": 30, "B-2": 40})
	f.resolver.owners = map[string]int64{"A-1": 101, "B-2": 102}
	f.ledger.addWallet(ledger.OwnerTypeCompany, 10, decimal.NewFromInt(5000))
	w101 := f.ledger.addWallet(ledger.OwnerTypeUser, 101, decimal.Zero)
	w102 := f.ledger.addWallet(ledger.OwnerTypeUser, 102, decimal.Zero)

	final := f.run(t, ShareRequest{
		CompanyID:   10,
		InitiatedBy: 99,
		TotalAmount: decimal.NewFromInt(1000),
	})

	assert.Equal(t, StatusCompleted, final.Status)
	assert.True(t, f.ledger.balance(w101.ID).Equal(decimal.NewFromInt(600)))
	assert.True(t, f.ledger.balance(w102.ID).Equal(decimal.NewFromInt(400)))
	assert.Equal(t, reports.StatusPaidOut, f.reports.statusOf(1))
	assert.Equal(t, reports.StatusPaidOut, f.reports.statusOf(2))
}
