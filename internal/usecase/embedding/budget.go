package embedding

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/docdex/internal/domain"
)

// BudgetAction defines behavior when the token budget is exceeded.
type BudgetAction string

const (
	// BudgetActionWarn logs a warning but allows the request.
	BudgetActionWarn BudgetAction = "warn"
	// BudgetActionReject blocks the request.
	BudgetActionReject BudgetAction = "reject"
)

// BudgetStore is the persistence interface for budget counters.
// Implementations must be idempotent (IncrBy can be called repeatedly).
type BudgetStore interface {
	IncrBy(ctx context.Context, key string, val int64) error
	Get(ctx context.Context, key string) (int64, error)
}

type budgetPeriod string

const (
	periodDaily   budgetPeriod = "daily"
	periodMonthly budgetPeriod = "monthly"
)

func (p budgetPeriod) stamp(t time.Time) string {
	if p == periodDaily {
		return t.Format("2006-01-02")
	}
	return t.Format("2006-01")
}

// usageWindow accumulates provider consumption over one calendar period.
// Tokens drive the budget caps; requests feed the /usage report.
type usageWindow struct {
	tokens   int64
	requests int64
	start    time.Time
}

// BudgetTracker enforces daily and monthly token caps on embedding calls and
// counts requests per period for usage reports.
// The hot path (Check) is in-memory only, no round-trip.
// Record updates in-memory first, then write-behind to the store.
type BudgetTracker struct {
	mu           sync.Mutex
	day          usageWindow
	month        usageWindow
	dailyLimit   int64
	monthlyLimit int64
	action       BudgetAction
	provider     string
	store        BudgetStore
	logger       *zap.Logger
}

// NewBudgetTracker creates a budget tracker with the given token limits.
// A zero limit means unlimited for that period.
func NewBudgetTracker(
	provider string, dailyLimit, monthlyLimit int64,
	action BudgetAction, logger *zap.Logger,
) *BudgetTracker {
	now := time.Now().UTC()
	return &BudgetTracker{
		day:          usageWindow{start: truncateToDay(now)},
		month:        usageWindow{start: truncateToMonth(now)},
		dailyLimit:   dailyLimit,
		monthlyLimit: monthlyLimit,
		action:       action,
		provider:     provider,
		logger:       logger,
	}
}

// WithStore attaches a persistence store and loads current counters,
// so restarts and replicas pick up consumption already accumulated.
func (b *BudgetTracker) WithStore(ctx context.Context, store BudgetStore) *BudgetTracker {
	b.store = store
	b.loadFromStore(ctx)
	return b
}

func (b *BudgetTracker) loadFromStore(ctx context.Context) {
	b.mu.Lock()
	defer b.mu.Unlock()

	load := func(key string, dst *int64) {
		val, err := b.store.Get(ctx, key)
		if err != nil {
			b.logger.Warn("Failed to load budget counter from store",
				zap.String("key", key), zap.Error(err))
			return
		}
		*dst = val
	}

	load(b.tokenKey(periodDaily, b.day.start), &b.day.tokens)
	load(b.requestKey(periodDaily, b.day.start), &b.day.requests)
	load(b.tokenKey(periodMonthly, b.month.start), &b.month.tokens)
	load(b.requestKey(periodMonthly, b.month.start), &b.month.requests)

	b.logger.Info("Budget loaded from store",
		zap.String("provider", b.provider),
		zap.Int64("daily_tokens", b.day.tokens),
		zap.Int64("daily_requests", b.day.requests),
		zap.Int64("monthly_tokens", b.month.tokens),
		zap.Int64("monthly_requests", b.month.requests),
	)
}

// tokenKey builds docdex:budget:{provider}:{period}:{stamp}; the budget
// repository resolves the key TTL off the {period} segment.
func (b *BudgetTracker) tokenKey(p budgetPeriod, t time.Time) string {
	return fmt.Sprintf("%sbudget:%s:%s:%s", domain.KeyPrefix, b.provider, p, p.stamp(t))
}

// requestKey appends :req so request counters inherit the token key TTL rules.
func (b *BudgetTracker) requestKey(p budgetPeriod, t time.Time) string {
	return b.tokenKey(p, t) + ":req"
}

// Check verifies the budget allows a new provider call. In-memory only (hot path).
func (b *BudgetTracker) Check(_ context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.rollover()

	dailyExceeded := b.dailyLimit > 0 && b.day.tokens >= b.dailyLimit
	monthlyExceeded := b.monthlyLimit > 0 && b.month.tokens >= b.monthlyLimit

	if !dailyExceeded && !monthlyExceeded {
		return nil
	}

	if b.action == BudgetActionReject {
		return domain.ErrEmbeddingQuotaExceeded
	}

	// action=warn: log but allow the request through
	b.logger.Warn("Token budget exceeded",
		zap.String("provider", b.provider),
		zap.Int64("daily_used", b.day.tokens),
		zap.Int64("daily_limit", b.dailyLimit),
		zap.Int64("monthly_used", b.month.tokens),
		zap.Int64("monthly_limit", b.monthlyLimit),
	)
	return nil
}

// Record registers one provider call and the tokens it consumed.
// Updates in-memory counters, then write-behind to store (if attached).
func (b *BudgetTracker) Record(tokens int64) {
	b.mu.Lock()
	b.rollover()
	b.day.tokens += tokens
	b.day.requests++
	b.month.tokens += tokens
	b.month.requests++
	store := b.store
	dayStart, monthStart := b.day.start, b.month.start
	b.mu.Unlock()

	if store == nil {
		return
	}

	// Write-behind: fire-and-forget INCRBY to store.
	// Uses background context so store writes don't block the caller.
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	increments := []struct {
		key string
		val int64
	}{
		{b.tokenKey(periodDaily, dayStart), tokens},
		{b.requestKey(periodDaily, dayStart), 1},
		{b.tokenKey(periodMonthly, monthStart), tokens},
		{b.requestKey(periodMonthly, monthStart), 1},
	}
	for _, inc := range increments {
		if err := store.IncrBy(ctx, inc.key, inc.val); err != nil {
			b.logger.Warn("Failed to persist budget counter",
				zap.String("key", inc.key), zap.Error(err))
		}
	}
}

// RemainingDaily returns tokens left in the daily budget (-1 if unlimited).
func (b *BudgetTracker) RemainingDaily() int64 {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.rollover()
	return remaining(b.dailyLimit, b.day.tokens)
}

// RemainingMonthly returns tokens left in the monthly budget (-1 if unlimited).
func (b *BudgetTracker) RemainingMonthly() int64 {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.rollover()
	return remaining(b.monthlyLimit, b.month.tokens)
}

func remaining(limit, used int64) int64 {
	if limit == 0 {
		return -1 // unlimited
	}
	if left := limit - used; left > 0 {
		return left
	}
	return 0
}

// DailyLimit returns the daily token cap.
func (b *BudgetTracker) DailyLimit() int64 { return b.dailyLimit }

// MonthlyLimit returns the monthly token cap.
func (b *BudgetTracker) MonthlyLimit() int64 { return b.monthlyLimit }

// DailyUsed returns tokens consumed today.
func (b *BudgetTracker) DailyUsed() int64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.rollover()
	return b.day.tokens
}

// MonthlyUsed returns tokens consumed this month.
func (b *BudgetTracker) MonthlyUsed() int64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.rollover()
	return b.month.tokens
}

// DailyRequests returns provider calls made today.
func (b *BudgetTracker) DailyRequests() int64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.rollover()
	return b.day.requests
}

// MonthlyRequests returns provider calls made this month.
func (b *BudgetTracker) MonthlyRequests() int64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.rollover()
	return b.month.requests
}

// rollover zeroes window counters when the day or month changes.
func (b *BudgetTracker) rollover() {
	now := time.Now().UTC()
	if today := truncateToDay(now); today.After(b.day.start) {
		b.day = usageWindow{start: today}
	}
	if thisMonth := truncateToMonth(now); thisMonth.After(b.month.start) {
		b.month = usageWindow{start: thisMonth}
	}
}

func truncateToDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func truncateToMonth(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}
