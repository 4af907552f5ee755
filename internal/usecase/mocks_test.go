//go:build !integration

package usecase_test

import (
	"context"
	"sync"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"

	"trainhub-billing/internal/domain"
	"trainhub-billing/internal/domain/model"
	"trainhub-billing/internal/domain/ports/adapter"
	"trainhub-billing/internal/domain/ports/repository"
)

// newTestLogger creates a silent zerolog.Logger for use in tests.
func newTestLogger() *zerolog.Logger {
	l := zerolog.Nop()
	return &l
}

//
// ---------------- in-memory repositories ----------------
//

type memPaymentRepo struct {
	mu      sync.RWMutex
	store   map[string]*model.Payment
	saveErr error
}

func newMemPaymentRepo() *memPaymentRepo {
	return &memPaymentRepo{store: map[string]*model.Payment{}}
}

func (m *memPaymentRepo) Save(ctx context.Context, tx repository.Tx, p *model.Payment) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *p
	m.store[p.ID] = &cp
	return nil
}

func (m *memPaymentRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Payment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.store[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *memPaymentRepo) FindByGatewayOrder(ctx context.Context, tx repository.Tx, gateway, orderID string) (*model.Payment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, p := range m.store {
		if p.CorrelationRef(gateway) == orderID {
			cp := *p
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *memPaymentRepo) UpdateStatusIf(ctx context.Context, tx repository.Tx, id string, expected, next model.PaymentStatus) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.store[id]
	if !ok {
		return false, domain.ErrNotFound
	}
	if p.Status != expected {
		return false, nil
	}
	p.Status = next
	p.UpdatedAt = time.Now()
	return true, nil
}

func (m *memPaymentRepo) ListPendingOlderThan(ctx context.Context, tx repository.Tx, olderThan time.Time, limit int) ([]*model.Payment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*model.Payment
	for _, p := range m.store {
		if p.Status == model.PaymentStatusPending && p.CreatedAt.Before(olderThan) {
			cp := *p
			out = append(out, &cp)
		}
		if len(out) >= limit {
			break
		}
	}
	return out, nil
}

func (m *memPaymentRepo) ListRecent(ctx context.Context, tx repository.Tx, limit int) ([]*model.Payment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*model.Payment
	for _, p := range m.store {
		cp := *p
		out = append(out, &cp)
		if len(out) >= limit {
			break
		}
	}
	return out, nil
}

func (m *memPaymentRepo) RevenueSince(ctx context.Context, tx repository.Tx, since time.Time) (int64, int64, int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var gross, fee, payout int64
	for _, p := range m.store {
		if p.PaidAt == nil || p.PaidAt.Before(since) {
			continue
		}
		if p.Status == model.PaymentStatusCompleted || p.Status == model.PaymentStatusRefunded {
			gross += p.Amount
			fee += p.PlatformFee
			payout += p.TrainerPayout
		}
	}
	return gross, fee, payout, nil
}

func (m *memPaymentRepo) SoftDelete(ctx context.Context, tx repository.Tx, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.store[id]
	if !ok {
		return domain.ErrNotFound
	}
	now := time.Now()
	p.DeletedAt = &now
	return nil
}

type memSubscriptionRepo struct {
	mu      sync.RWMutex
	store   map[string]*model.Subscription
	saveErr error
}

func newMemSubscriptionRepo() *memSubscriptionRepo {
	return &memSubscriptionRepo{store: map[string]*model.Subscription{}}
}

func (m *memSubscriptionRepo) Save(ctx context.Context, tx repository.Tx, sub *model.Subscription) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *sub
	m.store[sub.ID] = &cp
	return nil
}

func (m *memSubscriptionRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Subscription, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	sub, ok := m.store[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *sub
	return &cp, nil
}

func (m *memSubscriptionRepo) FindLiveByClientAndPackage(ctx context.Context, tx repository.Tx, clientID, packageID string) (*model.Subscription, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, sub := range m.store {
		if sub.ClientID == clientID && sub.PackageID == packageID && model.IsLiveSubscriptionStatus(sub.Status) {
			cp := *sub
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *memSubscriptionRepo) ListActiveExpiredBy(ctx context.Context, tx repository.Tx, cutoff time.Time, limit int) ([]*model.Subscription, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*model.Subscription
	for _, sub := range m.store {
		if sub.Status == model.SubscriptionStatusActive && sub.CurrentPeriodEnd != nil && !cutoff.Before(*sub.CurrentPeriodEnd) {
			cp := *sub
			out = append(out, &cp)
		}
		if len(out) >= limit {
			break
		}
	}
	return out, nil
}

type memPackageRepo struct {
	mu    sync.RWMutex
	store map[string]*model.TrainingPackage
}

func newMemPackageRepo() *memPackageRepo {
	return &memPackageRepo{store: map[string]*model.TrainingPackage{}}
}

func (m *memPackageRepo) Save(ctx context.Context, tx repository.Tx, pkg *model.TrainingPackage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *pkg
	m.store[pkg.ID] = &cp
	return nil
}

func (m *memPackageRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.TrainingPackage, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	pkg, ok := m.store[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *pkg
	return &cp, nil
}

func (m *memPackageRepo) ListAll(ctx context.Context, tx repository.Tx) ([]*model.TrainingPackage, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*model.TrainingPackage, 0, len(m.store))
	for _, pkg := range m.store {
		cp := *pkg
		out = append(out, &cp)
	}
	return out, nil
}

//
// ---------------- ledger + tx manager with rollback ----------------
//

// memLedger stages claims until the surrounding mockTxManager commits, so a
// rolled-back reconciliation releases its event id the way the real
// transaction-scoped insert does.
type memLedger struct {
	mu      sync.Mutex
	applied map[string]bool
	staged  []string
}

func newMemLedger() *memLedger {
	return &memLedger{applied: map[string]bool{}}
}

func (m *memLedger) Claim(ctx context.Context, tx repository.Tx, gateway, eventID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := gateway + "/" + eventID
	if m.applied[key] {
		return false, nil
	}
	for _, s := range m.staged {
		if s == key {
			return false, nil
		}
	}
	m.staged = append(m.staged, key)
	return true, nil
}

func (m *memLedger) commit() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, key := range m.staged {
		m.applied[key] = true
	}
	m.staged = nil
}

func (m *memLedger) rollback() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.staged = nil
}

// mockTxManager runs fn without a real transaction but mirrors commit and
// rollback onto the ledger staging area.
type mockTxManager struct {
	ledger *memLedger
}

type noTx struct{}

func (m *mockTxManager) WithTx(ctx context.Context, _ pgx.TxOptions, fn func(ctx context.Context, tx repository.Tx) error) error {
	err := fn(ctx, noTx{})
	if m.ledger != nil {
		if err != nil {
			m.ledger.rollback()
		} else {
			m.ledger.commit()
		}
	}
	return err
}

//
// ---------------- locker, notifier, gateway ----------------
//

type mockLocker struct {
	mu   sync.Mutex
	held map[string]bool
	// FailNext forces the next TryLock to report contention.
	FailNext bool
}

func newMockLocker() *mockLocker {
	return &mockLocker{held: map[string]bool{}}
}

func (m *mockLocker) TryLock(ctx context.Context, key string, ttl time.Duration) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailNext || m.held[key] {
		m.FailNext = false
		return "", domain.ErrLockNotAcquired
	}
	m.held[key] = true
	return "token-" + key, nil
}

func (m *mockLocker) Unlock(ctx context.Context, key, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.held, key)
	return nil
}

type mockNotifier struct {
	mu   sync.Mutex
	sent []adapter.Notification
	err  error
}

func (m *mockNotifier) Notify(ctx context.Context, n adapter.Notification) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, n)
	return nil
}

func (m *mockNotifier) last() *adapter.Notification {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.sent) == 0 {
		return nil
	}
	n := m.sent[len(m.sent)-1]
	return &n
}

func (m *mockNotifier) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sent)
}
