package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/fitgrid/platform/internal/domain"
	"github.com/fitgrid/platform/internal/gateway"
	"github.com/fitgrid/platform/internal/repository"
	"github.com/google/uuid"
)

// In-memory repository fakes. They ignore the DBTX argument, so the services
// under test are constructed with a nil pool. The transaction fake guards its
// map with a mutex and implements the same conditional-update semantics as
// the SQL, which is what the concurrency tests exercise.

type fakeTxRepo struct {
	mu   sync.Mutex
	rows map[uuid.UUID]*domain.PaymentTransaction

	createErr     error
	findErr       error
	transitionErr error
}

func newFakeTxRepo() *fakeTxRepo {
	return &fakeTxRepo{rows: make(map[uuid.UUID]*domain.PaymentTransaction)}
}

func (f *fakeTxRepo) Create(_ context.Context, _ repository.DBTX, tx *domain.PaymentTransaction) error {
	if f.createErr != nil {
		return f.createErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *tx
	f.rows[tx.ID] = &cp
	return nil
}

func (f *fakeTxRepo) FindByID(_ context.Context, _ repository.DBTX, tenantID, id uuid.UUID) (*domain.PaymentTransaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	tx, ok := f.rows[id]
	if !ok || tx.TenantID != tenantID {
		return nil, nil
	}
	cp := *tx
	return &cp, nil
}

func (f *fakeTxRepo) FindByCorrelation(_ context.Context, _ repository.DBTX, rail domain.Rail, key string) (*domain.PaymentTransaction, error) {
	if f.findErr != nil {
		return nil, f.findErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	var latest *domain.PaymentTransaction
	for _, tx := range f.rows {
		if tx.Rail != rail || tx.CorrelationKey != key {
			continue
		}
		if latest == nil || tx.IssuedAt.After(latest.IssuedAt) {
			latest = tx
		}
	}
	if latest == nil {
		return nil, nil
	}
	cp := *latest
	return &cp, nil
}

func (f *fakeTxRepo) TransitionStatus(_ context.Context, _ repository.DBTX, id uuid.UUID, to domain.TransactionStatus, settledAt *time.Time) (bool, error) {
	if f.transitionErr != nil {
		return false, f.transitionErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	tx, ok := f.rows[id]
	if !ok || tx.Status != domain.StatusPending {
		return false, nil
	}
	tx.Status = to
	tx.SettledAt = settledAt
	return true, nil
}

func (f *fakeTxRepo) ExpireBefore(_ context.Context, _ repository.DBTX, cutoff time.Time) ([]domain.PaymentTransaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var expired []domain.PaymentTransaction
	for _, tx := range f.rows {
		if tx.Status == domain.StatusPending && tx.ExpiresAt.Before(cutoff) {
			tx.Status = domain.StatusExpired
			expired = append(expired, *tx)
		}
	}
	return expired, nil
}

func (f *fakeTxRepo) ListByTenant(_ context.Context, _ repository.DBTX, tenantID uuid.UUID, _ int) ([]domain.PaymentTransaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var txs []domain.PaymentTransaction
	for _, tx := range f.rows {
		if tx.TenantID == tenantID {
			txs = append(txs, *tx)
		}
	}
	return txs, nil
}

func (f *fakeTxRepo) get(id uuid.UUID) *domain.PaymentTransaction {
	f.mu.Lock()
	defer f.mu.Unlock()
	tx, ok := f.rows[id]
	if !ok {
		return nil
	}
	cp := *tx
	return &cp
}

type fakeLogRepo struct {
	mu      sync.Mutex
	entries map[uuid.UUID]*domain.WebhookLogEntry

	insertErr error
}

func newFakeLogRepo() *fakeLogRepo {
	return &fakeLogRepo{entries: make(map[uuid.UUID]*domain.WebhookLogEntry)}
}

func (f *fakeLogRepo) Insert(_ context.Context, _ repository.DBTX, entry *domain.WebhookLogEntry) error {
	if f.insertErr != nil {
		return f.insertErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *entry
	f.entries[entry.ID] = &cp
	return nil
}

func (f *fakeLogRepo) Finalize(_ context.Context, _ repository.DBTX, id uuid.UUID, outcome domain.WebhookOutcome, txID *uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	entry, ok := f.entries[id]
	if !ok {
		return errors.New("no such entry")
	}
	if entry.ProcessedAt != nil {
		return nil
	}
	now := time.Now()
	entry.Outcome = &outcome
	entry.TransactionID = txID
	entry.ProcessedAt = &now
	return nil
}

func (f *fakeLogRepo) ListUnmatched(_ context.Context, _ repository.DBTX, _ int) ([]domain.WebhookLogEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.WebhookLogEntry
	for _, e := range f.entries {
		if e.Outcome != nil && (*e.Outcome == domain.OutcomeUnmatched || *e.Outcome == domain.OutcomeError) {
			out = append(out, *e)
		}
	}
	return out, nil
}

func (f *fakeLogRepo) get(id uuid.UUID) *domain.WebhookLogEntry {
	f.mu.Lock()
	defer f.mu.Unlock()
	entry, ok := f.entries[id]
	if !ok {
		return nil
	}
	cp := *entry
	return &cp
}

type fakeCredsRepo struct {
	mu    sync.Mutex
	creds map[string]*domain.RailCredentials
}

func newFakeCredsRepo() *fakeCredsRepo {
	return &fakeCredsRepo{creds: make(map[string]*domain.RailCredentials)}
}

func credsKey(tenantID uuid.UUID, rail domain.Rail) string {
	return tenantID.String() + "/" + string(rail)
}

func (f *fakeCredsRepo) FindByTenantAndRail(_ context.Context, _ repository.DBTX, tenantID uuid.UUID, rail domain.Rail) (*domain.RailCredentials, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.creds[credsKey(tenantID, rail)]
	if !ok {
		return nil, nil
	}
	cp := *c
	return &cp, nil
}

func (f *fakeCredsRepo) Upsert(_ context.Context, _ repository.DBTX, creds *domain.RailCredentials) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *creds
	f.creds[credsKey(creds.TenantID, creds.Rail)] = &cp
	return nil
}

type fakeOutboxRepo struct {
	mu     sync.Mutex
	drafts []domain.OutboxDraft
}

func newFakeOutboxRepo() *fakeOutboxRepo { return &fakeOutboxRepo{} }

func (f *fakeOutboxRepo) Insert(_ context.Context, _ repository.DBTX, draft domain.OutboxDraft) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.drafts = append(f.drafts, draft)
	return nil
}

func (f *fakeOutboxRepo) events(eventType domain.EventType) []domain.OutboxDraft {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.OutboxDraft
	for _, d := range f.drafts {
		if d.EventType == eventType {
			out = append(out, d)
		}
	}
	return out
}

// fakeAdapter is a canned-response RailAdapter for issuer tests.
type fakeAdapter struct {
	rail    domain.Rail
	handle  *gateway.Handle
	err     error
	lastReq gateway.IssueRequest
}

func (f *fakeAdapter) Rail() domain.Rail { return f.rail }

func (f *fakeAdapter) Issue(_ context.Context, _ *domain.RailCredentials, req gateway.IssueRequest) (*gateway.Handle, error) {
	f.lastReq = req
	if f.err != nil {
		return nil, f.err
	}
	return f.handle, nil
}
