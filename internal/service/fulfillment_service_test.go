package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/makkenzo/license-checkout-service/internal/domain/license"
	"github.com/makkenzo/license-checkout-service/internal/domain/purchase"
	"github.com/makkenzo/license-checkout-service/internal/ierr"
	"github.com/makkenzo/license-checkout-service/internal/storage/memstorage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type recordingMailer struct {
	mu   sync.Mutex
	sent []*license.License
	err  error
}

func (m *recordingMailer) SendLicense(_ context.Context, lic *license.License) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return "", m.err
	}
	m.sent = append(m.sent, lic)
	return "email_1", nil
}

type memLedger struct {
	claimed  map[string]bool
	released []string
	err      error
}

func newMemLedger() *memLedger { return &memLedger{claimed: map[string]bool{}} }

func (l *memLedger) Claim(_ context.Context, eventID string) (bool, error) {
	if l.err != nil {
		return false, l.err
	}
	if l.claimed[eventID] {
		return false, nil
	}
	l.claimed[eventID] = true
	return true, nil
}

func (l *memLedger) Release(_ context.Context, eventID string) error {
	delete(l.claimed, eventID)
	l.released = append(l.released, eventID)
	return nil
}

type brokenRepo struct {
	*memstorage.LicenseRepository
	createErr error
	calls     int
}

func (r *brokenRepo) Create(ctx context.Context, lic *license.License) (uuid.UUID, error) {
	r.calls++
	if r.createErr != nil {
		return uuid.Nil, r.createErr
	}
	return r.LicenseRepository.Create(ctx, lic)
}

func completed(eventID, sessionID, email string) purchase.SessionCompleted {
	return purchase.SessionCompleted{EventID: eventID, SessionID: sessionID, Email: email, Name: "Ada Buyer"}
}

func TestProcessIssuesLicense(t *testing.T) {
	repo := memstorage.NewLicenseRepository()
	mailer := &recordingMailer{}
	svc := NewFulfillmentService(repo, mailer, newMemLedger(), 0, zap.NewNop())

	res, err := svc.Process(context.Background(), completed("evt_1", "cs_1", "buyer@example.com"))
	require.NoError(t, err)
	assert.Equal(t, OutcomeIssued, res.Outcome)
	require.NotNil(t, res.License)

	stored, err := repo.FindBySessionID(context.Background(), "cs_1")
	require.NoError(t, err)
	assert.Equal(t, res.License.LicenseKey, stored.LicenseKey)
	assert.True(t, license.IsValidKey(stored.LicenseKey))
	assert.True(t, stored.IsActive)
	assert.Equal(t, license.DefaultMaxDevices, stored.MaxDevices)
	assert.Equal(t, "Ada Buyer", stored.CustomerName.String)

	require.Len(t, mailer.sent, 1)
	assert.Equal(t, stored.LicenseKey, mailer.sent[0].LicenseKey)
}

func TestProcessIgnoresOtherEvents(t *testing.T) {
	repo := memstorage.NewLicenseRepository()
	mailer := &recordingMailer{}
	svc := NewFulfillmentService(repo, mailer, nil, 3, zap.NewNop())

	res, err := svc.Process(context.Background(), purchase.Unhandled{EventID: "evt_2", EventType: "invoice.paid"})
	require.NoError(t, err)
	assert.Equal(t, OutcomeIgnored, res.Outcome)
	assert.Equal(t, 0, repo.Len())
	assert.Empty(t, mailer.sent)
}

func TestProcessMissingEmail(t *testing.T) {
	repo := memstorage.NewLicenseRepository()
	ledger := newMemLedger()
	svc := NewFulfillmentService(repo, &recordingMailer{}, ledger, 3, zap.NewNop())

	res, err := svc.Process(context.Background(), completed("evt_3", "cs_3", ""))
	require.NoError(t, err)
	assert.Equal(t, OutcomeMissingEmail, res.Outcome)
	assert.Equal(t, 0, repo.Len())
	assert.Empty(t, ledger.claimed)
}

func TestProcessDuplicateEvent(t *testing.T) {
	repo := memstorage.NewLicenseRepository()
	mailer := &recordingMailer{}
	svc := NewFulfillmentService(repo, mailer, newMemLedger(), 3, zap.NewNop())
	evt := completed("evt_4", "cs_4", "buyer@example.com")

	_, err := svc.Process(context.Background(), evt)
	require.NoError(t, err)

	res, err := svc.Process(context.Background(), evt)
	require.NoError(t, err)
	assert.Equal(t, OutcomeDuplicate, res.Outcome)
	assert.Equal(t, 1, repo.Len())
	assert.Len(t, mailer.sent, 1)
}

func TestProcessDuplicateSessionWithoutLedger(t *testing.T) {
	repo := memstorage.NewLicenseRepository()
	mailer := &recordingMailer{}
	ledger := newMemLedger()
	ledger.err = errors.New("redis: connection refused")
	svc := NewFulfillmentService(repo, mailer, ledger, 3, zap.NewNop())

	first, err := svc.Process(context.Background(), completed("evt_5a", "cs_5", "buyer@example.com"))
	require.NoError(t, err)

	res, err := svc.Process(context.Background(), completed("evt_5b", "cs_5", "buyer@example.com"))
	require.NoError(t, err)
	assert.Equal(t, OutcomeDuplicate, res.Outcome)
	assert.Equal(t, first.License.LicenseKey, res.License.LicenseKey)
	assert.Equal(t, 1, repo.Len())
	assert.Len(t, mailer.sent, 1)
}

func TestProcessPersistFailureReleasesClaim(t *testing.T) {
	repo := &brokenRepo{LicenseRepository: memstorage.NewLicenseRepository(), createErr: errors.New("connection reset")}
	mailer := &recordingMailer{}
	ledger := newMemLedger()
	svc := NewFulfillmentService(repo, mailer, ledger, 3, zap.NewNop())

	res, err := svc.Process(context.Background(), completed("evt_6", "cs_6", "buyer@example.com"))
	require.Error(t, err)
	assert.Nil(t, res)
	assert.ErrorIs(t, err, ierr.ErrPersistFailed)
	assert.Empty(t, mailer.sent)
	assert.Equal(t, []string{"evt_6"}, ledger.released)
	assert.Equal(t, 1, repo.calls)

	repo.createErr = nil
	res, err = svc.Process(context.Background(), completed("evt_6", "cs_6", "buyer@example.com"))
	require.NoError(t, err)
	assert.Equal(t, OutcomeIssued, res.Outcome)
}

func TestProcessMailFailureKeepsLicense(t *testing.T) {
	repo := memstorage.NewLicenseRepository()
	mailer := &recordingMailer{err: ierr.ErrDeliveryFailed}
	svc := NewFulfillmentService(repo, mailer, newMemLedger(), 3, zap.NewNop())

	res, err := svc.Process(context.Background(), completed("evt_7", "cs_7", "buyer@example.com"))
	require.NoError(t, err)
	assert.Equal(t, OutcomeUndelivered, res.Outcome)
	assert.Equal(t, 1, repo.Len())
}

func TestProcessRegeneratesCollidingKey(t *testing.T) {
	repo := memstorage.NewLicenseRepository()
	_, err := repo.Create(context.Background(), &license.License{LicenseKey: "AAAAAAAA-AAAAAAAA-AAAAAAAA-AAAAAAAA", PurchaseEmail: "old@example.com"})
	require.NoError(t, err)

	svc := NewFulfillmentService(repo, &recordingMailer{}, nil, 3, zap.NewNop())
	keys := []string{"AAAAAAAA-AAAAAAAA-AAAAAAAA-AAAAAAAA", "BBBBBBBB-BBBBBBBB-BBBBBBBB-BBBBBBBB"}
	svc.newKey = func() (string, error) {
		k := keys[0]
		keys = keys[1:]
		return k, nil
	}

	res, err := svc.Process(context.Background(), completed("evt_8", "cs_8", "buyer@example.com"))
	require.NoError(t, err)
	assert.Equal(t, "BBBBBBBB-BBBBBBBB-BBBBBBBB-BBBBBBBB", res.License.LicenseKey)
	assert.Equal(t, 2, repo.Len())
}

func TestProcessGivesUpAfterRepeatedCollisions(t *testing.T) {
	repo := memstorage.NewLicenseRepository()
	_, err := repo.Create(context.Background(), &license.License{LicenseKey: "AAAAAAAA-AAAAAAAA-AAAAAAAA-AAAAAAAA", PurchaseEmail: "old@example.com"})
	require.NoError(t, err)

	svc := NewFulfillmentService(repo, &recordingMailer{}, nil, 3, zap.NewNop())
	svc.newKey = func() (string, error) { return "AAAAAAAA-AAAAAAAA-AAAAAAAA-AAAAAAAA", nil }

	_, err = svc.Process(context.Background(), completed("evt_9", "cs_9", "buyer@example.com"))
	require.Error(t, err)
	assert.ErrorIs(t, err, ierr.ErrPersistFailed)
	assert.Equal(t, 1, repo.Len())
}

// lookupBarrierRepo holds the first two session lookups until both have run,
// so both callers see no license before either inserts.
type lookupBarrierRepo struct {
	*memstorage.LicenseRepository
	mu      sync.Mutex
	lookups int
	release chan struct{}
}

func (r *lookupBarrierRepo) FindBySessionID(ctx context.Context, sessionID string) (*license.License, error) {
	lic, err := r.LicenseRepository.FindBySessionID(ctx, sessionID)
	r.mu.Lock()
	r.lookups++
	if r.lookups == 2 {
		close(r.release)
	}
	r.mu.Unlock()
	<-r.release
	return lic, err
}

func TestProcessConcurrentSameSessionWithoutLedger(t *testing.T) {
	repo := &lookupBarrierRepo{LicenseRepository: memstorage.NewLicenseRepository(), release: make(chan struct{})}
	mailer := &recordingMailer{}
	svc := NewFulfillmentService(repo, mailer, nil, 3, zap.NewNop())
	evt := completed("evt_c", "cs_c", "buyer@example.com")

	var wg sync.WaitGroup
	outcomes := make([]FulfillmentOutcome, 2)
	errs := make([]error, 2)
	for i := range outcomes {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			res, err := svc.Process(context.Background(), evt)
			errs[i] = err
			if res != nil {
				outcomes[i] = res.Outcome
			}
		}(i)
	}
	wg.Wait()

	require.NoError(t, errs[0])
	require.NoError(t, errs[1])
	assert.ElementsMatch(t, []FulfillmentOutcome{OutcomeIssued, OutcomeDuplicate}, outcomes)
	assert.Equal(t, 1, repo.Len())
	assert.Len(t, mailer.sent, 1)
}
