package validations

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/titulaflow/titulaflow/internal/shared"
)

type memoryLedger struct {
	records map[Key]Record
	nextID  int64
}

func newMemoryLedger() *memoryLedger {
	return &memoryLedger{records: make(map[Key]Record)}
}

func (m *memoryLedger) upsert(key Key, state ValidationState, observation *string, allowed func(Record) bool) (Record, ValidationState, error) {
	existing, ok := m.records[key]
	if !ok {
		m.nextID++
		rec := Record{
			ID:          m.nextID,
			Process:     key.Process,
			PeriodID:    key.PeriodID,
			StudentID:   key.StudentID,
			State:       state,
			Observation: observation,
		}
		m.records[key] = rec
		return rec, "", nil
	}
	if !allowed(existing) {
		return Record{}, "", shared.ErrConflict
	}
	prev := existing.State
	existing.State = state
	existing.Observation = observation
	m.records[key] = existing
	return existing, prev, nil
}

func (m *memoryLedger) Approve(_ context.Context, key Key) (Record, ValidationState, error) {
	return m.upsert(key, StateApproved, nil, func(r Record) bool {
		return r.State == StatePending || r.State == StateApproved
	})
}

func (m *memoryLedger) Reject(_ context.Context, key Key, observation *string) (Record, ValidationState, error) {
	return m.upsert(key, StateRejected, observation, func(r Record) bool {
		if r.State == StatePending || r.State == StateRejected {
			return true
		}
		return r.State == StateApproved && r.DocumentID == nil
	})
}

func (m *memoryLedger) Reconsider(_ context.Context, key Key) (Record, error) {
	existing, ok := m.records[key]
	if !ok {
		return Record{}, shared.ErrNotFound
	}
	if existing.DocumentID != nil {
		return Record{}, shared.ErrConflict
	}
	if existing.State != StateRejected {
		return Record{}, shared.ErrConflict
	}
	existing.State = StatePending
	existing.Observation = nil
	m.records[key] = existing
	return existing, nil
}

func (m *memoryLedger) Get(_ context.Context, key Key) (Record, error) {
	existing, ok := m.records[key]
	if !ok {
		return Record{}, shared.ErrNotFound
	}
	return existing, nil
}

func (m *memoryLedger) ListByProcess(_ context.Context, process Process, periodID int64) ([]Record, error) {
	var out []Record
	for key, rec := range m.records {
		if key.Process == process && key.PeriodID == periodID {
			out = append(out, rec)
		}
	}
	return out, nil
}

type sentNotification struct {
	userID int64
	role   string
	title  string
}

type recordingNotifier struct {
	sent []sentNotification
}

func (n *recordingNotifier) NotifyUser(_ context.Context, userID int64, title, _ string) {
	n.sent = append(n.sent, sentNotification{userID: userID, title: title})
}

func (n *recordingNotifier) NotifyRole(_ context.Context, role, title, _ string) {
	n.sent = append(n.sent, sentNotification{role: role, title: title})
}

func (n *recordingNotifier) reset() { n.sent = nil }

func testKey() Key {
	return Key{Process: ProcessFees, PeriodID: 1, StudentID: 42}
}

func TestApproveCreatesRecordAndNotifies(t *testing.T) {
	repo := newMemoryLedger()
	notifier := &recordingNotifier{}
	svc := NewService(repo, notifier, nil)

	rec, err := svc.Approve(context.Background(), testKey())
	require.NoError(t, err)
	require.Equal(t, StateApproved, rec.State)

	// Student plus the finance office.
	require.Len(t, notifier.sent, 2)
	require.Equal(t, int64(42), notifier.sent[0].userID)
	require.Equal(t, "Trámite aprobado", notifier.sent[0].title)
	require.Equal(t, shared.RoleFinanceOffice, notifier.sent[1].role)
}

func TestRepeatedApproveDoesNotNotifyTwice(t *testing.T) {
	repo := newMemoryLedger()
	notifier := &recordingNotifier{}
	svc := NewService(repo, notifier, nil)

	_, err := svc.Approve(context.Background(), testKey())
	require.NoError(t, err)
	notifier.reset()

	rec, err := svc.Approve(context.Background(), testKey())
	require.NoError(t, err)
	require.Equal(t, StateApproved, rec.State)
	require.Empty(t, notifier.sent)
}

func TestApproveAfterRejectConflicts(t *testing.T) {
	repo := newMemoryLedger()
	svc := NewService(repo, &recordingNotifier{}, nil)

	_, err := svc.Reject(context.Background(), testKey(), nil)
	require.NoError(t, err)

	_, err = svc.Approve(context.Background(), testKey())
	require.ErrorIs(t, err, shared.ErrConflict)
}

func TestRejectFromApprovedAllowedWithoutDocument(t *testing.T) {
	repo := newMemoryLedger()
	notifier := &recordingNotifier{}
	svc := NewService(repo, notifier, nil)

	_, err := svc.Approve(context.Background(), testKey())
	require.NoError(t, err)
	notifier.reset()

	obs := "pago revertido"
	rec, err := svc.Reject(context.Background(), testKey(), &obs)
	require.NoError(t, err)
	require.Equal(t, StateRejected, rec.State)
	require.NotNil(t, rec.Observation)
	require.Equal(t, "pago revertido", *rec.Observation)
	require.NotEmpty(t, notifier.sent)
}

func TestRejectBlockedOnceDocumentLinked(t *testing.T) {
	repo := newMemoryLedger()
	svc := NewService(repo, &recordingNotifier{}, nil)

	_, err := svc.Approve(context.Background(), testKey())
	require.NoError(t, err)

	docID := uuid.New()
	rec := repo.records[testKey()]
	rec.DocumentID = &docID
	repo.records[testKey()] = rec

	_, err = svc.Reject(context.Background(), testKey(), nil)
	require.ErrorIs(t, err, shared.ErrConflict)
}

func TestReconsiderReturnsToPending(t *testing.T) {
	repo := newMemoryLedger()
	notifier := &recordingNotifier{}
	svc := NewService(repo, notifier, nil)

	obs := "documento ilegible"
	_, err := svc.Reject(context.Background(), testKey(), &obs)
	require.NoError(t, err)
	notifier.reset()

	rec, err := svc.Reconsider(context.Background(), testKey())
	require.NoError(t, err)
	require.Equal(t, StatePending, rec.State)
	require.Nil(t, rec.Observation)
	require.NotEmpty(t, notifier.sent)

	// The cycle can repeat: the office may approve this time.
	rec, err = svc.Approve(context.Background(), testKey())
	require.NoError(t, err)
	require.Equal(t, StateApproved, rec.State)
}

func TestReconsiderRequiresRejectedState(t *testing.T) {
	repo := newMemoryLedger()
	svc := NewService(repo, &recordingNotifier{}, nil)

	_, err := svc.Reconsider(context.Background(), testKey())
	require.ErrorIs(t, err, shared.ErrNotFound)

	_, err = svc.Approve(context.Background(), testKey())
	require.NoError(t, err)

	_, err = svc.Reconsider(context.Background(), testKey())
	require.ErrorIs(t, err, shared.ErrConflict)
}

func TestDecisionRejectsUnknownProcess(t *testing.T) {
	svc := NewService(newMemoryLedger(), &recordingNotifier{}, nil)

	_, err := svc.Approve(context.Background(), Key{Process: "karate", PeriodID: 1, StudentID: 1})
	require.ErrorIs(t, err, shared.ErrInvalidArgument)

	_, err = svc.Reject(context.Background(), Key{Process: ProcessFees, PeriodID: 0, StudentID: 1}, nil)
	require.ErrorIs(t, err, shared.ErrInvalidArgument)
}

func TestDecisionAuditTrail(t *testing.T) {
	repo := newMemoryLedger()
	audit := &recordingAudit{}
	svc := NewService(repo, &recordingNotifier{}, audit)

	ctx := shared.ContextWithCaller(context.Background(), shared.Caller{UserID: 9})
	_, err := svc.Approve(ctx, testKey())
	require.NoError(t, err)

	require.Len(t, audit.logs, 1)
	require.Equal(t, int64(9), audit.logs[0].ActorID)
	require.Equal(t, "validations:approve", audit.logs[0].Action)
}

type recordingAudit struct {
	logs []shared.AuditLog
}

func (a *recordingAudit) Record(_ context.Context, log shared.AuditLog) error {
	a.logs = append(a.logs, log)
	return nil
}
