package issuance

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/titulaflow/titulaflow/internal/shared"
	"github.com/titulaflow/titulaflow/internal/validations"
)

type renderer interface {
	Render(ctx context.Context, kind string, data map[string]any) ([]byte, error)
}

type blobStore interface {
	Save(ctx context.Context, name string, blob []byte) (string, error)
	Open(ctx context.Context, ref string) ([]byte, error)
}

type ledger interface {
	Get(ctx context.Context, key validations.Key) (validations.Record, error)
}

type notifier interface {
	NotifyUser(ctx context.Context, userID int64, title, body string)
}

// AuditPort abstracts audit logging functionality.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service issues certificates against approved validation records. Issue is
// idempotent: once a document is linked, repeat calls return it without
// touching the renderer.
type Service struct {
	repo     Repository
	ledger   ledger
	renderer renderer
	store    blobStore
	notifier notifier
	audit    AuditPort
}

// NewService constructs an issuance service.
func NewService(repo Repository, ledger ledger, renderer renderer, store blobStore, n notifier, audit AuditPort) *Service {
	return &Service{
		repo:     repo,
		ledger:   ledger,
		renderer: renderer,
		store:    store,
		notifier: n,
		audit:    audit,
	}
}

// Issue renders, stores and links one certificate for the approved record at
// (process, period, student). Rendering happens before any write; the final
// link re-checks the record's state, so no half-issued certificate can
// survive a renderer failure or a concurrent rejection.
func (s *Service) Issue(ctx context.Context, key validations.Key, issuerID int64) (Document, error) {
	if !key.Process.Valid() {
		return Document{}, fmt.Errorf("%w: unknown process %q", shared.ErrInvalidArgument, key.Process)
	}
	rec, err := s.ledger.Get(ctx, key)
	if err != nil {
		return Document{}, err
	}
	if rec.DocumentID != nil {
		// Idempotent path: certificate exists, skip rendering entirely.
		return s.repo.GetDocument(ctx, *rec.DocumentID)
	}
	if rec.State != validations.StateApproved {
		return Document{}, fmt.Errorf("%w: not approved", shared.ErrConflict)
	}

	kind := KindFor(key.Process)
	blob, err := s.renderer.Render(ctx, kind, map[string]any{
		"process": string(key.Process),
		"period":  key.PeriodID,
		"student": key.StudentID,
		"issuer":  issuerID,
	})
	if err != nil {
		return Document{}, fmt.Errorf("%w: renderer: %v", shared.ErrUnavailable, err)
	}

	doc := Document{
		ID:        uuid.New(),
		Kind:      kind,
		StudentID: key.StudentID,
		PeriodID:  key.PeriodID,
		IssuerID:  issuerID,
	}
	ref, err := s.store.Save(ctx, fmt.Sprintf("%s.pdf", doc.ID), blob)
	if err != nil {
		return Document{}, fmt.Errorf("%w: storage: %v", shared.ErrUnavailable, err)
	}
	doc.StorageRef = ref

	if err := s.repo.InsertAndLink(ctx, doc, key); err != nil {
		if errors.Is(err, shared.ErrConflict) {
			// Lost a race. If the winner linked a document, return it;
			// otherwise the record left APPROVED and the conflict stands.
			if current, getErr := s.ledger.Get(ctx, key); getErr == nil && current.DocumentID != nil {
				return s.repo.GetDocument(ctx, *current.DocumentID)
			}
		}
		return Document{}, err
	}

	if s.audit != nil {
		_ = s.audit.Record(ctx, shared.AuditLog{
			ActorID:  issuerID,
			Action:   "issuance:issue",
			Entity:   "document",
			EntityID: doc.ID.String(),
			Meta:     map[string]any{"process": key.Process, "student": key.StudentID, "period": key.PeriodID},
		})
	}
	s.notifier.NotifyUser(ctx, key.StudentID, "Constancia emitida",
		fmt.Sprintf("Se emitió tu constancia de %s.", key.Process))
	return doc, nil
}

// GetDocument returns the certificate linked to the record, or NotFound when
// none has been issued.
func (s *Service) GetDocument(ctx context.Context, key validations.Key) (Document, error) {
	if !key.Process.Valid() {
		return Document{}, fmt.Errorf("%w: unknown process %q", shared.ErrInvalidArgument, key.Process)
	}
	rec, err := s.ledger.Get(ctx, key)
	if err != nil {
		return Document{}, err
	}
	if rec.DocumentID == nil {
		return Document{}, fmt.Errorf("%w: no certificate issued", shared.ErrNotFound)
	}
	return s.repo.GetDocument(ctx, *rec.DocumentID)
}

// OpenDocument returns the stored certificate blob alongside its metadata.
func (s *Service) OpenDocument(ctx context.Context, key validations.Key) (Document, []byte, error) {
	doc, err := s.GetDocument(ctx, key)
	if err != nil {
		return Document{}, nil, err
	}
	blob, err := s.store.Open(ctx, doc.StorageRef)
	if err != nil {
		return Document{}, nil, fmt.Errorf("%w: storage: %v", shared.ErrUnavailable, err)
	}
	return doc, blob, nil
}
