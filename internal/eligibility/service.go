package eligibility

import (
	"context"
	"fmt"
	"sort"

	"golang.org/x/sync/singleflight"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/titulaflow/titulaflow/internal/legacy"
	"github.com/titulaflow/titulaflow/internal/shared"
	"github.com/titulaflow/titulaflow/internal/validations"
)

type directory interface {
	LookupStudent(ctx context.Context, studentID int64) (*legacy.StudentInfo, error)
}

// Service derives downstream candidate pools from upstream approvals.
type Service struct {
	repo      Repository
	directory directory
	collator  *collate.Collator
	flight    singleflight.Group
}

// NewService constructs an eligibility service.
func NewService(repo Repository, dir directory) *Service {
	return &Service{
		repo:      repo,
		directory: dir,
		collator:  collate.New(language.Spanish, collate.IgnoreCase),
	}
}

// EligibleFor lists the students whose upstream prerequisites for the given
// process are all APPROVED in the period, enriched from the legacy source.
// The enrichment is read-only; an outage degrades to id-only candidates and
// never changes who is eligible.
func (s *Service) EligibleFor(ctx context.Context, process validations.Process, periodID int64) ([]Candidate, error) {
	if !process.Valid() {
		return nil, fmt.Errorf("%w: unknown process %q", shared.ErrInvalidArgument, process)
	}
	prereqs := PrerequisitesFor(process)
	if len(prereqs) == 0 {
		return nil, fmt.Errorf("%w: process %q has no upstream prerequisite", shared.ErrInvalidArgument, process)
	}
	// Offices tend to refresh the same list simultaneously; collapse
	// identical in-flight computations.
	key := fmt.Sprintf("%s:%d", process, periodID)
	result, err, _ := s.flight.Do(key, func() (any, error) {
		ids, err := s.repo.ApprovedForAll(ctx, prereqs, periodID)
		if err != nil {
			return nil, err
		}
		candidates := make([]Candidate, 0, len(ids))
		for _, id := range ids {
			c := Candidate{StudentID: id}
			info, err := s.directory.LookupStudent(ctx, id)
			if err == nil && info != nil {
				c.Name = info.Name
				c.CareerID = info.CareerID
				c.Program = info.Program
			}
			candidates = append(candidates, c)
		}
		s.sortCandidates(candidates)
		return candidates, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]Candidate), nil
}

// ListStanding reports the tri-state standing of every student with at least
// one prerequisite row for the process: missing when some prerequisite was
// never submitted, rejected when any was rejected, pending otherwise, and
// approved only when all prerequisites are approved.
func (s *Service) ListStanding(ctx context.Context, process validations.Process, periodID int64) ([]Standing, error) {
	if !process.Valid() {
		return nil, fmt.Errorf("%w: unknown process %q", shared.ErrInvalidArgument, process)
	}
	prereqs := PrerequisitesFor(process)
	if len(prereqs) == 0 {
		return nil, fmt.Errorf("%w: process %q has no upstream prerequisite", shared.ErrInvalidArgument, process)
	}
	byStudent, err := s.repo.StandingRows(ctx, prereqs, periodID)
	if err != nil {
		return nil, err
	}
	out := make([]Standing, 0, len(byStudent))
	for studentID, states := range byStudent {
		out = append(out, Standing{StudentID: studentID, Standing: computeStanding(prereqs, states)})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StudentID < out[j].StudentID })
	return out, nil
}

func computeStanding(prereqs []validations.Process, states map[validations.Process]validations.ValidationState) StandingValue {
	rejected := false
	pending := false
	for _, p := range prereqs {
		state, ok := states[p]
		if !ok {
			return StandingMissing
		}
		switch state {
		case validations.StateRejected:
			rejected = true
		case validations.StatePending:
			pending = true
		}
	}
	if rejected {
		return StandingRejected
	}
	if pending {
		return StandingPending
	}
	return StandingApproved
}

// sortCandidates orders named candidates under the Spanish collator so accented
// names land where an office clerk expects them; unnamed ones sort last by id.
func (s *Service) sortCandidates(candidates []Candidate) {
	sort.SliceStable(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		switch {
		case a.Name == "" && b.Name == "":
			return a.StudentID < b.StudentID
		case a.Name == "":
			return false
		case b.Name == "":
			return true
		default:
			return s.collator.CompareString(a.Name, b.Name) < 0
		}
	})
}
