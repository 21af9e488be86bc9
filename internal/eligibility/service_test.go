package eligibility

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/titulaflow/titulaflow/internal/legacy"
	"github.com/titulaflow/titulaflow/internal/shared"
	"github.com/titulaflow/titulaflow/internal/validations"
)

type stubEligibilityRepo struct {
	approved []int64
	standing map[int64]map[validations.Process]validations.ValidationState
}

func (r *stubEligibilityRepo) ApprovedForAll(_ context.Context, _ []validations.Process, _ int64) ([]int64, error) {
	return r.approved, nil
}

func (r *stubEligibilityRepo) StandingRows(_ context.Context, _ []validations.Process, _ int64) (map[int64]map[validations.Process]validations.ValidationState, error) {
	return r.standing, nil
}

type stubDirectory struct {
	students map[int64]*legacy.StudentInfo
	down     bool
}

func (d *stubDirectory) LookupStudent(_ context.Context, id int64) (*legacy.StudentInfo, error) {
	if d.down {
		return nil, errors.New("legacy source unreachable")
	}
	return d.students[id], nil
}

func TestEligibleForSortsNamesWithSpanishCollation(t *testing.T) {
	repo := &stubEligibilityRepo{approved: []int64{1, 2, 3}}
	dir := &stubDirectory{students: map[int64]*legacy.StudentInfo{
		1: {ID: 1, Name: "Núñez, Beto"},
		2: {ID: 2, Name: "Ángel, Zoe"},
		3: {ID: 3, Name: "Castro, Ana"},
	}}
	svc := NewService(repo, dir)

	candidates, err := svc.EligibleFor(context.Background(), validations.ProcessModality, 1)
	require.NoError(t, err)
	require.Len(t, candidates, 3)
	// Ángel sorts before Castro under es collation, not after Z.
	require.Equal(t, "Ángel, Zoe", candidates[0].Name)
	require.Equal(t, "Castro, Ana", candidates[1].Name)
	require.Equal(t, "Núñez, Beto", candidates[2].Name)
}

func TestEligibleForDegradesWhenLegacyIsDown(t *testing.T) {
	repo := &stubEligibilityRepo{approved: []int64{9, 4}}
	svc := NewService(repo, &stubDirectory{down: true})

	candidates, err := svc.EligibleFor(context.Background(), validations.ProcessEnglish, 1)
	require.NoError(t, err)
	require.Len(t, candidates, 2)
	// Unnamed candidates fall back to id order.
	require.Equal(t, int64(4), candidates[0].StudentID)
	require.Equal(t, int64(9), candidates[1].StudentID)
	require.Empty(t, candidates[0].Name)
}

func TestEligibleForRejectsProcessWithoutPrerequisites(t *testing.T) {
	svc := NewService(&stubEligibilityRepo{}, &stubDirectory{})

	_, err := svc.EligibleFor(context.Background(), validations.ProcessFees, 1)
	require.ErrorIs(t, err, shared.ErrInvalidArgument)

	_, err = svc.EligibleFor(context.Background(), "padel", 1)
	require.ErrorIs(t, err, shared.ErrInvalidArgument)
}

func TestListStandingDistinguishesMissingFromRejected(t *testing.T) {
	repo := &stubEligibilityRepo{standing: map[int64]map[validations.Process]validations.ValidationState{
		// All prerequisites approved.
		1: {validations.ProcessGrades: validations.StateApproved, validations.ProcessFees: validations.StateApproved},
		// Fees rejected wins over pending grades.
		2: {validations.ProcessGrades: validations.StatePending, validations.ProcessFees: validations.StateRejected},
		// Grades row missing entirely.
		3: {validations.ProcessFees: validations.StateApproved},
		// Everything submitted, nothing decided.
		4: {validations.ProcessGrades: validations.StatePending, validations.ProcessFees: validations.StatePending},
	}}
	svc := NewService(repo, &stubDirectory{})

	standings, err := svc.ListStanding(context.Background(), validations.ProcessModality, 1)
	require.NoError(t, err)
	require.Len(t, standings, 4)

	byStudent := make(map[int64]StandingValue, len(standings))
	for _, s := range standings {
		byStudent[s.StudentID] = s.Standing
	}
	require.Equal(t, StandingApproved, byStudent[1])
	require.Equal(t, StandingRejected, byStudent[2])
	require.Equal(t, StandingMissing, byStudent[3])
	require.Equal(t, StandingPending, byStudent[4])
}

func TestPrerequisitesForModalityNeedsGradesAndFees(t *testing.T) {
	prereqs := PrerequisitesFor(validations.ProcessModality)
	require.ElementsMatch(t, []validations.Process{validations.ProcessGrades, validations.ProcessFees}, prereqs)
	require.Nil(t, PrerequisitesFor(validations.ProcessFees))
}
