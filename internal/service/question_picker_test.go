package service_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/talentsift/recruitex-backend/internal/model"
	"github.com/talentsift/recruitex-backend/internal/service"
)

func TestPickSingleRoleQuotas(t *testing.T) {
	roleID := uuid.New()
	bank := newFakeBank()
	bank.seed(roleID, model.SectionTheory, 15)
	bank.seed(roleID, model.SectionPractical, 6)

	picker := service.NewQuestionPicker(bank)
	questions, err := picker.Pick(context.Background(), []uuid.UUID{roleID})
	require.NoError(t, err)
	require.Len(t, questions, 14)

	for i, q := range questions {
		require.Equal(t, i, q.OrderIndex)
		require.Equal(t, roleID, q.RoleID)
		require.NotEqual(t, uuid.Nil, q.SourceID)
		require.NotEmpty(t, q.QuestionText)
		if i < 10 {
			require.Equal(t, model.SectionTheory, q.Section)
		} else {
			require.Equal(t, model.SectionPractical, q.Section)
		}
	}

	// No bank entry drawn twice.
	seen := make(map[uuid.UUID]bool)
	for _, q := range questions {
		require.False(t, seen[q.SourceID])
		seen[q.SourceID] = true
	}
}

func TestPickTwoRolesSplitsQuotaEvenly(t *testing.T) {
	roleA, roleB := uuid.New(), uuid.New()
	bank := newFakeBank()
	bank.seed(roleA, model.SectionTheory, 8)
	bank.seed(roleA, model.SectionPractical, 3)
	bank.seed(roleB, model.SectionTheory, 8)
	bank.seed(roleB, model.SectionPractical, 3)

	picker := service.NewQuestionPicker(bank)
	questions, err := picker.Pick(context.Background(), []uuid.UUID{roleA, roleB})
	require.NoError(t, err)
	require.Len(t, questions, 14)

	perRole := map[uuid.UUID]map[model.Section]int{
		roleA: {}, roleB: {},
	}
	for i, q := range questions {
		if i < 10 {
			require.Equal(t, model.SectionTheory, q.Section)
		} else {
			require.Equal(t, model.SectionPractical, q.Section)
		}
		perRole[q.RoleID][q.Section]++
	}
	for _, roleID := range []uuid.UUID{roleA, roleB} {
		require.Equal(t, 5, perRole[roleID][model.SectionTheory])
		require.Equal(t, 2, perRole[roleID][model.SectionPractical])
	}
}

func TestPickShortfallReportsRoleAndSection(t *testing.T) {
	roleID := uuid.New()
	bank := newFakeBank()
	bank.seed(roleID, model.SectionTheory, 10)
	bank.seed(roleID, model.SectionPractical, 3)

	picker := service.NewQuestionPicker(bank)
	_, err := picker.Pick(context.Background(), []uuid.UUID{roleID})

	var insufficient *service.InsufficientQuestionsError
	require.ErrorAs(t, err, &insufficient)
	require.Equal(t, roleID, insufficient.RoleID)
	require.Equal(t, model.SectionPractical, insufficient.Section)
	require.Equal(t, 4, insufficient.Need)
	require.Equal(t, 3, insufficient.Have)
}

func TestPickTwoRolesShortfallInSecondRole(t *testing.T) {
	roleA, roleB := uuid.New(), uuid.New()
	bank := newFakeBank()
	bank.seed(roleA, model.SectionTheory, 5)
	bank.seed(roleA, model.SectionPractical, 2)
	bank.seed(roleB, model.SectionTheory, 4)
	bank.seed(roleB, model.SectionPractical, 2)

	picker := service.NewQuestionPicker(bank)
	_, err := picker.Pick(context.Background(), []uuid.UUID{roleA, roleB})

	var insufficient *service.InsufficientQuestionsError
	require.ErrorAs(t, err, &insufficient)
	require.Equal(t, roleB, insufficient.RoleID)
	require.Equal(t, model.SectionTheory, insufficient.Section)
	require.Equal(t, 5, insufficient.Need)
	require.Equal(t, 4, insufficient.Have)
}

func TestPickRejectsBadRoleCount(t *testing.T) {
	picker := service.NewQuestionPicker(newFakeBank())

	_, err := picker.Pick(context.Background(), nil)
	require.ErrorIs(t, err, service.ErrInvalidRoleSelection)

	_, err = picker.Pick(context.Background(), []uuid.UUID{uuid.New(), uuid.New(), uuid.New()})
	require.ErrorIs(t, err, service.ErrInvalidRoleSelection)
}

func TestPickBankErrorPropagates(t *testing.T) {
	bank := newFakeBank()
	bank.err = errors.New("connection refused")

	picker := service.NewQuestionPicker(bank)
	_, err := picker.Pick(context.Background(), []uuid.UUID{uuid.New()})
	require.ErrorIs(t, err, bank.err)
}

// ─── Helpers ───

type fakeBank struct {
	pools map[uuid.UUID]map[model.Section][]model.BankQuestion
	err   error
}

func newFakeBank() *fakeBank {
	return &fakeBank{pools: make(map[uuid.UUID]map[model.Section][]model.BankQuestion)}
}

func (b *fakeBank) seed(roleID uuid.UUID, section model.Section, n int) {
	if b.pools[roleID] == nil {
		b.pools[roleID] = make(map[model.Section][]model.BankQuestion)
	}
	for i := 0; i < n; i++ {
		b.pools[roleID][section] = append(b.pools[roleID][section], model.BankQuestion{
			ID:           uuid.New(),
			RoleID:       roleID,
			Section:      section,
			QuestionText: fmt.Sprintf("%s question %d", section, i+1),
			IsActive:     true,
		})
	}
}

func (b *fakeBank) ListActiveByRoleSection(_ context.Context, roleID uuid.UUID, section model.Section) ([]model.BankQuestion, error) {
	if b.err != nil {
		return nil, b.err
	}
	return append([]model.BankQuestion(nil), b.pools[roleID][section]...), nil
}
