package service

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"github.com/talentsift/recruitex-backend/internal/model"
)

// Per-exam question quotas. A single-role exam draws the full set from one
// role; a two-role exam splits the quota evenly so both roles are assessed.
const (
	theoryQuotaSingle    = 10
	practicalQuotaSingle = 4
	theoryQuotaPair      = 5
	practicalQuotaPair   = 2
)

// QuestionBankStore is the slice of the question repository the picker needs.
type QuestionBankStore interface {
	ListActiveByRoleSection(ctx context.Context, roleID uuid.UUID, section model.Section) ([]model.BankQuestion, error)
}

// QuestionPicker assembles a frozen question set for a new exam session.
type QuestionPicker struct {
	bank   QuestionBankStore
	newRng func() *rand.Rand
}

// NewQuestionPicker creates a new QuestionPicker.
func NewQuestionPicker(bank QuestionBankStore) *QuestionPicker {
	return &QuestionPicker{
		bank: bank,
		newRng: func() *rand.Rand {
			return rand.New(rand.NewSource(time.Now().UnixNano()))
		},
	}
}

// Pick draws the quota of theory and practical questions for the given roles
// and returns them as ordered snapshots: all theory questions first, then all
// practical, each section shuffled across roles. It touches no exam state, so
// a quota shortfall aborts the start with nothing to roll back.
func (p *QuestionPicker) Pick(ctx context.Context, roleIDs []uuid.UUID) ([]model.ExamQuestion, error) {
	if len(roleIDs) == 0 || len(roleIDs) > 2 {
		return nil, ErrInvalidRoleSelection
	}

	theoryQuota, practicalQuota := theoryQuotaSingle, practicalQuotaSingle
	if len(roleIDs) == 2 {
		theoryQuota, practicalQuota = theoryQuotaPair, practicalQuotaPair
	}

	rng := p.newRng()

	var theory, practical []model.ExamQuestion
	for _, roleID := range roleIDs {
		picked, err := p.pickForRole(ctx, rng, roleID, model.SectionTheory, theoryQuota)
		if err != nil {
			return nil, err
		}
		theory = append(theory, picked...)

		picked, err = p.pickForRole(ctx, rng, roleID, model.SectionPractical, practicalQuota)
		if err != nil {
			return nil, err
		}
		practical = append(practical, picked...)
	}

	// Interleave roles within each section but never across sections;
	// theory always precedes practical.
	rng.Shuffle(len(theory), func(i, j int) { theory[i], theory[j] = theory[j], theory[i] })
	rng.Shuffle(len(practical), func(i, j int) { practical[i], practical[j] = practical[j], practical[i] })

	out := append(theory, practical...)
	for i := range out {
		out[i].OrderIndex = i
	}
	return out, nil
}

func (p *QuestionPicker) pickForRole(ctx context.Context, rng *rand.Rand, roleID uuid.UUID, section model.Section, quota int) ([]model.ExamQuestion, error) {
	pool, err := p.bank.ListActiveByRoleSection(ctx, roleID, section)
	if err != nil {
		return nil, fmt.Errorf("list %s questions: %w", section, err)
	}
	if len(pool) < quota {
		return nil, &InsufficientQuestionsError{
			RoleID:  roleID,
			Section: section,
			Need:    quota,
			Have:    len(pool),
		}
	}

	rng.Shuffle(len(pool), func(i, j int) { pool[i], pool[j] = pool[j], pool[i] })

	out := make([]model.ExamQuestion, 0, quota)
	for _, q := range pool[:quota] {
		out = append(out, model.ExamQuestion{
			SourceID:     q.ID,
			RoleID:       q.RoleID,
			Section:      q.Section,
			QuestionText: q.QuestionText,
		})
	}
	return out, nil
}
