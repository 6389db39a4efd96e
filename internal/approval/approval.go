// Package approval turns a user's selection of proposed patterns into a
// commit against the rule store.
package approval

import (
	"context"
	"fmt"

	"github.com/Veraticus/spice-statements/internal/common"
	"github.com/Veraticus/spice-statements/internal/model"
	"github.com/Veraticus/spice-statements/internal/rules"
)

// Committer persists approved patterns. *rules.Store satisfies it.
type Committer interface {
	CommitPatterns(ctx context.Context, approved []model.ProposedPattern) (*rules.Document, error)
}

// Select returns the proposals whose selection flag is set, in their original order.
func Select(proposed []model.ProposedPattern, selected []bool) ([]model.ProposedPattern, error) {
	if len(proposed) != len(selected) {
		return nil, fmt.Errorf("selection has %d entries for %d proposed patterns", len(selected), len(proposed))
	}

	approved := make([]model.ProposedPattern, 0, len(proposed))
	for i, p := range proposed {
		if selected[i] {
			approved = append(approved, p)
		}
	}
	return approved, nil
}

// Approve commits the selected proposals. When nothing is selected it returns
// common.ErrApprovalNoOp and the committer is never called.
func Approve(ctx context.Context, committer Committer, proposed []model.ProposedPattern, selected []bool) (*rules.Document, error) {
	approved, err := Select(proposed, selected)
	if err != nil {
		return nil, err
	}
	if len(approved) == 0 {
		return nil, common.ErrApprovalNoOp
	}
	return committer.CommitPatterns(ctx, approved)
}

// All selects every proposal.
func All(proposed []model.ProposedPattern) []bool {
	selected := make([]bool, len(proposed))
	for i := range selected {
		selected[i] = true
	}
	return selected
}

// None selects nothing.
func None(proposed []model.ProposedPattern) []bool {
	return make([]bool, len(proposed))
}
