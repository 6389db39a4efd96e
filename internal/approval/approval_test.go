package approval

import (
	"context"
	"errors"
	"testing"

	"github.com/Veraticus/spice-statements/internal/common"
	"github.com/Veraticus/spice-statements/internal/model"
	"github.com/Veraticus/spice-statements/internal/rules"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var proposed = []model.ProposedPattern{
	{Merchant: "tesco", Category: "Groceries"},
	{Merchant: "netflix", Category: "Subscriptions"},
}

type recordingCommitter struct {
	err     error
	commits [][]model.ProposedPattern
}

func (r *recordingCommitter) CommitPatterns(_ context.Context, approved []model.ProposedPattern) (*rules.Document, error) {
	r.commits = append(r.commits, approved)
	if r.err != nil {
		return nil, r.err
	}
	doc := rules.NewDocument()
	for _, p := range approved {
		doc.LearnedPatterns.Set(p.Merchant, p.Category)
	}
	return doc, nil
}

func TestSelect(t *testing.T) {
	tests := []struct {
		name     string
		selected []bool
		want     []model.ProposedPattern
		wantErr  bool
	}{
		{"first only", []bool{true, false}, []model.ProposedPattern{{Merchant: "tesco", Category: "Groceries"}}, false},
		{"all", []bool{true, true}, proposed, false},
		{"none", []bool{false, false}, []model.ProposedPattern{}, false},
		{"short selection", []bool{true}, nil, true},
		{"long selection", []bool{true, true, true}, nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Select(proposed, tt.selected)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestApproveCommitsSelection(t *testing.T) {
	committer := &recordingCommitter{}

	doc, err := Approve(context.Background(), committer, proposed, []bool{true, false})
	require.NoError(t, err)

	require.Len(t, committer.commits, 1)
	assert.Equal(t, []model.ProposedPattern{{Merchant: "tesco", Category: "Groceries"}}, committer.commits[0])
	assert.Len(t, doc.LearnedPatterns, 1)
}

func TestApproveNothingSelectedDoesNotCommit(t *testing.T) {
	committer := &recordingCommitter{}

	_, err := Approve(context.Background(), committer, proposed, None(proposed))
	require.ErrorIs(t, err, common.ErrApprovalNoOp)
	assert.Empty(t, committer.commits)

	_, err = Approve(context.Background(), committer, nil, nil)
	require.ErrorIs(t, err, common.ErrApprovalNoOp)
	assert.Empty(t, committer.commits)
}

func TestApprovePropagatesCommitErrors(t *testing.T) {
	boom := errors.New("disk full")
	committer := &recordingCommitter{err: boom}

	_, err := Approve(context.Background(), committer, proposed, All(proposed))
	require.ErrorIs(t, err, boom)
	require.Len(t, committer.commits, 1)
	assert.Equal(t, proposed, committer.commits[0])
}

func TestApproveWithRuleStore(t *testing.T) {
	fs := afero.NewMemMapFs()
	original := `{"account_terms": {}, "learned_patterns": {}, "categories": {}}`
	require.NoError(t, afero.WriteFile(fs, "/categories.json", []byte(original), 0o600))
	store := rules.NewStore(rules.NewFileBackend(fs, "/categories.json"), nil)

	_, err := Approve(context.Background(), store, proposed, []bool{false, false})
	require.ErrorIs(t, err, common.ErrApprovalNoOp)
	data, err := afero.ReadFile(fs, "/categories.json")
	require.NoError(t, err)
	assert.Equal(t, original, string(data))

	doc, err := Approve(context.Background(), store, proposed, []bool{true, false})
	require.NoError(t, err)
	assert.Equal(t, rules.Mapping{{Key: "tesco", Category: "Groceries"}}, doc.LearnedPatterns)
}
