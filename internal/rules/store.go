package rules

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Veraticus/spice-statements/internal/common"
	"github.com/Veraticus/spice-statements/internal/model"
)

// Backend persists a rule document.
type Backend interface {
	Load(ctx context.Context) (*Document, error)
	Save(ctx context.Context, doc *Document) error
}

// Store reads the rule base and commits approved learned patterns.
//
// Commits are read-modify-write without locking: when two commits interleave,
// the last one to save wins and the other's additions are lost.
type Store struct {
	backend Backend
	logger  *slog.Logger
}

// NewStore creates a store over the given backend.
func NewStore(backend Backend, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{backend: backend, logger: logger}
}

// Load returns the current rule document.
func (s *Store) Load(ctx context.Context) (*Document, error) {
	return s.backend.Load(ctx)
}

// CommitPatterns reloads the document, sets each approved merchant in the
// learned tier and saves it. Merchants already present are overwritten in place.
func (s *Store) CommitPatterns(ctx context.Context, approved []model.ProposedPattern) (*Document, error) {
	if len(approved) == 0 {
		return nil, common.ErrApprovalNoOp
	}

	doc, err := s.backend.Load(ctx)
	if err != nil {
		return nil, err
	}

	for _, p := range approved {
		if p.Merchant == "" {
			return nil, fmt.Errorf("commit patterns: empty merchant for category %q", p.Category)
		}
		doc.LearnedPatterns.Set(p.Merchant, p.Category)
	}

	if err := s.backend.Save(ctx, doc); err != nil {
		return nil, err
	}

	s.logger.Info("learned patterns committed",
		"count", len(approved),
		"total_learned", len(doc.LearnedPatterns))
	return doc, nil
}
