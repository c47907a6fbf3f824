// Package advisor suggests a platform figure for a claim from its ledger and
// outstanding-balance documents.
package advisor

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/garyjia/claim-review/internal/application/port"
	"github.com/garyjia/claim-review/internal/domain/claim"
)

// DefaultFactor is the confidence factor applied to the claimed amount
var DefaultFactor = decimal.RequireFromString("0.9")

// RuleBased is a deterministic Advisor: the same request always yields the
// same suggestion.
type RuleBased struct {
	factor decimal.Decimal
	vocab  Vocabulary
	store  port.DocumentStore
}

var _ port.Advisor = (*RuleBased)(nil)

// Option configures a RuleBased advisor
type Option func(*RuleBased)

// WithFactor overrides the confidence factor
func WithFactor(f decimal.Decimal) Option {
	return func(a *RuleBased) {
		a.factor = f
	}
}

// WithVocabulary overrides the remark wording
func WithVocabulary(v Vocabulary) Option {
	return func(a *RuleBased) {
		a.vocab = v
	}
}

// WithDocumentStore makes the advisor confirm qualifying documents can be
// fetched before counting them
func WithDocumentStore(s port.DocumentStore) Option {
	return func(a *RuleBased) {
		a.store = s
	}
}

// NewRuleBased creates an advisor with the default factor and vocabulary
func NewRuleBased(opts ...Option) *RuleBased {
	a := &RuleBased{factor: DefaultFactor, vocab: DefaultVocabulary()}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

func (a *RuleBased) Suggest(ctx context.Context, req port.SuggestRequest) (*port.Suggestion, error) {
	if !req.AIAssistanceOpted {
		return nil, fmt.Errorf("%w: assistance not opted for claim %s", claim.ErrAdvisorUnavailable, req.ClaimID)
	}

	docs, unreadable, err := a.qualifying(ctx, req.Documents)
	if err != nil {
		return nil, err
	}
	if len(docs) == 0 {
		return nil, fmt.Errorf("%w: no ledger or outstanding-balance document for claim %s", claim.ErrAdvisorUnavailable, req.ClaimID)
	}

	amount := req.ClaimedAmount.Mul(a.factor).Round(2)
	return &port.Suggestion{Amount: amount, Remarks: a.remarks(req.ClaimedAmount, amount, docs, unreadable)}, nil
}

func (a *RuleBased) qualifying(ctx context.Context, refs []claim.DocumentRef) ([]claim.DocumentRef, bool, error) {
	var out []claim.DocumentRef
	unreadable := false
	for _, ref := range refs {
		if !ref.Kind.Reconcilable() {
			continue
		}
		if a.store != nil {
			doc, err := a.store.Fetch(ctx, ref.ID)
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, false, ctxErr
			}
			if err != nil || doc == nil || len(doc.Content) == 0 {
				unreadable = true
				continue
			}
		}
		out = append(out, ref)
	}
	return out, unreadable, nil
}

func (a *RuleBased) remarks(claimed, suggested decimal.Decimal, docs []claim.DocumentRef, unreadable bool) []string {
	hasLedger, hasBalance := false, false
	for _, d := range docs {
		switch d.Kind {
		case claim.DocumentLedger:
			hasLedger = true
		case claim.DocumentOutstandingBalance:
			hasBalance = true
		}
	}

	var keys []string
	if !suggested.Equal(claimed) {
		keys = append(keys, RemarkPrincipalMismatch)
	}
	if !hasLedger {
		keys = append(keys, RemarkLedgerMissing)
	}
	if !hasBalance {
		keys = append(keys, RemarkBalanceUnconfirmed)
	}
	if unreadable {
		keys = append(keys, RemarkDocumentsUnreadable)
	}
	if len(keys) == 0 {
		keys = append(keys, RemarkFiguresReconciled)
	}

	out := make([]string, len(keys))
	for i, k := range keys {
		out[i] = a.vocab.Text(k)
	}
	return out
}
