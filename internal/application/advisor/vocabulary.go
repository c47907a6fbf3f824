package advisor

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Remark keys of the fixed vocabulary
const (
	RemarkPrincipalMismatch   = "principal_mismatch"
	RemarkLedgerMissing       = "ledger_missing"
	RemarkBalanceUnconfirmed  = "balance_unconfirmed"
	RemarkDocumentsUnreadable = "documents_unreadable"
	RemarkFiguresReconciled   = "figures_reconciled"
)

// Vocabulary maps remark keys to the wording shown to reviewers
type Vocabulary struct {
	Remarks map[string]string `yaml:"remarks"`
}

// DefaultVocabulary returns the built-in English wording
func DefaultVocabulary() Vocabulary {
	return Vocabulary{Remarks: map[string]string{
		RemarkPrincipalMismatch:   "Mismatch between Principal Amount claimed and supporting documents",
		RemarkLedgerMissing:       "Ledger statement not provided; figure derived from balance confirmation",
		RemarkBalanceUnconfirmed:  "Outstanding balance confirmation not provided",
		RemarkDocumentsUnreadable: "Some supporting documents could not be read",
		RemarkFiguresReconciled:   "Claimed amount reconciles with supporting documents",
	}}
}

// LoadVocabulary reads a YAML vocabulary file. Keys missing from the file keep
// their default wording; unknown keys are rejected.
func LoadVocabulary(path string) (Vocabulary, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Vocabulary{}, fmt.Errorf("failed to read vocabulary file: %w", err)
	}

	var loaded Vocabulary
	if err := yaml.Unmarshal(data, &loaded); err != nil {
		return Vocabulary{}, fmt.Errorf("failed to unmarshal vocabulary: %w", err)
	}

	vocab := DefaultVocabulary()
	for key, text := range loaded.Remarks {
		if _, ok := vocab.Remarks[key]; !ok {
			return Vocabulary{}, fmt.Errorf("unknown remark key %q", key)
		}
		if text != "" {
			vocab.Remarks[key] = text
		}
	}
	return vocab, nil
}

// Text returns the wording of key
func (v Vocabulary) Text(key string) string {
	if text, ok := v.Remarks[key]; ok {
		return text
	}
	return key
}
