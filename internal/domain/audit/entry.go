// Package audit defines the append-only claim audit trail: the action
// taxonomy, entries and their hash chain.
package audit

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// ErrChainBroken is returned when stored entries fail chain verification
var ErrChainBroken = errors.New("audit chain broken")

// Actioner identifies who performed an audited action
type Actioner struct {
	Label string `json:"label"` // e.g. "Verifier", "Platform AI"
	ID    string `json:"id,omitempty"`
	Name  string `json:"name,omitempty"`
}

// Entry is one immutable audit record. Seq, PrevHash and Hash are assigned by
// the log on append.
type Entry struct {
	ID        string    `json:"id"`
	ClaimID   string    `json:"claim_id"`
	Seq       uint64    `json:"seq"`
	Action    Action    `json:"action"`
	Actioner  Actioner  `json:"actioner"`
	Timestamp time.Time `json:"timestamp"`
	Comment   string    `json:"comment"`
	PrevHash  string    `json:"prev_hash"`
	Hash      string    `json:"hash"`
}

// Draft is the caller-supplied part of an entry
type Draft struct {
	Action   Action
	Actioner Actioner
	Comment  string
}

// Validate panics on an action outside the taxonomy and rejects a missing actioner
func (d Draft) Validate() error {
	if !d.Action.IsValid() {
		panic(fmt.Sprintf("audit: unknown action %q", d.Action))
	}
	if d.Actioner.Label == "" {
		return fmt.Errorf("audit entry %s: actioner label is required", d.Action)
	}
	return nil
}

// envelope fixes the hashed fields and their order
type envelope struct {
	ClaimID   string   `json:"claim_id"`
	Seq       uint64   `json:"seq"`
	Action    Action   `json:"action"`
	Actioner  Actioner `json:"actioner"`
	Timestamp string   `json:"timestamp"`
	Comment   string   `json:"comment"`
	PrevHash  string   `json:"prev_hash"`
}

// ComputeHash returns the SHA-256 of the entry content chained to PrevHash
func ComputeHash(e Entry) (string, error) {
	data, err := json.Marshal(envelope{
		ClaimID:   e.ClaimID,
		Seq:       e.Seq,
		Action:    e.Action,
		Actioner:  e.Actioner,
		Timestamp: e.Timestamp.UTC().Format(time.RFC3339Nano),
		Comment:   e.Comment,
		PrevHash:  e.PrevHash,
	})
	if err != nil {
		return "", fmt.Errorf("marshal audit envelope: %w", err)
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}

// Seal links e after prev (nil for the first entry): it assigns Seq, clamps
// the timestamp so it never goes backwards, and computes the hashes.
func Seal(e Entry, prev *Entry) (Entry, error) {
	e.Seq = 1
	e.PrevHash = ""
	e.Timestamp = e.Timestamp.UTC()
	if prev != nil {
		e.Seq = prev.Seq + 1
		e.PrevHash = prev.Hash
		if e.Timestamp.Before(prev.Timestamp) {
			e.Timestamp = prev.Timestamp
		}
	}

	hash, err := ComputeHash(e)
	if err != nil {
		return Entry{}, err
	}
	e.Hash = hash
	return e, nil
}

// VerifyChain checks that entries, in seq order, form an intact chain
func VerifyChain(entries []Entry) error {
	var prev *Entry
	for i := range entries {
		e := entries[i]
		wantSeq, wantPrev := uint64(1), ""
		if prev != nil {
			wantSeq, wantPrev = prev.Seq+1, prev.Hash
			if e.Timestamp.Before(prev.Timestamp) {
				return fmt.Errorf("%w: entry %d timestamp goes backwards", ErrChainBroken, e.Seq)
			}
		}
		if e.Seq != wantSeq {
			return fmt.Errorf("%w: expected seq %d, got %d", ErrChainBroken, wantSeq, e.Seq)
		}
		if e.PrevHash != wantPrev {
			return fmt.Errorf("%w: entry %d prev hash mismatch", ErrChainBroken, e.Seq)
		}
		hash, err := ComputeHash(e)
		if err != nil {
			return err
		}
		if hash != e.Hash {
			return fmt.Errorf("%w: entry %d content hash mismatch", ErrChainBroken, e.Seq)
		}
		prev = &entries[i]
	}
	return nil
}
