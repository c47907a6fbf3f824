package audit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAction_Taxonomy(t *testing.T) {
	for _, a := range Actions() {
		t.Run(a.String(), func(t *testing.T) {
			assert.True(t, a.IsValid())
			assert.NotEmpty(t, a.Category())
			assert.NotEmpty(t, a.Icon())
		})
	}
	assert.Len(t, Actions(), 7)
	assert.False(t, Action("DELETE_CLAIM").IsValid())
}

func TestAction_UnknownPanics(t *testing.T) {
	assert.Panics(t, func() { _ = Action("DELETE_CLAIM").Icon() })
	assert.Panics(t, func() { _ = Draft{Action: "X", Actioner: Actioner{Label: "Verifier"}}.Validate() })
	assert.PanicsWithValue(t, `audit: unknown action "DELETE_CLAIM"`, func() {
		_ = Draft{Action: "DELETE_CLAIM", Actioner: Actioner{Label: "Verifier"}}.Validate()
	})
}

func TestDraft_Validate(t *testing.T) {
	assert.NoError(t, Draft{Action: ActionClaimVerification, Actioner: Actioner{Label: "Verifier"}}.Validate())
	assert.Error(t, Draft{Action: ActionClaimVerification}.Validate())
}

func sealed(t *testing.T, n int) []Entry {
	t.Helper()
	base := time.Date(2026, 1, 2, 10, 0, 0, 0, time.UTC)
	var out []Entry
	var prev *Entry
	for i := 0; i < n; i++ {
		e, err := Seal(Entry{
			ID:        string(rune('a' + i)),
			ClaimID:   "claim-1",
			Action:    ActionClaimVerification,
			Actioner:  Actioner{Label: "Verifier", ID: "v-1"},
			Timestamp: base.Add(time.Duration(i) * time.Minute),
			Comment:   "step",
		}, prev)
		require.NoError(t, err)
		out = append(out, e)
		prev = &out[len(out)-1]
	}
	return out
}

func TestSeal_LinksEntries(t *testing.T) {
	entries := sealed(t, 3)

	assert.Equal(t, uint64(1), entries[0].Seq)
	assert.Empty(t, entries[0].PrevHash)
	assert.Equal(t, uint64(3), entries[2].Seq)
	assert.Equal(t, entries[1].Hash, entries[2].PrevHash)
	assert.NoError(t, VerifyChain(entries))
}

func TestSeal_ClampsTimestamp(t *testing.T) {
	first := sealed(t, 1)[0]
	second, err := Seal(Entry{
		ClaimID:   "claim-1",
		Action:    ActionViewingOfClaims,
		Actioner:  Actioner{Label: "Claimant"},
		Timestamp: first.Timestamp.Add(-time.Hour),
	}, &first)
	require.NoError(t, err)
	assert.Equal(t, first.Timestamp, second.Timestamp)
}

func TestVerifyChain_DetectsTampering(t *testing.T) {
	tests := []struct {
		name   string
		tamper func([]Entry)
	}{
		{"comment edited", func(e []Entry) { e[1].Comment = "rewritten" }},
		{"entry removed", func(e []Entry) { copy(e[1:], e[2:]) }},
		{"prev hash swapped", func(e []Entry) { e[2].PrevHash = e[0].Hash }},
		{"seq gap", func(e []Entry) { e[2].Seq = 5 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entries := sealed(t, 3)
			tt.tamper(entries)
			assert.ErrorIs(t, VerifyChain(entries), ErrChainBroken)
		})
	}
}
