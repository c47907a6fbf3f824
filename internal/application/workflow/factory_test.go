package workflow

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/garyjia/claim-review/internal/domain/claim"
	"github.com/garyjia/claim-review/internal/domain/ledger"
	domainwf "github.com/garyjia/claim-review/internal/domain/workflow"
)

func newClaim(status domainwf.State, twoStage bool) *claim.Claim {
	line, _ := ledger.NewAmountLine(decimal.NewFromInt(5_000_000))
	return &claim.Claim{
		ID:           "c-1",
		Status:       status,
		Terms:        claim.Terms{TwoStage: twoStage, AIAssistanceOpted: true},
		Amounts:      line,
		Verification: claim.VerificationRecord{Status: domainwf.StatePending},
	}
}

func TestClaimMachine_Submission(t *testing.T) {
	tests := []struct {
		name      string
		require   bool
		allocated bool
		want      domainwf.State
	}{
		{"no allocation required", false, false, domainwf.StateVerificationPending},
		{"allocation required and missing", true, false, domainwf.StateAllocationPending},
		{"allocation required and present", true, true, domainwf.StateVerificationPending},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newClaim(domainwf.StateInvited, false)
			if tt.allocated {
				c.Allocation.Verifier = "v-1"
			}
			m := BuildClaimStateMachine(c, ClaimOptions{RequireAllocation: tt.require})

			_, err := Fire(context.Background(), m, domainwf.TriggerSubmit)
			require.NoError(t, err)
			got, err := Fire(context.Background(), m, domainwf.TriggerOpenVerification)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestClaimMachine_AllocateNeedsVerifier(t *testing.T) {
	c := newClaim(domainwf.StateAllocationPending, false)
	m := BuildClaimStateMachine(c, ClaimOptions{RequireAllocation: true})

	_, err := Fire(context.Background(), m, domainwf.TriggerAllocate)
	assert.ErrorIs(t, err, claim.ErrPrecondition)
	assert.ErrorIs(t, err, domainwf.ErrGuardFailed)

	c.Allocation.Verifier = "v-1"
	got, err := Fire(context.Background(), m, domainwf.TriggerAllocate)
	require.NoError(t, err)
	assert.Equal(t, domainwf.StateVerificationPending, got)
}

func TestClaimMachine_VerificationClosed(t *testing.T) {
	tests := []struct {
		name     string
		twoStage bool
		verifier int64
		want     domainwf.State
	}{
		{"two stage goes to admission", true, 4_500_000, domainwf.StateAdmissionPending},
		{"single stage positive accepts", false, 4_500_000, domainwf.StateAccepted},
		{"single stage zero rejects", false, 0, domainwf.StateRejected},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newClaim(domainwf.StateVerificationPending, tt.twoStage)
			require.NoError(t, c.Amounts.SetVerifier(decimal.NewFromInt(tt.verifier), ledger.SourceManual, ""))

			got, err := Fire(context.Background(), BuildClaimStateMachine(c, ClaimOptions{}), domainwf.TriggerVerificationClosed)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestClaimMachine_VerificationClosedWithoutFigure(t *testing.T) {
	c := newClaim(domainwf.StateVerificationPending, false)
	_, err := Fire(context.Background(), BuildClaimStateMachine(c, ClaimOptions{}), domainwf.TriggerVerificationClosed)
	assert.ErrorIs(t, err, claim.ErrPrecondition)
}

func TestClaimMachine_ReopenOnlyTwoStage(t *testing.T) {
	single := newClaim(domainwf.StateAccepted, false)
	_, err := Fire(context.Background(), BuildClaimStateMachine(single, ClaimOptions{}), domainwf.TriggerReopenAdmission)
	assert.ErrorIs(t, err, claim.ErrPrecondition)

	two := newClaim(domainwf.StateRejected, true)
	got, err := Fire(context.Background(), BuildClaimStateMachine(two, ClaimOptions{}), domainwf.TriggerReopenAdmission)
	require.NoError(t, err)
	assert.Equal(t, domainwf.StateAdmissionPending, got)
}

func TestVerificationMachine(t *testing.T) {
	c := newClaim(domainwf.StateVerificationPending, false)
	m := BuildVerificationStateMachine(c)

	_, err := Fire(context.Background(), m, domainwf.TriggerAcceptPlatformFigure)
	assert.ErrorIs(t, err, domainwf.ErrGuardFailed, "no platform figure yet")

	got, err := Fire(context.Background(), m, domainwf.TriggerVerify)
	require.NoError(t, err)
	assert.Equal(t, domainwf.StateOngoing, got)

	_, err = Fire(context.Background(), m, domainwf.TriggerVerify)
	assert.ErrorIs(t, err, domainwf.ErrInvalidTransition)

	_, err = Fire(context.Background(), m, domainwf.TriggerCompleteManual)
	assert.ErrorIs(t, err, domainwf.ErrGuardFailed, "verifier figure must be set first")

	require.NoError(t, c.Amounts.SetVerifier(decimal.NewFromInt(1), ledger.SourceManual, ""))
	got, err = Fire(context.Background(), m, domainwf.TriggerCompleteManual)
	require.NoError(t, err)
	assert.Equal(t, domainwf.StateCompleted, got)
	assert.Empty(t, m.PermittedTriggers())
}

func TestVerificationMachine_PlatformNeedsOptIn(t *testing.T) {
	c := newClaim(domainwf.StateVerificationPending, false)
	c.Terms.AIAssistanceOpted = false
	require.NoError(t, c.Amounts.SetPlatform(decimal.NewFromInt(9), nil))

	_, err := Fire(context.Background(), BuildVerificationStateMachine(c), domainwf.TriggerAcceptPlatformFigure)
	assert.ErrorIs(t, err, claim.ErrPrecondition)
}

func TestAdmissionMachine_GatedOnVerification(t *testing.T) {
	c := newClaim(domainwf.StateAdmissionPending, true)
	c.Admission = &claim.AdmissionRecord{Status: domainwf.StatePending}

	for _, trigger := range []domainwf.Trigger{domainwf.TriggerRecheck, domainwf.TriggerAcceptVerifierFigure} {
		_, err := Fire(context.Background(), BuildAdmissionStateMachine(c), trigger)
		assert.ErrorIs(t, err, claim.ErrPrecondition, trigger)
	}

	c.Verification.Status = domainwf.StateCompleted
	m := BuildAdmissionStateMachine(c)
	got, err := Fire(context.Background(), m, domainwf.TriggerRecheck)
	require.NoError(t, err)
	assert.Equal(t, domainwf.StateOngoing, got)

	require.NoError(t, c.Amounts.SetAdmittor(decimal.NewFromInt(3), ledger.SourceManual, ""))
	got, err = Fire(context.Background(), m, domainwf.TriggerFinalize)
	require.NoError(t, err)
	assert.Equal(t, domainwf.StateCompleted, got)

	got, err = Fire(context.Background(), m, domainwf.TriggerRecheck)
	require.NoError(t, err)
	assert.Equal(t, domainwf.StateOngoing, got)
}
