// Package ledger holds the four parallel amount figures of a claim line and
// the remarks attached to each of them.
package ledger

import (
	"errors"
	"fmt"
	"slices"

	"github.com/shopspring/decimal"
)

var (
	// ErrFigureLocked is returned when a stage figure is written a second time
	// without being cleared by a recheck first
	ErrFigureLocked = errors.New("figure already set")

	// ErrNegativeAmount is returned for amounts below zero
	ErrNegativeAmount = errors.New("amount must not be negative")
)

// Source records where a figure was taken from
type Source string

const (
	SourceNone      Source = ""
	SourcePlatform  Source = "PLATFORM"
	SourceVerifier  Source = "VERIFIER"
	SourceManual    Source = "MANUAL"
	SourceSubmitter Source = "SUBMITTER"
)

// AmountLine is the figure set of one claim. The submitter figure is fixed at
// submission, the others start null and are filled by their stage.
type AmountLine struct {
	AsPerSubmitter decimal.Decimal     `json:"as_per_submitter"`
	AsPerPlatform  decimal.NullDecimal `json:"as_per_platform"`
	AsPerVerifier  decimal.NullDecimal `json:"as_per_verifier"`
	AsPerAdmittor  decimal.NullDecimal `json:"as_per_admittor"`

	PlatformRemarks []string `json:"platform_remarks,omitempty"`
	VerifierRemarks string   `json:"verifier_remarks,omitempty"`
	AdmittorRemarks string   `json:"admittor_remarks,omitempty"`

	VerifierSource Source `json:"verifier_source,omitempty"`
	AdmittorSource Source `json:"admittor_source,omitempty"`

	// Stamp changes on every manual action so that late advisor results can
	// detect they were computed against an outdated line.
	Stamp uint64 `json:"stamp"`
}

// NewAmountLine creates a line with the submitter figure fixed
func NewAmountLine(submitted decimal.Decimal) (AmountLine, error) {
	if submitted.IsNegative() {
		return AmountLine{}, fmt.Errorf("%w: submitted %s", ErrNegativeAmount, submitted)
	}
	return AmountLine{AsPerSubmitter: submitted}, nil
}

// Touch marks the line as changed by a human action
func (l *AmountLine) Touch() {
	l.Stamp++
}

// SetPlatform records an advisor suggestion. A newer suggestion replaces an
// older one as long as the verifier figure is still open.
func (l *AmountLine) SetPlatform(amount decimal.Decimal, remarks []string) error {
	if amount.IsNegative() {
		return fmt.Errorf("%w: platform %s", ErrNegativeAmount, amount)
	}
	if l.AsPerVerifier.Valid {
		return fmt.Errorf("%w: verifier figure already decided", ErrFigureLocked)
	}
	l.AsPerPlatform = decimal.NewNullDecimal(amount)
	l.PlatformRemarks = slices.Clone(remarks)
	l.Stamp++
	return nil
}

// SetVerifier writes the verifier figure once
func (l *AmountLine) SetVerifier(amount decimal.Decimal, source Source, remarks string) error {
	if amount.IsNegative() {
		return fmt.Errorf("%w: verifier %s", ErrNegativeAmount, amount)
	}
	if l.AsPerVerifier.Valid {
		return fmt.Errorf("%w: verifier", ErrFigureLocked)
	}
	l.AsPerVerifier = decimal.NewNullDecimal(amount)
	l.VerifierSource = source
	l.VerifierRemarks = remarks
	l.Stamp++
	return nil
}

// SetAdmittor writes the admittor figure once per review round
func (l *AmountLine) SetAdmittor(amount decimal.Decimal, source Source, remarks string) error {
	if amount.IsNegative() {
		return fmt.Errorf("%w: admittor %s", ErrNegativeAmount, amount)
	}
	if l.AsPerAdmittor.Valid {
		return fmt.Errorf("%w: admittor", ErrFigureLocked)
	}
	l.AsPerAdmittor = decimal.NewNullDecimal(amount)
	l.AdmittorSource = source
	l.AdmittorRemarks = remarks
	l.Stamp++
	return nil
}

// ClearAdmittor resets only the admission outcome. Upstream figures stay.
func (l *AmountLine) ClearAdmittor() {
	l.AsPerAdmittor = decimal.NullDecimal{}
	l.AdmittorSource = SourceNone
	l.AdmittorRemarks = ""
	l.Stamp++
}

// VerifiedBase returns the figure admission builds on: the verifier figure,
// falling back to the platform figure.
func (l AmountLine) VerifiedBase() (decimal.Decimal, Source, bool) {
	if l.AsPerVerifier.Valid {
		return l.AsPerVerifier.Decimal, SourceVerifier, true
	}
	if l.AsPerPlatform.Valid {
		return l.AsPerPlatform.Decimal, SourcePlatform, true
	}
	return decimal.Zero, SourceNone, false
}

// Final returns the figure that decides the claim: the admittor figure when
// present, otherwise the verifier figure.
func (l AmountLine) Final() decimal.NullDecimal {
	if l.AsPerAdmittor.Valid {
		return l.AsPerAdmittor
	}
	return l.AsPerVerifier
}

// Clone returns a deep copy
func (l AmountLine) Clone() AmountLine {
	out := l
	out.PlatformRemarks = slices.Clone(l.PlatformRemarks)
	return out
}
