package ledger

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewAmountLine(t *testing.T) {
	line, err := NewAmountLine(decimal.NewFromInt(5_000_000))
	require.NoError(t, err)
	assert.True(t, line.AsPerSubmitter.Equal(decimal.NewFromInt(5_000_000)))
	assert.False(t, line.AsPerPlatform.Valid)
	assert.False(t, line.AsPerVerifier.Valid)
	assert.False(t, line.AsPerAdmittor.Valid)

	_, err = NewAmountLine(decimal.NewFromInt(-1))
	assert.ErrorIs(t, err, ErrNegativeAmount)
}

func TestAmountLine_VerifierSetOnce(t *testing.T) {
	line, _ := NewAmountLine(decimal.NewFromInt(100))

	require.NoError(t, line.SetVerifier(decimal.NewFromInt(90), SourceManual, "checked"))
	err := line.SetVerifier(decimal.NewFromInt(80), SourceManual, "")
	assert.ErrorIs(t, err, ErrFigureLocked)
	assert.True(t, line.AsPerVerifier.Decimal.Equal(decimal.NewFromInt(90)))

	err = line.SetPlatform(decimal.NewFromInt(70), nil)
	assert.ErrorIs(t, err, ErrFigureLocked, "platform suggestions stop once the verifier decided")
}

func TestAmountLine_ClearAdmittorKeepsUpstream(t *testing.T) {
	line, _ := NewAmountLine(decimal.NewFromInt(100))
	require.NoError(t, line.SetPlatform(decimal.NewFromInt(90), []string{"r"}))
	require.NoError(t, line.SetVerifier(decimal.NewFromInt(90), SourcePlatform, ""))
	require.NoError(t, line.SetAdmittor(decimal.NewFromInt(90), SourceVerifier, ""))

	assert.ErrorIs(t, line.SetAdmittor(decimal.NewFromInt(1), SourceManual, ""), ErrFigureLocked)

	line.ClearAdmittor()
	assert.False(t, line.AsPerAdmittor.Valid)
	assert.Equal(t, SourceNone, line.AdmittorSource)
	assert.True(t, line.AsPerVerifier.Valid)
	assert.True(t, line.AsPerPlatform.Valid)

	require.NoError(t, line.SetAdmittor(decimal.NewFromInt(80), SourceManual, "recheck"))
}

func TestAmountLine_VerifiedBase(t *testing.T) {
	tests := []struct {
		name       string
		platform   *int64
		verifier   *int64
		wantOK     bool
		wantSource Source
		want       int64
	}{
		{name: "nothing", wantOK: false},
		{name: "platform only", platform: ptr(90), wantOK: true, wantSource: SourcePlatform, want: 90},
		{name: "verifier wins", platform: ptr(90), verifier: ptr(85), wantOK: true, wantSource: SourceVerifier, want: 85},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			line, _ := NewAmountLine(decimal.NewFromInt(100))
			if tt.platform != nil {
				require.NoError(t, line.SetPlatform(decimal.NewFromInt(*tt.platform), nil))
			}
			if tt.verifier != nil {
				require.NoError(t, line.SetVerifier(decimal.NewFromInt(*tt.verifier), SourceManual, ""))
			}

			got, source, ok := line.VerifiedBase()
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.wantSource, source)
			if ok {
				assert.True(t, got.Equal(decimal.NewFromInt(tt.want)))
			}
		})
	}
}

func TestAmountLine_StampAdvances(t *testing.T) {
	line, _ := NewAmountLine(decimal.NewFromInt(100))
	start := line.Stamp
	line.Touch()
	require.NoError(t, line.SetPlatform(decimal.NewFromInt(1), nil))
	assert.Equal(t, start+2, line.Stamp)
}

func TestAmountLine_Clone(t *testing.T) {
	line, _ := NewAmountLine(decimal.NewFromInt(100))
	require.NoError(t, line.SetPlatform(decimal.NewFromInt(90), []string{"a"}))

	cp := line.Clone()
	cp.PlatformRemarks[0] = "changed"
	assert.Equal(t, "a", line.PlatformRemarks[0])
}

func TestFormat(t *testing.T) {
	tests := []struct {
		amount   string
		expected string
	}{
		{"4500000", "4,500,000.00"},
		{"12.345", "12.35"},
		{"0", "0.00"},
		{"999", "999.00"},
		{"1000", "1,000.00"},
		{"-0.5", "-0.50"},
		{"-1234567.891", "-1,234,567.89"},
		{"12345678901234567.89", "12,345,678,901,234,567.89"},
		{"123456789012345678901234.5", "123,456,789,012,345,678,901,234.50"},
	}

	for _, tt := range tests {
		t.Run(tt.amount, func(t *testing.T) {
			assert.Equal(t, tt.expected, Format(decimal.RequireFromString(tt.amount)))
		})
	}

	assert.Equal(t, "-", FormatNull(decimal.NullDecimal{}))
	assert.Equal(t, "1.00", FormatNull(decimal.NewNullDecimal(decimal.NewFromInt(1))))
}

func ptr(v int64) *int64 { return &v }
