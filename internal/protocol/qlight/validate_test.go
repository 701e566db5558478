package qlight

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		name     string
		raw      Frame
		valid    bool
		reasonIn string // 期望出现在最后一条原因中的片段
	}{
		{
			name:  "应答红灯常亮",
			raw:   Frame{0x41, 0x00, 0x01, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00},
			valid: true,
		},
		{
			name:     "非应答标记",
			raw:      Frame{0x00, 0, 0, 0, 0, 0, 0, 0, 0, 0},
			valid:    false,
			reasonIn: "not an ack, got byte 0x00 at position 0",
		},
		{
			name:     "红灯状态越界",
			raw:      Frame{0x41, 0, 0x03, 0, 0, 0, 0, 0, 0, 0},
			valid:    false,
			reasonIn: "red lamp state, got byte 0x03 at position 2",
		},
		{
			name:     "白灯状态越界",
			raw:      Frame{0x41, 0, 0, 0, 0, 0, 0x09, 0, 0, 0},
			valid:    false,
			reasonIn: "white lamp state, got byte 0x09 at position 6",
		},
		{
			name:     "声音通道越界",
			raw:      Frame{0x41, 0, 0, 0, 0, 0, 0, 0x06, 0, 0},
			valid:    false,
			reasonIn: "sound channel, got byte 0x06 at position 7",
		},
		{
			name:  "声音通道有效",
			raw:   Frame{0x41, 0, 0, 0, 0, 0, 0, 0x05, 0, 0},
			valid: true,
		},
		{
			name:     "备用字节非零",
			raw:      Frame{0x41, 0, 0, 0, 0, 0, 0, 0, 0, 0x01},
			valid:    false,
			reasonIn: "non-zero spare byte 0x01 at position 9",
		},
		{
			name:     "声音组越界仅提示",
			raw:      Frame{0x41, 0x05, 0x01, 0, 0, 0, 0, 0, 0, 0},
			valid:    true,
			reasonIn: "unexpected sound group 0x05 at position 1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ok, reasons := DecodeFrame(tt.raw).Validate()
			assert.Equal(t, tt.valid, ok)
			if tt.reasonIn == "" {
				assert.Empty(t, reasons)
				return
			}
			require.NotEmpty(t, reasons)
			assert.Contains(t, reasons[len(reasons)-1], tt.reasonIn)
		})
	}
}

func TestValidate_EachLampOffset(t *testing.T) {
	for off := OffsetRed; off <= OffsetWhite; off++ {
		f := Frame{0x41}
		f[off] = 0x03
		ok, reasons := DecodeFrame(f).Validate()
		assert.False(t, ok, "offset %d", off)
		require.Len(t, reasons, 1)
		assert.Contains(t, reasons[0], Colors[off-OffsetRed])
	}
}

func TestValidate_ShortCircuit(t *testing.T) {
	// 非应答时不再报告后续字段
	ok, reasons := DecodeFrame(Frame{0x00, 0x09, 0x03, 0x03, 0, 0, 0, 0x09, 0x01, 0x01}).Validate()
	assert.False(t, ok)
	assert.Len(t, reasons, 1)

	// 声音组提示会保留在致命原因之前
	ok, reasons = DecodeFrame(Frame{0x41, 0x09, 0x03, 0, 0, 0, 0, 0, 0, 0}).Validate()
	assert.False(t, ok)
	require.Len(t, reasons, 2)
	assert.Contains(t, reasons[0], "sound group")
	assert.Contains(t, reasons[1], "red lamp state")
}

func TestResponse_Err(t *testing.T) {
	assert.NoError(t, DecodeFrame(Frame{0x41}).Err())

	err := DecodeFrame(Frame{0x52}).Err()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrValidation)

	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, []string{"not an ack, got byte 0x52 at position 0"}, verr.Reasons)
}

func TestResponse_Confirms(t *testing.T) {
	for _, s := range LampStates {
		f, err := WriteCommand(s)
		require.NoError(t, err)

		echo := Frame{AckByte}
		echo[OffsetRed] = f[OffsetRed]
		assert.True(t, DecodeFrame(echo).Confirms(s), "state %s", s)
	}

	mismatch := DecodeFrame(Frame{0x41, 0, 0x00, 0, 0, 0, 0, 0, 0, 0})
	assert.True(t, mismatch.Valid())
	assert.False(t, mismatch.Confirms(LampOn))

	invalid := DecodeFrame(Frame{0x41, 0, 0x01, 0, 0, 0, 0, 0, 0x01, 0})
	assert.False(t, invalid.Confirms(LampOn))
}
