package modes

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// buildFrame computes a valid parity field for data[:n-3], overlaying
// overlay (the ICAO address, or 0 for direct-parity formats) on top.
func buildFrame(payload []byte, overlay uint32) []byte {
	frame := make([]byte, len(payload)+3)
	copy(frame, payload)
	crc := CalculateCRC(payload) ^ overlay
	frame[len(frame)-3] = byte(crc >> 16)
	frame[len(frame)-2] = byte(crc >> 8)
	frame[len(frame)-1] = byte(crc)
	return frame
}

func TestCheckCRCDirectParityAcceptsCleanFrame(t *testing.T) {
	df := byte(17)
	payload := []byte{df << 3, 0x4A, 0xC2, 0x13, 0x58, 0x20, 0x00, 0x00}
	frame := buildFrame(payload, 0)

	assert.True(t, CheckCRC(frame, df))
}

func TestCheckCRCDirectParityRejectsCorruptFrame(t *testing.T) {
	df := byte(17)
	payload := []byte{df << 3, 0x4A, 0xC2, 0x13, 0x58, 0x20, 0x00, 0x00}
	frame := buildFrame(payload, 0)
	frame[5] ^= 0xFF

	assert.False(t, CheckCRC(frame, df))
}

func TestCheckCRCDF11AllowsInterrogatorIDInLowBits(t *testing.T) {
	df := byte(11)
	payload := []byte{df << 3, 0x4A, 0xC2, 0x13}
	frame := buildFrame(payload, 0)
	frame[len(frame)-1] |= 0x1F

	assert.True(t, CheckCRC(frame, df))
}

func TestCheckCRCOverlayFormatsAlwaysPass(t *testing.T) {
	for _, df := range []byte{0, 4, 5, 16, 20, 21, 24} {
		payload := []byte{df << 3, 0x20, 0x00, 0x00, 0x00, 0x00, 0x00}
		icao := uint32(0x4ACF27)
		frame := buildFrame(payload, icao)

		assert.True(t, CheckCRC(frame, df), "df %d", df)
	}
}

func TestRecoverICAODirectParityReadsAddressField(t *testing.T) {
	df := byte(17)
	payload := []byte{df << 3, 0x4A, 0xC2, 0x13, 0x58, 0x20, 0x00, 0x00}
	frame := buildFrame(payload, 0)

	assert.Equal(t, uint32(0x4AC213), RecoverICAO(frame, df))
}

func TestRecoverICAOOverlayFormatsRecoverAddressFromResidual(t *testing.T) {
	for _, df := range []byte{0, 4, 5, 16, 20, 21, 24} {
		payload := []byte{df << 3, 0x20, 0x00, 0x00, 0x00, 0x00, 0x00}
		icao := uint32(0x4ACF27)
		frame := buildFrame(payload, icao)

		assert.Equal(t, icao, RecoverICAO(frame, df), "df %d", df)
	}
}

func TestCalculateCRCIsDeterministic(t *testing.T) {
	data := []byte{0x8D, 0x4A, 0xC2, 0x13, 0x58}
	assert.Equal(t, CalculateCRC(data), CalculateCRC(append([]byte{}, data...)))
}
