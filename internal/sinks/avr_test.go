package sinks

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHexStringUsesUppercaseDigits(t *testing.T) {
	assert.Equal(t, "8DA1B2C3", hexString([]byte{0x8D, 0xA1, 0xB2, 0xC3}))
}

func TestAVRFormatHasTimestampAndUppercaseFrame(t *testing.T) {
	sink := NewAVRSink(0, nil)
	line := sink.format([]byte{0x8D, 0x4A, 0xC2, 0x13}, 0x0102030405)

	assert.Equal(t, "@0001020304058D4AC213;\n", line)
}

func TestAVRFormatMasksTimestampTo48Bits(t *testing.T) {
	sink := NewAVRSink(0, nil)
	line := sink.format([]byte{0xAB}, 0xFFFFFFFFFFFFFF)

	assert.Equal(t, "@FFFFFFFFFFFFAB;\n", line)
}

func TestRawHexFormatHasStarPrefixNoTimestamp(t *testing.T) {
	sink := NewRawHexSink(0, nil)
	line := sink.format([]byte{0x8D, 0x4A, 0xC2, 0x13}, 12345)

	assert.Equal(t, "*8D4AC213;\n", line)
}
