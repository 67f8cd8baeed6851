package modes

import (
	"adsbfeed/internal/demod"
	"time"
)

// Charset is the 6-bit character set used to encode callsigns in
// identification messages: space, A-Z, 0-9 and a handful of symbols.
const Charset = "@ABCDEFGHIJKLMNOPQRSTUVWXYZ[\\]^_ !\"#$%&'()*+,-./0123456789:;<=>?"

// CPR field widths. The cpr package defines its own CPRMax rather than
// using these.
const (
	CPRLatBits = 17
	CPRLonBits = 17
	CPRLatMax  = 1 << CPRLatBits
	CPRLonMax  = 1 << CPRLonBits
)

// Packet is a verified Mode-S frame with its envelope fields extracted.
// ME holds the decoded extended-squitter payload for DF17/18; it is nil
// for other downlink formats.
type Packet struct {
	ICAO        uint32
	DF          uint8
	Data        []byte
	SampleIndex uint64
	Signal      float32
	Timestamp   time.Time
	ME          *MEPayload
}

// Decode verifies CRC on a demodulated frame and, for DF17/18, decodes the
// ME (Message Extended) payload into a tagged variant. Frames that fail
// CRC are dropped: no syndrome decoding or bit correction is attempted.
func Decode(f *demod.Frame) *Packet {
	if f == nil || len(f.Data) < 7 {
		return nil
	}

	df := f.Data[0] >> 3
	if !okDF(df) {
		return nil
	}

	if !CheckCRC(f.Data, df) {
		return nil
	}

	p := &Packet{
		ICAO:        RecoverICAO(f.Data, df),
		DF:          df,
		Data:        f.Data,
		SampleIndex: f.SampleIndex,
		Signal:      f.Signal,
		Timestamp:   f.Timestamp,
	}

	if (df == 17 || df == 18) && len(f.Data) >= 11 {
		p.ME = decodeME(f.Data)
	}

	return p
}

func okDF(df byte) bool {
	switch df {
	case 0, 4, 5, 11, 16, 17, 18, 20, 21, 24:
		return true
	default:
		return false
	}
}
