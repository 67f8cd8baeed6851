package modes

import (
	"math"
	"strings"
)

// MEKind tags which variant of an extended-squitter ME payload was
// decoded.
type MEKind int

const (
	MEOther MEKind = iota
	MEIdentification
	MEPositionBaro
	MEPositionGNSS
	MEVelocity
)

// MEPayload is a tagged union over the extended-squitter ME field
// variants this receiver understands; only the field matching Kind is
// populated.
type MEPayload struct {
	Kind     MEKind
	TypeCode uint8

	Identification *Identification
	Position       *CPRPosition
	Velocity       *Velocity
}

// Identification carries an 8-character aircraft callsign and its ADS-B
// emitter category.
type Identification struct {
	Callsign string
	Category uint8
}

// CPRPosition is one raw CPR-encoded frame pulled from a position message,
// not yet paired with its opposite-parity counterpart.
type CPRPosition struct {
	LatCPR  uint32
	LonCPR  uint32
	Odd     bool
	Altitude int
}

// Velocity is a decoded airborne velocity message: either ground-speed
// vector (subtype 1/2) or airspeed/heading (subtype 3/4), plus vertical
// rate common to both.
type Velocity struct {
	Subtype      uint8
	GroundSpeed  int
	Track        float64
	HeadingValid bool
	VerticalRate int
}

// decodeME dispatches a DF17/18 ME field (data[4:]) by type code.
func decodeME(data []byte) *MEPayload {
	me := data[4:]
	typeCode := (me[0] >> 3) & 0x1F

	switch {
	case typeCode >= 1 && typeCode <= 4:
		return &MEPayload{Kind: MEIdentification, TypeCode: typeCode, Identification: decodeIdentification(me, typeCode)}
	case typeCode >= 9 && typeCode <= 18:
		return &MEPayload{Kind: MEPositionBaro, TypeCode: typeCode, Position: decodePosition(data, me, false)}
	case typeCode >= 20 && typeCode <= 22:
		return &MEPayload{Kind: MEPositionGNSS, TypeCode: typeCode, Position: decodePosition(data, me, true)}
	case typeCode == 19:
		return &MEPayload{Kind: MEVelocity, TypeCode: typeCode, Velocity: decodeVelocity(data)}
	default:
		return &MEPayload{Kind: MEOther, TypeCode: typeCode}
	}
}

func decodeIdentification(me []byte, typeCode uint8) *Identification {
	var cs [8]byte
	cs[0] = Charset[getBits(me, 9, 14)]
	cs[1] = Charset[getBits(me, 15, 20)]
	cs[2] = Charset[getBits(me, 21, 26)]
	cs[3] = Charset[getBits(me, 27, 32)]
	cs[4] = Charset[getBits(me, 33, 38)]
	cs[5] = Charset[getBits(me, 39, 44)]
	cs[6] = Charset[getBits(me, 45, 50)]
	cs[7] = Charset[getBits(me, 51, 56)]

	for _, c := range cs {
		if !((c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9') || c == ' ') {
			return &Identification{Category: typeCode}
		}
	}

	return &Identification{
		Callsign: strings.TrimSpace(string(cs[:])),
		Category: typeCode,
	}
}

func decodePosition(data, me []byte, gnss bool) *CPRPosition {
	fFlag := (data[6] >> 2) & 0x01
	latCPR := ((uint32(data[6]&0x03) << 15) | (uint32(data[7]) << 7) | (uint32(data[8]) >> 1)) & 0x1FFFF
	lonCPR := ((uint32(data[8]&0x01) << 16) | (uint32(data[9]) << 8) | uint32(data[10])) & 0x1FFFF

	altitude := 0
	if !gnss {
		altCode := (uint16(data[5]) << 4) | (uint16(data[6]) >> 4)
		altitude = decodeAC12(altCode)
	}

	return &CPRPosition{
		LatCPR:   latCPR,
		LonCPR:   lonCPR,
		Odd:      fFlag == 1,
		Altitude: altitude,
	}
}

func decodeVelocity(data []byte) *Velocity {
	if len(data) < 11 {
		return &Velocity{}
	}

	me := data[4:]
	subtype := me[0] & 0x07
	v := &Velocity{Subtype: subtype}

	switch subtype {
	case 1, 2:
		ewRaw := getBitsUint16(me, 15, 24)
		nsRaw := getBitsUint16(me, 26, 35)
		if ewRaw != 0 && nsRaw != 0 {
			ewVel := int(ewRaw-1) * (1 << (subtype - 1))
			if getBits(me, 14, 14) != 0 {
				ewVel = -ewVel
			}
			nsVel := int(nsRaw-1) * (1 << (subtype - 1))
			if getBits(me, 25, 25) != 0 {
				nsVel = -nsVel
			}
			v.GroundSpeed = int(math.Sqrt(float64(nsVel*nsVel+ewVel*ewVel)) + 0.5)
			if v.GroundSpeed > 0 {
				track := math.Atan2(float64(ewVel), float64(nsVel)) * 180.0 / math.Pi
				if track < 0 {
					track += 360
				}
				v.Track = track
				v.HeadingValid = true
			}
		}
	case 3, 4:
		if getBits(me, 14, 14) != 0 {
			v.Track = float64(getBitsUint16(me, 15, 24)) * 360.0 / 1024.0
			v.HeadingValid = true
		}
		airspeedRaw := getBitsUint16(me, 26, 35)
		if airspeedRaw != 0 {
			v.GroundSpeed = int(airspeedRaw-1) * (1 << (subtype - 3))
		}
	}

	vrRaw := getBitsUint16(me, 38, 46)
	if vrRaw != 0 {
		vr := int(vrRaw-1) * 64
		if getBits(me, 37, 37) != 0 {
			vr = -vr
		}
		v.VerticalRate = vr
	}

	return v
}
