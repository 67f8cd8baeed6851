package modes

// decodeAC12 decodes a 12-bit AC12 altitude field (ME bits 9-20 of DF17/18
// position messages), selecting 25ft or Gillham 100ft encoding from the
// Q-bit, the same two-branch decode dump1090 uses.
func decodeAC12(altCode uint16) int {
	if altCode == 0 {
		return 0
	}

	qBit := altCode&0x10 != 0
	if qBit {
		n := ((altCode & 0x0FE0) >> 1) | (altCode & 0x000F)
		return int(n)*25 - 1000
	}

	n13 := ((altCode & 0x0FC0) << 1) | (altCode & 0x003F)
	if n13 == 0 {
		return 0
	}

	hundreds := int((n13 >> 8) & 0x07)
	fiveHundreds := int((n13 >> 4) & 0x0F)
	altitude := (fiveHundreds*5 + hundreds) * 100

	if altitude < -2000 || altitude > 60000 {
		return 0
	}
	return altitude
}

// ExtractAltitude reads the altitude field out of a verified frame: bits
// 20-32 for surveillance altitude replies (DF4/20), or the ME AC12 field
// for DF17/18 position messages.
func ExtractAltitude(data []byte, df uint8) int {
	if len(data) < 6 {
		return 0
	}

	var altCode uint16
	switch df {
	case 4, 20:
		// The 13-bit AC13 field carries an M bit (0x40) that AC12 lacks;
		// drop it so decodeAC12 sees the 12-bit layout.
		ac13 := (uint16(data[2]&0x1F) << 8) | uint16(data[3])
		altCode = ((ac13 & 0x1F80) >> 1) | (ac13 & 0x003F)
	case 17, 18:
		altCode = (uint16(data[5]) << 4) | (uint16(data[6]) >> 4)
	default:
		return 0
	}

	return decodeAC12(altCode)
}
