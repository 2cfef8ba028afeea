package audio

// ITU-T G.711 companding. Decoding goes through precomputed tables; encoding
// is computed per sample.

const (
	ulawBias = 0x84
	ulawClip = 32635
)

var (
	ulawDecodeTable = buildTable(MuLawDecode)
	alawDecodeTable = buildTable(ALawDecode)
)

func buildTable(decode func(byte) int16) [256]int16 {
	var t [256]int16
	for i := range t {
		t[i] = decode(byte(i))
	}
	return t
}

// MuLawDecode expands one μ-law byte to a linear sample.
func MuLawDecode(u byte) int16 {
	u = ^u
	exponent := (u >> 4) & 0x07
	mantissa := int32(u & 0x0F)
	sample := ((mantissa << 3) + ulawBias) << exponent
	sample -= ulawBias
	if u&0x80 != 0 {
		return int16(-sample)
	}
	return int16(sample)
}

// MuLawEncode compresses one linear sample to μ-law.
func MuLawEncode(sample int16) byte {
	pcm := int32(sample)
	var sign byte
	if pcm < 0 {
		sign = 0x80
		pcm = -pcm
	}
	if pcm > ulawClip {
		pcm = ulawClip
	}
	pcm += ulawBias

	exponent := byte(7)
	for mask := int32(0x4000); pcm&mask == 0 && exponent > 0; mask >>= 1 {
		exponent--
	}
	mantissa := byte(pcm>>(exponent+3)) & 0x0F

	return ^(sign | exponent<<4 | mantissa)
}

// ALawDecode expands one A-law byte to a linear sample.
func ALawDecode(a byte) int16 {
	a ^= 0x55
	t := int32(a&0x0F) << 4
	seg := (a & 0x70) >> 4
	switch seg {
	case 0:
		t += 8
	case 1:
		t += 0x108
	default:
		t += 0x108
		t <<= seg - 1
	}
	if a&0x80 != 0 {
		return int16(t)
	}
	return int16(-t)
}

var alawSegEnd = [8]int32{0x1F, 0x3F, 0x7F, 0xFF, 0x1FF, 0x3FF, 0x7FF, 0xFFF}

// ALawEncode compresses one linear sample to A-law.
func ALawEncode(sample int16) byte {
	pcm := int32(sample) >> 3

	mask := byte(0xD5)
	if pcm < 0 {
		mask = 0x55
		pcm = -pcm - 1
	}

	seg := 0
	for seg < len(alawSegEnd) && pcm > alawSegEnd[seg] {
		seg++
	}
	if seg >= len(alawSegEnd) {
		return 0x7F ^ mask
	}

	aval := byte(seg << 4)
	if seg < 2 {
		aval |= byte(pcm>>1) & 0x0F
	} else {
		aval |= byte(pcm>>seg) & 0x0F
	}
	return aval ^ mask
}

// Silence returns the encoded value of a zero sample for the codec, used when
// padding encoded frames.
func Silence(c Codec) byte {
	switch c {
	case CodecULaw:
		return MuLawEncode(0)
	case CodecALaw:
		return ALawEncode(0)
	default:
		return 0
	}
}
