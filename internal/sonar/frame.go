package sonar

// UART ultrasonic modules in the A02YYUW family stream 4-byte frames:
//
//	0xFF | distance high | distance low | checksum
//
// The distance is in millimetres and the checksum is the low byte of the
// sum of the first three bytes.
const frameHeader = 0xFF

const frameLen = 4

// frameDecoder reassembles frames from an arbitrary byte stream.
type frameDecoder struct {
	buf [frameLen]byte
	n   int
}

// feed consumes one byte. It returns the distance in millimetres when b
// completes a frame with a valid checksum.
func (f *frameDecoder) feed(b byte) (int, bool) {
	if f.n == 0 && b != frameHeader {
		return 0, false
	}
	f.buf[f.n] = b
	f.n++
	if f.n < frameLen {
		return 0, false
	}

	f.n = 0
	sum := byte(int(f.buf[0]) + int(f.buf[1]) + int(f.buf[2]))
	if sum != f.buf[3] {
		// Resync: the header might have been a data byte
		f.resync()
		return 0, false
	}
	return int(f.buf[1])<<8 | int(f.buf[2]), true
}

// resync shifts the failed frame along to the next header byte, if any.
func (f *frameDecoder) resync() {
	for i := 1; i < frameLen; i++ {
		if f.buf[i] == frameHeader {
			copy(f.buf[:], f.buf[i:])
			f.n = frameLen - i
			return
		}
	}
}

func (f *frameDecoder) reset() {
	f.n = 0
}
