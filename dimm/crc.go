package dimm

const (
	crcInit byte = 0x00
	crcPoly byte = 0x07
)

// CRC8 computes a bit-serial, MSB-first CRC-8 with the given initial value and
// polynomial. The controller rejects frames unless this exact algorithm is used.
func CRC8(initial, polynomial byte, data []byte) byte {
	crc := initial
	for _, b := range data {
		for mask := byte(0x80); mask != 0; mask >>= 1 {
			var term byte
			if (crc&0x80 != 0) != (b&mask != 0) {
				term = polynomial
			}
			crc = (crc << 1) ^ term
		}
	}
	return crc
}
