package encoding

import (
	"bufio"
	"fmt"
)

func readByte(r *bufio.Reader) (byte, error) {
	return r.ReadByte()
}

// readUvarint decodes an unsigned LEB128 integer, returning its value
// and the number of bytes consumed.
func readUvarint(r *bufio.Reader) (uint64, int, error) {
	var result uint64
	var shift uint
	var n int
	for {
		b, err := r.ReadByte()
		if err != nil {
			return 0, n, fmt.Errorf("reading uvarint: %w", err)
		}
		n++
		result |= uint64(b&0x7f) << shift
		if b&0x80 == 0 {
			break
		}
		shift += 7
		if shift > 63 {
			return 0, n, fmt.Errorf("uvarint overflow")
		}
	}
	return result, n, nil
}

// readVarint decodes a signed LEB128 integer of up to size bits
// (32 or 64), sign-extending the final byte.
func readVarint(r *bufio.Reader, size uint) (int64, int, error) {
	var result int64
	var shift uint
	var n int
	var b byte
	var err error
	for {
		b, err = r.ReadByte()
		if err != nil {
			return 0, n, fmt.Errorf("reading varint: %w", err)
		}
		n++
		result |= int64(b&0x7f) << shift
		shift += 7
		if b&0x80 == 0 {
			break
		}
	}
	if shift < size && (b&0x40) != 0 {
		result |= -1 << shift
	}
	return result, n, nil
}

func writeUvarint(buf *[]byte, v uint64) {
	for {
		b := byte(v & 0x7f)
		v >>= 7
		if v != 0 {
			b |= 0x80
		}
		*buf = append(*buf, b)
		if v == 0 {
			return
		}
	}
}

func writeVarint(buf *[]byte, v int64) {
	more := true
	for more {
		b := byte(v & 0x7f)
		v >>= 7
		if (v == 0 && b&0x40 == 0) || (v == -1 && b&0x40 != 0) {
			more = false
		} else {
			b |= 0x80
		}
		*buf = append(*buf, b)
	}
}
