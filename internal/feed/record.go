package feed

import (
	"encoding/binary"
	"hash/crc32"
)

// Record encoding: varint sigLen | signature | payload | crc32c(signature|payload)

var castagnoli = crc32.MakeTable(crc32.Castagnoli)

func EncodeRecord(signature, payload []byte) []byte {
	out := make([]byte, 0, 10+len(signature)+len(payload)+4)
	var tmp [10]byte
	n := binary.PutUvarint(tmp[:], uint64(len(signature)))
	out = append(out, tmp[:n]...)
	out = append(out, signature...)
	out = append(out, payload...)

	crc := crc32.Update(0, castagnoli, signature)
	crc = crc32.Update(crc, castagnoli, payload)
	var crcb [4]byte
	binary.BigEndian.PutUint32(crcb[:], crc)
	out = append(out, crcb[:]...)
	return out
}

type Decoded struct {
	Signature []byte
	Payload   []byte
}

// DecodeRecord reverses EncodeRecord. It reports false on truncation or a
// checksum mismatch.
func DecodeRecord(b []byte) (Decoded, bool) {
	if len(b) < 1+4 {
		return Decoded{}, false
	}
	slen, n := binary.Uvarint(b)
	if n <= 0 {
		return Decoded{}, false
	}
	if uint64(n)+slen+4 > uint64(len(b)) {
		return Decoded{}, false
	}
	sig := b[n : n+int(slen)]
	payload := b[n+int(slen) : len(b)-4]
	expect := binary.BigEndian.Uint32(b[len(b)-4:])
	crc := crc32.Update(0, castagnoli, sig)
	crc = crc32.Update(crc, castagnoli, payload)
	if crc != expect {
		return Decoded{}, false
	}
	return Decoded{Signature: append([]byte(nil), sig...), Payload: append([]byte(nil), payload...)}, true
}
