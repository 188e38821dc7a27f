package feed

import "testing"

func TestRecordRoundtrip(t *testing.T) {
	sig := []byte("signature")
	payload := []byte("payload")
	rec := EncodeRecord(sig, payload)
	dec, ok := DecodeRecord(rec)
	if !ok {
		t.Fatalf("decode failed")
	}
	if string(dec.Signature) != string(sig) {
		t.Fatalf("signature mismatch")
	}
	if string(dec.Payload) != string(payload) {
		t.Fatalf("payload mismatch")
	}
}

func TestRecordCRCFail(t *testing.T) {
	rec := EncodeRecord([]byte("x"), []byte("y"))
	rec[len(rec)-1] ^= 0xFF
	if _, ok := DecodeRecord(rec); ok {
		t.Fatalf("expected crc failure")
	}
}

func TestRecordTruncated(t *testing.T) {
	rec := EncodeRecord([]byte("sig"), nil)
	if _, ok := DecodeRecord(rec[:3]); ok {
		t.Fatalf("expected truncation failure")
	}
}
