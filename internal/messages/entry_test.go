package messages

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"google.golang.org/protobuf/encoding/protowire"

	"github.com/rzbill/hyperkv/internal/feed"
)

func TestEntryRoundtrip(t *testing.T) {
	var a, b feed.Key
	a[0], b[0] = 1, 2
	inflate := uint64(3)
	cases := []*Entry{
		{Key: "a/b", Value: []byte("v"), Trie: []byte{1, 2}, Clock: []uint64{4, 0, 9}, Inflate: &inflate},
		{Key: "gone", Deleted: true, Clock: []uint64{1}, Inflate: &inflate},
		{Key: "empty", Value: []byte{}, Feeds: []feed.Key{a}},
		{Feeds: []feed.Key{a, b}, Clock: []uint64{2, 0}},
	}
	for _, want := range cases {
		got, err := UnmarshalEntry(want.Marshal())
		if err != nil {
			t.Fatalf("unmarshal %q: %v", want.Key, err)
		}
		if diff := cmp.Diff(want, got); diff != "" {
			t.Fatalf("entry %q mismatch (-want +got):\n%s", want.Key, diff)
		}
	}
}

func TestEntryStructural(t *testing.T) {
	if !(&Entry{Feeds: []feed.Key{{}}}).Structural() {
		t.Fatalf("feeds-only entry should be structural")
	}
	if (&Entry{Key: "k", Value: []byte{}}).Structural() {
		t.Fatalf("keyed entry is not structural")
	}
}

func TestEntrySkipsUnknownFields(t *testing.T) {
	e := &Entry{Key: "k", Value: []byte("v")}
	b := e.Marshal()
	b = protowire.AppendTag(b, 99, protowire.VarintType)
	b = protowire.AppendVarint(b, 7)
	got, err := UnmarshalEntry(b)
	if err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if diff := cmp.Diff(e, got); diff != "" {
		t.Fatalf("mismatch (-want +got):\n%s", diff)
	}
}

func TestEntryMalformed(t *testing.T) {
	b := (&Entry{Key: "k", Value: []byte("value")}).Marshal()
	if _, err := UnmarshalEntry(b[:len(b)-2]); !errors.Is(err, ErrMalformed) {
		t.Fatalf("expected malformed, got %v", err)
	}
}

func TestHeader(t *testing.T) {
	h := &Header{Type: HeaderType, Metadata: []byte("m")}
	got, err := UnmarshalHeader(h.Marshal())
	if err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if diff := cmp.Diff(h, got); diff != "" {
		t.Fatalf("mismatch (-want +got):\n%s", diff)
	}
	if _, err := UnmarshalHeader((&Header{Type: "other"}).Marshal()); !errors.Is(err, ErrMalformed) {
		t.Fatalf("expected wrong type to fail, got %v", err)
	}
}
