package messages

import (
	"errors"
	"fmt"

	"google.golang.org/protobuf/encoding/protowire"

	"github.com/rzbill/hyperkv/internal/feed"
)

const (
	entryKey         protowire.Number = 1
	entryValue       protowire.Number = 2
	entryDeleted     protowire.Number = 3
	entryTrie        protowire.Number = 4
	entryClock       protowire.Number = 5
	entryInflate     protowire.Number = 6
	entryFeeds       protowire.Number = 7
	entryContentFeed protowire.Number = 8

	feedKeyField protowire.Number = 1
)

// ErrMalformed is returned when a record cannot be parsed.
var ErrMalformed = errors.New("messages: malformed record")

// Entry is one store write, or a structural record when Key is empty and
// Value is nil.
type Entry struct {
	Key     string
	Value   []byte // nil means absent
	Deleted bool
	Trie    []byte
	Clock   []uint64
	// Inflate points at the offset, in the same feed, of the latest entry
	// carrying Feeds. Nil when this entry carries Feeds itself.
	Inflate     *uint64
	Feeds       []feed.Key
	ContentFeed []byte
}

// Structural reports whether e carries no user data.
func (e *Entry) Structural() bool { return e.Key == "" && e.Value == nil && !e.Deleted }

// Marshal encodes e.
func (e *Entry) Marshal() []byte {
	var b []byte
	if e.Key != "" {
		b = protowire.AppendTag(b, entryKey, protowire.BytesType)
		b = protowire.AppendString(b, e.Key)
	}
	if e.Value != nil {
		b = protowire.AppendTag(b, entryValue, protowire.BytesType)
		b = protowire.AppendBytes(b, e.Value)
	}
	if e.Deleted {
		b = protowire.AppendTag(b, entryDeleted, protowire.VarintType)
		b = protowire.AppendVarint(b, 1)
	}
	if len(e.Trie) > 0 {
		b = protowire.AppendTag(b, entryTrie, protowire.BytesType)
		b = protowire.AppendBytes(b, e.Trie)
	}
	if len(e.Clock) > 0 {
		var packed []byte
		for _, c := range e.Clock {
			packed = protowire.AppendVarint(packed, c)
		}
		b = protowire.AppendTag(b, entryClock, protowire.BytesType)
		b = protowire.AppendBytes(b, packed)
	}
	if e.Inflate != nil {
		b = protowire.AppendTag(b, entryInflate, protowire.VarintType)
		b = protowire.AppendVarint(b, *e.Inflate)
	}
	for _, k := range e.Feeds {
		var m []byte
		m = protowire.AppendTag(m, feedKeyField, protowire.BytesType)
		m = protowire.AppendBytes(m, k[:])
		b = protowire.AppendTag(b, entryFeeds, protowire.BytesType)
		b = protowire.AppendBytes(b, m)
	}
	if len(e.ContentFeed) > 0 {
		b = protowire.AppendTag(b, entryContentFeed, protowire.BytesType)
		b = protowire.AppendBytes(b, e.ContentFeed)
	}
	return b
}

// UnmarshalEntry decodes an Entry. Unknown fields are skipped.
func UnmarshalEntry(b []byte) (*Entry, error) {
	e := &Entry{}
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return nil, fmt.Errorf("%w: %v", ErrMalformed, protowire.ParseError(n))
		}
		b = b[n:]
		switch {
		case num == entryKey && typ == protowire.BytesType:
			v, m := protowire.ConsumeString(b)
			if m < 0 {
				return nil, malformed("key", m)
			}
			e.Key, n = v, m
		case num == entryValue && typ == protowire.BytesType:
			v, m := protowire.ConsumeBytes(b)
			if m < 0 {
				return nil, malformed("value", m)
			}
			e.Value, n = append([]byte{}, v...), m
		case num == entryDeleted && typ == protowire.VarintType:
			v, m := protowire.ConsumeVarint(b)
			if m < 0 {
				return nil, malformed("deleted", m)
			}
			e.Deleted, n = protowire.DecodeBool(v), m
		case num == entryTrie && typ == protowire.BytesType:
			v, m := protowire.ConsumeBytes(b)
			if m < 0 {
				return nil, malformed("trie", m)
			}
			e.Trie, n = append([]byte(nil), v...), m
		case num == entryClock && typ == protowire.BytesType:
			v, m := protowire.ConsumeBytes(b)
			if m < 0 {
				return nil, malformed("clock", m)
			}
			for len(v) > 0 {
				c, k := protowire.ConsumeVarint(v)
				if k < 0 {
					return nil, malformed("clock", k)
				}
				e.Clock = append(e.Clock, c)
				v = v[k:]
			}
			n = m
		case num == entryClock && typ == protowire.VarintType:
			c, m := protowire.ConsumeVarint(b)
			if m < 0 {
				return nil, malformed("clock", m)
			}
			e.Clock, n = append(e.Clock, c), m
		case num == entryInflate && typ == protowire.VarintType:
			v, m := protowire.ConsumeVarint(b)
			if m < 0 {
				return nil, malformed("inflate", m)
			}
			e.Inflate, n = &v, m
		case num == entryFeeds && typ == protowire.BytesType:
			v, m := protowire.ConsumeBytes(b)
			if m < 0 {
				return nil, malformed("feeds", m)
			}
			k, err := unmarshalFeed(v)
			if err != nil {
				return nil, err
			}
			e.Feeds, n = append(e.Feeds, k), m
		case num == entryContentFeed && typ == protowire.BytesType:
			v, m := protowire.ConsumeBytes(b)
			if m < 0 {
				return nil, malformed("contentFeed", m)
			}
			e.ContentFeed, n = append([]byte(nil), v...), m
		default:
			n = protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return nil, malformed("unknown field", n)
			}
		}
		b = b[n:]
	}
	return e, nil
}

func unmarshalFeed(b []byte) (feed.Key, error) {
	var out feed.Key
	var seen bool
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return out, malformed("feed", n)
		}
		b = b[n:]
		if num == feedKeyField && typ == protowire.BytesType {
			v, m := protowire.ConsumeBytes(b)
			if m < 0 {
				return out, malformed("feed key", m)
			}
			k, err := feed.KeyFromBytes(v)
			if err != nil {
				return out, fmt.Errorf("%w: %v", ErrMalformed, err)
			}
			out, seen, n = k, true, m
		} else {
			n = protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return out, malformed("feed", n)
			}
		}
		b = b[n:]
	}
	if !seen {
		return out, fmt.Errorf("%w: feed without key", ErrMalformed)
	}
	return out, nil
}

func malformed(field string, n int) error {
	return fmt.Errorf("%w: %s: %v", ErrMalformed, field, protowire.ParseError(n))
}
