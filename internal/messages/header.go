package messages

import (
	"fmt"

	"google.golang.org/protobuf/encoding/protowire"
)

// HeaderType tags every feed created by this package.
const HeaderType = "hyperkv"

const (
	headerType     protowire.Number = 1
	headerMetadata protowire.Number = 2
)

// Header is entry 0 of every feed.
type Header struct {
	Type     string
	Metadata []byte
}

func (h *Header) Marshal() []byte {
	var b []byte
	b = protowire.AppendTag(b, headerType, protowire.BytesType)
	b = protowire.AppendString(b, h.Type)
	if len(h.Metadata) > 0 {
		b = protowire.AppendTag(b, headerMetadata, protowire.BytesType)
		b = protowire.AppendBytes(b, h.Metadata)
	}
	return b
}

func UnmarshalHeader(b []byte) (*Header, error) {
	h := &Header{}
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return nil, malformed("header", n)
		}
		b = b[n:]
		switch {
		case num == headerType && typ == protowire.BytesType:
			v, m := protowire.ConsumeString(b)
			if m < 0 {
				return nil, malformed("header type", m)
			}
			h.Type, n = v, m
		case num == headerMetadata && typ == protowire.BytesType:
			v, m := protowire.ConsumeBytes(b)
			if m < 0 {
				return nil, malformed("header metadata", m)
			}
			h.Metadata, n = append([]byte(nil), v...), m
		default:
			n = protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return nil, malformed("header", n)
			}
		}
		b = b[n:]
	}
	if h.Type != HeaderType {
		return nil, fmt.Errorf("%w: unexpected header type %q", ErrMalformed, h.Type)
	}
	return h, nil
}
