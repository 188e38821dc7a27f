package replicate

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"

	"google.golang.org/protobuf/encoding/protowire"

	"github.com/rzbill/hyperkv/internal/feed"
	"github.com/rzbill/hyperkv/internal/kverr"
)

// ProtocolVersion is sent in the handshake; peers must match.
const ProtocolVersion = 1

// DefaultMaxFrameBytes is the frame limit when none is configured.
const DefaultMaxFrameBytes = 8 << 20

// recordOverhead bounds the framing around a lone record's payload: frame
// and record tags, length prefixes, offset, feed key and signature.
const recordOverhead = 256

// MaxPayload is the largest record payload that fits a frame of
// maxFrameBytes on its own. Zero selects DefaultMaxFrameBytes.
func MaxPayload(maxFrameBytes int) int {
	if maxFrameBytes <= 0 {
		maxFrameBytes = DefaultMaxFrameBytes
	}
	return maxFrameBytes - recordOverhead
}

type kind protowire.Number

const (
	kindHandshake kind = 1
	kindHave      kind = 2
	kindRequest   kind = 3
	kindData      kind = 4
	kindEnd       kind = 5
	kindSynced    kind = 6
)

func (k kind) String() string {
	switch k {
	case kindHandshake:
		return "handshake"
	case kindHave:
		return "have"
	case kindRequest:
		return "request"
	case kindData:
		return "data"
	case kindEnd:
		return "end"
	case kindSynced:
		return "synced"
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// message is the union of all frames; only the fields of Kind are set.
type message struct {
	Kind kind

	Version  uint64
	Source   feed.Key
	PeerID   string
	MaxFrame uint64

	Feed    feed.Key
	Length  uint64
	Start   uint64
	End     uint64
	Records []feed.Record
}

func appendKey(b []byte, num protowire.Number, k feed.Key) []byte {
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendBytes(b, k[:])
}

func appendUint(b []byte, num protowire.Number, v uint64) []byte {
	b = protowire.AppendTag(b, num, protowire.VarintType)
	return protowire.AppendVarint(b, v)
}

func (m *message) marshal() []byte {
	var body []byte
	switch m.Kind {
	case kindHandshake:
		body = appendUint(body, 1, m.Version)
		body = appendKey(body, 2, m.Source)
		body = protowire.AppendTag(body, 3, protowire.BytesType)
		body = protowire.AppendString(body, m.PeerID)
		if m.MaxFrame > 0 {
			body = appendUint(body, 4, m.MaxFrame)
		}
	case kindHave:
		body = appendKey(body, 1, m.Feed)
		body = appendUint(body, 2, m.Length)
	case kindRequest:
		body = appendKey(body, 1, m.Feed)
		body = appendUint(body, 2, m.Start)
		body = appendUint(body, 3, m.End)
	case kindData:
		body = appendKey(body, 1, m.Feed)
		for _, r := range m.Records {
			var rb []byte
			rb = appendUint(rb, 1, r.Offset)
			rb = protowire.AppendTag(rb, 2, protowire.BytesType)
			rb = protowire.AppendBytes(rb, r.Payload)
			rb = protowire.AppendTag(rb, 3, protowire.BytesType)
			rb = protowire.AppendBytes(rb, r.Signature)
			body = protowire.AppendTag(body, 2, protowire.BytesType)
			body = protowire.AppendBytes(body, rb)
		}
	}
	var out []byte
	out = protowire.AppendTag(out, protowire.Number(m.Kind), protowire.BytesType)
	return protowire.AppendBytes(out, body)
}

// fields walks a protowire message, handing each field to fn.
func fields(b []byte, fn func(num protowire.Number, typ protowire.Type, b []byte) (int, error)) error {
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return protowire.ParseError(n)
		}
		b = b[n:]
		m, err := fn(num, typ, b)
		if err != nil {
			return err
		}
		if m == 0 {
			m = protowire.ConsumeFieldValue(num, typ, b)
		}
		if m < 0 {
			return protowire.ParseError(m)
		}
		b = b[m:]
	}
	return nil
}

func consumeKey(b []byte, dst *feed.Key) (int, error) {
	v, n := protowire.ConsumeBytes(b)
	if n < 0 {
		return n, nil
	}
	k, err := feed.KeyFromBytes(v)
	if err != nil {
		return 0, err
	}
	*dst = k
	return n, nil
}

func consumeUint(b []byte, dst *uint64) int {
	v, n := protowire.ConsumeVarint(b)
	if n >= 0 {
		*dst = v
	}
	return n
}

func unmarshalMessage(b []byte) (*message, error) {
	m := &message{}
	var body []byte
	var seen bool
	err := fields(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		if seen || typ != protowire.BytesType || num < protowire.Number(kindHandshake) || num > protowire.Number(kindSynced) {
			return 0, fmt.Errorf("unexpected field %d", num)
		}
		v, n := protowire.ConsumeBytes(b)
		m.Kind, body, seen = kind(num), v, true
		return n, nil
	})
	if err == nil && !seen {
		err = fmt.Errorf("empty frame")
	}
	if err == nil {
		err = m.unmarshalBody(body)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: bad frame: %v", kverr.ErrChannel, err)
	}
	return m, nil
}

func (m *message) unmarshalBody(body []byte) error {
	return fields(body, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch {
		case m.Kind == kindHandshake && num == 1 && typ == protowire.VarintType:
			return consumeUint(b, &m.Version), nil
		case m.Kind == kindHandshake && num == 2 && typ == protowire.BytesType:
			return consumeKey(b, &m.Source)
		case m.Kind == kindHandshake && num == 3 && typ == protowire.BytesType:
			v, n := protowire.ConsumeString(b)
			m.PeerID = v
			return n, nil
		case m.Kind == kindHandshake && num == 4 && typ == protowire.VarintType:
			return consumeUint(b, &m.MaxFrame), nil
		case m.Kind != kindHandshake && num == 1 && typ == protowire.BytesType:
			return consumeKey(b, &m.Feed)
		case m.Kind == kindHave && num == 2 && typ == protowire.VarintType:
			return consumeUint(b, &m.Length), nil
		case m.Kind == kindRequest && num == 2 && typ == protowire.VarintType:
			return consumeUint(b, &m.Start), nil
		case m.Kind == kindRequest && num == 3 && typ == protowire.VarintType:
			return consumeUint(b, &m.End), nil
		case m.Kind == kindData && num == 2 && typ == protowire.BytesType:
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return n, nil
			}
			r, err := unmarshalRecord(v)
			if err != nil {
				return 0, err
			}
			m.Records = append(m.Records, r)
			return n, nil
		}
		return 0, nil
	})
}

func unmarshalRecord(b []byte) (feed.Record, error) {
	var r feed.Record
	err := fields(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch {
		case num == 1 && typ == protowire.VarintType:
			return consumeUint(b, &r.Offset), nil
		case num == 2 && typ == protowire.BytesType:
			v, n := protowire.ConsumeBytes(b)
			r.Payload = append([]byte{}, v...)
			return n, nil
		case num == 3 && typ == protowire.BytesType:
			v, n := protowire.ConsumeBytes(b)
			r.Signature = append([]byte(nil), v...)
			return n, nil
		}
		return 0, nil
	})
	return r, err
}

// recordSize is what r adds to the body of a data frame.
func recordSize(r feed.Record) int {
	n := protowire.SizeTag(1) + protowire.SizeVarint(r.Offset) +
		protowire.SizeTag(2) + protowire.SizeBytes(len(r.Payload)) +
		protowire.SizeTag(3) + protowire.SizeBytes(len(r.Signature))
	return protowire.SizeTag(2) + protowire.SizeBytes(n)
}

// dataFrameSize is the encoded size of a data frame whose records add up to
// records bytes, excluding the length prefix.
func dataFrameSize(records int) int {
	body := protowire.SizeTag(1) + protowire.SizeBytes(len(feed.Key{})) + records
	return protowire.SizeTag(protowire.Number(kindData)) + protowire.SizeBytes(body)
}

func writeFrame(w io.Writer, m *message) error {
	body := m.marshal()
	buf := make([]byte, 0, binary.MaxVarintLen64+len(body))
	buf = binary.AppendUvarint(buf, uint64(len(body)))
	buf = append(buf, body...)
	_, err := w.Write(buf)
	return err
}

func readFrame(r *bufio.Reader, maxBytes int) (*message, error) {
	n, err := binary.ReadUvarint(r)
	if err != nil {
		return nil, err
	}
	if n > uint64(maxBytes) {
		return nil, fmt.Errorf("%w: frame of %d bytes exceeds limit %d", kverr.ErrChannel, n, maxBytes)
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		if err == io.EOF {
			err = io.ErrUnexpectedEOF
		}
		return nil, err
	}
	return unmarshalMessage(buf)
}
