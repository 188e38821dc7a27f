package replicate

import (
	"bufio"
	"bytes"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"github.com/rzbill/hyperkv/internal/feed"
	"github.com/rzbill/hyperkv/internal/kverr"
)

func TestFramesRoundtrip(t *testing.T) {
	var k feed.Key
	k[3] = 7
	msgs := []*message{
		{Kind: kindHandshake, Version: ProtocolVersion, Source: k, PeerID: "p", MaxFrame: 1 << 20},
		{Kind: kindHave, Feed: k, Length: 12},
		{Kind: kindRequest, Feed: k, Start: 3, End: 12},
		{Kind: kindData, Feed: k, Records: []feed.Record{
			{Offset: 3, Payload: []byte("x"), Signature: []byte("sig")},
			{Offset: 4, Payload: []byte{}, Signature: []byte("sig2")},
		}},
		{Kind: kindEnd},
		{Kind: kindSynced},
	}
	var buf bytes.Buffer
	for _, m := range msgs {
		require.NoError(t, writeFrame(&buf, m))
	}
	r := bufio.NewReader(&buf)
	for _, want := range msgs {
		got, err := readFrame(r, 1<<20)
		require.NoError(t, err)
		if diff := cmp.Diff(want, got, cmp.AllowUnexported(message{})); diff != "" {
			t.Fatalf("%s mismatch (-want +got):\n%s", want.Kind, diff)
		}
	}
}

func TestFrameTooLarge(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeFrame(&buf, &message{Kind: kindData, Records: []feed.Record{{Payload: make([]byte, 4096)}}}))
	_, err := readFrame(bufio.NewReader(&buf), 1024)
	require.ErrorIs(t, err, kverr.ErrChannel)
}

func TestGarbageFrame(t *testing.T) {
	buf := bytes.NewBuffer([]byte{3, 0xff, 0xff, 0xff})
	_, err := readFrame(bufio.NewReader(buf), 1024)
	require.ErrorIs(t, err, kverr.ErrChannel)
}

func TestDataFrameSizeIsExact(t *testing.T) {
	var k feed.Key
	recs := []feed.Record{
		{Offset: 1, Payload: []byte("x"), Signature: make([]byte, 64)},
		{Offset: 300, Payload: make([]byte, 70000), Signature: make([]byte, 64)},
	}
	size := 0
	for _, r := range recs {
		size += recordSize(r)
	}
	body := (&message{Kind: kindData, Feed: k, Records: recs}).marshal()
	require.Equal(t, len(body), dataFrameSize(size))
}

func TestMaxPayloadFitsOneFrame(t *testing.T) {
	limit := 64 << 10
	r := feed.Record{Offset: 1<<40 + 7, Payload: make([]byte, MaxPayload(limit)), Signature: make([]byte, 64)}
	require.LessOrEqual(t, dataFrameSize(recordSize(r)), limit)
	require.Equal(t, DefaultMaxFrameBytes-recordOverhead, MaxPayload(0))
}
