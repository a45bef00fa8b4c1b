package registry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSender struct {
	sent []interface{}
}

func (f *fakeSender) Send(v interface{}) error {
	f.sent = append(f.sent, v)
	return nil
}

func TestNewClientAllocatesMonotonicIDs(t *testing.T) {
	r := New()
	a := r.NewClient(&fakeSender{})
	b := r.NewClient(&fakeSender{})
	assert.Greater(t, b.ID, a.ID)
}

func TestGetAndRemove(t *testing.T) {
	r := New()
	c := r.NewClient(&fakeSender{})

	_, ok := r.Get(c.ID)
	require.True(t, ok, "expected to find registered client")

	removed, ok := r.Remove(c.ID)
	require.True(t, ok)
	assert.Equal(t, c.ID, removed.ID)

	_, ok = r.Get(c.ID)
	assert.False(t, ok, "expected client to be gone after Remove")
}

func TestDataChannelStateDefaultsUnbound(t *testing.T) {
	r := New()
	c := r.NewClient(&fakeSender{})
	assert.Equal(t, "unbound", c.DataChannelState())

	c.SetDataChannelState("open")
	assert.Equal(t, "open", c.DataChannelState())
}

func TestSnapshotLen(t *testing.T) {
	r := New()
	r.NewClient(&fakeSender{})
	r.NewClient(&fakeSender{})
	assert.Equal(t, 2, r.Len())
	assert.Len(t, r.Snapshot(), 2)
}
