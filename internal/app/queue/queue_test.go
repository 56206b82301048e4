package queue

import (
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roxytools/roxy-stream/internal/domain/track"
)

func testRequest(id string) track.Request {
	return track.Request{
		Track: track.Track{
			ID:      id,
			Name:    "Song " + id,
			Artists: []string{"Artist"},
			URI:     "spotify:track:" + id,
		},
		RequestedBy: "alice",
		Platform:    "twitch",
	}
}

func ids(items []track.Request) []string {
	out := make([]string, len(items))
	for i, r := range items {
		out[i] = r.Track.ID
	}
	return out
}

func TestQueue_PushPop(t *testing.T) {
	q := New(nil)

	_, ok := q.PopFront()
	assert.False(t, ok, "pop from empty queue")

	q.Push(testRequest("a"))
	q.Push(testRequest("b"))
	assert.Equal(t, 2, q.Len())

	front, ok := q.PeekFront()
	require.True(t, ok)
	assert.Equal(t, "a", front.Track.ID)
	assert.Equal(t, 2, q.Len(), "peek does not remove")

	r, ok := q.PopFront()
	require.True(t, ok)
	assert.Equal(t, "a", r.Track.ID)

	r, ok = q.PopFront()
	require.True(t, ok)
	assert.Equal(t, "b", r.Track.ID)
	assert.Equal(t, 0, q.Len())
}

func TestQueue_PushFront(t *testing.T) {
	q := New(nil)
	q.Push(testRequest("a"))
	q.Push(testRequest("b"))

	q.PushFront(testRequest("c"))
	assert.Equal(t, []string{"c", "a", "b"}, ids(q.Items()))
}

func TestQueue_Remove(t *testing.T) {
	q := New(nil)
	q.Push(testRequest("a"))
	q.Push(testRequest("b"))
	q.Push(testRequest("c"))

	removed, err := q.Remove(2)
	require.NoError(t, err)
	assert.Equal(t, "b", removed.Track.ID)
	assert.Equal(t, []string{"a", "c"}, ids(q.Items()))

	tests := []struct {
		name  string
		index int
	}{
		{name: "zero", index: 0},
		{name: "negative", index: -1},
		{name: "past end", index: 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := q.Remove(tt.index)
			assert.ErrorIs(t, err, ErrBadIndex)
			assert.Equal(t, []string{"a", "c"}, ids(q.Items()), "bad index leaves queue unchanged")
		})
	}
}

func TestQueue_Move(t *testing.T) {
	tests := []struct {
		name     string
		from, to int
		want     []string
		wantErr  bool
	}{
		{name: "back to front", from: 4, to: 1, want: []string{"d", "a", "b", "c"}},
		{name: "front to back", from: 1, to: 4, want: []string{"b", "c", "d", "a"}},
		{name: "middle forward", from: 2, to: 3, want: []string{"a", "c", "b", "d"}},
		{name: "same position", from: 2, to: 2, want: []string{"a", "b", "c", "d"}},
		{name: "from out of range", from: 5, to: 1, wantErr: true},
		{name: "to out of range", from: 1, to: 5, wantErr: true},
		{name: "zero index", from: 0, to: 1, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := New(nil)
			for _, id := range []string{"a", "b", "c", "d"} {
				q.Push(testRequest(id))
			}

			_, err := q.Move(tt.from, tt.to)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrBadIndex)
				assert.Equal(t, []string{"a", "b", "c", "d"}, ids(q.Items()))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, ids(q.Items()))
		})
	}
}

func TestQueue_Shuffle(t *testing.T) {
	q := New(nil)
	want := []string{"a", "b", "c", "d", "e"}
	for _, id := range want {
		q.Push(testRequest(id))
	}

	q.Shuffle()

	got := ids(q.Items())
	sort.Strings(got)
	assert.Equal(t, want, got, "shuffle preserves the set of requests")
}

func TestQueue_Clear(t *testing.T) {
	q := New(nil)
	q.Push(testRequest("a"))
	q.Push(testRequest("b"))

	q.Clear()
	assert.Equal(t, 0, q.Len())
}

func TestQueue_Persistence(t *testing.T) {
	path := filepath.Join(t.TempDir(), "requests.json")

	q := New(NewStore(path))
	q.Push(testRequest("a"))
	q.Push(testRequest("b"))
	q.Push(testRequest("c"))
	_, err := q.Remove(2)
	require.NoError(t, err)

	// A fresh queue over the same file restores order.
	restored := New(NewStore(path))
	assert.Equal(t, []string{"a", "c"}, ids(restored.Items()))
}

func TestStore_LoadFailSoft(t *testing.T) {
	dir := t.TempDir()

	t.Run("missing file", func(t *testing.T) {
		s := NewStore(filepath.Join(dir, "nope.json"))
		assert.Nil(t, s.Load())
	})

	t.Run("corrupt file", func(t *testing.T) {
		path := filepath.Join(dir, "corrupt.json")
		require.NoError(t, os.WriteFile(path, []byte("{not json"), 0644))
		s := NewStore(path)
		assert.Nil(t, s.Load())
	})
}
