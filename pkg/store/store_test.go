package store

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/regulogio/regulog/pkg/event"
)

func mk(typeName string, ts time.Time) *event.Event {
	e := event.New(typeName, "", "/var/log/a.log")
	e.SetTimestamp(ts)
	return e
}

func TestAdd_AssignsDenseSequence(t *testing.T) {
	s := New([]string{"A"})
	e1 := mk("A", time.Now())
	e2 := mk("A", time.Now())
	s.Add(e1)
	s.Add(e2)
	assert.Equal(t, 0, e1.Sequence())
	assert.Equal(t, 1, e2.Sequence())
	assert.Len(t, s.Sequence(), 2)
}

func TestGetEvents_FiltersByName(t *testing.T) {
	s := New([]string{"A", "B"})
	a := mk("A", time.Now())
	b := mk("B", time.Now())
	s.Add(a)
	s.Add(b)

	got, err := s.GetEvent(GetOptions{Name: "B"})
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "B", got.TypeName)
}

func TestGetEvents_UnknownNameErrors(t *testing.T) {
	s := New([]string{"A"})
	_, err := s.GetEvents(GetOptions{Name: "Z"})
	require.Error(t, err)
}

func TestGetEvents_FieldFilter(t *testing.T) {
	s := New([]string{"A"})
	e1 := mk("A", time.Now())
	require.NoError(t, e1.AddField("host", "web-1"))
	e2 := mk("A", time.Now())
	require.NoError(t, e2.AddField("host", "web-2"))
	s.Add(e1)
	s.Add(e2)

	got, err := s.GetEvent(GetOptions{Fields: map[string]string{"host": "web-1"}})
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, e1, got)
}

func TestGetEvents_BeforeEvent(t *testing.T) {
	s := New([]string{"A"})
	t0 := time.Now()
	e1 := mk("A", t0)
	e2 := mk("A", t0.Add(time.Minute))
	s.Add(e1)
	s.Add(e2)

	bf := BeforeEvent(e2)
	got, err := s.GetEvent(GetOptions{Before: &bf})
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, e1, got)
}

func TestGetEvents_Limit(t *testing.T) {
	s := New([]string{"A"})
	for i := 0; i < 5; i++ {
		s.Add(mk("A", time.Now()))
	}
	got, err := s.GetEvents(GetOptions{Limit: 3})
	require.NoError(t, err)
	assert.Len(t, got, 3)
}

func TestSortChronological_OrdersByTimeThenSeq(t *testing.T) {
	s := New([]string{"A"})
	t0 := time.Now()
	e1 := mk("A", t0.Add(time.Hour))
	e2 := mk("A", t0)
	s.Add(e1) // seq 0, later timestamp
	s.Add(e2) // seq 1, earlier timestamp

	s.SortChronological()

	seq := s.Sequence()
	require.Len(t, seq, 2)
	assert.Equal(t, e2, seq[0])
	assert.Equal(t, e1, seq[1])
	assert.Equal(t, 0, e2.Sequence())
	assert.Equal(t, 1, e1.Sequence())
}
