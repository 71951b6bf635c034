package selection

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddRespectsLimit(t *testing.T) {
	s := New(2)
	require.NoError(t, s.Add("a"))
	require.NoError(t, s.Add("b"))
	require.NoError(t, s.Add("a"), "re-adding is a no-op")
	assert.ErrorIs(t, s.Add("c"), ErrLimitExceeded)
	assert.Equal(t, []string{"a", "b"}, s.UIDs())
}

func TestUnbounded(t *testing.T) {
	s := New(0)
	for _, uid := range []string{"a", "b", "c", "d"} {
		require.NoError(t, s.Add(uid))
	}
	assert.Equal(t, 4, s.Len())
	assert.Zero(t, New(-3).Max())
}

func TestToggle(t *testing.T) {
	s := New(1)
	on, err := s.Toggle("a")
	require.NoError(t, err)
	assert.True(t, on)

	_, err = s.Toggle("b")
	assert.ErrorIs(t, err, ErrLimitExceeded)

	on, err = s.Toggle("a")
	require.NoError(t, err)
	assert.False(t, on)
	assert.Zero(t, s.Len())
}

func TestReplace(t *testing.T) {
	s := New(2)
	require.NoError(t, s.Replace([]string{"b", "a", "b"}))
	assert.Equal(t, []string{"b", "a"}, s.UIDs())

	assert.ErrorIs(t, s.Replace([]string{"x", "y", "z"}), ErrLimitExceeded)
	assert.Equal(t, []string{"b", "a"}, s.UIDs(), "failed replace keeps the old selection")

	s.Clear()
	assert.Zero(t, s.Len())
}

func TestUIDsIsACopy(t *testing.T) {
	s := New(0)
	require.NoError(t, s.Add("a"))
	uids := s.UIDs()
	uids[0] = "z"
	assert.True(t, s.Contains("a"))
}
