package ledger

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecord(t *testing.T) {
	l := New()
	l.Record("st1", "se1", "sop1")
	l.Record("st1", "se1", "sop2")
	l.Record("st1", "se2", "sop3")
	l.Record("st2", "se3", "sop4")

	assert.Equal(t, 4, l.Count())
	assert.Equal(t, Tree{
		"st1": {"se1": {"sop1", "sop2"}, "se2": {"sop3"}},
		"st2": {"se3": {"sop4"}},
	}, l.Tree())
}

func TestTreeIsACopy(t *testing.T) {
	l := New()
	l.Record("st", "se", "a")
	snap := l.Tree()
	snap["st"]["se"][0] = "changed"
	snap["other"] = nil
	l.Record("st", "se", "b")

	assert.Equal(t, Tree{"st": {"se": {"a", "b"}}}, l.Tree())
	assert.Equal(t, []string{"changed"}, snap["st"]["se"])
}

func TestTreeJSON(t *testing.T) {
	l := New()
	l.Record("1.2", "1.2.3", "1.2.3.4")
	b, err := json.Marshal(l.Tree())
	require.NoError(t, err)
	assert.JSONEq(t, `{"1.2":{"1.2.3":["1.2.3.4"]}}`, string(b))
}
