package flateval_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fastjq/fastjq/eval"
	"github.com/fastjq/fastjq/flat"
	"github.com/fastjq/fastjq/flateval"
	"github.com/fastjq/fastjq/internal/flatdecode"
	"github.com/fastjq/fastjq/internal/jqlang"
	"github.com/fastjq/fastjq/value"
)

// runBoth evaluates filter against doc (raw JSON) through both eval.Eval
// (against the materialized tree) and flateval.Eval (against the flat
// cursor), asserting they agree output-for-output. This is the differential
// harness flateval's own doc comment promises: "must produce, output for
// output, the exact same sequence of value.Values".
func runBoth(t *testing.T, filter, doc string) ([]value.Value, []value.Value) {
	t.Helper()
	f, err := jqlang.Parse(filter)
	require.NoError(t, err)
	require.True(t, flateval.Supported(f.Root), "filter %q must stay in the flat-eval subset", filter)

	buf, err := flatdecode.ParseOne([]byte(doc))
	require.NoError(t, err)
	cur := flat.NewCursor(buf)

	var flatOut []value.Value
	err = flateval.Eval(f.Root, cur, eval.NewScope(), func(v value.Value) error {
		flatOut = append(flatOut, v)
		return nil
	})
	require.NoError(t, err)

	var treeOut []value.Value
	err = eval.Eval(f.Root, cur.Materialize(), eval.NewScope(), func(v value.Value) error {
		treeOut = append(treeOut, v)
		return nil
	})
	require.NoError(t, err)

	return flatOut, treeOut
}

func assertSameOutputs(t *testing.T, flatOut, treeOut []value.Value) {
	t.Helper()
	require.Equal(t, len(treeOut), len(flatOut))
	for i := range treeOut {
		assert.Truef(t, value.Equal(flatOut[i], treeOut[i]), "index %d: flat=%v tree=%v", i, flatOut[i], treeOut[i])
	}
}

func TestFlatevalMatchesEvalIdentity(t *testing.T) {
	flatOut, treeOut := runBoth(t, ".", `{"a":1,"b":[1,2,3]}`)
	assertSameOutputs(t, flatOut, treeOut)
}

func TestFlatevalMatchesEvalFieldChain(t *testing.T) {
	flatOut, treeOut := runBoth(t, ".a.b", `{"a":{"b":42}}`)
	assertSameOutputs(t, flatOut, treeOut)
}

func TestFlatevalMatchesEvalIterate(t *testing.T) {
	flatOut, treeOut := runBoth(t, ".[]", `[1,2,3]`)
	assertSameOutputs(t, flatOut, treeOut)
}

func TestFlatevalMatchesEvalObjectConstruct(t *testing.T) {
	flatOut, treeOut := runBoth(t, "{x: .a, y: .b}", `{"a":1,"b":2}`)
	assertSameOutputs(t, flatOut, treeOut)
}

func TestFlatevalMatchesEvalArrayConstruct(t *testing.T) {
	flatOut, treeOut := runBoth(t, "[.[] , .[]]", `[1,2]`)
	assertSameOutputs(t, flatOut, treeOut)
}

func TestFlatevalMatchesEvalSelect(t *testing.T) {
	flatOut, treeOut := runBoth(t, ".[] | select(. > 1)", `[1,2,3]`)
	assertSameOutputs(t, flatOut, treeOut)
}

func TestFlatevalMatchesEvalLengthTypeKeys(t *testing.T) {
	for _, filter := range []string{"length", "type", "keys", "keys_unsorted", "has(\"a\")"} {
		flatOut, treeOut := runBoth(t, filter, `{"a":1,"b":2}`)
		assertSameOutputs(t, flatOut, treeOut)
	}
}

func TestFlatevalMatchesEvalAlternative(t *testing.T) {
	flatOut, treeOut := runBoth(t, ".missing // 7", `{"a":1}`)
	assertSameOutputs(t, flatOut, treeOut)
}

func TestSupportedRejectsReduceWhoseUpdateReadsVar(t *testing.T) {
	f, err := jqlang.Parse("reduce .[] as $x (0; $x + .)")
	require.NoError(t, err)
	assert.False(t, flateval.Supported(f.Root))
}

func TestSupportedAcceptsDeadVariableReduce(t *testing.T) {
	f, err := jqlang.Parse("reduce .[] as $x (0; . + 1)")
	require.NoError(t, err)
	assert.True(t, flateval.Supported(f.Root))
}
