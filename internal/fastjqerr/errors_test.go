package fastjqerr_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/fastjq/fastjq/internal/fastjqerr"
)

func TestExitCodeMapping(t *testing.T) {
	cases := map[fastjqerr.Kind]int{
		fastjqerr.KindParse:      3,
		fastjqerr.KindIO:         4,
		fastjqerr.KindType:       5,
		fastjqerr.KindArity:      5,
		fastjqerr.KindArithmetic: 5,
		fastjqerr.KindPath:       5,
		fastjqerr.KindOverflow:   5,
		fastjqerr.KindNone:       5,
	}
	for kind, want := range cases {
		assert.Equal(t, want, fastjqerr.ExitCode(kind))
	}
}

func TestNewFormatsMessage(t *testing.T) {
	err := fastjqerr.New(fastjqerr.KindType, "%s and %s cannot be %sed", "number", "string", "add")
	assert.Equal(t, "number and string cannot be added", err.Error())
	assert.Equal(t, fastjqerr.KindType, err.Kind)
}

func TestBreakSignalMessage(t *testing.T) {
	b := &fastjqerr.BreakSignal{Label: "out"}
	assert.Equal(t, "break (out) is not defined", b.Error())
}
