package plugins

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLookup(t *testing.T) {
	all, err := Lookup()
	require.NoError(t, err)
	require.Len(t, all, len(Names()))
	assert.Equal(t, "statusexc", all[0].Name())

	_, err = Lookup("nope")
	assert.EqualError(t, err, `unknown plugin "nope"`)
}
