package outbox

import (
	"errors"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/require"
)

func TestClipErrorKeepsRunesWhole(t *testing.T) {
	msg := strings.Repeat("a", maxLastErrorLen-1) + "é"
	clipped := clipError(msg)
	require.Len(t, clipped, maxLastErrorLen-1)
	require.True(t, utf8.ValidString(clipped))
	require.Equal(t, "short", clipError("short"))
}

func TestTruncateErrorNil(t *testing.T) {
	require.Nil(t, truncateError(nil))
	require.Equal(t, "boom", *truncateError(errors.New("boom")))
}
