package ledger

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewConnection_RejectsEmptyDSN(t *testing.T) {
	_, err := NewConnection(Config{})
	require.ErrorIs(t, err, ErrDSNEmpty)
}
