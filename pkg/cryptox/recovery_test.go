package cryptox_test

import (
	"testing"

	"github.com/wattlehq/accountd/pkg/cryptox"
	"github.com/stretchr/testify/require"
)

func TestGenerateRecoveryCode(t *testing.T) {
	t.Parallel()

	code, err := cryptox.GenerateRecoveryCode(10)
	require.NoError(t, err)
	require.Len(t, code, 10)

	// Only the published alphabet may appear; codes must survive
	// case-insensitive re-entry by users.
	for _, r := range code {
		require.Contains(t, "0123456789ABCDEFGHJKMNPQRSTVWXYZ", string(r))
	}

	_, err = cryptox.GenerateRecoveryCode(0)
	require.Error(t, err)
}

func TestNormalizeRecoveryCode(t *testing.T) {
	t.Parallel()

	require.Equal(t, "ABC123", cryptox.NormalizeRecoveryCode("  abc123 "))
	require.Equal(t,
		cryptox.FingerprintToken(cryptox.NormalizeRecoveryCode("abcd1234ef")),
		cryptox.FingerprintToken(cryptox.NormalizeRecoveryCode("ABCD1234EF")),
	)
}
