package cryptox_test

import (
	"testing"

	"github.com/wattlehq/accountd/pkg/cryptox"
	"github.com/stretchr/testify/require"
)

func TestGenerateToken(t *testing.T) {
	t.Parallel()

	tok, err := cryptox.GenerateToken(cryptox.TokenSize256)
	require.NoError(t, err)
	require.Len(t, tok, 43) // 32 bytes base64url, no padding

	other, err := cryptox.GenerateToken(cryptox.TokenSize256)
	require.NoError(t, err)
	require.NotEqual(t, tok, other)

	_, err = cryptox.GenerateToken(0)
	require.Error(t, err)
}

func TestFingerprintTokenIsDeterministic(t *testing.T) {
	t.Parallel()

	fp1 := cryptox.FingerprintToken("some-token")
	fp2 := cryptox.FingerprintToken("some-token")
	require.Equal(t, fp1, fp2)
	require.Len(t, fp1, 43)

	require.NotEqual(t, fp1, cryptox.FingerprintToken("other-token"))
}
