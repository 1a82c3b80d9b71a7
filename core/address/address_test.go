package address

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"loanledger/core/txerr"
)

func TestForKindShape(t *testing.T) {
	id := ForKind(KindAskOrder, "some-natural-key")
	require.Len(t, id, Length)
	require.True(t, strings.HasPrefix(id, Namespace))
	require.Equal(t, string(KindAskOrder), id[6:10])
	require.Equal(t, strings.ToLower(id), id)
	for _, c := range id {
		require.Contains(t, "0123456789abcdef", string(c))
	}
}

func TestForKindDeterministic(t *testing.T) {
	require.Equal(t, ForKind(KindWallet, "abc"), ForKind(KindWallet, "abc"))
	require.NotEqual(t, ForKind(KindWallet, "abc"), ForKind(KindWallet, "abd"))
	require.NotEqual(t, ForKind(KindWallet, "abc"), ForKind(KindAddress, "abc"))
}

func TestValidate(t *testing.T) {
	id := ForKind(KindDealOrder, "deal")
	require.NoError(t, Validate(id, KindDealOrder))

	err := Validate(id, KindAskOrder)
	require.Error(t, err)
	require.True(t, txerr.IsInvalid(err))
	require.Equal(t, "Invalid id "+id, err.Error())

	require.Error(t, Validate(id[:Length-1], KindDealOrder))
	require.Error(t, Validate(strings.Repeat("z", Length), KindDealOrder))
	require.Error(t, Validate("ffffff"+string(KindDealOrder)+strings.Repeat("0", 60), KindDealOrder))
}

func TestKindOf(t *testing.T) {
	id := ForKind(KindTransfer, "tx")
	kind, ok := KindOf(id)
	require.True(t, ok)
	require.Equal(t, KindTransfer, kind)

	_, ok = KindOf("deadbeef")
	require.False(t, ok)
}

func TestProcessedBlockSingleton(t *testing.T) {
	require.Len(t, ProcessedBlock, Length)
	require.NoError(t, Validate(ProcessedBlock, KindProcessedBlock))
}

func TestForSetting(t *testing.T) {
	addr := ForSetting("sawtooth.validator.gateway")
	require.Len(t, addr, len(SettingsNamespace)+16*4)
	require.True(t, strings.HasPrefix(addr, SettingsNamespace))
	require.Equal(t, addr, ForSetting("sawtooth.validator.gateway"))
	require.NotEqual(t, addr, ForSetting("sawtooth.validator.update1"))
}
