package txerr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestClassification(t *testing.T) {
	inv := Invalid("Insufficient funds")
	require.True(t, IsInvalid(inv))
	require.False(t, IsInternal(inv))
	require.EqualError(t, inv, "Insufficient funds")

	internal := Internalf("state get %s: %v", "addr", errors.New("boom"))
	require.True(t, IsInternal(internal))
	require.False(t, IsInvalid(internal))

	require.False(t, IsInvalid(errors.New("plain")))
	require.False(t, IsInternal(nil))
}

func TestClassSurvivesWrapping(t *testing.T) {
	inv := Invalidf("Expecting %v", "amount")
	wrapped := fmt.Errorf("dispatch: %w", inv)
	require.True(t, IsInvalid(wrapped))
	require.EqualError(t, inv, "Expecting amount")
}
