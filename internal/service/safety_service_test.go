package service

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestScan_CaseInsensitive(t *testing.T) {
	f := NewSafetyFilter()

	flags := f.Scan("I CAN'T BREATHE and I feel dizzy")
	require.Contains(t, flags, "can't breathe")
}

func TestScan_NoMatch(t *testing.T) {
	f := NewSafetyFilter()

	require.Empty(t, f.Scan("how long do I wear my retainer at night"))
}

func TestScan_ListDefinitionOrder(t *testing.T) {
	f := NewSafetyFilter()

	// "fever" appears before "swelling" in the message, but the filter
	// reports matches in keyword-list order.
	flags := f.Scan("I have a fever and some swelling")
	require.Equal(t, []string{"fever", "swelling"}, flags)

	flags = f.Scan("some swelling and now a fever")
	require.Equal(t, []string{"fever", "swelling"}, flags)
}

func TestScan_Idempotent(t *testing.T) {
	f := NewSafetyFilter()
	msg := "severe bleeding won't stop, this is an emergency"

	first := f.Scan(msg)
	second := f.Scan(msg)
	require.Equal(t, first, second)
	require.NotEmpty(t, first)
}

func TestScan_SnappedWireScenario(t *testing.T) {
	f := NewSafetyFilter()

	flags := f.Scan("my wire snapped and is cutting my cheek, please help")
	require.NotEmpty(t, flags)
}
