package services

import (
	"testing"

	"github.com/stretchr/testify/require"

	"property-analytics/models"
	"property-analytics/utils"
)

func newTestLogger() *utils.Logger { return utils.NewNopLogger() }

func TestNormalizerReplacesSentinels(t *testing.T) {
	n := NewNormalizer(newTestLogger())

	raw := []*models.RawListing{
		{PriceIDR: "N/A", OwnershipType: "None", Area: "Canggu", LeaseDuration: " - "},
		{PriceIDR: "500000000", OwnershipType: "—", Description: "â€”"},
	}

	out, replaced := n.Normalize(raw)

	require.Equal(t, "", out[0].PriceIDR)
	require.Equal(t, "", out[0].OwnershipType)
	require.Equal(t, "Canggu", out[0].Area)
	require.Equal(t, "", out[0].LeaseDuration)
	require.Equal(t, "500000000", out[1].PriceIDR)
	require.Equal(t, "", out[1].OwnershipType)
	require.Equal(t, "", out[1].Description)

	require.Equal(t, 1, replaced["price_idr"])
	require.Equal(t, 2, replaced["ownership_type"])
	require.Equal(t, 1, replaced["lease_duration"])
	require.Equal(t, 1, replaced["description"])
}

func TestNormalizerDoesNotMutateInput(t *testing.T) {
	n := NewNormalizer(newTestLogger())
	raw := []*models.RawListing{{PriceIDR: "N/A"}}

	_, _ = n.Normalize(raw)

	require.Equal(t, "N/A", raw[0].PriceIDR)
}

func TestNormalizerIdempotent(t *testing.T) {
	n := NewNormalizer(newTestLogger())
	raw := []*models.RawListing{
		{PriceIDR: "null", Bedrooms: "3", Area: "na"},
		{PriceIDR: "-", Bedrooms: "N/A"},
	}

	once, firstCounts := n.Normalize(raw)
	twice, secondCounts := n.Normalize(once)

	require.Equal(t, once, twice)
	require.NotEmpty(t, firstCounts)
	require.Empty(t, secondCounts)
}

func TestIsSentinelVariants(t *testing.T) {
	for _, token := range []string{"", "None", "none", "N/A", "n/a", "NA", "na", "null", "Null", "-", "—", "â€”", "  null  "} {
		require.True(t, IsSentinel(token), "expected %q to be a sentinel", token)
	}
	for _, token := range []string{"0", "Canggu", "leasehold", "n/a value"} {
		require.False(t, IsSentinel(token), "expected %q not to be a sentinel", token)
	}
}
