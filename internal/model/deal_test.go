package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func i64(v int64) *int64   { return &v }
func i32(v int32) *int32   { return &v }
func u32(v uint32) *uint32 { return &v }

func TestParseDealKind(t *testing.T) {
	assert.Equal(t, KindPercentage, ParseDealKind("percentage"))
	assert.Equal(t, KindPercentage, ParseDealKind(" Percent "))
	assert.Equal(t, KindFixedAmount, ParseDealKind("fixed_amount"))
	assert.Equal(t, KindFixedAmount, ParseDealKind("FIXED"))
	assert.Equal(t, KindBogo, ParseDealKind("bogo"))

	// Unknown kinds stay browsable instead of erroring.
	assert.Equal(t, KindOther, ParseDealKind("mystery"))
	assert.Equal(t, KindOther, ParseDealKind(""))
}

func TestDiscountLabel(t *testing.T) {
	cases := []struct {
		name string
		deal Deal
		want string
	}{
		{"percentage", Deal{Kind: KindPercentage, DiscountPercent: i32(25)}, "25% off"},
		{"percentage missing percent", Deal{Kind: KindPercentage}, "special offer"},
		{"fixed with both prices", Deal{Kind: KindFixedAmount, OriginalPrice: i64(1999), DiscountPrice: i64(1499)}, "$5.00 off"},
		{"fixed with only discount price", Deal{Kind: KindFixedAmount, DiscountPrice: i64(999)}, "now $9.99"},
		{"bogo", Deal{Kind: KindBogo}, "buy one get one"},
		{"other", Deal{Kind: KindOther}, "special offer"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.deal.DiscountLabel())
		})
	}
}

func TestRemaining(t *testing.T) {
	unlimited := Deal{CurrentRedemptions: 7}
	assert.Nil(t, unlimited.Remaining())

	capped := Deal{MaxRedemptions: u32(10), CurrentRedemptions: 7}
	if assert.NotNil(t, capped.Remaining()) {
		assert.Equal(t, uint32(3), *capped.Remaining())
	}

	// A counter past the cap must clamp at zero, not wrap around.
	over := Deal{MaxRedemptions: u32(5), CurrentRedemptions: 9}
	if assert.NotNil(t, over.Remaining()) {
		assert.Equal(t, uint32(0), *over.Remaining())
	}
}
