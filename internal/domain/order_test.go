package domain_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/maplecart/storefront/internal/domain"
)

func TestShippingFor(t *testing.T) {
	assert.InDelta(t, 10.0, domain.ShippingFor(30), 0.001)
	// Exactly at the threshold still pays flat shipping.
	assert.InDelta(t, 10.0, domain.ShippingFor(100), 0.001)
	assert.InDelta(t, 0.0, domain.ShippingFor(100.01), 0.001)
	assert.InDelta(t, 0.0, domain.ShippingFor(120), 0.001)
}

func TestTaxFor(t *testing.T) {
	assert.InDelta(t, 9.60, domain.TaxFor(120), 0.001)
	assert.InDelta(t, 2.40, domain.TaxFor(30), 0.001)
	assert.InDelta(t, 0.0, domain.TaxFor(0), 0.001)
}

func TestParseOrderStatus(t *testing.T) {
	for _, s := range []string{"pending", "paid", "processing", "shipped", "delivered", "cancelled", "refunded"} {
		parsed, ok := domain.ParseOrderStatus(s)
		assert.True(t, ok, s)
		assert.Equal(t, domain.OrderStatus(s), parsed)
	}

	_, ok := domain.ParseOrderStatus("teleported")
	assert.False(t, ok)
	_, ok = domain.ParseOrderStatus("")
	assert.False(t, ok)
}

func TestNewOrderNumber(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		n := domain.NewOrderNumber()
		assert.True(t, strings.HasPrefix(n, "ORD-"), n)
		assert.Len(t, n, 12)
		// Ambiguous glyphs never appear.
		for _, bad := range []string{"0", "1", "I", "O"} {
			assert.NotContains(t, n[4:], bad)
		}
		seen[n] = true
	}
	assert.Greater(t, len(seen), 90)
}

func TestOrderIsOwner(t *testing.T) {
	order := &domain.Order{UserID: 42}
	assert.True(t, order.IsOwner(42))
	assert.False(t, order.IsOwner(7))
}

func TestProductMainImage(t *testing.T) {
	p := &domain.Product{Images: []string{"front.jpg", "back.jpg"}}
	assert.Equal(t, "front.jpg", p.MainImage())

	empty := &domain.Product{}
	assert.Equal(t, "", empty.MainImage())
}

func TestNewPagination(t *testing.T) {
	p := domain.NewPagination(2, 20, 45)
	assert.Equal(t, 3, p.Pages)

	p = domain.NewPagination(1, 20, 40)
	assert.Equal(t, 2, p.Pages)

	p = domain.NewPagination(1, 20, 0)
	assert.Equal(t, 0, p.Pages)
}

func TestParseProductSort(t *testing.T) {
	sort, ok := domain.ParseProductSort("")
	assert.True(t, ok)
	assert.Equal(t, domain.SortNewest, sort)

	sort, ok = domain.ParseProductSort("price-asc")
	assert.True(t, ok)
	assert.Equal(t, domain.SortPriceAsc, sort)

	_, ok = domain.ParseProductSort("by-vibes")
	assert.False(t, ok)
}
