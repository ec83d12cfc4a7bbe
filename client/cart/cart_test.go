package cart

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Bobybuu/zeno-speedy-services-sub001/client/store"
	"github.com/Bobybuu/zeno-speedy-services-sub001/client/transport"
)

func newTestCart(t *testing.T) (*Cart, store.Store) {
	t.Helper()
	s := store.NewMemory()
	return New(transport.NewClient("http://localhost", s)), s
}

func gasItem(vendorID int64, price float64, qty int) Item {
	return Item{
		ItemType:  "gas_product",
		ItemID:    7,
		VendorID:  vendorID,
		Name:      "6kg LPG refill",
		UnitPrice: price,
		Quantity:  qty,
	}
}

func TestAddItemMergesSameLine(t *testing.T) {
	c, _ := newTestCart(t)

	require.NoError(t, c.AddItem(gasItem(1, 1200, 1)))
	require.NoError(t, c.AddItem(gasItem(1, 1200, 2)))

	items := c.Items()
	require.Len(t, items, 1)
	assert.Equal(t, 3, items[0].Quantity)
	assert.Equal(t, 3, c.ItemCount())
	assert.Equal(t, 3600.0, c.Total())
}

func TestAddItemRejectsSecondVendor(t *testing.T) {
	c, _ := newTestCart(t)

	require.NoError(t, c.AddItem(gasItem(1, 1200, 1)))

	other := gasItem(2, 900, 1)
	other.ItemID = 9
	err := c.AddItem(other)
	require.ErrorIs(t, err, ErrMixedVendors)

	// Rejection must leave the cart as it was.
	assert.Equal(t, 1, c.ItemCount())
	assert.Equal(t, int64(1), c.VendorID())
	assert.Equal(t, 1200.0, c.Total())
}

func TestCylinderVariantsAreSeparateLines(t *testing.T) {
	c, _ := newTestCart(t)

	with := gasItem(1, 4500, 1)
	with.WithCylinder = true
	without := gasItem(1, 1200, 1)

	require.NoError(t, c.AddItem(with))
	require.NoError(t, c.AddItem(without))

	assert.Len(t, c.Items(), 2)
	assert.Equal(t, 5700.0, c.Total())
}

func TestUpdateQuantityBelowOneRemoves(t *testing.T) {
	c, _ := newTestCart(t)

	require.NoError(t, c.AddItem(gasItem(1, 1200, 2)))
	c.UpdateQuantity("gas_product", 7, false, 0)

	assert.Empty(t, c.Items())
	assert.Equal(t, 0.0, c.Total())
	assert.Equal(t, int64(0), c.VendorID())
}

func TestItemQuantity(t *testing.T) {
	c, _ := newTestCart(t)

	require.NoError(t, c.AddItem(gasItem(1, 1200, 2)))

	assert.Equal(t, 2, c.ItemQuantity("gas_product", 7, false))
	assert.Equal(t, 0, c.ItemQuantity("gas_product", 99, false))
}

func TestCartSurvivesRestart(t *testing.T) {
	s := store.NewMemory()
	client := transport.NewClient("http://localhost", s)

	first := New(client)
	require.NoError(t, first.AddItem(gasItem(1, 1200, 2)))

	reloaded := New(client)
	assert.Equal(t, 2, reloaded.ItemCount())
	assert.Equal(t, 2400.0, reloaded.Total())
}

func TestClearDropsPersistedState(t *testing.T) {
	c, s := newTestCart(t)

	require.NoError(t, c.AddItem(gasItem(1, 1200, 1)))
	c.Clear()

	assert.Empty(t, c.Items())
	_, ok := s.Get(store.KeyCart)
	assert.False(t, ok)
}
