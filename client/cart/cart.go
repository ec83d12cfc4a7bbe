// Package cart keeps the storefront's cart locally, enforcing the same
// single-vendor rule the server does, and can sync itself with the
// server-side cart for authenticated users.
package cart

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"

	"github.com/Bobybuu/zeno-speedy-services-sub001/client/store"
	"github.com/Bobybuu/zeno-speedy-services-sub001/client/transport"
)

// ErrMixedVendors rejects adding an item from a second vendor; the cart
// is left untouched.
var ErrMixedVendors = errors.New("cart can only hold items from one vendor at a time")

// Item is a cart line. Price and name are denormalized at add time so
// the cart renders without further lookups.
type Item struct {
	ItemType     string  `json:"item_type"` // service or gas_product
	ItemID       int64   `json:"item_id"`
	VendorID     int64   `json:"vendor_id"`
	Name         string  `json:"name"`
	UnitPrice    float64 `json:"unit_price"`
	Quantity     int     `json:"quantity"`
	WithCylinder bool    `json:"with_cylinder,omitempty"`
}

type Cart struct {
	mu     sync.Mutex
	items  []Item
	store  store.Store
	client *transport.Client
}

func New(client *transport.Client) *Cart {
	c := &Cart{store: client.Store(), client: client}
	c.load()
	return c
}

func (c *Cart) load() {
	raw, okCart := c.store.Get(store.KeyCart)
	if !okCart || raw == "" {
		return
	}
	var items []Item
	if err := json.Unmarshal([]byte(raw), &items); err == nil {
		c.items = items
	}
}

func (c *Cart) persist() {
	raw, err := json.Marshal(c.items)
	if err != nil {
		return
	}
	c.store.Set(store.KeyCart, string(raw))
}

func (c *Cart) key(itemType string, itemID int64, withCylinder bool) int {
	for i, it := range c.items {
		if it.ItemType == itemType && it.ItemID == itemID && it.WithCylinder == withCylinder {
			return i
		}
	}
	return -1
}

// AddItem adds or merges a line. An item from a different vendor is
// rejected without mutating the cart.
func (c *Cart) AddItem(item Item) error {
	if item.Quantity < 1 {
		item.Quantity = 1
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.items) > 0 && c.items[0].VendorID != item.VendorID {
		return ErrMixedVendors
	}

	if i := c.key(item.ItemType, item.ItemID, item.WithCylinder); i >= 0 {
		c.items[i].Quantity += item.Quantity
	} else {
		c.items = append(c.items, item)
	}
	c.persist()
	return nil
}

func (c *Cart) RemoveItem(itemType string, itemID int64, withCylinder bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if i := c.key(itemType, itemID, withCylinder); i >= 0 {
		c.items = append(c.items[:i], c.items[i+1:]...)
		c.persist()
	}
}

// UpdateQuantity sets a line's quantity; anything below one removes the
// line entirely.
func (c *Cart) UpdateQuantity(itemType string, itemID int64, withCylinder bool, quantity int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	i := c.key(itemType, itemID, withCylinder)
	if i < 0 {
		return
	}
	if quantity < 1 {
		c.items = append(c.items[:i], c.items[i+1:]...)
	} else {
		c.items[i].Quantity = quantity
	}
	c.persist()
}

func (c *Cart) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = nil
	c.store.Delete(store.KeyCart)
}

func (c *Cart) Items() []Item {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Item, len(c.items))
	copy(out, c.items)
	return out
}

func (c *Cart) ItemQuantity(itemType string, itemID int64, withCylinder bool) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	if i := c.key(itemType, itemID, withCylinder); i >= 0 {
		return c.items[i].Quantity
	}
	return 0
}

func (c *Cart) Total() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	var total float64
	for _, it := range c.items {
		total += it.UnitPrice * float64(it.Quantity)
	}
	return total
}

func (c *Cart) ItemCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	var count int
	for _, it := range c.items {
		count += it.Quantity
	}
	return count
}

func (c *Cart) VendorID() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.items) == 0 {
		return 0
	}
	return c.items[0].VendorID
}

// SyncWithBackend replays the local cart into the server-side cart so
// checkout can order from it. The server re-validates stock and the
// vendor rule; its copy wins on conflict.
func (c *Cart) SyncWithBackend(ctx context.Context) error {
	items := c.Items()

	if _, err := c.post(ctx, "/api/orders/cart/clear/", nil); err != nil {
		return err
	}

	for _, it := range items {
		var path string
		var payload map[string]any
		switch it.ItemType {
		case "gas_product":
			path = "/api/orders/cart/add_gas_product/"
			payload = map[string]any{
				"gas_product_id": it.ItemID,
				"quantity":       it.Quantity,
				"with_cylinder":  it.WithCylinder,
			}
		default:
			path = "/api/orders/cart/add_item/"
			payload = map[string]any{
				"service_id": it.ItemID,
				"quantity":   it.Quantity,
			}
		}
		if _, err := c.post(ctx, path, payload); err != nil {
			return err
		}
	}
	return nil
}

func (c *Cart) post(ctx context.Context, path string, payload any) (map[string]any, error) {
	var out map[string]any
	if err := c.client.Do(ctx, http.MethodPost, path, payload, &out); err != nil {
		return nil, err
	}
	return out, nil
}
