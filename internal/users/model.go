package users

import (
	"sort"
	"strings"

	"github.com/angelmondragon/swiftcart-backend/pkg/types"
)

// DeliveryProfile is the checkout-relevant view of users/{uid}.
type DeliveryProfile struct {
	UID           string                   `json:"-"`
	Name          string                   `json:"name,omitempty"`
	FirstName     string                   `json:"firstName,omitempty"`
	LastName      string                   `json:"lastName,omitempty"`
	Phone         string                   `json:"phone,omitempty"`
	Mobile        string                   `json:"mobile,omitempty"`
	Email         string                   `json:"email,omitempty"`
	Location      *types.Address           `json:"location,omitempty"`
	Addresses     map[string]types.Address `json:"addresses,omitempty"`
	MainAddressID string                   `json:"mainAddressId,omitempty"`
	PushToken     string                   `json:"expoPushToken,omitempty"`
}

// DisplayName prefers the full name and falls back to first/last.
func (p *DeliveryProfile) DisplayName() string {
	if p == nil {
		return ""
	}
	if name := strings.TrimSpace(p.Name); name != "" {
		return name
	}
	return strings.TrimSpace(strings.TrimSpace(p.FirstName) + " " + strings.TrimSpace(p.LastName))
}

func (p *DeliveryProfile) ContactPhone() string {
	if p == nil {
		return ""
	}
	if p.Phone != "" {
		return p.Phone
	}
	return p.Mobile
}

// DeliveryAddress resolves the address used for pricing: the main saved
// address, then the legacy location field, then none.
func (p *DeliveryProfile) DeliveryAddress() *types.Address {
	if p == nil {
		return nil
	}
	if p.MainAddressID != "" {
		if addr, ok := p.Addresses[p.MainAddressID]; ok {
			return (&addr).Clone()
		}
	}
	if p.Location != nil {
		return p.Location.Clone()
	}
	return nil
}

// Address returns a saved address by id.
func (p *DeliveryProfile) Address(id string) (*types.Address, bool) {
	if p == nil {
		return nil, false
	}
	addr, ok := p.Addresses[id]
	if !ok {
		return nil, false
	}
	return (&addr).Clone(), true
}

// AddressIDs lists saved address ids in a stable order.
func (p *DeliveryProfile) AddressIDs() []string {
	if p == nil {
		return nil
	}
	ids := make([]string, 0, len(p.Addresses))
	for id := range p.Addresses {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
