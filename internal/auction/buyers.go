package auction

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// decodeBuyers keeps every attribute of a shared-purchase buyer; only the id is interpreted.
func decodeBuyers(raw []json.RawMessage) ([]Buyer, error) {
	buyers := make([]Buyer, 0, len(raw))
	for i, r := range raw {
		var head struct {
			ID ID `json:"id"`
		}
		if err := json.Unmarshal(r, &head); err != nil {
			return nil, fmt.Errorf("buyer %d: %w", i, err)
		}

		dec := json.NewDecoder(bytes.NewReader(r))
		dec.UseNumber()
		attrs := map[string]any{}
		if err := dec.Decode(&attrs); err != nil {
			return nil, fmt.Errorf("buyer %d attributes: %w", i, err)
		}

		buyers = append(buyers, Buyer{ID: head.ID, Attributes: attrs})
	}
	return buyers, nil
}

// IndexBuyers maps buyer id to buyer. A later duplicate id replaces an earlier one.
func IndexBuyers(buyers []Buyer) map[ID]*Buyer {
	index := make(map[ID]*Buyer, len(buyers))
	for i := range buyers {
		index[buyers[i].ID] = &buyers[i]
	}
	return index
}

// JoinBuyers returns a copy of deliveries whose items carry the buyer their
// BuyerID refers to. Items with an unknown or missing BuyerID keep a nil Buyer.
func JoinBuyers(deliveries []Delivery, buyers map[ID]*Buyer) []Delivery {
	out := make([]Delivery, len(deliveries))
	for i, d := range deliveries {
		items := make([]DeliveryItem, len(d.Items))
		for j, item := range d.Items {
			item.Buyer = nil
			if item.BuyerID != nil {
				if b, ok := buyers[*item.BuyerID]; ok {
					item.Buyer = b
				}
			}
			items[j] = item
		}
		d.Items = items
		out[i] = d
	}
	return out
}
