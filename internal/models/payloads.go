package models

import (
	"encoding/json"
	"fmt"
)

// EventType identifies the business meaning of a sync event.
type EventType string

const (
	EventSale                EventType = "sale"
	EventShiftOpen           EventType = "shift_open"
	EventShiftClose          EventType = "shift_close"
	EventInventoryAdjustment EventType = "inventory_adjustment"
)

// KnownEventTypes returns all event types the queue accepts.
func KnownEventTypes() map[EventType]bool {
	return map[EventType]bool{
		EventSale:                true,
		EventShiftOpen:           true,
		EventShiftClose:          true,
		EventInventoryAdjustment: true,
	}
}

// EventPayload is the typed side of a sync event. The wire and storage
// representation stays schema-less JSON so new event types can be added
// without a storage migration.
type EventPayload interface {
	EventType() EventType
}

// SaleLine is one item on a sale.
type SaleLine struct {
	SKU       string `json:"sku"`
	Quantity  int    `json:"quantity"`
	UnitCents int64  `json:"unit_cents"`
}

// SalePayload records a completed sale.
type SalePayload struct {
	SaleID     string     `json:"sale_id"`
	ShiftID    string     `json:"shift_id,omitempty"`
	Lines      []SaleLine `json:"lines"`
	TotalCents int64      `json:"total_cents"`
	Tender     string     `json:"tender,omitempty"`
}

func (SalePayload) EventType() EventType { return EventSale }

// ShiftOpenPayload records a register shift opening.
type ShiftOpenPayload struct {
	ShiftID           string `json:"shift_id"`
	OpenedBy          string `json:"opened_by"`
	OpeningFloatCents int64  `json:"opening_float_cents"`
}

func (ShiftOpenPayload) EventType() EventType { return EventShiftOpen }

// ShiftClosePayload records a register shift closing.
type ShiftClosePayload struct {
	ShiftID           string `json:"shift_id"`
	ClosedBy          string `json:"closed_by"`
	ClosingTotalCents int64  `json:"closing_total_cents"`
}

func (ShiftClosePayload) EventType() EventType { return EventShiftClose }

// InventoryAdjustmentPayload records a manual stock correction.
type InventoryAdjustmentPayload struct {
	SKU    string `json:"sku"`
	Delta  int    `json:"delta"`
	Reason string `json:"reason,omitempty"`
}

func (InventoryAdjustmentPayload) EventType() EventType { return EventInventoryAdjustment }

// RawPayload carries an event type this build does not know. It keeps
// forward compatibility: unknown events round-trip untouched.
type RawPayload struct {
	Type EventType
	Data json.RawMessage
}

func (p RawPayload) EventType() EventType { return p.Type }

// EncodePayload serializes a typed payload to its schema-less wire form.
func EncodePayload(p EventPayload) (json.RawMessage, error) {
	if raw, ok := p.(RawPayload); ok {
		return raw.Data, nil
	}
	data, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("encode %s payload: %w", p.EventType(), err)
	}
	return data, nil
}

// DecodePayload parses stored JSON back into the tagged union. Unknown
// event types decode to RawPayload rather than erroring.
func DecodePayload(eventType EventType, data json.RawMessage) (EventPayload, error) {
	switch eventType {
	case EventSale:
		var p SalePayload
		if err := json.Unmarshal(data, &p); err != nil {
			return nil, fmt.Errorf("decode sale payload: %w", err)
		}
		return p, nil
	case EventShiftOpen:
		var p ShiftOpenPayload
		if err := json.Unmarshal(data, &p); err != nil {
			return nil, fmt.Errorf("decode shift_open payload: %w", err)
		}
		return p, nil
	case EventShiftClose:
		var p ShiftClosePayload
		if err := json.Unmarshal(data, &p); err != nil {
			return nil, fmt.Errorf("decode shift_close payload: %w", err)
		}
		return p, nil
	case EventInventoryAdjustment:
		var p InventoryAdjustmentPayload
		if err := json.Unmarshal(data, &p); err != nil {
			return nil, fmt.Errorf("decode inventory_adjustment payload: %w", err)
		}
		return p, nil
	default:
		return RawPayload{Type: eventType, Data: data}, nil
	}
}
