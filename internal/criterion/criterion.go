package criterion

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/david/tender-digest/internal/auction"
)

// Count is the number of fixed criteria derived from every auction.
const Count = 6

var ErrUnknownPurchaseType = errors.New("unknown purchase type")

const (
	labelName           = "Название закупки"
	labelGuarantee      = "Требуется ли обеспечение исполнения контракта"
	labelLicense        = "Требуется ли наличие сертификатов/лицензий"
	labelDeliveries     = "График поставки"
	labelPriceType      = "Тип цены"
	labelSpecifications = "Спецификация"

	yes = "Да"
	no  = "Нет"
)

var purchaseTypeLabels = map[auction.PurchaseType]string{
	auction.PurchaseTypeInitialPrice: "Указана начальная цена",
	auction.PurchaseTypeMaxPrice:     "Указана максимальная цена",
}

// Entry is one evaluation facet of an auction. Exactly one of Value,
// Deliveries or Specifications is set, depending on Index.
type Entry struct {
	Index          int                    `json:"index"`
	Label          string                 `json:"label"`
	Value          string                 `json:"value,omitempty"`
	Deliveries     []DeliverySummary      `json:"deliveries,omitempty"`
	Specifications []SpecificationSummary `json:"specifications,omitempty"`
}

type DeliverySummary struct {
	Period string        `json:"Сроки доставки"`
	Place  string        `json:"Место доставки"`
	Items  []ItemSummary `json:"Список товаров"`
}

type ItemSummary struct {
	Quantity string `json:"quantity"`
	Name     string `json:"name"`
}

type SpecificationSummary struct {
	Quantity        string          `json:"Количество товаров"`
	Name            string          `json:"Имя товара"`
	Characteristics json.RawMessage `json:"Характеристики"`
	Error           string          `json:"error,omitempty"`
}

// Build derives the six criteria of rec in their fixed order. It fails only
// when the purchase type is not one of the two known values.
func Build(rec *auction.AuctionRecord) ([]Entry, error) {
	priceLabel, ok := purchaseTypeLabels[rec.PurchaseType]
	if !ok {
		return nil, fmt.Errorf("auction %s: %w: %d", rec.ID, ErrUnknownPurchaseType, rec.PurchaseType)
	}

	return []Entry{
		{Index: 1, Label: labelName, Value: rec.Name},
		{Index: 2, Label: labelGuarantee, Value: yesNo(rec.ContractGuaranteeRequired)},
		{Index: 3, Label: labelLicense, Value: yesNo(rec.LicenseRequired)},
		{Index: 4, Label: labelDeliveries, Deliveries: summarizeDeliveries(rec.Deliveries)},
		{Index: 5, Label: labelPriceType, Value: priceLabel},
		{Index: 6, Label: labelSpecifications, Specifications: summarizeSpecifications(rec.Specifications)},
	}, nil
}

// Select picks entries by 1-based index. The result always has len(indices)
// elements; an index outside 1..len(entries) yields nil in its slot.
func Select(entries []Entry, indices []int) []*Entry {
	out := make([]*Entry, len(indices))
	for i, idx := range indices {
		if idx < 1 || idx > len(entries) {
			continue
		}
		e := entries[idx-1]
		out[i] = &e
	}
	return out
}

// FormatPeriod renders a delivery window in the site's phrasing. A missing day
// bound is left out rather than printed blank.
func FormatPeriod(p auction.Period) string {
	if p.HasDayRange() {
		switch {
		case p.DaysFrom == nil:
			return fmt.Sprintf("До %d дней", *p.DaysTo)
		case p.DaysTo == nil:
			return fmt.Sprintf("От %d дней", *p.DaysFrom)
		}
		return fmt.Sprintf("От %d до %d дней", *p.DaysFrom, *p.DaysTo)
	}
	return fmt.Sprintf("С %s до %s", formatDate(p.DateFrom), formatDate(p.DateTo))
}

func summarizeDeliveries(deliveries []auction.Delivery) []DeliverySummary {
	out := make([]DeliverySummary, 0, len(deliveries))
	for _, d := range deliveries {
		items := make([]ItemSummary, 0, len(d.Items))
		for _, it := range d.Items {
			items = append(items, ItemSummary{Quantity: it.Quantity, Name: it.Name})
		}
		out = append(out, DeliverySummary{
			Period: FormatPeriod(d.Period),
			Place:  d.Place,
			Items:  items,
		})
	}
	return out
}

func summarizeSpecifications(specs []auction.Specification) []SpecificationSummary {
	out := make([]SpecificationSummary, 0, len(specs))
	for _, s := range specs {
		out = append(out, SpecificationSummary{
			Quantity:        s.Quantity,
			Name:            s.Name,
			Characteristics: s.Characteristics,
			Error:           s.CharacteristicsError,
		})
	}
	return out
}

func yesNo(v bool) string {
	if v {
		return yes
	}
	return no
}

var providerDateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02",
}

// formatDate renders provider timestamps as DD.MM.YYYY and keeps anything
// unparsable as sent.
func formatDate(raw string) string {
	raw = strings.TrimSpace(raw)
	for _, layout := range providerDateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.Format("02.01.2006")
		}
	}
	return raw
}
