package criterion

import (
	"encoding/json"
	"errors"
	"reflect"
	"testing"

	"github.com/david/tender-digest/internal/auction"
)

func intPtr(v int) *int { return &v }

func sampleRecord() *auction.AuctionRecord {
	return &auction.AuctionRecord{
		ID:                        "9864533",
		Name:                      "Поставка бумаги",
		ContractGuaranteeRequired: false,
		LicenseRequired:           true,
		PurchaseType:              auction.PurchaseTypeInitialPrice,
		Deliveries: []auction.Delivery{{
			Period: auction.Period{DaysFrom: intPtr(5), DaysTo: intPtr(10)},
			Place:  "г. Москва",
			Items:  []auction.DeliveryItem{{Quantity: "10", Name: "Бумага А4"}},
		}},
		Specifications: []auction.Specification{{
			ID:              "501",
			Quantity:        "10",
			Name:            "Бумага А4",
			Characteristics: json.RawMessage(`[{"name":"Плотность"}]`),
		}},
	}
}

func TestBuild_FixedOrderAndLabels(t *testing.T) {
	entries, err := Build(sampleRecord())
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if len(entries) != Count {
		t.Fatalf("expected %d entries, got %d", Count, len(entries))
	}
	for i, e := range entries {
		if e.Index != i+1 {
			t.Errorf("entry %d has index %d", i, e.Index)
		}
	}
	if entries[0].Value != "Поставка бумаги" {
		t.Errorf("criterion 1 = %q", entries[0].Value)
	}
	if entries[1].Value != "Нет" {
		t.Errorf("criterion 2 = %q, want Нет", entries[1].Value)
	}
	if entries[2].Value != "Да" {
		t.Errorf("criterion 3 = %q, want Да", entries[2].Value)
	}
	if len(entries[3].Deliveries) != 1 || entries[3].Deliveries[0].Items[0].Name != "Бумага А4" {
		t.Errorf("criterion 4 = %+v", entries[3].Deliveries)
	}
	if entries[4].Value != "Указана начальная цена" {
		t.Errorf("criterion 5 = %q", entries[4].Value)
	}
	if len(entries[5].Specifications) != 1 || string(entries[5].Specifications[0].Characteristics) != `[{"name":"Плотность"}]` {
		t.Errorf("criterion 6 = %+v", entries[5].Specifications)
	}
}

func TestBuild_IsDeterministic(t *testing.T) {
	first, err := Build(sampleRecord())
	if err != nil {
		t.Fatal(err)
	}
	second, err := Build(sampleRecord())
	if err != nil {
		t.Fatal(err)
	}
	a, _ := json.Marshal(first)
	b, _ := json.Marshal(second)
	if string(a) != string(b) {
		t.Fatalf("identical input produced different output:\n%s\n%s", a, b)
	}
}

func TestBuild_UnknownPurchaseTypeFails(t *testing.T) {
	for _, pt := range []auction.PurchaseType{0, 3, -1} {
		rec := sampleRecord()
		rec.PurchaseType = pt
		if _, err := Build(rec); !errors.Is(err, ErrUnknownPurchaseType) {
			t.Errorf("purchase type %d: expected ErrUnknownPurchaseType, got %v", pt, err)
		}
	}

	rec := sampleRecord()
	rec.PurchaseType = auction.PurchaseTypeMaxPrice
	entries, err := Build(rec)
	if err != nil {
		t.Fatal(err)
	}
	if entries[4].Value != "Указана максимальная цена" {
		t.Errorf("criterion 5 = %q", entries[4].Value)
	}
}

func TestFormatPeriod(t *testing.T) {
	tests := []struct {
		name   string
		period auction.Period
		want   string
	}{
		{"day range", auction.Period{DaysFrom: intPtr(5), DaysTo: intPtr(10)}, "От 5 до 10 дней"},
		{"date range", auction.Period{DateFrom: "2024-01-01", DateTo: "2024-01-15"}, "С 01.01.2024 до 15.01.2024"},
		{"provider timestamps", auction.Period{DateFrom: "2024-01-01T00:00:00", DateTo: "2024-01-15T00:00:00"}, "С 01.01.2024 до 15.01.2024"},
		{"days win over dates", auction.Period{DaysFrom: intPtr(1), DaysTo: intPtr(3), DateFrom: "2024-01-01", DateTo: "2024-01-15"}, "От 1 до 3 дней"},
		{"zero days fall back to dates", auction.Period{DaysFrom: intPtr(0), DateFrom: "2024-01-01", DateTo: "2024-01-15"}, "С 01.01.2024 до 15.01.2024"},
		{"upper bound only", auction.Period{DaysTo: intPtr(10)}, "До 10 дней"},
		{"upper bound only with dates", auction.Period{DaysTo: intPtr(10), DateFrom: "2024-01-01", DateTo: "2024-01-15"}, "До 10 дней"},
		{"lower bound only", auction.Period{DaysFrom: intPtr(5)}, "От 5 дней"},
		{"zero lower bound kept", auction.Period{DaysFrom: intPtr(0), DaysTo: intPtr(10)}, "От 0 до 10 дней"},
		{"unparsable date kept", auction.Period{DateFrom: "по заявке", DateTo: "2024-01-15"}, "С по заявке до 15.01.2024"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FormatPeriod(tt.period); got != tt.want {
				t.Errorf("FormatPeriod = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestSelect_OutOfRangeIsNil(t *testing.T) {
	entries, err := Build(sampleRecord())
	if err != nil {
		t.Fatal(err)
	}

	got := Select(entries, []int{1, 7, 0, 5})
	if len(got) != 4 {
		t.Fatalf("expected 4 slots, got %d", len(got))
	}
	if got[0] == nil || got[0].Index != 1 {
		t.Errorf("slot 0 = %+v", got[0])
	}
	if got[1] != nil || got[2] != nil {
		t.Errorf("out-of-range slots must be nil")
	}
	if got[3] == nil || got[3].Index != 5 {
		t.Errorf("slot 3 = %+v", got[3])
	}
}

func TestParseSelection(t *testing.T) {
	tests := []struct {
		in      string
		want    []int
		wantErr bool
	}{
		{"Все", All(), false},
		{"all", All(), false},
		{"1 3 5", []int{1, 3, 5}, false},
		{"1,3, 5", []int{1, 3, 5}, false},
		{"7", nil, true},
		{"1 x", nil, true},
		{"   ", nil, true},
	}
	for _, tt := range tests {
		got, err := ParseSelection(tt.in)
		if tt.wantErr {
			if !errors.Is(err, ErrInvalidSelection) {
				t.Errorf("ParseSelection(%q) expected ErrInvalidSelection, got %v", tt.in, err)
			}
			continue
		}
		if err != nil || !reflect.DeepEqual(got, tt.want) {
			t.Errorf("ParseSelection(%q) = %v, %v; want %v", tt.in, got, err, tt.want)
		}
	}
}

func TestParseURLs(t *testing.T) {
	got := ParseURLs(" https://zakupki.mos.ru/auction/1, ,https://zakupki.mos.ru/auction/2 ")
	want := []string{"https://zakupki.mos.ru/auction/1", "https://zakupki.mos.ru/auction/2"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("ParseURLs = %v, want %v", got, want)
	}
}
