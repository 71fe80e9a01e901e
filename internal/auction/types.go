package auction

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// PurchaseType tells whether the auction publishes an initial or a maximum price.
type PurchaseType int

const (
	PurchaseTypeInitialPrice PurchaseType = 1
	PurchaseTypeMaxPrice     PurchaseType = 2
)

// Valid reports whether p is one of the two values the provider defines.
func (p PurchaseType) Valid() bool {
	return p == PurchaseTypeInitialPrice || p == PurchaseTypeMaxPrice
}

// organizingTypeJoint marks a shared purchase whose buyers are embedded in the payload.
const organizingTypeJoint = 2

// ID is an identifier the provider sends either as a JSON string or a number.
type ID string

func (id *ID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = ID(strings.TrimSpace(s))
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("id must be a string or number: %w", err)
	}
	*id = ID(n.String())
	return nil
}

func (id ID) String() string { return string(id) }

// AuctionRecord is the canonical subset of an auction used by the rest of the pipeline.
type AuctionRecord struct {
	ID                        string
	SourceURL                 string
	Name                      string
	ContractGuaranteeRequired bool
	ContractGuaranteeAmount   *float64
	LicenseRequired           bool
	PurchaseType              PurchaseType
	JointPurchase             bool
	Deliveries                []Delivery
	Specifications            []Specification
	Buyers                    []Buyer
	Files                     []AttachedFile
}

// Period is a delivery window given either in days or as absolute dates.
type Period struct {
	DaysFrom *int
	DaysTo   *int
	DateFrom string
	DateTo   string
}

// HasDayRange reports whether the day-count form is present; it wins over dates.
// Zero day counts are treated as absent unless no dates were sent either.
func (p Period) HasDayRange() bool {
	if nonZero(p.DaysFrom) || nonZero(p.DaysTo) {
		return true
	}
	return (p.DaysFrom != nil || p.DaysTo != nil) && p.DateFrom == "" && p.DateTo == ""
}

func nonZero(v *int) bool {
	return v != nil && *v != 0
}

type Delivery struct {
	Period Period
	Place  string
	Items  []DeliveryItem
}

type DeliveryItem struct {
	Quantity string
	Name     string
	BuyerID  *ID
	Buyer    *Buyer // nil when BuyerID is absent or does not resolve
}

type Buyer struct {
	ID         ID
	Attributes map[string]any
}

type Specification struct {
	ID                   ID
	Quantity             string // the provider's currentValue
	Name                 string
	Characteristics      json.RawMessage
	CharacteristicsError string
}

type AttachedFile struct {
	ID   ID
	Name string
}

// wire types for GET /Auction/Get

type auctionPayload struct {
	Name                        string            `json:"name"`
	IsContractGuaranteeRequired bool              `json:"isContractGuaranteeRequired"`
	ContractGuaranteeAmount     *float64          `json:"contractGuaranteeAmount"`
	IsLicenseProduction         bool              `json:"isLicenseProduction"`
	PurchaseTypeID              int               `json:"purchaseTypeId"`
	OrganizingTypeID            int               `json:"organizingTypeId"`
	Deliveries                  []deliveryPayload `json:"deliveries"`
	Items                       []specPayload     `json:"items"`
	Files                       []filePayload     `json:"files"`
	SharedPurchaseBuyers        []json.RawMessage `json:"sharedPurchaseBuyers"`
}

type deliveryPayload struct {
	PeriodDaysFrom *int          `json:"periodDaysFrom"`
	PeriodDaysTo   *int          `json:"periodDaysTo"`
	PeriodDateFrom *string       `json:"periodDateFrom"`
	PeriodDateTo   *string       `json:"periodDateTo"`
	DeliveryPlace  string        `json:"deliveryPlace"`
	Items          []itemPayload `json:"items"`
}

type itemPayload struct {
	Quantity json.Number `json:"quantity"`
	Name     string      `json:"name"`
	BuyerID  *ID         `json:"buyerId"`
}

type specPayload struct {
	ID           ID          `json:"id"`
	CurrentValue json.Number `json:"currentValue"`
	Name         string      `json:"name"`
}

type filePayload struct {
	ID   ID     `json:"id"`
	Name string `json:"name"`
}

// wire type for GET /Auction/GetAuctionItemAdditionalInfo
type itemInfoPayload struct {
	Characteristics json.RawMessage `json:"characteristics"`
}

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
