package auction

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/david/tender-digest/internal/config"
)

const (
	auctionPath        = "/Auction/Get"
	itemInfoPath       = "/Auction/GetAuctionItemAdditionalInfo"
	fileDownloadPath   = "/FileStorage/Download"
	maxErrorBodyLength = 512
)

// Client talks to the tendering site's JSON API.
type Client struct {
	BaseURL        string
	HTTP           *http.Client
	UserAgent      string
	AcceptLanguage string
}

func NewClient(cfg config.ProviderConfig) *Client {
	return &Client{
		BaseURL: strings.TrimRight(cfg.BaseURL, "/"),
		HTTP: &http.Client{
			Timeout: time.Duration(cfg.TimeoutSeconds) * time.Second,
		},
		UserAgent:      cfg.UserAgent,
		AcceptLanguage: cfg.AcceptLanguage,
	}
}

// FetchOptions controls the secondary calls made while building a record.
type FetchOptions struct {
	// Characteristics triggers one GetAuctionItemAdditionalInfo call per specification.
	Characteristics bool
}

// IDFromURL returns the auction id carried by the last path segment of source.
// A bare id is returned unchanged.
func IDFromURL(source string) string {
	source = strings.TrimSpace(source)
	if u, err := url.Parse(source); err == nil && u.Path != "" {
		source = u.Path
	} else if i := strings.IndexAny(source, "?#"); i >= 0 {
		source = source[:i]
	}
	source = strings.TrimRight(source, "/")
	if i := strings.LastIndex(source, "/"); i >= 0 {
		source = source[i+1:]
	}
	return source
}

// DownloadURL builds the file storage link for an attached file.
func (c *Client) DownloadURL(fileID ID) string {
	return c.BaseURL + fileDownloadPath + "?" + url.Values{"id": {fileID.String()}}.Encode()
}

// Fetch resolves source to an auction id and returns its record. When
// opts.Characteristics is set, every specification gets its characteristics
// fetched; a failure there is stored on that specification only.
func (c *Client) Fetch(ctx context.Context, source string, opts FetchOptions) (*AuctionRecord, error) {
	id := IDFromURL(source)
	if id == "" {
		return nil, fmt.Errorf("no auction id in %q", source)
	}

	rec, err := c.GetAuction(ctx, id)
	if err != nil {
		return nil, err
	}
	rec.SourceURL = source

	if opts.Characteristics && len(rec.Specifications) > 0 {
		specs := make([]Specification, len(rec.Specifications))
		for i, spec := range rec.Specifications {
			chars, err := c.GetCharacteristics(ctx, spec.ID)
			if err != nil {
				log.Printf("[auction %s] characteristics for item %s failed: %v", id, spec.ID, err)
				spec.CharacteristicsError = err.Error()
			} else {
				spec.Characteristics = chars
			}
			specs[i] = spec
		}
		rec.Specifications = specs
	}

	return rec, nil
}

// GetAuction loads one auction and builds its record, joining shared-purchase
// buyers into delivery items when the auction is a joint purchase.
func (c *Client) GetAuction(ctx context.Context, id string) (*AuctionRecord, error) {
	var payload auctionPayload
	if err := c.getJSON(ctx, auctionPath, url.Values{"auctionId": {id}}, &payload); err != nil {
		return nil, err
	}
	return recordFromPayload(id, payload)
}

// GetCharacteristics returns the raw characteristics blob of one specification item.
func (c *Client) GetCharacteristics(ctx context.Context, itemID ID) (json.RawMessage, error) {
	var payload itemInfoPayload
	if err := c.getJSON(ctx, itemInfoPath, url.Values{"itemId": {itemID.String()}}, &payload); err != nil {
		return nil, err
	}
	if len(payload.Characteristics) == 0 || bytes.Equal(payload.Characteristics, []byte("null")) {
		return nil, nil
	}
	return payload.Characteristics, nil
}

func (c *Client) getJSON(ctx context.Context, path string, params url.Values, out any) error {
	reqURL := c.BaseURL + path + "?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json, text/plain, */*")
	if c.UserAgent != "" {
		req.Header.Set("User-Agent", c.UserAgent)
	}
	if c.AcceptLanguage != "" {
		req.Header.Set("Accept-Language", c.AcceptLanguage)
	}

	client := c.HTTP
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return &RemoteFetchError{URL: reqURL, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyLength))
		return &RemoteFetchError{
			URL:        reqURL,
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("%s", strings.TrimSpace(string(body))),
		}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding %s: %w", path, err)
	}
	return nil
}

func recordFromPayload(id string, p auctionPayload) (*AuctionRecord, error) {
	rec := &AuctionRecord{
		ID:                        id,
		Name:                      htmlToText(p.Name),
		ContractGuaranteeRequired: p.IsContractGuaranteeRequired,
		ContractGuaranteeAmount:   p.ContractGuaranteeAmount,
		LicenseRequired:           p.IsLicenseProduction,
		PurchaseType:              PurchaseType(p.PurchaseTypeID),
		JointPurchase:             p.OrganizingTypeID == organizingTypeJoint,
	}

	for _, d := range p.Deliveries {
		delivery := Delivery{
			Period: Period{
				DaysFrom: d.PeriodDaysFrom,
				DaysTo:   d.PeriodDaysTo,
				DateFrom: derefString(d.PeriodDateFrom),
				DateTo:   derefString(d.PeriodDateTo),
			},
			Place: htmlToText(d.DeliveryPlace),
		}
		for _, it := range d.Items {
			delivery.Items = append(delivery.Items, DeliveryItem{
				Quantity: it.Quantity.String(),
				Name:     htmlToText(it.Name),
				BuyerID:  it.BuyerID,
			})
		}
		rec.Deliveries = append(rec.Deliveries, delivery)
	}

	for _, s := range p.Items {
		rec.Specifications = append(rec.Specifications, Specification{
			ID:       s.ID,
			Quantity: s.CurrentValue.String(),
			Name:     htmlToText(s.Name),
		})
	}

	for _, f := range p.Files {
		rec.Files = append(rec.Files, AttachedFile{ID: f.ID, Name: f.Name})
	}

	if rec.JointPurchase {
		buyers, err := decodeBuyers(p.SharedPurchaseBuyers)
		if err != nil {
			return nil, fmt.Errorf("auction %s: %w", id, err)
		}
		rec.Buyers = buyers
		rec.Deliveries = JoinBuyers(rec.Deliveries, IndexBuyers(buyers))
	}

	return rec, nil
}
