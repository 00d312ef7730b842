package gopay

import (
	"context"
	"encoding/json"
	"sort"

	"github.com/pkg/errors"
)

// PaymentMethod is one enabled payment instrument or bank.
type PaymentMethod struct {
	Name  string // Instrument code, e.g. "PAYMENT_CARD", or the bank's SWIFT
	Label string // Czech label
	Image string // Large logo URL
}

// PaymentMethods is the e-shop's catalog of enabled instruments and bank
// SWIFTs, keyed by currency.
type PaymentMethods struct {
	Instruments map[string][]PaymentMethod
	Swifts      map[string][]PaymentMethod
}

// Currencies lists, sorted, every currency with at least one instrument.
func (p *PaymentMethods) Currencies() []string {
	currencies := make([]string, 0, len(p.Instruments))
	for currency := range p.Instruments {
		currencies = append(currencies, currency)
	}
	sort.Strings(currencies)
	return currencies
}

type catalogEntry struct {
	Label struct {
		CS string `json:"cs"`
	} `json:"label"`
	Image struct {
		Large string `json:"large"`
	} `json:"image"`
	Currencies    json.RawMessage          `json:"currencies"`
	EnabledSwifts map[string]*catalogEntry `json:"enabledSwifts"`
}

type catalogBody struct {
	EnabledPaymentInstruments map[string]*catalogEntry `json:"enabledPaymentInstruments"`
}

// PaymentMethods returns the catalog, fetching it on first use.
func (c *Client) PaymentMethods(ctx context.Context) (*PaymentMethods, error) {
	if c.methods != nil {
		return c.methods, nil
	}
	resp, err := c.PaymentInstruments(ctx, "")
	if err != nil {
		return nil, err
	}
	var body catalogBody
	if err := resp.Decode(&body); err != nil {
		return nil, errors.Wrap(err, "Client.PaymentMethods Decode")
	}

	methods := &PaymentMethods{
		Instruments: groupByCurrency(body.EnabledPaymentInstruments),
		Swifts:      map[string][]PaymentMethod{},
	}
	if bank, ok := body.EnabledPaymentInstruments["BANK_ACCOUNT"]; ok && bank != nil {
		methods.Swifts = groupByCurrency(bank.EnabledSwifts)
	}
	c.methods = methods
	return methods, nil
}

// ReloadPaymentMethods drops the token and the cached catalog and fetches
// both again, picking up methods enabled since the last fetch.
func (c *Client) ReloadPaymentMethods(ctx context.Context) (*PaymentMethods, error) {
	c.tokens.Invalidate()
	c.methods = nil
	return c.PaymentMethods(ctx)
}

func groupByCurrency(entries map[string]*catalogEntry) map[string][]PaymentMethod {
	names := make([]string, 0, len(entries))
	for name := range entries {
		names = append(names, name)
	}
	sort.Strings(names)

	grouped := map[string][]PaymentMethod{}
	for _, name := range names {
		entry := entries[name]
		if entry == nil {
			continue
		}
		method := PaymentMethod{Name: name, Label: entry.Label.CS, Image: entry.Image.Large}
		for _, currency := range entryCurrencies(entry.Currencies) {
			grouped[currency] = append(grouped[currency], method)
		}
	}
	return grouped
}

// entryCurrencies accepts both shapes the gateway uses: a list of codes for
// instruments and an object keyed by code for SWIFTs.
func entryCurrencies(raw json.RawMessage) []string {
	var list []string
	if err := json.Unmarshal(raw, &list); err == nil {
		return list
	}
	var keyed map[string]json.RawMessage
	if err := json.Unmarshal(raw, &keyed); err != nil {
		return nil
	}
	currencies := make([]string, 0, len(keyed))
	for currency := range keyed {
		currencies = append(currencies, currency)
	}
	sort.Strings(currencies)
	return currencies
}
