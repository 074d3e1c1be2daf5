package asset

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/shopspring/decimal"
)

// ErrUnknownAsset is returned when a ticker or id is not configured.
var ErrUnknownAsset = errors.New("unknown asset")

// Spec is the network configuration entry of one asset.
type Spec struct {
	ID                 ID     `json:"id"`
	Ticker             string `json:"ticker"`
	Decimals           int32  `json:"decimals"`
	ExistentialDeposit string `json:"existential_deposit"`
	Native             bool   `json:"native"`
}

// Catalog is the immutable set of assets available on the network. Every
// configured asset is available in a public and a shielded variant.
type Catalog struct {
	public []Type
	native int
}

// DefaultSpecs is the asset list used when no network file is configured.
var DefaultSpecs = []Spec{
	{ID: 1, Ticker: "DOL", Decimals: 18, ExistentialDeposit: "100000000000", Native: true},
	{ID: 8, Ticker: "KAR", Decimals: 12, ExistentialDeposit: "100000000000"},
	{ID: 12, Ticker: "KSM", Decimals: 12, ExistentialDeposit: "500000"},
}

// NewCatalog validates specs and builds a catalog. Exactly one asset must be
// marked native.
func NewCatalog(specs []Spec) (*Catalog, error) {
	if len(specs) == 0 {
		return nil, fmt.Errorf("asset catalog is empty")
	}
	c := &Catalog{native: -1}
	seen := make(map[ID]struct{}, len(specs))
	for i, s := range specs {
		if s.Ticker == "" {
			return nil, fmt.Errorf("asset %d: ticker is required", s.ID)
		}
		if s.Decimals < 0 {
			return nil, fmt.Errorf("asset %s: decimals must not be negative", s.Ticker)
		}
		if _, dup := seen[s.ID]; dup {
			return nil, fmt.Errorf("asset %s: duplicate id %d", s.Ticker, s.ID)
		}
		seen[s.ID] = struct{}{}

		ed := decimal.Zero
		if s.ExistentialDeposit != "" {
			parsed, err := decimal.NewFromString(s.ExistentialDeposit)
			if err != nil {
				return nil, fmt.Errorf("asset %s: existential deposit: %w", s.Ticker, err)
			}
			if parsed.IsNegative() {
				return nil, fmt.Errorf("asset %s: existential deposit must not be negative", s.Ticker)
			}
			ed = parsed.Truncate(0)
		}
		if s.Native {
			if c.native >= 0 {
				return nil, fmt.Errorf("asset %s: more than one native asset", s.Ticker)
			}
			c.native = i
		}
		c.public = append(c.public, Type{
			ID:                 s.ID,
			BaseTicker:         s.Ticker,
			Decimals:           s.Decimals,
			ExistentialDeposit: ed,
			Native:             s.Native,
		})
	}
	if c.native < 0 {
		return nil, fmt.Errorf("asset catalog has no native asset")
	}
	return c, nil
}

// LoadCatalog reads a JSON list of Spec values from path. An empty path
// yields the default catalog.
func LoadCatalog(path string) (*Catalog, error) {
	if path == "" {
		return NewCatalog(DefaultSpecs)
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read asset file: %w", err)
	}
	var specs []Spec
	if err := json.Unmarshal(raw, &specs); err != nil {
		return nil, fmt.Errorf("decode asset file: %w", err)
	}
	return NewCatalog(specs)
}

// All returns every asset in the requested variant, in configuration order.
func (c *Catalog) All(private bool) []Type {
	out := make([]Type, len(c.public))
	for i, t := range c.public {
		out[i] = t.WithPrivate(private)
	}
	return out
}

// Native returns the network's native token in the requested variant.
func (c *Catalog) Native(private bool) Type {
	return c.public[c.native].WithPrivate(private)
}

// Default returns the first configured asset in the requested variant.
func (c *Catalog) Default(private bool) Type {
	return c.public[0].WithPrivate(private)
}

// ByTicker looks up an asset by base ticker. A "zk" prefixed ticker is
// accepted and resolves to the same underlying asset.
func (c *Catalog) ByTicker(ticker string, private bool) (Type, error) {
	base := strings.TrimPrefix(ticker, privatePrefix)
	for _, t := range c.public {
		if strings.EqualFold(t.BaseTicker, base) || strings.EqualFold(t.BaseTicker, ticker) {
			return t.WithPrivate(private), nil
		}
	}
	return Type{}, fmt.Errorf("%w: %s", ErrUnknownAsset, ticker)
}

// ByID looks up an asset by id.
func (c *Catalog) ByID(id ID, private bool) (Type, error) {
	for _, t := range c.public {
		if t.ID == id {
			return t.WithPrivate(private), nil
		}
	}
	return Type{}, fmt.Errorf("%w: id %d", ErrUnknownAsset, id)
}
