package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/Zhima-Mochi/minishop-cart/internal/domain/cart"
	"github.com/Zhima-Mochi/minishop-cart/internal/domain/catalog"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// DefaultPath is read when CART_CONFIG is not set.
const DefaultPath = "config.yaml"

// Config holds the cart service configuration.
type Config struct {
	Service ServiceConfig  `yaml:"service"`
	Logging LoggingConfig  `yaml:"logging"`
	Pricing PricingConfig  `yaml:"pricing"`
	Outbox  OutboxConfig   `yaml:"outbox"`
	Catalog []CatalogEntry `yaml:"catalog"`
	Promos  []PromoEntry   `yaml:"promos"`
}

type ServiceConfig struct {
	Name            string `yaml:"name"`
	Env             string `yaml:"env"`
	HTTPAddr        string `yaml:"http_addr"`
	ShutdownTimeout string `yaml:"shutdown_timeout"`
}

type LoggingConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
}

// PricingConfig holds the tax and shipping tables. Money values are decimal
// strings so that "19.5" is never parsed through a float.
type PricingConfig struct {
	Currency              string            `yaml:"currency"`
	DefaultTaxPercent     string            `yaml:"default_tax_percent"`
	TaxRates              map[string]string `yaml:"tax_rates"` // country code -> percent
	DefaultShippingRate   string            `yaml:"default_shipping_rate"`
	ShippingRates         map[string]string `yaml:"shipping_rates"` // method -> flat amount
	DefaultShippingMethod string            `yaml:"default_shipping_method"`
	StrictShippingMethods bool              `yaml:"strict_shipping_methods"`
}

type OutboxConfig struct {
	QueueSize      int    `yaml:"queue_size"`
	Concurrency    int    `yaml:"concurrency"`
	HandlerTimeout string `yaml:"handler_timeout"`
}

// CatalogEntry seeds the in-memory product catalog.
type CatalogEntry struct {
	ID         string `yaml:"id"`
	Name       string `yaml:"name"`
	UnitPrice  string `yaml:"unit_price"`
	StockLimit int    `yaml:"stock_limit"`
}

// PromoEntry seeds the in-memory promo code table.
type PromoEntry struct {
	Code          string `yaml:"code"`
	DiscountType  string `yaml:"discount_type"`
	DiscountValue string `yaml:"discount_value"`
}

// DefaultConfig returns a configuration that runs the service with the stock
// pricing table and a small demo catalog.
func DefaultConfig() *Config {
	return &Config{
		Service: ServiceConfig{
			Name:            "minishop-cart",
			Env:             "dev",
			HTTPAddr:        ":8080",
			ShutdownTimeout: "10s",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
		Pricing: PricingConfig{
			Currency:            "USD",
			DefaultTaxPercent:   "10",
			TaxRates:            map[string]string{},
			DefaultShippingRate: "50",
			ShippingRates: map[string]string{
				string(cart.ShippingStandard): "50",
				string(cart.ShippingExpress):  "100",
			},
			DefaultShippingMethod: string(cart.ShippingStandard),
		},
		Outbox: OutboxConfig{
			QueueSize:      1024,
			Concurrency:    8,
			HandlerTimeout: "30s",
		},
		Catalog: []CatalogEntry{
			{ID: "widget", Name: "Widget", UnitPrice: "20.00", StockLimit: 5},
			{ID: "gadget", Name: "Gadget", UnitPrice: "3.50", StockLimit: 10},
		},
		Promos: []PromoEntry{
			{Code: "SAVE10", DiscountType: string(cart.DiscountPercentage), DiscountValue: "10"},
			{Code: "FIVEOFF", DiscountType: string(cart.DiscountFixed), DiscountValue: "5"},
		},
	}
}

// Load reads configuration from a YAML file. A missing file yields the
// defaults. Environment overrides are applied in both cases.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}

	cfg.applyEnvOverrides()
	if err := cfg.normalizeShippingMethods(); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// normalizeShippingMethods folds shipping_rates keys and the default method
// to the form carts use. Defaults are already canonical, so a key that folds
// onto one of them came from the file and overrides it.
func (c *Config) normalizeShippingMethods() error {
	out := make(map[string]string, len(c.Pricing.ShippingRates))
	folded := make(map[string]string)
	for key, raw := range c.Pricing.ShippingRates {
		method := string(cart.NormalizeShippingMethod(key))
		if method == key {
			if _, ok := folded[method]; !ok {
				out[method] = raw
			}
			continue
		}
		if prev, ok := folded[method]; ok {
			return fmt.Errorf("config: pricing.shipping_rates keys %q and %q name the same method", prev, key)
		}
		folded[method] = key
		out[method] = raw
	}
	c.Pricing.ShippingRates = out
	c.Pricing.DefaultShippingMethod = string(cart.NormalizeShippingMethod(c.Pricing.DefaultShippingMethod))
	return nil
}

// PathFromEnv returns CART_CONFIG or the default path.
func PathFromEnv() string {
	if p := os.Getenv("CART_CONFIG"); p != "" {
		return p
	}
	return DefaultPath
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("SERVICE_NAME"); v != "" {
		c.Service.Name = v
	}
	if v := os.Getenv("ENV"); v != "" {
		c.Service.Env = v
	}
	if v := os.Getenv("HTTP_ADDR"); v != "" {
		c.Service.HTTPAddr = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("LOG_FILE"); v != "" {
		c.Logging.File = v
	}
}

// Validate checks that every value the service will parse later is well formed.
func (c *Config) Validate() error {
	if c.Service.HTTPAddr == "" {
		return errors.New("config: service.http_addr is required")
	}
	if _, err := c.ShutdownTimeout(); err != nil {
		return err
	}
	if _, err := c.HandlerTimeout(); err != nil {
		return err
	}
	if c.Pricing.Currency == "" {
		return errors.New("config: pricing.currency is required")
	}
	rates, err := c.Rates()
	if err != nil {
		return err
	}
	if !rates.KnownShippingMethod(c.DefaultShippingMethod()) {
		return fmt.Errorf("config: pricing.default_shipping_method %q has no shipping rate", c.Pricing.DefaultShippingMethod)
	}
	if _, err := c.CatalogItems(); err != nil {
		return err
	}
	if _, err := c.PromoCodes(); err != nil {
		return err
	}
	return nil
}

func (c *Config) ShutdownTimeout() (time.Duration, error) {
	return parseDuration("service.shutdown_timeout", c.Service.ShutdownTimeout)
}

func (c *Config) HandlerTimeout() (time.Duration, error) {
	return parseDuration("outbox.handler_timeout", c.Outbox.HandlerTimeout)
}

func (c *Config) DefaultShippingMethod() cart.ShippingMethod {
	return cart.NormalizeShippingMethod(c.Pricing.DefaultShippingMethod)
}

// Rates converts the pricing section into the engine's lookup tables.
// Country codes are normalised to upper case, shipping methods to lower case.
func (c *Config) Rates() (cart.Rates, error) {
	defTax, err := parseMoney("pricing.default_tax_percent", c.Pricing.DefaultTaxPercent)
	if err != nil {
		return cart.Rates{}, err
	}
	defShip, err := parseMoney("pricing.default_shipping_rate", c.Pricing.DefaultShippingRate)
	if err != nil {
		return cart.Rates{}, err
	}

	rates := cart.Rates{
		DefaultTaxPercent: defTax,
		TaxPercent:        make(map[string]decimal.Decimal, len(c.Pricing.TaxRates)),
		DefaultShipping:   defShip,
		Shipping:          make(map[cart.ShippingMethod]decimal.Decimal, len(c.Pricing.ShippingRates)),
	}
	for country, raw := range c.Pricing.TaxRates {
		pct, err := parseMoney("pricing.tax_rates."+country, raw)
		if err != nil {
			return cart.Rates{}, err
		}
		rates.TaxPercent[strings.ToUpper(strings.TrimSpace(country))] = pct
	}
	for method, raw := range c.Pricing.ShippingRates {
		amount, err := parseMoney("pricing.shipping_rates."+method, raw)
		if err != nil {
			return cart.Rates{}, err
		}
		rates.Shipping[cart.NormalizeShippingMethod(method)] = amount
	}
	return rates, nil
}

// CatalogItems builds the catalog seed.
func (c *Config) CatalogItems() ([]*catalog.Item, error) {
	items := make([]*catalog.Item, 0, len(c.Catalog))
	seen := make(map[string]struct{}, len(c.Catalog))
	for i, e := range c.Catalog {
		if e.ID == "" {
			return nil, fmt.Errorf("config: catalog[%d].id is required", i)
		}
		if _, dup := seen[e.ID]; dup {
			return nil, fmt.Errorf("config: catalog id %q is duplicated", e.ID)
		}
		seen[e.ID] = struct{}{}

		price, err := decimal.NewFromString(e.UnitPrice)
		if err != nil {
			return nil, fmt.Errorf("config: catalog[%d].unit_price %q: %w", i, e.UnitPrice, err)
		}
		item, err := catalog.NewItem(e.ID, e.Name, price, e.StockLimit)
		if err != nil {
			return nil, fmt.Errorf("config: catalog[%d]: %w", i, err)
		}
		items = append(items, item)
	}
	return items, nil
}

// PromoCodes builds the promo seed. Each code is validated with the same
// rules the cart applies when a code is entered.
func (c *Config) PromoCodes() ([]cart.PromoCode, error) {
	promos := make([]cart.PromoCode, 0, len(c.Promos))
	for i, e := range c.Promos {
		code := cart.NormalizeCode(e.Code)
		if code == "" {
			return nil, fmt.Errorf("config: promos[%d].code is required", i)
		}
		value, err := decimal.NewFromString(e.DiscountValue)
		if err != nil {
			return nil, fmt.Errorf("config: promos[%d].discount_value %q: %w", i, e.DiscountValue, err)
		}
		p := cart.PromoCode{
			Code:          code,
			DiscountType:  cart.DiscountType(strings.ToLower(strings.TrimSpace(e.DiscountType))),
			DiscountValue: value,
		}
		if err := p.Validate(); err != nil {
			return nil, fmt.Errorf("config: promos[%d]: %w", i, err)
		}
		promos = append(promos, p)
	}
	return promos, nil
}

func parseMoney(field, raw string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil {
		return decimal.Zero, fmt.Errorf("config: %s %q: %w", field, raw, err)
	}
	if d.IsNegative() {
		return decimal.Zero, fmt.Errorf("config: %s must not be negative", field)
	}
	return d, nil
}

func parseDuration(field, raw string) (time.Duration, error) {
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("config: %s %q: %w", field, raw, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("config: %s must be positive", field)
	}
	return d, nil
}
