// Package config defines the configuration of the inventory service and its terminal client.
package config

import (
	"fmt"
	"log"
	"slices"
	"strings"

	"github.com/abgdnv/inventory/internal/catalog"
	"github.com/abgdnv/inventory/pkg/config"
	"github.com/abgdnv/inventory/pkg/config/configloader"
)

var (
	_ configloader.Validator = (*Config)(nil)
	_ configloader.Validator = (*ClientConfig)(nil)
)

// Config is the configuration of the inventory service.
type Config struct {
	HTTPServer config.HTTPConfig       `koanf:"server"`
	GRPC       config.GrpcServerConfig `koanf:"grpc"`
	Log        config.LogConfig        `koanf:"log"`
	PProf      config.PProfConfig      `koanf:"pprof"`
	Telemetry  config.TelemetryConfig  `koanf:"telemetry"`
	Shutdown   config.ShutdownConfig   `koanf:"shutdown"`
	Storage    config.StorageConfig    `koanf:"storage"`
	Catalog    CatalogConfig           `koanf:"catalog"`
}

// ClientConfig is the subset used by the terminal client, which reads and writes storage directly.
type ClientConfig struct {
	Log     config.LogConfig     `koanf:"log"`
	Storage config.StorageConfig `koanf:"storage"`
	Catalog CatalogConfig        `koanf:"catalog"`
}

// CatalogConfig holds the initial page size and the products used when storage is empty.
type CatalogConfig struct {
	PageSize int           `koanf:"pagesize"`
	Seed     []SeedProduct `koanf:"seed"`
}

type SeedProduct struct {
	Name    string `koanf:"name"`
	Price   int64  `koanf:"price"`
	InStock *bool  `koanf:"instock"`
}

func (c *Config) String() string {
	var b strings.Builder
	b.WriteString(c.HTTPServer.String())
	b.WriteString(c.GRPC.String())
	b.WriteString(c.Log.String())
	b.WriteString(c.PProf.String())
	b.WriteString(c.Telemetry.String())
	b.WriteString(c.Shutdown.String())
	b.WriteString(c.Storage.String())
	b.WriteString(c.Catalog.String())
	return b.String()
}

// Validate checks if the configuration values are valid
func (c *Config) Validate() error {
	if err := c.HTTPServer.Validate(); err != nil {
		return err
	}
	if err := c.GRPC.Validate(); err != nil {
		return err
	}
	if err := c.Log.Validate(); err != nil {
		return err
	}
	if err := c.PProf.Validate(); err != nil {
		return err
	}
	if err := c.Telemetry.Validate(); err != nil {
		return err
	}
	if err := c.Shutdown.Validate(); err != nil {
		return err
	}
	if err := c.Storage.Validate(); err != nil {
		return err
	}
	return c.Catalog.Validate()
}

func (c *ClientConfig) String() string {
	var b strings.Builder
	b.WriteString(c.Log.String())
	b.WriteString(c.Storage.String())
	b.WriteString(c.Catalog.String())
	return b.String()
}

func (c *ClientConfig) Validate() error {
	if err := c.Log.Validate(); err != nil {
		return err
	}
	if err := c.Storage.Validate(); err != nil {
		return err
	}
	return c.Catalog.Validate()
}

func (c *CatalogConfig) String() string {
	var b strings.Builder
	b.WriteString("\n--- Catalog ---\n")
	b.WriteString(fmt.Sprintf("  pagesize: %d\n", c.PageSize))
	b.WriteString(fmt.Sprintf("  seed: %d products\n", len(c.Seed)))
	return b.String()
}

func (c *CatalogConfig) Validate() error {
	if c.PageSize == 0 {
		log.Println("Using default value for catalog.pagesize")
		c.PageSize = catalog.DefaultPageSize
	}
	if !slices.Contains(catalog.PageSizes, c.PageSize) {
		return fmt.Errorf("catalog.pagesize must be one of %v, got %d", catalog.PageSizes, c.PageSize)
	}
	for i, p := range c.Seed {
		if strings.TrimSpace(p.Name) == "" {
			return fmt.Errorf("catalog.seed[%d]: name is empty", i)
		}
		if p.Price <= 0 {
			return fmt.Errorf("catalog.seed[%d]: price must be positive", i)
		}
	}
	return nil
}

// SeedProducts converts the configured seed into catalog products. Omitted stock flags mean in stock.
func (c *CatalogConfig) SeedProducts() []catalog.Product {
	products := make([]catalog.Product, len(c.Seed))
	for i, p := range c.Seed {
		products[i] = catalog.Product{
			Name:    p.Name,
			Price:   p.Price,
			InStock: p.InStock == nil || *p.InStock,
		}
	}
	return products
}
