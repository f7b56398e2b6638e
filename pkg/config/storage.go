package config

import (
	"fmt"
	"log"
	"strings"
	"time"
)

// StorageDriver selects the key-value backend.
type StorageDriver string

const (
	DriverMemory   StorageDriver = "memory"
	DriverFile     StorageDriver = "file"
	DriverPostgres StorageDriver = "postgres"
	DriverNATS     StorageDriver = "nats"
)

const (
	defaultStorageKey     = "products"
	defaultStorageTimeout = 5 * time.Second
	defaultStorageFile    = "data/inventory.json"
	defaultNATSBucket     = "inventory"
)

type StorageConfig struct {
	Driver     StorageDriver     `koanf:"driver"`
	Key        string            `koanf:"key"`
	Timeout    time.Duration     `koanf:"timeout"`
	File       FileStorageConfig `koanf:"file"`
	Database   DatabaseConfig    `koanf:"database"`
	NATS       NATSConfig        `koanf:"nats"`
	Resilience ResilienceConfig  `koanf:"resilience"`
}

type FileStorageConfig struct {
	Path string `koanf:"path"`
}

// Remote reports whether the driver talks to a service over the network.
func (c *StorageConfig) Remote() bool {
	return c.Driver == DriverPostgres || c.Driver == DriverNATS
}

// String returns a string representation of the storage configuration.
// Only the settings of the selected driver are listed.
func (c *StorageConfig) String() string {
	var b strings.Builder
	b.WriteString("\n--- Storage ---\n")
	b.WriteString(fmt.Sprintf("  driver: %s\n", c.Driver))
	b.WriteString(fmt.Sprintf("  key: %s\n", c.Key))
	b.WriteString(fmt.Sprintf("  timeout: %s\n", c.Timeout))
	switch c.Driver {
	case DriverFile:
		b.WriteString(fmt.Sprintf("  file.path: %s\n", c.File.Path))
	case DriverPostgres:
		b.WriteString(c.Database.String())
	case DriverNATS:
		b.WriteString(c.NATS.String())
	}
	if c.Remote() {
		b.WriteString(c.Resilience.String())
	}
	return b.String()
}

func (c *StorageConfig) Validate() error {
	if c.Driver == "" {
		log.Println("Using default value for storage.driver")
		c.Driver = DriverMemory
	}
	if c.Key == "" {
		log.Println("Using default value for storage.key")
		c.Key = defaultStorageKey
	}
	if c.Timeout <= 0 {
		log.Println("Using default value for storage.timeout")
		c.Timeout = defaultStorageTimeout
	}

	switch c.Driver {
	case DriverMemory:
		return nil
	case DriverFile:
		if c.File.Path == "" {
			log.Println("Using default value for storage.file.path")
			c.File.Path = defaultStorageFile
		}
		return nil
	case DriverPostgres:
		if err := c.Database.Validate(); err != nil {
			return err
		}
	case DriverNATS:
		if c.NATS.Bucket == "" {
			log.Println("Using default value for storage.nats.bucket")
			c.NATS.Bucket = defaultNATSBucket
		}
		if err := c.NATS.Validate(); err != nil {
			return err
		}
	default:
		return fmt.Errorf("unknown storage driver %q", c.Driver)
	}
	return c.Resilience.Validate()
}
