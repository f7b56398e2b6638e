// Package configloader builds typed configuration from a YAML file, a .env file
// and the process environment, in increasing order of priority.
package configloader

import (
	"fmt"
	"log"
	"os"
	"reflect"
	"strings"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigFile is read from the working directory by Load.
const DefaultConfigFile = "config.yaml"

type Validator interface {
	Validate() error
}

// Load reads DefaultConfigFile. See LoadFile.
func Load[T Validator](serviceName string) (T, error) {
	return LoadFile[T](serviceName, DefaultConfigFile)
}

// LoadFile reads configFile, then .env, then environment variables prefixed
// with the upper-cased serviceName and an underscore. INVENTORY_STORAGE_DRIVER
// sets storage.driver for service "inventory". A missing file is not an error.
// T may be a pointer type, in which case a new value is allocated.
func LoadFile[T Validator](serviceName, configFile string) (T, error) {
	var cfg T
	k := koanf.New(".")
	envPrefix := fmt.Sprintf("%s_", strings.ToUpper(serviceName))

	// 1. Load configuration from yaml file
	if err := k.Load(file.Provider(configFile), yaml.Parser()); err != nil {
		if !os.IsNotExist(err) {
			log.Printf("WARN: error loading YAML config file '%s': %v", configFile, err)
		}
	}

	// 2. Load environment variables from .env file
	envTransformer := func(key string) string {
		key = strings.ToLower(key)
		key = strings.TrimPrefix(key, strings.ToLower(envPrefix))
		return strings.ReplaceAll(key, "_", ".")
	}
	if envFileMap, err := godotenv.Read(".env"); err == nil {
		envMap := make(map[string]any)
		for key, value := range envFileMap {
			if !strings.HasPrefix(strings.ToUpper(key), envPrefix) {
				continue
			}
			envMap[envTransformer(key)] = value
		}
		if err := k.Load(confmap.Provider(envMap, "."), nil); err != nil {
			log.Printf("WARN: error loading .env config: %v", err)
		}
	} else if !os.IsNotExist(err) {
		log.Printf("WARN: error reading .env file: %v", err)
	}

	// 3. Load environment variables from the system, the highest priority
	if err := k.Load(env.Provider(envPrefix, ".", envTransformer), nil); err != nil {
		log.Printf("WARN: error loading system env vars: %v", err)
	}

	// 4. Unmarshal the configuration into the Config struct
	if v := reflect.ValueOf(&cfg).Elem(); v.Kind() == reflect.Pointer && v.IsNil() {
		v.Set(reflect.New(v.Type().Elem()))
	}
	if err := k.Unmarshal("", &cfg); err != nil {
		return cfg, fmt.Errorf("error unmarshalling config: %w", err)
	}

	// 5. Validate the configuration
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}
