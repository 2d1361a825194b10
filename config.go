package mrchain

import (
	"sort"
	"sync"

	"github.com/spf13/viper"
)

var loadConfigOnce sync.Once

// loadConfig loads library settings from settings file(s) and the environment.
func loadConfig() {
	loadConfigOnce.Do(func() {
		viper.SetConfigName("mrchainrc")
		viper.AddConfigPath(".")
		viper.AddConfigPath("$HOME/.mrchain")

		setupDefaults()

		viper.ReadInConfig()

		viper.SetEnvPrefix("mrchain")
		viper.AutomaticEnv()
	})
}

func setupDefaults() {
	defaultSettings := map[string]interface{}{
		"scratch_location": "tmp",
		"split_size":       100 * 1024 * 1024, // Default input split size is 100Mb
		"map_bin_size":     512 * 1024 * 1024, // Default map bin size is 512Mb
		"num_reducers":     10,                // Default reduce task count per job
		"max_concurrency":  500,               // Maximum number of concurrent map tasks
		"verbose":          false,
	}
	for key, value := range defaultSettings {
		viper.SetDefault(key, value)
	}

	aliases := map[string]string{
		"verbose":          "v",
		"scratch_location": "s",
	}
	for key, alias := range aliases {
		viper.RegisterAlias(alias, key)
	}
}

// Config is a configuration overlay: a set of key/value properties handed to
// the execution engine with every job. A pipeline root owns one overlay;
// other nodes resolve it lazily up the chain.
type Config struct {
	props map[string]string
}

// NewConfig creates an overlay seeded with any properties declared under the
// "properties" key of the settings file.
func NewConfig() *Config {
	loadConfig()
	c := &Config{props: make(map[string]string)}
	for key, value := range viper.GetStringMapString("properties") {
		c.props[key] = value
	}
	return c
}

// Set stores a property, overriding any previous value.
func (c *Config) Set(key, value string) {
	c.props[key] = value
}

// Get returns the value for key and whether it is present.
func (c *Config) Get(key string) (string, bool) {
	value, ok := c.props[key]
	return value, ok
}

// Keys returns the overlay's keys in sorted order.
func (c *Config) Keys() []string {
	keys := make([]string, 0, len(c.props))
	for key := range c.props {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// Len reports the number of properties in the overlay.
func (c *Config) Len() int {
	return len(c.props)
}
