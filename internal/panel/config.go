package panel

import (
	"encoding/json"
	"strings"
)

const DefaultBitsPriceSKU = "submit_suggestion_100"

// Config is the broadcaster's panel configuration.
type Config struct {
	BitsPriceSKU    string
	AllowModControl bool
}

func DefaultConfig() Config {
	return Config{BitsPriceSKU: DefaultBitsPriceSKU}
}

// ParseConfig decodes the broadcaster configuration segment. Missing,
// mistyped or unparsable fields take their defaults; allowModControl is on
// only for JSON true or the string "true".
func ParseConfig(raw string) Config {
	cfg := DefaultConfig()
	var fields map[string]json.RawMessage
	if err := json.Unmarshal([]byte(raw), &fields); err != nil {
		return cfg
	}

	var sku string
	if err := json.Unmarshal(fields["bitsPriceSku"], &sku); err == nil && strings.TrimSpace(sku) != "" {
		cfg.BitsPriceSKU = strings.TrimSpace(sku)
	}

	var b bool
	if err := json.Unmarshal(fields["allowModControl"], &b); err == nil {
		cfg.AllowModControl = b
	} else {
		var s string
		if err := json.Unmarshal(fields["allowModControl"], &s); err == nil {
			cfg.AllowModControl = s == "true"
		}
	}
	return cfg
}
