// Package resolve maps raw folder and spreadsheet labels onto canonical
// competitor and feature records, and folds accidental duplicates.
package resolve

import (
	"os"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/competitorlens/lens-cli/internal/classify"
)

// DefaultAliases maps the label variants that show up in screenshot folders
// and exported spreadsheets onto canonical competitor names. Keys are
// matched after normalization, so spacing and case variants collapse on
// their own; only genuinely different spellings need an entry.
var DefaultAliases = map[string]string{
	"btc turk":        "BTCTurk",
	"btcturk pro":     "BTCTurk",
	"binancetr":       "Binance TR",
	"binance turkey":  "Binance TR",
	"okxtr":           "OKX TR",
	"okx turkey":      "OKX TR",
	"gatetr":          "Gate TR",
	"gate.io tr":      "Gate TR",
	"bybittr":         "Bybit TR",
	"bitcikripto":     "Bitci",
	"garantikripto":   "Garanti Kripto",
	"garanti bbva kripto": "Garanti Kripto",
	"paribu app":      "Paribu",
	"icrypex kripto":  "ICRYPEX",
}

// LoadAliases reads an alias override file (normalized label -> canonical
// name) and merges it over the defaults. Later entries win.
func LoadAliases(path string) (map[string]string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "resolve: read aliases %s", path)
	}
	var overrides map[string]string
	if err := yaml.Unmarshal(raw, &overrides); err != nil {
		return nil, eris.Wrapf(err, "resolve: parse aliases %s", path)
	}

	merged := make(map[string]string, len(DefaultAliases)+len(overrides))
	for k, v := range DefaultAliases {
		merged[classify.Normalize(k)] = v
	}
	for k, v := range overrides {
		merged[classify.Normalize(k)] = v
	}
	return merged, nil
}

func normalizedAliases(aliases map[string]string) map[string]string {
	out := make(map[string]string, len(aliases))
	for k, v := range aliases {
		out[classify.Normalize(k)] = v
	}
	return out
}
