package utils

import (
	"strings"

	"github.com/tidwall/gjson"
)

// FirstString returns the first non-empty string value found under the given
// keys, trimmed. Platform payloads spell the same logical field differently
// depending on account configuration, so callers pass candidate keys in
// priority order and the first match wins.
func FirstString(doc gjson.Result, keys ...string) string {
	for _, k := range keys {
		v := doc.Get(k)
		if v.Type != gjson.String {
			continue
		}
		if s := strings.TrimSpace(v.Str); s != "" {
			return s
		}
	}
	return ""
}

// FirstNumber returns the first value under the given keys that parses as a
// number, or 0 if none does. String-encoded numbers count: report rows carry
// cost either as a float or as "12.34" depending on the grouping used.
func FirstNumber(doc gjson.Result, keys ...string) float64 {
	for _, k := range keys {
		v := doc.Get(k)
		switch v.Type {
		case gjson.Number:
			return v.Num
		case gjson.String:
			if strings.TrimSpace(v.Str) == "" {
				continue
			}
			f := gjson.Parse(v.Str)
			if f.Type == gjson.Number {
				return f.Num
			}
		}
	}
	return 0
}

// FirstID is FirstString but also accepts numeric values, stringified.
// Campaign ids show up as numbers in some report groupings.
func FirstID(doc gjson.Result, keys ...string) string {
	for _, k := range keys {
		v := doc.Get(k)
		switch v.Type {
		case gjson.String:
			if s := strings.TrimSpace(v.Str); s != "" {
				return s
			}
		case gjson.Number:
			return v.String()
		}
	}
	return ""
}
