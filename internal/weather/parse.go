package weather

import (
	"encoding/json"
	"fmt"
	"log"
	"strconv"
	"strings"
)

// ParseError reports a malformed or type-mismatched weather document. The
// parser keeps going and aggregates a count so a single bad day does not mask
// errors in the rest of the document.
type ParseError struct {
	Count int
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("weather document had %d type errors", e.Count)
}

// Summarize walks one CIMIS daily-data document and returns summed ETo and
// precipitation in inches. The provider encodes numeric values as strings and
// reports precipitation as null for days it has not finalized; null counts as
// zero, everything else off-shape counts toward the ParseError total.
func Summarize(doc []byte) (etoIn, precipIn float64, err error) {
	var root map[string]any
	if err := json.Unmarshal(doc, &root); err != nil {
		return 0, 0, fmt.Errorf("decode weather document: %w", err)
	}

	typeErrors := 0

	data, ok := root["Data"].(map[string]any)
	if !ok {
		typeErrors++
	}
	providers, ok := data["Providers"].([]any)
	if !ok || len(providers) == 0 {
		typeErrors++
	}
	var provider map[string]any
	if len(providers) > 0 {
		if provider, ok = providers[0].(map[string]any); !ok {
			typeErrors++
		}
	}
	records, ok := provider["Records"].([]any)
	if !ok {
		typeErrors++
	}

	for i, r := range records {
		rec, ok := r.(map[string]any)
		if !ok {
			typeErrors++
			continue
		}

		if v, n := numericValue(rec, "DayAsceEto"); n {
			typeErrors++
		} else {
			etoIn += v
		}

		precipObj, ok := rec["DayPrecip"].(map[string]any)
		if !ok {
			typeErrors++
			continue
		}
		switch pv := precipObj["Value"].(type) {
		case nil:
			// Usually the last day of the window: the provider has not
			// finalized it yet.
			log.Printf("weather: record %d has null precipitation, counting as 0", i)
		case string:
			f, err := strconv.ParseFloat(strings.TrimSpace(pv), 64)
			if err != nil {
				typeErrors++
			} else {
				precipIn += f
			}
		default:
			typeErrors++
		}
	}

	if typeErrors > 0 {
		return 0, 0, &ParseError{Count: typeErrors}
	}
	return etoIn, precipIn, nil
}

// numericValue extracts rec[key].Value as a float. The second return is true
// when the shape or the number is wrong.
func numericValue(rec map[string]any, key string) (float64, bool) {
	obj, ok := rec[key].(map[string]any)
	if !ok {
		return 0, true
	}
	s, ok := obj["Value"].(string)
	if !ok {
		return 0, true
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, true
	}
	return f, false
}
