package registry

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/gardenops/cimis-irrigation/internal/model"
)

// DateLayout is the timestamp format of the persisted irrigation records.
const DateLayout = "2006-01-02 15:04:05"

// ErrPersistence marks failures loading or saving the zone records file.
// Both are fatal to a cycle: without prior records demand cannot be computed,
// and a failed save loses the cycle's updates.
var ErrPersistence = errors.New("zone records persistence failed")

// record mirrors one entry of the zones JSON file. Deployed files mix string
// and numeric forms for PF/LA/Gallons, so those decode through flexFloat.
type record struct {
	Name       string    `json:"Name"`
	PF         flexFloat `json:"PF"`
	LA         flexFloat `json:"LA"`
	Relay      int       `json:"Relay"`
	Controller int       `json:"Controller"`
	Date       string    `json:"Date"`
	Gallons    flexFloat `json:"Gallons"`
}

type zoneFile struct {
	Data []record `json:"Data"`
}

// flexFloat accepts both JSON numbers and numeric strings.
type flexFloat float64

func (f *flexFloat) UnmarshalJSON(b []byte) error {
	var v any
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	switch t := v.(type) {
	case float64:
		*f = flexFloat(t)
		return nil
	case string:
		parsed, err := strconv.ParseFloat(strings.ReplaceAll(strings.TrimSpace(t), ",", "."), 64)
		if err != nil {
			return fmt.Errorf("numeric string %q: %w", t, err)
		}
		*f = flexFloat(parsed)
		return nil
	default:
		return fmt.Errorf("expected number or numeric string, got %T", v)
	}
}

// Load reads the zone records file and returns a registry preserving the
// persisted order. An unparsable last-irrigation date is a hard input error:
// defaulting to "never irrigated" would silently inflate demand.
func Load(path string) (*Registry, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %w", ErrPersistence, path, err)
	}

	var file zoneFile
	if err := json.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("%w: decode %s: %w", ErrPersistence, path, err)
	}

	zones := make([]*model.Zone, 0, len(file.Data))
	seen := make(map[string]bool, len(file.Data))
	for i, rec := range file.Data {
		if rec.Name == "" {
			return nil, fmt.Errorf("%w: record %d has no name", ErrPersistence, i)
		}
		if seen[rec.Name] {
			return nil, fmt.Errorf("%w: duplicate zone %q", ErrPersistence, rec.Name)
		}
		seen[rec.Name] = true
		if rec.PF <= 0 || rec.LA <= 0 {
			return nil, fmt.Errorf("%w: zone %q: PF and LA must be positive (PF=%v LA=%v)",
				ErrPersistence, rec.Name, float64(rec.PF), float64(rec.LA))
		}

		last, err := time.ParseInLocation(DateLayout, rec.Date, time.Local)
		if err != nil {
			return nil, fmt.Errorf("%w: zone %q: parse last irrigation date %q: %w",
				ErrPersistence, rec.Name, rec.Date, err)
		}

		zones = append(zones, &model.Zone{
			Name:        rec.Name,
			PF:          float64(rec.PF),
			LA:          float64(rec.LA),
			Relay:       rec.Relay,
			Controller:  rec.Controller,
			LastDate:    last,
			LastGallons: float64(rec.Gallons),
		})
	}

	return &Registry{path: path, zones: zones}, nil
}

// Save rewrites the whole records file. Zones listed in actuated get their
// Date set to cycleTime and Gallons set to the cycle's computed demand; all
// other records are written back unchanged. There is no partial-write
// recovery: a failed save loses this cycle's updates.
func (r *Registry) Save(cycleTime time.Time, actuated map[string]bool) error {
	file := zoneFile{Data: make([]record, 0, len(r.zones))}
	stamp := cycleTime.In(time.Local).Format(DateLayout)

	for _, z := range r.zones {
		rec := record{
			Name:       z.Name,
			PF:         flexFloat(z.PF),
			LA:         flexFloat(z.LA),
			Relay:      z.Relay,
			Controller: z.Controller,
			Date:       z.LastDate.In(time.Local).Format(DateLayout),
			Gallons:    flexFloat(z.LastGallons),
		}
		if actuated[z.Name] {
			rec.Date = stamp
			rec.Gallons = flexFloat(z.Demand)
		}
		file.Data = append(file.Data, rec)
	}

	out, err := json.MarshalIndent(file, "", "  ")
	if err != nil {
		return fmt.Errorf("%w: encode records: %w", ErrPersistence, err)
	}
	if err := os.WriteFile(r.path, out, 0644); err != nil {
		return fmt.Errorf("%w: write %s: %w", ErrPersistence, r.path, err)
	}
	return nil
}
