package data

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"schoolcal/internal/model"
	"schoolcal/internal/schedule"
)

// patchEntry is the on-disk shape of one per-period override pair.
type patchEntry struct {
	Period  flexID `json:"period"`
	Subject flexID `json:"subject"`
}

// LoadOverrides reads the date-keyed override map. Each value is either
// an object carrying "use_weekday" (full-day substitution) or an array of
// (period, subject) patch pairs. An object carrying both "use_weekday"
// and "periods" is loaded as-is; the engine rejects it as ambiguous.
func LoadOverrides(path string, loc *time.Location) (map[time.Time]model.Override, error) {
	raw := make(map[string]json.RawMessage)
	if err := readJSON(path, &raw); err != nil {
		return nil, err
	}
	delete(raw, versionKey)

	overrides := make(map[time.Time]model.Override, len(raw))
	for dayStr, body := range raw {
		date, err := parseDate(dayStr, loc)
		if err != nil {
			return nil, fmt.Errorf("%s: override key: %w", path, err)
		}
		o, err := decodeOverride(body)
		if err != nil {
			return nil, fmt.Errorf("%s: override for %s: %w", path, dayStr, err)
		}
		overrides[date] = o
	}
	return overrides, nil
}

func decodeOverride(body json.RawMessage) (model.Override, error) {
	var o model.Override

	// Array form: per-period patch list.
	var patches []patchEntry
	if err := json.Unmarshal(body, &patches); err == nil {
		o.HasPatches = true
		o.Patches = convertPatches(patches)
		return o, nil
	}

	// Object form: full-day weekday substitution, possibly alongside an
	// (illegal) patch list the engine will flag.
	var obj struct {
		UseWeekday json.RawMessage `json:"use_weekday"`
		Periods    []patchEntry    `json:"periods"`
	}
	if err := json.Unmarshal(body, &obj); err != nil {
		return o, fmt.Errorf("unrecognized override format: %w", err)
	}

	if len(obj.UseWeekday) > 0 {
		wd, err := decodeWeekdayValue(obj.UseWeekday)
		if err != nil {
			return o, err
		}
		if wd < 1 || wd > 7 {
			return o, fmt.Errorf("%w: use_weekday %d out of range 1..7", schedule.ErrInvalidDate, wd)
		}
		o.UseWeekday = wd
	}
	if obj.Periods != nil {
		o.HasPatches = true
		o.Patches = convertPatches(obj.Periods)
	}

	if o.UseWeekday == 0 && !o.HasPatches {
		return o, fmt.Errorf("%w: override carries neither use_weekday nor a patch list", schedule.ErrInvalidDate)
	}

	return o, nil
}

// decodeWeekdayValue accepts an integer or a numeric string, mirroring
// the historical int coercion. Range checking is the engine's job.
func decodeWeekdayValue(raw json.RawMessage) (int, error) {
	var n int
	if err := json.Unmarshal(raw, &n); err == nil {
		return n, nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if n, err := strconv.Atoi(s); err == nil {
			return n, nil
		}
	}
	return 0, fmt.Errorf("%w: use_weekday must be an integer", schedule.ErrInvalidDate)
}

func convertPatches(in []patchEntry) []model.PatchEntry {
	out := make([]model.PatchEntry, 0, len(in))
	for _, p := range in {
		out = append(out, model.PatchEntry{
			PeriodID:  string(p.Period),
			SubjectID: string(p.Subject),
		})
	}
	return out
}
