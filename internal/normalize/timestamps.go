package normalize

import (
	"encoding/json"
	"strconv"
	"time"
)

// EpochThreshold separates Unix-epoch-seconds values from other numbers.
// Only values strictly above it are converted, and only in fields known to
// carry timestamps.
const EpochThreshold = 1_000_000_000

func convertJob(in map[string]any, now time.Time) map[string]any {
	out := clone(in)
	stringID(out)
	convertTime(out, "startTime", now, true)
	convertTime(out, "endTime", now, false)
	convertTime(out, "lastUpdate", now, true)
	return out
}

func convertAgent(in map[string]any, now time.Time) map[string]any {
	out := clone(in)
	stringID(out)
	convertTime(out, "lastSeen", now, false)
	return out
}

func convertInfo(in map[string]any, now time.Time) map[string]any {
	out := clone(in)

	switch uptime := out["uptime"].(type) {
	case nil:
		out["uptime"] = json.Number("0")
	case json.Number:
		if secs, ok := epochSeconds(uptime); ok {
			elapsed := now.Unix() - int64(secs)
			out["uptime"] = json.Number(strconv.FormatInt(elapsed, 10))
		}
	}

	convertTime(out, "lastUpdate", now, true)
	convertTime(out, "startTime", now, true)
	return out
}

// stringID canonicalizes a numeric id to its decimal string.
func stringID(rec map[string]any) {
	if n, ok := rec["id"].(json.Number); ok {
		rec["id"] = n.String()
	}
}

// convertTime rewrites an epoch-seconds field as an RFC 3339 UTC string.
// Missing, null or zero values become now when defaultNow is set and are
// dropped otherwise.
func convertTime(rec map[string]any, field string, now time.Time, defaultNow bool) {
	value, present := rec[field]
	if !present || value == nil || isZero(value) {
		if defaultNow {
			rec[field] = now.UTC().Format(time.RFC3339)
		} else {
			delete(rec, field)
		}
		return
	}

	n, ok := value.(json.Number)
	if !ok {
		return
	}
	secs, ok := epochSeconds(n)
	if !ok {
		return
	}
	whole := int64(secs)
	nanos := int64((secs - float64(whole)) * float64(time.Second))
	rec[field] = time.Unix(whole, nanos).UTC().Format(time.RFC3339)
}

func epochSeconds(n json.Number) (float64, bool) {
	f, err := n.Float64()
	if err != nil || f <= EpochThreshold {
		return 0, false
	}
	return f, true
}

func isZero(value any) bool {
	switch v := value.(type) {
	case json.Number:
		f, err := v.Float64()
		return err == nil && f == 0
	case string:
		return v == ""
	}
	return false
}

func clone(in map[string]any) map[string]any {
	out := make(map[string]any, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
