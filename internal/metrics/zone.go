package metrics

import "strings"

// ZoneKind is a Fitbit heart-rate zone.
type ZoneKind int

const (
	ZoneUnknown ZoneKind = iota
	ZoneFatBurn
	ZoneCardio
	ZonePeak
	ZoneOutOfRange
)

func (z ZoneKind) String() string {
	switch z {
	case ZoneFatBurn:
		return "fat_burn"
	case ZoneCardio:
		return "cardio"
	case ZonePeak:
		return "peak"
	case ZoneOutOfRange:
		return "out_of_range"
	default:
		return "unknown"
	}
}

// ClassifyZone maps a zone name to its kind by case-insensitive substring,
// checking "fat", "cardio", "peak" and "out" in that order.
func ClassifyZone(name string) ZoneKind {
	n := strings.ToLower(name)
	switch {
	case strings.Contains(n, "fat"):
		return ZoneFatBurn
	case strings.Contains(n, "cardio"):
		return ZoneCardio
	case strings.Contains(n, "peak"):
		return ZonePeak
	case strings.Contains(n, "out"):
		return ZoneOutOfRange
	default:
		return ZoneUnknown
	}
}
