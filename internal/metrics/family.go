package metrics

import "fmt"

// Family is one Fitbit endpoint contributing to DailyMetrics.
type Family int

const (
	FamilySteps Family = iota
	FamilyDistance
	FamilyFloors
	FamilyCalories
	FamilySedentary
	FamilyLightlyActive
	FamilyFairlyActive
	FamilyVeryActive
	FamilyHeart
	FamilyHRV
	FamilySleep
	FamilyBreathing
	FamilyCardioScore
)

// Families lists every family fetched per batch, in request order.
var Families = []Family{
	FamilySteps,
	FamilyDistance,
	FamilyFloors,
	FamilyCalories,
	FamilySedentary,
	FamilyLightlyActive,
	FamilyFairlyActive,
	FamilyVeryActive,
	FamilyHeart,
	FamilyHRV,
	FamilySleep,
	FamilyBreathing,
	FamilyCardioScore,
}

// activityResource is the activities time-series resource of a family, or "".
func (f Family) activityResource() string {
	switch f {
	case FamilySteps:
		return "steps"
	case FamilyDistance:
		return "distance"
	case FamilyFloors:
		return "floors"
	case FamilyCalories:
		return "calories"
	case FamilySedentary:
		return "minutesSedentary"
	case FamilyLightlyActive:
		return "minutesLightlyActive"
	case FamilyFairlyActive:
		return "minutesFairlyActive"
	case FamilyVeryActive:
		return "minutesVeryActive"
	default:
		return ""
	}
}

func (f Family) String() string {
	if r := f.activityResource(); r != "" {
		return r
	}
	switch f {
	case FamilyHeart:
		return "heart"
	case FamilyHRV:
		return "hrv"
	case FamilySleep:
		return "sleep"
	case FamilyBreathing:
		return "br"
	case FamilyCardioScore:
		return "cardioscore"
	default:
		return fmt.Sprintf("family(%d)", int(f))
	}
}

// Path returns the API path of the family for batch b.
func (f Family) Path(b Batch) string {
	s, e := b.StartYMD(), b.EndYMD()
	if r := f.activityResource(); r != "" {
		return fmt.Sprintf("1/user/-/activities/%s/date/%s/%s.json", r, s, e)
	}
	switch f {
	case FamilyHeart:
		return fmt.Sprintf("1/user/-/activities/heart/date/%s/%s.json", s, e)
	case FamilySleep:
		return fmt.Sprintf("1.2/user/-/sleep/date/%s/%s.json", s, e)
	default:
		return fmt.Sprintf("1/user/-/%s/date/%s/%s.json", f, s, e)
	}
}
