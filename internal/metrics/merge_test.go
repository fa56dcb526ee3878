package metrics

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Gardusio/coach-client/internal/model"
)

var fixtures = map[Family]string{
	FamilySteps: `{"activities-steps":[
		{"dateTime":"2025-05-01","value":"8123"},
		{"dateTime":"2025-05-02","value":"not-a-number"},
		{"dateTime":"","value":"1"}]}`,
	FamilyDistance:      `{"activities-distance":[{"dateTime":"2025-05-01","value":"6.12"}]}`,
	FamilyFloors:        `{"activities-floors":[{"dateTime":"2025-05-01","value":"12"},{"dateTime":"2025-05-05","value":"3"}]}`,
	FamilyCalories:      `{"activities-calories":[{"dateTime":"2025-05-01","value":"2450"}]}`,
	FamilySedentary:     `{"activities-minutesSedentary":[{"dateTime":"2025-05-01","value":"700"}]}`,
	FamilyLightlyActive: `{"activities-minutesLightlyActive":[{"dateTime":"2025-05-01","value":"180"}]}`,
	FamilyFairlyActive:  `{"activities-minutesFairlyActive":[{"dateTime":"2025-05-01","value":"20"}]}`,
	FamilyVeryActive:    `{"activities-minutesVeryActive":[{"dateTime":"2025-05-01","value":"25"}]}`,
	FamilyHeart: `{"activities-heart":[
		{"dateTime":"2025-05-01","value":{"restingHeartRate":60,"heartRateZones":[
			{"name":"Out of Range","minutes":1200},
			{"name":"Fat Burn","minutes":90},
			{"name":"Cardio","minutes":10},
			{"name":"Peak","minutes":5},
			{"name":"Custom","minutes":3}]}},
		{"dateTime":"2025-05-02","value":{"restingHeartRate":"61","heartRateZones":[
			{"name":"Fat Burn","minutes":"40"}]}}]}`,
	FamilyHRV: `{"hrv":[
		{"dateTime":"2025-05-01","value":{"dailyRmssd":60,"deepRmssd":70}},
		{"dateTime":"2025-05-03","value":{"dailyRmssd":null}}]}`,
	FamilySleep: `{"sleep":[
		{"dateOfSleep":"2025-05-01","duration":27000000,"timeInBed":450,"efficiency":80,
		 "levels":{"summary":{"light":{"minutes":200,"count":20},"deep":{"minutes":80},"rem":{"minutes":90},"wake":{"count":12,"minutes":40}}}},
		{"dateOfSleep":"2025-05-02","duration":25000000,"efficiency":91,
		 "levels":{"summary":{"asleep":{"minutes":300},"awake":{"count":2}}}}]}`,
	FamilyBreathing: `{"br":[{"dateTime":"2025-05-01","value":{"breathingRate":15.2}}]}`,
	FamilyCardioScore: `{"cardioScore":[
		{"dateTime":"2025-05-01","value":{"vo2Max":"45-49"}},
		{"dateTime":"2025-05-02","value":{"vo2Max":"46.5"}},
		{"dateTime":"2025-05-03","value":{"vo2Max":"abc"}},
		{"dateTime":"2025-05-04","value":{"vo2Max":44}}]}`,
}

func mergeAll(t *testing.T, order []Family) []model.DailyMetrics {
	t.Helper()
	m := NewMerger()
	for _, f := range order {
		require.NoError(t, m.Merge(f, []byte(fixtures[f])), f.String())
	}
	return m.Finalize()
}

func byDate(days []model.DailyMetrics) map[string]model.DailyMetrics {
	out := make(map[string]model.DailyMetrics, len(days))
	for _, d := range days {
		out[d.Date] = d
	}
	return out
}

func TestMerger_AllFamilies(t *testing.T) {
	days := mergeAll(t, Families)

	require.Len(t, days, 3)
	for i := 1; i < len(days); i++ {
		assert.Less(t, days[i-1].Date, days[i].Date, "sorted by date")
	}

	got := byDate(days)
	d1 := got["2025-05-01"]

	assert.Equal(t, ptr(8123), d1.Steps)
	assert.Equal(t, ptr(6.12), d1.Distance)
	assert.Equal(t, ptr(12), d1.Floors)
	assert.Equal(t, ptr(2450), d1.Calories)
	assert.Equal(t, ptr(700), d1.SedentaryMinutes)
	assert.Equal(t, ptr(180), d1.LightlyActiveMinutes)
	assert.Equal(t, ptr(20), d1.ModeratelyActiveMinutes)
	assert.Equal(t, ptr(25), d1.VeryActiveMinutes)

	assert.Equal(t, ptr(60), d1.RestingHR)
	assert.Equal(t, ptr(90), d1.FatBurnMinutes)
	assert.Equal(t, ptr(10), d1.CardioMinutes)
	assert.Equal(t, ptr(5), d1.PeakMinutes)
	assert.Equal(t, ptr(1200), d1.MinutesBelowDefaultZone1)
	assert.Equal(t, d1.FatBurnMinutes, d1.MinutesInDefaultZone1)
	assert.Equal(t, d1.CardioMinutes, d1.MinutesInDefaultZone2)
	assert.Equal(t, d1.PeakMinutes, d1.MinutesInDefaultZone3)
	assert.Nil(t, d1.BPM)

	assert.Equal(t, ptr(60), d1.RMSSD)
	assert.Equal(t, ptr(27000000), d1.SleepDuration)
	assert.Equal(t, ptr(450), d1.TimeInBed)
	assert.Equal(t, ptr(80), d1.SleepScore)
	assert.Equal(t, ptr(200), d1.LightSleepMinutes)
	assert.Equal(t, ptr(80), d1.DeepSleepMinutes)
	assert.Equal(t, ptr(90), d1.REMSleepMinutes)
	assert.Equal(t, ptr(12), d1.WakeSleepCount)
	assert.Equal(t, ptr(15.2), d1.FullSleepBreathingRate)
	assert.Equal(t, ptr(47), d1.VO2Max)

	// activity = 20 + 25 + 10 + 5 = 60, so this is the reference day
	require.NotNil(t, d1.StressScore)
	assert.InDelta(t, 90, *d1.StressScore, 1e-9)
}

func TestMerger_AbsentIsNotZero(t *testing.T) {
	got := byDate(mergeAll(t, Families))

	d2 := got["2025-05-02"]
	assert.Nil(t, d2.Steps, "uncoercible value stays absent")
	assert.Nil(t, d2.RestingHR, "string resting heart rate is rejected")
	assert.Nil(t, d2.FatBurnMinutes, "string zone minutes are rejected")
	assert.Nil(t, d2.MinutesInDefaultZone1)
	assert.Nil(t, d2.TimeInBed)
	assert.Equal(t, ptr(91), d2.SleepScore)
	assert.Nil(t, d2.LightSleepMinutes, "missing stage is absent")
	assert.Nil(t, d2.WakeSleepCount)
	assert.Equal(t, ptr(46.5), d2.VO2Max)

	// null rmssd, "abc" and a numeric vo2Max carry no usable value
	_, ok := got["2025-05-03"]
	assert.False(t, ok)
	_, ok = got["2025-05-04"]
	assert.False(t, ok)

	d5 := got["2025-05-05"]
	assert.Equal(t, ptr(3), d5.Floors)
	assert.Nil(t, d5.StressScore, "no signal, no score")
}

func TestMerger_OrderIndependence(t *testing.T) {
	want := mergeAll(t, Families)

	reversed := make([]Family, len(Families))
	for i, f := range Families {
		reversed[len(Families)-1-i] = f
	}
	assert.Equal(t, want, mergeAll(t, reversed))

	interleaved := []Family{
		FamilyHeart, FamilySteps, FamilySleep, FamilyCardioScore, FamilyHRV,
		FamilyVeryActive, FamilyBreathing, FamilyDistance, FamilyFairlyActive,
		FamilyCalories, FamilySedentary, FamilyFloors, FamilyLightlyActive,
	}
	assert.Equal(t, want, mergeAll(t, interleaved))
}

func TestMerger_MergeIsIdempotent(t *testing.T) {
	want := mergeAll(t, Families)
	assert.Equal(t, want, mergeAll(t, append(append([]Family{}, Families...), Families...)))
}

func TestMerger_MalformedBody(t *testing.T) {
	m := NewMerger()
	assert.Error(t, m.Merge(FamilySteps, []byte(`<html>`)))
	assert.Error(t, m.Merge(FamilyHeart, []byte(`{"activities-heart":"oops"}`)))
	assert.NoError(t, m.Merge(FamilySteps, []byte(`{}`)), "missing key is empty data")
	assert.Equal(t, 0, m.Len())
}

func TestFamily_Path(t *testing.T) {
	b := Batch{Start: date("2025-05-01"), End: date("2025-05-30")}
	tests := map[Family]string{
		FamilySteps:        "1/user/-/activities/steps/date/2025-05-01/2025-05-30.json",
		FamilyFairlyActive: "1/user/-/activities/minutesFairlyActive/date/2025-05-01/2025-05-30.json",
		FamilyHeart:        "1/user/-/activities/heart/date/2025-05-01/2025-05-30.json",
		FamilyHRV:          "1/user/-/hrv/date/2025-05-01/2025-05-30.json",
		FamilySleep:        "1.2/user/-/sleep/date/2025-05-01/2025-05-30.json",
		FamilyBreathing:    "1/user/-/br/date/2025-05-01/2025-05-30.json",
		FamilyCardioScore:  "1/user/-/cardioscore/date/2025-05-01/2025-05-30.json",
	}
	for f, want := range tests {
		assert.Equal(t, want, f.Path(b), f.String())
	}
	assert.Len(t, Families, 13)
}
