package metrics

import "github.com/Gardusio/coach-client/internal/model"

// Reference ranges for normalization.
const (
	restingHRMin, restingHRMax   = 50.0, 90.0
	rmssdMin, rmssdMax           = 20.0, 100.0
	sleepScoreMin, sleepScoreMax = 50.0, 100.0
	activityMin, activityMax     = 0.0, 120.0
)

// Weights of the stress/recovery score, applied to normalized inputs.
const (
	stressBaseline = 75.0
	weightRMSSD    = 30.0
	weightHR       = -30.0
	weightSleep    = 25.0
	weightActivity = 15.0

	stressFloor = 50.0
	stressCeil  = 100.0
	stressShift = 10.0
)

// ComputeStress derives the recovery score of a day: 90 is fully recovered,
// 40 is highly stressed. It returns nil when resting heart rate, HRV and
// sleep score are all absent; otherwise an absent input contributes nothing.
func ComputeStress(restingHR, rmssd, sleepScore *float64, activityMinutes float64) *float64 {
	if restingHR == nil && rmssd == nil && sleepScore == nil {
		return nil
	}

	score := stressBaseline
	score += weightRMSSD * normalize(rmssd, rmssdMin, rmssdMax)
	score += weightHR * normalize(restingHR, restingHRMin, restingHRMax)
	score += weightSleep * normalize(sleepScore, sleepScoreMin, sleepScoreMax)
	score += weightActivity * normalize(&activityMinutes, activityMin, activityMax)

	score = clamp(score, stressFloor, stressCeil) - stressShift
	return &score
}

// TotalActivityMinutes sums moderate, very active, cardio and peak minutes,
// counting absent terms as zero.
func TotalActivityMinutes(d *model.DailyMetrics) float64 {
	var total float64
	for _, v := range []*float64{d.ModeratelyActiveMinutes, d.VeryActiveMinutes, d.CardioMinutes, d.PeakMinutes} {
		if v != nil {
			total += *v
		}
	}
	return total
}

func normalize(v *float64, lo, hi float64) float64 {
	if v == nil {
		return 0
	}
	return clamp((*v-lo)/(hi-lo), 0, 1)
}

func clamp(v, lo, hi float64) float64 {
	return min(hi, max(lo, v))
}
