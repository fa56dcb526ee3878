package model

import "time"

// TokenRecord is the Fitbit token pair held server side for one session.
// It is always written as a whole; refresh replaces every field at once.
type TokenRecord struct {
	AccessToken  string   `json:"access_token"`
	RefreshToken string   `json:"refresh_token,omitempty"`
	ExpiresAt    int64    `json:"expires_at"` // epoch milliseconds
	Scope        []string `json:"scope"`
	UserID       string   `json:"user_id"`
}

// Expiry returns ExpiresAt as a time.Time.
func (t TokenRecord) Expiry() time.Time {
	return time.UnixMilli(t.ExpiresAt)
}

// SessionMeta is the non-secret view of a session exposed to the frontend.
type SessionMeta struct {
	Scope     []string `json:"scope"`
	UserID    string   `json:"user_id"`
	ExpiresAt int64    `json:"expires_at"`
}

// PendingAuth is an authorization attempt awaiting its callback.
// It is consumed exactly once.
type PendingAuth struct {
	State     string    `json:"state"`
	Verifier  string    `json:"verifier"`
	CreatedAt time.Time `json:"created_at"`
}

// RefreshLock serializes token refreshes for one session.
type RefreshLock struct {
	SessionID string `json:"session_id" dynamodbav:"session_id"`
	Owner     string `json:"owner" dynamodbav:"owner"`
	ExpiresAt int64  `json:"expires_at" dynamodbav:"expires_at"` // TTL (Unix timestamp)
}

// DailyMetrics is one calendar day of merged Fitbit data.
// A nil field means the upstream API returned nothing usable for it.
type DailyMetrics struct {
	Date string `json:"date"`

	LightlyActiveMinutes    *float64 `json:"lightly_active_minutes"`
	ModeratelyActiveMinutes *float64 `json:"moderately_active_minutes"`
	VeryActiveMinutes       *float64 `json:"very_active_minutes"`
	CardioMinutes           *float64 `json:"cardio_minutes"`
	FatBurnMinutes          *float64 `json:"fat_burn_minutes"`
	PeakMinutes             *float64 `json:"peak_minutes"`
	SedentaryMinutes        *float64 `json:"sedentary_minutes"`

	Steps    *float64 `json:"steps"`
	Distance *float64 `json:"distance"`
	Floors   *float64 `json:"floors"`
	Calories *float64 `json:"calories"`

	MinutesInDefaultZone1    *float64 `json:"minutes_in_default_zone_1"`
	MinutesBelowDefaultZone1 *float64 `json:"minutes_below_default_zone_1"`
	MinutesInDefaultZone2    *float64 `json:"minutes_in_default_zone_2"`
	MinutesInDefaultZone3    *float64 `json:"minutes_in_default_zone_3"`

	BPM       *float64 `json:"bpm"`
	RestingHR *float64 `json:"resting_hr"`
	RMSSD     *float64 `json:"rmssd"`
	VO2Max    *float64 `json:"filteredDemographicVO2Max"`

	SleepDuration          *float64 `json:"sleep_duration"`
	TimeInBed              *float64 `json:"timeInBed"`
	LightSleepMinutes      *float64 `json:"light_sleep_minutes"`
	DeepSleepMinutes       *float64 `json:"deep_sleep_minutes"`
	REMSleepMinutes        *float64 `json:"rem_sleep_minutes"`
	WakeSleepCount         *float64 `json:"wake_sleep_count"`
	FullSleepBreathingRate *float64 `json:"full_sleep_breathing_rate"`
	SleepScore             *float64 `json:"sleep_score"`

	StressScore *float64 `json:"stress_score"`
}
