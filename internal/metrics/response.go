package metrics

import "encoding/json"

// Narrow views of the upstream responses. Values stay raw until merge so a
// single malformed field only blanks that field.

type seriesPoint struct {
	DateTime string          `json:"dateTime"`
	Value    json.RawMessage `json:"value"`
}

type heartResponse struct {
	Days []struct {
		DateTime string `json:"dateTime"`
		Value    struct {
			RestingHeartRate json.RawMessage `json:"restingHeartRate"`
			HeartRateZones   []heartZone     `json:"heartRateZones"`
		} `json:"value"`
	} `json:"activities-heart"`
}

type heartZone struct {
	Name    string          `json:"name"`
	Minutes json.RawMessage `json:"minutes"`
}

type hrvResponse struct {
	HRV []struct {
		DateTime string `json:"dateTime"`
		Value    struct {
			DailyRmssd json.RawMessage `json:"dailyRmssd"`
		} `json:"value"`
	} `json:"hrv"`
}

type sleepResponse struct {
	Sleep []sleepLog `json:"sleep"`
}

type sleepLog struct {
	DateOfSleep string          `json:"dateOfSleep"`
	Duration    json.RawMessage `json:"duration"`
	TimeInBed   json.RawMessage `json:"timeInBed"`
	Efficiency  json.RawMessage `json:"efficiency"`
	Levels      *struct {
		Summary *sleepSummary `json:"summary"`
	} `json:"levels"`
}

type sleepSummary struct {
	Light *sleepStage `json:"light"`
	Deep  *sleepStage `json:"deep"`
	REM   *sleepStage `json:"rem"`
	Wake  *sleepStage `json:"wake"`
}

type sleepStage struct {
	Count   json.RawMessage `json:"count"`
	Minutes json.RawMessage `json:"minutes"`
}

type breathingResponse struct {
	BR []struct {
		DateTime string `json:"dateTime"`
		Value    struct {
			BreathingRate json.RawMessage `json:"breathingRate"`
		} `json:"value"`
	} `json:"br"`
}

type cardioScoreResponse struct {
	CardioScore []struct {
		DateTime string `json:"dateTime"`
		Value    struct {
			VO2Max json.RawMessage `json:"vo2Max"`
		} `json:"value"`
	} `json:"cardioScore"`
}
