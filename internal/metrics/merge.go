package metrics

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/Gardusio/coach-client/internal/model"
)

// Merger folds family responses into per-day records. It is not safe for
// concurrent use; responses are merged one at a time.
type Merger struct {
	days map[string]*model.DailyMetrics
}

func NewMerger() *Merger {
	return &Merger{days: make(map[string]*model.DailyMetrics)}
}

// ensure returns the record for date, creating an empty one on first use.
func (m *Merger) ensure(date string) *model.DailyMetrics {
	d, ok := m.days[date]
	if !ok {
		d = &model.DailyMetrics{Date: date}
		m.days[date] = d
	}
	return d
}

// Len returns the number of days seen so far.
func (m *Merger) Len() int {
	return len(m.days)
}

// Merge parses body as the response of family f and folds it in.
func (m *Merger) Merge(f Family, body []byte) error {
	var err error
	switch f {
	case FamilySteps:
		err = m.mergeSeries(body, "activities-steps", func(d *model.DailyMetrics) **float64 { return &d.Steps })
	case FamilyDistance:
		err = m.mergeSeries(body, "activities-distance", func(d *model.DailyMetrics) **float64 { return &d.Distance })
	case FamilyFloors:
		err = m.mergeSeries(body, "activities-floors", func(d *model.DailyMetrics) **float64 { return &d.Floors })
	case FamilyCalories:
		err = m.mergeSeries(body, "activities-calories", func(d *model.DailyMetrics) **float64 { return &d.Calories })
	case FamilySedentary:
		err = m.mergeSeries(body, "activities-minutesSedentary", func(d *model.DailyMetrics) **float64 { return &d.SedentaryMinutes })
	case FamilyLightlyActive:
		err = m.mergeSeries(body, "activities-minutesLightlyActive", func(d *model.DailyMetrics) **float64 { return &d.LightlyActiveMinutes })
	case FamilyFairlyActive:
		err = m.mergeSeries(body, "activities-minutesFairlyActive", func(d *model.DailyMetrics) **float64 { return &d.ModeratelyActiveMinutes })
	case FamilyVeryActive:
		err = m.mergeSeries(body, "activities-minutesVeryActive", func(d *model.DailyMetrics) **float64 { return &d.VeryActiveMinutes })
	case FamilyHeart:
		err = m.mergeHeart(body)
	case FamilyHRV:
		err = m.mergeHRV(body)
	case FamilySleep:
		err = m.mergeSleep(body)
	case FamilyBreathing:
		err = m.mergeBreathing(body)
	case FamilyCardioScore:
		err = m.mergeCardioScore(body)
	default:
		return fmt.Errorf("unknown family %v", f)
	}
	if err != nil {
		return fmt.Errorf("merge %s: %w", f, err)
	}
	return nil
}

// mergeSeries assigns a plain time series. Values that fail coercion leave
// the field as it was.
func (m *Merger) mergeSeries(body []byte, key string, field func(*model.DailyMetrics) **float64) error {
	var resp map[string]json.RawMessage
	if err := json.Unmarshal(body, &resp); err != nil {
		return err
	}
	raw, ok := resp[key]
	if !ok {
		return nil
	}
	var points []seriesPoint
	if err := json.Unmarshal(raw, &points); err != nil {
		return err
	}

	for _, p := range points {
		if p.DateTime == "" {
			continue
		}
		v, err := CoerceNumber(p.Value)
		if err != nil {
			continue
		}
		*field(m.ensure(p.DateTime)) = v
	}
	return nil
}

func (m *Merger) mergeHeart(body []byte) error {
	var resp heartResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return err
	}

	for _, day := range resp.Days {
		if day.DateTime == "" {
			continue
		}
		d := m.ensure(day.DateTime)
		if v := number(day.Value.RestingHeartRate); v != nil {
			d.RestingHR = v
		}

		for _, z := range day.Value.HeartRateZones {
			minutes := number(z.Minutes)
			if minutes == nil {
				continue
			}
			switch ClassifyZone(z.Name) {
			case ZoneFatBurn:
				d.FatBurnMinutes = minutes
			case ZoneCardio:
				d.CardioMinutes = minutes
			case ZonePeak:
				d.PeakMinutes = minutes
			case ZoneOutOfRange:
				d.MinutesBelowDefaultZone1 = minutes
			}
		}

		// default zones 1-3 are fat burn, cardio and peak
		d.MinutesInDefaultZone1 = d.FatBurnMinutes
		d.MinutesInDefaultZone2 = d.CardioMinutes
		d.MinutesInDefaultZone3 = d.PeakMinutes
	}
	return nil
}

func (m *Merger) mergeHRV(body []byte) error {
	var resp hrvResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return err
	}
	for _, row := range resp.HRV {
		if row.DateTime == "" {
			continue
		}
		if v := number(row.Value.DailyRmssd); v != nil {
			m.ensure(row.DateTime).RMSSD = v
		}
	}
	return nil
}

// mergeSleep keys logs by the night they belong to. Every field of a log is
// assigned, absent ones included; stage fields only when a summary exists.
func (m *Merger) mergeSleep(body []byte) error {
	var resp sleepResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return err
	}
	for _, log := range resp.Sleep {
		if log.DateOfSleep == "" {
			continue
		}
		d := m.ensure(log.DateOfSleep)
		d.SleepDuration = number(log.Duration)
		d.TimeInBed = number(log.TimeInBed)
		d.SleepScore = number(log.Efficiency)

		if log.Levels == nil || log.Levels.Summary == nil {
			continue
		}
		s := log.Levels.Summary
		d.LightSleepMinutes = stageValue(s.Light, false)
		d.DeepSleepMinutes = stageValue(s.Deep, false)
		d.REMSleepMinutes = stageValue(s.REM, false)
		d.WakeSleepCount = stageValue(s.Wake, true)
	}
	return nil
}

func stageValue(s *sleepStage, count bool) *float64 {
	if s == nil {
		return nil
	}
	if count {
		return number(s.Count)
	}
	return number(s.Minutes)
}

func (m *Merger) mergeBreathing(body []byte) error {
	var resp breathingResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return err
	}
	for _, row := range resp.BR {
		if row.DateTime == "" {
			continue
		}
		if v := number(row.Value.BreathingRate); v != nil {
			m.ensure(row.DateTime).FullSleepBreathingRate = v
		}
	}
	return nil
}

// mergeCardioScore accepts string scores only, as Fitbit reports them.
func (m *Merger) mergeCardioScore(body []byte) error {
	var resp cardioScoreResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return err
	}
	for _, row := range resp.CardioScore {
		if row.DateTime == "" {
			continue
		}
		var s string
		if err := json.Unmarshal(row.Value.VO2Max, &s); err != nil {
			continue
		}
		if v := ParseVO2Max(s); v != nil {
			m.ensure(row.DateTime).VO2Max = v
		}
	}
	return nil
}

// Finalize derives the stress score of every day and returns the records
// sorted by date.
func (m *Merger) Finalize() []model.DailyMetrics {
	out := make([]model.DailyMetrics, 0, len(m.days))
	for _, d := range m.days {
		d.StressScore = ComputeStress(d.RestingHR, d.RMSSD, d.SleepScore, TotalActivityMinutes(d))
		out = append(out, *d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	return out
}
