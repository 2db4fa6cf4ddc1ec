package analytics

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Policy holds every threshold the analyzers classify against.
type Policy struct {
	Feed   FeedPolicy   `yaml:"feed"`
	Sleep  SleepPolicy  `yaml:"sleep"`
	Diaper DiaperPolicy `yaml:"diaper"`
}

type FeedPolicy struct {
	LowVolumeML       float64 `yaml:"low_volume_ml"`
	HighVolumeML      float64 `yaml:"high_volume_ml"`
	RegularStdHours   float64 `yaml:"regular_std_hours"`
	IrregularStdHours float64 `yaml:"irregular_std_hours"`
	StableCV          float64 `yaml:"stable_cv"`
	UnstableCV        float64 `yaml:"unstable_cv"`
}

type SleepPolicy struct {
	PoorHours         float64 `yaml:"poor_hours"`
	RichHours         float64 `yaml:"rich_hours"`
	NapMaxMinutes     float64 `yaml:"nap_max_minutes"`
	LongNightMinutes  float64 `yaml:"long_night_minutes"`
	ProfileLongNights int     `yaml:"profile_long_nights"`
	ProfileNaps       int     `yaml:"profile_naps"`
	JumpMinutes       float64 `yaml:"jump_minutes"`
}

type DiaperPolicy struct {
	TimingBins         int     `yaml:"timing_bins"`
	ConcentrationRatio float64 `yaml:"concentration_ratio"`
	BigPooRun          int     `yaml:"big_poo_run"`
	MaxIntervalHours   float64 `yaml:"max_interval_hours"`
}

func DefaultPolicy() Policy {
	return Policy{
		Feed: FeedPolicy{
			LowVolumeML:       90,
			HighVolumeML:      150,
			RegularStdHours:   1,
			IrregularStdHours: 3,
			StableCV:          0.2,
			UnstableCV:        0.5,
		},
		Sleep: SleepPolicy{
			PoorHours:         6,
			RichHours:         8,
			NapMaxMinutes:     120,
			LongNightMinutes:  240,
			ProfileLongNights: 5,
			ProfileNaps:       3,
			JumpMinutes:       90,
		},
		Diaper: DiaperPolicy{
			TimingBins:         6,
			ConcentrationRatio: 0.4,
			BigPooRun:          2,
			MaxIntervalHours:   5,
		},
	}
}

// LoadPolicy overlays the YAML file at path onto DefaultPolicy. An empty path returns the defaults.
func LoadPolicy(path string) (Policy, error) {
	policy := DefaultPolicy()
	if path == "" {
		return policy, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return Policy{}, fmt.Errorf("read policy file: %w", err)
	}
	if err := yaml.Unmarshal(raw, &policy); err != nil {
		return Policy{}, fmt.Errorf("parse policy file: %w", err)
	}
	if err := policy.Validate(); err != nil {
		return Policy{}, fmt.Errorf("policy file %s: %w", path, err)
	}
	return policy, nil
}

func (p Policy) Validate() error {
	var errs []error
	if p.Feed.LowVolumeML > p.Feed.HighVolumeML {
		errs = append(errs, errors.New("feed.low_volume_ml must not exceed feed.high_volume_ml"))
	}
	if p.Feed.RegularStdHours > p.Feed.IrregularStdHours {
		errs = append(errs, errors.New("feed.regular_std_hours must not exceed feed.irregular_std_hours"))
	}
	if p.Feed.StableCV > p.Feed.UnstableCV {
		errs = append(errs, errors.New("feed.stable_cv must not exceed feed.unstable_cv"))
	}
	if p.Sleep.PoorHours > p.Sleep.RichHours {
		errs = append(errs, errors.New("sleep.poor_hours must not exceed sleep.rich_hours"))
	}
	if p.Sleep.NapMaxMinutes <= 0 || p.Sleep.LongNightMinutes <= 0 || p.Sleep.JumpMinutes <= 0 {
		errs = append(errs, errors.New("sleep minute thresholds must be positive"))
	}
	if p.Diaper.TimingBins <= 0 || p.Diaper.TimingBins > 24*60 {
		errs = append(errs, errors.New("diaper.timing_bins must be between 1 and 1440"))
	}
	if p.Diaper.BigPooRun < 1 {
		errs = append(errs, errors.New("diaper.big_poo_run must be at least 1"))
	}
	if p.Diaper.MaxIntervalHours <= 0 {
		errs = append(errs, errors.New("diaper.max_interval_hours must be positive"))
	}
	return errors.Join(errs...)
}
