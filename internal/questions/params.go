package questions

import (
	"fmt"
	"os"
	"regexp"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Params holds the inputs of the fixed question list.
type Params struct {
	TripType string `yaml:"trip_type" validate:"required"`
	TripYear int    `yaml:"trip_year" validate:"gte=2000"`

	StationStatus string `yaml:"station_status" validate:"required"`
	StationYear   int    `yaml:"station_year" validate:"gte=2000"`

	Destination string `yaml:"destination" validate:"required"`
	Passholder  string `yaml:"passholder" validate:"required"`

	IntervalStart string `yaml:"interval_start" validate:"clock"`
	IntervalEnd   string `yaml:"interval_end" validate:"clock"`

	InUseDate  string `yaml:"in_use_date" validate:"mdy"`
	InUseClock string `yaml:"in_use_time" validate:"clock"`

	BusiestDayMonth int `yaml:"busiest_day_month" validate:"min=1,max=12"`

	CloseDistance float64 `yaml:"close_distance" validate:"gt=0"`

	Rank string `yaml:"rank" validate:"required"`
	Axis string `yaml:"axis" validate:"required"`

	MaintenanceThreshold int `yaml:"maintenance_threshold" validate:"gte=0"`
}

// Default returns the parameters of the standard quarterly run.
func Default() Params {
	return Params{
		TripType:             "One Way",
		TripYear:             2017,
		StationStatus:        "Active",
		StationYear:          2016,
		Destination:          "Philadelphia Zoo",
		Passholder:           "Indego30",
		IntervalStart:        "0:00",
		IntervalEnd:          "5:00",
		InUseDate:            "9/15/2017",
		InUseClock:           "7:00",
		BusiestDayMonth:      8,
		CloseDistance:        0.02,
		Rank:                 "least",
		Axis:                 "destination",
		MaintenanceThreshold: 5000,
	}
}

var (
	clockRE = regexp.MustCompile(`^\d{1,2}:\d{2}$`)
	mdyRE   = regexp.MustCompile(`^\d{1,2}/\d{1,2}/\d{4}$`)
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	rules := map[string]*regexp.Regexp{"clock": clockRE, "mdy": mdyRE}
	for tag, re := range rules {
		if err := v.RegisterValidation(tag, matches(re)); err != nil {
			panic(fmt.Sprintf("register %s validation: %v", tag, err))
		}
	}
	return v
}

func matches(re *regexp.Regexp) validator.Func {
	return func(fl validator.FieldLevel) bool {
		return re.MatchString(fl.Field().String())
	}
}

// Validate checks every field against its constraints.
func (p Params) Validate() error {
	if err := validate.Struct(p); err != nil {
		return fmt.Errorf("invalid question parameters: %w", err)
	}
	return nil
}

// Load reads a YAML file over Default. Keys missing from the file keep
// their default value.
func Load(path string) (Params, error) {
	p := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return Params{}, fmt.Errorf("read questions file: %w", err)
	}
	if err := yaml.Unmarshal(data, &p); err != nil {
		return Params{}, fmt.Errorf("parse questions file %s: %w", path, err)
	}
	if err := p.Validate(); err != nil {
		return Params{}, err
	}
	return p, nil
}
