package validation

import (
	"reflect"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/hackgods/appointment-editor/internal/appointment"
	"github.com/hackgods/appointment-editor/internal/recurrence"
)

var today = time.Date(2026, 10, 14, 0, 0, 0, 0, time.UTC)

func opts() Options {
	return Options{Today: today, DefaultOccurrences: 10}
}

func option(label string) *appointment.Option {
	return &appointment.Option{ID: uuid.New(), Label: label}
}

func clock(h, m int) *appointment.TimeOfDay {
	return &appointment.TimeOfDay{Hour: h, Minute: m}
}

func completeDetails() appointment.Details {
	d := today.AddDate(0, 0, 1)
	return appointment.Details{
		Patient:   option("9DEC74AB 9DEC74B7 (IQ1110)"),
		Service:   option("Physiotherapy OPD"),
		Date:      &d,
		StartTime: clock(9, 0),
		EndTime:   clock(9, 30),
	}
}

func TestValidate_SingleModeEmpty(t *testing.T) {
	e := Validate(appointment.Details{}, recurrence.DefaultSettings(), appointment.ModeSingle, opts())

	want := []appointment.ErrorFlag{
		appointment.FlagPatient,
		appointment.FlagService,
		appointment.FlagDate,
		appointment.FlagStartTime,
		appointment.FlagEndTime,
	}
	if !reflect.DeepEqual(e.Active(), want) {
		t.Errorf("expected %v, got %v", want, e.Active())
	}
	if Ready(e) {
		t.Error("empty form should not be ready")
	}
}

func TestValidate_SingleModeComplete(t *testing.T) {
	e := Validate(completeDetails(), recurrence.DefaultSettings(), appointment.ModeSingle, opts())
	if e.Any() {
		t.Errorf("expected no errors, got %v", e.Active())
	}
	if !Ready(e) {
		t.Error("complete form should be ready")
	}
}

func TestValidate_SingleModeOnlyTimesMissing(t *testing.T) {
	d := completeDetails()
	d.StartTime, d.EndTime = nil, nil

	e := Validate(d, recurrence.DefaultSettings(), appointment.ModeSingle, opts())
	want := []appointment.ErrorFlag{appointment.FlagStartTime, appointment.FlagEndTime}
	if !reflect.DeepEqual(e.Active(), want) {
		t.Errorf("expected %v, got %v", want, e.Active())
	}
}

func TestValidate_TimeRange(t *testing.T) {
	d := completeDetails()
	d.EndTime = clock(8, 45)

	e := Validate(d, recurrence.DefaultSettings(), appointment.ModeSingle, opts())
	if !e.TimeRangeError {
		t.Error("expected time range error when end is before start")
	}
	if e.StartTimeError || e.EndTimeError {
		t.Error("times are selected, select time errors should be false")
	}
}

func TestValidate_RecurringModeEmpty(t *testing.T) {
	s := recurrence.DefaultSettings()
	s.Enabled = true

	e := Validate(appointment.Details{}, s, appointment.ModeRecurring, opts())
	want := []appointment.ErrorFlag{
		appointment.FlagPatient,
		appointment.FlagService,
		appointment.FlagStartTime,
		appointment.FlagEndTime,
		appointment.FlagStartDate,
		appointment.FlagEndType,
		appointment.FlagRecurrencePeriod,
	}
	if !reflect.DeepEqual(e.Active(), want) {
		t.Errorf("expected %v, got %v", want, e.Active())
	}
	if e.DateError {
		t.Error("single appointment date is not used in recurring mode")
	}
}

func TestValidate_TodayAndAfterClearDateErrors(t *testing.T) {
	explicit := today.AddDate(0, 0, 3)
	s := recurrence.DefaultSettings()
	s.Enabled = true
	s.Start = recurrence.StartCondition{Kind: recurrence.StartToday, Date: &explicit}
	s.End = recurrence.EndCondition{Kind: recurrence.EndAfter}

	e := Validate(appointment.Details{}, s, appointment.ModeRecurring, opts())
	if e.StartDateError || e.EndDateError || e.EndTypeError || e.DateError {
		t.Errorf("expected no date errors, got %v", e.Active())
	}
	if e.RecurrencePeriodError {
		t.Error("recurrence period should be valid")
	}
	if Ready(e) {
		t.Error("patient and service are still missing")
	}
}

func TestValidate_RecurringConstituents(t *testing.T) {
	tests := []struct {
		name string
		edit func(*recurrence.Settings)
		flag appointment.ErrorFlag
	}{
		{"from without date", func(s *recurrence.Settings) {
			s.Start = recurrence.StartCondition{Kind: recurrence.StartFrom}
		}, appointment.FlagStartDate},
		{"on without date", func(s *recurrence.Settings) {
			s.End = recurrence.EndCondition{Kind: recurrence.EndOn}
		}, appointment.FlagEndDate},
		{"on before start", func(s *recurrence.Settings) {
			d := today.AddDate(0, 0, -1)
			s.End = recurrence.EndCondition{Kind: recurrence.EndOn, Date: &d}
		}, appointment.FlagEndDate},
		{"zero occurrences", func(s *recurrence.Settings) {
			n := 0
			s.End = recurrence.EndCondition{Kind: recurrence.EndAfter, Occurrences: &n}
		}, appointment.FlagOccurrences},
		{"zero period", func(s *recurrence.Settings) {
			s.Period = 0
		}, appointment.FlagPeriod},
		{"period above maximum", func(s *recurrence.Settings) {
			s.Period = recurrence.MaxPeriod + 1
		}, appointment.FlagPeriod},
		{"occurrences above maximum", func(s *recurrence.Settings) {
			n := recurrence.DefaultExpandLimit + 1
			s.End = recurrence.EndCondition{Kind: recurrence.EndAfter, Occurrences: &n}
		}, appointment.FlagOccurrences},
		{"end date beyond maximum", func(s *recurrence.Settings) {
			d := today.AddDate(2, 0, 0)
			s.End = recurrence.EndCondition{Kind: recurrence.EndOn, Date: &d}
		}, appointment.FlagEndDate},
		{"no date before end", func(s *recurrence.Settings) {
			s.Frequency = recurrence.FrequencyWeek
			s.WeekDays = recurrence.NewWeekdaySet(time.Monday)
			d := today.AddDate(0, 0, 1)
			s.End = recurrence.EndCondition{Kind: recurrence.EndOn, Date: &d}
		}, appointment.FlagEndDate},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := recurrence.DefaultSettings()
			s.Enabled = true
			s.Start = recurrence.StartCondition{Kind: recurrence.StartToday}
			s.End = recurrence.EndCondition{Kind: recurrence.EndNever}
			tt.edit(&s)

			e := Validate(completeDetails(), s, appointment.ModeRecurring, opts())
			want := []appointment.ErrorFlag{tt.flag, appointment.FlagRecurrencePeriod}
			if !reflect.DeepEqual(e.Active(), want) {
				t.Errorf("expected %v, got %v", want, e.Active())
			}
		})
	}
}

func TestValidate_WeeklyNeedsDays(t *testing.T) {
	s := recurrence.DefaultSettings()
	s.Enabled = true
	s.Frequency = recurrence.FrequencyWeek
	s.Start = recurrence.StartCondition{Kind: recurrence.StartToday}
	s.End = recurrence.EndCondition{Kind: recurrence.EndNever}

	e := Validate(completeDetails(), s, appointment.ModeRecurring, opts())
	if !reflect.DeepEqual(e.Active(), []appointment.ErrorFlag{appointment.FlagWeekDays}) {
		t.Errorf("expected only week days error, got %v", e.Active())
	}

	s.WeekDays = recurrence.NewWeekdaySet(time.Monday)
	e = Validate(completeDetails(), s, appointment.ModeRecurring, opts())
	if !Ready(e) {
		t.Errorf("expected ready, got %v", e.Active())
	}
}

func TestValidate_IsDeterministic(t *testing.T) {
	d := completeDetails()
	d.Patient = nil
	s := recurrence.DefaultSettings()
	first := Validate(d, s, appointment.ModeSingle, opts())
	for i := 0; i < 5; i++ {
		if got := Validate(d, s, appointment.ModeSingle, opts()); got != first {
			t.Fatalf("run %d differs: %v vs %v", i, got.Active(), first.Active())
		}
	}
}

func TestMergeKeepsProviderError(t *testing.T) {
	current := appointment.ErrorIndicators{ProviderError: true, PatientError: true}
	merged := Merge(current, appointment.ErrorIndicators{ServiceError: true})
	if !merged.ProviderError {
		t.Error("provider error is not owned by validation")
	}
	if merged.PatientError || !merged.ServiceError {
		t.Errorf("owned flags should follow computed, got %v", merged.Active())
	}
}

func TestRelaxOnlyClears(t *testing.T) {
	current := appointment.ErrorIndicators{PatientError: true}
	relaxed := Relax(current, appointment.ErrorIndicators{ServiceError: true})
	if relaxed.PatientError {
		t.Error("patient error should be cleared")
	}
	if relaxed.ServiceError {
		t.Error("relax must not raise new errors")
	}
}
