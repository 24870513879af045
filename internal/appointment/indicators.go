package appointment

// ErrorFlag names one inline error message of the editor.
type ErrorFlag string

const (
	FlagPatient          ErrorFlag = "patient_error"
	FlagService          ErrorFlag = "service_error"
	FlagDate             ErrorFlag = "date_error"
	FlagStartTime        ErrorFlag = "start_time_error"
	FlagEndTime          ErrorFlag = "end_time_error"
	FlagTimeRange        ErrorFlag = "time_range_error"
	FlagStartDate        ErrorFlag = "start_date_error"
	FlagEndType          ErrorFlag = "end_type_error"
	FlagEndDate          ErrorFlag = "end_date_error"
	FlagOccurrences      ErrorFlag = "occurrences_error"
	FlagPeriod           ErrorFlag = "period_error"
	FlagWeekDays         ErrorFlag = "week_days_error"
	FlagRecurrencePeriod ErrorFlag = "recurrence_period_error"
	FlagProvider         ErrorFlag = "provider_error"
)

// AllFlags is every flag in display order.
var AllFlags = []ErrorFlag{
	FlagPatient, FlagService, FlagDate, FlagStartTime, FlagEndTime, FlagTimeRange,
	FlagStartDate, FlagEndType, FlagEndDate, FlagOccurrences, FlagPeriod,
	FlagWeekDays, FlagRecurrencePeriod, FlagProvider,
}

type ErrorIndicators struct {
	PatientError          bool `json:"patient_error"`
	ServiceError          bool `json:"service_error"`
	DateError             bool `json:"date_error"`
	StartTimeError        bool `json:"start_time_error"`
	EndTimeError          bool `json:"end_time_error"`
	TimeRangeError        bool `json:"time_range_error"`
	StartDateError        bool `json:"start_date_error"`
	EndTypeError          bool `json:"end_type_error"`
	EndDateError          bool `json:"end_date_error"`
	OccurrencesError      bool `json:"occurrences_error"`
	PeriodError           bool `json:"period_error"`
	WeekDaysError         bool `json:"week_days_error"`
	RecurrencePeriodError bool `json:"recurrence_period_error"`
	ProviderError         bool `json:"provider_error"`
}

func (e *ErrorIndicators) ref(f ErrorFlag) *bool {
	switch f {
	case FlagPatient:
		return &e.PatientError
	case FlagService:
		return &e.ServiceError
	case FlagDate:
		return &e.DateError
	case FlagStartTime:
		return &e.StartTimeError
	case FlagEndTime:
		return &e.EndTimeError
	case FlagTimeRange:
		return &e.TimeRangeError
	case FlagStartDate:
		return &e.StartDateError
	case FlagEndType:
		return &e.EndTypeError
	case FlagEndDate:
		return &e.EndDateError
	case FlagOccurrences:
		return &e.OccurrencesError
	case FlagPeriod:
		return &e.PeriodError
	case FlagWeekDays:
		return &e.WeekDaysError
	case FlagRecurrencePeriod:
		return &e.RecurrencePeriodError
	case FlagProvider:
		return &e.ProviderError
	}
	return nil
}

func (e ErrorIndicators) Get(f ErrorFlag) bool {
	if p := e.ref(f); p != nil {
		return *p
	}
	return false
}

// Set ignores unknown flags.
func (e *ErrorIndicators) Set(f ErrorFlag, v bool) {
	if p := e.ref(f); p != nil {
		*p = v
	}
}

// Active lists the raised flags in display order.
func (e ErrorIndicators) Active() []ErrorFlag {
	var out []ErrorFlag
	for _, f := range AllFlags {
		if e.Get(f) {
			out = append(out, f)
		}
	}
	return out
}

func (e ErrorIndicators) Count() int {
	return len(e.Active())
}

func (e ErrorIndicators) Any() bool {
	return e.Count() > 0
}

// ErrorPatch is a partial update of ErrorIndicators.
type ErrorPatch map[ErrorFlag]bool

func (p ErrorPatch) Apply(e ErrorIndicators) ErrorIndicators {
	for f, v := range p {
		e.Set(f, v)
	}
	return e
}
