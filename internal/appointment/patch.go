package appointment

import (
	"time"
)

// Optional marks a patch field as present. The zero value is absent.
type Optional[T any] struct {
	set   bool
	value T
}

func Set[T any](v T) Optional[T] {
	return Optional[T]{set: true, value: v}
}

func (o Optional[T]) IsSet() bool { return o.set }

func (o Optional[T]) Value() T { return o.value }

type FieldName string

const (
	FieldPatient     FieldName = "patient"
	FieldSpeciality  FieldName = "speciality"
	FieldService     FieldName = "service"
	FieldServiceType FieldName = "service_type"
	FieldLocation    FieldName = "location"
	FieldProviders   FieldName = "providers"
	FieldDate        FieldName = "date"
	FieldStartTime   FieldName = "start_time"
	FieldEndTime     FieldName = "end_time"
	FieldNotes       FieldName = "notes"
)

// DetailsPatch is a partial update of Details. Fields left absent are not
// touched; a present nil clears the field.
type DetailsPatch struct {
	Patient     Optional[*Option]
	Speciality  Optional[*Option]
	Service     Optional[*Option]
	ServiceType Optional[*Option]
	Location    Optional[*Option]
	Providers   Optional[[]Provider]
	Date        Optional[*time.Time]
	StartTime   Optional[*TimeOfDay]
	EndTime     Optional[*TimeOfDay]
	Notes       Optional[string]
}

// Fields lists the fields present in p.
func (p DetailsPatch) Fields() []FieldName {
	var fs []FieldName
	add := func(ok bool, f FieldName) {
		if ok {
			fs = append(fs, f)
		}
	}
	add(p.Patient.IsSet(), FieldPatient)
	add(p.Speciality.IsSet(), FieldSpeciality)
	add(p.Service.IsSet(), FieldService)
	add(p.ServiceType.IsSet(), FieldServiceType)
	add(p.Location.IsSet(), FieldLocation)
	add(p.Providers.IsSet(), FieldProviders)
	add(p.Date.IsSet(), FieldDate)
	add(p.StartTime.IsSet(), FieldStartTime)
	add(p.EndTime.IsSet(), FieldEndTime)
	add(p.Notes.IsSet(), FieldNotes)
	return fs
}

// Has reports whether f is present in p.
func (p DetailsPatch) Has(f FieldName) bool {
	for _, pf := range p.Fields() {
		if pf == f {
			return true
		}
	}
	return false
}

// Apply shallow merges p into d.
func (p DetailsPatch) Apply(d Details) Details {
	out := d.Clone()
	if p.Patient.IsSet() {
		out.Patient = p.Patient.Value()
	}
	if p.Speciality.IsSet() {
		out.Speciality = p.Speciality.Value()
	}
	if p.Service.IsSet() {
		out.Service = p.Service.Value()
	}
	if p.ServiceType.IsSet() {
		out.ServiceType = p.ServiceType.Value()
	}
	if p.Location.IsSet() {
		out.Location = p.Location.Value()
	}
	if p.Providers.IsSet() {
		out.Providers = append([]Provider(nil), p.Providers.Value()...)
	}
	if p.Date.IsSet() {
		out.Date = p.Date.Value()
	}
	if p.StartTime.IsSet() {
		out.StartTime = p.StartTime.Value()
	}
	if p.EndTime.IsSet() {
		out.EndTime = p.EndTime.Value()
	}
	if p.Notes.IsSet() {
		out.Notes = p.Notes.Value()
	}
	return out
}

// Clear returns d with field f reset to its empty value.
func Clear(d Details, f FieldName) Details {
	switch f {
	case FieldPatient:
		d.Patient = nil
	case FieldSpeciality:
		d.Speciality = nil
	case FieldService:
		d.Service = nil
	case FieldServiceType:
		d.ServiceType = nil
	case FieldLocation:
		d.Location = nil
	case FieldProviders:
		d.Providers = nil
	case FieldDate:
		d.Date = nil
	case FieldStartTime:
		d.StartTime = nil
	case FieldEndTime:
		d.EndTime = nil
	case FieldNotes:
		d.Notes = ""
	}
	return d
}
