package editor

import (
	"sort"
	"testing"

	"github.com/hackgods/appointment-editor/internal/appointment"
)

func sorted(fs []appointment.FieldName) []string {
	out := make([]string, len(fs))
	for i, f := range fs {
		out[i] = string(f)
	}
	sort.Strings(out)
	return out
}

func TestCascade(t *testing.T) {
	cases := []struct {
		name    string
		changed []appointment.FieldName
		want    []string
	}{
		{"speciality is transitive", []appointment.FieldName{appointment.FieldSpeciality}, []string{"location", "service", "service_type"}},
		{"service", []appointment.FieldName{appointment.FieldService}, []string{"service_type"}},
		{"written fields are kept", []appointment.FieldName{appointment.FieldSpeciality, appointment.FieldService}, []string{"location", "service_type"}},
		{"no dependents", []appointment.FieldName{appointment.FieldNotes, appointment.FieldPatient}, []string{}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := sorted(cascade(tc.changed))
			if len(got) != len(tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, got)
			}
			for i := range got {
				if got[i] != tc.want[i] {
					t.Fatalf("expected %v, got %v", tc.want, got)
				}
			}
		})
	}
}
