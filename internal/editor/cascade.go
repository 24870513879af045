package editor

import "github.com/hackgods/appointment-editor/internal/appointment"

// dependents lists, per field, the fields whose value only makes sense for
// the current value of that field. Changing a field clears its dependents,
// transitively.
var dependents = map[appointment.FieldName][]appointment.FieldName{
	appointment.FieldSpeciality: {appointment.FieldService, appointment.FieldLocation},
	appointment.FieldService:    {appointment.FieldServiceType},
}

// cascade returns the fields to clear after the fields in changed were
// written. Fields in changed are never cleared.
func cascade(changed []appointment.FieldName) []appointment.FieldName {
	written := make(map[appointment.FieldName]bool, len(changed))
	for _, f := range changed {
		written[f] = true
	}

	seen := make(map[appointment.FieldName]bool)
	var out []appointment.FieldName
	queue := append([]appointment.FieldName(nil), changed...)
	for len(queue) > 0 {
		f := queue[0]
		queue = queue[1:]
		for _, dep := range dependents[f] {
			if seen[dep] {
				continue
			}
			seen[dep] = true
			queue = append(queue, dep)
			if !written[dep] {
				out = append(out, dep)
			}
		}
	}
	return out
}
