package editor

import (
	"context"
	"unicode/utf8"

	"github.com/hackgods/appointment-editor/internal/appointment"
)

// Searcher backs the editor's search widgets.
type Searcher interface {
	Search(ctx context.Context, kind appointment.SearchKind, query string, scope appointment.SearchScope) ([]appointment.Option, error)
}

// Search asks the collaborator for options. Each call supersedes earlier calls
// of the same kind: a response that arrives after a newer request was issued
// returns ErrStaleSearch. Search never changes the details.
func (f *Form) Search(ctx context.Context, kind appointment.SearchKind, query string) ([]appointment.Option, error) {
	if f.searcher == nil {
		return nil, ErrNoSearcher
	}

	f.mu.Lock()
	switch {
	case kind == appointment.SearchSpeciality && !f.cfg.EnableSpecialities,
		kind == appointment.SearchServiceType && !f.cfg.EnableServiceTypes:
		f.mu.Unlock()
		return nil, ErrSearchDisabled
	}
	f.searchSeq[kind]++
	ticket := f.searchSeq[kind]
	scope := f.scopeLocked(kind)
	f.mu.Unlock()

	if kind == appointment.SearchPatient && utf8.RuneCountInString(query) < f.cfg.MinCharLengthPatientSearch {
		return []appointment.Option{}, nil
	}

	opts, err := f.searcher.Search(ctx, kind, query, scope)

	f.mu.Lock()
	current := f.searchSeq[kind] == ticket
	f.mu.Unlock()
	if !current {
		f.log.Debug().Str("kind", string(kind)).Str("query", query).Msg("dropping stale search response")
		return nil, ErrStaleSearch
	}
	if err != nil {
		return nil, err
	}
	if opts == nil {
		opts = []appointment.Option{}
	}
	return opts, nil
}

func (f *Form) scopeLocked(kind appointment.SearchKind) appointment.SearchScope {
	var scope appointment.SearchScope
	switch kind {
	case appointment.SearchService:
		if f.cfg.EnableSpecialities && f.details.Speciality != nil {
			id := f.details.Speciality.ID
			scope.SpecialityID = &id
		}
	case appointment.SearchServiceType:
		if f.details.Service != nil {
			id := f.details.Service.ID
			scope.ServiceID = &id
		}
	}
	return scope
}
