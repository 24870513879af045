package editor

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/hackgods/appointment-editor/internal/appointment"
)

func TestSearch_PatientMinChars(t *testing.T) {
	s := &fakeSearcher{results: map[appointment.SearchKind][]appointment.Option{
		appointment.SearchPatient: {*option("Jane Doe")},
	}}
	f, _ := newTestForm(t, testConfig(), s, nil)

	opts, err := f.Search(context.Background(), appointment.SearchPatient, "ja")
	if err != nil || len(opts) != 0 {
		t.Fatalf("expected empty result, got %v %v", opts, err)
	}
	if n := len(s.Calls()); n != 0 {
		t.Fatalf("short query must not reach the searcher, got %d calls", n)
	}

	opts, err = f.Search(context.Background(), appointment.SearchPatient, "jan")
	if err != nil || len(opts) != 1 {
		t.Fatalf("expected one result, got %v %v", opts, err)
	}
}

func TestSearch_ServiceScopedBySpeciality(t *testing.T) {
	cfg := testConfig()
	cfg.EnableSpecialities = true
	s := &fakeSearcher{}
	f, _ := newTestForm(t, cfg, s, nil)

	if _, err := f.Search(context.Background(), appointment.SearchService, "ecg"); err != nil {
		t.Fatalf("search: %v", err)
	}
	cardiology := option("Cardiology")
	_ = f.SelectSpeciality(cardiology)
	if _, err := f.Search(context.Background(), appointment.SearchService, "ecg"); err != nil {
		t.Fatalf("search: %v", err)
	}

	calls := s.Calls()
	if calls[0].scope.SpecialityID != nil {
		t.Fatal("no speciality selected, scope must be empty")
	}
	if calls[1].scope.SpecialityID == nil || *calls[1].scope.SpecialityID != cardiology.ID {
		t.Fatalf("expected scope %s, got %+v", cardiology.ID, calls[1].scope)
	}
}

func TestSearch_ServiceTypeScopedByService(t *testing.T) {
	cfg := testConfig()
	cfg.EnableServiceTypes = true
	s := &fakeSearcher{}
	f, _ := newTestForm(t, cfg, s, nil)
	svc := option("ECG")
	_ = f.SelectService(svc)

	if _, err := f.Search(context.Background(), appointment.SearchServiceType, ""); err != nil {
		t.Fatalf("search: %v", err)
	}
	if sc := s.Calls()[0].scope; sc.ServiceID == nil || *sc.ServiceID != svc.ID {
		t.Fatalf("expected service scope, got %+v", sc)
	}
}

func TestSearch_DisabledKinds(t *testing.T) {
	s := &fakeSearcher{}
	f, _ := newTestForm(t, testConfig(), s, nil)

	for _, kind := range []appointment.SearchKind{appointment.SearchSpeciality, appointment.SearchServiceType} {
		if _, err := f.Search(context.Background(), kind, "abc"); !errors.Is(err, ErrSearchDisabled) {
			t.Fatalf("%s: expected ErrSearchDisabled, got %v", kind, err)
		}
	}
	if len(s.Calls()) != 0 {
		t.Fatal("disabled search must not reach the searcher")
	}
}

func TestSearch_NoSearcher(t *testing.T) {
	f, _ := newTestForm(t, testConfig(), nil, nil)
	if _, err := f.Search(context.Background(), appointment.SearchProvider, "adams"); !errors.Is(err, ErrNoSearcher) {
		t.Fatalf("expected ErrNoSearcher, got %v", err)
	}
}

func TestSearch_StaleResponseIsDropped(t *testing.T) {
	release := make(chan struct{})
	s := &fakeSearcher{
		results: map[appointment.SearchKind][]appointment.Option{appointment.SearchProvider: {*option("Dr. Adams")}},
		wait:    map[string]chan struct{}{"ad": release},
		entered: make(chan string, 2),
	}
	f, _ := newTestForm(t, testConfig(), s, nil)

	errc := make(chan error, 1)
	go func() {
		_, err := f.Search(context.Background(), appointment.SearchProvider, "ad")
		errc <- err
	}()
	<-s.entered

	opts, err := f.Search(context.Background(), appointment.SearchProvider, "adams")
	<-s.entered
	if err != nil || len(opts) != 1 {
		t.Fatalf("latest search should succeed, got %v %v", opts, err)
	}

	close(release)
	if err := <-errc; !errors.Is(err, ErrStaleSearch) {
		t.Fatalf("expected ErrStaleSearch, got %v", err)
	}
}

func TestSearch_ErrorsAreReturned(t *testing.T) {
	s := &fakeSearcher{err: errors.New("timeout")}
	f, _ := newTestForm(t, testConfig(), s, nil)
	if _, err := f.Search(context.Background(), appointment.SearchLocation, "ward"); err == nil {
		t.Fatal("expected searcher error")
	}
}

func TestSearch_DoesNotChangeDetails(t *testing.T) {
	s := &fakeSearcher{results: map[appointment.SearchKind][]appointment.Option{
		appointment.SearchLocation: {*option("Ward 3")},
	}}
	f, _ := newTestForm(t, testConfig(), s, nil)
	_ = f.SelectPatient(option("Jane Doe"))

	before := f.Snapshot()
	if _, err := f.Search(context.Background(), appointment.SearchLocation, "ward"); err != nil {
		t.Fatalf("search: %v", err)
	}
	if after := f.Snapshot(); !reflect.DeepEqual(before, after) {
		t.Fatal("search changed the form")
	}
}
