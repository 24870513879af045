package editor

import (
	"github.com/google/uuid"

	"github.com/hackgods/appointment-editor/internal/appointment"
)

// AddProvider adds o as a pending provider. Selecting a provider that is
// already in the list marks it ACCEPTED. When the list is full the providers
// are left untouched and the provider error is raised until the configured
// timeout clears it.
func (f *Form) AddProvider(o appointment.Option) error {
	return f.mutate(func() error {
		full := len(appointment.ValidProviders(f.details.Providers)) >= f.cfg.MaxAppointmentProviders
		for i, p := range f.details.Providers {
			if p.ID == o.ID {
				// A cancelled provider coming back counts against the limit again.
				if p.Response == appointment.ResponseCancelled && full {
					f.raiseProviderErrorLocked()
					return nil
				}
				providers := append([]appointment.Provider(nil), f.details.Providers...)
				providers[i].Response = appointment.ResponseAccepted
				f.applyDetailsLocked(appointment.DetailsPatch{Providers: appointment.Set(providers)})
				return nil
			}
		}

		if full {
			f.raiseProviderErrorLocked()
			return nil
		}

		providers := append(append([]appointment.Provider(nil), f.details.Providers...),
			appointment.Provider{Option: o, Response: appointment.ResponsePending})
		f.applyDetailsLocked(appointment.DetailsPatch{Providers: appointment.Set(providers)})
		return nil
	})
}

func (f *Form) RemoveProvider(id uuid.UUID) error {
	return f.mutate(func() error {
		providers := make([]appointment.Provider, 0, len(f.details.Providers))
		for _, p := range f.details.Providers {
			if p.ID != id {
				providers = append(providers, p)
			}
		}
		f.applyDetailsLocked(appointment.DetailsPatch{Providers: appointment.Set(providers)})
		return nil
	})
}

// raiseProviderErrorLocked sets the flag and replaces any pending clear timer,
// so at most one timer can clear the flag.
func (f *Form) raiseProviderErrorLocked() {
	f.errors.ProviderError = true
	f.cancelProviderTimerLocked()

	gen := f.providerGen
	f.providerTimer = f.clock.AfterFunc(f.cfg.ProviderErrorTimeout, func() {
		f.clearProviderError(gen)
	})
	f.log.Debug().Int("max_providers", f.cfg.MaxAppointmentProviders).Msg("provider limit reached")
}

// cancelProviderTimerLocked stops the pending timer. Bumping the generation
// also disarms a timer whose callback is already running.
func (f *Form) cancelProviderTimerLocked() {
	if f.providerTimer != nil {
		f.providerTimer.Stop()
		f.providerTimer = nil
	}
	f.providerGen++
}

func (f *Form) clearProviderError(gen uint64) {
	f.mu.Lock()
	if gen != f.providerGen {
		f.mu.Unlock()
		return
	}
	f.errors.ProviderError = false
	f.providerTimer = nil
	snap := f.snapshotLocked()
	f.mu.Unlock()

	f.notify(snap)
}
