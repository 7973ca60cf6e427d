package memory

import (
	"fmt"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
)

// Autosaver periodically flushes a dirty store to disk during long
// interactive sessions, so a crash loses at most one interval of turns.
type Autosaver struct {
	store *Store
	cron  *cron.Cron
}

// NewAutosaver creates an autosaver with the given cron spec
// (e.g. "@every 2m").
func NewAutosaver(store *Store, spec string) (*Autosaver, error) {
	if store == nil {
		return nil, fmt.Errorf("store is required")
	}

	c := cron.New()
	_, err := c.AddFunc(spec, func() {
		if err := store.SaveIfDirty(); err != nil {
			log.Warn().Err(err).Str("path", store.Path()).Msg("Memory autosave failed")
		}
	})
	if err != nil {
		return nil, fmt.Errorf("invalid autosave schedule %q: %w", spec, err)
	}

	return &Autosaver{store: store, cron: c}, nil
}

// Start begins the autosave schedule.
func (a *Autosaver) Start() {
	a.cron.Start()
}

// Stop halts the schedule and performs a final flush.
func (a *Autosaver) Stop() error {
	ctx := a.cron.Stop()
	<-ctx.Done()
	return a.store.SaveIfDirty()
}
