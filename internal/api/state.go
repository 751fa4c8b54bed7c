package api

import "sync/atomic"

// ApplicationState backs the liveness and readiness probes.
type ApplicationState struct {
	alive atomic.Bool
	ready atomic.Bool
}

// NewApplicationState returns a state that is alive but not yet ready.
func NewApplicationState() *ApplicationState {
	s := &ApplicationState{}
	s.alive.Store(true)
	return s
}

func (s *ApplicationState) Alive() bool { return s.alive.Load() }
func (s *ApplicationState) Ready() bool { return s.ready.Load() }

func (s *ApplicationState) SetAlive(alive bool) { s.alive.Store(alive) }
func (s *ApplicationState) SetReady(ready bool) { s.ready.Store(ready) }
