package service

import "time"

// Clock override hooks for deterministic tests. Compiled into test binaries
// only; the production API keeps time.Now.

func (s *VisitService) SetClock(now func() time.Time) { s.now = now }

func (s *PlaceService) SetClock(now func() time.Time) { s.now = now }

func (s *DiscoveryService) SetClock(now func() time.Time) { s.now = now }

func (s *RoutineService) SetClock(now func() time.Time) { s.now = now }
