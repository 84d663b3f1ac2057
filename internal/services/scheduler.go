// Package services runs the periodic housekeeping jobs of the server and
// keeps their status for the admin API.
package services

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/znwiqn/anidao/internal/apperr"
)

// Job performs one run of a service and reports how many items it touched.
type Job func(ctx context.Context) (int, error)

// ServiceStatus represents the current state of a background service
type ServiceStatus struct {
	Name           string    `json:"name"`
	Description    string    `json:"description"`
	Enabled        bool      `json:"enabled"`
	Running        bool      `json:"running"`
	Interval       string    `json:"interval"`
	LastRun        time.Time `json:"last_run"`
	NextRun        time.Time `json:"next_run"`
	LastError      string    `json:"last_error,omitempty"`
	RunCount       int64     `json:"run_count"`
	ItemsProcessed int       `json:"items_processed"`
}

type service struct {
	status   ServiceStatus
	interval time.Duration
	job      Job
	run      sync.Mutex
}

// ServiceScheduler manages background services and their status
type ServiceScheduler struct {
	mu       sync.RWMutex
	services map[string]*service
	now      func() time.Time
}

// Service name constants
const (
	ServiceSessionSweep  = "bot_session_sweep"
	ServiceFilterCache   = "filter_cache_cleanup"
	ServiceDatabaseProbe = "database_probe"
)

func NewServiceScheduler() *ServiceScheduler {
	return &ServiceScheduler{
		services: make(map[string]*service),
		now:      time.Now,
	}
}

// Register adds a service. Registering a name twice replaces the first one.
func (s *ServiceScheduler) Register(name, description string, interval time.Duration, job Job) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.services[name] = &service{
		status: ServiceStatus{
			Name:        name,
			Description: description,
			Enabled:     true,
			Interval:    formatDuration(interval),
			NextRun:     s.now().Add(interval),
		},
		interval: interval,
		job:      job,
	}
}

// Start launches one ticker per registered service and returns. Services stop
// when ctx is done.
func (s *ServiceScheduler) Start(ctx context.Context) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for name, svc := range s.services {
		go s.loop(ctx, name, svc.interval)
	}
}

func (s *ServiceScheduler) loop(ctx context.Context, name string, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if !s.enabled(name) {
				continue
			}
			if err := s.RunOnce(ctx, name); err != nil {
				log.WithError(err).WithField("service", name).Warn("background service failed")
			}
		}
	}
}

// RunOnce runs the named service now. Concurrent runs of one service are
// serialized.
func (s *ServiceScheduler) RunOnce(ctx context.Context, name string) error {
	s.mu.RLock()
	svc, ok := s.services[name]
	s.mu.RUnlock()
	if !ok {
		return apperr.NotFound(fmt.Sprintf("Service %s not found", name))
	}

	svc.run.Lock()
	defer svc.run.Unlock()

	s.markRunning(svc)
	n, err := svc.job(ctx)
	s.markComplete(svc, n, err)

	if err != nil {
		return errors.Wrapf(err, "service %s", name)
	}
	log.WithFields(log.Fields{"service": name, "items": n}).Debug("background service finished")
	return nil
}

func (s *ServiceScheduler) markRunning(svc *service) {
	s.mu.Lock()
	defer s.mu.Unlock()
	svc.status.Running = true
}

func (s *ServiceScheduler) markComplete(svc *service, processed int, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	svc.status.Running = false
	svc.status.LastRun = now
	svc.status.NextRun = now.Add(svc.interval)
	svc.status.RunCount++
	svc.status.ItemsProcessed = processed
	if err != nil {
		svc.status.LastError = err.Error()
	} else {
		svc.status.LastError = ""
	}
}

func (s *ServiceScheduler) enabled(name string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	svc, ok := s.services[name]
	return ok && svc.status.Enabled
}

// GetStatus returns a copy of the status of a specific service
func (s *ServiceScheduler) GetStatus(name string) (ServiceStatus, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if svc, ok := s.services[name]; ok {
		return svc.status, true
	}
	return ServiceStatus{}, false
}

// GetAllStatus returns the status of all services ordered by name.
func (s *ServiceScheduler) GetAllStatus() []ServiceStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()

	statuses := make([]ServiceStatus, 0, len(s.services))
	for _, svc := range s.services {
		statuses = append(statuses, svc.status)
	}
	sort.Slice(statuses, func(i, j int) bool { return statuses[i].Name < statuses[j].Name })
	return statuses
}

// SetEnabled pauses or resumes the ticker runs of a service. Manual runs
// still work while paused.
func (s *ServiceScheduler) SetEnabled(name string, enabled bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	svc, ok := s.services[name]
	if !ok {
		return apperr.NotFound(fmt.Sprintf("Service %s not found", name))
	}
	svc.status.Enabled = enabled
	return nil
}

// formatDuration renders an interval as "1 day", "6 hours", "30 minutes".
func formatDuration(d time.Duration) string {
	unit := func(n int, name string) string {
		if n == 1 {
			return "1 " + name
		}
		return fmt.Sprintf("%d %ss", n, name)
	}

	switch {
	case d >= 24*time.Hour && d%(24*time.Hour) == 0:
		return unit(int(d/(24*time.Hour)), "day")
	case d >= time.Hour && d%time.Hour == 0:
		return unit(int(d/time.Hour), "hour")
	case d >= time.Minute && d%time.Minute == 0:
		return unit(int(d/time.Minute), "minute")
	}
	return d.String()
}
