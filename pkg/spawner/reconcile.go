package spawner

import (
	"context"
	"fmt"
	"time"

	swarmtypes "github.com/docker/docker/api/types/swarm"
	"github.com/sirupsen/logrus"
)

// Health is the verdict of a poll.
type Health int

const (
	// Unhealthy means no task of the service is running.
	Unhealthy Health = iota
	// Healthy means a running task exists.
	Healthy
)

func (h Health) String() string {
	if h == Healthy {
		return "healthy"
	}
	return "unhealthy"
}

// Poll reconciles the current task list into a health verdict. The whole
// list is walked every call: a rejected task anywhere removes the service
// (self-heal) even when an unrelated running task exists. An empty list
// is logged and reported unhealthy.
func (s *Spawner) Poll(ctx context.Context) (Health, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	tasks, err := s.api.ListTasks(ctx, s.serviceName)
	if err != nil {
		return Unhealthy, fmt.Errorf("task listesi alınamadı (%s): %w", s.serviceName, err)
	}
	if len(tasks) == 0 {
		s.logger.WithField("service", s.serviceName).Warn("Service için task bulunamadı")
		return Unhealthy, nil
	}

	running := false
	for _, task := range tasks {
		switch task.Status.State {
		case swarmtypes.TaskStateRunning:
			s.logger.WithFields(logrus.Fields{
				"task":       shortID(task.ID),
				"service_id": shortID(s.serviceID),
				"state":      task.Status.State,
			}).Debug("Task çalışıyor")
			// At most one task is expected to run at a time.
			running = true
		case swarmtypes.TaskStateRejected:
			s.logger.WithFields(logrus.Fields{
				"task":       shortID(task.ID),
				"service_id": shortID(s.serviceID),
				"state":      task.Status.State,
				"error":      task.Status.Err,
			}).Error("Task reddedildi, service kaldırılıyor")
			s.stop(ctx)
		}
	}

	if running {
		return Healthy, nil
	}
	return Unhealthy, nil
}

// waitForRunningTasks polls the task list until a task runs. It exits
// false on a rejected task or when the attempt budget is spent; an
// iteration that saw a preparing task does not count against the budget.
func (s *Spawner) waitForRunningTasks(ctx context.Context) bool {
	attempt := 0
	var lastErr error
	sawTask := false
	for {
		if attempt > s.opts.MaxWaitAttempts {
			exhausted := s.logger.WithFields(logrus.Fields{
				"service":  s.serviceName,
				"attempts": attempt,
				"saw_task": sawTask,
			})
			if lastErr != nil {
				exhausted = exhausted.WithError(lastErr)
			}
			exhausted.Warn("Bekleme hakkı tükendi")
			return false
		}

		tasks, err := s.api.ListTasks(ctx, s.serviceName)
		if err != nil {
			lastErr = err
			s.logger.WithError(err).WithField("service", s.serviceName).Warn("Task listesi alınamadı")
		}
		if len(tasks) > 0 {
			sawTask = true
		}

		preparing := false
		for _, task := range tasks {
			state := task.Status.State
			s.logger.WithFields(logrus.Fields{
				"service": s.serviceName,
				"state":   state,
			}).Info("Service bekleniyor")

			switch state {
			case swarmtypes.TaskStateRunning:
				return true
			case swarmtypes.TaskStatePreparing:
				preparing = true
			case swarmtypes.TaskStateRejected:
				return false
			}
		}

		if !preparing {
			attempt++
		}

		select {
		case <-ctx.Done():
			return false
		case <-time.After(s.opts.WaitInterval):
		}
	}
}
