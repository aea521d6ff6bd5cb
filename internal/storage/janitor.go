package storage

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
)

// StartJanitor arranca el barrido periódico de la cola de borrado en Redis.
// Retorna nil cuando no hay Redis: en ese caso cada imagen depende de su
// timer en memoria.
func (s *ImageStore) StartJanitor() *cron.Cron {
	if s.redis == nil {
		return nil
	}

	c := cron.New()
	c.Schedule(cron.Every(time.Minute), cron.FuncJob(s.sweep))
	c.Start()

	s.logger.Info("Image cleanup janitor started")

	return c
}

// sweep borra los archivos cuyo TTL ya venció y los saca de la cola. Un
// borrado fallido queda en la cola para el próximo barrido.
func (s *ImageStore) sweep() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	files, err := s.redis.DueCleanups(ctx, time.Now())
	if err != nil {
		s.logger.WithError(err).Warn("Error reading image cleanup queue")
		return
	}

	for _, fileName := range files {
		if err := s.Remove(ctx, fileName); err != nil {
			s.logger.WithError(err).WithField("file", fileName).Warn("Error deleting expired image")
			continue
		}

		if err := s.redis.RemoveCleanup(ctx, fileName); err != nil {
			s.logger.WithError(err).WithField("file", fileName).Warn("Error dequeueing cleaned image")
		}
	}
}
