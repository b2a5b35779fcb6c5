// Copyright 2026 Teradata
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//	http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package housekeeping runs the façade's periodic background jobs (the
// stale project-status sweep, the state-cache snapshot and the daily
// today-runtime reset) on a
// robfig/cron engine, mirroring the teacher's pkg/scheduler.Scheduler
// lifecycle: Start begins the cron engine, Stop signals it and waits
// for in-flight jobs to finish.
package housekeeping

import (
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Runner owns a single cron engine for the façade's background jobs.
type Runner struct {
	engine *cron.Cron
	logger *zap.Logger
}

// New builds a Runner with no jobs registered yet.
func New(logger *zap.Logger) *Runner {
	return &Runner{engine: cron.New(), logger: logger}
}

// AddFunc registers job under a cron spec ("@every 1m", "*/5 * * * *",
// ...). Must be called before Start.
func (r *Runner) AddFunc(spec string, job func()) error {
	_, err := r.engine.AddFunc(spec, func() {
		defer func() {
			if rec := recover(); rec != nil {
				r.logger.Error("housekeeping: job panicked", zap.Any("recover", rec))
			}
		}()
		job()
	})
	return err
}

// Start begins running registered jobs on their schedules.
func (r *Runner) Start() {
	r.engine.Start()
}

// Stop signals the cron engine to stop accepting new runs and blocks
// until any jobs already in flight complete or timeout elapses.
func (r *Runner) Stop(timeout time.Duration) {
	ctx := r.engine.Stop()
	select {
	case <-ctx.Done():
	case <-time.After(timeout):
		r.logger.Warn("housekeeping: stop timed out waiting for in-flight jobs")
	}
}
