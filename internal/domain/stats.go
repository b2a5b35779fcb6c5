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

package domain

import (
	"sync"
	"sync/atomic"
)

const (
	costWindowDays  = 14
	chartWindowDays = 14
	tokenHours      = 30 * 24
)

// Statistics holds rolling aggregate counters: cost per project, tokens
// per hour for a 30-day window, message counts per day, and runtime per
// day. Today's cumulative runtime is additionally exposed as a
// lock-free atomic so callers can poll it without contending for the
// store's reader-writer lock.
type Statistics struct {
	mu sync.Mutex

	costByProject     map[string]float64
	tokensByHourEpoch map[int64]int64
	messagesByDay     map[string]int64
	runtimeByDay      map[string]int64

	todayRuntimeMs atomic.Int64
}

// NewStatistics builds an empty Statistics tracker.
func NewStatistics() *Statistics {
	return &Statistics{
		costByProject:     make(map[string]float64),
		tokensByHourEpoch: make(map[int64]int64),
		messagesByDay:     make(map[string]int64),
		runtimeByDay:      make(map[string]int64),
	}
}

// AddCost accumulates spend for a project.
func (s *Statistics) AddCost(projectAddress string, usd float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.costByProject[projectAddress] += usd
}

// CostWindow returns total cost per project, limited to the most recent
// costWindowDays (the caller is responsible for having evicted or never
// recorded cost outside the window; this tracker does not itself bucket
// by day since cost is attributed per-project, not per-day).
func (s *Statistics) CostWindow() map[string]float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]float64, len(s.costByProject))
	for k, v := range s.costByProject {
		out[k] = v
	}
	return out
}

// AddTokens accumulates a token count into the bucket for hourEpoch
// (unix seconds truncated to the hour) and prunes buckets older than
// tokenHours hours relative to hourEpoch.
func (s *Statistics) AddTokens(hourEpoch int64, tokens int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokensByHourEpoch[hourEpoch] += tokens
	cutoff := hourEpoch - int64(tokenHours)*3600
	for h := range s.tokensByHourEpoch {
		if h < cutoff {
			delete(s.tokensByHourEpoch, h)
		}
	}
}

// TokensByHour returns a copy of the hour->token-count map.
func (s *Statistics) TokensByHour() map[int64]int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[int64]int64, len(s.tokensByHourEpoch))
	for k, v := range s.tokensByHourEpoch {
		out[k] = v
	}
	return out
}

// AddMessage increments the message count for dayKey (caller-formatted,
// e.g. "2026-07-30").
func (s *Statistics) AddMessage(dayKey string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messagesByDay[dayKey]++
}

// AddRuntime accumulates LLM runtime milliseconds for dayKey, and if
// dayKey is today, also bumps the lock-free today counter.
func (s *Statistics) AddRuntime(dayKey string, isToday bool, ms int64) {
	s.mu.Lock()
	s.runtimeByDay[dayKey] += ms
	s.mu.Unlock()
	if isToday {
		s.todayRuntimeMs.Add(ms)
	}
}

// TodayRuntimeMs reads the lock-free today's-runtime counter.
func (s *Statistics) TodayRuntimeMs() int64 { return s.todayRuntimeMs.Load() }

// ResetTodayRuntime zeroes the today counter (called once per day
// rollover by periodic housekeeping).
func (s *Statistics) ResetTodayRuntime() { s.todayRuntimeMs.Store(0) }

// MessagesByDay returns a copy of the day->count map.
func (s *Statistics) MessagesByDay() map[string]int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]int64, len(s.messagesByDay))
	for k, v := range s.messagesByDay {
		out[k] = v
	}
	return out
}

// RuntimeByDay returns a copy of the day->runtime-ms map.
func (s *Statistics) RuntimeByDay() map[string]int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]int64, len(s.runtimeByDay))
	for k, v := range s.runtimeByDay {
		out[k] = v
	}
	return out
}
