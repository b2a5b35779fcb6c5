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
package housekeeping

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestAddFuncRunsOnSchedule(t *testing.T) {
	r := New(zap.NewNop())
	var calls int32
	require.NoError(t, r.AddFunc("@every 10ms", func() { atomic.AddInt32(&calls, 1) }))
	r.Start()
	defer r.Stop(time.Second)

	require.Eventually(t, func() bool { return atomic.LoadInt32(&calls) >= 2 }, time.Second, 5*time.Millisecond)
}

func TestJobPanicDoesNotCrashRunner(t *testing.T) {
	r := New(zap.NewNop())
	var calls int32
	require.NoError(t, r.AddFunc("@every 10ms", func() {
		atomic.AddInt32(&calls, 1)
		panic("boom")
	}))
	r.Start()
	defer r.Stop(time.Second)

	require.Eventually(t, func() bool { return atomic.LoadInt32(&calls) >= 2 }, time.Second, 5*time.Millisecond)
}

func TestStopWaitsForInFlightJob(t *testing.T) {
	r := New(zap.NewNop())
	started := make(chan struct{}, 1)
	require.NoError(t, r.AddFunc("@every 10ms", func() {
		select {
		case started <- struct{}{}:
		default:
		}
		time.Sleep(50 * time.Millisecond)
	}))
	r.Start()
	<-started
	r.Stop(time.Second)
}
