/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package editor

import (
	"sync"
	"time"
)

// FrameInterval is the nominal frame period used by TimerFrames.
const FrameInterval = 16 * time.Millisecond

// FrameRequester schedules fn to run once before the next frame is drawn.
// Implementations must invoke fn on the goroutine that drives the editor.
type FrameRequester interface {
	RequestFrame(fn func())
}

// ImmediateFrames runs every request synchronously. Useful for hosts without a frame clock.
type ImmediateFrames struct{}

func (ImmediateFrames) RequestFrame(fn func()) { fn() }

// ManualFrames queues requests until Tick is called. It backs headless use and tests.
type ManualFrames struct {
	queue []func()
}

func (m *ManualFrames) RequestFrame(fn func()) { m.queue = append(m.queue, fn) }

// Pending returns the number of queued callbacks.
func (m *ManualFrames) Pending() int { return len(m.queue) }

// Tick runs the callbacks queued before the call and reports how many ran.
func (m *ManualFrames) Tick() int {
	q := m.queue
	m.queue = nil
	for _, fn := range q {
		fn()
	}
	return len(q)
}

// TimerFrames fires queued callbacks roughly once per Interval. Post hands the
// callback back to the UI goroutine (fyne.Do in the desktop app); when nil the
// callback runs on the timer goroutine, which is only safe for hosts that lock around the editor.
type TimerFrames struct {
	Interval time.Duration
	Post     func(func())

	mu    sync.Mutex
	queue []func()
	timer *time.Timer
}

func NewTimerFrames(post func(func())) *TimerFrames {
	return &TimerFrames{Interval: FrameInterval, Post: post}
}

func (t *TimerFrames) RequestFrame(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.queue = append(t.queue, fn)
	if t.timer != nil {
		return
	}
	d := t.Interval
	if d <= 0 {
		d = FrameInterval
	}
	t.timer = time.AfterFunc(d, t.fire)
}

func (t *TimerFrames) fire() {
	t.mu.Lock()
	q := t.queue
	t.queue = nil
	t.timer = nil
	t.mu.Unlock()
	run := func() {
		for _, fn := range q {
			fn()
		}
	}
	if t.Post != nil {
		t.Post(run)
		return
	}
	run()
}

// Stop cancels a scheduled frame and drops queued callbacks.
func (t *TimerFrames) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.timer != nil {
		t.timer.Stop()
		t.timer = nil
	}
	t.queue = nil
}
