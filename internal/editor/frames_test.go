/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package editor

import (
	"testing"
	"time"

	"idcardstudio/internal/domain"
	"idcardstudio/internal/vector"
)

func TestManualFramesTick(t *testing.T) {
	var m ManualFrames
	n := 0
	m.RequestFrame(func() { n++ })
	m.RequestFrame(func() { n++; m.RequestFrame(func() { n += 10 }) })
	if ran := m.Tick(); ran != 2 || n != 2 {
		t.Fatalf("tick ran %d, n=%d", ran, n)
	}
	if m.Pending() != 1 {
		t.Fatalf("callbacks queued during a tick belong to the next frame")
	}
	m.Tick()
	if n != 12 {
		t.Fatalf("n = %d", n)
	}
}

func TestImmediateFrames(t *testing.T) {
	ran := false
	ImmediateFrames{}.RequestFrame(func() { ran = true })
	if !ran {
		t.Fatalf("callback not run")
	}
}

func TestTimerFramesBatchesAndPosts(t *testing.T) {
	posted := make(chan func(), 4)
	tf := NewTimerFrames(func(fn func()) { posted <- fn })
	tf.Interval = time.Millisecond
	n := 0
	tf.RequestFrame(func() { n++ })
	tf.RequestFrame(func() { n++ })
	select {
	case fn := <-posted:
		fn()
	case <-time.After(time.Second):
		t.Fatalf("frame never fired")
	}
	if n != 2 {
		t.Fatalf("n = %d, want both callbacks in one frame", n)
	}
	select {
	case <-posted:
		t.Fatalf("unexpected second frame")
	case <-time.After(20 * time.Millisecond):
	}
}

func TestTimerFramesStop(t *testing.T) {
	posted := make(chan func(), 1)
	tf := &TimerFrames{Interval: 50 * time.Millisecond, Post: func(fn func()) { posted <- fn }}
	tf.RequestFrame(func() {})
	tf.Stop()
	select {
	case <-posted:
		t.Fatalf("stopped frame fired")
	case <-time.After(100 * time.Millisecond):
	}
}

func TestEditorThrottlesWithTimerFrames(t *testing.T) {
	posted := make(chan func(), 4)
	tf := NewTimerFrames(func(fn func()) { posted <- fn })
	tf.Interval = time.Millisecond
	e := New(nil, Config{Frames: tf})
	id, _ := e.AddLayer(domain.LayerShape)
	e.Select(id)
	e.BeginMove(id, vector.Pt{X: 60, Y: 60})
	for x := 61.0; x <= 100; x++ {
		e.PointerMove(vector.Pt{X: x, Y: 60})
	}
	select {
	case fn := <-posted:
		fn()
	case <-time.After(time.Second):
		t.Fatalf("frame never fired")
	}
	if g := geometry(t, e, id); g.X != 90 {
		t.Fatalf("x = %v, want 90", g.X)
	}
	e.PointerUp()
}
