/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package domain defines the ID card template model: a template with a fixed
// canvas and two sides, each holding a stack of typed layers.
package domain

import (
	"errors"
	"math"
	"time"
)

// Kind is the population a template is designed for.
type Kind string

const (
	KindStudent Kind = "student"
	KindTeacher Kind = "teacher"
	KindStaff   Kind = "staff"
	KindVisitor Kind = "visitor"
)

// SchoolLevel narrows a template to a school level.
type SchoolLevel string

const (
	LevelElementary SchoolLevel = "elementary"
	LevelJuniorHigh SchoolLevel = "junior_high"
	LevelSeniorHigh SchoolLevel = "senior_high"
	LevelCollege    SchoolLevel = "college"
	LevelAll        SchoolLevel = "all"
)

// SideName selects the front or back of a card.
type SideName string

const (
	Front SideName = "front"
	Back  SideName = "back"
)

// Default canvas size (CR80 card at 300 DPI, portrait).
const (
	DefaultCanvasWidth  = 591
	DefaultCanvasHeight = 1004
	DefaultBackground   = "#FFFFFF"
	CurrentVersion      = "1.0.0"
)

// ErrInvalidTemplate is returned when exchange JSON fails validation.
var ErrInvalidTemplate = errors.New("invalid template")

// Template is one card design. The canvas is fixed at creation and shared by both sides.
type Template struct {
	ID          *int64      `json:"id"`
	Name        string      `json:"templateName"`
	Kind        Kind        `json:"templateType"`
	SchoolLevel SchoolLevel `json:"schoolLevel"`
	IsActive    bool        `json:"isActive"`
	Canvas      Canvas      `json:"canvas"`
	Front       Side        `json:"front"`
	Back        Side        `json:"back"`
	Metadata    Metadata    `json:"metadata"`
}

// Canvas describes the drawing surface in canvas units (pixels at 300 DPI).
type Canvas struct {
	Width           float64 `json:"width"`
	Height          float64 `json:"height"`
	BackgroundColor string  `json:"backgroundColor"`
	BackgroundImage string  `json:"backgroundImage,omitempty"`
}

// Metadata carries versioning information. Timestamps are UTC.
type Metadata struct {
	Version   string     `json:"version"`
	CreatedBy string     `json:"createdBy,omitempty"`
	CreatedAt *time.Time `json:"createdAt,omitempty"`
	UpdatedAt *time.Time `json:"updatedAt,omitempty"`
}

// Side is one face of the card. Layers keep insertion order; paint order comes from ZIndex.
type Side struct {
	BackgroundImage string  `json:"backgroundImage,omitempty"`
	Layers          []Layer `json:"layers"`
}

// NewTemplate returns an empty template with the default canvas.
func NewTemplate(name string, kind Kind) *Template {
	if kind == "" {
		kind = KindStudent
	}
	return &Template{
		Name:        name,
		Kind:        kind,
		SchoolLevel: LevelAll,
		Canvas:      Canvas{Width: DefaultCanvasWidth, Height: DefaultCanvasHeight, BackgroundColor: DefaultBackground},
		Metadata:    Metadata{Version: CurrentVersion},
	}
}

// Side returns the named side, or nil for an unknown name.
func (t *Template) Side(name SideName) *Side {
	switch name {
	case Front:
		return &t.Front
	case Back:
		return &t.Back
	}
	return nil
}

// Touch stamps the update time, and the creation time if it is unset.
func (t *Template) Touch(now time.Time) {
	now = now.UTC()
	if t.Metadata.CreatedAt == nil {
		c := now
		t.Metadata.CreatedAt = &c
	}
	t.Metadata.UpdatedAt = &now
}

// Clone returns a deep copy of the template.
func (t *Template) Clone() *Template {
	if t == nil {
		return nil
	}
	c := *t
	if t.ID != nil {
		id := *t.ID
		c.ID = &id
	}
	c.Metadata.CreatedAt = cloneTime(t.Metadata.CreatedAt)
	c.Metadata.UpdatedAt = cloneTime(t.Metadata.UpdatedAt)
	c.Front = t.Front.Clone()
	c.Back = t.Back.Clone()
	return &c
}

func cloneTime(p *time.Time) *time.Time {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

// Clone returns a deep copy of the side.
func (s Side) Clone() Side {
	out := Side{BackgroundImage: s.BackgroundImage}
	if s.Layers != nil {
		out.Layers = make([]Layer, len(s.Layers))
		for i, l := range s.Layers {
			out.Layers[i] = l.Clone()
		}
	}
	return out
}

// Find returns the layer with the given id and its insertion index.
func (s *Side) Find(id string) (Layer, int) {
	for i, l := range s.Layers {
		if l.Common().ID == id {
			return l, i
		}
	}
	return nil, -1
}

// Normalize repairs a freshly decoded template: canvas defaults, unique layer ids per side,
// opacity in [0,1] and rotation in [0,360).
func (t *Template) Normalize() {
	if t.Canvas.Width <= 0 {
		t.Canvas.Width = DefaultCanvasWidth
	}
	if t.Canvas.Height <= 0 {
		t.Canvas.Height = DefaultCanvasHeight
	}
	if t.Canvas.BackgroundColor == "" {
		t.Canvas.BackgroundColor = DefaultBackground
	}
	if t.Kind == "" {
		t.Kind = KindStudent
	}
	if t.SchoolLevel == "" {
		t.SchoolLevel = LevelAll
	}
	if t.Metadata.Version == "" {
		t.Metadata.Version = CurrentVersion
	}
	for _, side := range []*Side{&t.Front, &t.Back} {
		if len(side.Layers) == 0 {
			side.Layers = nil
		}
		seen := make(map[string]bool, len(side.Layers))
		for _, l := range side.Layers {
			b := l.Common()
			if b.ID == "" || seen[b.ID] {
				b.ID = NewID(l.Type())
			}
			seen[b.ID] = true
			if b.Opacity != nil {
				o := math.Max(0, math.Min(1, *b.Opacity))
				b.Opacity = &o
			}
			b.Rotation = NormalizeAngle(b.Rotation)
		}
	}
}

// NormalizeAngle maps degrees into [0,360).
func NormalizeAngle(deg float64) float64 {
	if math.IsNaN(deg) || math.IsInf(deg, 0) {
		return 0
	}
	deg = math.Mod(deg, 360)
	if deg < 0 {
		deg += 360
	}
	return deg
}
