/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package export

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"io"

	"idcardstudio/internal/render"
)

// QRPNGOptions controls QR image export.
type QRPNGOptions struct {
	// Scale is the pixel size of one module; 8 when zero.
	Scale int
	// Quiet is the light border in modules.
	Quiet int
}

// QRPNG writes the module matrix of q as a PNG using its colors.
func QRPNG(w io.Writer, q *render.QRElement, opt QRPNGOptions) error {
	if q == nil || q.Size == 0 || len(q.Modules) == 0 {
		return errors.New("qr element has no modules")
	}
	scale := opt.Scale
	if scale <= 0 {
		scale = 8
	}
	quiet := opt.Quiet
	if quiet < 0 {
		quiet = 0
	}
	px := (q.Size + 2*quiet) * scale
	img := image.NewRGBA(image.Rect(0, 0, px, px))
	bg := orColor(q.Background, color.RGBA{255, 255, 255, 255})
	fg := orColor(q.Foreground, color.RGBA{A: 255})
	draw.Draw(img, img.Bounds(), &image.Uniform{C: bg}, image.Point{}, draw.Src)
	for row, cols := range q.Modules {
		for col, dark := range cols {
			if !dark {
				continue
			}
			x0 := (quiet + col) * scale
			y0 := (quiet + row) * scale
			fillRect(img, x0, y0, x0+scale-1, y0+scale-1, fg)
		}
	}
	if err := png.Encode(w, img); err != nil {
		return fmt.Errorf("encode png: %w", err)
	}
	return nil
}

// fillRect fills the inclusive rectangle (x0,y0)-(x1,y1).
func fillRect(img *image.RGBA, x0, y0, x1, y1 int, col color.RGBA) {
	if x1 < x0 {
		x0, x1 = x1, x0
	}
	if y1 < y0 {
		y0, y1 = y1, y0
	}
	for y := y0; y <= y1; y++ {
		for x := x0; x <= x1; x++ {
			img.SetRGBA(x, y, col)
		}
	}
}
