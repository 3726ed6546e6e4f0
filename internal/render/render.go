// Package render implements the Map Renderer: it projects scenario
// geometry to Web Mercator (EPSG:3857) and draws one PNG per
// optimization model.
package render

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"math"
	"os"
	"path/filepath"

	"golang.org/x/image/draw"

	"github.com/gsudice/nsf-cosea/internal/solver"
	"github.com/gsudice/nsf-cosea/pkg/geo"
)

const (
	canvasWidth  = 1600
	canvasHeight = 1200
	canvasMargin = 60

	// demandMarkerMin/Max are the clamped pixel radii for demand point
	// markers, sized by normalized demand.
	demandMarkerMin = 8
	demandMarkerMax = 60

	// spiderLineSubsample bounds how many demand→facility lines a
	// p-median figure draws, to keep dense scenarios legible.
	spiderLineSubsample = 500
)

var (
	colorBackground   = color.RGBA{R: 235, G: 235, B: 235, A: 255}
	colorDemand       = color.RGBA{R: 90, G: 120, B: 200, A: 160}
	colorOpenFacility = color.RGBA{R: 200, G: 40, B: 40, A: 255}
	colorClosedFaint  = color.RGBA{R: 150, G: 150, B: 150, A: 120}
	colorCoverageBuf  = color.RGBA{R: 60, G: 160, B: 90, A: 60}
	colorCovered      = color.RGBA{R: 60, G: 160, B: 90, A: 220}
	colorUncovered    = color.RGBA{R: 200, G: 60, B: 60, A: 220}
	colorSpiderLine   = color.RGBA{R: 90, G: 90, B: 90, A: 90}
)

// projector maps every point in a formulation context into canvas pixel
// space, web-mercator-projected and scaled to fit with a margin.
type projector struct {
	minX, minY, scale float64
}

func newProjector(xs, ys []float64) projector {
	minX, maxX := xs[0], xs[0]
	minY, maxY := ys[0], ys[0]
	for i := range xs {
		minX = math.Min(minX, xs[i])
		maxX = math.Max(maxX, xs[i])
		minY = math.Min(minY, ys[i])
		maxY = math.Max(maxY, ys[i])
	}
	spanX, spanY := maxX-minX, maxY-minY
	if spanX == 0 {
		spanX = 1
	}
	if spanY == 0 {
		spanY = 1
	}
	scale := math.Min(
		float64(canvasWidth-2*canvasMargin)/spanX,
		float64(canvasHeight-2*canvasMargin)/spanY,
	)
	return projector{minX: minX, minY: minY, scale: scale}
}

func (p projector) pixel(x, y float64) (int, int) {
	px := canvasMargin + (x-p.minX)*p.scale
	// Image Y grows downward; geographic Y (northing) grows upward.
	py := float64(canvasHeight-canvasMargin) - (y-p.minY)*p.scale
	return int(px), int(py)
}

// projectAll web-mercator-projects every demand and facility location in
// ctx and returns a projector fitted to the full extent.
func projectAll(ctx *solver.FormulationContext) (projector, [][2]float64, [][2]float64) {
	xs := make([]float64, 0, len(ctx.Demand)+len(ctx.Facilities))
	ys := make([]float64, 0, len(ctx.Demand)+len(ctx.Facilities))
	demandXY := make([][2]float64, len(ctx.Demand))
	facilityXY := make([][2]float64, len(ctx.Facilities))

	for i, d := range ctx.Demand {
		x, y := geo.WebMercatorProject(d.Location())
		demandXY[i] = [2]float64{x, y}
		xs = append(xs, x)
		ys = append(ys, y)
	}
	for j, f := range ctx.Facilities {
		x, y := geo.WebMercatorProject(f.Location())
		facilityXY[j] = [2]float64{x, y}
		xs = append(xs, x)
		ys = append(ys, y)
	}
	return newProjector(xs, ys), demandXY, facilityXY
}

func newCanvas() *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, canvasWidth, canvasHeight))
	draw.Draw(img, img.Bounds(), &image.Uniform{C: colorBackground}, image.Point{}, draw.Src)
	return img
}

func savePNG(img image.Image, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("render: create output directory: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("render: create output file: %w", err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		return fmt.Errorf("render: encode png: %w", err)
	}
	return nil
}

// clampMarkerRadius maps a [0,1] demand value to the clamped pixel
// radius used for p-median demand markers.
func clampMarkerRadius(demand float64) int {
	r := demandMarkerMin + demand*(demandMarkerMax-demandMarkerMin)
	if r < demandMarkerMin {
		r = demandMarkerMin
	}
	if r > demandMarkerMax {
		r = demandMarkerMax
	}
	return int(r)
}

// drawDisc composites a filled circle of the given pixel radius and
// color at (cx, cy), resampling a small sprite with x/image/draw's
// bilinear scaler rather than hand-rolling a rasterizer per radius.
func drawDisc(canvas *image.RGBA, cx, cy, radius int, col color.Color) {
	if radius <= 0 {
		return
	}
	sprite := circleSprite(col)
	dstRect := image.Rect(cx-radius, cy-radius, cx+radius, cy+radius)
	draw.ApproxBiLinear.Scale(canvas, dstRect, sprite, sprite.Bounds(), draw.Over, nil)
}

// circleSprite rasterizes a single filled circle at a fixed small
// resolution; drawDisc scales it to the marker's actual target radius.
func circleSprite(col color.Color) image.Image {
	const base = 32
	img := image.NewRGBA(image.Rect(0, 0, base, base))
	center := base / 2
	for y := 0; y < base; y++ {
		for x := 0; x < base; x++ {
			dx, dy := x-center, y-center
			if dx*dx+dy*dy <= center*center {
				img.Set(x, y, col)
			}
		}
	}
	return img
}

func drawLine(canvas *image.RGBA, x0, y0, x1, y1 int, col color.Color) {
	dx, dy := abs(x1-x0), -abs(y1-y0)
	sx, sy := sign(x1-x0), sign(y1-y0)
	err := dx + dy
	x, y := x0, y0
	for {
		canvas.Set(x, y, col)
		if x == x1 && y == y1 {
			return
		}
		e2 := 2 * err
		if e2 >= dy {
			err += dy
			x += sx
		}
		if e2 <= dx {
			err += dx
			y += sy
		}
	}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

func sign(v int) int {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	default:
		return 0
	}
}
