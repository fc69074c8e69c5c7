// Package matcher finds a reference image inside a screen region using
// zero-mean normalized cross-correlation (the TM_CCOEFF_NORMED metric).
package matcher

import (
	"errors"
	"fmt"
	"image"
	"math"

	"gonum.org/v1/gonum/floats"
)

// DefaultThreshold is the minimum confidence accepted as a match
const DefaultThreshold = 0.75

// flatEpsilon is the per-pixel variance (squared 8-bit luma units) below
// which a window is treated as a single flat colour.
const flatEpsilon = 1e-3

// ErrInvalidTemplate is returned when the template is empty or larger than the region
var ErrInvalidTemplate = errors.New("invalid template")

// Gray is a luminance buffer. Origin is the screen position of Pix[0], so
// matches can be reported in absolute coordinates.
type Gray struct {
	Width  int
	Height int
	Pix    []float64
	Origin image.Point
}

// NewGray converts img to luminance (0..255). The buffer origin is img.Bounds().Min.
func NewGray(img image.Image) *Gray {
	b := img.Bounds()
	g := &Gray{
		Width:  b.Dx(),
		Height: b.Dy(),
		Pix:    make([]float64, b.Dx()*b.Dy()),
		Origin: b.Min,
	}
	i := 0
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			r, gg, bb, _ := img.At(x, y).RGBA()
			g.Pix[i] = 0.299*float64(r>>8) + 0.587*float64(gg>>8) + 0.114*float64(bb>>8)
			i++
		}
	}
	return g
}

// Row returns row y as a slice into Pix.
func (g *Gray) Row(y int) []float64 {
	return g.Pix[y*g.Width : (y+1)*g.Width]
}

// Match is the best alignment of a template inside a region.
type Match struct {
	// Offset of the template's top-left corner relative to the region
	Offset image.Point
	// Center in absolute coordinates: region origin + offset + template size / 2
	CenterX int
	CenterY int
	// Confidence is the correlation score clamped to [0, 1]
	Confidence     float64
	TemplateWidth  int
	TemplateHeight int
}

// FindBestMatch slides template over every translation inside region and
// returns the best scoring one. ok is false when the best score is below
// threshold; that is a legitimate negative result, not an error.
func FindBestMatch(region, template *Gray, threshold float64) (Match, bool, error) {
	if region == nil || template == nil || template.Width == 0 || template.Height == 0 {
		return Match{}, false, fmt.Errorf("%w: empty template", ErrInvalidTemplate)
	}
	if template.Width > region.Width || template.Height > region.Height {
		return Match{}, false, fmt.Errorf("%w: template %dx%d larger than region %dx%d",
			ErrInvalidTemplate, template.Width, template.Height, region.Width, region.Height)
	}

	tw, th := template.Width, template.Height
	n := float64(tw * th)

	// zero-mean template; the region mean then drops out of the numerator
	tMean := floats.Sum(template.Pix) / n
	centered := make([]float64, len(template.Pix))
	copy(centered, template.Pix)
	floats.AddConst(-tMean, centered)
	tVar := floats.Dot(centered, centered)
	tFlat := tVar <= flatEpsilon*n

	sum, sumSq := integrals(region)

	var best Match
	bestScore := math.Inf(-1)
	for y := 0; y+th <= region.Height; y++ {
		for x := 0; x+tw <= region.Width; x++ {
			s := windowSum(sum, region.Width, x, y, tw, th)
			sq := windowSum(sumSq, region.Width, x, y, tw, th)
			wVar := sq - s*s/n
			wFlat := wVar <= flatEpsilon*n

			var score float64
			switch {
			case tFlat && wFlat:
				if math.Abs(s/n-tMean) < 0.5 {
					score = 1
				}
			case tFlat || wFlat:
				score = 0
			default:
				num := 0.0
				for ty := 0; ty < th; ty++ {
					row := region.Row(y + ty)[x : x+tw]
					num += floats.Dot(row, centered[ty*tw:(ty+1)*tw])
				}
				score = num / math.Sqrt(tVar*wVar)
			}

			if score > bestScore {
				bestScore = score
				best.Offset = image.Pt(x, y)
			}
		}
	}

	best.Confidence = clamp01(bestScore)
	best.TemplateWidth = tw
	best.TemplateHeight = th
	best.CenterX = region.Origin.X + best.Offset.X + tw/2
	best.CenterY = region.Origin.Y + best.Offset.Y + th/2

	if best.Confidence < threshold {
		return best, false, nil
	}
	return best, true, nil
}

// integrals builds summed-area tables of the pixel values and their squares,
// each (w+1)*(h+1) with a zero first row and column.
func integrals(g *Gray) ([]float64, []float64) {
	stride := g.Width + 1
	sum := make([]float64, stride*(g.Height+1))
	sumSq := make([]float64, stride*(g.Height+1))
	for y := 0; y < g.Height; y++ {
		var rowSum, rowSq float64
		for x := 0; x < g.Width; x++ {
			v := g.Pix[y*g.Width+x]
			rowSum += v
			rowSq += v * v
			sum[(y+1)*stride+x+1] = sum[y*stride+x+1] + rowSum
			sumSq[(y+1)*stride+x+1] = sumSq[y*stride+x+1] + rowSq
		}
	}
	return sum, sumSq
}

func windowSum(table []float64, width, x, y, w, h int) float64 {
	stride := width + 1
	return table[(y+h)*stride+x+w] - table[y*stride+x+w] - table[(y+h)*stride+x] + table[y*stride+x]
}

func clamp01(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
