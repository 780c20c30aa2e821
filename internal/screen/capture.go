// Package screen captures the display, overlays Set-of-Mark annotations
// from an accessibility snapshot, downsizes the frame to a provider-
// friendly resolution, and JPEG-encodes the result. There is no portable Go
// screen-capture library in reach, so frame acquisition is delegated to an
// injectable Capturer with a best-effort platform backend.
package screen

import (
	"bytes"
	"context"
	"encoding/base64"
	"image"
	"image/color"
	"image/draw"
	"image/jpeg"
	"strconv"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
	xdraw "golang.org/x/image/draw"

	"github.com/delegant-go/deskagent/internal/deskagent"
)

const jpegQuality = 72

// Frame is a raw, unscaled capture of one monitor.
type Frame struct {
	Image image.Image
}

// Capturer acquires a raw frame of the primary display. The default
// implementation shells out to a platform screenshot tool; tests supply a
// fixed in-memory frame.
type Capturer interface {
	Capture(ctx context.Context) (Frame, error)
}

// Walker produces an accessibility snapshot to annotate the frame with.
// Matches the signature of internal/a11y.Snapshotter's Snapshot method so screen doesn't import a11y
// directly (avoiding a cross-package dependency cycle risk); the agent
// loop wires the real a11y.Snapshotter in.
type Walker interface {
	Snapshot(ctx context.Context) ([]deskagent.A11yNode, error)
}

// Result is everything capture() produces: the encoded, annotated frame
// plus the scaling metadata the action parser needs to map coordinates
// reported against the resized image back to real screen pixels.
type Result struct {
	Base64       string
	MediaType    string
	OrigWidth    int
	OrigHeight   int
	ScaledWidth  int
	ScaledHeight int
	ScaleFactor  float64
	Nodes        []deskagent.A11yNode
}

// Service captures and annotates screenshots.
type Service struct {
	capturer Capturer
	walker   Walker
}

// NewService builds a screen.Service around an explicit Capturer and
// Walker.
func NewService(c Capturer, w Walker) *Service {
	return &Service{capturer: c, walker: w}
}

// Capture runs the full seven-step pipeline: acquire the frame, snapshot
// accessibility nodes (empty on failure, never fatal), draw Set-of-Mark
// boxes for each node, compute a fit-within-bounds scale factor, resize if
// shrinking, and JPEG-encode at a fixed quality.
func (s *Service) Capture(ctx context.Context, maxWidth, maxHeight int) (Result, error) {
	frame, err := s.capturer.Capture(ctx)
	if err != nil {
		return Result{}, err
	}

	var nodes []deskagent.A11yNode
	if s.walker != nil {
		if n, err := s.walker.Snapshot(ctx); err == nil {
			nodes = n
		}
	}

	bounds := frame.Image.Bounds()
	origW, origH := bounds.Dx(), bounds.Dy()

	annotated := image.NewRGBA(bounds)
	draw.Draw(annotated, bounds, frame.Image, bounds.Min, draw.Src)
	drawSetOfMark(annotated, nodes)

	scaleX := 1.0
	scaleY := 1.0
	if maxWidth > 0 && origW > maxWidth {
		scaleX = float64(maxWidth) / float64(origW)
	}
	if maxHeight > 0 && origH > maxHeight {
		scaleY = float64(maxHeight) / float64(origH)
	}
	scaleFactor := scaleX
	if scaleY < scaleFactor {
		scaleFactor = scaleY
	}
	if scaleFactor > 1.0 {
		scaleFactor = 1.0
	}

	final := image.Image(annotated)
	scaledW, scaledH := origW, origH
	if scaleFactor < 1.0 {
		scaledW = int(float64(origW) * scaleFactor)
		scaledH = int(float64(origH) * scaleFactor)
		resized := image.NewRGBA(image.Rect(0, 0, scaledW, scaledH))
		xdraw.CatmullRom.Scale(resized, resized.Bounds(), annotated, bounds, xdraw.Over, nil)
		final = resized
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, final, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return Result{}, err
	}

	return Result{
		Base64:       base64.StdEncoding.EncodeToString(buf.Bytes()),
		MediaType:    "image/jpeg",
		OrigWidth:    origW,
		OrigHeight:   origH,
		ScaledWidth:  scaledW,
		ScaledHeight: scaledH,
		ScaleFactor:  scaleFactor,
		Nodes:        nodes,
	}, nil
}

var markColor = color.RGBA{R: 255, G: 0, B: 0, A: 255}

// drawSetOfMark draws a hollow red rectangle around each node's bounds and
// a filled label box with the node's numeric id above it. A missing font
// would only affect the label text; basicfont.Face7x13 is embedded in the
// binary so that never happens here, unlike the original's best-effort
// system-font lookup.
func drawSetOfMark(img *image.RGBA, nodes []deskagent.A11yNode) {
	bounds := img.Bounds()
	for _, n := range nodes {
		r := clampRect(image.Rect(n.Left, n.Top, n.Right, n.Bottom), bounds)
		if r.Dx() <= 0 || r.Dy() <= 0 {
			continue
		}
		drawHollowRect(img, r, markColor)

		labelTop := r.Min.Y - 18
		if labelTop < 0 {
			labelTop = 0
		}
		labelRect := image.Rect(r.Min.X, labelTop, r.Min.X+30, labelTop+18)
		draw.Draw(img, labelRect, &image.Uniform{C: markColor}, image.Point{}, draw.Src)
		drawLabel(img, labelRect.Min.X+2, labelRect.Min.Y+13, n.ID)
	}
}

func clampRect(r, bounds image.Rectangle) image.Rectangle {
	return r.Intersect(bounds)
}

func drawHollowRect(img *image.RGBA, r image.Rectangle, c color.RGBA) {
	for x := r.Min.X; x < r.Max.X; x++ {
		img.Set(x, r.Min.Y, c)
		img.Set(x, r.Max.Y-1, c)
	}
	for y := r.Min.Y; y < r.Max.Y; y++ {
		img.Set(r.Min.X, y, c)
		img.Set(r.Max.X-1, y, c)
	}
}

func drawLabel(img *image.RGBA, x, y, id int) {
	face := basicfont.Face7x13
	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(color.White),
		Face: face,
		Dot:  fixed.P(x, y),
	}
	d.DrawString(strconv.Itoa(id))
}
