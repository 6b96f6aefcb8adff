// Package render draws a board snapshot as a PNG with selection and destination markers.
package render

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	imagedraw "image/draw"
	"image/png"
	"strings"

	"github.com/park285/cheese-gridchess/internal/board"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

const (
	defaultSquareSize = 64
	minSquareSize     = 24
	bannerHeight      = 34
	coordMargin       = 20
)

// Options are the overlays drawn on top of the board.
type Options struct {
	Selected     *board.Position
	Destinations []board.Position
	LastMove     *board.Move
	Banner       string
}

type Renderer struct {
	squareSize int
}

// New returns a renderer; squareSize <= 0 selects the default.
func New(squareSize int) *Renderer {
	if squareSize <= 0 {
		squareSize = defaultSquareSize
	}
	if squareSize < minSquareSize {
		squareSize = minSquareSize
	}
	return &Renderer{squareSize: squareSize}
}

var (
	lightSquare     = color.RGBA{233, 207, 163, 255}
	darkSquare      = color.RGBA{187, 136, 96, 255}
	lastMoveFill    = color.NRGBA{R: 255, G: 228, B: 120, A: 140}
	selectedFill    = color.NRGBA{R: 92, G: 170, B: 255, A: 150}
	destinationDot  = color.NRGBA{R: 24, G: 120, B: 48, A: 190}
	captureRing     = color.NRGBA{R: 200, G: 40, B: 40, A: 200}
	backgroundColor = color.RGBA{28, 31, 46, 255}
	bannerTextColor = color.NRGBA{R: 236, G: 239, B: 255, A: 255}
	coordinateColor = color.NRGBA{R: 8, G: 214, B: 120, A: 255}
)

// layout is the pixel geometry of one rendered image.
type layout struct {
	size   int
	origin image.Point
	total  image.Rectangle
}

func (r *Renderer) layout() layout {
	boardSize := r.squareSize * board.Size
	return layout{
		size:   r.squareSize,
		origin: image.Point{X: coordMargin, Y: bannerHeight},
		total:  image.Rect(0, 0, boardSize+coordMargin*2, boardSize+bannerHeight+coordMargin),
	}
}

func (l layout) squareRect(p board.Position) image.Rectangle {
	x := l.origin.X + p.Col*l.size
	y := l.origin.Y + p.Row*l.size
	return image.Rect(x, y, x+l.size, y+l.size)
}

func (l layout) squareCenter(p board.Position) image.Point {
	r := l.squareRect(p)
	return image.Point{X: r.Min.X + l.size/2, Y: r.Min.Y + l.size/2}
}

// RenderPNG draws snap with opts and encodes it as PNG.
func (r *Renderer) RenderPNG(ctx context.Context, snap board.Snapshot, opts Options) ([]byte, error) {
	b, err := board.FromSnapshot(snap)
	if err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	l := r.layout()
	img := image.NewRGBA(l.total)
	imagedraw.Draw(img, img.Bounds(), image.NewUniform(backgroundColor), image.Point{}, imagedraw.Src)

	drawSquares(img, l)
	if m := opts.LastMove; m != nil && m.From.Valid() && m.To.Valid() {
		drawSquareOverlay(img, l.squareRect(m.From), lastMoveFill)
		drawSquareOverlay(img, l.squareRect(m.To), lastMoveFill)
	}
	if p := opts.Selected; p != nil && p.Valid() {
		drawSquareOverlay(img, l.squareRect(*p), selectedFill)
	}
	if err := drawPieces(img, b, l); err != nil {
		return nil, err
	}
	for _, d := range opts.Destinations {
		if !d.Valid() {
			continue
		}
		if b.At(d).IsEmpty() {
			drawDisc(img, l.squareCenter(d), l.size/7, destinationDot)
		} else {
			drawRing(img, l.squareCenter(d), l.size/2-2, l.size/12+1, captureRing)
		}
	}
	drawCoordinates(img, l)
	drawBanner(img, l, opts.Banner)

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}

func drawSquares(dst *image.RGBA, l layout) {
	for _, p := range board.All() {
		clr := lightSquare
		if (p.Row+p.Col)%2 == 1 {
			clr = darkSquare
		}
		imagedraw.Draw(dst, l.squareRect(p), image.NewUniform(clr), image.Point{}, imagedraw.Src)
	}
}

func drawPieces(dst *image.RGBA, b *board.Board, l layout) error {
	for _, p := range board.All() {
		piece := b.At(p)
		if piece.IsEmpty() {
			continue
		}
		img, err := renderPieceImage(piece, l.size)
		if err != nil {
			return err
		}
		imagedraw.Draw(dst, l.squareRect(p), img, image.Point{}, imagedraw.Over)
	}
	return nil
}

func drawSquareOverlay(img *image.RGBA, rect image.Rectangle, clr color.Color) {
	imagedraw.Draw(img, rect, image.NewUniform(clr), image.Point{}, imagedraw.Over)
}

func drawCoordinates(img *image.RGBA, l layout) {
	drawer := &font.Drawer{Dst: img, Face: basicfont.Face7x13, Src: image.NewUniform(coordinateColor)}
	ascent := basicfont.Face7x13.Metrics().Ascent.Ceil()
	bottom := l.origin.Y + board.Size*l.size
	for i := 0; i < board.Size; i++ {
		rank := string(rune('8' - i))
		file := string(rune('a' + i))
		center := board.Pos(i, i)
		c := l.squareCenter(center)
		drawCenteredText(drawer, rank, l.origin.X/2, c.Y+ascent/2)
		drawCenteredText(drawer, file, c.X, bottom+ascent+2)
	}
}

func drawBanner(img *image.RGBA, l layout, text string) {
	text = strings.TrimSpace(text)
	if text == "" {
		return
	}
	face := basicfont.Face7x13
	drawer := &font.Drawer{Dst: img, Face: face, Src: image.NewUniform(bannerTextColor)}
	maxWidth := l.total.Dx() - coordMargin*2
	text = truncateWithEllipsis(drawer, text, maxWidth)
	baseline := (bannerHeight + face.Metrics().Ascent.Ceil()) / 2
	drawCenteredText(drawer, text, l.total.Dx()/2, baseline)
}

func drawCenteredText(drawer *font.Drawer, text string, centerX, baseline int) {
	if text == "" {
		return
	}
	width := drawer.MeasureString(text).Round()
	drawer.Dot = fixed.P(centerX-width/2, baseline)
	drawer.DrawString(text)
}

func truncateWithEllipsis(drawer *font.Drawer, text string, maxWidth int) string {
	if drawer.MeasureString(text).Round() <= maxWidth {
		return text
	}
	runes := []rune(text)
	for len(runes) > 0 {
		runes = runes[:len(runes)-1]
		candidate := string(runes) + "..."
		if drawer.MeasureString(candidate).Round() <= maxWidth {
			return candidate
		}
	}
	return "..."
}
