package render

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"strings"
	"sync"

	"github.com/park285/cheese-gridchess/internal/board"
	"github.com/srwiley/oksvg"
	"github.com/srwiley/rasterx"
)

// Silhouettes drawn in a 45x45 view box. Every element is closed with "/>" so the
// paint attributes can be appended per color.
var pieceShapes = map[board.Kind][]string{
	board.Pawn: {
		`<circle cx="22.5" cy="13" r="5.5"/>`,
		`<path d="M16 34 L18 21 L27 21 L29 34 Z"/>`,
		`<rect x="12" y="34" width="21" height="5"/>`,
	},
	board.Rook: {
		`<path d="M12 37 L12 32 L14.5 32 L15.5 16 L12 16 L12 9 L16 9 L16 12 L20 12 L20 9 L25 9 L25 12 L29 12 L29 9 L33 9 L33 16 L29.5 16 L30.5 32 L33 32 L33 37 Z"/>`,
	},
	board.Knight: {
		`<path d="M13 37 L32 37 L31 30 C31 20 28 12 22 9 L20 6 L18 10 C14 12 11 17 10 22 L13 24.5 L17 21 L20 22 C17 26 14 29 13 37 Z"/>`,
	},
	board.Bishop: {
		`<circle cx="22.5" cy="8" r="2.5"/>`,
		`<path d="M22.5 10 C16 15 15 22 18 27 L27 27 C30 22 29 15 22.5 10 Z"/>`,
		`<path d="M15 33 L18 28 L27 28 L30 33 Z"/>`,
		`<rect x="11" y="33" width="23" height="4"/>`,
	},
	board.Queen: {
		`<path d="M9 13 L14 30 L31 30 L36 13 L28.5 24 L26.5 10 L22.5 23 L18.5 10 L16.5 24 Z"/>`,
		`<circle cx="9" cy="12" r="2"/>`,
		`<circle cx="18.5" cy="9" r="2"/>`,
		`<circle cx="26.5" cy="9" r="2"/>`,
		`<circle cx="36" cy="12" r="2"/>`,
		`<rect x="12" y="30" width="21" height="6"/>`,
	},
	board.King: {
		`<path d="M21 4 L24 4 L24 7 L27 7 L27 10 L24 10 L24 15 L21 15 L21 10 L18 10 L18 7 L21 7 Z"/>`,
		`<path d="M11 22 C11 16 18 15 22.5 20 C27 15 34 16 34 22 C34 26 31 29 30 31 L15 31 C14 29 11 26 11 22 Z"/>`,
		`<rect x="13" y="31" width="19" height="5"/>`,
	},
}

func pieceSVG(p board.Piece) ([]byte, error) {
	shapes, ok := pieceShapes[p.Kind()]
	if !ok {
		return nil, fmt.Errorf("no silhouette for %s", p)
	}
	fill, stroke := "#f8f8f4", "#1b1b1b"
	if p.Color() == board.Black {
		fill, stroke = "#262626", "#f0f0f0"
	}
	paint := fmt.Sprintf(` fill="%s" stroke="%s" stroke-width="1.5" stroke-linejoin="round"/>`, fill, stroke)

	var b strings.Builder
	b.WriteString(`<svg xmlns="http://www.w3.org/2000/svg" width="45" height="45" viewBox="0 0 45 45">`)
	for _, s := range shapes {
		b.WriteString(strings.Replace(s, "/>", paint, 1))
	}
	b.WriteString(`</svg>`)
	return []byte(b.String()), nil
}

type pieceCacheKey struct {
	piece board.Piece
	size  int
}

var (
	pieceCache   = map[pieceCacheKey]image.Image{}
	pieceCacheMu sync.RWMutex
)

func renderPieceImage(p board.Piece, size int) (image.Image, error) {
	key := pieceCacheKey{piece: p, size: size}

	pieceCacheMu.RLock()
	if img, ok := pieceCache[key]; ok {
		pieceCacheMu.RUnlock()
		return img, nil
	}
	pieceCacheMu.RUnlock()

	data, err := pieceSVG(p)
	if err != nil {
		return nil, err
	}
	icon, err := oksvg.ReadIconStream(strings.NewReader(string(data)))
	if err != nil {
		return nil, fmt.Errorf("parse piece svg %s: %w", p, err)
	}
	icon.SetTarget(0, 0, float64(size), float64(size))

	img := image.NewRGBA(image.Rect(0, 0, size, size))
	draw.Draw(img, img.Bounds(), image.NewUniform(color.Transparent), image.Point{}, draw.Src)
	scanner := rasterx.NewScannerGV(size, size, img, img.Bounds())
	raster := rasterx.NewDasher(size, size, scanner)
	icon.Draw(raster, 1.0)

	pieceCacheMu.Lock()
	pieceCache[key] = img
	pieceCacheMu.Unlock()
	return img, nil
}
