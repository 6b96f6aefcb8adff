package chesspresenter

import (
	"context"

	"github.com/park285/cheese-gridchess/internal/engine"
	"github.com/park285/cheese-gridchess/internal/render"
)

// Presenter draws session state as a PNG board with the turn banner.
type Presenter struct {
	formatter *Formatter
	renderer  *render.Renderer
}

func NewPresenter(f *Formatter, r *render.Renderer) *Presenter {
	if r == nil {
		r = render.New(0)
	}
	return &Presenter{formatter: f, renderer: r}
}

func (p *Presenter) BoardPNG(ctx context.Context, st engine.State) ([]byte, error) {
	opts := render.Options{
		Selected:     st.Selected,
		Destinations: st.Destinations,
		Banner:       p.formatter.Banner(st),
	}
	if st.LastMove != nil {
		m := st.LastMove.Move
		opts.LastMove = &m
	}
	return p.renderer.RenderPNG(ctx, st.Board, opts)
}
