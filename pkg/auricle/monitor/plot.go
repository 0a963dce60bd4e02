package monitor

import (
	"bytes"
	"image/color"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
)

// trace is a bounded buffer of the most recent values on one channel of a
// stream, renderable as a PNG line plot.
type trace struct {
	buf  []float64
	size int
	unit string
}

func newTrace(size int, unit string) *trace {
	return &trace{size: size, unit: unit}
}

func (t *trace) append(vals []float64) {
	t.buf = append(t.buf, vals...)
	if len(t.buf) > t.size {
		t.buf = t.buf[len(t.buf)-t.size:]
	}
}

func (t *trace) values() []float64 {
	out := make([]float64, len(t.buf))
	copy(out, t.buf)
	return out
}

func renderTrace(name, unit string, vals []float64) ([]byte, error) {
	p := plot.New()
	p.BackgroundColor = color.Black
	p.Title.TextStyle.Color = color.White
	p.Title.Text = name
	p.X.Label.Text = "t"
	p.X.Color = color.White
	p.X.Label.TextStyle.Color = color.White
	p.X.Tick.Color = color.White
	p.X.Tick.Label.Color = color.White
	p.Y.Label.Text = unit
	p.Y.Color = color.White
	p.Y.Label.TextStyle.Color = color.White
	p.Y.Tick.Color = color.White
	p.Y.Tick.Label.Color = color.White

	p.Add(plotter.NewGrid())

	pts := make(plotter.XYs, len(vals))
	for i, v := range vals {
		pts[i] = plotter.XY{X: float64(i), Y: v}
	}
	if err := plotutil.AddLines(p, name, pts); err != nil {
		return nil, err
	}

	var imageData bytes.Buffer
	w, err := p.WriterTo(8*vg.Inch, 4*vg.Inch, "png")
	if err != nil {
		return nil, err
	}
	if _, err := w.WriteTo(&imageData); err != nil {
		return nil, err
	}
	return imageData.Bytes(), nil
}
