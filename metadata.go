package flowplot

type PanelMetadata struct {
	Column          string
	Color           string
	YLabel          string
	YMin            float64
	YMax            float64
	YTicks          []Tick
	XTicks          []TimeTick
	ShowXTickLabels bool
}

// JSON description of a Figure, without the data.
type Metadata struct {
	Title  string `json:",omitempty"`
	Width  int
	Height int
	Panels []PanelMetadata
}

func (f *Figure) Metadata() Metadata {
	m := Metadata{
		Title:  f.Title,
		Width:  f.Width,
		Height: f.Height,
		Panels: make([]PanelMetadata, 0, len(f.Panels)),
	}

	for _, p := range f.Panels {
		pm := PanelMetadata{
			YLabel:          p.YLabel,
			YMin:            p.YMin,
			YMax:            p.YMax,
			YTicks:          p.YTicks,
			XTicks:          p.XTicks,
			ShowXTickLabels: p.ShowXTickLabels,
		}
		if len(p.Series) > 0 {
			pm.Column = p.Series[0].Name
			pm.Color = p.Series[0].Color.Hex()
		}
		m.Panels = append(m.Panels, pm)
	}

	return m
}
