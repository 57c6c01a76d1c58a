package svg

// LineOpts customises the cost trend line chart.
type LineOpts struct {
	Title        string
	Description  string
	StrokeColor  string
	FillColor    string
	OverlayColor string
	AxisColor    string
	GridColor    string
	Padding      float64
	ShowDots     bool
	TickCount    int
}

// BarOpts customises the period comparison bar chart.
type BarOpts struct {
	Title         string
	Description   string
	BaselineColor string
	CurrentColor  string
	AxisColor     string
	GridColor     string
	Padding       float64
	TickCount     int
}

// Defaults for the analytics charts.
const (
	DefaultWidth   = 720
	DefaultHeight  = 240
	DefaultPadding = 24.0
	DefaultTicks   = 6
)
