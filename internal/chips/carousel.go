package chips

import (
	"fmt"
	"math"
	"strings"
	"time"
)

type Direction string

const (
	DirectionLeft  Direction = "left"
	DirectionRight Direction = "right"
)

type Variant string

const (
	VariantLight Variant = "light"
	VariantDark  Variant = "dark"
)

type Chip struct {
	Label   string  `json:"label"`
	Variant Variant `json:"variant"`
	Avatar  string  `json:"avatar,omitempty"`
}

type Row struct {
	Chips     []Chip        `json:"chips"`
	Direction Direction     `json:"direction"`
	Speed     time.Duration `json:"-"`
}

// Track is one row laid out for rendering: the row content repeated Copies
// times, scrolled by ShiftPercent of the strip per animation cycle.
type Track struct {
	Items        []Chip    `json:"items"`
	Copies       int       `json:"copies"`
	Direction    Direction `json:"direction"`
	Duration     string    `json:"duration"`
	ShiftPercent float64   `json:"shift_percent"`
}

// Carousel holds the hero suggestion rows and the label -> query table.
type Carousel struct {
	rows    []Row
	queries map[string]string
}

func New(rows []Row, queries map[string]string) *Carousel {
	q := make(map[string]string, len(queries))
	for label, query := range queries {
		q[strings.TrimSpace(label)] = query
	}
	return &Carousel{rows: rows, queries: q}
}

// Default returns the carousel shown on the hero page.
func Default() *Carousel {
	return New(DefaultRows(), DefaultQueries())
}

func (c *Carousel) Rows() []Row {
	return c.rows
}

// Labels returns every distinct chip label, in row order.
func (c *Carousel) Labels() []string {
	seen := make(map[string]bool)
	var labels []string
	for _, row := range c.rows {
		for _, chip := range row.Chips {
			if !seen[chip.Label] {
				seen[chip.Label] = true
				labels = append(labels, chip.Label)
			}
		}
	}
	return labels
}

// Resolve maps a chip label to the question sent to the assistant. Unmapped
// labels are sent as they are.
func (c *Carousel) Resolve(label string) string {
	label = strings.TrimSpace(label)
	if q, ok := c.queries[label]; ok && q != "" {
		return q
	}
	return label
}

// Activate resolves label and hands the query to fn exactly once.
func (c *Carousel) Activate(label string, fn func(query string)) {
	query := c.Resolve(label)
	if query == "" || fn == nil {
		return
	}
	fn(query)
}

// Tracks lays out every row for a viewport viewportPx wide, assuming each
// chip (pill, avatar and gap) takes chipPx. Each row is repeated until the
// strip covers at least twice the viewport plus one copy, so the wrap point
// never scrolls into view.
func (c *Carousel) Tracks(viewportPx, chipPx int) []Track {
	tracks := make([]Track, 0, len(c.rows))
	for _, row := range c.rows {
		copies := Copies(viewportPx, len(row.Chips)*chipPx)

		items := make([]Chip, 0, copies*len(row.Chips))
		for i := 0; i < copies; i++ {
			items = append(items, row.Chips...)
		}

		tracks = append(tracks, Track{
			Items:        items,
			Copies:       copies,
			Direction:    row.Direction,
			Duration:     cssDuration(row.Speed),
			ShiftPercent: 100 / float64(copies),
		})
	}
	return tracks
}

// Copies returns how many times a row rowPx wide is repeated for a viewport.
func Copies(viewportPx, rowPx int) int {
	if rowPx <= 0 || viewportPx <= 0 {
		return 2
	}
	n := int(math.Ceil(2*float64(viewportPx)/float64(rowPx))) + 1
	if n < 2 {
		return 2
	}
	return n
}

func cssDuration(d time.Duration) string {
	if d <= 0 {
		d = 40 * time.Second
	}
	secs := d.Seconds()
	if secs == math.Trunc(secs) {
		return fmt.Sprintf("%ds", int(secs))
	}
	return fmt.Sprintf("%.1fs", secs)
}
