package preview

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"strings"

	ajdeck "github.com/ajstarks/deck"
	"github.com/ajstarks/decksh"
	svg "github.com/ajstarks/svgo/float"
)

const (
	linespacing = 1.4
	listspacing = 2.0
	fontFamily  = "Helvetica, Arial, sans-serif"
)

// Render compiles decksh source and draws one SVG document per slide.
func Render(src []byte) ([][]byte, error) {
	var deckXML bytes.Buffer
	if err := decksh.Process(&deckXML, bytes.NewReader(src)); err != nil {
		return nil, fmt.Errorf("decksh: %w", err)
	}

	var d ajdeck.Deck
	if err := xml.Unmarshal(deckXML.Bytes(), &d); err != nil {
		return nil, fmt.Errorf("deck xml: %w", err)
	}
	if d.Canvas.Width == 0 {
		d.Canvas.Width = canvasWidth
	}
	if d.Canvas.Height == 0 {
		d.Canvas.Height = canvasHeight
	}

	cw, ch := float64(d.Canvas.Width), float64(d.Canvas.Height)
	out := make([][]byte, len(d.Slide))
	for i := range d.Slide {
		var buf bytes.Buffer
		drawSlide(svg.New(&buf), d.Slide[i], cw, ch)
		out[i] = buf.Bytes()
	}
	return out, nil
}

// pct converts percentages to canvas measures.
func pct(p, m float64) float64 {
	return (p / 100.0) * m
}

// dimen maps deck percentages (y grows upward) onto SVG coordinates.
func dimen(w, h, xp, yp, sp float64) (float64, float64, float64) {
	return pct(xp, w), pct(100-yp, h), pct(sp, w)
}

func opacity(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 0:
		return v / 100
	}
	return 1
}

func anchor(align string) string {
	switch align {
	case "center", "middle", "mid", "c":
		return "middle"
	case "right", "end", "e":
		return "end"
	}
	return "start"
}

func drawSlide(doc *svg.SVG, slide ajdeck.Slide, cw, ch float64) {
	doc.Start(cw, ch)
	if slide.Bg != "" {
		doc.Rect(0, 0, cw, ch, "fill:"+slide.Bg)
	}
	fg := slide.Fg
	if fg == "" {
		fg = "black"
	}

	for _, r := range slide.Rect {
		x, y, _ := dimen(cw, ch, r.Xp, r.Yp, 0)
		w := pct(r.Wp, cw)
		h := pct(r.Hp, ch)
		if r.Hr != 0 {
			h = pct(r.Hr, w)
		}
		color := r.Color
		if color == "" {
			color = fg
		}
		doc.Rect(x-w/2, y-h/2, w, h, fmt.Sprintf("fill:%s;fill-opacity:%.2f", color, opacity(r.Opacity)))
	}

	for _, t := range slide.Text {
		color := t.Color
		if color == "" {
			color = fg
		}
		lp := t.Lp
		if lp == 0 {
			lp = linespacing
		}
		x, y, fs := dimen(cw, ch, t.Xp, t.Yp, t.Sp)
		style := fmt.Sprintf("fill:%s;fill-opacity:%.2f;font-size:%.2fpx;font-family:%s;text-anchor:%s",
			color, opacity(t.Opacity), fs, fontFamily, anchor(t.Align))
		if t.Type == "block" {
			w := pct(t.Wp, cw)
			if w <= 0 {
				w = cw / 2
			}
			wrapText(doc, x, y, w, fs, lp*fs, t.Tdata, style)
			continue
		}
		for _, line := range strings.Split(t.Tdata, "\n") {
			doc.Text(x, y, line, `xml:space="preserve"`, style)
			y += lp * fs
		}
	}

	for _, l := range slide.List {
		color := l.Color
		if color == "" {
			color = fg
		}
		lp := l.Lp
		if lp == 0 {
			lp = listspacing
		}
		x, y, fs := dimen(cw, ch, l.Xp, l.Yp, l.Sp)
		doc.Gstyle(fmt.Sprintf("fill:%s;fill-opacity:%.2f;font-size:%.2fpx;font-family:%s", color, opacity(l.Opacity), fs, fontFamily))
		if l.Type == "bullet" {
			x += fs
		}
		for i, li := range l.Li {
			text := li.ListText
			switch l.Type {
			case "bullet":
				doc.Circle(x-fs, y-fs/3, fs/4, "fill:"+color)
			case "number":
				text = fmt.Sprintf("%d. %s", i+1, text)
			}
			doc.Text(x, y, text, `xml:space="preserve"`)
			y += lp * fs
		}
		doc.Gend()
	}
	doc.End()
}

// wrapText breaks s into lines that roughly fit width w.
func wrapText(doc *svg.SVG, x, y, w, fs, leading float64, s, style string) {
	var line string
	for _, word := range strings.Fields(s) {
		next := strings.TrimSpace(line + " " + word)
		if line != "" && fs*float64(len(next))*0.55 > w {
			doc.Text(x, y, line, style)
			y += leading
			next = word
		}
		line = next
	}
	if line != "" {
		doc.Text(x, y, line, style)
	}
}
