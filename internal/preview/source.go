package preview

import (
	"fmt"
	"strconv"
	"strings"

	"slidebanai-backend/internal/deck"
)

const (
	canvasWidth  = 1280
	canvasHeight = 720
	maxBullets   = 8
	accentColor  = "#4F46E5"
)

var dshEscaper = strings.NewReplacer(
	`"`, "'",
	`\`, "/",
	"\r", " ",
	"\n", " ",
	"\t", " ",
	"&", "and",
	"<", "(",
	">", ")",
)

// Source writes decksh markup for slides: one dsh slide per DetailedSlide, in order.
func Source(title string, slides []deck.DetailedSlide) []byte {
	var b strings.Builder
	b.WriteString("deck\n")
	fmt.Fprintf(&b, "canvas %d %d\n", canvasWidth, canvasHeight)
	for i, s := range slides {
		writeSlide(&b, s, i, len(slides), title)
	}
	b.WriteString("edeck\n")
	return []byte(b.String())
}

func writeSlide(b *strings.Builder, s deck.DetailedSlide, i, total int, deckTitle string) {
	bg := s.BackgroundColor
	if !validHex(bg) {
		bg = deck.DefaultBackgroundColor
	}
	fg := foregroundFor(bg)
	fmt.Fprintf(b, "slide %q %q\n", bg, fg)

	title := dsh(s.Title)
	lines := bodyLines(s.Content)
	switch {
	case i == 0 || s.SlideType == string(deck.EntryTitle):
		fmt.Fprintf(b, "ctext %q 50 55 5\n", title)
		sub := deckTitle
		if len(lines) > 0 {
			sub = lines[0]
		}
		if sub = dsh(sub); sub != "" && sub != title {
			fmt.Fprintf(b, "ctext %q 50 42 2.4\n", sub)
		}
	case s.SlideType == string(deck.EntrySection):
		fmt.Fprintf(b, "rect 50 40 20 0.6 %q\n", accentColor)
		fmt.Fprintf(b, "ctext %q 50 50 4.5\n", title)
	case s.SlideType == string(deck.EntryQuote):
		fmt.Fprintf(b, "textblock %q 15 62 70 2.6\n", dsh(strings.Join(lines, " ")))
		fmt.Fprintf(b, "ctext %q 50 35 2\n", title)
	default:
		fmt.Fprintf(b, "text %q 8 86 3.4\n", title)
		fmt.Fprintf(b, "rect 50 80 84 0.4 %q\n", accentColor)
		if len(lines) > 0 {
			b.WriteString("blist 10 70 2\n")
			for _, line := range lines {
				fmt.Fprintf(b, "li %q\n", dsh(line))
			}
			b.WriteString("elist\n")
		}
	}
	fmt.Fprintf(b, "text %q 92 5 1.2\n", strconv.Itoa(i+1)+" / "+strconv.Itoa(total))
	b.WriteString("eslide\n")
}

func dsh(s string) string {
	return strings.TrimSpace(dshEscaper.Replace(s))
}

// bodyLines splits content into bullet lines, dropping list markers the model adds.
func bodyLines(content string) []string {
	var out []string
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		line = strings.TrimLeft(line, "-*• ")
		if line == "" {
			continue
		}
		out = append(out, line)
		if len(out) == maxBullets {
			break
		}
	}
	return out
}

func validHex(c string) bool {
	if len(c) != 7 || c[0] != '#' {
		return false
	}
	_, err := strconv.ParseUint(c[1:], 16, 32)
	return err == nil
}

// foregroundFor picks dark or light text by the background's relative luminance.
func foregroundFor(bg string) string {
	v, _ := strconv.ParseUint(bg[1:], 16, 32)
	r, g, bl := float64(v>>16&0xff), float64(v>>8&0xff), float64(v&0xff)
	if 0.299*r+0.587*g+0.114*bl < 140 {
		return "#FFFFFF"
	}
	return "#1F2937"
}
