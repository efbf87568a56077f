package app

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"kdisplay/display/fonts/font8x16"
	"kdisplay/display/pixel"
)

func panicLines(v any, stack []byte) []string {
	lines := []string{
		"kdisplay panic:",
		fmt.Sprintf("panic: %v", v),
	}
	if len(stack) == 0 {
		return append(lines, "stack: unavailable")
	}
	lines = append(lines, "stack:")
	for _, line := range strings.Split(string(stack), "\n") {
		if line == "" {
			continue
		}
		lines = append(lines, strings.ReplaceAll(line, "\t", "  "))
	}
	return lines
}

// showPanic logs the panic and paints it black on white over the active
// framebuffer, wrapping at the right edge and stopping at the bottom.
func (a *App) showPanic(v any, stack []byte) {
	lines := panicLines(v, stack)
	for _, l := range lines {
		a.log.Errorf("%s", l)
	}

	d := a.sys.Framebuffer
	if !d.Initialized() {
		return
	}
	d.ClearScreen(pixel.White)

	cols := d.Width() / font8x16.Width
	if cols <= 0 {
		cols = 1
	}
	y := 0
	for _, line := range lines {
		for len(line) > 0 {
			if y+font8x16.Height > d.Height() {
				return
			}
			chunk, rest := takeRunes(line, cols)
			d.WriteText(0, y, chunk, pixel.Black)
			y += font8x16.Height
			line = strings.TrimLeft(rest, " ")
		}
	}
}

func takeRunes(s string, n int) (prefix, rest string) {
	if n <= 0 || s == "" {
		return "", s
	}
	if len(s) <= n {
		return s, ""
	}
	i, count := 0, 0
	for i < len(s) && count < n {
		_, size := utf8.DecodeRuneInString(s[i:])
		i += size
		count++
	}
	return s[:i], s[i:]
}
