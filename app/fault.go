package app

import (
	"fmt"
	"image/color"
	"strings"
	"unicode/utf8"

	"rvcore/core/fault"
	"rvcore/hal"
	"rvcore/services/display"

	"tinygo.org/x/tinyfont"
	"tinygo.org/x/tinyfont/proggy"
)

const (
	faultFontHeight = 10
	faultFontOffset = 6
)

func installFaultHandler(p hal.Platform, log hal.Logger) {
	fault.SetHandler(func(info fault.Info) {
		lines := faultLines(info)
		if log != nil {
			for _, line := range lines {
				log.WriteLineString(line)
			}
		}
		paintFault(p.Display(), lines)
	})
}

func faultLines(info fault.Info) []string {
	lines := []string{
		"rvcore fault:",
		fmt.Sprintf("kind: %s", info.Kind),
		fmt.Sprintf("code: %d", info.Code),
	}
	if info.Value != nil {
		lines = append(lines, fmt.Sprintf("value: %v", info.Value))
	}
	if len(info.Stack) > 0 {
		lines = append(lines, "stack:")
		for _, line := range strings.Split(string(info.Stack), "\n") {
			if line != "" {
				lines = append(lines, line)
			}
		}
	}
	return lines
}

func paintFault(disp hal.Display, lines []string) {
	if disp == nil {
		return
	}
	fb := disp.Framebuffer()
	if fb == nil || fb.Width() == 0 {
		return
	}
	fb.ClearRGB(255, 255, 255)

	font := &proggy.TinySZ8pt7b
	_, outbox := tinyfont.LineWidth(font, "0")
	fontWidth := int16(outbox)
	if fontWidth <= 0 {
		fb.Present()
		return
	}

	d := display.New(fb)
	fg := color.RGBA{A: 255}
	cols := int16(fb.Width()) / fontWidth
	if cols <= 0 {
		cols = 1
	}

	y := int16(0)
	for _, line := range lines {
		for len(line) > 0 {
			if int(y)+faultFontHeight > fb.Height() {
				fb.Present()
				return
			}
			chunk, rest := takeRunes(line, cols)
			x := int16(0)
			for _, r := range chunk {
				tinyfont.DrawChar(d, font, x, y+faultFontOffset, r, fg)
				x += fontWidth
			}
			y += faultFontHeight
			line = strings.TrimLeft(rest, " ")
		}
	}
	fb.Present()
}

// takeRunes splits s after at most n runes.
func takeRunes(s string, n int16) (prefix, rest string) {
	if n <= 0 || s == "" {
		return "", s
	}
	i := 0
	for count := int16(0); i < len(s) && count < n; count++ {
		_, size := utf8.DecodeRuneInString(s[i:])
		i += size
	}
	return s[:i], s[i:]
}
