package render

import (
	"image"
	"image/color"
	"image/draw"
	"sync"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"
)

var (
	colorBackground = color.RGBA{0xFF, 0xFF, 0xFF, 0xFF}
	colorBand       = color.RGBA{0xF1, 0xF3, 0xF5, 0xFF}
	colorRule       = color.RGBA{0xCE, 0xD4, 0xDA, 0xFF}
	colorText       = color.RGBA{0x21, 0x25, 0x29, 0xFF}
	colorMuted      = color.RGBA{0x6C, 0x75, 0x7D, 0xFF}
)

// Parsed fonts are safe for concurrent use; faces are not, so every Draw
// builds its own.
var (
	fontsOnce sync.Once
	regular   *opentype.Font
	bold      *opentype.Font
)

func loadFonts() {
	fontsOnce.Do(func() {
		regular, _ = opentype.Parse(goregular.TTF)
		bold, _ = opentype.Parse(gobold.TTF)
	})
}

func newFace(f *opentype.Font, size float64) font.Face {
	if f == nil {
		return basicfont.Face7x13
	}
	face, err := opentype.NewFace(f, &opentype.FaceOptions{Size: size, DPI: 72, Hinting: font.HintingFull})
	if err != nil {
		return basicfont.Face7x13
	}
	return face
}

// Draw rasterizes a laid-out page: a header band with the status line and
// source details, the content lines, and a footer band.
func Draw(p *Page, cfg Config) *image.RGBA {
	cfg.defaults()
	loadFonts()

	body := newFace(regular, cfg.FontSize)
	small := newFace(regular, cfg.FontSize*0.8)
	heading := newFace(bold, cfg.FontSize*1.2)
	defer closeFaces(body, small, heading)

	img := image.NewRGBA(image.Rect(0, 0, cfg.Width, cfg.Height))
	fill(img, img.Bounds(), colorBackground)

	// Header
	fill(img, image.Rect(0, 0, cfg.Width, cfg.HeaderHeight), colorBand)
	fill(img, image.Rect(0, cfg.HeaderHeight-2, cfg.Width, cfg.HeaderHeight), colorRule)
	y := cfg.HeaderHeight/2 - cfg.LineHeight/4
	for i, line := range p.Header {
		face, c := heading, colorText
		if i > 0 {
			face, c = small, colorMuted
		}
		text(img, face, c, cfg.Margin, y, line)
		y += cfg.LineHeight + cfg.LineHeight/3
	}

	// Content
	top := cfg.HeaderHeight + cfg.LineHeight/2
	for _, l := range p.Lines {
		c := colorText
		if p.Placeholder {
			c = colorMuted
		}
		text(img, body, c, cfg.Margin, top+l.Offset, l.Text)
	}

	// Footer
	fy := cfg.Height - cfg.FooterHeight
	fill(img, image.Rect(0, fy, cfg.Width, cfg.Height), colorBand)
	fill(img, image.Rect(0, fy, cfg.Width, fy+2), colorRule)
	text(img, small, colorMuted, cfg.Margin, fy+cfg.FooterHeight/2+int(cfg.FontSize*0.3), p.Footer)

	return img
}

// Render lays out text and rasterizes it in one step.
func Render(text string, meta Meta, cfg Config) (*image.RGBA, *Page) {
	p := Layout(text, meta, cfg)
	return Draw(p, cfg), p
}

func fill(img *image.RGBA, r image.Rectangle, c color.Color) {
	draw.Draw(img, r, &image.Uniform{C: c}, image.Point{}, draw.Src)
}

func text(img *image.RGBA, face font.Face, c color.Color, x, y int, s string) {
	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(c),
		Face: face,
		Dot:  fixed.P(x, y),
	}
	limit := fixed.I(img.Bounds().Dx() - x)
	if d.MeasureString(s) > limit {
		s = clip(d, s, limit)
	}
	d.DrawString(s)
}

// clip shortens s until it fits within limit.
func clip(d *font.Drawer, s string, limit fixed.Int26_6) string {
	runes := []rune(s)
	for len(runes) > 0 && d.MeasureString(string(runes)) > limit {
		runes = runes[:len(runes)-1]
	}
	return string(runes)
}

func closeFaces(faces ...font.Face) {
	for _, f := range faces {
		f.Close()
	}
}
