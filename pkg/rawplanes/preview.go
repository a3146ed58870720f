package rawplanes

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"math"
	"os"

	colorful "github.com/lucasb-eyer/go-colorful"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// PreviewOptions configures the channel preview sheet.
type PreviewOptions struct {
	// TileWidth is the rendered width of each channel in pixels.
	TileWidth int
	// Stretch is the number of robust sigmas shown above and below the median.
	Stretch float64
	// Title is drawn in the summary strip, typically the source file name.
	Title string
	// Bad pixels are circled on the channel that contains them.
	Bad *BadPixelCandidates
}

// DefaultPreviewOptions returns a 400px tile, +/-5 sigma preview.
func DefaultPreviewOptions() PreviewOptions {
	return PreviewOptions{TileWidth: 400, Stretch: 5}
}

// PreviewPath returns "<raw>.preview.jpg".
func PreviewPath(rawPath string) string {
	return rawPath + ".preview.jpg"
}

// WritePreview renders the preview sheet of raw to a JPEG file.
func WritePreview(path string, raw *RawFrame, opts PreviewOptions) error {
	img, err := RenderPreview(raw, opts)
	if err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create preview file: %w", err)
	}
	if err := jpeg.Encode(f, img, &jpeg.Options{Quality: 90}); err != nil {
		f.Close()
		return fmt.Errorf("encoding preview: %w", err)
	}
	return f.Close()
}

// RenderPreviewBytes renders the preview sheet and returns it as JPEG bytes.
func RenderPreviewBytes(raw *RawFrame, opts PreviewOptions) ([]byte, error) {
	img, err := RenderPreview(raw, opts)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 90}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// RenderPreview lays the channels of raw out two per row. Each tile is a
// nearest-neighbor scaled, median-centered stretch of the channel tinted
// with its shade.
func RenderPreview(raw *RawFrame, opts PreviewOptions) (*image.RGBA, error) {
	set, err := raw.Planes()
	if err != nil {
		return nil, err
	}
	if len(set.Names) == 0 {
		return nil, fmt.Errorf("no channels to preview")
	}
	if opts.TileWidth <= 0 {
		opts.TileWidth = 400
	}
	if opts.Stretch <= 0 {
		opts.Stretch = 5
	}

	first := set.Planes[set.Names[0]]
	if first.Rows() == 0 || first.Cols() == 0 {
		return nil, fmt.Errorf("empty channel %s", set.Names[0])
	}
	scale := float64(opts.TileWidth) / float64(first.Cols())
	tileW := opts.TileWidth
	tileH := int(float64(first.Rows()) * scale)
	if tileH < 1 {
		tileH = 1
	}

	const cols = 2
	rows := (len(set.Names) + cols - 1) / cols
	summaryH := 40
	imgW := cols * tileW
	imgH := rows * tileH
	img := image.NewRGBA(image.Rect(0, 0, imgW, imgH+summaryH))

	// Black background
	for y := 0; y < imgH+summaryH; y++ {
		for x := 0; x < imgW; x++ {
			img.Set(x, y, color.RGBA{0, 0, 0, 255})
		}
	}

	stats := SetStatistics(set)
	face := basicfont.Face7x13
	for i, name := range set.Names {
		plane := set.Planes[name]
		x0 := (i % cols) * tileW
		y0 := (i / cols) * tileH
		s := stats[name]
		drawTile(img, plane, x0, y0, tileW, tileH, s, opts.Stretch, ChannelShade(name))

		textColor := color.RGBA{255, 255, 255, 255}
		drawText(img, face, string(name), x0+8, y0+16, textColor)
		drawText(img, face, fmt.Sprintf("median %.0f  sigma %.1f", s.Median, s.RobustSigma), x0+8, y0+32, textColor)
	}

	if opts.Bad != nil {
		markBadPixels(img, raw, set, opts.Bad, tileW, tileH, cols)
	}

	// Tile separators
	gridColor := color.RGBA{255, 255, 255, 180}
	for c := 1; c < cols; c++ {
		drawLine(img, c*tileW, 0, c*tileW, imgH-1, gridColor)
	}
	for r := 1; r < rows; r++ {
		drawLine(img, 0, r*tileH, imgW-1, r*tileH, gridColor)
	}

	summaryColor := color.RGBA{220, 220, 220, 255}
	summary := fmt.Sprintf("%dx%d %s, %d-bit", raw.Frame.Width, raw.Frame.Height, raw.Descriptor, raw.BitDepth)
	if opts.Title != "" {
		summary = opts.Title + "  " + summary
	}
	if opts.Bad != nil {
		summary += fmt.Sprintf("  hot=%d dead=%d", len(opts.Bad.Hot), len(opts.Bad.Dead))
	}
	drawText(img, face, summary, 10, imgH+25, summaryColor)

	return img, nil
}

func drawTile(img *image.RGBA, plane *ChannelPlane, x0, y0, w, h int, s PlaneStatistics, stretch float64, shade colorful.Color) {
	sigma := s.RobustSigma
	if sigma <= 0 || math.IsNaN(sigma) {
		sigma = math.Max(s.StdDev, 1)
	}
	lo := s.Median - stretch*sigma
	span := 2 * stretch * sigma
	sr, sg, sb := shade.RGB255()
	rows, cols := plane.Rows(), plane.Cols()

	for y := 0; y < h; y++ {
		py := y * rows / h
		for x := 0; x < w; x++ {
			px := x * cols / w
			t := (float64(plane.Grid[py][px]) - lo) / span
			t = math.Min(math.Max(t, 0), 1)
			img.Set(x0+x, y0+y, color.RGBA{
				uint8(t * float64(sr)),
				uint8(t * float64(sg)),
				uint8(t * float64(sb)),
				255,
			})
		}
	}
}

// markBadPixels circles each flagged pixel on its channel's tile.
func markBadPixels(img *image.RGBA, raw *RawFrame, set *ColorPlaneSet, bad *BadPixelCandidates, tileW, tileH, cols int) {
	tileOf := make(map[ChannelName]int, len(set.Names))
	for i, name := range set.Names {
		tileOf[name] = i
	}
	names := raw.ChannelNames()
	mark := func(coords []PixelCoord, c color.RGBA) {
		for _, pc := range coords {
			if pc.X < 0 || pc.Y < 0 || pc.X >= raw.Colors.Width || pc.Y >= raw.Colors.Height {
				continue
			}
			id := raw.Colors.At(pc.X, pc.Y)
			if int(id) >= len(names) {
				continue
			}
			name := names[id]
			plane := set.Planes[name]
			if plane.Rows() == 0 || plane.Cols() == 0 {
				continue
			}
			i := tileOf[name]
			cx := (i%cols)*tileW + (pc.X/2)*tileW/plane.Cols() + tileW/plane.Cols()/2
			cy := (i/cols)*tileH + (pc.Y/2)*tileH/plane.Rows() + tileH/plane.Rows()/2
			drawCircle(img, cx, cy, 6, c)
		}
	}
	mark(bad.Hot, color.RGBA{255, 80, 80, 255})
	mark(bad.Dead, color.RGBA{80, 160, 255, 255})
}

// drawText draws a string at (x, y) using the given font face.
func drawText(img *image.RGBA, face font.Face, s string, x, y int, c color.RGBA) {
	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(c),
		Face: face,
		Dot:  fixed.P(x, y),
	}
	d.DrawString(s)
}

// drawCircle draws a circle outline using midpoint algorithm.
func drawCircle(img *image.RGBA, cx, cy, radius int, c color.RGBA) {
	x := radius
	y := 0
	err := 0

	for x >= y {
		img.Set(cx+x, cy+y, c)
		img.Set(cx+y, cy+x, c)
		img.Set(cx-y, cy+x, c)
		img.Set(cx-x, cy+y, c)
		img.Set(cx-x, cy-y, c)
		img.Set(cx-y, cy-x, c)
		img.Set(cx+y, cy-x, c)
		img.Set(cx+x, cy-y, c)

		y++
		err += 1 + 2*y
		if 2*(err-x)+1 > 0 {
			x--
			err += 1 - 2*x
		}
	}
}

// drawLine draws a line between two points using Bresenham's algorithm.
func drawLine(img *image.RGBA, x0, y0, x1, y1 int, c color.RGBA) {
	dx := intAbs(x1 - x0)
	dy := -intAbs(y1 - y0)
	sx, sy := 1, 1
	if x0 > x1 {
		sx = -1
	}
	if y0 > y1 {
		sy = -1
	}
	err := dx + dy

	for {
		img.Set(x0, y0, c)
		if x0 == x1 && y0 == y1 {
			break
		}
		e2 := 2 * err
		if e2 >= dy {
			err += dy
			x0 += sx
		}
		if e2 <= dx {
			err += dx
			y0 += sy
		}
	}
}

func intAbs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
