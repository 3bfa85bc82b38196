// internal/marks/render.go
package marks

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"os"
	"strconv"

	_ "image/png" // screenshots may arrive PNG-encoded depending on driver config

	"go.uber.org/zap"
	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"

	"github.com/xkilldash9x/som-agent/api/schemas"
	"github.com/xkilldash9x/som-agent/internal/config"
)

// Marker label colors: readable against arbitrary page backgrounds.
var (
	markerBackground = color.RGBA{R: 255, A: 255}
	markerBorder     = color.RGBA{R: 139, A: 255}
	markerText       = color.RGBA{R: 255, G: 255, B: 255, A: 255}
)

// fontCandidates are tried in order when no explicit font path is configured.
var fontCandidates = []string{
	"/usr/share/fonts/truetype/dejavu/DejaVuSans-Bold.ttf",
	"/usr/share/fonts/truetype/dejavu/DejaVuSans.ttf",
	"/Library/Fonts/Arial.ttf",
	"C:\\Windows\\Fonts\\arial.ttf",
}

// Renderer overlays numbered Set-of-Marks labels onto screenshots. Rendering
// is deterministic for a given screenshot/element-set pair. Overlapping
// labels are an accepted approximation; there is no collision avoidance.
type Renderer struct {
	cfg     config.MarkerConfig
	quality int
	face    font.Face
	logger  *zap.Logger
}

// NewRenderer resolves a label font and builds the renderer. Font resolution
// never fails: a configured path is tried first, then known platform fonts,
// then the built-in bitmap face.
func NewRenderer(cfg config.MarkerConfig, quality int, logger *zap.Logger) *Renderer {
	log := logger.Named("marks")
	return &Renderer{
		cfg:     cfg,
		quality: quality,
		face:    resolveFace(cfg, log),
		logger:  log,
	}
}

// resolveFace loads the first usable scalable font, falling back to the
// built-in fixed face when none is available.
func resolveFace(cfg config.MarkerConfig, logger *zap.Logger) font.Face {
	candidates := fontCandidates
	if cfg.FontPath != "" {
		candidates = append([]string{cfg.FontPath}, candidates...)
	}

	for _, path := range candidates {
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		parsed, err := opentype.Parse(data)
		if err != nil {
			logger.Debug("Skipping unparseable font file.", zap.String("path", path), zap.Error(err))
			continue
		}
		face, err := opentype.NewFace(parsed, &opentype.FaceOptions{
			Size:    cfg.FontSize,
			DPI:     72,
			Hinting: font.HintingFull,
		})
		if err != nil {
			continue
		}
		logger.Debug("Loaded marker font.", zap.String("path", path))
		return face
	}

	logger.Debug("No scalable font available, using built-in face.")
	return basicfont.Face7x13
}

// Render draws one numbered label near each element's top-left corner and
// re-encodes the image as JPEG at the configured quality. An empty element
// set returns the input bytes unmodified.
func (r *Renderer) Render(screenshot []byte, elements []schemas.InteractiveElement) ([]byte, error) {
	if len(elements) == 0 {
		return screenshot, nil
	}

	src, _, err := image.Decode(bytes.NewReader(screenshot))
	if err != nil {
		return nil, fmt.Errorf("failed to decode screenshot: %w", err)
	}

	img := image.NewRGBA(src.Bounds())
	draw.Draw(img, img.Bounds(), src, src.Bounds().Min, draw.Src)

	metrics := r.face.Metrics()
	ascent := metrics.Ascent.Ceil()
	textHeight := (metrics.Ascent + metrics.Descent).Ceil()
	padding := r.cfg.Padding

	for _, el := range elements {
		label := strconv.Itoa(el.Index)
		textWidth := font.MeasureString(r.face, label).Ceil()

		// Anchor the label just outside the element's top-left corner,
		// clamped to the image.
		markerX := max(0, el.CenterX-el.Width/2-5)
		markerY := max(0, el.CenterY-el.Height/2-5)

		bg := image.Rect(
			markerX,
			markerY,
			markerX+textWidth+padding*2+4,
			markerY+textHeight+padding*2,
		)
		border := bg.Inset(-1)

		draw.Draw(img, border, image.NewUniform(markerBorder), image.Point{}, draw.Src)
		draw.Draw(img, bg, image.NewUniform(markerBackground), image.Point{}, draw.Src)

		drawer := &font.Drawer{
			Dst:  img,
			Src:  image.NewUniform(markerText),
			Face: r.face,
			Dot:  fixed.P(markerX+padding+2, markerY+padding-2+ascent),
		}
		drawer.DrawString(label)
	}

	var out bytes.Buffer
	if err := jpeg.Encode(&out, img, &jpeg.Options{Quality: r.quality}); err != nil {
		return nil, fmt.Errorf("failed to encode marked screenshot: %w", err)
	}

	r.logger.Debug("Rendered markers.", zap.Int("elements", len(elements)), zap.Int("bytes", out.Len()))
	return out.Bytes(), nil
}
