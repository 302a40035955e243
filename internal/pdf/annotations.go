package pdf

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/annotly/ppdoc/internal/config"
	"github.com/annotly/ppdoc/internal/ppcore"
)

// AnnotationService exposes the annotation engine to the frontend and the
// CLI. It owns one engine context and at most one open document at a time;
// the engine serialises every render and mutation internally, so this
// service only guards its own handle bookkeeping.
type AnnotationService struct {
	ctx           context.Context
	configService *config.Service

	mu          sync.Mutex
	engine      *ppcore.Context
	doc         *ppcore.Document
	currentFile string
}

// AnnotPoint is a pixel-space point as exchanged with the frontend.
type AnnotPoint struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// AnnotRect is a pixel-space rectangle as exchanged with the frontend.
type AnnotRect struct {
	X0 float64 `json:"x0"`
	Y0 float64 `json:"y0"`
	X1 float64 `json:"x1"`
	Y1 float64 `json:"y1"`
}

// AnnotationRecord is one enumerated annotation.
type AnnotationRecord struct {
	Type     string         `json:"type"`
	ObjectID int64          `json:"objectId"`
	Bounds   AnnotRect      `json:"bounds"`
	Contents string         `json:"contents,omitempty"`
	Arcs     [][]AnnotPoint `json:"arcs,omitempty"`
}

// NewAnnotationService creates a new annotation service instance.
func NewAnnotationService(configService *config.Service) *AnnotationService {
	return &AnnotationService{
		configService: configService,
		engine:        ppcore.NewContext(),
	}
}

// Startup initializes the service with the application context.
func (s *AnnotationService) Startup(ctx context.Context) {
	s.ctx = ctx
}

// Open opens a document for annotation editing and returns its page count.
func (s *AnnotationService) Open(filePath string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.doc != nil {
		s.engine.Close(s.doc)
		s.doc = nil
		s.currentFile = ""
	}

	doc, err := s.engine.Open(filePath)
	if err != nil {
		return 0, fmt.Errorf("failed to open document: %w", err)
	}
	s.doc = doc
	s.currentFile = filePath
	return doc.PageCount(), nil
}

// Close releases the current document.
func (s *AnnotationService) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.doc != nil {
		if err := s.engine.Close(s.doc); err != nil {
			return err
		}
		s.doc = nil
	}
	s.currentFile = ""
	return nil
}

// CurrentFile returns the path of the open document, or "".
func (s *AnnotationService) CurrentFile() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.currentFile
}

// HasUnsavedChanges reports whether the open document has been mutated
// since it was opened or last saved.
func (s *AnnotationService) HasUnsavedChanges() bool {
	doc, err := s.document()
	if err != nil {
		return false
	}
	return doc.HasUnsavedChanges()
}

func (s *AnnotationService) document() (*ppcore.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.doc == nil {
		return nil, fmt.Errorf("no document is open")
	}
	return s.doc, nil
}

// ListAnnotations enumerates the annotations on a page, with bounds in
// pixel space at the given render resolution.
func (s *AnnotationService) ListAnnotations(page, pageW, pageH int) ([]AnnotationRecord, error) {
	doc, err := s.document()
	if err != nil {
		return nil, err
	}

	infos, err := doc.ListAnnots(page, pageW, pageH)
	if err != nil {
		return nil, fmt.Errorf("failed to list annotations: %w", err)
	}

	records := make([]AnnotationRecord, 0, len(infos))
	for _, info := range infos {
		rec := AnnotationRecord{
			Type:     info.Type.String(),
			ObjectID: int64(info.ObjectID),
			Bounds:   rectToDTO(info.Bounds),
			Contents: info.Contents,
		}
		for _, arc := range info.Arcs {
			pts := make([]AnnotPoint, len(arc.Points))
			for i, p := range arc.Points {
				pts[i] = AnnotPoint{X: p.X, Y: p.Y}
			}
			rec.Arcs = append(rec.Arcs, pts)
		}
		records = append(records, rec)
	}
	return records, nil
}

// AddInk creates an ink annotation from pixel-space polylines. An empty
// color or non-positive thickness falls back to the configured defaults.
func (s *AnnotationService) AddInk(page, pageW, pageH int, arcs [][]AnnotPoint, colorHex string, thickness float64) (int64, error) {
	doc, err := s.document()
	if err != nil {
		return -1, err
	}
	if len(arcs) == 0 {
		return -1, fmt.Errorf("ink annotation needs at least one stroke")
	}

	if colorHex == "" {
		colorHex = s.defaultString(func(c *config.Config) string { return c.InkColor }, "#ff0000")
	}
	if thickness <= 0 {
		thickness = s.defaultFloat(func(c *config.Config) float64 { return c.InkThickness }, 3.0)
	}
	color, err := ParseHexColor(colorHex)
	if err != nil {
		return -1, err
	}

	strokes := make([]ppcore.Arc, len(arcs))
	for i, arc := range arcs {
		pts := make([]ppcore.Point, len(arc))
		for j, p := range arc {
			pts[j] = ppcore.Point{X: p.X, Y: p.Y}
		}
		strokes[i] = ppcore.Arc{Points: pts}
	}

	id, _, err := doc.AddInk(page, strokes, color, thickness, pageW, pageH)
	if err != nil {
		return -1, fmt.Errorf("failed to add ink annotation: %w", err)
	}
	return int64(id), nil
}

// AddMarkup creates a highlight, underline, or strike-out annotation over
// quads given as groups of four pixel-space corners (UL, UR, LL, LR).
func (s *AnnotationService) AddMarkup(page, pageW, pageH int, kind string, corners []AnnotPoint, colorHex string, opacity float64) (int64, error) {
	if len(corners) < 4 || len(corners)%4 != 0 {
		return -1, fmt.Errorf("markup corners must come in groups of four, got %d", len(corners))
	}
	doc, err := s.document()
	if err != nil {
		return -1, err
	}

	if colorHex == "" {
		colorHex = s.defaultString(func(c *config.Config) string { return c.HighlightColor }, "#ffff00")
	}
	if opacity <= 0 {
		opacity = s.defaultFloat(func(c *config.Config) float64 { return c.HighlightOpacity }, 0.5)
	}
	color, err := ParseHexColor(colorHex)
	if err != nil {
		return -1, err
	}

	quads := make([]ppcore.TextQuad, 0, len(corners)/4)
	for i := 0; i+3 < len(corners); i += 4 {
		quads = append(quads, ppcore.TextQuad{
			UL: ppcore.Point{X: corners[i].X, Y: corners[i].Y},
			UR: ppcore.Point{X: corners[i+1].X, Y: corners[i+1].Y},
			LL: ppcore.Point{X: corners[i+2].X, Y: corners[i+2].Y},
			LR: ppcore.Point{X: corners[i+3].X, Y: corners[i+3].Y},
		})
	}

	var id ppcore.ObjectID
	switch strings.ToLower(kind) {
	case "highlight":
		id, _, err = doc.AddHighlight(page, quads, color, opacity, pageW, pageH)
	case "underline":
		id, _, err = doc.AddUnderline(page, quads, color, pageW, pageH)
	case "strikeout", "strike-out":
		id, _, err = doc.AddStrikeOut(page, quads, color, pageW, pageH)
	default:
		return -1, fmt.Errorf("unknown markup kind %q (want highlight, underline, or strikeout)", kind)
	}
	if err != nil {
		return -1, fmt.Errorf("failed to add %s annotation: %w", kind, err)
	}
	return int64(id), nil
}

// AddTextNote creates a sticky-note annotation at the given pixel rect.
func (s *AnnotationService) AddTextNote(page, pageW, pageH int, rect AnnotRect, contents, colorHex string) (int64, error) {
	doc, err := s.document()
	if err != nil {
		return -1, err
	}
	color, err := ParseHexColor(orDefault(colorHex, "#ffff00"))
	if err != nil {
		return -1, err
	}
	id, err := doc.AddTextAnnot(page, rectFromDTO(rect), contents, color, pageW, pageH)
	if err != nil {
		return -1, fmt.Errorf("failed to add text annotation: %w", err)
	}
	return int64(id), nil
}

// AddFreeText creates a free-text annotation. Empty font/size fall back to
// the configured defaults; fillHex of "" means no interior fill.
func (s *AnnotationService) AddFreeText(page, pageW, pageH int, rect AnnotRect, contents, fontName string, fontSize float64, colorHex, fillHex string) (int64, error) {
	doc, err := s.document()
	if err != nil {
		return -1, err
	}

	if fontName == "" {
		fontName = s.defaultString(func(c *config.Config) string { return c.FreeTextFont }, "Helv")
	}
	if fontSize <= 0 {
		fontSize = s.defaultFloat(func(c *config.Config) float64 { return c.FreeTextFontSize }, 12)
	}
	color, err := ParseHexColor(orDefault(colorHex, "#000000"))
	if err != nil {
		return -1, err
	}

	style := ppcore.DefaultFreeTextStyle()
	style.FontName = fontName
	style.FontSize = fontSize
	style.Color = color

	var fill *ppcore.Color
	if fillHex != "" {
		fc, err := ParseHexColor(fillHex)
		if err != nil {
			return -1, err
		}
		fill = &fc
	}

	id, err := doc.AddFreeText(page, rectFromDTO(rect), contents, style, fill, pageW, pageH)
	if err != nil {
		return -1, fmt.Errorf("failed to add free text annotation: %w", err)
	}
	return int64(id), nil
}

// DeleteAnnotation deletes an annotation by its stable object id.
func (s *AnnotationService) DeleteAnnotation(page int, objectID int64) error {
	doc, err := s.document()
	if err != nil {
		return err
	}
	if err := doc.DeleteAnnot(page, ppcore.ObjectID(objectID)); err != nil {
		return fmt.Errorf("failed to delete annotation: %w", err)
	}
	return nil
}

// UpdateAnnotationContents replaces an annotation's text contents.
func (s *AnnotationService) UpdateAnnotationContents(page int, objectID int64, contents string) error {
	doc, err := s.document()
	if err != nil {
		return err
	}
	if err := doc.UpdateAnnotContents(page, ppcore.ObjectID(objectID), contents); err != nil {
		return fmt.Errorf("failed to update annotation contents: %w", err)
	}
	return nil
}

// MoveAnnotation moves/resizes an annotation to a new pixel-space rect.
func (s *AnnotationService) MoveAnnotation(page, pageW, pageH int, objectID int64, rect AnnotRect) error {
	doc, err := s.document()
	if err != nil {
		return err
	}
	if err := doc.UpdateAnnotRect(page, ppcore.ObjectID(objectID), rectFromDTO(rect), pageW, pageH); err != nil {
		return fmt.Errorf("failed to move annotation: %w", err)
	}
	return nil
}

// SetFreeTextBorder sets the private border metadata of a free-text
// annotation and re-patches its appearance.
func (s *AnnotationService) SetFreeTextBorder(page int, objectID int64, width float64, dashed bool, radius float64) error {
	doc, err := s.document()
	if err != nil {
		return err
	}
	if err := doc.UpdateFreeTextBorder(page, ppcore.ObjectID(objectID), width, dashed, radius); err != nil {
		return fmt.Errorf("failed to set free text border: %w", err)
	}
	return nil
}

// Save writes the document to filePath. When filePath equals the currently
// open path, incremental selects an append-only update.
func (s *AnnotationService) Save(filePath string, incremental bool) error {
	doc, err := s.document()
	if err != nil {
		return err
	}
	if err := doc.SaveAs(filePath, incremental); err != nil {
		return fmt.Errorf("failed to save document: %w", err)
	}
	return nil
}

// ExportFlattened writes a copy where every page is a single rasterised
// image at the given DPI, with no annotations or form widgets.
func (s *AnnotationService) ExportFlattened(filePath string, dpi int) error {
	doc, err := s.document()
	if err != nil {
		return err
	}
	if err := doc.ExportFlattenedPDF(filePath, dpi); err != nil {
		return fmt.Errorf("failed to export flattened PDF: %w", err)
	}
	return nil
}

// PageText extracts a page's plain text.
func (s *AnnotationService) PageText(page int) (string, error) {
	doc, err := s.document()
	if err != nil {
		return "", err
	}
	return doc.PageText(page)
}

// SearchText returns the pixel-space bounding rects of every occurrence of
// needle on a page.
func (s *AnnotationService) SearchText(page int, needle string, hitMax int) ([]AnnotRect, error) {
	doc, err := s.document()
	if err != nil {
		return nil, err
	}
	rects, err := doc.SearchPage(page, needle, hitMax)
	if err != nil {
		return nil, err
	}
	out := make([]AnnotRect, len(rects))
	for i, r := range rects {
		out[i] = rectToDTO(r)
	}
	return out, nil
}

func (s *AnnotationService) defaultString(pick func(*config.Config) string, fallback string) string {
	if s.configService != nil {
		if cfg := s.configService.Get(); cfg != nil {
			if v := pick(cfg); v != "" {
				return v
			}
		}
	}
	return fallback
}

func (s *AnnotationService) defaultFloat(pick func(*config.Config) float64, fallback float64) float64 {
	if s.configService != nil {
		if cfg := s.configService.Get(); cfg != nil {
			if v := pick(cfg); v > 0 {
				return v
			}
		}
	}
	return fallback
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}

func rectFromDTO(r AnnotRect) ppcore.Rect {
	return ppcore.Rect{X0: r.X0, Y0: r.Y0, X1: r.X1, Y1: r.Y1}
}

func rectToDTO(r ppcore.Rect) AnnotRect {
	return AnnotRect{X0: r.X0, Y0: r.Y0, X1: r.X1, Y1: r.Y1}
}

// SimplifyStroke thins a raw pointer-sample polyline with the engine's
// perpendicular-distance simplifier. Opt-in: callers that care about undo
// payload size run it before AddInk; AddInk itself stores points as given.
func SimplifyStroke(points []AnnotPoint, tolerance float64) []AnnotPoint {
	pts := make([]ppcore.Point, len(points))
	for i, p := range points {
		pts[i] = ppcore.Point{X: p.X, Y: p.Y}
	}
	out := ppcore.SimplifyPolyline(pts, tolerance)
	res := make([]AnnotPoint, len(out))
	for i, p := range out {
		res[i] = AnnotPoint{X: p.X, Y: p.Y}
	}
	return res
}

// ParseHexColor parses "#RRGGBB" (or "RRGGBB") into a unit-range color.
func ParseHexColor(s string) (ppcore.Color, error) {
	h := strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(h) != 6 {
		return ppcore.Color{}, fmt.Errorf("invalid color %q (want #RRGGBB)", s)
	}
	v, err := strconv.ParseUint(h, 16, 32)
	if err != nil {
		return ppcore.Color{}, fmt.Errorf("invalid color %q: %w", s, err)
	}
	return ppcore.Color{
		R: float64(v>>16&0xFF) / 255.0,
		G: float64(v>>8&0xFF) / 255.0,
		B: float64(v&0xFF) / 255.0,
	}, nil
}
