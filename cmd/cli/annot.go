package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/annotly/ppdoc/internal/pdf"
	"github.com/spf13/cobra"
)

var annotCmd = &cobra.Command{
	Use:   "annot",
	Short: "Annotation operations",
	Long:  `Create, list, edit, and delete PDF annotations: ink strokes, highlights, underlines, strike-outs, sticky notes, and free text boxes.`,
}

var (
	annotPage      int
	annotPageW     int
	annotPageH     int
	annotOutput    string
	annotJSON      bool
	annotColor     string
	annotOpacity   float64
	annotThickness float64
	annotKind      string
	annotContents  string
	annotFont      string
	annotFontSize  float64
	annotFill      string
	annotRect      string
	annotPoints    string
	annotObjectID  int64
	annotSimplify  float64
)

// openForAnnot opens the document and returns the service plus a save
// helper that writes to --output (or back over the input when unset).
func openForAnnot(pdfPath string) (*pdf.AnnotationService, func()) {
	if _, err := os.Stat(pdfPath); os.IsNotExist(err) {
		ExitWithError("PDF file not found", err)
	}

	service := pdf.NewAnnotationService(nil)
	service.Startup(context.Background())

	pages, err := service.Open(pdfPath)
	if err != nil {
		ExitWithError("failed to open PDF", err)
	}
	if annotPage < 1 || annotPage > pages {
		ExitWithError(fmt.Sprintf("invalid page number: %d (must be between 1 and %d)", annotPage, pages), nil)
	}

	save := func() {
		target := annotOutput
		if target == "" {
			target = pdfPath
		}
		if err := service.Save(target, false); err != nil {
			ExitWithError("failed to save PDF", err)
		}
		GetLogger().Info("document saved", "file", SanitizePath(target))
		fmt.Printf("Saved: %s\n", target)
	}
	return service, save
}

// parsePoints parses "x,y;x,y;..." into pixel-space points.
func parsePoints(s string) ([]pdf.AnnotPoint, error) {
	var points []pdf.AnnotPoint
	for _, pair := range strings.Split(s, ";") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		xy := strings.Split(pair, ",")
		if len(xy) != 2 {
			return nil, fmt.Errorf("invalid point %q (want x,y)", pair)
		}
		x, err := strconv.ParseFloat(strings.TrimSpace(xy[0]), 64)
		if err != nil {
			return nil, fmt.Errorf("invalid x in %q: %w", pair, err)
		}
		y, err := strconv.ParseFloat(strings.TrimSpace(xy[1]), 64)
		if err != nil {
			return nil, fmt.Errorf("invalid y in %q: %w", pair, err)
		}
		points = append(points, pdf.AnnotPoint{X: x, Y: y})
	}
	if len(points) == 0 {
		return nil, fmt.Errorf("no points given")
	}
	return points, nil
}

// parseRect parses "x0,y0,x1,y1" into a pixel-space rect.
func parseRect(s string) (pdf.AnnotRect, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return pdf.AnnotRect{}, fmt.Errorf("invalid rect %q (want x0,y0,x1,y1)", s)
	}
	vals := make([]float64, 4)
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return pdf.AnnotRect{}, fmt.Errorf("invalid rect coordinate %q: %w", p, err)
		}
		vals[i] = v
	}
	return pdf.AnnotRect{X0: vals[0], Y0: vals[1], X1: vals[2], Y1: vals[3]}, nil
}

var annotListCmd = &cobra.Command{
	Use:   "list <pdf-file>",
	Short: "List annotations on a page",
	Long:  `List every annotation on a page with its type, bounds, stable object id, and contents.`,
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		service, _ := openForAnnot(args[0])
		defer service.Close()

		records, err := service.ListAnnotations(annotPage-1, annotPageW, annotPageH)
		if err != nil {
			ExitWithError("failed to list annotations", err)
		}

		GetLogger().Info("annotations listed", "page", annotPage, "count", len(records))

		if annotJSON {
			data, err := json.MarshalIndent(records, "", "  ")
			if err != nil {
				ExitWithError("failed to marshal annotations to JSON", err)
			}
			fmt.Println(string(data))
			return
		}

		if len(records) == 0 {
			fmt.Printf("No annotations on page %d\n", annotPage)
			return
		}
		fmt.Printf("Annotations on page %d:\n", annotPage)
		for _, r := range records {
			fmt.Printf("  [%d] %-10s (%.1f, %.1f)-(%.1f, %.1f)",
				r.ObjectID, r.Type, r.Bounds.X0, r.Bounds.Y0, r.Bounds.X1, r.Bounds.Y1)
			if r.Contents != "" {
				fmt.Printf("  %q", r.Contents)
			}
			if len(r.Arcs) > 0 {
				fmt.Printf("  (%d strokes)", len(r.Arcs))
			}
			fmt.Println()
		}
	},
}

var annotAddInkCmd = &cobra.Command{
	Use:   "add-ink <pdf-file>",
	Short: "Add an ink stroke",
	Long:  `Add an ink annotation from one polyline of pixel-space points.`,
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		points, err := parsePoints(annotPoints)
		if err != nil {
			ExitWithError("invalid --points", err)
		}
		if annotSimplify > 0 {
			points = pdf.SimplifyStroke(points, annotSimplify)
		}

		service, save := openForAnnot(args[0])
		defer service.Close()

		id, err := service.AddInk(annotPage-1, annotPageW, annotPageH,
			[][]pdf.AnnotPoint{points}, annotColor, annotThickness)
		if err != nil {
			ExitWithError("failed to add ink annotation", err)
		}

		GetLogger().Info("ink annotation added", "page", annotPage, "objectId", id)
		fmt.Printf("Added ink annotation %d on page %d\n", id, annotPage)
		save()
	},
}

var annotAddMarkupCmd = &cobra.Command{
	Use:   "add-markup <pdf-file>",
	Short: "Add a highlight, underline, or strike-out",
	Long:  `Add a text markup annotation over quads given as groups of four pixel-space corners (UL;UR;LL;LR).`,
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		corners, err := parsePoints(annotPoints)
		if err != nil {
			ExitWithError("invalid --points", err)
		}

		service, save := openForAnnot(args[0])
		defer service.Close()

		id, err := service.AddMarkup(annotPage-1, annotPageW, annotPageH,
			annotKind, corners, annotColor, annotOpacity)
		if err != nil {
			ExitWithError("failed to add markup annotation", err)
		}

		GetLogger().Info("markup annotation added", "page", annotPage, "kind", annotKind, "objectId", id)
		fmt.Printf("Added %s annotation %d on page %d\n", annotKind, id, annotPage)
		save()
	},
}

var annotAddNoteCmd = &cobra.Command{
	Use:   "add-note <pdf-file>",
	Short: "Add a sticky note",
	Long:  `Add a sticky-note (text) annotation at the given pixel-space rect.`,
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		rect, err := parseRect(annotRect)
		if err != nil {
			ExitWithError("invalid --rect", err)
		}

		service, save := openForAnnot(args[0])
		defer service.Close()

		id, err := service.AddTextNote(annotPage-1, annotPageW, annotPageH, rect, annotContents, annotColor)
		if err != nil {
			ExitWithError("failed to add note", err)
		}

		GetLogger().Info("note added", "page", annotPage, "objectId", id)
		fmt.Printf("Added note %d on page %d\n", id, annotPage)
		save()
	},
}

var annotAddFreeTextCmd = &cobra.Command{
	Use:   "add-freetext <pdf-file>",
	Short: "Add a free text box",
	Long:  `Add a free-text annotation at the given pixel-space rect, with optional font, text color, and fill color.`,
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		rect, err := parseRect(annotRect)
		if err != nil {
			ExitWithError("invalid --rect", err)
		}

		service, save := openForAnnot(args[0])
		defer service.Close()

		id, err := service.AddFreeText(annotPage-1, annotPageW, annotPageH, rect,
			annotContents, annotFont, annotFontSize, annotColor, annotFill)
		if err != nil {
			ExitWithError("failed to add free text annotation", err)
		}

		GetLogger().Info("free text annotation added", "page", annotPage, "objectId", id)
		fmt.Printf("Added free text annotation %d on page %d\n", id, annotPage)
		save()
	},
}

var annotDeleteCmd = &cobra.Command{
	Use:   "delete <pdf-file>",
	Short: "Delete an annotation by object id",
	Long:  `Delete the annotation with the given stable object id (see 'annot list') from a page.`,
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		service, save := openForAnnot(args[0])
		defer service.Close()

		if err := service.DeleteAnnotation(annotPage-1, annotObjectID); err != nil {
			ExitWithError("failed to delete annotation", err)
		}

		GetLogger().Info("annotation deleted", "page", annotPage, "objectId", annotObjectID)
		fmt.Printf("Deleted annotation %d from page %d\n", annotObjectID, annotPage)
		save()
	},
}

var annotMoveCmd = &cobra.Command{
	Use:   "move <pdf-file>",
	Short: "Move or resize an annotation",
	Long:  `Move/resize the annotation with the given object id to a new pixel-space rect.`,
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		rect, err := parseRect(annotRect)
		if err != nil {
			ExitWithError("invalid --rect", err)
		}

		service, save := openForAnnot(args[0])
		defer service.Close()

		if err := service.MoveAnnotation(annotPage-1, annotPageW, annotPageH, annotObjectID, rect); err != nil {
			ExitWithError("failed to move annotation", err)
		}

		GetLogger().Info("annotation moved", "page", annotPage, "objectId", annotObjectID)
		fmt.Printf("Moved annotation %d on page %d\n", annotObjectID, annotPage)
		save()
	},
}

func init() {
	rootCmd.AddCommand(annotCmd)
	annotCmd.AddCommand(annotListCmd)
	annotCmd.AddCommand(annotAddInkCmd)
	annotCmd.AddCommand(annotAddMarkupCmd)
	annotCmd.AddCommand(annotAddNoteCmd)
	annotCmd.AddCommand(annotAddFreeTextCmd)
	annotCmd.AddCommand(annotDeleteCmd)
	annotCmd.AddCommand(annotMoveCmd)

	annotCmd.PersistentFlags().IntVarP(&annotPage, "page", "p", 1, "page number")
	annotCmd.PersistentFlags().IntVar(&annotPageW, "width", 595, "page pixel width the coordinates refer to")
	annotCmd.PersistentFlags().IntVar(&annotPageH, "height", 842, "page pixel height the coordinates refer to")
	annotCmd.PersistentFlags().StringVarP(&annotOutput, "output", "o", "", "output PDF file (default: overwrite input)")

	annotListCmd.Flags().BoolVarP(&annotJSON, "json", "j", false, "output in JSON format")

	annotAddInkCmd.Flags().StringVar(&annotPoints, "points", "", "stroke points as x,y;x,y;... (required)")
	annotAddInkCmd.Flags().StringVarP(&annotColor, "color", "c", "", "stroke color as #RRGGBB (default: configured ink color)")
	annotAddInkCmd.Flags().Float64VarP(&annotThickness, "thickness", "t", 0, "stroke thickness in PDF units (default: configured)")
	annotAddInkCmd.Flags().Float64Var(&annotSimplify, "simplify", 0, "polyline simplification tolerance in pixels (0 = keep raw points)")
	annotAddInkCmd.MarkFlagRequired("points")

	annotAddMarkupCmd.Flags().StringVar(&annotPoints, "points", "", "quad corners as UL;UR;LL;LR groups (required)")
	annotAddMarkupCmd.Flags().StringVarP(&annotKind, "kind", "k", "highlight", "markup kind: highlight, underline, or strikeout")
	annotAddMarkupCmd.Flags().StringVarP(&annotColor, "color", "c", "", "markup color as #RRGGBB (default: configured)")
	annotAddMarkupCmd.Flags().Float64Var(&annotOpacity, "opacity", 0, "markup opacity in (0,1] (default: configured)")
	annotAddMarkupCmd.MarkFlagRequired("points")

	annotAddNoteCmd.Flags().StringVarP(&annotRect, "rect", "r", "", "note rect as x0,y0,x1,y1 (required)")
	annotAddNoteCmd.Flags().StringVarP(&annotContents, "text", "m", "", "note contents")
	annotAddNoteCmd.Flags().StringVarP(&annotColor, "color", "c", "", "note color as #RRGGBB")
	annotAddNoteCmd.MarkFlagRequired("rect")

	annotAddFreeTextCmd.Flags().StringVarP(&annotRect, "rect", "r", "", "text box rect as x0,y0,x1,y1 (required)")
	annotAddFreeTextCmd.Flags().StringVarP(&annotContents, "text", "m", "", "text contents")
	annotAddFreeTextCmd.Flags().StringVar(&annotFont, "font", "", "font key: Helv, TiRo, Cour, Symb, ZaDb (default: configured)")
	annotAddFreeTextCmd.Flags().Float64Var(&annotFontSize, "size", 0, "font size in points (default: configured)")
	annotAddFreeTextCmd.Flags().StringVarP(&annotColor, "color", "c", "", "text color as #RRGGBB")
	annotAddFreeTextCmd.Flags().StringVar(&annotFill, "fill", "", "interior fill color as #RRGGBB (default: none)")
	annotAddFreeTextCmd.MarkFlagRequired("rect")

	annotDeleteCmd.Flags().Int64Var(&annotObjectID, "id", -1, "annotation object id (required)")
	annotDeleteCmd.MarkFlagRequired("id")

	annotMoveCmd.Flags().Int64Var(&annotObjectID, "id", -1, "annotation object id (required)")
	annotMoveCmd.Flags().StringVarP(&annotRect, "rect", "r", "", "new rect as x0,y0,x1,y1 (required)")
	annotMoveCmd.MarkFlagRequired("id")
	annotMoveCmd.MarkFlagRequired("rect")
}
