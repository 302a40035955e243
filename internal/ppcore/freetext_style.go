package ppcore

import (
	"fmt"
	"strconv"
	"strings"
)

// FreeTextStyleFlags is a small bitmask layered over the DA/DS pair,
// covering the style toggles a rich-text editor exposes that neither /DA
// nor /DS encodes compactly on its own.
type FreeTextStyleFlags uint8

const (
	FreeTextBold FreeTextStyleFlags = 1 << iota
	FreeTextItalic
	FreeTextUnderline
	FreeTextStrikethrough
)

// FreeTextAlignment is the FreeText paragraph alignment, matching /Q's
// 0/1/2 values.
type FreeTextAlignment int

const (
	AlignLeft FreeTextAlignment = iota
	AlignCenter
	AlignRight
)

const (
	defaultLineHeight = 1.2
	defaultTextIndent = 0.0
	minLineHeight     = 0.5
	maxLineHeight     = 5.0
	minTextIndentPt   = -144.0
	maxTextIndentPt   = 144.0
)

// FreeTextStyle is the parsed form of a FreeText annotation's /DA (default
// appearance), /DS (default style), /Q, and /Rotate.
type FreeTextStyle struct {
	FontName string
	FontSize float64
	Color    Color
	Flags    FreeTextStyleFlags

	Alignment  FreeTextAlignment
	LineHeight float64
	TextIndent float64
	Rotation   int
}

// DefaultFreeTextStyle is the fallback when /DA is absent or unparsable:
// Helvetica 12pt black, left-aligned, no rotation, no flags.
func DefaultFreeTextStyle() FreeTextStyle {
	return FreeTextStyle{
		FontName:   "Helv",
		FontSize:   12,
		Color:      Color{0, 0, 0},
		Alignment:  AlignLeft,
		LineHeight: defaultLineHeight,
		TextIndent: defaultTextIndent,
	}
}

// ParseDA parses a PDF default-appearance string of the form
// "/Name size Tf r g b rg" (or "g g" for greyscale, "c m y k k" for CMYK,
// collapsed to RGB here since the engine only ever writes RGB). Unknown
// or malformed input falls back to DefaultFreeTextStyle rather than
// erroring.
func ParseDA(da string) FreeTextStyle {
	style := DefaultFreeTextStyle()
	fields := strings.Fields(da)
	for i := 0; i < len(fields); i++ {
		switch fields[i] {
		case "Tf":
			if i >= 2 {
				style.FontName = strings.TrimPrefix(fields[i-2], "/")
				if sz, err := strconv.ParseFloat(fields[i-1], 64); err == nil {
					style.FontSize = sz
				}
			}
		case "g":
			if i >= 1 {
				if v, err := strconv.ParseFloat(fields[i-1], 64); err == nil {
					style.Color = Color{v, v, v}
				}
			}
		case "rg":
			if i >= 3 {
				r, _ := strconv.ParseFloat(fields[i-3], 64)
				g, _ := strconv.ParseFloat(fields[i-2], 64)
				b, _ := strconv.ParseFloat(fields[i-1], 64)
				style.Color = Color{r, g, b}
			}
		case "k":
			if i >= 4 {
				c, _ := strconv.ParseFloat(fields[i-4], 64)
				m, _ := strconv.ParseFloat(fields[i-3], 64)
				y, _ := strconv.ParseFloat(fields[i-2], 64)
				k, _ := strconv.ParseFloat(fields[i-1], 64)
				style.Color = Color{(1 - c) * (1 - k), (1 - m) * (1 - k), (1 - y) * (1 - k)}
			}
		}
	}
	return style
}

// BuildDA renders a FreeTextStyle back into a /DA string, always as RGB
// ("rg"), matching what the engine itself ever writes (it never emits /DA
// in CMYK or grey, only parses those forms defensively on read).
func BuildDA(style FreeTextStyle) string {
	c := style.Color.clamp()
	return fmt.Sprintf("/%s %s Tf %s %s %s rg",
		style.FontName, trimFloat(style.FontSize),
		trimFloat(c.R), trimFloat(c.G), trimFloat(c.B))
}

// opdDSMarker is the ownership marker stamped at the front of every /DS
// this engine writes. Its presence tells a reader that
// /DS was generated by this family of engines and is therefore safe to
// regenerate wholesale from a style edit; a /DS written by some other
// producer (no marker) is left alone except where the op explicitly
// overwrites it regardless (style-flags, paragraph).
const opdDSMarker = "-opd:1"

// fullFontName maps a /DA font key to the full PostScript name embedded
// in /DS's font-family property.
func fullFontName(key string) string {
	switch key {
	case "Helv":
		return "Helvetica"
	case "TiRo":
		return "Times-Roman"
	case "Cour":
		return "Courier"
	case "Symb":
		return "Symbol"
	case "ZaDb":
		return "ZapfDingbats"
	default:
		return "Helvetica"
	}
}

// fontKeyFromFullName is fullFontName's inverse, used when parsing a /DS
// font-family back into the /DA font key ParseDS/FreeTextStyle expose.
func fontKeyFromFullName(name string) string {
	switch name {
	case "Helvetica":
		return "Helv"
	case "Times-Roman":
		return "TiRo"
	case "Courier":
		return "Cour"
	case "Symbol":
		return "Symb"
	case "ZapfDingbats":
		return "ZaDb"
	default:
		return "Helv"
	}
}

// hasOPDMarker reports whether ds carries this engine's ownership marker
// (case-insensitive substring search).
func hasOPDMarker(ds string) bool {
	return strings.Contains(strings.ToLower(ds), opdDSMarker)
}

// clampRange clamps v to [lo,hi], substituting def for NaN/Inf inputs.
func clampRange(v, lo, hi, def float64) float64 {
	if v != v || v > maxFloat || v < -maxFloat {
		return def
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

const maxFloat = 1e308

// BuildDS renders a FreeTextStyle into the /DS default-style string:
// "-opd:1;font-family:<full>;font-size:<S>pt;line-height:<L>;text-indent:
// <I>pt;color:#RRGGBB;text-align:<align>;font-weight:<weight>;font-style:
// <style>;text-decoration:<deco>;".
func BuildDS(style FreeTextStyle) string {
	c := style.Color.clamp()

	align := "left"
	switch style.Alignment {
	case AlignCenter:
		align = "center"
	case AlignRight:
		align = "right"
	}

	weight := "normal"
	if style.Flags&FreeTextBold != 0 {
		weight = "bold"
	}
	fontStyle := "normal"
	if style.Flags&FreeTextItalic != 0 {
		fontStyle = "italic"
	}

	var decoParts []string
	if style.Flags&FreeTextUnderline != 0 {
		decoParts = append(decoParts, "underline")
	}
	if style.Flags&FreeTextStrikethrough != 0 {
		decoParts = append(decoParts, "line-through")
	}
	deco := "none"
	if len(decoParts) > 0 {
		deco = strings.Join(decoParts, " ")
	}

	lineHeight := clampRange(style.LineHeight, minLineHeight, maxLineHeight, defaultLineHeight)
	textIndent := clampRange(style.TextIndent, minTextIndentPt, maxTextIndentPt, defaultTextIndent)

	return fmt.Sprintf(
		"%s;font-family:%s;font-size:%spt;line-height:%s;text-indent:%spt;color:%s;text-align:%s;font-weight:%s;font-style:%s;text-decoration:%s;",
		opdDSMarker, fullFontName(style.FontName), trimFloat(style.FontSize),
		trimFloat(lineHeight), trimFloat(textIndent), hexColor(c), align, weight, fontStyle, deco)
}

// ParseDS parses a /DS default-style string written by BuildDS (or a
// legacy "font: Helvetica 12.0pt; color:#000000;" producer), tolerating
// either declaration separator style. Unknown properties are ignored.
func ParseDS(ds string) FreeTextStyle {
	style := DefaultFreeTextStyle()
	for _, decl := range strings.Split(ds, ";") {
		decl = strings.TrimSpace(decl)
		if decl == "" || decl == opdDSMarker {
			continue
		}
		parts := strings.SplitN(decl, ":", 2)
		if len(parts) != 2 {
			continue
		}
		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])
		switch key {
		case "font":
			// legacy combined "font: <name> <size>pt" property
			fields := strings.Fields(value)
			for _, f := range fields {
				if strings.HasSuffix(f, "pt") {
					if sz, err := strconv.ParseFloat(strings.TrimSuffix(f, "pt"), 64); err == nil {
						style.FontSize = sz
					}
				} else if f != "" {
					style.FontName = fontKeyFromFullName(f)
				}
			}
		case "font-family":
			style.FontName = fontKeyFromFullName(value)
		case "font-size":
			if sz, err := strconv.ParseFloat(strings.TrimSuffix(value, "pt"), 64); err == nil {
				style.FontSize = sz
			}
		case "line-height":
			if lh, err := strconv.ParseFloat(value, 64); err == nil {
				style.LineHeight = lh
			}
		case "text-indent":
			if ti, err := strconv.ParseFloat(strings.TrimSuffix(value, "pt"), 64); err == nil {
				style.TextIndent = ti
			}
		case "color":
			if c, ok := parseHexColor(value); ok {
				style.Color = c
			}
		case "text-align":
			switch value {
			case "center":
				style.Alignment = AlignCenter
			case "right":
				style.Alignment = AlignRight
			default:
				style.Alignment = AlignLeft
			}
		case "font-weight":
			if value == "bold" {
				style.Flags |= FreeTextBold
			}
		case "font-style":
			if value == "italic" {
				style.Flags |= FreeTextItalic
			}
		case "text-decoration":
			if strings.Contains(value, "underline") {
				style.Flags |= FreeTextUnderline
			}
			if strings.Contains(value, "line-through") {
				style.Flags |= FreeTextStrikethrough
			}
		}
	}
	return style
}

func parseHexColor(s string) (Color, bool) {
	s = strings.TrimPrefix(s, "#")
	if len(s) != 6 {
		return Color{}, false
	}
	r, err1 := strconv.ParseUint(s[0:2], 16, 8)
	g, err2 := strconv.ParseUint(s[2:4], 16, 8)
	b, err3 := strconv.ParseUint(s[4:6], 16, 8)
	if err1 != nil || err2 != nil || err3 != nil {
		return Color{}, false
	}
	return Color{float64(r) / 255, float64(g) / 255, float64(b) / 255}, true
}

func hexColor(c Color) string {
	return fmt.Sprintf("#%02x%02x%02x",
		int(c.R*255+0.5), int(c.G*255+0.5), int(c.B*255+0.5))
}

func trimFloat(v float64) string {
	s := strconv.FormatFloat(v, 'f', 3, 64)
	s = strings.TrimRight(s, "0")
	s = strings.TrimSuffix(s, ".")
	if s == "" || s == "-" {
		return "0"
	}
	return s
}

// FreeTextStyle reads the parsed DA/DS/Q/Rotate set off an existing
// FreeText annotation. /DA always supplies font/size/color; /DS supplies
// the flags/alignment-mirror/paragraph fields only when its ownership
// marker is present (an un-marked /DS belongs to some other producer and
// is not trusted for those fields); /Q and /Rotate are read directly
// regardless of /DS.
func (d *Document) FreeTextStyle(pageIndex int, id ObjectID) (FreeTextStyle, error) {
	var style FreeTextStyle
	err := d.withLock(func() error {
		_, pp, err := d.pdfPageHandle(pageIndex)
		if err != nil {
			return err
		}
		annot := bridgeFindAnnotByObjectID(d.ctx, pp, id)
		if annot == nil {
			return fmt.Errorf("ppcore: freetext style: object %s not found", id)
		}
		if bridgeAnnotType(d.ctx, annot) != AnnotFreeText {
			return fmt.Errorf("ppcore: freetext style: object %s is not FREE_TEXT", id)
		}

		if da, ok := bridgeGetDictString(d.ctx, annot, "DA"); ok && da != "" {
			style = ParseDA(da)
		} else {
			style = DefaultFreeTextStyle()
		}

		if ds, ok := bridgeGetDictString(d.ctx, annot, "DS"); ok && ds != "" && hasOPDMarker(ds) {
			dsStyle := ParseDS(ds)
			style.Flags = dsStyle.Flags
			style.Alignment = dsStyle.Alignment
			style.LineHeight = dsStyle.LineHeight
			style.TextIndent = dsStyle.TextIndent
		}

		if q, ok := bridgeGetDictReal(d.ctx, annot, "Q", 0); ok {
			switch int(q) {
			case 1:
				style.Alignment = AlignCenter
			case 2:
				style.Alignment = AlignRight
			default:
				style.Alignment = AlignLeft
			}
		}
		if rot, ok := bridgeGetDictReal(d.ctx, annot, "Rotate", 0); ok {
			style.Rotation = normalizeRotation(int(rot))
		}
		return nil
	})
	return style, err
}

// normalizeRotation folds any integer rotation into [0,360), matching
// pp_pdf_update_freetext_rotation_by_object_id_impl's modulo-then-fixup.
func normalizeRotation(deg int) int {
	deg %= 360
	if deg < 0 {
		deg += 360
	}
	return deg
}

// UpdateFreeTextStyle writes /DA and /Q from style, and unconditionally
// rewrites /DS: font/size/color/flags/alignment/paragraph are bundled into
// one engine-level style edit, and a conditional-on-marker /DS rewrite
// could silently drop a flags change, so /DS always regenerates. /RC is
// left untouched: only UpdateAnnotContents owns dropping stale rich
// content.
func (d *Document) UpdateFreeTextStyle(pageIndex int, id ObjectID, style FreeTextStyle) error {
	return d.withLock(func() error {
		_, pp, err := d.pdfPageHandle(pageIndex)
		if err != nil {
			return err
		}
		annot := bridgeFindAnnotByObjectID(d.ctx, pp, id)
		if annot == nil {
			return fmt.Errorf("ppcore: update freetext style: object %s not found", id)
		}
		if bridgeAnnotType(d.ctx, annot) != AnnotFreeText {
			return fmt.Errorf("ppcore: update freetext style: object %s is not FREE_TEXT", id)
		}

		bridgeSetDictString(d.ctx, d.pdfDoc, annot, "DA", BuildDA(style), true)
		bridgeSetDictString(d.ctx, d.pdfDoc, annot, "DS", BuildDS(style), true)
		bridgeSetDictReal(d.ctx, d.pdfDoc, annot, "Q", float64(style.Alignment))
		bridgeFinishAnnot(d.ctx, pp, annot)

		d.patchFreeTextAppearance(annot)
		d.invalidatePageLocked(pageIndex)
		d.markDirty()
		return nil
	})
}

// UpdateFreeTextAlignment sets /Q alone, syncing /DS's text-align property
// only when /DS already carries this engine's marker, matching
// pp_pdf_update_freetext_alignment_by_object_id_impl.
func (d *Document) UpdateFreeTextAlignment(pageIndex int, id ObjectID, alignment FreeTextAlignment) error {
	return d.withLock(func() error {
		_, pp, err := d.pdfPageHandle(pageIndex)
		if err != nil {
			return err
		}
		annot := bridgeFindAnnotByObjectID(d.ctx, pp, id)
		if annot == nil {
			return fmt.Errorf("ppcore: update freetext alignment: object %s not found", id)
		}
		if bridgeAnnotType(d.ctx, annot) != AnnotFreeText {
			return fmt.Errorf("ppcore: update freetext alignment: object %s is not FREE_TEXT", id)
		}

		bridgeSetDictReal(d.ctx, d.pdfDoc, annot, "Q", float64(alignment))
		if ds, ok := bridgeGetDictString(d.ctx, annot, "DS"); ok && ds != "" && hasOPDMarker(ds) {
			style := ParseDS(ds)
			style.Alignment = alignment
			if da, ok := bridgeGetDictString(d.ctx, annot, "DA"); ok && da != "" {
				daStyle := ParseDA(da)
				style.FontName, style.FontSize, style.Color = daStyle.FontName, daStyle.FontSize, daStyle.Color
			}
			bridgeSetDictString(d.ctx, d.pdfDoc, annot, "DS", BuildDS(style), true)
		}
		bridgeFinishAnnot(d.ctx, pp, annot)

		d.patchFreeTextAppearance(annot)
		d.invalidatePageLocked(pageIndex)
		d.markDirty()
		return nil
	})
}

// UpdateFreeTextRotation sets the private /Rotate key to deg normalized
// into [0,360); it has no /DS interaction, matching
// pp_pdf_update_freetext_rotation_by_object_id_impl.
func (d *Document) UpdateFreeTextRotation(pageIndex int, id ObjectID, deg int) error {
	return d.withLock(func() error {
		_, pp, err := d.pdfPageHandle(pageIndex)
		if err != nil {
			return err
		}
		annot := bridgeFindAnnotByObjectID(d.ctx, pp, id)
		if annot == nil {
			return fmt.Errorf("ppcore: update freetext rotation: object %s not found", id)
		}
		if bridgeAnnotType(d.ctx, annot) != AnnotFreeText {
			return fmt.Errorf("ppcore: update freetext rotation: object %s is not FREE_TEXT", id)
		}

		bridgeSetDictReal(d.ctx, d.pdfDoc, annot, "Rotate", float64(normalizeRotation(deg)))
		bridgeFinishAnnot(d.ctx, pp, annot)

		d.invalidatePageLocked(pageIndex)
		d.markDirty()
		return nil
	})
}

// PDF annotation flag bits, from the PDF specification's /F entry
// (ISO 32000-1 table 165).
const (
	annotFlagLocked         = 1 << 7
	annotFlagLockedContents = 1 << 9
)

// UpdateFreeTextLock sets or clears PDF_ANNOT_IS_LOCKED (and, when
// lockContents is true, PDF_ANNOT_IS_LOCKED_CONTENTS) in /F.
func (d *Document) UpdateFreeTextLock(pageIndex int, id ObjectID, locked, lockContents bool) error {
	return d.withLock(func() error {
		_, pp, err := d.pdfPageHandle(pageIndex)
		if err != nil {
			return err
		}
		annot := bridgeFindAnnotByObjectID(d.ctx, pp, id)
		if annot == nil {
			return fmt.Errorf("ppcore: update freetext lock: object %s not found", id)
		}
		if bridgeAnnotType(d.ctx, annot) != AnnotFreeText {
			return fmt.Errorf("ppcore: update freetext lock: object %s is not FREE_TEXT", id)
		}

		flags := bridgeAnnotFlags(d.ctx, annot)
		flags = setFlagBit(flags, annotFlagLocked, locked)
		flags = setFlagBit(flags, annotFlagLockedContents, lockContents)
		bridgeSetAnnotFlags(d.ctx, annot, flags)
		bridgeFinishAnnot(d.ctx, pp, annot)

		d.invalidatePageLocked(pageIndex)
		d.markDirty()
		return nil
	})
}

func setFlagBit(flags, bit int, set bool) int {
	if set {
		return flags | bit
	}
	return flags &^ bit
}

// UpdateFreeTextParagraph sets line-height/text-indent and unconditionally
// rewrites /DS (regardless of marker presence), matching
// pp_pdf_update_freetext_paragraph_by_object_id_impl.
func (d *Document) UpdateFreeTextParagraph(pageIndex int, id ObjectID, lineHeight, textIndentPt float64) error {
	return d.withLock(func() error {
		_, pp, err := d.pdfPageHandle(pageIndex)
		if err != nil {
			return err
		}
		annot := bridgeFindAnnotByObjectID(d.ctx, pp, id)
		if annot == nil {
			return fmt.Errorf("ppcore: update freetext paragraph: object %s not found", id)
		}
		if bridgeAnnotType(d.ctx, annot) != AnnotFreeText {
			return fmt.Errorf("ppcore: update freetext paragraph: object %s is not FREE_TEXT", id)
		}

		style := DefaultFreeTextStyle()
		if da, ok := bridgeGetDictString(d.ctx, annot, "DA"); ok && da != "" {
			style = ParseDA(da)
		}
		if ds, ok := bridgeGetDictString(d.ctx, annot, "DS"); ok && ds != "" {
			dsStyle := ParseDS(ds)
			style.Flags = dsStyle.Flags
			style.Alignment = dsStyle.Alignment
		}
		style.LineHeight = clampRange(lineHeight, minLineHeight, maxLineHeight, defaultLineHeight)
		style.TextIndent = clampRange(textIndentPt, minTextIndentPt, maxTextIndentPt, defaultTextIndent)

		bridgeSetDictString(d.ctx, d.pdfDoc, annot, "DS", BuildDS(style), true)
		bridgeFinishAnnot(d.ctx, pp, annot)

		d.patchFreeTextAppearance(annot)
		d.invalidatePageLocked(pageIndex)
		d.markDirty()
		return nil
	})
}

// UpdateFreeTextBorder sets the border width/dash/radius a FreeText draws
// via the appearance patcher, clamping width to [0,24] and radius to
// [0,48]. Deletes /AP so the next patch pass redraws with the new border.
func (d *Document) UpdateFreeTextBorder(pageIndex int, id ObjectID, width float64, dashed bool, radius float64) error {
	return d.withLock(func() error {
		_, pp, err := d.pdfPageHandle(pageIndex)
		if err != nil {
			return err
		}
		annot := bridgeFindAnnotByObjectID(d.ctx, pp, id)
		if annot == nil {
			return fmt.Errorf("ppcore: update freetext border: object %s not found", id)
		}
		if bridgeAnnotType(d.ctx, annot) != AnnotFreeText {
			return fmt.Errorf("ppcore: update freetext border: object %s is not FREE_TEXT", id)
		}

		width = clampRange(width, 0, 24, 0)
		radius = clampRange(radius, 0, 48, 0)

		bridgeSetDictReal(d.ctx, d.pdfDoc, annot, "OPDBorderWidth", width)
		bridgeSetDictBool(d.ctx, annot, "OPDBorderDashed", dashed)
		if radius > 0 {
			bridgeSetDictReal(d.ctx, d.pdfDoc, annot, "OPDBorderRadius", radius)
		} else {
			bridgeDelDictKey(d.ctx, annot, "OPDBorderRadius")
		}
		bridgeDelDictKey(d.ctx, annot, "AP")
		bridgeFinishAnnot(d.ctx, pp, annot)

		d.patchFreeTextAppearance(annot)
		d.invalidatePageLocked(pageIndex)
		d.markDirty()
		return nil
	})
}

// captureFreeTextBorderStyleIfMissing snapshots the annotation's existing
// /BS/W (or legacy /Border width) into the engine's private OPDBorderWidth
// key the first time a rect/contents mutation is about to invalidate the
// appearance stream, so later regenerations preserve a border some other
// producer gave the annotation. A borderless annotation is left unstamped:
// an absent key already means "no border" everywhere it is read back. Must
// run before the patcher's border suppression zeroes /BS/W.
func (d *Document) captureFreeTextBorderStyleIfMissing(annot annotHandle) {
	if _, found := bridgeGetDictReal(d.ctx, annot, "OPDBorderWidth", 0); found {
		return
	}
	w := bridgeGetAnnotBorderWidth(d.ctx, annot)
	if w <= 0 {
		return
	}
	bridgeSetDictReal(d.ctx, d.pdfDoc, annot, "OPDBorderWidth", w)
	bridgeSetDictBool(d.ctx, annot, "OPDBorderDashed", false)
}
