package ppcore

import "fmt"

// ListWidgets enumerates every interactive form field on pageIndex, with
// bounds converted to pixel space at the given render resolution.
func (d *Document) ListWidgets(pageIndex, pageW, pageH int) ([]WidgetInfo, error) {
	var out []WidgetInfo
	err := d.withLock(func() error {
		pc, pp, err := d.pdfPageHandle(pageIndex)
		if err != nil {
			return err
		}
		for w := bridgeFirstWidget(d.ctx, pp); w != nil; w = bridgeNextWidget(d.ctx, w) {
			info := WidgetInfo{
				Type:      bridgeWidgetType(d.ctx, w),
				FieldName: bridgeWidgetName(d.ctx, w),
				Signed:    bridgeWidgetIsSigned(d.ctx, w),
			}
			info.Bounds = rectPageToPixel(bridgeBoundWidget(d.ctx, w), pageW, pageH, pc.bounds)
			out = append(out, info)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// WidgetAt returns the field name of the topmost widget whose bounds
// contain a pixel-space point, or an error if none matches.
func (d *Document) WidgetAt(pageIndex int, pixelPt Point, pageW, pageH int) (string, error) {
	var name string
	err := d.withLock(func() error {
		pc, pp, err := d.pdfPageHandle(pageIndex)
		if err != nil {
			return err
		}
		pagePt := pixelToPage(pixelPt, pageW, pageH, pc.bounds)
		w := bridgeFindWidgetByPoint(d.ctx, pp, pagePt)
		if w == nil {
			return fmt.Errorf("ppcore: widget at point: none found")
		}
		name = bridgeWidgetName(d.ctx, w)
		return nil
	})
	if err != nil {
		return "", err
	}
	return name, nil
}

// WidgetValue returns a text/choice widget's current value.
func (d *Document) WidgetValue(pageIndex int, fieldName string) (string, error) {
	var value string
	err := d.withLock(func() error {
		pc, pp, err := d.pdfPageHandle(pageIndex)
		if err != nil {
			return err
		}
		_ = pc
		w, err := d.findWidgetByNameLocked(pp, fieldName)
		if err != nil {
			return err
		}
		value = bridgeWidgetValue(d.ctx, w)
		return nil
	})
	return value, err
}

// SetWidgetText sets a text field's value, re-running appearance
// generation and marking the document dirty.
func (d *Document) SetWidgetText(pageIndex int, fieldName, value string) error {
	return d.withLock(func() error {
		_, pp, err := d.pdfPageHandle(pageIndex)
		if err != nil {
			return err
		}
		w, err := d.findWidgetByNameLocked(pp, fieldName)
		if err != nil {
			return err
		}
		if !bridgeWidgetSetText(d.ctx, w, value) {
			return fmt.Errorf("ppcore: set widget text: rejected for field %q (format/length constraint)", fieldName)
		}
		d.invalidatePageLocked(pageIndex)
		d.markDirty()
		return nil
	})
}

// ClickWidget toggles a checkbox/radio-button widget (push buttons and
// text/choice fields are no-ops here; the platform handles those via
// SetWidgetText/SetWidgetChoice).
func (d *Document) ClickWidget(pageIndex int, fieldName string) error {
	return d.withLock(func() error {
		_, pp, err := d.pdfPageHandle(pageIndex)
		if err != nil {
			return err
		}
		w, err := d.findWidgetByNameLocked(pp, fieldName)
		if err != nil {
			return err
		}
		if !bridgeWidgetToggle(d.ctx, pp, w) {
			return fmt.Errorf("ppcore: click widget: %q is not a checkbox/radio field", fieldName)
		}
		d.invalidatePageLocked(pageIndex)
		d.markDirty()
		return nil
	})
}

// WidgetChoiceOptions returns every selectable option of a listbox/combobox
// field, in the order the field declares them. exportValues selects the
// export value of each option instead of its display label.
func (d *Document) WidgetChoiceOptions(pageIndex int, fieldName string, exportValues bool) ([]string, error) {
	var options []string
	err := d.withLock(func() error {
		_, pp, err := d.pdfPageHandle(pageIndex)
		if err != nil {
			return err
		}
		w, err := d.findWidgetByNameLocked(pp, fieldName)
		if err != nil {
			return err
		}
		if !isChoiceWidget(bridgeWidgetType(d.ctx, w)) {
			return fmt.Errorf("ppcore: choice options: %q is not a listbox/combobox field", fieldName)
		}
		options = bridgeWidgetChoiceOptions(d.ctx, w, exportValues)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return options, nil
}

// WidgetChoiceSelected returns the currently selected values of a
// listbox/combobox field (possibly more than one for multi-select lists).
func (d *Document) WidgetChoiceSelected(pageIndex int, fieldName string) ([]string, error) {
	var selected []string
	err := d.withLock(func() error {
		_, pp, err := d.pdfPageHandle(pageIndex)
		if err != nil {
			return err
		}
		w, err := d.findWidgetByNameLocked(pp, fieldName)
		if err != nil {
			return err
		}
		if !isChoiceWidget(bridgeWidgetType(d.ctx, w)) {
			return fmt.Errorf("ppcore: choice selected: %q is not a listbox/combobox field", fieldName)
		}
		selected = bridgeWidgetChoiceSelected(d.ctx, w)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return selected, nil
}

// SetWidgetChoice replaces the selection of a listbox/combobox field with
// the given values, re-running appearance generation.
func (d *Document) SetWidgetChoice(pageIndex int, fieldName string, values []string) error {
	return d.withLock(func() error {
		_, pp, err := d.pdfPageHandle(pageIndex)
		if err != nil {
			return err
		}
		w, err := d.findWidgetByNameLocked(pp, fieldName)
		if err != nil {
			return err
		}
		if !isChoiceWidget(bridgeWidgetType(d.ctx, w)) {
			return fmt.Errorf("ppcore: set choice: %q is not a listbox/combobox field", fieldName)
		}
		if !bridgeWidgetChoiceSet(d.ctx, pp, w, values) {
			return fmt.Errorf("ppcore: set choice: rejected for field %q", fieldName)
		}
		d.invalidatePageLocked(pageIndex)
		d.markDirty()
		return nil
	})
}

func isChoiceWidget(t WidgetType) bool {
	return t == WidgetListBox || t == WidgetComboBox
}

func (d *Document) findWidgetByNameLocked(pp pageHandle, fieldName string) (widgetHandle, error) {
	for w := bridgeFirstWidget(d.ctx, pp); w != nil; w = bridgeNextWidget(d.ctx, w) {
		if bridgeWidgetName(d.ctx, w) == fieldName {
			return w, nil
		}
	}
	return nil, fmt.Errorf("ppcore: widget %q not found", fieldName)
}
