// This file is the only place in package ppcore that imports "C". Every
// other file in this package works purely in terms of the opaque handle
// types declared in context.go plus the Go-level geometry in
// annot_types.go. The preamble is a small inline C layer over the MuPDF
// headers go-fitz already links, reached by extracting go-fitz's private
// fz_context/fz_document out of a *fitz.Document via reflection; it covers
// the engine surface go-fitz's image-only API does not expose
// (annotations, widgets, alerts, appearance-stream patching, page cache,
// export).
//
//go:build cgo

package ppcore

/*
#cgo CFLAGS: -I${SRCDIR}/../../go-fitz-include
#cgo linux,amd64 LDFLAGS: -L${SRCDIR}/../../go-fitz-libs -lmupdf_linux_amd64 -lmupdfthird_linux_amd64 -lm
#include <mupdf/fitz.h>
#include <mupdf/pdf.h>
#include <stdlib.h>
#include <string.h>

// pp_memmem is a manual byte-search substitute for GNU memmem, which is
// not guaranteed available without _GNU_SOURCE.
static const void *pp_memmem(const void *haystack, size_t hlen, const void *needle, size_t nlen) {
	const unsigned char *h = (const unsigned char *)haystack;
	const unsigned char *n = (const unsigned char *)needle;
	if (nlen == 0 || hlen < nlen) return NULL;
	for (size_t i = 0; i + nlen <= hlen; i++) {
		if (memcmp(h + i, n, nlen) == 0)
			return h + i;
	}
	return NULL;
}

static fz_rect pp_rect(float x0, float y0, float x1, float y1) {
	fz_rect r; r.x0 = x0; r.y0 = y0; r.x1 = x1; r.y1 = y1; return r;
}

static fz_matrix pp_scale(float sx, float sy) { return fz_scale(sx, sy); }

static fz_matrix pp_pre_translate(fz_matrix m, float dx, float dy) {
	return fz_pre_translate(m, dx, dy);
}

static fz_point pp_transform_point(fz_point p, fz_matrix m) {
	return fz_transform_point(p, m);
}

static fz_rect pp_transform_rect(fz_rect r, fz_matrix m) {
	return fz_transform_rect(r, m);
}

static fz_matrix pp_invert_matrix(fz_matrix m) {
	return fz_invert_matrix(m);
}

// ---- cookie ----
//
// The cookie lives in C-allocated memory so the very words MuPDF polls
// during a render are the ones Cookie.Abort writes: an abort from another
// goroutine lands mid-draw, not after the call returns.

static fz_cookie *pp_cookie_alloc(void) {
	return (fz_cookie *)calloc(1, sizeof(fz_cookie));
}

static void pp_cookie_free(fz_cookie *c) { free(c); }

static void pp_cookie_abort(fz_cookie *c) { if (c) c->abort = 1; }

static int pp_cookie_aborted(fz_cookie *c) { return c ? c->abort : 1; }

static void pp_cookie_reset(fz_cookie *c) { if (c) memset(c, 0, sizeof(*c)); }

static int pp_cookie_progress(fz_cookie *c) { return c ? (int)c->progress : 0; }

static void pp_null_warning_cb(void *user, const char *message) {
	(void)user; (void)message;
}

static void pp_suppress_warnings(fz_context *ctx) {
	fz_set_warning_callback(ctx, pp_null_warning_cb, NULL);
}

// ---- page load / bounds / display list ----

static fz_page *pp_load_page(fz_context *ctx, fz_document *doc, int page_index) {
	fz_page *page = NULL;
	fz_try(ctx) { page = fz_load_page(ctx, doc, page_index); }
	fz_catch(ctx) { return NULL; }
	return page;
}

static void pp_drop_page(fz_context *ctx, fz_page *page) {
	fz_drop_page(ctx, page);
}

static fz_rect pp_bound_page(fz_context *ctx, fz_page *page) {
	return fz_bound_page(ctx, page);
}

static fz_display_list *pp_build_display_list(fz_context *ctx, fz_page *page, fz_rect bounds, fz_cookie *cookie) {
	fz_display_list *list = NULL;
	fz_device *dev = NULL;
	fz_var(dev);
	fz_try(ctx) {
		list = fz_new_display_list(ctx, bounds);
		dev = fz_new_list_device(ctx, list);
		fz_run_page_contents(ctx, page, dev, fz_identity, cookie);
		fz_run_page_annots(ctx, page, dev, fz_identity, cookie);
		fz_run_page_widgets(ctx, page, dev, fz_identity, cookie);
		fz_close_device(ctx, dev);
	}
	fz_always(ctx) {
		if (dev) fz_drop_device(ctx, dev);
	}
	fz_catch(ctx) {
		if (list) { fz_drop_display_list(ctx, list); list = NULL; }
	}
	// an aborted build is partial; caching it would replay truncated content
	if (list && cookie && cookie->abort) {
		fz_drop_display_list(ctx, list);
		list = NULL;
	}
	return list;
}

static void pp_drop_display_list(fz_context *ctx, fz_display_list *list) {
	fz_drop_display_list(ctx, list);
}

// ---- render ----

static int pp_render_patch(fz_context *ctx, fz_page *page, fz_display_list *list,
                           int pageW, int pageH, fz_rect page_bounds,
                           int patchX, int patchY, int patchW, int patchH,
                           unsigned char *rgba, int stride, fz_cookie *cookie, int render_annots) {
	fz_pixmap *pix = NULL;
	fz_device *dev = NULL;
	int ok = 0;
	int row_pixels;
	fz_matrix ctm;
	float page_w, page_h;

	(void)patchW;
	if (!rgba || pageW <= 0 || pageH <= 0 || patchH <= 0 || stride <= 0 || (stride & 3) != 0)
		return 0;
	row_pixels = stride / 4;

	page_w = page_bounds.x1 - page_bounds.x0;
	page_h = page_bounds.y1 - page_bounds.y0;
	if (page_w <= 0 || page_h <= 0)
		return 0;

	ctm = pp_scale((float)pageW / page_w, (float)pageH / page_h);
	ctm = pp_pre_translate(ctm, -page_bounds.x0, -page_bounds.y0);

	fz_var(pix);
	fz_var(dev);
	fz_try(ctx) {
		fz_irect bbox;
		bbox.x0 = patchX; bbox.y0 = patchY;
		bbox.x1 = patchX + row_pixels; bbox.y1 = patchY + patchH;

		pix = fz_new_pixmap_with_bbox_and_data(ctx, fz_device_rgb(ctx), bbox, NULL, 1, rgba);
		fz_clear_pixmap_with_value(ctx, pix, 255);
		dev = fz_new_draw_device(ctx, fz_identity, pix);

		if (list) {
			fz_rect scissor;
			scissor.x0 = (float)bbox.x0; scissor.y0 = (float)bbox.y0;
			scissor.x1 = (float)bbox.x1; scissor.y1 = (float)bbox.y1;
			fz_run_display_list(ctx, list, dev, ctm, scissor, cookie);
		} else {
			fz_run_page_contents(ctx, page, dev, ctm, cookie);
			if (render_annots) fz_run_page_annots(ctx, page, dev, ctm, cookie);
			fz_run_page_widgets(ctx, page, dev, ctm, cookie);
		}
		fz_close_device(ctx, dev);

		ok = (cookie && cookie->abort) ? 0 : 1;
	}
	fz_always(ctx) {
		if (dev) fz_drop_device(ctx, dev);
		if (pix) fz_drop_pixmap(ctx, pix);
	}
	fz_catch(ctx) {
		ok = 0;
	}
	return ok;
}

// ---- text / search ----

static char *pp_page_text_utf8(fz_context *ctx, fz_page *page, fz_rect bounds) {
	fz_stext_page *text = NULL;
	fz_device *dev = NULL;
	fz_buffer *buf = NULL;
	fz_output *out = NULL;
	char *result = NULL;
	fz_var(text); fz_var(dev); fz_var(buf); fz_var(out);

	fz_try(ctx) {
		text = fz_new_stext_page(ctx, bounds);
		dev = fz_new_stext_device(ctx, text, NULL);
		fz_run_page_contents(ctx, page, dev, fz_identity, NULL);
		fz_run_page_annots(ctx, page, dev, fz_identity, NULL);
		fz_close_device(ctx, dev);
		fz_drop_device(ctx, dev); dev = NULL;

		buf = fz_new_buffer(ctx, 256);
		out = fz_new_output_with_buffer(ctx, buf);
		fz_print_stext_page_as_text(ctx, out, text);
		fz_close_output(ctx, out);

		unsigned char *data = NULL;
		size_t len = fz_buffer_storage(ctx, buf, &data);
		result = malloc(len + 1);
		if (len > 0 && data) memcpy(result, data, len);
		result[len] = '\0';
	}
	fz_always(ctx) {
		if (out) fz_drop_output(ctx, out);
		if (buf) fz_drop_buffer(ctx, buf);
		if (dev) fz_drop_device(ctx, dev);
		if (text) fz_drop_stext_page(ctx, text);
	}
	fz_catch(ctx) {
		if (result) { free(result); result = NULL; }
	}
	return result;
}

static char *pp_page_text_html(fz_context *ctx, fz_page *page, fz_rect bounds, int page_index) {
	fz_stext_page *text = NULL;
	fz_device *dev = NULL;
	fz_buffer *buf = NULL;
	fz_output *out = NULL;
	char *result = NULL;
	fz_var(text); fz_var(dev); fz_var(buf); fz_var(out);

	fz_try(ctx) {
		text = fz_new_stext_page(ctx, bounds);
		dev = fz_new_stext_device(ctx, text, NULL);
		fz_run_page_contents(ctx, page, dev, fz_identity, NULL);
		fz_run_page_annots(ctx, page, dev, fz_identity, NULL);
		fz_close_device(ctx, dev);
		fz_drop_device(ctx, dev); dev = NULL;

		buf = fz_new_buffer(ctx, 1024);
		out = fz_new_output_with_buffer(ctx, buf);
		fz_print_stext_header_as_html(ctx, out);
		fz_print_stext_page_as_html(ctx, out, text, page_index);
		fz_print_stext_trailer_as_html(ctx, out);
		fz_close_output(ctx, out);

		unsigned char *data = NULL;
		size_t len = fz_buffer_storage(ctx, buf, &data);
		result = malloc(len + 1);
		if (len > 0 && data) memcpy(result, data, len);
		result[len] = '\0';
	}
	fz_always(ctx) {
		if (out) fz_drop_output(ctx, out);
		if (buf) fz_drop_buffer(ctx, buf);
		if (dev) fz_drop_device(ctx, dev);
		if (text) fz_drop_stext_page(ctx, text);
	}
	fz_catch(ctx) {
		if (result) { free(result); result = NULL; }
	}
	return result;
}

#define PP_MAX_HITS 512

static int pp_search_page(fz_context *ctx, fz_page *page, fz_rect bounds, const char *needle,
                          fz_rect *out_rects, int max_hits) {
	fz_stext_page *text = NULL;
	fz_device *dev = NULL;
	fz_quad *quads = NULL;
	int hit_count = -1;
	fz_var(text); fz_var(dev); fz_var(quads);

	if (max_hits > PP_MAX_HITS) max_hits = PP_MAX_HITS;

	fz_try(ctx) {
		text = fz_new_stext_page(ctx, bounds);
		dev = fz_new_stext_device(ctx, text, NULL);
		fz_run_page_contents(ctx, page, dev, fz_identity, NULL);
		fz_run_page_annots(ctx, page, dev, fz_identity, NULL);
		fz_close_device(ctx, dev);
		fz_drop_device(ctx, dev); dev = NULL;

		quads = malloc(sizeof(fz_quad) * (size_t)max_hits);
		hit_count = fz_search_stext_page(ctx, text, needle, NULL, quads, max_hits);
		for (int i = 0; i < hit_count; i++)
			out_rects[i] = fz_rect_from_quad(quads[i]);
	}
	fz_always(ctx) {
		if (quads) free(quads);
		if (dev) fz_drop_device(ctx, dev);
		if (text) fz_drop_stext_page(ctx, text);
	}
	fz_catch(ctx) {
		hit_count = -1;
	}
	return hit_count;
}

// ---- PDF specifics / annotation plumbing ----

static pdf_document *pp_pdf_specifics(fz_context *ctx, fz_document *doc) {
	return pdf_specifics(ctx, doc);
}

static pdf_page *pp_pdf_page_from_page(fz_context *ctx, fz_page *page) {
	return pdf_page_from_fz_page(ctx, page);
}

static fz_matrix pp_page_to_pdf_ctm(fz_context *ctx, pdf_page *page) {
	fz_rect mediabox;
	fz_matrix ctm;
	pdf_page_transform(ctx, page, &mediabox, &ctm);
	return pp_invert_matrix(ctm);
}

static fz_matrix pp_pdf_to_page_ctm(fz_context *ctx, pdf_page *page) {
	fz_rect mediabox;
	fz_matrix ctm;
	pdf_page_transform(ctx, page, &mediabox, &ctm);
	return ctm;
}

static pdf_annot *pp_create_annot(fz_context *ctx, pdf_page *page, int type) {
	pdf_annot *annot = NULL;
	fz_try(ctx) { annot = pdf_create_annot(ctx, page, (enum pdf_annot_type)type); }
	fz_catch(ctx) { return NULL; }
	return annot;
}

static void pp_finish_annot(fz_context *ctx, pdf_page *page, pdf_annot *annot) {
	pdf_dirty_annot(ctx, annot);
	pdf_update_annot(ctx, annot);
	pdf_update_page(ctx, page);
}

static void pp_set_annot_color(fz_context *ctx, pdf_document *doc, pdf_annot *annot, float r, float g, float b, float opacity) {
	pdf_obj *obj = pdf_annot_obj(ctx, annot);
	if (!obj) return;
	pdf_obj *col = pdf_new_array(ctx, doc, 3);
	pdf_dict_puts_drop(ctx, obj, "C", col);
	pdf_array_push_drop(ctx, col, pdf_new_real(ctx, r));
	pdf_array_push_drop(ctx, col, pdf_new_real(ctx, g));
	pdf_array_push_drop(ctx, col, pdf_new_real(ctx, b));

	if (opacity < 0) opacity = 0;
	if (opacity > 1) opacity = 1;
	if (opacity < 1.0f) {
		pdf_dict_puts_drop(ctx, obj, "CA", pdf_new_real(ctx, opacity));
		pdf_dict_puts_drop(ctx, obj, "ca", pdf_new_real(ctx, opacity));
	} else {
		pdf_dict_dels(ctx, obj, "CA");
		pdf_dict_dels(ctx, obj, "ca");
	}
}

static void pp_set_annot_interior_color(fz_context *ctx, pdf_document *doc, pdf_annot *annot, int has, float r, float g, float b) {
	pdf_obj *obj = pdf_annot_obj(ctx, annot);
	if (!obj) return;
	if (!has) { pdf_dict_dels(ctx, obj, "IC"); return; }
	pdf_obj *col = pdf_new_array(ctx, doc, 3);
	pdf_dict_puts_drop(ctx, obj, "IC", col);
	pdf_array_push_drop(ctx, col, pdf_new_real(ctx, r));
	pdf_array_push_drop(ctx, col, pdf_new_real(ctx, g));
	pdf_array_push_drop(ctx, col, pdf_new_real(ctx, b));
}

static void pp_set_annot_quadpoints(fz_context *ctx, pdf_annot *annot, const float *coords, int quad_count) {
	fz_quad *qv = malloc(sizeof(fz_quad) * (size_t)quad_count);
	for (int i = 0; i < quad_count; i++) {
		qv[i].ul.x = coords[i*8+0]; qv[i].ul.y = coords[i*8+1];
		qv[i].ur.x = coords[i*8+2]; qv[i].ur.y = coords[i*8+3];
		qv[i].ll.x = coords[i*8+4]; qv[i].ll.y = coords[i*8+5];
		qv[i].lr.x = coords[i*8+6]; qv[i].lr.y = coords[i*8+7];
	}
	pdf_set_annot_quad_points(ctx, annot, quad_count, qv);
	free(qv);
}

static void pp_set_annot_rect(fz_context *ctx, pdf_annot *annot, float x0, float y0, float x1, float y1) {
	pdf_set_annot_rect(ctx, annot, pp_rect(x0, y0, x1, y1));
}

// pp_set_annot_border_width writes /BS<</W w>> and mirrors w into the
// legacy /Border array's width slot, so viewers that only understand the
// pre-BS /Border convention still see the right stroke weight.
static void pp_set_annot_border_width(fz_context *ctx, pdf_document *doc, pdf_annot *annot, float w) {
	pdf_obj *obj = pdf_annot_obj(ctx, annot);
	if (!obj) return;
	pdf_obj *bs = pdf_dict_gets(ctx, obj, "BS");
	if (!bs || !pdf_is_dict(ctx, bs)) {
		bs = pdf_new_dict(ctx, doc, 2);
		pdf_dict_puts_drop(ctx, obj, "BS", bs);
	}
	pdf_dict_puts_drop(ctx, bs, "W", pdf_new_real(ctx, w));

	pdf_obj *border = pdf_dict_gets(ctx, obj, "Border");
	if (border && pdf_is_array(ctx, border) && pdf_array_len(ctx, border) >= 3) {
		pdf_array_put_drop(ctx, border, 2, pdf_new_real(ctx, w));
	}
}

// pp_get_annot_border_width reads /BS/W, falling back to the legacy
// /Border array's width slot; 0 when neither is present.
static float pp_get_annot_border_width(fz_context *ctx, pdf_annot *annot) {
	pdf_obj *obj = pdf_annot_obj(ctx, annot);
	if (!obj) return 0;
	pdf_obj *bs = pdf_dict_gets(ctx, obj, "BS");
	if (bs && pdf_is_dict(ctx, bs)) {
		pdf_obj *w = pdf_dict_gets(ctx, bs, "W");
		if (w) return pdf_to_real(ctx, w);
	}
	pdf_obj *border = pdf_dict_gets(ctx, obj, "Border");
	if (border && pdf_is_array(ctx, border) && pdf_array_len(ctx, border) >= 3)
		return pdf_to_real(ctx, pdf_array_get(ctx, border, 2));
	return 0;
}

static fz_rect pp_bound_annot(fz_context *ctx, pdf_annot *annot) {
	return pdf_bound_annot(ctx, annot);
}

static void pp_set_annot_contents(fz_context *ctx, pdf_annot *annot, const char *text) {
	pdf_set_annot_contents(ctx, annot, text ? text : "");
}

static char *pp_annot_contents(fz_context *ctx, pdf_annot *annot) {
	const char *t = pdf_annot_contents(ctx, annot);
	return t ? strdup(t) : NULL;
}

static long long pp_annot_object_id(fz_context *ctx, pdf_annot *annot) {
	pdf_obj *obj = pdf_annot_obj(ctx, annot);
	if (!obj) return -1;
	int num = pdf_to_num(ctx, obj);
	if (num <= 0) return -1;
	int gen = pdf_to_gen(ctx, obj);
	return (((long long)num) << 32) | (long long)((unsigned int)gen);
}

static pdf_annot *pp_find_annot_by_object_id(fz_context *ctx, pdf_page *page, long long object_id) {
	for (pdf_annot *a = pdf_first_annot(ctx, page); a; a = pdf_next_annot(ctx, a)) {
		if (pp_annot_object_id(ctx, a) == object_id)
			return a;
	}
	return NULL;
}

static void pp_set_dict_string(fz_context *ctx, pdf_document *doc, pdf_annot *annot, const char *key, const char *value) {
	pdf_obj *obj = pdf_annot_obj(ctx, annot);
	if (!obj) return;
	if (!value) { pdf_dict_dels(ctx, obj, key); return; }
	pdf_dict_puts_drop(ctx, obj, key, pdf_new_string(ctx, value, (int)strlen(value)));
}

static char *pp_get_dict_string(fz_context *ctx, pdf_annot *annot, const char *key) {
	pdf_obj *obj = pdf_annot_obj(ctx, annot);
	if (!obj) return NULL;
	pdf_obj *v = pdf_dict_gets(ctx, obj, key);
	if (!v) return NULL;
	const char *s = pdf_to_text_string(ctx, v);
	return s ? strdup(s) : NULL;
}

static void pp_set_dict_real(fz_context *ctx, pdf_document *doc, pdf_annot *annot, const char *key, float value) {
	pdf_obj *obj = pdf_annot_obj(ctx, annot);
	if (!obj) return;
	pdf_dict_puts_drop(ctx, obj, key, pdf_new_real(ctx, value));
}

static float pp_get_dict_real(fz_context *ctx, pdf_annot *annot, const char *key, float fallback, int *found) {
	pdf_obj *obj = pdf_annot_obj(ctx, annot);
	pdf_obj *v = obj ? pdf_dict_gets(ctx, obj, key) : NULL;
	if (!v) { if (found) *found = 0; return fallback; }
	if (found) *found = 1;
	return pdf_to_real(ctx, v);
}

static void pp_set_dict_bool(fz_context *ctx, pdf_annot *annot, const char *key, int value) {
	pdf_obj *obj = pdf_annot_obj(ctx, annot);
	if (!obj) return;
	pdf_dict_puts_drop(ctx, obj, key, pdf_new_bool(ctx, value));
}

static int pp_get_dict_bool(fz_context *ctx, pdf_annot *annot, const char *key, int fallback) {
	pdf_obj *obj = pdf_annot_obj(ctx, annot);
	pdf_obj *v = obj ? pdf_dict_gets(ctx, obj, key) : NULL;
	if (!v) return fallback;
	return pdf_to_bool(ctx, v);
}

static void pp_del_dict_key(fz_context *ctx, pdf_annot *annot, const char *key) {
	pdf_obj *obj = pdf_annot_obj(ctx, annot);
	if (obj) pdf_dict_dels(ctx, obj, key);
}

static int pp_annot_flags(fz_context *ctx, pdf_annot *annot) {
	return pdf_annot_flags(ctx, annot);
}

static void pp_set_annot_flags(fz_context *ctx, pdf_annot *annot, int flags) {
	pdf_set_annot_flags(ctx, annot, flags);
}

// ---- appearance stream access ----

static fz_rect pp_annot_ap_bbox(fz_context *ctx, pdf_annot *annot, int *ok) {
	fz_rect bbox = fz_empty_rect;
	*ok = 0;
	pdf_obj *obj = pdf_annot_obj(ctx, annot);
	if (!obj) return bbox;
	pdf_obj *ap = pdf_dict_gets(ctx, obj, "AP");
	pdf_obj *n = ap ? pdf_dict_gets(ctx, ap, "N") : NULL;
	if (pdf_is_dict(ctx, n) && !pdf_is_stream(ctx, n)) {
		pdf_obj *as = pdf_dict_gets(ctx, obj, "AS");
		pdf_obj *chosen = as ? pdf_dict_get(ctx, n, as) : NULL;
		if (!chosen && pdf_dict_len(ctx, n) > 0)
			chosen = pdf_dict_get_val(ctx, n, 0);
		n = chosen;
	}
	if (!n || !pdf_is_stream(ctx, n)) return bbox;
	pdf_obj *bb = pdf_dict_gets(ctx, n, "BBox");
	if (bb) {
		bbox = pdf_to_rect(ctx, bb);
	} else {
		bbox = pdf_bound_annot(ctx, annot);
	}
	*ok = 1;
	return bbox;
}

static int pp_annot_ap_has_opacity_gstate(fz_context *ctx, pdf_annot *annot) {
	pdf_obj *obj = pdf_annot_obj(ctx, annot);
	pdf_obj *ap = obj ? pdf_dict_gets(ctx, obj, "AP") : NULL;
	pdf_obj *n = ap ? pdf_dict_gets(ctx, ap, "N") : NULL;
	if (!n) return 0;
	pdf_obj *res = pdf_dict_gets(ctx, n, "Resources");
	pdf_obj *eg = res ? pdf_dict_gets(ctx, res, "ExtGState") : NULL;
	pdf_obj *h = eg ? pdf_dict_gets(ctx, eg, "H") : NULL;
	return h ? 1 : 0;
}

// pp_patch_annot_ap rewrites (or prepends, first time) the %OPD_AP_PATCH
// prologue at the front of the annotation's normal-appearance content
// stream. prefix/prefix_len is the already-built patch (see
// freetext_appearance.go); this C helper only owns the read-splice-write of
// the underlying stream object.
static int pp_patch_annot_ap(fz_context *ctx, pdf_document *doc, pdf_annot *annot, const char *prefix, int prefix_len) {
	pdf_obj *obj = pdf_annot_obj(ctx, annot);
	if (!obj) return 0;
	pdf_obj *ap = pdf_dict_gets(ctx, obj, "AP");
	pdf_obj *n = ap ? pdf_dict_gets(ctx, ap, "N") : NULL;
	if (pdf_is_dict(ctx, n) && !pdf_is_stream(ctx, n)) {
		pdf_obj *as = pdf_dict_gets(ctx, obj, "AS");
		pdf_obj *chosen = as ? pdf_dict_get(ctx, n, as) : NULL;
		if (!chosen && pdf_dict_len(ctx, n) > 0)
			chosen = pdf_dict_get_val(ctx, n, 0);
		n = chosen;
	}
	if (!n || !pdf_is_stream(ctx, n)) return 0;

	int ok = 0;
	fz_buffer *orig = NULL;
	fz_buffer *next = NULL;
	fz_var(orig); fz_var(next);
	fz_try(ctx) {
		orig = pdf_load_stream(ctx, n);
		unsigned char *data = NULL;
		size_t len = fz_buffer_storage(ctx, orig, &data);

		size_t skip = 0;
		const char *marker1 = "%OPD_AP_PATCH";
		const char *marker2 = "%OPD_BG_FILL";
		size_t scanlen = len < 64 ? len : 64;
		const void *hit = pp_memmem(data, scanlen, marker1, strlen(marker1));
		if (!hit) hit = pp_memmem(data, scanlen, marker2, strlen(marker2));
		if (hit) {
			const void *qend = pp_memmem(data, len, "\nQ\n", 3);
			if (qend) skip = ((const unsigned char *)qend - data) + 3;
		}

		next = fz_new_buffer(ctx, len - skip + (size_t)prefix_len + 1);
		fz_append_data(ctx, next, prefix, (size_t)prefix_len);
		fz_append_data(ctx, next, data + skip, len - skip);

		pdf_update_stream(ctx, doc, n, next, 0);
		ok = 1;
	}
	fz_always(ctx) {
		if (orig) fz_drop_buffer(ctx, orig);
		if (next) fz_drop_buffer(ctx, next);
	}
	fz_catch(ctx) {
		ok = 0;
	}
	return ok;
}

// ---- enumeration ----

static int pp_annot_type(fz_context *ctx, pdf_annot *annot) {
	return (int)pdf_annot_type(ctx, annot);
}

static int pp_annot_inklist_arc_count(fz_context *ctx, pdf_annot *annot) {
	pdf_obj *obj = pdf_annot_obj(ctx, annot);
	pdf_obj *il = obj ? pdf_dict_gets(ctx, obj, "InkList") : NULL;
	if (!il || !pdf_is_array(ctx, il)) return 0;
	return pdf_array_len(ctx, il);
}

static int pp_annot_inklist_arc_point_count(fz_context *ctx, pdf_annot *annot, int arc_index) {
	pdf_obj *obj = pdf_annot_obj(ctx, annot);
	pdf_obj *il = obj ? pdf_dict_gets(ctx, obj, "InkList") : NULL;
	pdf_obj *arc = il ? pdf_array_get(ctx, il, arc_index) : NULL;
	if (!arc || !pdf_is_array(ctx, arc)) return 0;
	return pdf_array_len(ctx, arc) / 2;
}

static void pp_annot_inklist_arc_point(fz_context *ctx, pdf_annot *annot, int arc_index, int point_index, float *x, float *y) {
	pdf_obj *obj = pdf_annot_obj(ctx, annot);
	pdf_obj *il = obj ? pdf_dict_gets(ctx, obj, "InkList") : NULL;
	pdf_obj *arc = il ? pdf_array_get(ctx, il, arc_index) : NULL;
	*x = pdf_to_real(ctx, pdf_array_get(ctx, arc, point_index*2+0));
	*y = pdf_to_real(ctx, pdf_array_get(ctx, arc, point_index*2+1));
}

static void pp_set_annot_inklist(fz_context *ctx, pdf_document *doc, pdf_annot *annot,
                                 const int *arc_counts, int arc_count,
                                 const float *pdf_points) {
	pdf_obj *obj = pdf_annot_obj(ctx, annot);
	if (!obj) return;
	pdf_obj *inklist = pdf_new_array(ctx, doc, arc_count);
	int cursor = 0;
	for (int a = 0; a < arc_count; a++) {
		int n = arc_counts[a];
		pdf_obj *arc = pdf_new_array(ctx, doc, n*2);
		for (int p = 0; p < n; p++) {
			pdf_array_push_drop(ctx, arc, pdf_new_real(ctx, pdf_points[cursor*2+0]));
			pdf_array_push_drop(ctx, arc, pdf_new_real(ctx, pdf_points[cursor*2+1]));
			cursor++;
		}
		pdf_array_push_drop(ctx, inklist, arc);
	}
	pdf_dict_puts_drop(ctx, obj, "InkList", inklist);
}

// ---- widgets ----

static pdf_annot *pp_first_widget(fz_context *ctx, pdf_page *page) { return pdf_first_widget(ctx, page); }
static pdf_annot *pp_next_widget(fz_context *ctx, pdf_annot *w) { return pdf_next_widget(ctx, w); }
static int pp_widget_type(fz_context *ctx, pdf_annot *w) { return (int)pdf_widget_type(ctx, w); }
static fz_rect pp_bound_widget(fz_context *ctx, pdf_annot *w) { return pdf_bound_widget(ctx, w); }

static char *pp_widget_name(fz_context *ctx, pdf_annot *w) {
	pdf_obj *obj = pdf_annot_obj(ctx, w);
	if (!obj) return NULL;
	char *name = pdf_load_field_name(ctx, obj);
	if (!name) return NULL;
	char *dup = strdup(name);
	fz_free(ctx, name);
	return dup;
}

static char *pp_widget_value(fz_context *ctx, pdf_annot *w) {
	const char *v = pdf_annot_field_value(ctx, w);
	return strdup(v ? v : "");
}

static int pp_widget_set_text(fz_context *ctx, pdf_annot *w, const char *value) {
	int changed = 0;
	fz_try(ctx) { changed = pdf_set_text_field_value(ctx, w, value ? value : ""); }
	fz_catch(ctx) { changed = 0; }
	return changed;
}

static int pp_widget_is_signed(fz_context *ctx, pdf_annot *w) {
	pdf_obj *obj = pdf_annot_obj(ctx, w);
	if (!obj) return 0;
	pdf_obj *v = pdf_dict_gets(ctx, obj, "V");
	if (!v) return 0;
	return pdf_dict_gets(ctx, v, "ByteRange") ? 1 : 0;
}

static pdf_annot *pp_find_widget_by_point(fz_context *ctx, pdf_page *page, fz_matrix page_to_pix, float x, float y) {
	for (pdf_annot *w = pdf_first_widget(ctx, page); w; w = pdf_next_widget(ctx, w)) {
		fz_rect r = pp_transform_rect(pdf_bound_widget(ctx, w), page_to_pix);
		if (x >= r.x0 && x <= r.x1 && y >= r.y0 && y <= r.y1)
			return w;
	}
	return NULL;
}

static int pp_widget_choice_options(fz_context *ctx, pdf_annot *w, int export_val, const char **opts, int max) {
	int n = 0;
	fz_try(ctx) {
		n = pdf_choice_widget_options(ctx, w, export_val, NULL);
		if (opts && n > 0) {
			if (n > max) n = max;
			pdf_choice_widget_options(ctx, w, export_val, opts);
		}
	}
	fz_catch(ctx) { n = 0; }
	return n;
}

static int pp_widget_choice_selected(fz_context *ctx, pdf_annot *w, const char **opts, int max) {
	int n = 0;
	fz_try(ctx) {
		n = pdf_choice_widget_value(ctx, w, NULL);
		if (opts && n > 0) {
			if (n > max) n = max;
			pdf_choice_widget_value(ctx, w, opts);
		}
	}
	fz_catch(ctx) { n = 0; }
	return n;
}

static int pp_widget_choice_set(fz_context *ctx, pdf_page *page, pdf_annot *w, int n, const char **opts) {
	int ok = 0;
	fz_try(ctx) {
		pdf_choice_widget_set_value(ctx, w, n, (const char **)opts);
		pdf_update_page(ctx, page);
		ok = 1;
	}
	fz_catch(ctx) { ok = 0; }
	return ok;
}

static int pp_widget_toggle(fz_context *ctx, pdf_page *page, pdf_annot *w) {
	int type = (int)pdf_widget_type(ctx, w);
	if (type != PDF_WIDGET_TYPE_CHECKBOX && type != PDF_WIDGET_TYPE_RADIOBUTTON)
		return 0;
	int changed = 0;
	fz_try(ctx) { changed = pdf_toggle_widget(ctx, w); }
	fz_catch(ctx) { changed = 0; }
	if (changed) pdf_update_page(ctx, page);
	return changed;
}

// ---- save / export ----

// ---- JS alert rendezvous ----
//
// pp_alert_trampoline is the C side of the alert rendezvous: MuPDF's
// document-level JS engine calls it synchronously (on whatever goroutine is
// currently holding the context lock and driving JS), blocking until it
// returns with the user's chosen button. The actual wait/notify logic lives
// in Go (alerts.go, sync.Mutex/Cond) reached through goAlertDeliver, a
// cgo-exported function keyed by a runtime/cgo.Handle threaded through as
// the callback's opaque user data.
extern int goAlertDeliver(void *handle, char *message, int button_group_type);

static void pp_alert_event_cb(fz_context *ctx, pdf_document *doc, pdf_doc_event *evt, void *data) {
	(void)ctx; (void)doc;
	if (pdf_doc_event_type(ctx, evt) != PDF_DOCUMENT_EVENT_ALERT)
		return;
	pdf_alert_event *alert = pdf_access_alert_event(ctx, evt);
	if (!alert) return;
	int pressed = goAlertDeliver(data, (char *)alert->message, (int)alert->button_group_type);
	alert->button_pressed = pressed;
}

static void pp_register_alert_callback(fz_context *ctx, pdf_document *doc, void *handle) {
	pdf_set_doc_event_callback(ctx, doc, pp_alert_event_cb, handle);
}

static int pp_save_document(fz_context *ctx, pdf_document *doc, const char *path, int incremental) {
	int ok = 0;
	fz_try(ctx) {
		pdf_write_options opts = pdf_default_write_options;
		opts.do_incremental = incremental ? 1 : 0;
		pdf_save_document(ctx, doc, path, &opts);
		ok = 1;
	}
	fz_catch(ctx) { ok = 0; }
	return ok;
}

static int pp_export_flattened(fz_context *ctx, fz_document *src, const char *path, int dpi) {
	pdf_document *out = NULL;
	int ok = 0;
	float scale = (float)dpi / 72.0f;
	fz_var(out);

	fz_try(ctx) {
		int count = fz_count_pages(ctx, src);
		out = pdf_create_document(ctx);
		for (int i = 0; i < count; i++) {
			fz_page *page = NULL;
			fz_pixmap *pix = NULL;
			fz_device *draw_dev = NULL;
			fz_image *img = NULL;
			pdf_obj *resources = NULL;
			fz_buffer *contents = NULL;
			pdf_obj *page_obj = NULL;
			fz_device *pdf_dev = NULL;
			fz_var(page); fz_var(pix); fz_var(draw_dev); fz_var(img);
			fz_var(resources); fz_var(contents); fz_var(page_obj); fz_var(pdf_dev);

			fz_try(ctx) {
				page = fz_load_page(ctx, src, i);
				fz_rect bounds = fz_bound_page(ctx, page);
				float pw = bounds.x1 - bounds.x0, ph = bounds.y1 - bounds.y0;
				fz_matrix ctm = pp_pre_translate(pp_scale(scale, scale), -bounds.x0, -bounds.y0);
				fz_irect bbox = fz_round_rect(pp_rect(0, 0, pw*scale, ph*scale));

				pix = fz_new_pixmap_with_bbox(ctx, fz_device_rgb(ctx), bbox, NULL, 1);
				fz_clear_pixmap_with_value(ctx, pix, 255);
				draw_dev = fz_new_draw_device(ctx, fz_identity, pix);
				fz_run_page_contents(ctx, page, draw_dev, ctm, NULL);
				fz_run_page_annots(ctx, page, draw_dev, ctm, NULL);
				fz_run_page_widgets(ctx, page, draw_dev, ctm, NULL);
				fz_close_device(ctx, draw_dev);

				img = fz_new_image_from_pixmap(ctx, pix, NULL);
				fz_rect out_rect = pp_rect(0, 0, pw, ph);
				pdf_dev = pdf_page_write(ctx, out, out_rect, &resources, &contents);
				fz_matrix img_ctm = pp_scale(pw, ph);
				fz_fill_image(ctx, pdf_dev, img, img_ctm, 1.0f, fz_default_color_params);
				fz_close_device(ctx, pdf_dev);

				page_obj = pdf_add_page(ctx, out, out_rect, 0, resources, contents);
				pdf_insert_page(ctx, out, -1, page_obj);
			}
			fz_always(ctx) {
				if (pdf_dev) fz_drop_device(ctx, pdf_dev);
				if (page_obj) pdf_drop_obj(ctx, page_obj);
				if (resources) pdf_drop_obj(ctx, resources);
				if (contents) fz_drop_buffer(ctx, contents);
				if (img) fz_drop_image(ctx, img);
				if (draw_dev) fz_drop_device(ctx, draw_dev);
				if (pix) fz_drop_pixmap(ctx, pix);
				if (page) fz_drop_page(ctx, page);
			}
			fz_catch(ctx) { fz_rethrow(ctx); }
		}

		pdf_write_options opts = pdf_default_write_options;
		pdf_save_document(ctx, out, path, &opts);
		ok = 1;
	}
	fz_always(ctx) {
		if (out) fz_drop_document(ctx, (fz_document *)out);
	}
	fz_catch(ctx) { ok = 0; }
	return ok;
}
*/
import "C"

import (
	"fmt"
	"runtime/cgo"
	"unsafe"
)

func bridgeSuppressWarnings(ctx ctxHandle) {
	C.pp_suppress_warnings((*C.fz_context)(ctx))
}

func bridgeLoadPage(ctx ctxHandle, doc docHandle, pageIndex int) (pageHandle, Rect, error) {
	page := C.pp_load_page((*C.fz_context)(ctx), (*C.fz_document)(doc), C.int(pageIndex))
	if page == nil {
		return nil, Rect{}, fmt.Errorf("ppcore: load page %d failed", pageIndex)
	}
	bounds := C.pp_bound_page((*C.fz_context)(ctx), page)
	return pageHandle(unsafe.Pointer(page)), rectFromC(bounds), nil
}

func bridgeDropPage(ctx ctxHandle, page pageHandle) {
	C.pp_drop_page((*C.fz_context)(ctx), (*C.fz_page)(page))
}

func bridgeBuildDisplayList(ctx ctxHandle, page pageHandle, bounds Rect, cookie *Cookie) (displayListHandle, error) {
	cc := cCookie(cookie)
	list := C.pp_build_display_list((*C.fz_context)(ctx), (*C.fz_page)(page), rectToC(bounds), cc)
	if list == nil {
		return nil, fmt.Errorf("ppcore: build display list failed")
	}
	return displayListHandle(unsafe.Pointer(list)), nil
}

func bridgeDropDisplayList(ctx ctxHandle, list displayListHandle) {
	C.pp_drop_display_list((*C.fz_context)(ctx), (*C.fz_display_list)(list))
}

func bridgeCookieAlloc() cookieHandle {
	return cookieHandle(unsafe.Pointer(C.pp_cookie_alloc()))
}

func bridgeCookieFree(c cookieHandle) {
	C.pp_cookie_free((*C.fz_cookie)(c))
}

func bridgeCookieAbort(c cookieHandle) {
	C.pp_cookie_abort((*C.fz_cookie)(c))
}

func bridgeCookieAborted(c cookieHandle) bool {
	return C.pp_cookie_aborted((*C.fz_cookie)(c)) != 0
}

func bridgeCookieReset(c cookieHandle) {
	C.pp_cookie_reset((*C.fz_cookie)(c))
}

func bridgeCookieProgress(c cookieHandle) int {
	return int(C.pp_cookie_progress((*C.fz_cookie)(c)))
}

// cCookie returns the C-allocated fz_cookie a *Cookie wraps — the same
// memory Cookie.Abort writes — so an abort from another goroutine is seen
// by MuPDF's own polling inside a long render. The memory is never
// Go-managed, so handing the pointer to C is safe under the cgo pointer
// rules.
func cCookie(cookie *Cookie) *C.fz_cookie {
	if cookie == nil || cookie.c == nil {
		return nil
	}
	return (*C.fz_cookie)(cookie.c)
}

func rectFromC(r C.fz_rect) Rect {
	return Rect{float64(r.x0), float64(r.y0), float64(r.x1), float64(r.y1)}
}

func rectToC(r Rect) C.fz_rect {
	return C.pp_rect(C.float(r.X0), C.float(r.Y0), C.float(r.X1), C.float(r.Y1))
}

func pointToC(p Point) C.fz_point {
	var fp C.fz_point
	fp.x = C.float(p.X)
	fp.y = C.float(p.Y)
	return fp
}

func pointFromC(p C.fz_point) Point {
	return Point{float64(p.x), float64(p.y)}
}

func bridgeRenderPatch(ctx ctxHandle, page pageHandle, list displayListHandle, bounds Rect,
	pageW, pageH, patchX, patchY, patchW, patchH int, rgba []byte, stride int, cookie *Cookie, renderAnnots bool) bool {
	if len(rgba) == 0 {
		return false
	}
	cc := cCookie(cookie)
	ok := C.pp_render_patch(
		(*C.fz_context)(ctx),
		(*C.fz_page)(page),
		(*C.fz_display_list)(list),
		C.int(pageW), C.int(pageH), rectToC(bounds),
		C.int(patchX), C.int(patchY), C.int(patchW), C.int(patchH),
		(*C.uchar)(unsafe.Pointer(&rgba[0])), C.int(stride), cc, boolToC(renderAnnots),
	)
	return ok != 0
}

func boolToC(b bool) C.int {
	if b {
		return 1
	}
	return 0
}

func bridgePageTextUTF8(ctx ctxHandle, page pageHandle, bounds Rect) (string, error) {
	cs := C.pp_page_text_utf8((*C.fz_context)(ctx), (*C.fz_page)(page), rectToC(bounds))
	if cs == nil {
		return "", fmt.Errorf("ppcore: text extraction failed")
	}
	defer C.free(unsafe.Pointer(cs))
	return C.GoString(cs), nil
}

const maxSearchHits = 512

func bridgePageTextHTML(ctx ctxHandle, page pageHandle, bounds Rect, pageIndex int) (string, error) {
	cs := C.pp_page_text_html((*C.fz_context)(ctx), (*C.fz_page)(page), rectToC(bounds), C.int(pageIndex))
	if cs == nil {
		return "", fmt.Errorf("ppcore: html text extraction failed")
	}
	defer C.free(unsafe.Pointer(cs))
	return C.GoString(cs), nil
}

func bridgeSearchPage(ctx ctxHandle, page pageHandle, bounds Rect, needle string, hitMax int) ([]Rect, error) {
	if hitMax <= 0 {
		return nil, fmt.Errorf("ppcore: hit_max must be positive")
	}
	if hitMax > maxSearchHits {
		hitMax = maxSearchHits
	}
	cNeedle := C.CString(needle)
	defer C.free(unsafe.Pointer(cNeedle))

	cRects := make([]C.fz_rect, hitMax)
	n := C.pp_search_page((*C.fz_context)(ctx), (*C.fz_page)(page), rectToC(bounds), cNeedle, &cRects[0], C.int(hitMax))
	if n < 0 {
		return nil, fmt.Errorf("ppcore: search failed")
	}
	out := make([]Rect, int(n))
	for i := range out {
		out[i] = rectFromC(cRects[i])
	}
	return out, nil
}

// ---- annotation bridge wrappers ----

func bridgePDFSpecifics(ctx ctxHandle, doc docHandle) pdfDocHandle {
	pdf := C.pp_pdf_specifics((*C.fz_context)(ctx), (*C.fz_document)(doc))
	return pdfDocHandle(unsafe.Pointer(pdf))
}

// bridgePDFPage downcasts a loaded fz_page to a pdf_page for documents
// backed by a PDF; pdf_page embeds fz_page as its first member in MuPDF's
// polymorphic page model, so this is a checked cast rather than a copy.
func bridgePDFPage(ctx ctxHandle, page pageHandle) pageHandle {
	p := C.pp_pdf_page_from_page((*C.fz_context)(ctx), (*C.fz_page)(page))
	if p == nil {
		return nil
	}
	return pageHandle(unsafe.Pointer(p))
}

func bridgeCreateAnnot(ctx ctxHandle, page pageHandle, annotType AnnotType) (annotHandle, error) {
	a := C.pp_create_annot((*C.fz_context)(ctx), (*C.pdf_page)(page), C.int(annotType))
	if a == nil {
		return nil, fmt.Errorf("ppcore: create annotation failed")
	}
	return annotHandle(unsafe.Pointer(a)), nil
}

func bridgeFinishAnnot(ctx ctxHandle, page pageHandle, annot annotHandle) {
	C.pp_finish_annot((*C.fz_context)(ctx), (*C.pdf_page)(page), (*C.pdf_annot)(annot))
}

func bridgeSetAnnotColor(ctx ctxHandle, pdfDoc pdfDocHandle, annot annotHandle, c Color, opacity float64) {
	C.pp_set_annot_color((*C.fz_context)(ctx), (*C.pdf_document)(pdfDoc), (*C.pdf_annot)(annot),
		C.float(c.R), C.float(c.G), C.float(c.B), C.float(opacity))
}

func bridgeSetAnnotInteriorColor(ctx ctxHandle, pdfDoc pdfDocHandle, annot annotHandle, c *Color) {
	if c == nil {
		C.pp_set_annot_interior_color((*C.fz_context)(ctx), (*C.pdf_document)(pdfDoc), (*C.pdf_annot)(annot), 0, 0, 0, 0)
		return
	}
	C.pp_set_annot_interior_color((*C.fz_context)(ctx), (*C.pdf_document)(pdfDoc), (*C.pdf_annot)(annot), 1,
		C.float(c.R), C.float(c.G), C.float(c.B))
}

func bridgeSetAnnotQuadPoints(ctx ctxHandle, annot annotHandle, quadsPDF []Point) {
	n := len(quadsPDF) / 4
	if n == 0 {
		return
	}
	coords := make([]C.float, n*8)
	for i, p := range quadsPDF {
		coords[i*2] = C.float(p.X)
		coords[i*2+1] = C.float(p.Y)
	}
	C.pp_set_annot_quadpoints((*C.fz_context)(ctx), (*C.pdf_annot)(annot), &coords[0], C.int(n))
}

func bridgeSetAnnotRect(ctx ctxHandle, annot annotHandle, r Rect) {
	C.pp_set_annot_rect((*C.fz_context)(ctx), (*C.pdf_annot)(annot), C.float(r.X0), C.float(r.Y0), C.float(r.X1), C.float(r.Y1))
}

func bridgeSetAnnotBorderWidth(ctx ctxHandle, pdfDoc pdfDocHandle, annot annotHandle, w float64) {
	C.pp_set_annot_border_width((*C.fz_context)(ctx), (*C.pdf_document)(pdfDoc), (*C.pdf_annot)(annot), C.float(w))
}

func bridgeGetAnnotBorderWidth(ctx ctxHandle, annot annotHandle) float64 {
	return float64(C.pp_get_annot_border_width((*C.fz_context)(ctx), (*C.pdf_annot)(annot)))
}

func bridgeBoundAnnot(ctx ctxHandle, annot annotHandle) Rect {
	return rectFromC(C.pp_bound_annot((*C.fz_context)(ctx), (*C.pdf_annot)(annot)))
}

func bridgeSetAnnotContents(ctx ctxHandle, annot annotHandle, text string) {
	cs := C.CString(text)
	defer C.free(unsafe.Pointer(cs))
	C.pp_set_annot_contents((*C.fz_context)(ctx), (*C.pdf_annot)(annot), cs)
}

func bridgeAnnotContents(ctx ctxHandle, annot annotHandle) string {
	cs := C.pp_annot_contents((*C.fz_context)(ctx), (*C.pdf_annot)(annot))
	if cs == nil {
		return ""
	}
	defer C.free(unsafe.Pointer(cs))
	return C.GoString(cs)
}

func bridgeAnnotObjectID(ctx ctxHandle, annot annotHandle) ObjectID {
	return ObjectID(C.pp_annot_object_id((*C.fz_context)(ctx), (*C.pdf_annot)(annot)))
}

func bridgeFindAnnotByObjectID(ctx ctxHandle, page pageHandle, id ObjectID) annotHandle {
	a := C.pp_find_annot_by_object_id((*C.fz_context)(ctx), (*C.pdf_page)(page), C.longlong(id))
	if a == nil {
		return nil
	}
	return annotHandle(unsafe.Pointer(a))
}

func bridgeSetDictString(ctx ctxHandle, pdfDoc pdfDocHandle, annot annotHandle, key string, value string, has bool) {
	ck := C.CString(key)
	defer C.free(unsafe.Pointer(ck))
	if !has {
		C.pp_set_dict_string((*C.fz_context)(ctx), (*C.pdf_document)(pdfDoc), (*C.pdf_annot)(annot), ck, nil)
		return
	}
	cv := C.CString(value)
	defer C.free(unsafe.Pointer(cv))
	C.pp_set_dict_string((*C.fz_context)(ctx), (*C.pdf_document)(pdfDoc), (*C.pdf_annot)(annot), ck, cv)
}

func bridgeGetDictString(ctx ctxHandle, annot annotHandle, key string) (string, bool) {
	ck := C.CString(key)
	defer C.free(unsafe.Pointer(ck))
	cs := C.pp_get_dict_string((*C.fz_context)(ctx), (*C.pdf_annot)(annot), ck)
	if cs == nil {
		return "", false
	}
	defer C.free(unsafe.Pointer(cs))
	return C.GoString(cs), true
}

func bridgeSetDictReal(ctx ctxHandle, pdfDoc pdfDocHandle, annot annotHandle, key string, value float64) {
	ck := C.CString(key)
	defer C.free(unsafe.Pointer(ck))
	C.pp_set_dict_real((*C.fz_context)(ctx), (*C.pdf_document)(pdfDoc), (*C.pdf_annot)(annot), ck, C.float(value))
}

func bridgeGetDictReal(ctx ctxHandle, annot annotHandle, key string, fallback float64) (float64, bool) {
	ck := C.CString(key)
	defer C.free(unsafe.Pointer(ck))
	var found C.int
	v := C.pp_get_dict_real((*C.fz_context)(ctx), (*C.pdf_annot)(annot), ck, C.float(fallback), &found)
	return float64(v), found != 0
}

func bridgeSetDictBool(ctx ctxHandle, annot annotHandle, key string, value bool) {
	ck := C.CString(key)
	defer C.free(unsafe.Pointer(ck))
	C.pp_set_dict_bool((*C.fz_context)(ctx), (*C.pdf_annot)(annot), ck, boolToC(value))
}

func bridgeGetDictBool(ctx ctxHandle, annot annotHandle, key string, fallback bool) bool {
	ck := C.CString(key)
	defer C.free(unsafe.Pointer(ck))
	return C.pp_get_dict_bool((*C.fz_context)(ctx), (*C.pdf_annot)(annot), ck, boolToC(fallback)) != 0
}

func bridgeDelDictKey(ctx ctxHandle, annot annotHandle, key string) {
	ck := C.CString(key)
	defer C.free(unsafe.Pointer(ck))
	C.pp_del_dict_key((*C.fz_context)(ctx), (*C.pdf_annot)(annot), ck)
}

func bridgeAnnotFlags(ctx ctxHandle, annot annotHandle) int {
	return int(C.pp_annot_flags((*C.fz_context)(ctx), (*C.pdf_annot)(annot)))
}

func bridgeSetAnnotFlags(ctx ctxHandle, annot annotHandle, flags int) {
	C.pp_set_annot_flags((*C.fz_context)(ctx), (*C.pdf_annot)(annot), C.int(flags))
}

func bridgeAnnotAPBBox(ctx ctxHandle, annot annotHandle) (Rect, bool) {
	var ok C.int
	r := C.pp_annot_ap_bbox((*C.fz_context)(ctx), (*C.pdf_annot)(annot), &ok)
	return rectFromC(r), ok != 0
}

func bridgeAnnotHasOpacityGState(ctx ctxHandle, annot annotHandle) bool {
	return C.pp_annot_ap_has_opacity_gstate((*C.fz_context)(ctx), (*C.pdf_annot)(annot)) != 0
}

func bridgePatchAnnotAP(ctx ctxHandle, pdfDoc pdfDocHandle, annot annotHandle, prefix []byte) bool {
	if len(prefix) == 0 {
		return false
	}
	ok := C.pp_patch_annot_ap((*C.fz_context)(ctx), (*C.pdf_document)(pdfDoc), (*C.pdf_annot)(annot),
		(*C.char)(unsafe.Pointer(&prefix[0])), C.int(len(prefix)))
	return ok != 0
}

func bridgeAnnotType(ctx ctxHandle, annot annotHandle) AnnotType {
	return AnnotType(C.pp_annot_type((*C.fz_context)(ctx), (*C.pdf_annot)(annot)))
}

func bridgeFirstAnnot(ctx ctxHandle, page pageHandle) annotHandle {
	a := C.pdf_first_annot((*C.fz_context)(ctx), (*C.pdf_page)(page))
	if a == nil {
		return nil
	}
	return annotHandle(unsafe.Pointer(a))
}

func bridgeNextAnnot(ctx ctxHandle, annot annotHandle) annotHandle {
	a := C.pdf_next_annot((*C.fz_context)(ctx), (*C.pdf_annot)(annot))
	if a == nil {
		return nil
	}
	return annotHandle(unsafe.Pointer(a))
}

func bridgeInkArcCount(ctx ctxHandle, annot annotHandle) int {
	return int(C.pp_annot_inklist_arc_count((*C.fz_context)(ctx), (*C.pdf_annot)(annot)))
}

func bridgeInkArcPointCount(ctx ctxHandle, annot annotHandle, arc int) int {
	return int(C.pp_annot_inklist_arc_point_count((*C.fz_context)(ctx), (*C.pdf_annot)(annot), C.int(arc)))
}

func bridgeInkArcPoint(ctx ctxHandle, annot annotHandle, arc, point int) Point {
	var x, y C.float
	C.pp_annot_inklist_arc_point((*C.fz_context)(ctx), (*C.pdf_annot)(annot), C.int(arc), C.int(point), &x, &y)
	return Point{float64(x), float64(y)}
}

func bridgeSetAnnotInkList(ctx ctxHandle, pdfDoc pdfDocHandle, annot annotHandle, arcCounts []int, pointsPDF []Point) {
	if len(arcCounts) == 0 {
		return
	}
	cCounts := make([]C.int, len(arcCounts))
	for i, n := range arcCounts {
		cCounts[i] = C.int(n)
	}
	cPoints := make([]C.float, len(pointsPDF)*2)
	for i, p := range pointsPDF {
		cPoints[i*2] = C.float(p.X)
		cPoints[i*2+1] = C.float(p.Y)
	}
	var cpPtr *C.float
	if len(cPoints) > 0 {
		cpPtr = &cPoints[0]
	}
	C.pp_set_annot_inklist((*C.fz_context)(ctx), (*C.pdf_document)(pdfDoc), (*C.pdf_annot)(annot),
		&cCounts[0], C.int(len(arcCounts)), cpPtr)
}

func bridgeDeleteAnnot(ctx ctxHandle, page pageHandle, annot annotHandle) {
	C.pdf_delete_annot((*C.fz_context)(ctx), (*C.pdf_page)(page), (*C.pdf_annot)(annot))
	C.pdf_update_page((*C.fz_context)(ctx), (*C.pdf_page)(page))
}

func bridgeUpdatePage(ctx ctxHandle, page pageHandle) {
	C.pdf_update_page((*C.fz_context)(ctx), (*C.pdf_page)(page))
}

// bridgePageToPDFCTM returns the page-space -> PDF-space transform for a
// loaded pdf_page (the inverse of pdf_page_transform). The pixel<->page hop
// is resolution-dependent and is computed in plain Go from the caller's
// requested pageW/pageH against pc.bounds.
func bridgePageToPDFCTM(ctx ctxHandle, page pageHandle) func(Point) Point {
	m := C.pp_page_to_pdf_ctm((*C.fz_context)(ctx), (*C.pdf_page)(page))
	return func(p Point) Point {
		return pointFromC(C.pp_transform_point(pointToC(p), m))
	}
}

// bridgePDFToPageCTM returns the PDF-space -> page-space transform, the
// inverse hop of bridgePageToPDFCTM, needed when reading a stored /InkList
// (PDF space) back into page space for pixel conversion.
func bridgePDFToPageCTM(ctx ctxHandle, page pageHandle) func(Point) Point {
	m := C.pp_pdf_to_page_ctm((*C.fz_context)(ctx), (*C.pdf_page)(page))
	return func(p Point) Point {
		return pointFromC(C.pp_transform_point(pointToC(p), m))
	}
}

// ---- widgets ----

func bridgeFirstWidget(ctx ctxHandle, page pageHandle) widgetHandle {
	w := C.pp_first_widget((*C.fz_context)(ctx), (*C.pdf_page)(page))
	if w == nil {
		return nil
	}
	return widgetHandle(unsafe.Pointer(w))
}

func bridgeNextWidget(ctx ctxHandle, w widgetHandle) widgetHandle {
	n := C.pp_next_widget((*C.fz_context)(ctx), (*C.pdf_annot)(w))
	if n == nil {
		return nil
	}
	return widgetHandle(unsafe.Pointer(n))
}

// bridgeWidgetType translates the library's widget-type enum into the
// package's own WidgetType values; the two orderings differ.
func bridgeWidgetType(ctx ctxHandle, w widgetHandle) WidgetType {
	switch C.pp_widget_type((*C.fz_context)(ctx), (*C.pdf_annot)(w)) {
	case C.PDF_WIDGET_TYPE_BUTTON:
		return WidgetPushButton
	case C.PDF_WIDGET_TYPE_CHECKBOX:
		return WidgetCheckBox
	case C.PDF_WIDGET_TYPE_RADIOBUTTON:
		return WidgetRadioButton
	case C.PDF_WIDGET_TYPE_TEXT:
		return WidgetText
	case C.PDF_WIDGET_TYPE_LISTBOX:
		return WidgetListBox
	case C.PDF_WIDGET_TYPE_COMBOBOX:
		return WidgetComboBox
	case C.PDF_WIDGET_TYPE_SIGNATURE:
		return WidgetSignature
	}
	return WidgetUnknown
}

func bridgeBoundWidget(ctx ctxHandle, w widgetHandle) Rect {
	return rectFromC(C.pp_bound_widget((*C.fz_context)(ctx), (*C.pdf_annot)(w)))
}

func bridgeWidgetName(ctx ctxHandle, w widgetHandle) string {
	cs := C.pp_widget_name((*C.fz_context)(ctx), (*C.pdf_annot)(w))
	if cs == nil {
		return ""
	}
	defer C.free(unsafe.Pointer(cs))
	return C.GoString(cs)
}

func bridgeWidgetValue(ctx ctxHandle, w widgetHandle) string {
	cs := C.pp_widget_value((*C.fz_context)(ctx), (*C.pdf_annot)(w))
	if cs == nil {
		return ""
	}
	defer C.free(unsafe.Pointer(cs))
	return C.GoString(cs)
}

func bridgeWidgetSetText(ctx ctxHandle, w widgetHandle, value string) bool {
	cs := C.CString(value)
	defer C.free(unsafe.Pointer(cs))
	return C.pp_widget_set_text((*C.fz_context)(ctx), (*C.pdf_annot)(w), cs) != 0
}

func bridgeWidgetIsSigned(ctx ctxHandle, w widgetHandle) bool {
	return C.pp_widget_is_signed((*C.fz_context)(ctx), (*C.pdf_annot)(w)) != 0
}

// bridgeFindWidgetByPoint returns the widget whose page-space bounds contain
// pagePt, or nil. Callers convert the pixel-space hit point to page space
// themselves (a simple resolution-scale divide, using the same pageW/pageH
// convention as rendering) before calling this.
func bridgeFindWidgetByPoint(ctx ctxHandle, page pageHandle, pagePt Point) widgetHandle {
	for w := bridgeFirstWidget(ctx, page); w != nil; w = bridgeNextWidget(ctx, w) {
		b := bridgeBoundWidget(ctx, w)
		if pagePt.X >= b.X0 && pagePt.X <= b.X1 && pagePt.Y >= b.Y0 && pagePt.Y <= b.Y1 {
			return w
		}
	}
	return nil
}

func bridgeWidgetToggle(ctx ctxHandle, page pageHandle, w widgetHandle) bool {
	return C.pp_widget_toggle((*C.fz_context)(ctx), (*C.pdf_page)(page), (*C.pdf_annot)(w)) != 0
}

const maxChoiceOptions = 256

func bridgeWidgetChoiceOptions(ctx ctxHandle, w widgetHandle, exportVal bool) []string {
	opts := make([]*C.char, maxChoiceOptions)
	n := int(C.pp_widget_choice_options((*C.fz_context)(ctx), (*C.pdf_annot)(w),
		boolToC(exportVal), &opts[0], C.int(maxChoiceOptions)))
	return goStringsFromC(opts, n)
}

func bridgeWidgetChoiceSelected(ctx ctxHandle, w widgetHandle) []string {
	opts := make([]*C.char, maxChoiceOptions)
	n := int(C.pp_widget_choice_selected((*C.fz_context)(ctx), (*C.pdf_annot)(w),
		&opts[0], C.int(maxChoiceOptions)))
	return goStringsFromC(opts, n)
}

// goStringsFromC copies the first n option strings out of a
// pdf_choice_widget_* result array. The C strings point into the widget's
// own dictionary storage and must not be freed here.
func goStringsFromC(opts []*C.char, n int) []string {
	if n <= 0 {
		return nil
	}
	if n > len(opts) {
		n = len(opts)
	}
	out := make([]string, 0, n)
	for i := 0; i < n; i++ {
		if opts[i] != nil {
			out = append(out, C.GoString(opts[i]))
		}
	}
	return out
}

func bridgeWidgetChoiceSet(ctx ctxHandle, page pageHandle, w widgetHandle, values []string) bool {
	cstrs := make([]*C.char, len(values))
	for i, v := range values {
		cstrs[i] = C.CString(v)
	}
	defer func() {
		for _, cs := range cstrs {
			C.free(unsafe.Pointer(cs))
		}
	}()
	var base **C.char
	if len(cstrs) > 0 {
		base = &cstrs[0]
	}
	return C.pp_widget_choice_set((*C.fz_context)(ctx), (*C.pdf_page)(page),
		(*C.pdf_annot)(w), C.int(len(cstrs)), base) != 0
}

// ---- save / export ----

func bridgeSaveDocument(ctx ctxHandle, pdfDoc pdfDocHandle, path string, incremental bool) bool {
	cs := C.CString(path)
	defer C.free(unsafe.Pointer(cs))
	return C.pp_save_document((*C.fz_context)(ctx), (*C.pdf_document)(pdfDoc), cs, boolToC(incremental)) != 0
}

func bridgeExportFlattened(ctx ctxHandle, doc docHandle, path string, dpi int) bool {
	cs := C.CString(path)
	defer C.free(unsafe.Pointer(cs))
	return C.pp_export_flattened((*C.fz_context)(ctx), (*C.fz_document)(doc), cs, C.int(dpi)) != 0
}

// ---- JS alert rendezvous ----

// bridgeRegisterAlertCallback wires a *AlertSession (via an h that lives for
// the session's lifetime) into MuPDF's document event callback, so a JS
// app.alert() call on this document rendezvouses with session.deliver.
func bridgeRegisterAlertCallback(ctx ctxHandle, pdfDoc pdfDocHandle, h cgo.Handle) {
	C.pp_register_alert_callback((*C.fz_context)(ctx), (*C.pdf_document)(pdfDoc), unsafe.Pointer(uintptr(h)))
}

//export goAlertDeliver
func goAlertDeliver(handle unsafe.Pointer, message *C.char, buttonGroupType C.int) C.int {
	h := cgo.Handle(uintptr(handle))
	session, ok := h.Value().(*AlertSession)
	if !ok || session == nil {
		return int32AlertDefaultButton
	}
	return C.int(session.deliver(C.GoString(message), int(buttonGroupType)))
}
