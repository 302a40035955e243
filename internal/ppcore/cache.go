package ppcore

// cacheSize is the fixed number of page-cache slots per document; three
// slots cover the typical viewer pattern of the current page plus its two
// neighbours.
const cacheSize = 3

// cachedPage is one cache slot: page index (-1 when the slot is empty),
// the LRU counter, the page's bounds in native page units, the owned page
// handle, and an optional cached display list.
type cachedPage struct {
	pageIndex   int
	lastUsed    uint64
	bounds      Rect
	page        pageHandle
	displayList displayListHandle
}

func (pc *cachedPage) empty() bool { return pc.page == nil }

// ensurePageLocked returns the cache slot for pageIndex, loading the page on
// a miss. Callers must already hold d.owner.mu. On miss the slot with the
// smallest lastUsed is evicted (LRU by use counter).
func (d *Document) ensurePageLocked(pageIndex int) (*cachedPage, error) {
	for i := range d.cache {
		pc := &d.cache[i]
		if !pc.empty() && pc.pageIndex == pageIndex {
			d.useCounter++
			pc.lastUsed = d.useCounter
			return pc, nil
		}
	}

	slot := d.chooseSlotLocked()
	d.dropSlotLocked(slot)

	page, bounds, err := bridgeLoadPage(d.ctx, d.doc, pageIndex)
	if err != nil {
		return nil, err
	}

	d.useCounter++
	slot.pageIndex = pageIndex
	slot.lastUsed = d.useCounter
	slot.bounds = bounds
	slot.page = page
	slot.displayList = nil
	return slot, nil
}

// chooseSlotLocked returns the empty slot, or failing that the slot with
// the smallest lastUsed counter.
func (d *Document) chooseSlotLocked() *cachedPage {
	for i := range d.cache {
		if d.cache[i].empty() {
			return &d.cache[i]
		}
	}
	victim := &d.cache[0]
	for i := 1; i < len(d.cache); i++ {
		if d.cache[i].lastUsed < victim.lastUsed {
			victim = &d.cache[i]
		}
	}
	return victim
}

func (d *Document) dropSlotLocked(pc *cachedPage) {
	if pc.displayList != nil {
		bridgeDropDisplayList(d.ctx, pc.displayList)
		pc.displayList = nil
	}
	if pc.page != nil {
		bridgeDropPage(d.ctx, pc.page)
		pc.page = nil
	}
	pc.pageIndex = -1
	pc.lastUsed = 0
	pc.bounds = Rect{}
}

// clearCacheLocked drops every slot and resets the use counter, e.g. on
// document close or re-layout.
func (d *Document) clearCacheLocked() {
	for i := range d.cache {
		d.dropSlotLocked(&d.cache[i])
	}
	d.useCounter = 0
}

// invalidatePageLocked drops slot i's cached display list (and, if present,
// the page itself) after a mutation affecting that page. The slot is
// dropped entirely rather than just the display list: the next access
// re-derives bounds/page state cleanly, and the slot is cheap to refill.
func (d *Document) invalidatePageLocked(pageIndex int) {
	for i := range d.cache {
		pc := &d.cache[i]
		if !pc.empty() && pc.pageIndex == pageIndex {
			if pc.displayList != nil {
				bridgeDropDisplayList(d.ctx, pc.displayList)
				pc.displayList = nil
			}
		}
	}
}

// ensureDisplayListLocked builds pc's display list if it doesn't have one
// yet. On any failure the slot keeps displayList == nil so renders fall
// back to running the page directly.
func (d *Document) ensureDisplayListLocked(pc *cachedPage, cookie *Cookie) {
	if pc.page == nil || pc.displayList != nil {
		return
	}
	list, err := bridgeBuildDisplayList(d.ctx, pc.page, pc.bounds, cookie)
	if err != nil {
		return
	}
	pc.displayList = list
}
