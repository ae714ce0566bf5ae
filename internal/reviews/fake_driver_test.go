package reviews

import (
	"context"
	"errors"
	"fmt"
	"time"
)

type fakeItem struct {
	id       string
	name     string
	date     string
	stars    string
	text     string
	info     string
	response string
	html     string
	more     bool
	broken   bool
	panics   bool
}

type fakeHandle struct {
	kind string
	item *fakeItem
}

// fakeDriver renders a scripted review feed. Each scroll reveals batch more
// items until the feed runs out.
type fakeDriver struct {
	sel Selectors

	url         string
	placeURL    string
	navigateErr error
	onPlace     bool
	noResult    bool
	noTab       bool
	totalText   string
	consent     bool

	items    []*fakeItem
	rendered int
	batch    int

	// idFaults makes the id read of the named review fail that many times.
	idFaults map[string]int

	noContainer   bool
	containerErr  error
	pageScrollErr error

	navigations []string
	clicks      int
	scrolls     int
	pageScrolls int
	waits       int
}

func newFakeDriver(items []*fakeItem, initial, batch int) *fakeDriver {
	return &fakeDriver{
		sel:      DefaultSelectors(),
		placeURL: "https://www.google.com/maps/place/Test",
		onPlace:  true,
		items:    items,
		rendered: min(initial, len(items)),
		batch:    batch,
	}
}

func makeItems(n int, withIDs bool) []*fakeItem {
	items := make([]*fakeItem, 0, n)
	for i := 0; i < n; i++ {
		it := &fakeItem{
			name:  fmt.Sprintf("Reviewer %d", i),
			date:  "a week ago",
			stars: "5 stars",
			info:  "3 reviews",
		}
		if withIDs {
			it.id = fmt.Sprintf("rev-%d", i)
		}
		items = append(items, it)
	}
	return items
}

func (f *fakeDriver) Navigate(_ context.Context, url string) error {
	f.navigations = append(f.navigations, url)
	if f.navigateErr != nil {
		return f.navigateErr
	}
	if f.onPlace || url == f.placeURL {
		f.url = f.placeURL
	} else {
		f.url = url
	}
	return nil
}

func (f *fakeDriver) CurrentURL() string {
	return f.url
}

func (f *fakeDriver) FindFirst(_ context.Context, selector string, _ time.Duration) (Handle, error) {
	switch selector {
	case f.sel.ConsentButton:
		if f.consent {
			return &fakeHandle{kind: "consent"}, nil
		}
	case f.sel.FirstResult:
		if !f.noResult {
			return &fakeHandle{kind: "result"}, nil
		}
	case f.sel.ReviewsTab:
		if !f.noTab {
			return &fakeHandle{kind: "tab"}, nil
		}
	case f.sel.TotalReviews:
		if f.totalText != "" {
			return &fakeHandle{kind: "total"}, nil
		}
	case f.sel.ScrollContainer:
		if !f.noContainer {
			return &fakeHandle{kind: "container"}, nil
		}
	}
	return nil, ErrTimeout
}

func (f *fakeDriver) FindAll(_ context.Context, selector string) ([]Handle, error) {
	if selector != f.sel.Item {
		return nil, nil
	}
	handles := make([]Handle, 0, f.rendered)
	for _, it := range f.items[:f.rendered] {
		handles = append(handles, &fakeHandle{kind: "item", item: it})
	}
	return handles, nil
}

func (f *fakeDriver) FindIn(_ context.Context, h Handle, selector string) (Handle, error) {
	fh, ok := h.(*fakeHandle)
	if !ok || fh.item == nil {
		return nil, ErrInvalidHandle
	}
	switch selector {
	case f.sel.Stars:
		if fh.item.stars != "" || !fh.item.broken {
			return &fakeHandle{kind: "stars", item: fh.item}, nil
		}
	case f.sel.MoreButton:
		if fh.item.more {
			return &fakeHandle{kind: "more", item: fh.item}, nil
		}
	}
	return nil, ErrNotFound
}

func (f *fakeDriver) Click(_ context.Context, h Handle) error {
	f.clicks++
	if fh, ok := h.(*fakeHandle); ok && fh.kind == "more" {
		fh.item.text += " (expanded)"
		fh.item.more = false
	}
	return nil
}

func (f *fakeDriver) ScrollIntoViewAndExpand(context.Context, Handle) error {
	if f.containerErr != nil {
		return f.containerErr
	}
	f.scrolls++
	f.reveal()
	return nil
}

func (f *fakeDriver) ScrollPage(context.Context) error {
	if f.pageScrollErr != nil {
		return f.pageScrollErr
	}
	f.pageScrolls++
	f.reveal()
	return nil
}

func (f *fakeDriver) reveal() {
	f.rendered = min(f.rendered+f.batch, len(f.items))
}

func (f *fakeDriver) ReadText(_ context.Context, h Handle, selector string) (string, error) {
	fh, ok := h.(*fakeHandle)
	if !ok {
		return "", ErrInvalidHandle
	}
	if fh.kind == "total" && selector == "" {
		return f.totalText, nil
	}
	it := fh.item
	if it == nil {
		return "", ErrNotFound
	}
	if it.panics {
		panic("detached node")
	}

	var value string
	switch selector {
	case f.sel.ReviewerName:
		if it.broken {
			return "", errors.New("element is not attached to the DOM")
		}
		value = it.name
	case f.sel.Date:
		value = it.date
	case f.sel.Text:
		value = it.text
	case f.sel.ReviewerInfo:
		value = it.info
	case f.sel.OwnerResponse:
		value = it.response
	}
	if value == "" {
		return "", ErrNotFound
	}
	return value, nil
}

func (f *fakeDriver) ReadAttribute(_ context.Context, h Handle, name string) (string, error) {
	fh, ok := h.(*fakeHandle)
	if !ok {
		return "", ErrInvalidHandle
	}
	switch {
	case fh.kind == "result" && name == "href":
		return f.placeURL, nil
	case fh.kind == "item" && name == f.sel.ItemID:
		if f.idFaults[fh.item.id] > 0 {
			f.idFaults[fh.item.id]--
			return "", errors.New("timeout reading attribute")
		}
		return fh.item.id, nil
	case fh.kind == "stars" && name == "aria-label":
		return fh.item.stars, nil
	}
	return "", nil
}

func (f *fakeDriver) InnerHTML(_ context.Context, h Handle) (string, error) {
	fh, ok := h.(*fakeHandle)
	if !ok || fh.item == nil {
		return "", ErrInvalidHandle
	}
	return fh.item.html, nil
}

func (f *fakeDriver) WaitUntil(_ context.Context, pred func() bool, _ time.Duration) bool {
	f.waits++
	return pred()
}
