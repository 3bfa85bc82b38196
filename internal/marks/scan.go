// internal/marks/scan.go
package marks

import (
	"context"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/xkilldash9x/som-agent/api/schemas"
)

// rowBucketHeight groups elements into 50px-tall rows so markers read
// top-to-bottom, left-to-right even with sub-pixel row jitter.
const rowBucketHeight = 50

// Evaluator is the page capability the scanner needs: evaluating one JS
// expression against the live document.
type Evaluator interface {
	Evaluate(ctx context.Context, expr string, res any) error
}

// Scanner enumerates the interactive elements of the current page. Each Scan
// produces a fresh arena of elements valid for exactly one step; indices must
// never be held across steps.
type Scanner struct {
	page   Evaluator
	logger *zap.Logger
}

// NewScanner creates a scanner bound to a page.
func NewScanner(page Evaluator, logger *zap.Logger) *Scanner {
	return &Scanner{
		page:   page,
		logger: logger.Named("marks"),
	}
}

// rawElement mirrors one record produced by the injected discovery script.
// Top and Left only exist to drive the ordering; they are not part of the
// public element record.
type rawElement struct {
	Selector string `json:"selector"`
	Tag      string `json:"tag"`
	Text     string `json:"text"`
	X        int    `json:"x"`
	Y        int    `json:"y"`
	Width    int    `json:"width"`
	Height   int    `json:"height"`
	Top      int    `json:"top"`
	Left     int    `json:"left"`
}

// Scan queries the live page for interactive elements and returns them in
// reading order with contiguous 1-based indices. An empty result is a valid
// outcome, not an error.
func (s *Scanner) Scan(ctx context.Context) ([]schemas.InteractiveElement, error) {
	var raw []rawElement
	if err := s.page.Evaluate(ctx, findElementsJS, &raw); err != nil {
		return nil, fmt.Errorf("element discovery script failed: %w", err)
	}

	// Sort by (row bucket, horizontal position). The bucket quantizes the top
	// coordinate so small vertical jitter does not break reading order.
	sort.SliceStable(raw, func(i, j int) bool {
		bi, bj := raw[i].Top/rowBucketHeight, raw[j].Top/rowBucketHeight
		if bi != bj {
			return bi < bj
		}
		return raw[i].Left < raw[j].Left
	})

	elements := make([]schemas.InteractiveElement, 0, len(raw))
	for i, r := range raw {
		elements = append(elements, schemas.InteractiveElement{
			Index:    i + 1,
			Selector: r.Selector,
			Tag:      r.Tag,
			Text:     r.Text,
			CenterX:  r.X,
			CenterY:  r.Y,
			Width:    r.Width,
			Height:   r.Height,
		})
	}

	s.logger.Debug("Element scan complete.", zap.Int("elements", len(elements)))
	return elements, nil
}

// findElementsJS enumerates candidate interactive nodes, filters hidden and
// degenerate ones, extracts a label per element category and derives a
// fallback selector. Ordering and index assignment happen on the Go side.
const findElementsJS = `
(() => {
    const selectors = [
        'a[href]',
        'button',
        'input:not([type="hidden"])',
        'textarea',
        'select',
        '[role="button"]',
        '[role="link"]',
        '[role="menuitem"]',
        '[role="tab"]',
        '[role="checkbox"]',
        '[role="radio"]',
        '[onclick]',
        '[tabindex]:not([tabindex="-1"])',
        'label[for]',
        '[contenteditable="true"]'
    ];

    const results = [];
    const seen = new Set();

    for (const sel of selectors) {
        for (const el of document.querySelectorAll(sel)) {
            if (seen.has(el)) continue;
            seen.add(el);

            const style = window.getComputedStyle(el);
            if (style.display === 'none' || style.visibility === 'hidden' || style.opacity === '0') {
                continue;
            }

            const rect = el.getBoundingClientRect();
            if (rect.width < 5 || rect.height < 5) continue;
            if (rect.bottom < 0 || rect.top > window.innerHeight) continue;
            if (rect.right < 0 || rect.left > window.innerWidth) continue;

            let text = '';
            if (el.tagName === 'INPUT' || el.tagName === 'TEXTAREA') {
                text = el.placeholder || el.value || el.getAttribute('aria-label') || '';
            } else if (el.tagName === 'SELECT') {
                const opt = el.options[el.selectedIndex];
                text = (opt && opt.text) || el.getAttribute('aria-label') || '';
            } else {
                text = el.innerText || el.getAttribute('aria-label') || el.getAttribute('title') || '';
            }
            text = text.trim().replace(/\s+/g, ' ').substring(0, 100);

            const tag = el.tagName.toLowerCase();
            let selector = '';
            if (el.id) {
                selector = '#' + el.id;
            } else {
                const classes = Array.from(el.classList).slice(0, 2).join('.');
                selector = classes ? tag + '.' + classes : tag;

                const aria = el.getAttribute('aria-label');
                if (aria) {
                    selector += '[aria-label="' + aria.substring(0, 50) + '"]';
                } else if (text && text.length < 30 && (tag === 'a' || tag === 'button')) {
                    selector = '//' + tag + '[contains(normalize-space(.), ' + JSON.stringify(text) + ')]';
                }
            }

            results.push({
                selector: selector,
                tag: tag,
                text: text,
                x: Math.round(rect.left + rect.width / 2),
                y: Math.round(rect.top + rect.height / 2),
                width: Math.round(rect.width),
                height: Math.round(rect.height),
                top: Math.round(rect.top),
                left: Math.round(rect.left)
            });
        }
    }

    return results;
})()
`
