package browser

import (
	"encoding/json"
	"errors"
	"fmt"
)

type By string

const (
	ByCSS   By = "css"
	ByXPath By = "xpath"
	ByID    By = "id"
	ByName  By = "name"
)

type Selector struct {
	By    By
	Value string
}

func CSS(v string) Selector   { return Selector{ByCSS, v} }
func XPath(v string) Selector { return Selector{ByXPath, v} }
func ID(v string) Selector    { return Selector{ByID, v} }
func Name(v string) Selector  { return Selector{ByName, v} }

func (s Selector) String() string {
	return fmt.Sprintf("%s: %s", s.By, s.Value)
}

var ErrUnknownSelector = errors.New("unknown selector type")

// Element is a snapshot of a DOM node taken at query time.
type Element struct {
	Tag   string `json:"tag"`
	Text  string `json:"text"`
	Label string `json:"label"`
	Role  string `json:"role"`
	Class string `json:"class"`
}

// css returns the selector as a CSS query. XPath selectors have no CSS form.
func (s Selector) css() (string, error) {
	switch s.By {
	case ByCSS:
		return s.Value, nil
	case ByID:
		return "#" + s.Value, nil
	case ByName:
		return fmt.Sprintf("[name=%q]", s.Value), nil
	case ByXPath:
		return "", fmt.Errorf("%w: xpath has no css form", ErrUnknownSelector)
	default:
		return "", ErrUnknownSelector
	}
}

// nodesScript builds a JS expression evaluating to an array of the nodes
// matched by the selector.
func (s Selector) nodesScript() (string, error) {
	if s.By == ByXPath {
		q, err := json.Marshal(s.Value)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf(`(() => {
	const r = document.evaluate(%s, document, null, XPathResult.ORDERED_NODE_SNAPSHOT_TYPE, null);
	const out = [];
	for (let i = 0; i < r.snapshotLength; i++) out.push(r.snapshotItem(i));
	return out;
})()`, q), nil
	}

	css, err := s.css()
	if err != nil {
		return "", err
	}
	q, err := json.Marshal(css)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("Array.from(document.querySelectorAll(%s))", q), nil
}

func (s Selector) queryScript() (string, error) {
	nodes, err := s.nodesScript()
	if err != nil {
		return "", err
	}
	return fmt.Sprintf(`%s.map(e => ({
	tag: (e.tagName || '').toLowerCase(),
	text: (e.innerText || e.textContent || '').trim(),
	label: e.getAttribute('aria-label') || '',
	role: e.getAttribute('role') || '',
	class: e.getAttribute('class') || ''
}))`, nodes), nil
}

func (s Selector) clickNthScript(n int) (string, error) {
	nodes, err := s.nodesScript()
	if err != nil {
		return "", err
	}
	return fmt.Sprintf(`(() => {
	const els = %s;
	if (%d >= els.length) return false;
	els[%d].scrollIntoView(true);
	els[%d].click();
	return true;
})()`, nodes, n, n, n), nil
}
