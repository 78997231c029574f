package browser

import (
	"testing"

	"github.com/chromedp/chromedp"
	"github.com/stretchr/testify/require"
)

func TestCSSForID(t *testing.T) {
	css, err := ID("identifierId").css()
	require.NoError(t, err)
	require.Equal(t, "#identifierId", css)
}

func TestCSSForName(t *testing.T) {
	css, err := Name("Passwd").css()
	require.NoError(t, err)
	require.Equal(t, `[name="Passwd"]`, css)
}

func TestCSSForXPathFails(t *testing.T) {
	_, err := XPath("//span").css()
	require.ErrorIs(t, err, ErrUnknownSelector)
}

func TestCSSForUnknownFails(t *testing.T) {
	_, err := Selector{By: "tag", Value: "div"}.css()
	require.ErrorIs(t, err, ErrUnknownSelector)
}

func TestQueryScriptEscapesSelector(t *testing.T) {
	script, err := CSS(`button[aria-label^='People']`).queryScript()
	require.NoError(t, err)
	require.Contains(t, script, `document.querySelectorAll("button[aria-label^='People']")`)
}

func TestQueryScriptForXPath(t *testing.T) {
	script, err := XPath(`//span[contains(., "Join")]`).queryScript()
	require.NoError(t, err)
	require.Contains(t, script, "document.evaluate(")
	require.Contains(t, script, `"//span[contains(., \"Join\")]"`)
}

func TestClickNthScript(t *testing.T) {
	script, err := CSS("button").clickNthScript(3)
	require.NoError(t, err)
	require.Contains(t, script, "els[3].click()")
}

func TestQueryOptionUsesSearchForXPath(t *testing.T) {
	q, _, err := queryOption(XPath("//a"))
	require.NoError(t, err)
	require.Equal(t, "//a", q)
}

func TestQueryOptionConvertsName(t *testing.T) {
	q, _, err := queryOption(Name("Passwd"))
	require.NoError(t, err)
	require.Equal(t, `[name="Passwd"]`, q)
}

func TestAllocatorOptionsNotEmpty(t *testing.T) {
	opts := DefaultOptions()
	o := allocatorOptions(opts, "/tmp/profile")
	require.Greater(t, len(o), len(chromedp.DefaultExecAllocatorOptions))
}
