package meet

import (
	"context"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/cloudgroundcontrol/meet-recorder/pkg/browser"
	"github.com/labstack/gommon/log"
)

type vote int

const (
	voteUnknown vote = iota
	votePresent
	voteAbsent
)

func (v vote) String() string {
	switch v {
	case votePresent:
		return "present"
	case voteAbsent:
		return "absent"
	default:
		return "unknown"
	}
}

func voteFor(othersPresent bool) vote {
	if othersPresent {
		return votePresent
	}
	return voteAbsent
}

// decide treats any present vote as present and requires every method to
// agree before reporting absent. Inconclusive results count as present so a
// flaky page never ends a recording early.
func decide(votes ...vote) bool {
	absent := 0
	for _, v := range votes {
		if v == votePresent {
			return true
		}
		if v == voteAbsent {
			absent++
		}
	}
	return absent != len(votes)
}

var (
	peopleButton = browser.CSS("button[aria-label^='People']")
	closeButton  = browser.CSS("button[aria-label^='Close']")
	statusText   = browser.CSS("div[class*='status'], div[aria-label*='call']")

	participantItems = []browser.Selector{
		browser.CSS("div[role='listitem']"),
		browser.CSS("div[class*='participant']"),
		browser.CSS("div[aria-label*='participant']"),
	}

	countPattern = regexp.MustCompile(`\(?(\d+)\)?`)
)

// ParticipantsPresent reports whether anyone besides the bot is in the call.
func (p *Page) ParticipantsPresent(ctx context.Context) bool {
	badge := p.badgeVote(ctx)
	panel := p.panelVote(ctx)
	status := p.statusVote(ctx)

	present := decide(badge, panel, status)
	log.Debugf("participant check | badge: %s, panel: %s, status: %s, present: %v", badge, panel, status, present)
	return present
}

func (p *Page) badgeVote(ctx context.Context) vote {
	if err := p.driver.WaitVisible(ctx, peopleButton, p.timeouts.Presence); err != nil {
		log.Debugf("people button not found | error: %v", err)
		return voteUnknown
	}
	elements, err := p.driver.Query(ctx, peopleButton)
	if err != nil || len(elements) == 0 {
		return voteUnknown
	}
	return badgeText(elements[0].Text)
}

func badgeText(text string) vote {
	if text == "" {
		return voteUnknown
	}
	if m := countPattern.FindStringSubmatch(text); m != nil {
		n, err := strconv.Atoi(m[1])
		if err == nil {
			return voteFor(n > 1)
		}
	}
	if strings.Contains(strings.ToLower(text), "people") {
		return voteAbsent
	}
	return voteUnknown
}

func (p *Page) panelVote(ctx context.Context) vote {
	if err := p.driver.Click(ctx, peopleButton, p.timeouts.Presence); err != nil {
		log.Debugf("cannot open people panel | error: %v", err)
		return voteUnknown
	}
	defer p.closePanel(ctx)

	select {
	case <-ctx.Done():
		return voteUnknown
	case <-time.After(p.timeouts.Settle):
	}

	for _, sel := range participantItems {
		elements, err := p.driver.Query(ctx, sel)
		if err != nil || len(elements) == 0 {
			continue
		}
		log.Debugf("counted participants | count: %d, selector: %s", len(elements), sel)
		return voteFor(len(elements) > 1)
	}
	return voteUnknown
}

func (p *Page) closePanel(ctx context.Context) {
	elements, err := p.driver.Query(ctx, closeButton)
	if err != nil {
		return
	}
	for i := range elements {
		if p.driver.ClickNth(ctx, closeButton, i) == nil {
			return
		}
	}
}

func (p *Page) statusVote(ctx context.Context) vote {
	elements, err := p.driver.Query(ctx, statusText)
	if err != nil {
		return voteUnknown
	}
	return statusTexts(elements)
}

func statusTexts(elements []browser.Element) vote {
	for _, el := range elements {
		text := strings.ToLower(strings.TrimSpace(el.Text))
		if strings.Contains(text, "alone") || strings.Contains(text, "waiting") {
			return voteAbsent
		}
		if strings.Contains(text, "participant") || strings.Contains(text, "people") {
			return votePresent
		}
	}
	return voteUnknown
}
