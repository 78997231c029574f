package meet

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cloudgroundcontrol/meet-recorder/pkg/browser"
	"github.com/labstack/gommon/log"
)

const signInURL = "https://accounts.google.com/v3/signin/identifier?" +
	"continue=https%3A%2F%2Fmail.google.com%2Fmail%2F&" +
	"service=mail&flowName=GlifWebSignIn&flowEntry=ServiceLogin"

var (
	ErrLoginFailed = errors.New("login failed")
	ErrJoinFailed  = errors.New("cannot join meeting")
)

// Timeouts used when waiting on the page. Tests shrink them.
type Timeouts struct {
	Login    time.Duration
	Prompt   time.Duration
	Join     time.Duration
	Toggle   time.Duration
	Presence time.Duration
	Settle   time.Duration
}

func DefaultTimeouts() Timeouts {
	return Timeouts{
		Login:    30 * time.Second,
		Prompt:   10 * time.Second,
		Join:     5 * time.Second,
		Toggle:   5 * time.Second,
		Presence: 5 * time.Second,
		Settle:   time.Second,
	}
}

type Page struct {
	driver   browser.Driver
	timeouts Timeouts
}

func NewPage(driver browser.Driver, timeouts Timeouts) *Page {
	return &Page{driver, timeouts}
}

// Login signs the browser into a Google account.
func (p *Page) Login(ctx context.Context, email string, password string) error {
	if err := p.driver.ClearCookies(ctx); err != nil {
		log.Warnf("cannot clear cookies | error: %v", err)
	}
	if err := p.driver.Navigate(ctx, signInURL); err != nil {
		return fmt.Errorf("%w: %v", ErrLoginFailed, err)
	}

	steps := []struct {
		sel  browser.Selector
		typ  bool
		text string
	}{
		{browser.ID("identifierId"), true, email},
		{browser.ID("identifierNext"), false, ""},
		{browser.Name("Passwd"), true, password},
		{browser.ID("passwordNext"), false, ""},
	}
	for _, s := range steps {
		var err error
		if s.typ {
			err = p.driver.Type(ctx, s.sel, s.text, p.timeouts.Login)
		} else {
			err = p.driver.Click(ctx, s.sel, p.timeouts.Login)
		}
		if err != nil {
			return fmt.Errorf("%w: %v", ErrLoginFailed, err)
		}
	}

	inbox := browser.XPath("//a[contains(., 'Inbox')]")
	if err := p.driver.WaitVisible(ctx, inbox, p.timeouts.Login); err != nil {
		return fmt.Errorf("%w: %v", ErrLoginFailed, err)
	}
	log.Infof("logged into google account | email: %s", email)

	// Account chooser shows up only sometimes
	cont := browser.XPath("//div[@role='button']//span[contains(text(), 'Continue as')]")
	if err := p.driver.Click(ctx, cont, p.timeouts.Prompt); err != nil {
		log.Debugf("no continue prompt | error: %v", err)
	}
	return nil
}

var joinStrategies = []browser.Selector{
	browser.CSS("button[aria-label*='Join now']"),
	browser.CSS("button[aria-label*='Ask to join']"),
	browser.CSS("div[role='button'][aria-label*='Join']"),
	browser.XPath("//span[contains(., 'Join') or contains(., 'Ask')]"),
}

var anyButton = browser.CSS("button, div[role='button']")

// Join opens the meeting link with camera and microphone off and asks to
// be let in.
func (p *Page) Join(ctx context.Context, link string) error {
	if err := p.driver.Navigate(ctx, link); err != nil {
		return fmt.Errorf("%w: %v", ErrJoinFailed, err)
	}
	log.Debugf("loaded meeting page | link: %s", link)

	for _, device := range []string{"camera", "microphone"} {
		sel := browser.CSS(fmt.Sprintf("button[aria-label*='%s'], div[aria-label*='%s']", device, device))
		if err := p.driver.Click(ctx, sel, p.timeouts.Toggle); err != nil {
			log.Warnf("cannot disable device | device: %s, error: %v", device, err)
			continue
		}
		log.Debugf("disabled device | device: %s", device)
	}

	for _, sel := range joinStrategies {
		if err := p.driver.Click(ctx, sel, p.timeouts.Join); err != nil {
			log.Debugf("join strategy failed | selector: %s, error: %v", sel, err)
			continue
		}
		log.Infof("clicked join button | selector: %s", sel)
		return nil
	}

	elements, err := p.driver.Query(ctx, anyButton)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrJoinFailed, err)
	}
	if i := findJoinButton(elements); i >= 0 {
		if err = p.driver.ClickNth(ctx, anyButton, i); err == nil {
			log.Infof("clicked join button via fallback | index: %d", i)
			return nil
		}
		log.Warnf("fallback join click failed | error: %v", err)
	}
	return ErrJoinFailed
}

func findJoinButton(elements []browser.Element) int {
	for i, el := range elements {
		text := strings.ToLower(el.Text)
		label := strings.ToLower(el.Label)
		for _, kw := range []string{"join", "ask"} {
			if strings.Contains(text, kw) || strings.Contains(label, kw) {
				return i
			}
		}
	}
	return -1
}

// Leave hangs up. Failures are only logged since the browser is closed next.
func (p *Page) Leave(ctx context.Context) {
	sel := browser.CSS("button[aria-label*='Leave call']")
	if err := p.driver.Click(ctx, sel, p.timeouts.Toggle); err != nil {
		log.Debugf("cannot click leave | error: %v", err)
	}
}

// Screenshot exposes the driver's capture for analyzers.
func (p *Page) Screenshot(ctx context.Context) ([]byte, error) {
	return p.driver.Screenshot(ctx)
}
