package checkin

import (
	"context"
	"encoding/base64"
	"fmt"
	"time"

	"dev/bravebird/auto-checkin-go/pkg/locator"
)

// fakeElement implements locator.Element and records interactions.
type fakeElement struct {
	text     string
	attrs    map[string]string
	inputs   []string
	clicks   int
	clickErr error
	onClick  func()
}

func (e *fakeElement) Click() error {
	e.clicks++
	if e.clickErr != nil {
		return e.clickErr
	}
	if e.onClick != nil {
		e.onClick()
	}
	return nil
}

func (e *fakeElement) Input(text string) error {
	e.inputs = append(e.inputs, text)
	return nil
}

func (e *fakeElement) Text() (string, error) {
	return e.text, nil
}

func (e *fakeElement) Attribute(name string) (string, error) {
	return e.attrs[name], nil
}

// fakePage implements Page with in-memory element registries.
type fakePage struct {
	url          string
	elements     map[string]*fakeElement // css selector -> element
	textElements map[string]*fakeElement // selector|text -> element
	lists        map[string][]*fakeElement

	navigations []string
	reloads     int
	enters      []string
	screenshots []string
	dumps       []string

	onEnter func()
}

func newFakePage() *fakePage {
	return &fakePage{
		elements:     make(map[string]*fakeElement),
		textElements: make(map[string]*fakeElement),
		lists:        make(map[string][]*fakeElement),
	}
}

func (p *fakePage) Navigate(url string) error {
	p.navigations = append(p.navigations, url)
	p.url = url
	return nil
}

func (p *fakePage) Reload() error {
	p.reloads++
	return nil
}

func (p *fakePage) URL() string {
	return p.url
}

func (p *fakePage) PressEnter(selector string) error {
	p.enters = append(p.enters, selector)
	if p.onEnter != nil {
		p.onEnter()
	}
	return nil
}

func (p *fakePage) Screenshot(name string) (string, error) {
	p.screenshots = append(p.screenshots, name)
	return name, nil
}

func (p *fakePage) DumpHTML(name string) (string, error) {
	p.dumps = append(p.dumps, name)
	return name, nil
}

func (p *fakePage) Find(selector string, _ time.Duration) (locator.Element, error) {
	if el, ok := p.elements[selector]; ok {
		return el, nil
	}
	return nil, fmt.Errorf("element not found: %s", selector)
}

func (p *fakePage) FindByText(selector, text string, _ time.Duration) (locator.Element, error) {
	if el, ok := p.textElements[selector+"|"+text]; ok {
		return el, nil
	}
	return nil, fmt.Errorf("element not found: %s with text %q", selector, text)
}

func (p *fakePage) All(selector string) ([]locator.Element, error) {
	list, ok := p.lists[selector]
	if !ok {
		return nil, fmt.Errorf("query %s: no such selector", selector)
	}
	out := make([]locator.Element, len(list))
	for i, el := range list {
		out[i] = el
	}
	return out, nil
}

func (p *fakePage) tookScreenshot(name string) bool {
	for _, s := range p.screenshots {
		if s == name {
			return true
		}
	}
	return false
}

func (p *fakePage) dumped(name string) bool {
	for _, d := range p.dumps {
		if d == name {
			return true
		}
	}
	return false
}

// fakeSolver returns queued codes in order, then repeats the last one.
type fakeSolver struct {
	codes  []string
	err    error
	calls  int
	images [][]byte
}

func (f *fakeSolver) Solve(_ context.Context, image []byte) (string, error) {
	f.images = append(f.images, image)
	code := ""
	if len(f.codes) > 0 {
		i := f.calls
		if i >= len(f.codes) {
			i = len(f.codes) - 1
		}
		code = f.codes[i]
	}
	f.calls++
	return code, f.err
}

func (f *fakeSolver) Name() string { return "fake" }

func (f *fakeSolver) IsAvailable(context.Context) bool { return true }

// testConfig returns a runner config with near-zero pacing for tests.
func testConfig() Config {
	return Config{
		LoginURL:       DefaultLoginURL,
		Username:       "student01",
		Password:       "hunter2",
		LocatorTimeout: time.Millisecond,
		RetryDelay:     time.Millisecond,
		SettleDelay:    0,
	}
}

// loginPage builds a page with the full login form. The returned elements let
// tests inspect what was typed and clicked. Clicking the login button moves
// the page off the login URL, which is the success signal.
func loginPage() (p *fakePage, username, password, captchaInput, loginBtn *fakeElement) {
	p = newFakePage()

	username = &fakeElement{}
	password = &fakeElement{}
	captchaInput = &fakeElement{}
	loginBtn = &fakeElement{}

	p.elements[`input[type="text"][placeholder="请输入用户名"]`] = username
	p.elements[`input[type="password"][placeholder="请输入密码"]`] = password
	p.elements[captchaInputSelector] = captchaInput

	captchaData := base64.StdEncoding.EncodeToString([]byte("png-bytes"))
	p.elements["div.captcha-image img"] = &fakeElement{
		attrs: map[string]string{"src": "data:image/png;base64," + captchaData},
	}

	loginBtn.onClick = func() {
		p.url = "https://qd.dxssxdk.com/lanhu_zhanghaoliebiao"
	}
	p.textElements["button|登录"] = loginBtn

	return p, username, password, captchaInput, loginBtn
}
