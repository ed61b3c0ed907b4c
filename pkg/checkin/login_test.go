package checkin

import (
	"context"
	"errors"
	"log"
	"testing"
	"time"

	"dev/bravebird/auto-checkin-go/pkg/models"
)

func TestLoginSucceedsOnFirstAttempt(t *testing.T) {
	page, username, password, captchaInput, loginBtn := loginPage()
	solver := &fakeSolver{codes: []string{"AB12"}}

	runner := NewRunner(page, solver, testConfig(), log.New(testWriter{t}, "", 0))

	attempts, err := runner.Login(context.Background())
	if err != nil {
		t.Fatalf("Login() error = %v", err)
	}
	if attempts != 1 {
		t.Errorf("Login() attempts = %d, want 1", attempts)
	}

	if len(username.inputs) != 1 || username.inputs[0] != "student01" {
		t.Errorf("username inputs = %v, want [student01]", username.inputs)
	}
	if len(password.inputs) != 1 || password.inputs[0] != "hunter2" {
		t.Errorf("password inputs = %v, want [hunter2]", password.inputs)
	}
	if len(captchaInput.inputs) != 1 || captchaInput.inputs[0] != "AB12" {
		t.Errorf("captcha inputs = %v, want [AB12]", captchaInput.inputs)
	}
	if loginBtn.clicks != 1 {
		t.Errorf("login button clicks = %d, want 1", loginBtn.clicks)
	}
	if page.navigations[0] != DefaultLoginURL {
		t.Errorf("navigated to %q, want login URL", page.navigations[0])
	}
}

func TestLoginRetriesUnrecognizedCaptchaWithReload(t *testing.T) {
	page, _, _, captchaInput, _ := loginPage()
	// Two unrecognized images before the solver produces a code.
	solver := &fakeSolver{codes: []string{"", "", "XY99"}}

	runner := NewRunner(page, solver, testConfig(), log.New(testWriter{t}, "", 0))

	attempts, err := runner.Login(context.Background())
	if err != nil {
		t.Fatalf("Login() error = %v", err)
	}
	if attempts != 3 {
		t.Errorf("Login() attempts = %d, want 3", attempts)
	}
	// Each unrecognized image reloads the page for a fresh one.
	if page.reloads != 2 {
		t.Errorf("page reloads = %d, want 2", page.reloads)
	}
	// A blank code must never reach the CAPTCHA input.
	if len(captchaInput.inputs) != 1 || captchaInput.inputs[0] != "XY99" {
		t.Errorf("captcha inputs = %v, want [XY99] only", captchaInput.inputs)
	}
}

func TestLoginSolverErrorRetries(t *testing.T) {
	page, _, _, captchaInput, _ := loginPage()
	solver := &fakeSolver{codes: []string{"AB12"}, err: errors.New("ocr unreachable")}

	runner := NewRunner(page, solver, testConfig(), log.New(testWriter{t}, "", 0))

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	attempts, err := runner.Login(ctx)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Login() error = %v, want deadline exceeded", err)
	}
	if attempts < 1 {
		t.Errorf("Login() attempts = %d, want at least 1", attempts)
	}
	if len(captchaInput.inputs) != 0 {
		t.Errorf("captcha inputs = %v, want none while solver errors", captchaInput.inputs)
	}
}

func TestLoginFallsBackToEnterKey(t *testing.T) {
	page, _, _, _, _ := loginPage()
	// No login button anywhere: submit happens via Enter on the CAPTCHA input.
	delete(page.textElements, "button|登录")
	page.onEnter = func() {
		page.url = "https://qd.dxssxdk.com/lanhu_zhanghaoliebiao"
	}

	solver := &fakeSolver{codes: []string{"AB12"}}
	runner := NewRunner(page, solver, testConfig(), log.New(testWriter{t}, "", 0))

	attempts, err := runner.Login(context.Background())
	if err != nil {
		t.Fatalf("Login() error = %v", err)
	}
	if attempts != 1 {
		t.Errorf("Login() attempts = %d, want 1", attempts)
	}
	if len(page.enters) != 1 || page.enters[0] != captchaInputSelector {
		t.Errorf("Enter presses = %v, want one on the captcha input", page.enters)
	}
}

func TestLoginKeepsRetryingUntilCanceled(t *testing.T) {
	page, _, _, _, loginBtn := loginPage()
	// Wrong credentials look like this: the submit goes through but the page
	// never leaves the login URL.
	loginBtn.onClick = nil

	solver := &fakeSolver{codes: []string{"AB12"}}
	runner := NewRunner(page, solver, testConfig(), log.New(testWriter{t}, "", 0))

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	attempts, err := runner.Login(ctx)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Login() error = %v, want deadline exceeded", err)
	}
	if attempts < 2 {
		t.Errorf("Login() attempts = %d, want multiple before deadline", attempts)
	}
	// A failed outcome check does not reload: the form is refilled in place.
	if page.reloads != 0 {
		t.Errorf("page reloads = %d, want 0", page.reloads)
	}
}

func TestLoginDismissesNoticeDialog(t *testing.T) {
	page, _, _, _, _ := loginPage()
	confirm := &fakeElement{}
	page.textElements["button.van-dialog__confirm|我知道了"] = confirm

	solver := &fakeSolver{codes: []string{"AB12"}}
	runner := NewRunner(page, solver, testConfig(), log.New(testWriter{t}, "", 0))

	if _, err := runner.Login(context.Background()); err != nil {
		t.Fatalf("Login() error = %v", err)
	}
	if confirm.clicks != 1 {
		t.Errorf("dialog confirm clicks = %d, want 1", confirm.clicks)
	}
}

func TestLoginReportsEveryAttempt(t *testing.T) {
	page, _, _, _, _ := loginPage()
	solver := &fakeSolver{codes: []string{"", "AB12"}}

	runner := NewRunner(page, solver, testConfig(), log.New(testWriter{t}, "", 0))

	var reported []models.LoginAttempt
	runner.OnAttempt = func(a models.LoginAttempt) {
		reported = append(reported, a)
	}

	if _, err := runner.Login(context.Background()); err != nil {
		t.Fatalf("Login() error = %v", err)
	}

	if len(reported) != 2 {
		t.Fatalf("reported %d attempts, want 2", len(reported))
	}
	if reported[0].Succeeded || reported[0].LastError == "" {
		t.Errorf("first attempt report = %+v, want failure with error", reported[0])
	}
	if !reported[1].Succeeded || reported[1].Attempt != 2 {
		t.Errorf("second attempt report = %+v, want success on attempt 2", reported[1])
	}
}

// testWriter routes runner logs through the test log.
type testWriter struct{ t *testing.T }

func (w testWriter) Write(p []byte) (int, error) {
	w.t.Log(string(p))
	return len(p), nil
}
