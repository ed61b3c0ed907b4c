package checkin

import (
	"context"
	"errors"
	"fmt"

	"dev/bravebird/auto-checkin-go/pkg/captcha"
	"dev/bravebird/auto-checkin-go/pkg/locator"
	"dev/bravebird/auto-checkin-go/pkg/models"
)

// loginState names the phase of the login attempt that failed.
type loginState string

const (
	stateFillingForm     loginState = "filling_form"
	stateSolvingCaptcha  loginState = "solving_captcha"
	stateSubmitting      loginState = "submitting"
	stateCheckingOutcome loginState = "checking_outcome"
)

// attemptError is a transient failure of one login attempt. It is always
// recovered locally by looping; it never propagates out of Login.
type attemptError struct {
	state  loginState
	reload bool // whether the page should be reloaded before the next attempt
	err    error
}

func (e *attemptError) Error() string {
	return fmt.Sprintf("%s: %v", e.state, e.err)
}

func (e *attemptError) Unwrap() error {
	return e.err
}

// Login opens the login page and runs the retry loop until success. The loop
// enforces no attempt bound of its own; the caller owns the deadline through
// ctx (signal context, scheduler job timeout, or activity timeout). It returns
// the number of attempts made, and a non-nil error only when the browser
// session is unusable or ctx is canceled.
//
// Wrong credentials and transient UI glitches are indistinguishable here:
// both look like repeated failed attempts. Known ambiguity of the flow.
func (r *Runner) Login(ctx context.Context) (int, error) {
	r.logger.Printf("opening login page: %s", r.cfg.LoginURL)
	if err := r.page.Navigate(r.cfg.LoginURL); err != nil {
		return 0, fmt.Errorf("failed to open login page: %w", err)
	}
	if err := r.sleep(ctx, r.cfg.SettleDelay); err != nil {
		return 0, err
	}

	attempt := 0
	for {
		attempt++
		r.logger.Printf("login attempt %d (unbounded retry)", attempt)

		err := r.loginAttempt(ctx)
		if err == nil {
			r.logger.Printf("login succeeded on attempt %d, current page: %s", attempt, r.page.URL())
			r.report(models.LoginAttempt{Attempt: attempt, Succeeded: true})
			return attempt, nil
		}
		if ctx.Err() != nil {
			return attempt, ctx.Err()
		}

		r.logger.Printf("login attempt %d failed: %v", attempt, err)
		r.report(models.LoginAttempt{Attempt: attempt, LastError: err.Error()})

		if err := r.sleep(ctx, r.cfg.RetryDelay); err != nil {
			return attempt, err
		}

		var ae *attemptError
		if errors.As(err, &ae) && ae.reload {
			if err := r.page.Reload(); err != nil {
				r.logger.Printf("warning: page reload failed: %v", err)
			}
			if err := r.sleep(ctx, r.cfg.SettleDelay); err != nil {
				return attempt, err
			}
		}
	}
}

// loginAttempt runs one pass of the state machine:
// FillingForm → SolvingCaptcha → Submitting → CheckingOutcome.
func (r *Runner) loginAttempt(ctx context.Context) error {
	// FillingForm
	user, err := locator.Locate(ctx, r.page, usernameChain, r.cfg.LocatorTimeout)
	if err != nil {
		return &attemptError{state: stateFillingForm, reload: true, err: err}
	}
	if err := user.Input(r.cfg.Username); err != nil {
		return &attemptError{state: stateFillingForm, reload: true, err: err}
	}
	r.logger.Printf("filled username: %s", r.cfg.Username)

	pass, err := locator.Locate(ctx, r.page, passwordChain, r.cfg.LocatorTimeout)
	if err != nil {
		return &attemptError{state: stateFillingForm, reload: true, err: err}
	}
	if err := pass.Input(r.cfg.Password); err != nil {
		return &attemptError{state: stateFillingForm, reload: true, err: err}
	}
	r.logger.Printf("filled password")

	// SolvingCaptcha
	code, err := r.solveCaptcha(ctx)
	if err != nil {
		return &attemptError{state: stateSolvingCaptcha, reload: true, err: err}
	}
	if code == "" {
		// Never submit a blank or garbage code: reload for a fresh image.
		return &attemptError{state: stateSolvingCaptcha, reload: true, err: errors.New("captcha not recognized")}
	}

	captchaInput, err := locator.Locate(ctx, r.page, captchaInputChain, r.cfg.LocatorTimeout)
	if err != nil {
		return &attemptError{state: stateSolvingCaptcha, reload: true, err: err}
	}
	if err := captchaInput.Input(code); err != nil {
		return &attemptError{state: stateSolvingCaptcha, reload: true, err: err}
	}
	r.logger.Printf("filled captcha: %s", code)

	// Submitting
	if btn, err := locator.Locate(ctx, r.page, loginSubmitChain, r.cfg.LocatorTimeout); err == nil {
		if err := btn.Click(); err != nil {
			return &attemptError{state: stateSubmitting, reload: true, err: err}
		}
		r.logger.Printf("clicked login button")
	} else {
		// Key-press fallback: submit by pressing Enter on the CAPTCHA input.
		if err := r.page.PressEnter(captchaInputSelector); err != nil {
			return &attemptError{state: stateSubmitting, reload: true, err: err}
		}
		r.logger.Printf("submitted login via Enter key")
	}

	// CheckingOutcome
	if err := r.sleep(ctx, r.cfg.SettleDelay); err != nil {
		return err
	}
	r.dismissDialog(ctx)

	// Success oracle: the page address moved off the login address. This is
	// a heuristic, not a verified session check. Known-fragile by intent.
	if current := r.page.URL(); current != r.cfg.LoginURL {
		return nil
	}
	return &attemptError{state: stateCheckingOutcome, reload: false, err: errors.New("still on login page")}
}

// solveCaptcha extracts the embedded CAPTCHA image from its data URI and asks
// the external solver. Empty text means unrecognized, which the caller treats
// as a transient miss.
func (r *Runner) solveCaptcha(ctx context.Context) (string, error) {
	img, err := locator.Locate(ctx, r.page, captchaImageChain, r.cfg.LocatorTimeout)
	if err != nil {
		return "", fmt.Errorf("captcha image not found: %w", err)
	}

	src, err := img.Attribute("src")
	if err != nil {
		return "", fmt.Errorf("captcha image has no src: %w", err)
	}

	data, err := captcha.DecodeDataURI(src)
	if err != nil {
		return "", fmt.Errorf("captcha image payload: %w", err)
	}
	r.dumpCaptcha(data)

	text, err := r.solver.Solve(ctx, data)
	if err != nil {
		return "", fmt.Errorf("captcha recognition failed: %w", err)
	}
	if text != "" {
		r.logger.Printf("captcha recognized: %s", text)
	}
	return text, nil
}

// dismissDialog closes the post-login notice dialog when present. Absence is
// the common case.
func (r *Runner) dismissDialog(ctx context.Context) {
	btn, err := locator.Locate(ctx, r.page, dialogConfirmChain, r.cfg.LocatorTimeout)
	if err != nil {
		return
	}
	if err := btn.Click(); err != nil {
		r.logger.Printf("warning: failed to dismiss dialog: %v", err)
		return
	}
	r.logger.Printf("dismissed notice dialog")
	_ = r.sleep(ctx, r.cfg.RetryDelay/2)
}

func (r *Runner) report(a models.LoginAttempt) {
	if r.OnAttempt != nil {
		r.OnAttempt(a)
	}
}
