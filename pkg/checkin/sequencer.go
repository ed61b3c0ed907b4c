package checkin

import (
	"context"
	"errors"
	"fmt"

	"dev/bravebird/auto-checkin-go/pkg/locator"
	"dev/bravebird/auto-checkin-go/pkg/models"
)

// ErrSubmitNotFound is returned when neither the submit fallback chain nor
// the full button inventory scan located a submit control.
var ErrSubmitNotFound = errors.New("checkin: submit control not found")

// Checkin runs the fixed four-step check-in sequence. Every step before the
// submit click is best-effort: the UI may already be in a partially advanced
// state, so an early miss only logs a warning and processing continues.
// The report's SubmitClicked is true if and only if a submit control was
// located and clicked; the success-indicator probe afterwards is diagnostic
// only. On failure a screenshot and a structural page dump are captured.
func (r *Runner) Checkin(ctx context.Context) (*models.CheckinReport, error) {
	r.logger.Printf("starting check-in sequence")
	report := &models.CheckinReport{}

	if err := r.sleep(ctx, r.cfg.SettleDelay); err != nil {
		return report, err
	}
	r.snapshot("page_after_login.png")
	r.logger.Printf("current page: %s", r.page.URL())

	// Step 1: open the account list navigation entry.
	report.Steps = append(report.Steps, r.stepNavigate(ctx))

	// Step 2: expand the account panel. Absence is expected when already
	// expanded.
	report.Steps = append(report.Steps, r.stepExpand(ctx))

	// Step 3: locate the submit control.
	submit, step := r.stepLocateSubmit(ctx)
	report.Steps = append(report.Steps, step)

	if submit == nil {
		r.logger.Printf("submit control not found, capturing diagnostics")
		r.snapshot("page_no_submit_button.png")
		r.dumpPage("page_content.html")
		report.Steps = append(report.Steps, models.StepResult{
			Step:    models.StepSubmit,
			Message: "no submit control located",
		})
		return report, ErrSubmitNotFound
	}

	// Step 4: click the submit control.
	r.snapshot("page_before_submit.png")
	if err := submit.Click(); err != nil {
		r.logger.Printf("submit click failed: %v", err)
		r.snapshot("page_error.png")
		r.dumpPage("page_content.html")
		report.Steps = append(report.Steps, models.StepResult{
			Step:    models.StepSubmit,
			Message: fmt.Sprintf("click failed: %v", err),
		})
		return report, fmt.Errorf("checkin: submit click failed: %w", err)
	}
	report.SubmitClicked = true
	r.logger.Printf("clicked submit control")

	if err := r.sleep(ctx, r.cfg.SettleDelay); err != nil {
		return report, nil
	}
	r.snapshot("page_after_submit.png")

	// Best-effort success probe. Logged only; the outcome stays as decided
	// by the click above.
	if indicator := r.probeSuccess(ctx); indicator != "" {
		report.SuccessIndicator = indicator
		r.logger.Printf("success indicator found: %s", indicator)
	}

	report.Steps = append(report.Steps, models.StepResult{
		Step:      models.StepSubmit,
		Completed: true,
	})
	r.logger.Printf("check-in sequence completed")
	return report, nil
}

func (r *Runner) stepNavigate(ctx context.Context) models.StepResult {
	step := models.StepResult{Step: models.StepNavigate}

	nav, err := locator.Locate(ctx, r.page, accountNavChain, r.cfg.LocatorTimeout)
	if err != nil {
		step.Message = err.Error()
		r.logger.Printf("warning: account list navigation not found, continuing: %v", err)
		return step
	}
	if err := nav.Click(); err != nil {
		step.Message = err.Error()
		r.logger.Printf("warning: account list click failed, continuing: %v", err)
		return step
	}

	step.Completed = true
	r.logger.Printf("clicked account list navigation")
	_ = r.sleep(ctx, r.cfg.SettleDelay)
	r.snapshot("page_after_account_list.png")
	return step
}

func (r *Runner) stepExpand(ctx context.Context) models.StepResult {
	step := models.StepResult{Step: models.StepExpand}

	expand, err := locator.Locate(ctx, r.page, expandChain, r.cfg.LocatorTimeout)
	if err != nil {
		step.Message = "expand control not found (possibly already expanded)"
		r.logger.Printf("expand control not found or already expanded: %v", err)
		return step
	}
	if err := expand.Click(); err != nil {
		step.Message = err.Error()
		r.logger.Printf("warning: expand click failed, continuing: %v", err)
		return step
	}

	step.Completed = true
	r.logger.Printf("clicked expand control")
	_ = r.sleep(ctx, r.cfg.SettleDelay)
	r.snapshot("page_after_expand.png")
	return step
}

func (r *Runner) stepLocateSubmit(ctx context.Context) (locator.Element, models.StepResult) {
	step := models.StepResult{Step: models.StepLocate}

	submit, err := locator.Locate(ctx, r.page, checkinSubmitChain, r.cfg.LocatorTimeout)
	if err == nil {
		step.Completed = true
		return submit, step
	}
	r.logger.Printf("submit chain exhausted, scanning all buttons: %v", err)

	// Full inventory scan: enumerate every button and match exact text.
	submit, err = locator.Locate(ctx, r.page, checkinSubmitScan, r.cfg.LocatorTimeout)
	if err == nil {
		step.Completed = true
		step.Message = "found via full button scan"
		return submit, step
	}

	step.Message = err.Error()
	return nil, step
}

// probeSuccess looks for any of the known success texts or classes with a
// short per-candidate wait.
func (r *Runner) probeSuccess(ctx context.Context) string {
	el, err := locator.Locate(ctx, r.page, successProbeChain, r.cfg.LocatorTimeout/2)
	if err != nil {
		return ""
	}
	text, err := el.Text()
	if err != nil || text == "" {
		return "indicator element present"
	}
	return text
}
