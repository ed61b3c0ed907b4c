package checkin

import (
	"dev/bravebird/auto-checkin-go/pkg/locator"
)

// Selector fallback chains for the target site, ordered most specific to most
// generic. Kept as package data so the matching policy lives in one place
// instead of being inlined per call site.

const captchaInputSelector = `input[type="text"][placeholder="请输入验证码"]`

var (
	// Login form fields.
	usernameChain = locator.Chain{
		locator.Css(`input[type="text"][placeholder="请输入用户名"]`),
		locator.Css(`input[name="username"]`),
	}
	passwordChain = locator.Chain{
		locator.Css(`input[type="password"][placeholder="请输入密码"]`),
		locator.Css(`input[type="password"]`),
	}

	// CAPTCHA image and input.
	captchaImageChain = locator.Chain{
		locator.Css("div.captcha-image img"),
		locator.Css(`img[class*="captcha"]`),
	}
	captchaInputChain = locator.Chain{
		locator.Css(captchaInputSelector),
		locator.Css(`input[placeholder*="验证码"]`),
	}

	// Login submit control: button text in both spellings, then class
	// fallbacks. When the whole chain misses, the loop falls back to pressing
	// Enter on the CAPTCHA input.
	loginSubmitChain = locator.Chain{
		locator.Text("button", "登录"),
		locator.Text("button", "登錄"),
		locator.Css(".login-btn"),
		locator.Css(".submit-btn"),
	}

	// Post-login notice dialog confirm button.
	dialogConfirmChain = locator.Chain{
		locator.Text("button.van-dialog__confirm", "我知道了"),
		locator.Text("button", "我知道了"),
	}

	// Check-in step 1: the account-list navigation entry, by label text, then
	// by structural position (second nav item).
	accountNavChain = locator.Chain{
		locator.Text("span.nav-text", "账号列表"),
		locator.Index(".nav-item", 1),
	}

	// Check-in step 2: the expand control. Absence is expected when the panel
	// is already expanded.
	expandChain = locator.Chain{
		locator.Css(".expand-icon"),
		locator.Css(`img[alt="展开"]`),
		locator.Css(".icon-image"),
	}

	// Check-in step 3: the submit control, text variants down to generic
	// class-name matches.
	checkinSubmitChain = locator.Chain{
		locator.Text("button.action-btn", "提交打卡"),
		locator.Text("button", "提交打卡"),
		locator.Text("button", "打卡"),
		locator.Text("button", "提交"),
		locator.Css(".action-btn"),
		locator.Css(`button[class*="action"]`),
		locator.Css(`button[class*="submit"]`),
	}

	// Last resort after the chain above: enumerate every button and match
	// exact inner text.
	checkinSubmitScan = locator.Chain{
		locator.Scan("button", "提交打卡"),
	}

	// Success indicators probed after submit. Heuristic and best-effort:
	// logged for diagnostics, never part of the returned result.
	successProbeChain = locator.Chain{
		locator.Text("*", "打卡成功"),
		locator.Text("*", "已提交"),
		locator.Text("*", "成功"),
		locator.Css(".success"),
		locator.Css(".toast"),
	}
)
