package services

import (
	"fmt"
	"strings"
	"time"

	"github.com/aymerick/raymond"
)

// WelcomeEmailData feeds the welcome templates. TemporaryPassword is empty
// when the admin chose their own password.
type WelcomeEmailData struct {
	Name              string
	CompanyName       string
	Email             string
	TemporaryPassword string
	LoginURL          string
	TrialExpiresAt    *time.Time
}

type TrialReminderData struct {
	Name          string
	CompanyName   string
	DaysRemaining int
	BillingURL    string
}

var welcomeHTML = raymond.MustParse(`
<div style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto;">
  <h1 style="color: #2563eb;">Welcome to BISMAN ERP!</h1>
  <p>Hi {{name}},</p>
  <p>Your account for <strong>{{companyName}}</strong> has been created successfully.</p>
  <div style="background: #f3f4f6; padding: 20px; border-radius: 8px; margin: 20px 0;">
    <h3 style="margin-top: 0;">Your Login Credentials</h3>
    <p><strong>Email:</strong> {{email}}</p>
    {{#if temporaryPassword}}<p><strong>Temporary Password:</strong> {{temporaryPassword}}</p>{{else}}<p><strong>Password:</strong> the password you chose at signup</p>{{/if}}
    <p><strong>Login URL:</strong> <a href="{{loginUrl}}">{{loginUrl}}</a></p>
  </div>
  {{#if temporaryPassword}}<p style="color: #dc2626;"><strong>Important:</strong> Please change your password after your first login.</p>{{/if}}
  {{#if trialExpiresOn}}<div style="background: #fef3c7; padding: 15px; border-radius: 8px; margin: 20px 0;">
    <p style="margin: 0;"><strong>Trial Period:</strong> Your trial expires on {{trialExpiresOn}}.</p>
  </div>{{/if}}
  <h3>Getting Started</h3>
  <ol>
    <li>Log in using the credentials above</li>
    <li>Set up your business profile</li>
    <li>Invite your team members</li>
    <li>Start managing your inventory and orders</li>
  </ol>
  <p>Need help? Reply to this email or visit our <a href="https://docs.bisman.io">documentation</a>.</p>
  <p>Best regards,<br>The BISMAN ERP Team</p>
</div>`)

// Plain text bodies use triple braces so nothing is HTML escaped.
var welcomeText = raymond.MustParse(`Welcome to BISMAN ERP!

Hi {{{name}}},

Your account for {{{companyName}}} has been created successfully.

Login Credentials:
- Email: {{{email}}}
{{#if temporaryPassword}}- Temporary Password: {{{temporaryPassword}}}
{{/if}}- Login URL: {{{loginUrl}}}
{{#if temporaryPassword}}
IMPORTANT: Please change your password after your first login.
{{/if}}
{{#if trialExpiresOn}}
Trial Period: Your trial expires on {{{trialExpiresOn}}}.
{{/if}}

Need help? Reply to this email or visit https://docs.bisman.io

Best regards,
The BISMAN ERP Team
`)

var trialReminderHTML = raymond.MustParse(`
<div style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto;">
  <h1>Your trial is ending soon!</h1>
  <p>Hi {{name}},</p>
  <p>Your free trial for <strong>{{companyName}}</strong> will expire in <strong>{{daysRemaining}} {{dayWord}}</strong>.</p>
  <p>Upgrade now to keep access to all features:</p>
  <a href="{{billingUrl}}" style="background: #2563eb; color: white; padding: 12px 24px; text-decoration: none; border-radius: 6px; display: inline-block;">Upgrade Now</a>
  <p style="margin-top: 20px; color: #666;">Questions? Reply to this email or contact support@bisman.io</p>
</div>`)

var trialReminderText = raymond.MustParse(`Hi {{{name}}},

Your free trial for {{{companyName}}} will expire in {{daysRemaining}} {{dayWord}}.

Upgrade now to keep access to all features: {{{billingUrl}}}

Questions? Reply to this email or contact support@bisman.io
`)

func render(html, text *raymond.Template, ctx map[string]any) (string, string, error) {
	h, err := html.Exec(ctx)
	if err != nil {
		return "", "", fmt.Errorf("render html body: %w", err)
	}
	t, err := text.Exec(ctx)
	if err != nil {
		return "", "", fmt.Errorf("render text body: %w", err)
	}
	return strings.TrimSpace(h), t, nil
}

// RenderWelcomeEmail builds the welcome message for a new tenant admin.
func RenderWelcomeEmail(to string, data WelcomeEmailData) (EmailMessage, error) {
	ctx := map[string]any{
		"name":              data.Name,
		"companyName":       data.CompanyName,
		"email":             data.Email,
		"temporaryPassword": data.TemporaryPassword,
		"loginUrl":          data.LoginURL,
		"trialExpiresOn":    "",
	}
	if data.TrialExpiresAt != nil {
		ctx["trialExpiresOn"] = data.TrialExpiresAt.Format("January 2, 2006")
	}

	html, text, err := render(welcomeHTML, welcomeText, ctx)
	if err != nil {
		return EmailMessage{}, err
	}
	return EmailMessage{
		To:      to,
		Subject: "Welcome to BISMAN ERP - " + data.CompanyName,
		HTML:    html,
		Text:    text,
	}, nil
}

func RenderTrialReminderEmail(to string, data TrialReminderData) (EmailMessage, error) {
	day := "days"
	if data.DaysRemaining == 1 {
		day = "day"
	}
	html, text, err := render(trialReminderHTML, trialReminderText, map[string]any{
		"name":          data.Name,
		"companyName":   data.CompanyName,
		"daysRemaining": data.DaysRemaining,
		"dayWord":       day,
		"billingUrl":    data.BillingURL,
	})
	if err != nil {
		return EmailMessage{}, err
	}
	return EmailMessage{
		To:      to,
		Subject: fmt.Sprintf("Your BISMAN ERP trial expires in %d %s", data.DaysRemaining, day),
		HTML:    html,
		Text:    text,
	}, nil
}
