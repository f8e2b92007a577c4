package notification

import (
	"bytes"
	"embed"
	htmltemplate "html/template"
	"math"
	"strings"
	texttemplate "text/template"
	"time"
)

// PasswordResetSubject is the subject line of reset emails.
const PasswordResetSubject = "Reset Your Password - Vritti API Nexus"

//go:embed templates/*
var templateFS embed.FS

var (
	resetHTML = htmltemplate.Must(htmltemplate.ParseFS(templateFS, "templates/password_reset.html"))
	resetText = texttemplate.Must(texttemplate.ParseFS(templateFS, "templates/password_reset.txt"))
)

type resetView struct {
	Name          string
	Code          string
	ExpiryMinutes int
	MinuteUnit    string
}

// RenderedEmail is a message ready to hand to a transport.
type RenderedEmail struct {
	Subject string
	HTML    string
	Text    string
}

// RenderPasswordReset fills the reset templates. The expiry is shown in whole
// minutes remaining at now, rounded up.
func RenderPasswordReset(msg PasswordReset, now time.Time) (RenderedEmail, error) {
	view := resetView{
		Name:          msg.DisplayName,
		Code:          msg.Code,
		ExpiryMinutes: int(math.Ceil(msg.ExpiresAt.Sub(now).Minutes())),
		MinuteUnit:    "minutes",
	}
	if view.Name == "" {
		view.Name = "there"
	}
	if view.ExpiryMinutes < 1 {
		view.ExpiryMinutes = 1
	}
	if view.ExpiryMinutes == 1 {
		view.MinuteUnit = "minute"
	}

	var html, text bytes.Buffer
	if err := resetHTML.Execute(&html, view); err != nil {
		return RenderedEmail{}, err
	}
	if err := resetText.Execute(&text, view); err != nil {
		return RenderedEmail{}, err
	}
	return RenderedEmail{
		Subject: PasswordResetSubject,
		HTML:    html.String(),
		Text:    strings.TrimSpace(text.String()),
	}, nil
}
