package mailer

import (
	"context"
	"strings"
	"testing"
)

func TestBuildResetMessage(t *testing.T) {
	msg := string(buildResetMessage("no-reply@legido.local", "alice@example.com", "http://localhost:3000/reset/abc123xyz0"))

	for _, want := range []string{
		"From: no-reply@legido.local",
		"To: alice@example.com",
		"Subject: Reset your password",
		"Content-Type: text/html",
		"http://localhost:3000/reset/abc123xyz0",
		"Click here to reset your password!",
	} {
		if !strings.Contains(msg, want) {
			t.Errorf("Expected message to contain %q:\n%s", want, msg)
		}
	}
}

func TestLogMailer(t *testing.T) {
	if err := (LogMailer{}).SendPasswordReset(context.Background(), "alice@example.com", "http://x/reset/tok"); err != nil {
		t.Errorf("LogMailer must never fail: %v", err)
	}
}
