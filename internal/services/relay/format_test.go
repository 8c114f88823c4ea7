package relay

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFormatter_Format(t *testing.T) {
	n := item("123", true, time.Date(2024, 3, 1, 14, 30, 5, 0, time.FixedZone("CET", 3600)))
	got := Formatter{}.Format(n)

	want := strings.Join([]string{
		"🔔 GitHub Notification",
		"Repo: octo/repo",
		"Type: PullRequest",
		"Reason: review_requested",
		"Title: title 123",
		"Updated: 2024-03-01T13:30:05Z",
		"Thread: https://github.com/notifications/threads/123",
		"Inbox: https://github.com/notifications",
	}, "\n")
	assert.Equal(t, want, got)
}

func TestFormatter_Placeholders(t *testing.T) {
	n := item("9", true, t0)
	n.Repository = "  "
	got := Formatter{LinkBase: "https://example.test/t/"}.Format(n)

	assert.Contains(t, got, "Repo: unknown/unknown\n")
	assert.Contains(t, got, "Thread: https://example.test/t/9\n")
}
