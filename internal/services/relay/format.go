package relay

import (
	"fmt"
	"strings"
	"time"

	"github.com/NordCoder/ghrelay/internal/domain/notification"
)

const (
	DefaultLinkBase   = "https://github.com/notifications/threads/"
	inboxURL          = "https://github.com/notifications"
	unknownRepository = "unknown/unknown"
)

// Formatter renders the fixed plain-text block sent for each notification.
type Formatter struct {
	LinkBase string
}

func (f Formatter) Format(n notification.Notification) string {
	repo := strings.TrimSpace(n.Repository)
	if repo == "" {
		repo = unknownRepository
	}
	base := f.LinkBase
	if base == "" {
		base = DefaultLinkBase
	}

	var b strings.Builder
	b.WriteString("🔔 GitHub Notification\n")
	fmt.Fprintf(&b, "Repo: %s\n", repo)
	fmt.Fprintf(&b, "Type: %s\n", n.SubjectType)
	fmt.Fprintf(&b, "Reason: %s\n", n.Reason)
	fmt.Fprintf(&b, "Title: %s\n", n.Title)
	fmt.Fprintf(&b, "Updated: %s\n", n.UpdatedAt.UTC().Format(time.RFC3339))
	fmt.Fprintf(&b, "Thread: %s%s\n", base, n.ID)
	b.WriteString("Inbox: " + inboxURL)
	return b.String()
}
