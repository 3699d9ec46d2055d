package scan

import (
	"fmt"
	"time"

	"github.com/kenlau666/tg-bulk-invite-next/internal/platform/messaging"
)

// DefaultRecencyWindow is how long ago a member may have been last seen and
// still count as recently active.
const DefaultRecencyWindow = 7 * 24 * time.Hour

// IsRecentlyActive reports whether a user with the given status counts as
// recently active. Statuses without usable presence information count as
// active.
func IsRecentlyActive(status messaging.UserStatus, now time.Time, window time.Duration) bool {
	switch status.Kind {
	case messaging.StatusOnline, messaging.StatusRecently, messaging.StatusLastWeek:
		return true
	case messaging.StatusOffline:
		if status.WasOnline.IsZero() {
			return true
		}
		return now.Sub(status.WasOnline) <= window
	case messaging.StatusLastMonth, messaging.StatusLongAgo:
		return false
	default:
		return true
	}
}

// DescribeLastSeen renders the status as shown to the operator.
func DescribeLastSeen(status messaging.UserStatus, now time.Time) string {
	switch status.Kind {
	case messaging.StatusOnline, messaging.StatusRecently:
		return "Online recently"
	case messaging.StatusOffline:
		if status.WasOnline.IsZero() {
			return "Unknown"
		}
		days := int(now.Sub(status.WasOnline).Hours() / 24)
		return fmt.Sprintf("Last seen %d days ago", days)
	case messaging.StatusLastWeek:
		return "Last seen within a week"
	case messaging.StatusLastMonth:
		return "Last seen within a month"
	case messaging.StatusLongAgo:
		return "Last seen a long time ago"
	default:
		return "Unknown"
	}
}
