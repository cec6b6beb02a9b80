package alert

import (
	"fmt"
	"strings"
	"time"
)

// AlertHeader prefixes every item alert.
const AlertHeader = "🚨 新推文警报"

// FormatMessage renders the alert body for one item. Without a permalink the
// item text is sent as-is.
func FormatMessage(text, permalink string) string {
	if permalink == "" {
		return text
	}
	return fmt.Sprintf("%s\n%s\n🔗 %s", AlertHeader, text, permalink)
}

// FormatStartupNotice renders the one-off message sent when the watcher starts.
func FormatStartupNotice(handle string, startedAt time.Time, keywords []string) string {
	return fmt.Sprintf("🤖 监控已启动\n对象: @%s\n时间: %s\n关键词: %s",
		handle,
		startedAt.Format("2006-01-02 15:04:05 MST"),
		strings.Join(keywords, "、"),
	)
}
