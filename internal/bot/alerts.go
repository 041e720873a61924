package bot

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"strategy-desk/internal/service"

	tele "gopkg.in/telebot.v3"
)

type messageSender interface {
	Send(to tele.Recipient, what interface{}, opts ...interface{}) (*tele.Message, error)
}

// AlertDispatcher broadcasts fused scores that crossed the alert threshold to subscribed chats.
type AlertDispatcher struct {
	sender messageSender

	mu          sync.RWMutex
	subscribers map[int64]struct{}
}

func NewAlertDispatcher(sender messageSender) *AlertDispatcher {
	return &AlertDispatcher{
		sender:      sender,
		subscribers: make(map[int64]struct{}),
	}
}

func (d *AlertDispatcher) Subscribe(chatID int64) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, exists := d.subscribers[chatID]; exists {
		return false
	}
	d.subscribers[chatID] = struct{}{}
	return true
}

func (d *AlertDispatcher) Unsubscribe(chatID int64) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, exists := d.subscribers[chatID]; !exists {
		return false
	}
	delete(d.subscribers, chatID)
	return true
}

func (d *AlertDispatcher) IsSubscribed(chatID int64) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()

	_, exists := d.subscribers[chatID]
	return exists
}

func (d *AlertDispatcher) SubscriberCount() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.subscribers)
}

// NotifyScores sends one message per subscriber listing every score. Send
// failures for one chat do not stop delivery to the others.
func (d *AlertDispatcher) NotifyScores(ctx context.Context, scores []service.FusionScore) error {
	if len(scores) == 0 {
		return nil
	}
	chats := d.snapshotSubscribers()
	if len(chats) == 0 {
		return nil
	}

	msg := formatAlertMessage(scores)
	var failed []string
	for _, chatID := range chats {
		if err := ctx.Err(); err != nil {
			return err
		}
		if _, err := d.sender.Send(&tele.Chat{ID: chatID}, msg); err != nil {
			failed = append(failed, fmt.Sprintf("%d: %v", chatID, err))
		}
	}
	if len(failed) > 0 {
		return fmt.Errorf("alert delivery failed for %s", strings.Join(failed, "; "))
	}
	return nil
}

func (d *AlertDispatcher) snapshotSubscribers() []int64 {
	d.mu.RLock()
	defer d.mu.RUnlock()

	out := make([]int64, 0, len(d.subscribers))
	for chatID := range d.subscribers {
		out = append(out, chatID)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func parseAlertMode(args []string) (string, error) {
	if len(args) == 0 {
		return "status", nil
	}
	switch strings.ToLower(strings.TrimSpace(args[0])) {
	case "on":
		return "on", nil
	case "off":
		return "off", nil
	case "status":
		return "status", nil
	default:
		return "", fmt.Errorf("unknown alert mode %q", args[0])
	}
}

func formatAlertMessage(scores []service.FusionScore) string {
	lines := make([]string, 0, len(scores)+1)
	lines = append(lines, "Signal alert:")
	for _, s := range scores {
		lines = append(lines, formatScore(s))
	}
	return strings.Join(lines, "\n")
}

func formatScore(s service.FusionScore) string {
	line := fmt.Sprintf(
		"%s %s %s score %+.1f (%d/%d signals)",
		s.Symbol,
		s.Horizon,
		scoreBias(s.FusedScore),
		s.FusedScore,
		s.EnabledSignals,
		s.TotalSignals,
	)
	if s.Degraded {
		line += " [degraded]"
	}
	return line
}

func scoreBias(score float64) string {
	switch {
	case score > 0:
		return "BULLISH"
	case score < 0:
		return "BEARISH"
	default:
		return "NEUTRAL"
	}
}
