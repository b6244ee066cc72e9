package notification

import "context"

// Broadcaster pushes a payload to every subscriber of a channel.
type Broadcaster interface {
	Broadcast(channel string, data interface{})
}

// HubNotifier forwards alerts to live dashboard clients. Reports go to the
// "report" channel and alerts to the "alert" channel.
type HubNotifier struct {
	hub Broadcaster
}

// NewHubNotifier creates a notifier backed by hub.
func NewHubNotifier(hub Broadcaster) *HubNotifier {
	return &HubNotifier{hub: hub}
}

func (h *HubNotifier) Send(ctx context.Context, alert Alert) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	channel := string(alert.Kind)
	if channel == "" {
		channel = string(KindAlert)
	}
	h.hub.Broadcast(channel, alert)
	return nil
}
