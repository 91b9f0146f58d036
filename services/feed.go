package services

import (
	"fmt"
	"log/slog"

	pubnub "github.com/pubnub/go"
)

// RealtimeFeed pushes door and sales activity to the organizer's live
// dashboard channel. Publishing is best-effort and never blocks the calling
// operation's outcome.
type RealtimeFeed struct {
	pubnub *pubnub.PubNub
}

func NewRealtimeFeed(pn *pubnub.PubNub) *RealtimeFeed {
	return &RealtimeFeed{pubnub: pn}
}

func (f *RealtimeFeed) Publish(ownerID string, message map[string]any) {
	if f == nil || f.pubnub == nil {
		return
	}

	channel := fmt.Sprintf("organizer-%s", ownerID)
	go func() {
		_, _, err := f.pubnub.Publish().
			Channel(channel).
			Message(message).
			Execute()
		if err != nil {
			slog.Warn("realtime publish failed", "channel", channel, "error", err)
		}
	}()
}
