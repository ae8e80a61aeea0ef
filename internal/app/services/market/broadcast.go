package market

import (
	"context"
	"encoding/json"

	"quickswap/internal/domain/notification"
	"quickswap/internal/infra/wire"
)

type BroadcastParams struct {
	Title    string
	Message  string
	Priority notification.Priority
	// Topic and Tone drive the generative draft when Title/Message are empty.
	Topic string
	Tone  string
}

// Broadcast sends a system notification to every registered user. When no
// explicit copy is given, the generative collaborator drafts it from the
// topic; if that fails the topic itself becomes the message.
func (s *Service) Broadcast(ctx context.Context, adminID string, params BroadcastParams) (int, error) {
	if err := s.requireAdmin(ctx, adminID); err != nil {
		return 0, err
	}
	title, message := params.Title, params.Message
	if (title == "" || message == "") && params.Topic != "" {
		if s.GenAI.Configured() {
			draft, err := s.GenAI.DraftAdminNotification(ctx, params.Topic, params.Tone)
			if err != nil {
				s.Logger.Warn("broadcast draft failed", "topic", params.Topic, "err", err)
			} else {
				title, message = draft.Title, draft.Message
			}
		}
		if title == "" {
			title = "Announcement"
		}
		if message == "" {
			message = params.Topic
		}
	}

	rows, err := s.Store.Select(ctx, wire.TableUsers, nil, nil)
	if err != nil {
		return 0, err
	}
	sent := 0
	for _, row := range rows {
		var rec wire.UserRecord
		if err := json.Unmarshal(row, &rec); err != nil {
			continue
		}
		s.notify(ctx, notification.CreateParams{
			UserID:   rec.ID,
			Type:     notification.TypeSystem,
			Priority: params.Priority,
			Title:    title,
			Message:  message,
		})
		sent++
	}
	s.Logger.Info("broadcast sent", "admin_id", adminID, "recipients", sent)
	return sent, nil
}
