package lark

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/garyjia/claim-review/internal/application/port"
)

// Notifier implements port.Notifier with rich-text IM messages
type Notifier struct {
	sender        MessageSender
	receiveIDType string
	recipients    map[string]string
	logger        *zap.Logger
}

var _ port.Notifier = (*Notifier)(nil)

// NewNotifier creates a notifier. ReceiveIDType defaults to user_id.
func NewNotifier(sender MessageSender, cfg Config, logger *zap.Logger) *Notifier {
	idType := cfg.ReceiveIDType
	if idType == "" {
		idType = "user_id"
	}
	return &Notifier{
		sender:        sender,
		receiveIDType: idType,
		recipients:    cfg.Recipients,
		logger:        logger,
	}
}

type postElement struct {
	Tag  string `json:"tag"`
	Text string `json:"text"`
}

type postBody struct {
	Title   string          `json:"title"`
	Content [][]postElement `json:"content"`
}

// Notify sends msg to its recipient
func (n *Notifier) Notify(ctx context.Context, msg port.Notification) error {
	if msg.Recipient == "" {
		return fmt.Errorf("recipient cannot be empty")
	}

	receiveID := msg.Recipient
	if mapped, ok := n.recipients[msg.Recipient]; ok {
		receiveID = mapped
	}

	content, err := postContent(msg)
	if err != nil {
		return err
	}

	messageID, err := n.sender.SendMessage(ctx, n.receiveIDType, receiveID, "post", content)
	if err != nil {
		return fmt.Errorf("notify %s: %w", msg.Recipient, err)
	}

	n.logger.Info("Notification sent",
		zap.String("claim_id", msg.ClaimID),
		zap.String("recipient", msg.Recipient),
		zap.String("message_id", messageID))
	return nil
}

func postContent(msg port.Notification) (string, error) {
	lines := [][]postElement{
		{{Tag: "text", Text: msg.Body}},
	}
	if msg.ClaimID != "" {
		lines = append(lines, []postElement{{Tag: "text", Text: "Claim: " + msg.ClaimID}})
	}

	data, err := json.Marshal(map[string]postBody{
		"en_us": {Title: msg.Title, Content: lines},
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal message: %w", err)
	}
	return string(data), nil
}
