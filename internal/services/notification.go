package services

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/teampulse-io/teampulse/backend/internal/models"
	"github.com/teampulse-io/teampulse/backend/pkg/logger"
	"gorm.io/gorm"
)

// NotificationService pushes automation digests to the configured IM
// bots. A digest failure is logged and reported upward but never fails
// the cycle that produced it.
type NotificationService struct {
	db *gorm.DB
}

func NewNotificationService(db *gorm.DB) *NotificationService {
	return &NotificationService{db: db}
}

// SendActionDigest sends one digest covering all actions a cycle
// produced to every active bot. Bots fail independently; the first
// error is returned after all bots were attempted.
func (s *NotificationService) SendActionDigest(run *models.AutomationRun, actions []models.AutomationAction) error {
	var bots []models.IMBot
	if err := s.db.Where("is_active = ?", true).Find(&bots).Error; err != nil {
		return fmt.Errorf("load IM bots: %w", err)
	}
	if len(bots) == 0 {
		logger.Debug().Msg("[Notification] No active IM bots configured")
		return nil
	}

	msg := s.buildDigest(run, actions)

	var firstErr error
	for i := range bots {
		bot := &bots[i]
		logger.Info().Str("bot", bot.Name).Str("type", bot.Type).Msg("[Notification] Sending action digest")

		var err error
		switch bot.Type {
		case "wechat_work":
			err = s.sendWeCom(bot, msg)
		case "dingtalk":
			err = s.sendDingTalk(bot, "Automation Digest", msg)
		case "feishu":
			err = s.sendFeishu(bot, msg)
		case "slack":
			err = s.sendSlack(bot, msg)
		default:
			err = s.sendGenericWebhook(bot, run, actions)
		}

		if err != nil {
			logger.Error().Err(err).Str("bot", bot.Name).Msg("[Notification] Digest send failed")
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

func (s *NotificationService) buildDigest(run *models.AutomationRun, actions []models.AutomationAction) string {
	pending := 0
	approved := 0
	for _, a := range actions {
		if a.Status == models.ActionStatusPending {
			pending++
		} else {
			approved++
		}
	}

	var b strings.Builder
	b.WriteString("📋 **Automation Digest**\n\n")
	fmt.Fprintf(&b, "**Run**: #%d at %s\n", run.ID, run.StartedAt.Format("2006-01-02 15:04"))
	fmt.Fprintf(&b, "**New actions**: %d (%d auto-approved, %d awaiting review)\n\n---\n", len(actions), approved, pending)

	for _, a := range actions {
		marker := "🟡"
		if a.Status != models.ActionStatusPending {
			marker = "🟢"
		}
		fmt.Fprintf(&b, "%s **%s** (%s, confidence %.2f)\n", marker, a.Title, a.Type, a.Confidence)
		if a.Description != "" {
			desc := a.Description
			if len(desc) > 200 {
				desc = desc[:200] + "..."
			}
			fmt.Fprintf(&b, "%s\n", desc)
		}
		b.WriteString("\n")
	}
	return b.String()
}

func (s *NotificationService) sendWeCom(bot *models.IMBot, msg string) error {
	const maxLen = 4000

	parts := s.splitMessage(msg, maxLen)
	for i, part := range parts {
		content := part
		if len(parts) > 1 {
			content = fmt.Sprintf("**[%d/%d]**\n\n%s", i+1, len(parts), part)
		}
		payload := map[string]interface{}{
			"msgtype": "markdown",
			"markdown": map[string]string{
				"content": content,
			},
		}
		if err := s.postJSON(bot.Webhook, payload); err != nil {
			return err
		}
	}
	return nil
}

func (s *NotificationService) sendDingTalk(bot *models.IMBot, title, msg string) error {
	const maxLen = 19000

	webhookURL := bot.Webhook
	if bot.Secret != "" {
		timestamp := time.Now().UnixMilli()
		sign := s.dingTalkSign(timestamp, bot.Secret)
		webhookURL = fmt.Sprintf("%s&timestamp=%d&sign=%s", bot.Webhook, timestamp, url.QueryEscape(sign))
	}

	parts := s.splitMessage(msg, maxLen)
	for i, part := range parts {
		partTitle := title
		if len(parts) > 1 {
			partTitle = fmt.Sprintf("%s [%d/%d]", title, i+1, len(parts))
		}
		payload := map[string]interface{}{
			"msgtype": "markdown",
			"markdown": map[string]string{
				"title": partTitle,
				"text":  part,
			},
		}
		if err := s.postJSON(webhookURL, payload); err != nil {
			return err
		}
	}
	return nil
}

func (s *NotificationService) dingTalkSign(timestamp int64, secret string) string {
	stringToSign := fmt.Sprintf("%d\n%s", timestamp, secret)
	h := hmac.New(sha256.New, []byte(secret))
	h.Write([]byte(stringToSign))
	return base64.StdEncoding.EncodeToString(h.Sum(nil))
}

func (s *NotificationService) sendFeishu(bot *models.IMBot, msg string) error {
	const maxLen = 4000

	sendPart := func(content string) error {
		if bot.Secret != "" {
			timestamp := time.Now().Unix()
			sign := s.feishuSign(timestamp, bot.Secret)
			payload := map[string]interface{}{
				"timestamp": fmt.Sprintf("%d", timestamp),
				"sign":      sign,
				"msg_type":  "text",
				"content": map[string]string{
					"text": content,
				},
			}
			return s.postJSON(bot.Webhook, payload)
		}
		payload := map[string]interface{}{
			"msg_type": "text",
			"content": map[string]string{
				"text": content,
			},
		}
		return s.postJSON(bot.Webhook, payload)
	}

	parts := s.splitMessage(msg, maxLen)
	for i, part := range parts {
		content := part
		if len(parts) > 1 {
			content = fmt.Sprintf("[%d/%d]\n\n%s", i+1, len(parts), part)
		}
		if err := sendPart(content); err != nil {
			return err
		}
	}
	return nil
}

func (s *NotificationService) feishuSign(timestamp int64, secret string) string {
	stringToSign := fmt.Sprintf("%d\n%s", timestamp, secret)
	h := hmac.New(sha256.New, []byte(stringToSign))
	return base64.StdEncoding.EncodeToString(h.Sum(nil))
}

func (s *NotificationService) sendSlack(bot *models.IMBot, msg string) error {
	const maxLen = 3000

	parts := s.splitMessage(msg, maxLen)
	for i, part := range parts {
		text := part
		if len(parts) > 1 {
			text = fmt.Sprintf("*[%d/%d]*\n%s", i+1, len(parts), part)
		}
		payload := map[string]interface{}{
			"text": text,
			"blocks": []map[string]interface{}{
				{
					"type": "section",
					"text": map[string]string{
						"type": "mrkdwn",
						"text": text,
					},
				},
			},
		}
		if err := s.postJSON(bot.Webhook, payload); err != nil {
			return err
		}
	}
	return nil
}

func (s *NotificationService) sendGenericWebhook(bot *models.IMBot, run *models.AutomationRun, actions []models.AutomationAction) error {
	payload := map[string]interface{}{
		"run_id":           run.ID,
		"started_at":       run.StartedAt,
		"actions_proposed": len(actions),
		"actions":          actions,
	}
	return s.postJSON(bot.Webhook, payload)
}

// splitMessage splits a long message into chunks, trying to break at newlines
func (s *NotificationService) splitMessage(msg string, maxLen int) []string {
	if len(msg) <= maxLen {
		return []string{msg}
	}

	var parts []string
	remaining := msg

	for len(remaining) > 0 {
		if len(remaining) <= maxLen {
			parts = append(parts, remaining)
			break
		}

		chunk := remaining[:maxLen]
		breakPoint := maxLen

		// Look for the last newline in the chunk
		for i := len(chunk) - 1; i > maxLen/2; i-- {
			if chunk[i] == '\n' {
				breakPoint = i + 1
				break
			}
		}

		parts = append(parts, remaining[:breakPoint])
		remaining = remaining[breakPoint:]
	}

	return parts
}

func (s *NotificationService) postJSON(webhookURL string, payload interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	resp, err := http.Post(webhookURL, "application/json", bytes.NewReader(body))
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)
	logger.Debugf("[Notification] Response: %d - %s", resp.StatusCode, string(respBody))

	if resp.StatusCode >= 400 {
		return fmt.Errorf("webhook returned status %d: %s", resp.StatusCode, string(respBody))
	}

	return nil
}
