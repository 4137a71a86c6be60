// Package alerts delivers fire-and-forget Telegram notifications for
// actionable candidates, breakout triggers and double-EXTREME spikes.
package alerts

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"pump-detector/database"
)

// TelegramAlerter sends HTML messages to a Telegram chat. When the token or
// chat id is missing the alerter stays disabled and every send is a no-op.
type TelegramAlerter struct {
	botToken string
	chatID   string
	baseURL  string
	client   *http.Client
	enabled  bool
}

// NewTelegramAlerter creates an alerter; disabled without credentials
func NewTelegramAlerter(botToken, chatID string) *TelegramAlerter {
	enabled := botToken != "" && chatID != ""
	if !enabled {
		log.Println("⚠️  Telegram bot token or chat id not configured. Alerts disabled.")
	} else {
		log.Printf("✅ Telegram alerter initialized for chat %s", chatID)
	}
	return &TelegramAlerter{
		botToken: botToken,
		chatID:   chatID,
		baseURL:  "https://api.telegram.org/bot" + botToken,
		client: &http.Client{
			Timeout: database.HTTPClientTimeout,
		},
		enabled: enabled,
	}
}

// Enabled reports whether messages will actually be sent
func (t *TelegramAlerter) Enabled() bool {
	return t.enabled
}

// SendMessage posts one HTML message. Failure never blocks persistence;
// callers log and proceed.
func (t *TelegramAlerter) SendMessage(message string) error {
	if !t.enabled {
		return nil
	}

	payload := map[string]interface{}{
		"chat_id":                  t.chatID,
		"text":                     message,
		"parse_mode":               "HTML",
		"disable_web_page_preview": true,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("SendMessage: marshal: %w", err)
	}

	resp, err := t.client.Post(t.baseURL+"/sendMessage", "application/json", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("SendMessage: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("SendMessage: telegram API status %d", resp.StatusCode)
	}
	return nil
}

// FormatCandidateAlert renders an actionable candidate message
func FormatCandidateAlert(c *database.PumpCandidate) string {
	confEmoji := "🟢"
	switch c.Confidence {
	case database.ConfidenceHigh:
		confEmoji = "🔴"
	case database.ConfidenceMedium:
		confEmoji = "🟡"
	}

	patternEmoji := "📊"
	switch c.PatternType {
	case database.PatternExtremePrecursor:
		patternEmoji = "⚡️"
	case database.PatternStrongPrecursor:
		patternEmoji = "💥"
	}

	eta := "n/a"
	if c.ETAHours != nil {
		eta = fmt.Sprintf("~%dh", *c.ETAHours)
	}

	message := fmt.Sprintf(`%s <b>PUMP ALERT: %s</b>

%s <b>Pattern:</b> %s
📈 <b>Confidence:</b> %s (%.1f/100)

<b>Signals:</b>
├ Total: %d
├ EXTREME: %d
└ Critical window (48-72h): %d

⏰ <b>ETA:</b> %s

🎯 <b>ACTIONABLE</b>`,
		confEmoji, c.Symbol,
		patternEmoji, c.PatternType,
		c.Confidence, c.Score,
		c.TotalSignals, c.ExtremeSignals, c.CriticalWindowSignals,
		eta)
	return strings.TrimSpace(message)
}

// FormatBreakoutAlert renders the pump-start message fired by the breakout
// watcher when both market sides surge
func FormatBreakoutAlert(c *database.PumpCandidate, spotRatio, futuresRatio, spotThreshold, futuresThreshold float64, candleTime time.Time) string {
	eta := "n/a"
	if c.ETAHours != nil {
		eta = fmt.Sprintf("%dh", *c.ETAHours)
	}

	message := fmt.Sprintf(`🚨🚨🚨 PUMP HAS STARTED! 🚨🚨🚨

💎 %s
⏰ Candle: %s

📊 Volume Spikes:
  • SPOT: %.2fx (threshold: %.1fx)
  • FUTURES: %.2fx (threshold: %.1fx)

🎯 Candidate Info:
  • Confidence: %s
  • Score: %.2f
  • Pattern: %s
  • Total Signals: %d
  • EXTREME Signals: %d
  • ETA: %s

⚡ ACTION REQUIRED! ⚡`,
		c.Symbol,
		candleTime.Format("15:04 UTC"),
		spotRatio, spotThreshold,
		futuresRatio, futuresThreshold,
		c.Confidence, c.Score, c.PatternType,
		c.TotalSignals, c.ExtremeSignals,
		eta)
	return strings.TrimSpace(message)
}

// FormatDoubleExtremeAlert renders the same-candle EXTREME co-occurrence message
func FormatDoubleExtremeAlert(occ database.CoOccurrence) string {
	message := fmt.Sprintf(`🔥🔥🔥 DOUBLE EXTREME DETECTED! 🔥🔥🔥

🚀 <b>%s</b> shows MASSIVE volume spikes on both markets!

⏰ Candle: %s

📊 Volume Spikes (7-day base):
  • SPOT:    <b>%.2fx</b> 🟢
  • FUTURES: <b>%.2fx</b> 🔵

💰 Volume:
  • Spot: $%.0f
  • Futures: $%.0f

⚠️ High probability of volatility!`,
		occ.Symbol,
		occ.SignalTimestamp.Format("2006-01-02 15:04 UTC"),
		occ.SpotRatio, occ.FuturesRatio,
		occ.SpotVolume, occ.FuturesVolume)
	return strings.TrimSpace(message)
}
