package middleware

import (
	"encoding/base64"
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"
)

const (
	flashCookie     = "flash"
	flashContextKey = "flash_messages"
	maxFlashes      = 10
)

// Message levels.
const (
	LevelSuccess = "success"
	LevelInfo    = "info"
	LevelWarning = "warning"
	LevelError   = "error"
)

// FlashMessage is a one-shot notice carried to the next page the user
// loads.
type FlashMessage struct {
	Level string `json:"level"`
	Text  string `json:"text"`
}

// AddMessage queues a message for the next response that pops messages.
func AddMessage(c *gin.Context, level, text string) {
	messages := append(pending(c), FlashMessage{Level: level, Text: text})
	if len(messages) > maxFlashes {
		messages = messages[len(messages)-maxFlashes:]
	}
	c.Set(flashContextKey, messages)
	writeFlashCookie(c, messages)
}

// PopMessages returns the queued messages and clears them.
func PopMessages(c *gin.Context) []FlashMessage {
	messages := pending(c)
	c.Set(flashContextKey, []FlashMessage{})
	if len(messages) > 0 {
		c.SetSameSite(http.SameSiteLaxMode)
		c.SetCookie(flashCookie, "", -1, "/", "", false, true)
	}
	return messages
}

// pending reads messages already queued during this request, or those the
// client sent back in the cookie.
func pending(c *gin.Context) []FlashMessage {
	if v, ok := c.Get(flashContextKey); ok {
		if messages, ok := v.([]FlashMessage); ok {
			return messages
		}
	}

	raw, err := c.Cookie(flashCookie)
	if err != nil || raw == "" {
		return []FlashMessage{}
	}
	data, err := base64.URLEncoding.DecodeString(raw)
	if err != nil {
		return []FlashMessage{}
	}
	var messages []FlashMessage
	if err := json.Unmarshal(data, &messages); err != nil {
		return []FlashMessage{}
	}
	return messages
}

func writeFlashCookie(c *gin.Context, messages []FlashMessage) {
	data, err := json.Marshal(messages)
	if err != nil {
		return
	}
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(flashCookie, base64.URLEncoding.EncodeToString(data), 300, "/", "", false, true)
}
