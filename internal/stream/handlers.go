package stream

import (
	"encoding/json"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
)

func RegisterRoutes(r fiber.Router, hub *Hub) {
	r.Get("/ws/:sessionID", websocket.New(func(c *websocket.Conn) {
		sessionID := c.Params("sessionID")
		client := hub.Register(sessionID)
		defer client.Close()

		done := make(chan struct{})
		go func() {
			for event := range client.Send {
				buf, err := json.Marshal(event)
				if err != nil {
					continue
				}
				if err := c.WriteMessage(websocket.TextMessage, buf); err != nil {
					break
				}
			}
			close(done)
		}()

		for {
			if _, _, err := c.ReadMessage(); err != nil {
				break
			}
		}
		// Closing drains the writer: its range over Send ends once the
		// channel is closed, so the wait below cannot hang on an idle
		// session.
		client.Close()
		<-done
	}))
}
