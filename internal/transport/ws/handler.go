package ws

import (
	"net/http"

	"github.com/rs/zerolog/log"
	"nhooyr.io/websocket"

	"github.com/Leothelion6721/Whatsapp-attachments/internal/service"
)

// ServeWS returns an HTTP handler that upgrades to WebSocket. Connections
// start anonymous; identity is established in-band by the login event, so
// no token is needed here.
func ServeWS(hub *Hub, svc *service.ChatService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			InsecureSkipVerify: true, // origin checks are the proxy's job
		})
		if err != nil {
			log.Debug().Err(err).Msg("ws: accept error")
			return
		}

		client := NewClient(hub, conn, svc)
		hub.add(client)

		go client.WritePump(r.Context())
		client.ReadPump(r.Context())
	}
}
