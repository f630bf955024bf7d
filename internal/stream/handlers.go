package stream

import (
	"encoding/json"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
)

// Live-channel event names shared between producers and consumers.
const (
	EventLocation    = "location"
	EventNearbyStaff = "nearbyStaff"
	EventETA         = "eta"
	EventNotice      = "notice"
)

// LocationEvent is the payload of a live position broadcast, both as
// pushed by worker devices and as fanned out to booking/admin rooms.
type LocationEvent struct {
	UserID    string  `json:"userId,omitempty"`
	Role      string  `json:"role,omitempty"`
	SubRole   string  `json:"subRole,omitempty"`
	Lat       float64 `json:"lat"`
	Lng       float64 `json:"lng"`
	Timestamp int64   `json:"timestamp"`
	BookingID string  `json:"bookingId,omitempty"`
	Accuracy  string  `json:"accuracy,omitempty"`
}

// NearbyStaffEvent is the server-computed proximity hint pushed to a
// booking room when the worker closes in on the destination.
type NearbyStaffEvent struct {
	BookingID string  `json:"bookingId"`
	StaffID   string  `json:"staffId"`
	DistanceM float64 `json:"distanceM"`
}

// SampleSink receives raw worker positions arriving over the live
// channel. Satisfied by the tracking registry.
type SampleSink interface {
	Ingest(userID, role, subRole string, ev LocationEvent)
}

type clientMessage struct {
	Event string          `json:"event"`
	Room  string          `json:"room,omitempty"`
	Data  json.RawMessage `json:"data,omitempty"`
}

func RegisterRoutes(r fiber.Router, hub *Hub, sink SampleSink, authMiddleware fiber.Handler) {
	r.Get("/ws", authMiddleware, websocket.New(func(c *websocket.Conn) {
		userID, _ := c.Locals("user_id").(string)
		role, _ := c.Locals("role").(string)
		subRole, _ := c.Locals("sub_role").(string)

		client := hub.Register(userID)

		hub.Join(client, UserRoom(userID))
		if role == "admin" {
			hub.Join(client, RoomAdmin)
		}

		done := make(chan struct{})
		go func() {
			for msg := range client.Send {
				if err := c.WriteMessage(websocket.TextMessage, msg); err != nil {
					break
				}
			}
			close(done)
		}()

		for {
			_, raw, err := c.ReadMessage()
			if err != nil {
				break
			}
			var msg clientMessage
			if err := json.Unmarshal(raw, &msg); err != nil {
				continue
			}
			switch msg.Event {
			case "join":
				if msg.Room != "" {
					hub.Join(client, msg.Room)
				}
			case "leave":
				if msg.Room != "" {
					hub.Leave(client, msg.Room)
				}
			case EventLocation:
				if sink == nil {
					continue
				}
				var ev LocationEvent
				if err := json.Unmarshal(msg.Data, &ev); err != nil {
					continue
				}
				sink.Ingest(userID, role, subRole, ev)
			}
		}

		// closing Send lets the writer drain and exit
		hub.Unregister(client)
		<-done
	}))
}
