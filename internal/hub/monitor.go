package hub

import (
	"github.com/VISHYOU-GIT/realestate-chat/internal/model"
)

// MonitorService gathers hub statistics for the monitoring endpoint.
type MonitorService struct {
	hub *Hub
}

func NewMonitorService(hub *Hub) *MonitorService {
	return &MonitorService{hub: hub}
}

// GetStats snapshots connections, rooms and typing leases.
func (ms *MonitorService) GetStats() model.MonitorResponse {
	clients := ms.getClientList()
	rooms := ms.getRoomStats()

	status := "healthy"
	if len(clients) == 0 {
		status = "idle"
	}

	return model.MonitorResponse{
		Status:      status,
		Connections: len(clients),
		Rooms:       rooms,
		Clients:     clients,
	}
}

func (ms *MonitorService) getRoomStats() model.RoomStats {
	stats := model.RoomStats{
		RoomDetails: make([]model.RoomInfo, 0),
	}

	for _, bucket := range ms.hub.shards {
		bucket.RLock()
		for conversationID, room := range bucket.rooms {
			userIDs := make([]string, 0, len(room))
			for _, c := range room {
				userIDs = append(userIDs, c.userID)
			}

			stats.RoomDetails = append(stats.RoomDetails, model.RoomInfo{
				ConversationID: conversationID,
				Viewers:        len(room),
				UserIDs:        userIDs,
				TypingUsers:    ms.hub.typing.ActiveUsers(conversationID),
			})
			stats.TotalRooms++
		}
		bucket.RUnlock()
	}

	return stats
}

func (ms *MonitorService) getClientList() []model.ClientInfo {
	ms.hub.onlineMu.RLock()
	defer ms.hub.onlineMu.RUnlock()

	clients := make([]model.ClientInfo, 0, len(ms.hub.online))
	for _, c := range ms.hub.online {
		clients = append(clients, model.ClientInfo{
			ClientID: c.ID,
			UserID:   c.userID,
			Rooms:    c.roomList(),
		})
	}
	return clients
}
