package websocket

import "github.com/ramonehamilton/clash-synergy/internal/service"

// Event types pushed to clients.
const (
	EventCatalogReloaded     = "catalog:reloaded"
	EventCatalogReloadFailed = "catalog:reload_failed"
)

// ReloadObserver forwards catalog reload outcomes to WebSocket clients.
type ReloadObserver struct {
	hub *Hub
}

// NewReloadObserver creates an observer broadcasting on hub.
func NewReloadObserver(hub *Hub) *ReloadObserver {
	return &ReloadObserver{hub: hub}
}

// OnReload matches the service.Service.OnReload callback signature.
func (o *ReloadObserver) OnReload(ev service.ReloadEvent) {
	if o.hub == nil {
		return
	}
	typ := EventCatalogReloaded
	if !ev.OK() {
		typ = EventCatalogReloadFailed
	}
	o.hub.Broadcast(Event{Type: typ, Data: ev})
}
