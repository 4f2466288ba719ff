// Package hub is the process-local fan-out registry: connections grouped by table id.
package hub

import (
	"sync"

	cmap "github.com/orcaman/concurrent-map/v2"
)

// Conn is a live client connection as seen by the registry.
type Conn interface {
	ID() string
	UserID() string
	Send(raw []byte) error
}

type group struct {
	mu    sync.RWMutex
	conns map[string]Conn
}

type Hub struct {
	groups cmap.ConcurrentMap[string, *group]
}

func New() *Hub {
	return &Hub{
		groups: cmap.New[*group](),
	}
}

func (h *Hub) Subscribe(tableID string, conn Conn) {
	for {
		g := h.groups.Upsert(tableID, nil, func(exist bool, valueInMap *group, _ *group) *group {
			if exist {
				return valueInMap
			}
			return &group{conns: make(map[string]Conn)}
		})

		g.mu.Lock()
		// 分组可能刚被 Unsubscribe 清理掉，重新获取
		if current, ok := h.groups.Get(tableID); !ok || current != g {
			g.mu.Unlock()
			continue
		}
		g.conns[conn.ID()] = conn
		g.mu.Unlock()
		return
	}
}

func (h *Hub) Unsubscribe(tableID, connID string) {
	g, ok := h.groups.Get(tableID)
	if !ok {
		return
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.conns, connID)
	if len(g.conns) == 0 {
		h.groups.RemoveCb(tableID, func(_ string, v *group, exists bool) bool {
			return exists && v == g
		})
	}
}

// Members returns a copy of the table's connections.
func (h *Hub) Members(tableID string) []Conn {
	g, ok := h.groups.Get(tableID)
	if !ok {
		return nil
	}

	g.mu.RLock()
	defer g.mu.RUnlock()
	res := make([]Conn, 0, len(g.conns))
	for _, v := range g.conns {
		res = append(res, v)
	}
	return res
}

// Deliver sends raw to every member except the connection exceptID and returns
// the number of successful sends. Failed sends are reported through onFail.
func (h *Hub) Deliver(tableID string, raw []byte, exceptID string, onFail func(conn Conn, err error)) int {
	var delivered int
	for _, conn := range h.Members(tableID) {
		if conn.ID() == exceptID {
			continue
		}
		if err := conn.Send(raw); err != nil {
			if onFail != nil {
				onFail(conn, err)
			}
			continue
		}
		delivered++
	}
	return delivered
}

// Drop removes the whole group, the connections themselves stay open.
func (h *Hub) Drop(tableID string) {
	h.groups.Remove(tableID)
}

func (h *Hub) Count() int {
	return h.groups.Count()
}
