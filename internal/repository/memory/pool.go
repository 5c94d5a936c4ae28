package memory

import (
	"container/list"
	"strings"
	"sync"

	"github.com/rocketscienceinc/tictactoe-arena/internal/apperror"
	"github.com/rocketscienceinc/tictactoe-arena/internal/entity"
)

// WaitingPool keeps announced players in arrival order.
// Names are unique among waiting players, compared case-insensitively.
type WaitingPool struct {
	mu sync.Mutex

	order  *list.List
	byConn map[string]*list.Element
	byName map[string]string
}

func NewWaitingPool() *WaitingPool {
	return &WaitingPool{
		order:  list.New(),
		byConn: make(map[string]*list.Element),
		byName: make(map[string]string),
	}
}

func (that *WaitingPool) Add(player *entity.Player) error {
	that.mu.Lock()
	defer that.mu.Unlock()

	if _, ok := that.byConn[player.ConnectionID]; ok {
		return apperror.ErrAlreadyConnected
	}

	key := nameKey(player.Name)
	if _, ok := that.byName[key]; ok {
		return apperror.ErrNameConflict
	}

	that.byConn[player.ConnectionID] = that.order.PushBack(player)
	that.byName[key] = player.ConnectionID

	return nil
}

func (that *WaitingPool) Get(connectionID string) (*entity.Player, bool) {
	that.mu.Lock()
	defer that.mu.Unlock()

	element, ok := that.byConn[connectionID]
	if !ok {
		return nil, false
	}

	return element.Value.(*entity.Player), true
}

func (that *WaitingPool) Remove(connectionID string) (*entity.Player, bool) {
	that.mu.Lock()
	defer that.mu.Unlock()

	return that.remove(connectionID)
}

// Pair removes the caller together with the longest-waiting other player.
// Nothing is removed unless both are present.
func (that *WaitingPool) Pair(connectionID string) (caller, opponent *entity.Player, ok bool) {
	that.mu.Lock()
	defer that.mu.Unlock()

	if _, found := that.byConn[connectionID]; !found {
		return nil, nil, false
	}

	for element := that.order.Front(); element != nil; element = element.Next() {
		candidate := element.Value.(*entity.Player)
		if candidate.ConnectionID == connectionID {
			continue
		}

		caller, _ = that.remove(connectionID)
		opponent, _ = that.remove(candidate.ConnectionID)

		return caller, opponent, true
	}

	return nil, nil, false
}

func (that *WaitingPool) Len() int {
	that.mu.Lock()
	defer that.mu.Unlock()

	return that.order.Len()
}

func (that *WaitingPool) remove(connectionID string) (*entity.Player, bool) {
	element, ok := that.byConn[connectionID]
	if !ok {
		return nil, false
	}

	player := that.order.Remove(element).(*entity.Player)
	delete(that.byConn, connectionID)
	delete(that.byName, nameKey(player.Name))

	return player, true
}

func nameKey(name string) string {
	return strings.ToLower(name)
}
