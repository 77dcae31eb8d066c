// internal/wishlist/wishlist.go
//
// Menadżer wishlisty: lustro w pamięci (O(1) membership pod UI) + trwała
// tabela. Jedyny komponent, który pisze do wishlist_items. Kolejność przy
// mutacji jest celowa: najpierw trwały zapis, potem (tylko offline)
// best-effort wpis do outboxa — crash pomiędzy zostawia wishlistę spójną,
// a wpis kolejki jest czysto informacyjny.
package wishlist

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/bartek5186/erp2www/internal/db"
	"github.com/bartek5186/erp2www/internal/outbox"
)

type payload struct {
	ItemCode string `json:"item_code"`
}

type Manager struct {
	log    zerolog.Logger
	store  *db.Handle
	queue  *outbox.Queue
	online func() bool // sygnał z monitora sieci

	mu    sync.Mutex
	items map[string]struct{}
}

func New(log zerolog.Logger, store *db.Handle, queue *outbox.Queue, online func() bool) *Manager {
	return &Manager{
		log:    log,
		store:  store,
		queue:  queue,
		online: online,
		items:  map[string]struct{}{},
	}
}

// Load zasila lustro w pamięci z bazy — dokładnie raz, na starcie sesji.
func (m *Manager) Load() error {
	rows, err := m.store.AllWishlistItems()
	if err != nil {
		return fmt.Errorf("load wishlist: %w", err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items = make(map[string]struct{}, len(rows))
	for _, r := range rows {
		m.items[r.ItemCode] = struct{}{}
	}
	return nil
}

// Add dopisuje pozycję. Duplikaty są odrzucane już w pamięci — tabela i
// tak deduplikuje po kluczu, więc lustro musi się z nią zgadzać.
func (m *Manager) Add(itemCode string) error {
	m.mu.Lock()
	if _, ok := m.items[itemCode]; ok {
		m.mu.Unlock()
		return nil
	}
	m.items[itemCode] = struct{}{}
	m.mu.Unlock()

	if err := m.store.PutWishlistItem(&db.WishlistItem{ItemCode: itemCode, AddedAt: time.Now()}); err != nil {
		// cofnij lustro, żeby nie rozjechało się z bazą
		m.mu.Lock()
		delete(m.items, itemCode)
		m.mu.Unlock()
		return fmt.Errorf("wishlist add %s: %w", itemCode, err)
	}

	m.enqueueOffline(outbox.KindWishlistAdd, itemCode)
	return nil
}

// Remove — symetrycznie do Add.
func (m *Manager) Remove(itemCode string) error {
	m.mu.Lock()
	if _, ok := m.items[itemCode]; !ok {
		m.mu.Unlock()
		return nil
	}
	delete(m.items, itemCode)
	m.mu.Unlock()

	if err := m.store.DeleteWishlistItem(itemCode); err != nil {
		m.mu.Lock()
		m.items[itemCode] = struct{}{}
		m.mu.Unlock()
		return fmt.Errorf("wishlist remove %s: %w", itemCode, err)
	}

	m.enqueueOffline(outbox.KindWishlistRemove, itemCode)
	return nil
}

// IsMember — czyste zapytanie do lustra, bez dostępu do bazy.
func (m *Manager) IsMember(itemCode string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.items[itemCode]
	return ok
}

// Items zwraca posortowaną kopię pod UI.
func (m *Manager) Items() []string {
	m.mu.Lock()
	out := make([]string, 0, len(m.items))
	for code := range m.items {
		out = append(out, code)
	}
	m.mu.Unlock()
	sort.Strings(out)
	return out
}

func (m *Manager) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.items)
}

// enqueueOffline — wpis do outboxa tylko gdy offline; błąd nie psuje
// mutacji (kolejka dla wishlisty jest informacyjna, patrz outbox).
func (m *Manager) enqueueOffline(kind, itemCode string) {
	if m.online != nil && m.online() {
		return
	}
	if err := m.queue.Enqueue(kind, payload{ItemCode: itemCode}); err != nil {
		m.log.Warn().Err(err).Str("kind", kind).Str("item_code", itemCode).
			Msg("nie udało się dopisać mutacji do kolejki")
	}
}
