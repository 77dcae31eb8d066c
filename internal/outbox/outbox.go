// internal/outbox/outbox.go
//
// Trwały outbox mutacji wykonanych offline. Wpisy wishlist-add /
// wishlist-remove są już zastosowane lokalnie w momencie enqueue
// (optymistyczny zapis), więc drain tylko flaguje je jako synced —
// zdalnego endpointu wishlisty dziś nie ma. Kolejka istnieje jako ślad
// audytowy i licznik "pending sync" dla użytkownika, oraz jako punkt
// zaczepienia pod przyszłą prawdziwą rekonsyliację z serwerem.
package outbox

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/bartek5186/erp2www/internal/db"
)

// Rodzaje mutacji w kolejce.
const (
	KindWishlistAdd    = "wishlist-add"
	KindWishlistRemove = "wishlist-remove"
	KindSessionUpdate  = "session-update"
)

// ErrItemFailed — pojedynczy wpis nie dał się przetworzyć podczas drain.
// Izolowany per wpis: nie przerywa partii i nie wychodzi poza log.
var ErrItemFailed = errors.New("queue item failed")

// Handler przetwarza jeden wpis danego rodzaju. Zwrócenie nil oznacza,
// że efekt (lokalny lub zdalny) jest potwierdzony i wpis można oflagować.
type Handler func(ctx context.Context, item db.SyncQueueItem) error

type Queue struct {
	log      zerolog.Logger
	store    *db.Handle
	handlers map[string]Handler
}

func New(log zerolog.Logger, store *db.Handle) *Queue {
	q := &Queue{log: log, store: store, handlers: map[string]Handler{}}
	// domyślnie wszystkie znane rodzaje są local-only: brak pracy zdalnej
	noop := func(ctx context.Context, item db.SyncQueueItem) error { return nil }
	q.handlers[KindWishlistAdd] = noop
	q.handlers[KindWishlistRemove] = noop
	q.handlers[KindSessionUpdate] = noop
	return q
}

// SetHandler podmienia obsługę rodzaju (przyszły zdalny endpoint, testy).
func (q *Queue) SetHandler(kind string, h Handler) {
	q.handlers[kind] = h
}

// Enqueue dopisuje mutację: synced=false, bieżący timestamp, auto-id.
func (q *Queue) Enqueue(kind string, payload any) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	it := db.SyncQueueItem{Kind: kind, PayloadJSON: string(raw)}
	if err := q.store.AppendQueueItem(&it); err != nil {
		return fmt.Errorf("append queue item: %w", err)
	}
	q.log.Debug().Uint("id", it.ID).Str("kind", kind).Msg("mutacja w kolejce")
	return nil
}

// Pending zwraca wpisy z synced=false (po indeksie), najstarsze najpierw.
func (q *Queue) Pending() ([]db.SyncQueueItem, error) {
	return q.store.PendingQueueItems()
}

// DrainPending przetwarza zaległe wpisy pojedynczo: błąd jednego wpisu
// nie przerywa partii (best-effort). Ponowny drain bez nowych wpisów to
// no-op — flagowanie synced jest idempotentne, a drains serializuje
// orkiestrator (najwyżej jeden na reconnect).
func (q *Queue) DrainPending(ctx context.Context) (processed, failed int, err error) {
	items, err := q.store.PendingQueueItems()
	if err != nil {
		return 0, 0, fmt.Errorf("read pending: %w", err)
	}
	if len(items) == 0 {
		return 0, 0, nil
	}

	q.log.Info().Int("pending", len(items)).Msg("drain kolejki mutacji")
	for _, it := range items {
		if ctx.Err() != nil {
			return processed, failed, ctx.Err()
		}
		if derr := q.dispatch(ctx, it); derr != nil {
			failed++
			q.log.Error().Err(fmt.Errorf("%w: %v", ErrItemFailed, derr)).
				Uint("id", it.ID).Str("kind", it.Kind).Msg("wpis kolejki nieudany")
			continue
		}
		if merr := q.store.MarkQueueItemSynced(it.ID); merr != nil {
			failed++
			q.log.Error().Err(merr).Uint("id", it.ID).Msg("nie udało się oflagować synced")
			continue
		}
		processed++
	}
	return processed, failed, nil
}

func (q *Queue) dispatch(ctx context.Context, it db.SyncQueueItem) error {
	h, ok := q.handlers[it.Kind]
	if !ok {
		// nieznany rodzaj zostaje pending — nowsza wersja agenta go obsłuży
		return fmt.Errorf("unknown kind %q", it.Kind)
	}
	return h(ctx, it)
}
