// internal/netmon/netmon.go
//
// Monitor stanu sieci: jedna flaga online/offline + powiadamianie
// subskrybentów o zmianie. Odzwierciedla stan zgłaszany przez platformę
// (flagi interfejsów), nie sonduje osiągalności serwera.
package netmon

import (
	"context"
	"net"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

type Monitor struct {
	log zerolog.Logger

	mu     sync.Mutex
	online bool
	subs   map[chan bool]struct{}
}

// New czyta stan początkowy z flag interfejsów. Pierwszy odczyt może być
// nieaktualny (platforma bywa spóźniona) — akceptujemy to, nie korygujemy.
func New(log zerolog.Logger) *Monitor {
	return &Monitor{
		log:    log,
		online: InterfacesUp(),
		subs:   map[chan bool]struct{}{},
	}
}

func (m *Monitor) IsOnline() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.online
}

// Set ustawia stan i powiadamia subskrybentów tylko przy faktycznej zmianie.
func (m *Monitor) Set(online bool) {
	m.mu.Lock()
	if m.online == online {
		m.mu.Unlock()
		return
	}
	m.online = online
	subs := make([]chan bool, 0, len(m.subs))
	for ch := range m.subs {
		subs = append(subs, ch)
	}
	m.mu.Unlock()

	m.log.Info().Bool("online", online).Msg("zmiana stanu sieci")
	for _, ch := range subs {
		// nie blokuj się na wolnym subskrybencie
		select {
		case ch <- online:
		default:
		}
	}
}

// Subscribe zwraca kanał z powiadomieniami o zmianie stanu.
// Kanał jest buforowany; zgubione powiadomienie nadrabia się przez IsOnline().
func (m *Monitor) Subscribe() chan bool {
	ch := make(chan bool, 4)
	m.mu.Lock()
	m.subs[ch] = struct{}{}
	m.mu.Unlock()
	return ch
}

func (m *Monitor) Unsubscribe(ch chan bool) {
	m.mu.Lock()
	delete(m.subs, ch)
	m.mu.Unlock()
}

// Watch odświeża stan z flag interfejsów co interval, aż ctx się skończy.
// To nadal stan platformy (interfejs up/down), nie aktywny probing HTTP.
func (m *Monitor) Watch(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.Set(InterfacesUp())
		}
	}
}

// InterfacesUp — odpowiednik navigator.onLine: czy jest podniesiony
// jakikolwiek nie-loopbackowy interfejs z adresem.
func InterfacesUp() bool {
	ifs, err := net.Interfaces()
	if err != nil {
		return false
	}
	for _, it := range ifs {
		if it.Flags&net.FlagUp == 0 || it.Flags&net.FlagLoopback != 0 {
			continue
		}
		addrs, err := it.Addrs()
		if err == nil && len(addrs) > 0 {
			return true
		}
	}
	return false
}
