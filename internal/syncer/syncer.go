// internal/syncer/syncer.go
//
// Orkiestrator auto-syncu: spina monitor sieci, silnik katalogu i outbox.
// Sync katalogu odpala się na starcie i po powrocie sieci, o ile cache
// jest starszy niż okno świeżości. Błędy syncu są logowane, nie ma
// automatycznego retry — następna okazja to kolejny reconnect albo
// restart. Użytkownik nigdy nie dostaje twardego błędu: serwujemy
// ostatni zapisany stan katalogu (stale-but-available).
package syncer

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/bartek5186/erp2www/internal/catalog"
	conf "github.com/bartek5186/erp2www/internal/config"
	"github.com/bartek5186/erp2www/internal/db"
	"github.com/bartek5186/erp2www/internal/erpnext"
	"github.com/bartek5186/erp2www/internal/integrations"
	_ "github.com/bartek5186/erp2www/internal/integrations/importer" // rejestracja
	"github.com/bartek5186/erp2www/internal/netmon"
)

type State string

const (
	StateIdle    State = "idle"
	StateSyncing State = "syncing"
	StateError   State = "error"
)

// CatalogEngine i Drainer — wąskie kontrakty pod testy; w produkcji
// catalog.Engine i outbox.Queue.
type CatalogEngine interface {
	SyncCatalog(ctx context.Context) (int, error)
	NeedsSync(window time.Duration) bool
}

type Drainer interface {
	DrainPending(ctx context.Context) (processed, failed int, err error)
}

// wrapper na uruchomioną integrację
type runningInt struct {
	Name string
	Inst integrations.Integration
}

type Syncer struct {
	log    zerolog.Logger
	store  *db.Handle
	mon    *netmon.Monitor
	engine CatalogEngine
	queue  Drainer

	mu      sync.Mutex
	cfg     *conf.Config
	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	state   State
	ints    []runningInt

	// serializuje przebiegi syncu (loop vs ręczne SyncNow)
	syncMu sync.Mutex
}

func New(log zerolog.Logger, cfg *conf.Config, store *db.Handle, mon *netmon.Monitor, engine CatalogEngine, queue Drainer) *Syncer {
	return &Syncer{
		log:    log,
		cfg:    cfg,
		store:  store,
		mon:    mon,
		engine: engine,
		queue:  queue,
		state:  StateIdle,
	}
}

func (s *Syncer) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return nil
	}
	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.running = true

	ints := s.buildIntegrationsLocked()
	s.ints = ints
	s.wg.Add(1)
	s.mu.Unlock()

	// subskrypcja przed startem pętli — zdarzenie sieci tuż po Start
	// nie może przepaść
	wasOnline := s.mon.IsOnline()
	events := s.mon.Subscribe()

	s.log.Info().Msg("syncer: start")
	go s.loop(ctx, events, wasOnline)

	// każda integracja w swojej gorutinie
	for i := range ints {
		s.wg.Add(1)
		go func(intg integrations.Integration) {
			defer s.wg.Done()
			if err := intg.Start(ctx); err != nil {
				s.log.Error().Err(err).Str("integration", intg.Name()).Msg("integracja zakończona z błędem")
			}
		}(ints[i].Inst)
	}
	return nil
}

func (s *Syncer) buildIntegrationsLocked() []runningInt {
	var out []runningInt
	if s.cfg == nil || len(s.cfg.Integrations) == 0 {
		return out
	}
	for name, raw := range s.cfg.Integrations {
		f, ok := integrations.Get(name)
		if !ok {
			s.log.Warn().Str("integration", name).Msg("brak fabryki – pomijam")
			continue
		}
		inst, err := f(s.log.With().Str("integration", name).Logger(), s.store, json.RawMessage(raw))
		if err != nil {
			s.log.Error().Err(err).Str("integration", name).Msg("błąd inicjalizacji")
			continue
		}
		out = append(out, runningInt{Name: name, Inst: inst})
	}
	if len(out) > 0 {
		s.log.Info().Int("started", len(out)).Msg("integracje zbudowane")
	}
	return out
}

func (s *Syncer) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	cancel := s.cancel
	ints := s.ints
	s.ints = nil
	s.cancel = nil
	s.mu.Unlock()

	for _, ri := range ints {
		ri.Inst.Stop()
	}
	if cancel != nil {
		cancel()
	}
	s.wg.Wait()
	s.log.Info().Msg("syncer: stop")
}

func (s *Syncer) UpdateConfig(cfg *conf.Config) {
	s.mu.Lock()
	s.cfg = cfg
	isRunning := s.running
	s.mu.Unlock()

	if isRunning {
		// restart, żeby integracje wzięły nową konfigurację
		s.Stop()
		_ = s.Start(context.Background())
	}
}

func (s *Syncer) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

func (s *Syncer) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Syncer) setState(st State) {
	s.mu.Lock()
	s.state = st
	s.mu.Unlock()
}

func (s *Syncer) window() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cfg != nil && s.cfg.FreshnessMinutes > 0 {
		return time.Duration(s.cfg.FreshnessMinutes) * time.Minute
	}
	return catalog.FreshnessWindow
}

// loop reaguje wyłącznie na zdarzenia: start procesu i zmiany stanu
// sieci. Żadnego tickera — brak świeżości łapiemy przy reconnect/restart.
func (s *Syncer) loop(ctx context.Context, events chan bool, wasOnline bool) {
	defer s.wg.Done()
	defer s.mon.Unsubscribe(events)

	if wasOnline {
		s.syncIfStale(ctx)
	}

	for {
		select {
		case <-ctx.Done():
			s.log.Info().Msg("syncer: koniec pętli")
			return
		case online := <-events:
			if online && !wasOnline {
				// powrót sieci: najpierw drain zaległych mutacji,
				// potem zwykły test świeżości — dokładnie raz
				s.drainOnce(ctx)
				s.syncIfStale(ctx)
			}
			wasOnline = online
		}
	}
}

func (s *Syncer) drainOnce(ctx context.Context) {
	processed, failed, err := s.queue.DrainPending(ctx)
	if err != nil {
		s.log.Error().Err(err).Msg("drain kolejki nieudany")
		return
	}
	if processed > 0 || failed > 0 {
		s.log.Info().Int("processed", processed).Int("failed", failed).Msg("kolejka mutacji opróżniona")
	}
}

func (s *Syncer) syncIfStale(ctx context.Context) {
	if !s.engine.NeedsSync(s.window()) {
		s.log.Debug().Msg("katalog świeży — pomijam sync")
		return
	}
	if err := s.runSync(ctx); err != nil {
		// zalogowane w runSync; tu cisza wobec użytkownika
		return
	}
}

// SyncNow — ręczna akcja "synchronizuj teraz" (tray/CLI). Jako jedyna
// ścieżka zwraca błąd wołającemu zamiast go połykać.
func (s *Syncer) SyncNow(ctx context.Context) error {
	return s.runSync(ctx)
}

func (s *Syncer) runSync(ctx context.Context) error {
	s.syncMu.Lock()
	defer s.syncMu.Unlock()

	s.setState(StateSyncing)
	count, err := s.engine.SyncCatalog(ctx)
	if err != nil {
		s.setState(StateError)
		switch {
		case errors.Is(err, erpnext.ErrParseFailed):
			s.log.Error().Err(err).Msg("sync: niepoprawny payload katalogu")
		case errors.Is(err, erpnext.ErrFetchFailed):
			s.log.Error().Err(err).Msg("sync: błąd pobierania katalogu")
		default:
			s.log.Error().Err(err).Msg("sync: błąd zapisu katalogu")
		}
		return err
	}
	s.setState(StateIdle)
	s.log.Info().Int("count", count).Msg("sync zakończony")
	return nil
}
