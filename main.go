//go:build windows && !dev

package main

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"runtime"
	"syscall"
	"time"

	"github.com/getlantern/systray"

	"github.com/bartek5186/erp2www/internal/catalog"
	conf "github.com/bartek5186/erp2www/internal/config"
	"github.com/bartek5186/erp2www/internal/db"
	"github.com/bartek5186/erp2www/internal/erpnext"
	logs "github.com/bartek5186/erp2www/internal/logs"
	"github.com/bartek5186/erp2www/internal/netmon"
	"github.com/bartek5186/erp2www/internal/outbox"
	"github.com/bartek5186/erp2www/internal/syncer"
	"github.com/bartek5186/erp2www/internal/wishlist"
)

// wersję możesz nadpisać przez: -ldflags "-X 'main.ver=1.0.1'"
var ver = "1.0.0"

func main() {
	// katalog danych aplikacji (logi, config, baza)
	appDir := mustAppDataDir("erp2www")
	log := logs.New(filepath.Join(appDir, "app.log"), false)

	cfgPath := filepath.Join(appDir, "config.json")
	cfg, firstRun, err := conf.LoadOrCreate(cfgPath)
	if err != nil {
		panic(err)
	}
	if firstRun {
		log.Info().Msgf("Utworzono domyślną konfigurację: %s", cfgPath)
	}

	dbh, err := db.OpenAt(appDir)
	if err != nil {
		// bez lokalnej bazy nie ma trybu offline — kiosk bez cache nie ma sensu
		log.Fatal().Err(err).Msg("DB open error")
	}
	if err := dbh.Migrate(); err != nil {
		log.Fatal().Err(err).Msg("DB migrate error")
	}
	log.Info().Str("db", dbh.Path).Msg("DB ready")

	// kontekst sterujący życiem procesu (CTRL+C / zamknięcie sesji)
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	mon := netmon.New(log.With().Str("component", "netmon").Logger())
	go mon.Watch(ctx, time.Duration(cfg.NetProbeSeconds)*time.Second)

	client := erpnext.New(cfg.ERPNext)
	engine := catalog.New(log.With().Str("component", "catalog").Logger(), dbh, client.FetchZoneProducts)
	queue := outbox.New(log.With().Str("component", "outbox").Logger(), dbh)

	wl := wishlist.New(log.With().Str("component", "wishlist").Logger(), dbh, queue, mon.IsOnline)
	// mutacje wishlisty idą z warstwy UI kiosku; tu tylko zasilenie sesji
	if err := wl.Load(); err != nil {
		log.Error().Err(err).Msg("nie udało się wczytać wishlisty")
	}

	s := syncer.New(log, cfg, dbh, mon, engine, queue)

	// jeśli proces dostanie sygnał – zatrzymaj syncer i zamknij tray
	go func() {
		<-ctx.Done()
		s.Stop()
		systray.Quit()
	}()

	systray.Run(func() {
		// onReady
		systray.SetTitle("ERP2WWW")
		systray.SetTooltip(fmt.Sprintf("ERP2WWW Cache %s", ver))

		mSyncNow := systray.AddMenuItem("Synchronizuj teraz", "Wymuś pełny sync katalogu")
		mStart := systray.AddMenuItem("Start auto-sync", "Uruchom orkiestrator")
		mStop := systray.AddMenuItem("Stop auto-sync", "Zatrzymaj orkiestrator")
		mStop.Disable()

		systray.AddSeparator()
		mStats := systray.AddMenuItem("Stan cache", "Zapisz licznik cache do logów")
		mOpenLogs := systray.AddMenuItem("Otwórz logi", "Pokaż plik log")
		mOpenCfg := systray.AddMenuItem("Ustawienia (config.json)", "Otwórz plik konfiguracyjny")
		mReload := systray.AddMenuItem("Przeładuj konfigurację", "Wczytaj ponownie config.json")
		systray.AddSeparator()
		mAbout := systray.AddMenuItem(fmt.Sprintf("O programie (%s)", ver), "")
		mQuit := systray.AddMenuItem("Wyjście", "Zamknij aplikację")

		if cfg.AutoStart {
			if err := s.Start(ctx); err == nil {
				mStart.Disable()
				mStop.Enable()
				systray.SetTooltip(fmt.Sprintf("ERP2WWW Cache %s — działa", ver))
			} else {
				log.Error().Msgf("AutoStart nieudany: %v", err)
				systray.SetTooltip(fmt.Sprintf("ERP2WWW Cache %s — błąd startu", ver))
			}
		}

		go func() {
			for {
				select {
				case <-mSyncNow.ClickedCh:
					// jedyna ścieżka, która raportuje błąd syncu użytkownikowi
					if err := s.SyncNow(ctx); err != nil {
						systray.SetTooltip(fmt.Sprintf("ERP2WWW Cache %s — sync nieudany", ver))
						continue
					}
					systray.SetTooltip(fmt.Sprintf("ERP2WWW Cache %s — katalog aktualny", ver))

				case <-mStart.ClickedCh:
					if err := s.Start(ctx); err != nil {
						log.Error().Err(err).Msg("Start error")
						continue
					}
					mStart.Disable()
					mStop.Enable()
					systray.SetTooltip(fmt.Sprintf("ERP2WWW Cache %s — działa", ver))

				case <-mStop.ClickedCh:
					s.Stop()
					mStop.Disable()
					mStart.Enable()
					systray.SetTooltip(fmt.Sprintf("ERP2WWW Cache %s — zatrzymane", ver))

				case <-mStats.ClickedCh:
					st, err := engine.Stats()
					if err != nil {
						log.Error().Err(err).Msg("stats error")
						continue
					}
					log.Info().
						Int64("products", st.Products).
						Int64("wishlist", st.Wishlist).
						Int64("pending_sync", st.PendingSync).
						Time("last_sync", st.LastSync).
						Msg("stan cache")

				case <-mOpenLogs.ClickedCh:
					openInExplorer(filepath.Join(appDir, "app.log"))

				case <-mOpenCfg.ClickedCh:
					openInExplorer(cfgPath)

				case <-mReload.ClickedCh:
					newCfg, _, err := conf.LoadOrCreate(cfgPath)
					if err != nil {
						log.Error().Err(err).Msg("Błąd reloadu")
						continue
					}
					cfg = newCfg
					s.UpdateConfig(cfg)
					log.Info().Msg("Konfiguracja przeładowana")

				case <-mAbout.ClickedCh:
					log.Info().Msgf("ERP2WWW Cache %s | %s", ver, runtime.Version())

				case <-mQuit.ClickedCh:
					// łagodne zamykanie
					cancel()
					s.Stop()
					systray.Quit()
					return
				}
			}
		}()
	}, func() {
		// onExit — daj chwilę loggerowi na flush
		time.Sleep(50 * time.Millisecond)
	})
}

func mustAppDataDir(name string) string {
	base, err := os.UserConfigDir()
	if err != nil {
		panic(err)
	}
	p := filepath.Join(base, name)
	_ = os.MkdirAll(p, 0o755)
	return p
}

// przenośne otwieranie plików/katalogów w domyślnej aplikacji
func openInExplorer(path string) {
	switch runtime.GOOS {
	case "windows":
		// "start" musi być uruchomiony przez cmd /C, z pustym tytułem okna ""
		_ = exec.Command("cmd", "/C", "start", "", path).Start()
	case "darwin":
		_ = exec.Command("open", path).Start()
	default:
		_ = exec.Command("xdg-open", path).Start()
	}
}
