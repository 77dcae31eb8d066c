//go:build !windows || dev

package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

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

var ver = "1.0.0"

func main() {
	appDir := mustAppDataDir("erp2www")
	log := logs.New(filepath.Join(appDir, "app.log"), true)

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
		log.Fatal().Err(err).Msg("DB open error")
	}
	if err := dbh.Migrate(); err != nil {
		log.Fatal().Err(err).Msg("DB migrate error")
	}
	log.Info().Str("db", dbh.Path).Msg("DB ready")
	sqlDB, _ := dbh.DB.DB()
	defer sqlDB.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	mon := netmon.New(log.With().Str("component", "netmon").Logger())
	go mon.Watch(ctx, time.Duration(cfg.NetProbeSeconds)*time.Second)

	client := erpnext.New(cfg.ERPNext)
	engine := catalog.New(log.With().Str("component", "catalog").Logger(), dbh, client.FetchZoneProducts)
	queue := outbox.New(log.With().Str("component", "outbox").Logger(), dbh)

	wl := wishlist.New(log.With().Str("component", "wishlist").Logger(), dbh, queue, mon.IsOnline)
	if err := wl.Load(); err != nil {
		log.Error().Err(err).Msg("nie udało się wczytać wishlisty")
	}

	s := syncer.New(log, cfg, dbh, mon, engine, queue)

	// AutoStart tak jak w GUI
	if cfg.AutoStart {
		if err := s.Start(ctx); err != nil {
			log.Error().Msgf("AutoStart nieudany: %v", err)
		} else {
			log.Info().Msgf("ERP2WWW Cache %s — działa", ver)
		}
	}

	// Prosta pętla poleceń w terminalu
	fmt.Println("ERP2WWW CLI", ver)
	fmt.Println("Komendy: start | stop | sync | status | stats | wish add <kod> | wish rm <kod> | wish ls | reload | paths | quit")
	reader := bufio.NewReader(os.Stdin)

	for {
		fmt.Print("> ")
		line, _ := reader.ReadString('\n')
		cmd := strings.TrimSpace(line)

		switch {
		case cmd == "start":
			if err := s.Start(ctx); err != nil {
				fmt.Println("Błąd startu:", err)
				continue
			}
			fmt.Println("Start OK")

		case cmd == "stop":
			s.Stop()
			fmt.Println("Zatrzymano")

		case cmd == "sync":
			// ręczny sync — jako jedyny raportuje błąd wprost
			if err := s.SyncNow(ctx); err != nil {
				fmt.Println("Sync nieudany:", err)
				continue
			}
			fmt.Println("Sync OK")

		case cmd == "status":
			online := "OFFLINE"
			if mon.IsOnline() {
				online = "ONLINE"
			}
			fmt.Printf("Sieć: %s | Orkiestrator: %s | Stan: %s\n", online, runningLabel(s.IsRunning()), s.State())

		case cmd == "stats":
			st, err := engine.Stats()
			if err != nil {
				fmt.Println("Błąd:", err)
				continue
			}
			last := "nigdy"
			if !st.LastSync.IsZero() {
				last = st.LastSync.Format(time.RFC3339)
			}
			fmt.Printf("Produkty: %d | Wishlist: %d | Pending sync: %d | Ostatni sync: %s\n",
				st.Products, st.Wishlist, st.PendingSync, last)

		case strings.HasPrefix(cmd, "wish add "):
			code := strings.TrimSpace(strings.TrimPrefix(cmd, "wish add "))
			if err := wl.Add(code); err != nil {
				fmt.Println("Błąd:", err)
				continue
			}
			fmt.Println("Dodano:", code)

		case strings.HasPrefix(cmd, "wish rm "):
			code := strings.TrimSpace(strings.TrimPrefix(cmd, "wish rm "))
			if err := wl.Remove(code); err != nil {
				fmt.Println("Błąd:", err)
				continue
			}
			fmt.Println("Usunięto:", code)

		case cmd == "wish ls":
			for _, code := range wl.Items() {
				fmt.Println(" -", code)
			}
			fmt.Printf("(%d pozycji)\n", wl.Count())

		case cmd == "reload":
			newCfg, _, err := conf.LoadOrCreate(cfgPath)
			if err != nil {
				fmt.Println("Błąd reloadu:", err)
				continue
			}
			cfg = newCfg
			s.UpdateConfig(cfg)
			fmt.Println("Konfiguracja przeładowana")

		case cmd == "paths":
			fmt.Println("Logi:", filepath.Join(appDir, "app.log"))
			fmt.Println("Config:", cfgPath)
			fmt.Println("Baza:", dbh.Path)

		case cmd == "quit", cmd == "exit":
			cancel()
			s.Stop()
			time.Sleep(50 * time.Millisecond)
			return

		case cmd == "":
			// enter – ignoruj

		default:
			fmt.Println("Nieznana komenda.")
		}
	}
}

func runningLabel(running bool) string {
	if running {
		return "DZIAŁA"
	}
	return "ZATRZYMANY"
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
