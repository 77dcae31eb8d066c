package importer

import (
	"bufio"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"encoding/xml"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/net/html/charset"

	"github.com/bartek5186/erp2www/internal/db"
	"github.com/bartek5186/erp2www/internal/integrations"
)

// Importer wczytuje pliki eksportu katalogu podrzucane do katalogu
// obserwowanego (exp_cat_*.xml) i upsertuje produkty do lokalnej bazy.
// To ścieżka zasilenia kiosku bez żadnej sieci — pendrive z eksportem
// z zaplecza wystarczy. Pliki dedupowane po SHA-256 w import_files.
type Config struct {
	WatchDir string `json:"watch_dir"` // np. ~/erp2www/imports
	PollSec  int    `json:"poll_sec"`
}

type Importer struct {
	log zerolog.Logger
	cfg Config

	ctx    context.Context
	cancel context.CancelFunc
	store  *db.Handle
}

// model pod eksport z zaplecza; liczby jako stringi (bywają puste,
// bywa przecinek dziesiętny)
type xmlItem struct {
	Zone           string   `xml:"zone"`
	ItemCode       string   `xml:"item_code"`
	ItemName       string   `xml:"item_name"`
	Brand          string   `xml:"brand"`
	Category       string   `xml:"category"`
	Disable        string   `xml:"disable"` // "0"/"1" albo "Y"/"N"
	StockInZone    string   `xml:"stock_in_zone"`
	TotalStock     string   `xml:"total_stock"`
	UOM            string   `xml:"uom"`
	Image          string   `xml:"image"`
	PrimaryBarcode string   `xml:"primary_barcode"`
	Barcodes       []string `xml:"barcodes>barcode"`
	Price          string   `xml:"price"`
}

func (i *Importer) Name() string { return "importer" }

func (i *Importer) Start(ctx context.Context) error {
	i.ctx, i.cancel = context.WithCancel(ctx)
	i.log.Info().Str("integration", i.Name()).Msg("start")

	dir := expandHome(i.cfg.WatchDir)
	ticker := time.NewTicker(i.interval())
	defer ticker.Stop()

	// pierwszy przebieg od razu
	i.scanOnce(dir)

	for {
		select {
		case <-i.ctx.Done():
			i.log.Info().Str("integration", i.Name()).Msg("stop")
			return nil
		case <-ticker.C:
			i.scanOnce(dir)
		}
	}
}

func (i *Importer) Stop() {
	if i.cancel != nil {
		i.cancel()
	}
}

func (i *Importer) interval() time.Duration {
	if i.cfg.PollSec <= 0 {
		return 10 * time.Second
	}
	return time.Duration(i.cfg.PollSec) * time.Second
}

func (i *Importer) scanOnce(dir string) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		i.log.Error().Err(err).Str("dir", dir).Msg("nie mogę odczytać katalogu importów")
		return
	}

	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if !strings.HasPrefix(name, "exp_cat_") || !strings.HasSuffix(strings.ToLower(name), ".xml") {
			continue
		}
		full := filepath.Join(dir, name)

		importID, done, err := i.registerFile(full, name)
		if err != nil {
			i.log.Error().Err(err).Str("file", name).Msg("rejestracja pliku nieudana")
			continue
		}
		if done {
			i.log.Debug().Str("file", name).Msg("plik już przetworzony — pomijam")
			continue
		}

		count, err := i.processFile(full)
		if err != nil {
			i.log.Error().Err(err).Str("file", name).Uint("import_id", importID).Msg("błąd przetwarzania pliku")
			_ = i.store.DB.Model(&db.ImportFile{}).Where("import_id = ?", importID).
				Updates(map[string]any{"status": 2, "last_error": err.Error()}).Error
			continue
		}

		now := time.Now()
		_ = i.store.DB.Model(&db.ImportFile{}).Where("import_id = ?", importID).
			Updates(map[string]any{"status": 1, "processed_at": now}).Error
		i.log.Info().Str("file", name).Uint("import_id", importID).
			Int("products", count).Msg("import przetworzony OK")
	}
}

// registerFile dopisuje plik do rejestru; done=true gdy identyczny plik
// (po SHA albo nazwie) był już przetworzony ze statusem DONE.
func (i *Importer) registerFile(fullPath, name string) (uint, bool, error) {
	fi, err := os.Stat(fullPath)
	if err != nil {
		return 0, false, err
	}
	sum, err := fileSHA256(fullPath)
	if err != nil {
		return 0, false, err
	}

	var existing db.ImportFile
	if err := i.store.DB.
		Where("sha256 = ? OR filename = ?", sum, name).
		Take(&existing).Error; err == nil {
		return existing.ImportID, existing.Status == 1, nil
	}

	rec := db.ImportFile{
		Filename:  name,
		SHA256:    sum,
		SizeBytes: fi.Size(),
		Status:    0,
	}
	if err := i.store.DB.Create(&rec).Error; err != nil {
		return 0, false, err
	}
	return rec.ImportID, false, nil
}

func (i *Importer) processFile(fullPath string) (int, error) {
	f, err := os.Open(fullPath)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	// eksporty z zaplecza bywają w windows-1250 / iso-8859-2
	dec := xml.NewDecoder(bufio.NewReader(f))
	dec.CharsetReader = func(cs string, in io.Reader) (io.Reader, error) {
		return charset.NewReaderLabel(normalizeCharset(cs), in)
	}

	total := 0
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return total, err
		}

		se, ok := tok.(xml.StartElement)
		if !ok || !strings.EqualFold(se.Name.Local, "items") {
			continue
		}

		var wrap struct {
			Items []xmlItem `xml:"item"`
		}
		if err := dec.DecodeElement(&wrap, &se); err != nil {
			return total, err
		}

		batch := make([]db.Product, 0, len(wrap.Items))
		for _, it := range wrap.Items {
			code := strings.TrimSpace(it.ItemCode)
			if code == "" {
				continue
			}
			barcodes, _ := json.Marshal(it.Barcodes)
			batch = append(batch, db.Product{
				ItemCode:       code,
				ItemName:       strings.TrimSpace(it.ItemName),
				Brand:          strings.TrimSpace(it.Brand),
				Category:       strings.TrimSpace(it.Category),
				Zone:           strings.TrimSpace(it.Zone),
				Disabled:       yn(it.Disable),
				StockInZone:    f64(it.StockInZone),
				TotalStock:     f64(it.TotalStock),
				UOM:            strings.TrimSpace(it.UOM),
				Image:          strings.TrimSpace(it.Image),
				PrimaryBarcode: strings.TrimSpace(it.PrimaryBarcode),
				BarcodesJSON:   string(barcodes),
				Price:          f64(it.Price),
			})
		}
		if err := i.store.PutProducts(batch); err != nil {
			return total, err
		}
		total += len(batch)
	}
	return total, nil
}

func fileSHA256(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

func expandHome(p string) string {
	if strings.HasPrefix(p, "~") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, strings.TrimPrefix(p, "~"))
		}
	}
	return p
}

// normalizeCharset mapuje nietypowe etykiety na nazwy rozpoznawane
// przez charset.NewReaderLabel
func normalizeCharset(cs string) string {
	c := strings.TrimSpace(strings.ToLower(cs))
	switch c {
	case "latin ii", "latin-2", "latin2", "iso8859-2", "iso_8859-2":
		return "iso-8859-2"
	case "cp1250", "windows1250", "win-1250":
		return "windows-1250"
	default:
		return c
	}
}

func yn(s string) bool {
	switch strings.TrimSpace(strings.ToUpper(s)) {
	case "Y", "T", "1", "TAK":
		return true
	default:
		return false
	}
}

func f64(s string) float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}
	s = strings.ReplaceAll(s, ",", ".")
	v, _ := strconv.ParseFloat(s, 64)
	return v
}

func factory(log zerolog.Logger, store *db.Handle, raw json.RawMessage) (integrations.Integration, error) {
	var cfg Config
	if err := json.Unmarshal(raw, &cfg); err != nil {
		return nil, err
	}
	return &Importer{log: log, cfg: cfg, store: store}, nil
}

func init() {
	integrations.Register("importer", factory)
}
