package db

import (
	"errors"
	"fmt"
	"path/filepath"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// ErrStorageUnavailable — nie udało się otworzyć lokalnej bazy.
// Aplikacja może działać dalej w trybie online-only (bez cache), patrz main.
var ErrStorageUnavailable = errors.New("local storage unavailable")

type Handle struct {
	DB   *gorm.DB
	Path string
}

func OpenAt(dir string) (*Handle, error) {
	dbPath := filepath.Join(dir, "erp2www.db")
	gdb, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		// Logger: logger.Default.LogMode(logger.Info), // włącz jeśli chcesz verbose SQL
	})
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %v", ErrStorageUnavailable, dbPath, err)
	}
	if err := pinSingleConn(gdb); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}
	return &Handle{DB: gdb, Path: dbPath}, nil
}

// Open otwiera bazę na gotowym dialektorze.
// Testy pakietów używają tego z czysto-gowym driverem i :memory:.
func Open(dial gorm.Dialector) (*Handle, error) {
	gdb, err := gorm.Open(dial, &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}
	if err := pinSingleConn(gdb); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}
	return &Handle{DB: gdb}, nil
}

// pinSingleConn — SQLite i tak ma jednego writera; jedno połączenie
// serializuje zapisy i trzyma :memory: przy życiu między zapytaniami.
func pinSingleConn(gdb *gorm.DB) error {
	sqlDB, err := gdb.DB()
	if err != nil {
		return err
	}
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)
	return nil
}
