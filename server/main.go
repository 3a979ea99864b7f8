package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "modernc.org/sqlite"
)

// envOr returns the environment variable key when val is empty.
func envOr(val, key string) string {
	if val != "" {
		return val
	}
	return os.Getenv(key)
}

func main() {
	dbPath := flag.String("db", "", "SQLite database written by argtree-gen (env DB_PATH)")
	addr := flag.String("addr", "", "Listen address, default :8080 (env ADDR)")
	timeout := flag.Duration("timeout", 30*time.Second, "Per-request timeout, 0 disables")
	logReqs := flag.Bool("log-requests", false, "Log every request")
	flag.Parse()

	*dbPath = envOr(*dbPath, "DB_PATH")
	if *dbPath == "" {
		log.Fatal("DB path required: set -db or DB_PATH")
	}
	*addr = envOr(*addr, "ADDR")
	if *addr == "" {
		*addr = ":8080"
	}

	db, err := sql.Open("sqlite", "file:"+*dbPath+"?mode=ro")
	if err != nil {
		log.Fatalf("open db: %v", err)
	}
	defer db.Close()
	db.SetMaxOpenConns(1)

	if err := checkSchema(db); err != nil {
		log.Fatalf("%s: %v", *dbPath, err)
	}

	srv := &http.Server{
		Addr:              *addr,
		Handler:           NewApp(db, *timeout, *logReqs).Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errc := make(chan error, 1)
	go func() {
		log.Printf("serving %s on %s", *dbPath, *addr)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server: %v", err)
		}
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Printf("shutdown: %v", err)
		}
	}
}
