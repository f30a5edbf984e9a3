package main

import (
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	addr := flag.String("addr", ":8080", "HTTP listen address")
	dbPath := flag.String("db", "multispace.db", "path to the SQLite database")
	clientDir := flag.String("client", "", "path to the frontend dist directory (optional)")
	logPath := flag.String("log", "", "log file path (empty logs to stderr)")
	flag.Parse()

	if err := InitLogger(*logPath); err != nil {
		log.Fatalf("logger init: %v", err)
	}
	defer SyncLogger()

	db, err := OpenDB(*dbPath)
	if err != nil {
		logger.Fatalw("opening database failed", "path", *dbPath, "err", err)
	}
	defer db.Close()

	hub := NewHub(db)
	go hub.Run()
	go hub.Scheduler().Run()

	server := &http.Server{
		Addr:    *addr,
		Handler: SetupRoutes(hub, *clientDir),
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		logger.Infow("server starting", "addr", *addr, "db", *dbPath)
		if err := server.ListenAndServe(); err != http.ErrServerClosed {
			logger.Fatalw("listen failed", "err", err)
		}
	}()

	<-stop
	logger.Infow("shutting down")
	server.Close()
	hub.Shutdown()
}
