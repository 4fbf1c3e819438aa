package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/subculture-collective/clipqueue/internal/chatclient"
	"github.com/subculture-collective/clipqueue/internal/token"
	"github.com/subculture-collective/clipqueue/pkg/database"
)

// gracefulShutdown blocks until a termination signal arrives, then unwinds in dependency
// order: stop the token monitor, close the chat connection, close the store, then close
// the HTTP listener with a drain window. In-flight requests complete; new requests are
// rejected once the listener starts draining.
func gracefulShutdown(srv *http.Server, tokenManager *token.Manager, chat *chatclient.Client, db *database.DB) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("shutting down")

	tokenManager.StopMonitoring()
	chat.Stop()
	db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("server forced to shutdown: %v", err)
	}

	log.Println("server exited")
}
