package main

import (
	"context"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"time"

	"cloud.google.com/go/firestore"

	"github.com/alimasry/richedit/render"
	"github.com/alimasry/richedit/server"
	"github.com/alimasry/richedit/session"
	"github.com/alimasry/richedit/store"
)

func main() {
	addr := flag.String("addr", ":8080", "HTTP listen address")
	project := flag.String("firestore-project", "", "GCP project for Firestore persistence (empty: in-memory)")
	flushInterval := flag.Duration("flush-interval", 5*time.Second, "write-behind flush interval for persisted snapshots")
	pageSize := flag.Int("page-size", render.DefaultParagraphsPerPage, "paragraphs per rendered page")
	flag.Parse()

	snapshots, err := buildStore(*project, *flushInterval)
	if err != nil {
		slog.Error("store init", "error", err)
		os.Exit(1)
	}
	if cs, ok := snapshots.(*store.CachedStore); ok {
		defer cs.Close()
	}

	hub := session.NewHub(render.NewHTMLEngine(*pageSize), snapshots)
	api := server.NewAPI(hub, snapshots)

	slog.Info("starting server", "addr", *addr)
	if err := http.ListenAndServe(*addr, api.Router()); err != nil {
		slog.Error("server", "error", err)
		os.Exit(1)
	}
}

func buildStore(project string, flushInterval time.Duration) (store.SnapshotStore, error) {
	if project == "" {
		return store.NewMemoryStore(), nil
	}
	client, err := firestore.NewClient(context.Background(), project)
	if err != nil {
		return nil, err
	}
	return store.NewCachedStore(store.NewFirestoreStore(client), flushInterval), nil
}
