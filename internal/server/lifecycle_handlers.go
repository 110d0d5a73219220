package server

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"

	"weft/internal/config"
	"weft/internal/index"
	"weft/internal/scheduler"
	"weft/internal/session"
	"weft/internal/syntax"
)

const (
	rescanInterval = 5 * time.Minute
	sweepInterval  = time.Minute
)

func (s *Server) initialize(
	ctx *glsp.Context,
	params *protocol.InitializeParams,
) (any, error) {
	s.setClient(ctx)

	cfg, err := config.Load(params.InitializationOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	s.config = cfg

	root := "."
	if params.RootURI != nil {
		rootURI, err := url.Parse(string(*params.RootURI))
		if err != nil {
			return nil, fmt.Errorf("failed to parse root uri: %w", err)
		}
		root = rootURI.Path
	}
	s.root = root
	log.Infof("workspace root %s", root)

	indexPath := cfg.IndexPath
	if indexPath == "" {
		indexPath, err = index.DefaultPath(root)
		if err != nil {
			return nil, err
		}
	}
	store, err := index.NewSQLiteStore(indexPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open block index: %w", err)
	}
	s.store = store
	s.index = index.New(store)

	staging, err := session.NewStaging(cfg.StagingRoot)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare staging: %w", err)
	}
	s.sessions = session.NewRegistry(staging, cfg.Strategy(), s.notifyClient)
	s.checker = syntax.NewChecker()

	s.sched = scheduler.New(16)
	s.sched.Start()
	s.sched.Every(rescanInterval, scheduler.Task{
		Name: "rescan",
		Run: func() error {
			return index.Scan(context.Background(), store, root)
		},
	})
	ttl := cfg.SessionTTL()
	s.sched.Every(sweepInterval, scheduler.Task{
		Name: "session sweep",
		Run: func() error {
			s.sessions.Sweep(ttl)
			return nil
		},
	})

	if cfg.Watch {
		watcher, err := index.NewWatcher(root, store)
		if err != nil {
			log.Warningf("file watching disabled: %v", err)
		} else if err := watcher.Start(context.Background()); err != nil {
			log.Warningf("file watching disabled: %v", err)
		} else {
			s.watcher = watcher
		}
	}

	syncKind := protocol.TextDocumentSyncKindIncremental
	capabilities := s.handler.CreateServerCapabilities()
	capabilities.TextDocumentSync = &protocol.TextDocumentSyncOptions{
		OpenClose: &protocol.True,
		Change:    &syncKind,
		Save:      &protocol.SaveOptions{IncludeText: &protocol.True},
	}
	capabilities.ExecuteCommandProvider = &protocol.ExecuteCommandOptions{
		Commands: commandNames(),
	}

	return protocol.InitializeResult{
		Capabilities: capabilities,
	}, nil
}

func (s *Server) initialized(
	ctx *glsp.Context,
	params *protocol.InitializedParams,
) error {
	log.Info("client initialized")
	return nil
}

func (s *Server) shutdown(ctx *glsp.Context) error {
	if s.watcher != nil {
		s.watcher.Stop()
	}
	if s.sched != nil {
		s.sched.Stop()
	}
	if s.sessions != nil {
		s.sessions.CloseAll()
	}
	if s.checker != nil {
		s.checker.Close()
	}
	if s.store != nil {
		return s.store.Close()
	}
	return nil
}
