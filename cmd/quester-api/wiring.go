package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/PabloGalante/quester-agent/internal/adapters/llm"
	firestorestore "github.com/PabloGalante/quester-agent/internal/adapters/storage/firestore"
	"github.com/PabloGalante/quester-agent/internal/adapters/storage/filesystem"
	memstore "github.com/PabloGalante/quester-agent/internal/adapters/storage/memory"
	sqlitestore "github.com/PabloGalante/quester-agent/internal/adapters/storage/sqlite"
	"github.com/PabloGalante/quester-agent/internal/app/conversation"
	"github.com/PabloGalante/quester-agent/internal/app/drafts"
	"github.com/PabloGalante/quester-agent/internal/app/tasks"
	"github.com/PabloGalante/quester-agent/internal/config"
	"github.com/PabloGalante/quester-agent/internal/domain"
	"github.com/PabloGalante/quester-agent/internal/draftstore"
	"github.com/PabloGalante/quester-agent/internal/observability"
)

// services is everything the commands need, built once from config.
type services struct {
	conv    *conversation.Service
	drafts  *drafts.Service
	tracker *tasks.Tracker
	closers []func() error
}

func (s *services) Close() error {
	var errs []error
	for i := len(s.closers) - 1; i >= 0; i-- {
		errs = append(errs, s.closers[i]())
	}
	return errors.Join(errs...)
}

func buildServices(ctx context.Context, cfg *config.Config) (_ *services, err error) {
	log := observability.Logger()
	svc := &services{tracker: tasks.NewTracker()}
	defer func() {
		if err != nil {
			_ = svc.Close()
		}
	}()

	var model llm.Model
	if cfg.LLM.UseMock {
		log.Info("using mock LLM")
		model = llm.NewMockLLM()
	} else {
		log.Info("using genai LLM", "backend", cfg.LLM.Backend, "model", cfg.LLM.Model)
		model, err = llm.NewGenAIModel(ctx, llm.GenAIConfig{
			Backend:  cfg.LLM.Backend,
			APIKey:   cfg.LLM.APIKey,
			Project:  cfg.GCP.Project,
			Location: cfg.GCP.Location,
			Model:    cfg.LLM.Model,
		})
		if err != nil {
			return nil, fmt.Errorf("init llm: %w", err)
		}
	}
	gateway := llm.NewGateway(model, cfg.LLM.Timeout)

	var fs *firestorestore.Store
	firestoreStore := func() (*firestorestore.Store, error) {
		if fs != nil {
			return fs, nil
		}
		s, err := firestorestore.NewStore(ctx, cfg.GCP.Project)
		if err != nil {
			return nil, fmt.Errorf("init firestore: %w", err)
		}
		svc.closers = append(svc.closers, s.Close)
		fs = s
		return s, nil
	}

	var sessions domain.SessionStore
	switch cfg.Storage.Backend {
	case config.BackendFirestore:
		s, err := firestoreStore()
		if err != nil {
			return nil, err
		}
		sessions = s
	case config.BackendMemory:
		sessions = memstore.NewSessionStore()
	default:
		sessions = filesystem.NewSessionStore(cfg.Storage.DataDir)
	}

	var blobs domain.DraftBlobStore
	switch cfg.Storage.DraftsBackend {
	case config.BackendFirestore:
		s, err := firestoreStore()
		if err != nil {
			return nil, err
		}
		blobs = s.DraftBlobs()
	case config.BackendSQLite:
		db, err := sqlitestore.Open(ctx, cfg.Storage.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("init sqlite: %w", err)
		}
		svc.closers = append(svc.closers, db.Close)
		blobs = db
	case config.BackendMemory:
		blobs = memstore.NewDraftBlobs()
	default:
		blobs = filesystem.NewDraftBlobs(cfg.Storage.DataDir)
	}
	log.Info("storage ready", "sessions", cfg.Storage.Backend, "drafts", cfg.Storage.DraftsBackend)

	store := draftstore.New(blobs)
	svc.conv = conversation.NewService(gateway, sessions, store, svc.tracker)
	svc.drafts = drafts.NewService(store, svc.tracker)
	return svc, nil
}
