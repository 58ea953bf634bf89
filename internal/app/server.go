package app

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/bacmr/maktaba/internal/api/handlers"
	"github.com/bacmr/maktaba/internal/config"
	"github.com/bacmr/maktaba/internal/core"
	"github.com/bacmr/maktaba/internal/ingestion"
	"github.com/bacmr/maktaba/internal/scraper"
	"github.com/bacmr/maktaba/internal/services"
)

// Server wraps the HTTP server instance and its handlers.
type Server struct {
	httpServer *http.Server
}

// NewServer builds and wires all routes.
func NewServer(cfg *config.Config, store core.Store, runner *ingestion.Runner, docs *services.DocumentService, retrieval *services.RetrievalService, llm core.Generator) *Server {
	docHandler := handlers.NewDocumentHandler(docs)
	jobHandler := handlers.NewJobHandler(store, runner)
	searchHandler := handlers.NewSearchHandler(retrieval)
	chatHandler := handlers.NewChatHandler(retrieval, llm)
	importHandler := handlers.NewImportHandler(docs, scraper.New())

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(5 * time.Minute))

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173"},
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	r.Route("/api", func(api chi.Router) {
		api.Post("/documents/upload", docHandler.UploadDocument)
		api.Post("/documents/import", importHandler.Import)
		api.Get("/documents", docHandler.ListDocuments)
		api.Get("/documents/{id}", docHandler.GetDocument)
		api.Delete("/documents/{id}", docHandler.DeleteDocument)

		api.Get("/jobs", jobHandler.ListJobs)
		api.Get("/jobs/{id}", jobHandler.GetJob)
		api.Post("/jobs/{id}/requeue", jobHandler.RequeueJob)
		api.Post("/jobs/dispatch", jobHandler.Dispatch)

		api.Get("/import/discover", importHandler.Discover)

		api.Post("/search", searchHandler.Search)
		api.Post("/chat/query", chatHandler.Ask)
	})

	httpSrv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: r,
	}

	return &Server{httpServer: httpSrv}
}

// Start runs the HTTP server.
func (s *Server) Start() {
	log.Printf("HTTP server listening on %s", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("server error: %v", err)
	}
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	log.Println("Shutting down HTTP server...")
	return s.httpServer.Shutdown(ctx)
}
