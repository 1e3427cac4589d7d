package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"medchain_go/ledger"
	"medchain_go/medchain"
	"medchain_go/utils"
)

// Server represents the HTTP server exposing a ledger
type Server struct {
	Router   *mux.Router
	Ledger   *ledger.Ledger
	Registry *medchain.Registry
	Port     int
	srv      *http.Server
}

// NewServer creates a new server instance with its routes registered
func NewServer(l *ledger.Ledger, port int) *Server {
	s := &Server{
		Router:   mux.NewRouter(),
		Ledger:   l,
		Registry: medchain.NewRegistry(l),
		Port:     port,
	}
	s.SetupRoutes()
	s.srv = &http.Server{
		Handler:      s.Router,
		Addr:         fmt.Sprintf(":%d", port),
		WriteTimeout: 15 * time.Second,
		ReadTimeout:  15 * time.Second,
	}
	return s
}

// SetupRoutes configures the API routes
func (s *Server) SetupRoutes() {
	s.Router.HandleFunc("/ping", s.PingHandler).Methods("GET")

	// Generic ledger commands
	s.Router.HandleFunc("/records", s.CreateRecordHandler).Methods("POST")
	s.Router.HandleFunc("/records/{key}", s.UpdateRecordHandler).Methods("PATCH")
	s.Router.HandleFunc("/seal", s.SealHandler).Methods("POST")

	// Drug batch commands
	s.Router.HandleFunc("/batches", s.CreateBatchHandler).Methods("POST")
	s.Router.HandleFunc("/batches/{id}", s.GetBatchHandler).Methods("GET")
	s.Router.HandleFunc("/batches/{id}/status", s.UpdateBatchStatusHandler).Methods("PATCH")

	// Read views
	s.Router.HandleFunc("/chain", s.ChainHandler).Methods("GET")
	s.Router.HandleFunc("/chain/{index:[0-9]+}", s.BlockHandler).Methods("GET")
	s.Router.HandleFunc("/blocks/{hash}", s.BlockByHashHandler).Methods("GET")
	s.Router.HandleFunc("/state", s.StateHandler).Methods("GET")
	s.Router.HandleFunc("/state/{key}", s.RecordHandler).Methods("GET")
	s.Router.HandleFunc("/history/{key}", s.HistoryHandler).Methods("GET")
	s.Router.HandleFunc("/mempool", s.MempoolHandler).Methods("GET")
	s.Router.HandleFunc("/verify", s.VerifyHandler).Methods("GET")

	s.Router.Handle("/metrics", promhttp.Handler()).Methods("GET")
}

// Start serves HTTP until Shutdown is called
func (s *Server) Start() error {
	utils.LogInfo("Server starting on port %d", s.Port)

	if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully stops the server
func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}
