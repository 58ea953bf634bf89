package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/bacmr/maktaba/internal/core"
	"github.com/bacmr/maktaba/internal/ingestion"
)

type JobHandler struct {
	store  core.Store
	runner *ingestion.Runner
}

func NewJobHandler(store core.Store, runner *ingestion.Runner) *JobHandler {
	return &JobHandler{store: store, runner: runner}
}

func (h *JobHandler) ListJobs(w http.ResponseWriter, r *http.Request) {
	status := r.URL.Query().Get("status")

	jobs, err := h.store.ListIngestionJobs(r.Context(), status)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(jobs)
}

func (h *JobHandler) GetJob(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	job, err := h.store.GetIngestionJob(r.Context(), id)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if job == nil {
		http.Error(w, "job not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"job":      job,
		"progress": job.Progress(),
	})
}

// RequeueJob moves a PAUSED or FAILED job back to QUEUED and nudges the
// dispatcher so it gets picked up without waiting for the reaper.
func (h *JobHandler) RequeueJob(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	job, err := h.store.RequeueJob(r.Context(), id)
	if err != nil {
		http.Error(w, fmt.Sprintf("requeue failed: %v", err), http.StatusInternalServerError)
		return
	}
	if job == nil {
		http.Error(w, "job not found or not in a requeueable state", http.StatusConflict)
		return
	}

	if _, err := h.runner.DispatchNext(r.Context()); err != nil {
		http.Error(w, fmt.Sprintf("dispatch failed: %v", err), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(job)
}

// Dispatch claims the oldest queued job, if any, and starts processing it.
func (h *JobHandler) Dispatch(w http.ResponseWriter, r *http.Request) {
	job, err := h.runner.DispatchNext(r.Context())
	if err != nil {
		http.Error(w, fmt.Sprintf("dispatch failed: %v", err), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if job == nil {
		json.NewEncoder(w).Encode(map[string]any{"claimed": false})
		return
	}
	json.NewEncoder(w).Encode(map[string]any{"claimed": true, "job": job})
}
