package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"github.com/solacehq/pulse/pkg/batch"
	"github.com/solacehq/pulse/pkg/pipeline"
	"github.com/solacehq/pulse/pkg/runlog"
	"github.com/solacehq/pulse/pkg/scheduler"
	"github.com/solacehq/pulse/pkg/trigger"
	"github.com/solacehq/pulse/pkg/usercontext"
)

// api exposes the engine surfaces over JSON. Batch and context endpoints
// require the sqlite backend and answer 501 on file-store deployments.
type api struct {
	log        zerolog.Logger
	engineCtx  context.Context
	svc        *scheduler.Service
	dispatcher *batch.Dispatcher
	contexts   *usercontext.Store
	records    pipeline.RecordStore
	runLogDir  string
}

func (a *api) register(mux *http.ServeMux) {
	mux.HandleFunc("POST /triggers", a.createTrigger)
	mux.HandleFunc("GET /triggers", a.listTriggers)
	mux.HandleFunc("GET /triggers/{id}", a.getTrigger)
	mux.HandleFunc("PATCH /triggers/{id}", a.updateTrigger)
	mux.HandleFunc("DELETE /triggers/{id}", a.deleteTrigger)
	mux.HandleFunc("POST /triggers/{id}/fire", a.fireTrigger)
	mux.HandleFunc("GET /triggers/{id}/runs", a.listRuns)
	mux.HandleFunc("GET /triggers/{id}/records", a.listRecords)
	mux.HandleFunc("POST /batch", a.createJob)
	mux.HandleFunc("GET /batch/{id}", a.jobProgress)
	mux.HandleFunc("POST /batch/{id}/run", a.runJob)
	mux.HandleFunc("GET /context/{userID}", a.readContext)
	mux.HandleFunc("PUT /context/{userID}", a.patchContext)
}

func (a *api) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		a.log.Debug().Err(err).Msg("Failed to write API response")
	}
}

func (a *api) writeError(w http.ResponseWriter, status int, err error) {
	a.writeJSON(w, status, map[string]string{"error": err.Error()})
}

func (a *api) createTrigger(w http.ResponseWriter, r *http.Request) {
	var input trigger.Create
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		a.writeError(w, http.StatusBadRequest, err)
		return
	}
	trig, err := a.svc.Create(r.Context(), input)
	if err != nil {
		a.writeError(w, http.StatusBadRequest, err)
		return
	}
	a.writeJSON(w, http.StatusCreated, trig)
}

func (a *api) listTriggers(w http.ResponseWriter, r *http.Request) {
	includeInactive := r.URL.Query().Get("all") == "1"
	list, err := a.svc.List(r.Context(), includeInactive)
	if err != nil {
		a.writeError(w, http.StatusInternalServerError, err)
		return
	}
	if list == nil {
		list = []trigger.Trigger{}
	}
	a.writeJSON(w, http.StatusOK, list)
}

func (a *api) getTrigger(w http.ResponseWriter, r *http.Request) {
	trig, found, err := a.svc.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		a.writeError(w, http.StatusInternalServerError, err)
		return
	}
	if !found {
		a.writeError(w, http.StatusNotFound, errors.New("trigger not found"))
		return
	}
	a.writeJSON(w, http.StatusOK, trig)
}

func (a *api) updateTrigger(w http.ResponseWriter, r *http.Request) {
	var patch trigger.Patch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		a.writeError(w, http.StatusBadRequest, err)
		return
	}
	trig, err := a.svc.Update(r.Context(), r.PathValue("id"), patch)
	if err != nil {
		a.writeError(w, http.StatusBadRequest, err)
		return
	}
	a.writeJSON(w, http.StatusOK, trig)
}

func (a *api) deleteTrigger(w http.ResponseWriter, r *http.Request) {
	removed, err := a.svc.Remove(r.Context(), r.PathValue("id"))
	if err != nil {
		a.writeError(w, http.StatusInternalServerError, err)
		return
	}
	if !removed {
		a.writeError(w, http.StatusNotFound, errors.New("trigger not found"))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *api) fireTrigger(w http.ResponseWriter, r *http.Request) {
	mode, err := a.svc.Fire(r.PathValue("id"))
	if err != nil {
		status := http.StatusInternalServerError
		if strings.Contains(err.Error(), "unknown trigger id") {
			status = http.StatusNotFound
		}
		a.writeError(w, status, err)
		return
	}
	a.writeJSON(w, http.StatusOK, map[string]string{"mode": string(mode)})
}

func (a *api) listRuns(w http.ResponseWriter, r *http.Request) {
	if a.runLogDir == "" {
		a.writeError(w, http.StatusNotImplemented, errors.New("run log disabled"))
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	entries, err := runlog.Read(runlog.Path(a.runLogDir, r.PathValue("id")), limit, r.URL.Query().Get("action"))
	if err != nil {
		a.writeError(w, http.StatusInternalServerError, err)
		return
	}
	a.writeJSON(w, http.StatusOK, entries)
}

func (a *api) listRecords(w http.ResponseWriter, r *http.Request) {
	if a.records == nil {
		a.writeError(w, http.StatusNotImplemented, errors.New("execution records require the sqlite backend"))
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	records, err := a.records.ListByTrigger(r.Context(), r.PathValue("id"), limit)
	if err != nil {
		a.writeError(w, http.StatusInternalServerError, err)
		return
	}
	if records == nil {
		records = []pipeline.Record{}
	}
	a.writeJSON(w, http.StatusOK, records)
}

type createJobRequest struct {
	UserID     string            `json:"userId"`
	Title      string            `json:"title"`
	Recipients []batch.Recipient `json:"recipients"`
	Template   string            `json:"messageTemplate"`
	Platform   string            `json:"platform"`
}

func (a *api) createJob(w http.ResponseWriter, r *http.Request) {
	if a.dispatcher == nil {
		a.writeError(w, http.StatusNotImplemented, errors.New("batch jobs require the sqlite backend"))
		return
	}
	var req createJobRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.writeError(w, http.StatusBadRequest, err)
		return
	}
	job, err := a.dispatcher.CreateJob(r.Context(), req.UserID, req.Title, req.Recipients, req.Template, req.Platform)
	if err != nil {
		a.writeError(w, http.StatusBadRequest, err)
		return
	}
	a.writeJSON(w, http.StatusCreated, job)
}

func (a *api) jobProgress(w http.ResponseWriter, r *http.Request) {
	if a.dispatcher == nil {
		a.writeError(w, http.StatusNotImplemented, errors.New("batch jobs require the sqlite backend"))
		return
	}
	progress, status, err := a.dispatcher.Progress(r.Context(), r.PathValue("id"))
	if err != nil {
		a.writeError(w, http.StatusNotFound, err)
		return
	}
	a.writeJSON(w, http.StatusOK, map[string]any{"status": status, "progress": progress})
}

// runJob starts the fan-out in the background; the engine context, not the
// request context, bounds its lifetime. Progress is polled via jobProgress.
func (a *api) runJob(w http.ResponseWriter, r *http.Request) {
	if a.dispatcher == nil {
		a.writeError(w, http.StatusNotImplemented, errors.New("batch jobs require the sqlite backend"))
		return
	}
	id := r.PathValue("id")
	if _, _, err := a.dispatcher.Progress(r.Context(), id); err != nil {
		a.writeError(w, http.StatusNotFound, err)
		return
	}
	go func() {
		if _, err := a.dispatcher.Run(a.engineCtx, id); err != nil {
			a.log.Warn().Err(err).Str("job_id", id).Msg("Batch job run ended with error")
		}
	}()
	a.writeJSON(w, http.StatusAccepted, map[string]string{"id": id, "status": "started"})
}

func (a *api) readContext(w http.ResponseWriter, r *http.Request) {
	if a.contexts == nil {
		a.writeError(w, http.StatusNotImplemented, errors.New("user context requires the sqlite backend"))
		return
	}
	snap, err := a.contexts.Read(r.Context(), r.PathValue("userID"))
	if err != nil {
		a.writeError(w, http.StatusInternalServerError, err)
		return
	}
	a.writeJSON(w, http.StatusOK, snap)
}

func (a *api) patchContext(w http.ResponseWriter, r *http.Request) {
	if a.contexts == nil {
		a.writeError(w, http.StatusNotImplemented, errors.New("user context requires the sqlite backend"))
		return
	}
	var patch usercontext.Patch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		a.writeError(w, http.StatusBadRequest, err)
		return
	}
	snap, err := a.contexts.Upsert(r.Context(), r.PathValue("userID"), patch)
	if err != nil {
		a.writeError(w, http.StatusInternalServerError, err)
		return
	}
	a.writeJSON(w, http.StatusOK, snap)
}
