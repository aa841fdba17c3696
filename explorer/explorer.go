package explorer

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/shlpu/TSAT/lib/store"
)

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("failed to encode response: %v\n", err)
	}
}

func httpError(w http.ResponseWriter, err error) {
	if errors.Is(err, store.ErrModelNotFound) {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	http.Error(w, err.Error(), http.StatusInternalServerError)
}

// Routes registers the explorer endpoints on router.
func (c *ModelExplorer) Routes(router *mux.Router) {
	router.HandleFunc("/models", c.GetModels).Methods("GET")
	router.HandleFunc("/models/{id}", c.GetModel).Methods("GET")
	router.HandleFunc("/models/{id}", c.DeleteModel).Methods("DELETE")
	router.HandleFunc("/models/{id}/patterns", c.GetPatterns).Methods("GET")
	router.HandleFunc("/models/{id}/series", c.GetSeries).Methods("GET")
	router.HandleFunc("/models/{id}/result", c.GetResult).Methods("GET")
}

func (c *ModelExplorer) GetModels(w http.ResponseWriter, r *http.Request) {
	summaries, err := c.source.List()
	if err != nil {
		httpError(w, err)
		return
	}
	ret := modelListResponse{Models: make([]modelSummaryResponse, 0, len(summaries))}
	for _, s := range summaries {
		ret.Models = append(ret.Models, modelSummaryResponse{
			ID:         s.ID,
			Created:    s.Created,
			TrainError: s.TrainError,
			Labels:     s.Labels,
		})
	}
	writeJSON(w, ret)
}

func (c *ModelExplorer) GetModel(w http.ResponseWriter, r *http.Request) {
	m, err := c.model(mux.Vars(r)["id"])
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, newModelResponse(m))
}

func (c *ModelExplorer) DeleteModel(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if err := c.source.Delete(id); err != nil {
		httpError(w, err)
		return
	}
	c.forget(id)
	w.WriteHeader(http.StatusNoContent)
}

// GetPatterns lists the selected patterns of a model, optionally only those
// of the class given as ?class=.
func (c *ModelExplorer) GetPatterns(w http.ResponseWriter, r *http.Request) {
	m, err := c.model(mux.Vars(r)["id"])
	if err != nil {
		httpError(w, err)
		return
	}
	class := r.URL.Query().Get("class")
	ret := patternListResponse{Patterns: make([]patternResponse, 0)}
	for _, cm := range m.Classes {
		if class != "" && cm.Label != class {
			continue
		}
		for _, p := range cm.Patterns {
			ret.Patterns = append(ret.Patterns, patternResponse{Class: cm.Label, Params: cm.Params, TSPattern: p})
		}
	}
	writeJSON(w, ret)
}

// GetSeries returns one training series, ?label=<class>&index=<n>.
func (c *ModelExplorer) GetSeries(w http.ResponseWriter, r *http.Request) {
	m, err := c.model(mux.Vars(r)["id"])
	if err != nil {
		httpError(w, err)
		return
	}
	params := r.URL.Query()
	label := params.Get("label")
	index, err := strconv.Atoi(params.Get("index"))
	if err != nil {
		http.Error(w, fmt.Sprintf("bad series index %q", params.Get("index")), http.StatusBadRequest)
		return
	}
	series, ok := m.TrainData[label]
	if !ok || index < 0 || index >= len(series) {
		http.Error(w, fmt.Sprintf("no series %d in class %q", index, label), http.StatusNotFound)
		return
	}
	writeJSON(w, seriesResponse{Label: label, Index: index, Values: series[index]})
}

func (c *ModelExplorer) GetResult(w http.ResponseWriter, r *http.Request) {
	res, err := c.source.LoadResult(mux.Vars(r)["id"])
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, resultResponse{ModelID: res.ModelID, Error: res.Error, Predictions: res.Predictions})
}
