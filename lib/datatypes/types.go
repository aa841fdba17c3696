package datatypes

import (
	"encoding/json"
	"time"
)

// ParamPoint is one (window, paa, alphabet) triple of the search.
// The fields are public because this struct gets
// json-encoded.
type ParamPoint struct {
	Window   int
	PAA      int
	Alphabet int
}

type EventKind string

const (
	TRAIN_STARTED  EventKind = "train_started"
	ITERATION      EventKind = "iteration"
	TRAIN_FINISHED EventKind = "train_finished"
	TEST_FINISHED  EventKind = "test_finished"
	FAILED         EventKind = "failed"
)

// A ProgressEvent reports on a training or test run.
type ProgressEvent struct {
	RunID     string
	Kind      EventKind
	Iteration int
	// Best point so far and its error.
	Best      ParamPoint
	BestError float64
	// Errors of the points sampled since the previous event.
	Evaluated map[ParamPoint]float64
	Message   string
	Time      time.Time
}

func (p ParamPoint) Values() [3]int {
	return [3]int{p.Window, p.PAA, p.Alphabet}
}

func NewParamPoint(window int, paa int, alphabet int) *ParamPoint {
	return &ParamPoint{Window: window, PAA: paa, Alphabet: alphabet}
}

func (p *ParamPoint) MarshalJSON() ([]byte, error) {
	return json.Marshal(&struct {
		Window   int `json:"window"`
		PAA      int `json:"paa"`
		Alphabet int `json:"alphabet"`
	}{
		Window:   p.Window,
		PAA:      p.PAA,
		Alphabet: p.Alphabet,
	})
}

func (p *ParamPoint) UnmarshalJSON(data []byte) error {
	pp := &struct {
		Window   int `json:"window"`
		PAA      int `json:"paa"`
		Alphabet int `json:"alphabet"`
	}{}
	if err := json.Unmarshal(data, &pp); err != nil {
		return err
	}
	p.Window = pp.Window
	p.PAA = pp.PAA
	p.Alphabet = pp.Alphabet
	return nil
}

func translateMap(points map[ParamPoint]float64) map[string]float64 {
	ret := make(map[string]float64)
	for key, val := range points {
		k, _ := (&key).MarshalJSON()
		ret[string(k[:])] = val
	}
	return ret
}

func retranslateMap(points map[string]float64) map[ParamPoint]float64 {
	ret := make(map[ParamPoint]float64)
	var pp ParamPoint
	for key, val := range points {
		(&pp).UnmarshalJSON([]byte(key))
		ret[pp] = val
	}
	return ret
}

type progressEventJSON struct {
	RunID     string             `json:"runId"`
	Kind      EventKind          `json:"kind"`
	Iteration int                `json:"iteration"`
	Best      ParamPoint         `json:"best"`
	BestError float64            `json:"bestError"`
	Evaluated map[string]float64 `json:"evaluated,omitempty"`
	Message   string             `json:"message,omitempty"`
	Time      int64              `json:"time"`
}

func (e *ProgressEvent) MarshalJSON() ([]byte, error) {
	return json.Marshal(&progressEventJSON{
		RunID:     e.RunID,
		Kind:      e.Kind,
		Iteration: e.Iteration,
		Best:      e.Best,
		BestError: e.BestError,
		Evaluated: translateMap(e.Evaluated),
		Message:   e.Message,
		Time:      e.Time.UnixMilli(),
	})
}

func (e *ProgressEvent) UnmarshalJSON(data []byte) error {
	pe := &progressEventJSON{}
	if err := json.Unmarshal(data, &pe); err != nil {
		return err
	}
	e.RunID = pe.RunID
	e.Kind = pe.Kind
	e.Iteration = pe.Iteration
	e.Best = pe.Best
	e.BestError = pe.BestError
	e.Evaluated = retranslateMap(pe.Evaluated)
	e.Message = pe.Message
	e.Time = time.UnixMilli(pe.Time).UTC()
	return nil
}
