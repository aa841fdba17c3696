package explorer

import (
	"time"

	"github.com/shlpu/TSAT/lib/patterns"
	"github.com/shlpu/TSAT/lib/rpm"
)

// Types for the REST API

type modelListResponse struct {
	Models []modelSummaryResponse `json:"models"`
}

type modelSummaryResponse struct {
	ID         string    `json:"id"`
	Created    time.Time `json:"created"`
	TrainError float64   `json:"trainError"`
	Labels     []string  `json:"labels"`
}

type classResponse struct {
	Label    string          `json:"label"`
	Error    float64         `json:"error"`
	Params   patterns.Params `json:"params"`
	Patterns int             `json:"patterns"`
	Series   int             `json:"series"`
}

// modelResponse is a TrainedModel without its training data.
type modelResponse struct {
	modelSummaryResponse
	Lower         []float64       `json:"lower"`
	Upper         []float64       `json:"upper"`
	Iterations    int             `json:"iterations"`
	Similarity    float64         `json:"similarity"`
	SimilaritySet bool            `json:"similaritySet"`
	BestParams    patterns.Params `json:"bestParams"`
	Classes       []classResponse `json:"classes"`
}

type patternResponse struct {
	Class  string          `json:"class"`
	Params patterns.Params `json:"params"`
	patterns.TSPattern
}

type patternListResponse struct {
	Patterns []patternResponse `json:"patterns"`
}

type seriesResponse struct {
	Label  string    `json:"label"`
	Index  int       `json:"index"`
	Values []float64 `json:"values"`
}

type resultResponse struct {
	ModelID     string           `json:"modelId"`
	Error       float64          `json:"error"`
	Predictions []rpm.Prediction `json:"predictions"`
}

func newModelResponse(m *rpm.TrainedModel) modelResponse {
	ret := modelResponse{
		modelSummaryResponse: modelSummaryResponse{
			ID:         m.ID,
			Created:    m.Created,
			TrainError: m.TrainError,
			Labels:     m.Labels,
		},
		Lower:         m.Lower,
		Upper:         m.Upper,
		Iterations:    m.Iterations,
		Similarity:    m.Similarity,
		SimilaritySet: m.SimilaritySet,
		BestParams:    m.BestParams,
		Classes:       make([]classResponse, 0, len(m.Classes)),
	}
	for _, c := range m.Classes {
		ret.Classes = append(ret.Classes, classResponse{
			Label:    c.Label,
			Error:    c.Error,
			Params:   c.Params,
			Patterns: len(c.Patterns),
			Series:   len(m.TrainData[c.Label]),
		})
	}
	return ret
}
