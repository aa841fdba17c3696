// Package store keeps trained models and their test results in a bbolt file.
package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sort"
	"time"

	"github.com/google/uuid"
	bolt "go.etcd.io/bbolt"

	"github.com/shlpu/TSAT/lib/rpm"
)

const (
	modelsBucket  = "models"
	resultsBucket = "results"
	metaBucket    = "meta"
	latestKey     = "latest"
)

var (
	ErrModelNotFound = errors.New("store: model not found")
	ErrInvalidID     = errors.New("store: model id is not a uuid")
)

type ModelStore struct {
	db *bolt.DB
}

// A Summary describes a stored model without loading its training data.
type Summary struct {
	ID         string    `json:"id"`
	Created    time.Time `json:"created"`
	TrainError float64   `json:"trainError"`
	Labels     []string  `json:"labels"`
}

func Open(path string) (*ModelStore, error) {
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("opening model store %s: %w", path, err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		for _, name := range []string{modelsBucket, resultsBucket, metaBucket} {
			if _, err := tx.CreateBucketIfNotExists([]byte(name)); err != nil {
				return fmt.Errorf("create bucket %s: %w", name, err)
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}
	return &ModelStore{db: db}, nil
}

func (s *ModelStore) Close() error {
	return s.db.Close()
}

func checkID(id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return fmt.Errorf("%w: %q", ErrInvalidID, id)
	}
	return nil
}

// Save stores m under its ID and makes it the latest model.
func (s *ModelStore) Save(m *rpm.TrainedModel) error {
	if err := checkID(m.ID); err != nil {
		return err
	}
	bytes, err := json.Marshal(m)
	if err != nil {
		return err
	}
	if err := s.db.Update(func(tx *bolt.Tx) error {
		if err := tx.Bucket([]byte(modelsBucket)).Put([]byte(m.ID), bytes); err != nil {
			return fmt.Errorf("put model: %w", err)
		}
		return tx.Bucket([]byte(metaBucket)).Put([]byte(latestKey), []byte(m.ID))
	}); err != nil {
		return fmt.Errorf("update transaction error: %w", err)
	}
	log.Printf("stored model %s (%d bytes)\n", m.ID, len(bytes))
	return nil
}

func (s *ModelStore) Load(id string) (*rpm.TrainedModel, error) {
	var m rpm.TrainedModel
	err := s.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket([]byte(modelsBucket)).Get([]byte(id))
		if v == nil {
			return fmt.Errorf("%w: %s", ErrModelNotFound, id)
		}
		return json.Unmarshal(v, &m)
	})
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// Latest loads the most recently saved model that has not been deleted.
func (s *ModelStore) Latest() (*rpm.TrainedModel, error) {
	var id string
	if err := s.db.View(func(tx *bolt.Tx) error {
		id = string(tx.Bucket([]byte(metaBucket)).Get([]byte(latestKey)))
		return nil
	}); err != nil {
		return nil, err
	}
	if id == "" {
		return nil, ErrModelNotFound
	}
	return s.Load(id)
}

// List returns summaries of all models, oldest first.
func (s *ModelStore) List() ([]Summary, error) {
	var ret []Summary
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(modelsBucket)).ForEach(func(k, v []byte) error {
			var sum Summary
			if err := json.Unmarshal(v, &sum); err != nil {
				return fmt.Errorf("model %s: %w", k, err)
			}
			ret = append(ret, sum)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	sort.SliceStable(ret, func(i, j int) bool {
		return ret[i].Created.Before(ret[j].Created)
	})
	return ret, nil
}

// Delete removes a model and its test result. If it was the latest model,
// the newest remaining one takes its place.
func (s *ModelStore) Delete(id string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		models := tx.Bucket([]byte(modelsBucket))
		if models.Get([]byte(id)) == nil {
			return fmt.Errorf("%w: %s", ErrModelNotFound, id)
		}
		if err := models.Delete([]byte(id)); err != nil {
			return err
		}
		if err := tx.Bucket([]byte(resultsBucket)).Delete([]byte(id)); err != nil {
			return err
		}
		meta := tx.Bucket([]byte(metaBucket))
		if string(meta.Get([]byte(latestKey))) != id {
			return nil
		}
		newest := ""
		var newestTime time.Time
		if err := models.ForEach(func(k, v []byte) error {
			var sum Summary
			if err := json.Unmarshal(v, &sum); err != nil {
				return err
			}
			if newest == "" || sum.Created.After(newestTime) {
				newest, newestTime = string(k), sum.Created
			}
			return nil
		}); err != nil {
			return err
		}
		if newest == "" {
			return meta.Delete([]byte(latestKey))
		}
		return meta.Put([]byte(latestKey), []byte(newest))
	})
}

// SaveResult stores the test result of a stored model, replacing any earlier one.
func (s *ModelStore) SaveResult(res *rpm.TestResult) error {
	bytes, err := json.Marshal(res)
	if err != nil {
		return err
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		if tx.Bucket([]byte(modelsBucket)).Get([]byte(res.ModelID)) == nil {
			return fmt.Errorf("%w: %s", ErrModelNotFound, res.ModelID)
		}
		return tx.Bucket([]byte(resultsBucket)).Put([]byte(res.ModelID), bytes)
	})
}

func (s *ModelStore) LoadResult(id string) (*rpm.TestResult, error) {
	var res rpm.TestResult
	err := s.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket([]byte(resultsBucket)).Get([]byte(id))
		if v == nil {
			return fmt.Errorf("%w: no test result for %s", ErrModelNotFound, id)
		}
		return json.Unmarshal(v, &res)
	})
	if err != nil {
		return nil, err
	}
	return &res, nil
}
