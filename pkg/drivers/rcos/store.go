package rcos

import (
	"encoding/json"
	"fmt"

	log "github.com/sirupsen/logrus"
	bolt "go.etcd.io/bbolt"
)

const (
	bucket    = "alpaca"
	configKey = "rcos_config"
)

type store struct {
	db *bolt.DB
}

// newStore creates a new store instance and sets default values if they are not already set.
func newStore(db *bolt.DB) (*store, error) {
	st := store{db: db}

	if err := st.setDefaults(); err != nil {
		return nil, err
	}
	return &st, nil
}

func (s *store) setDefaults() error {
	if _, err := s.GetConfig(); err != nil {
		log.Infof("Setting default TCC config")
		return s.SetConfig(defaultConfig)
	}

	return nil
}

// SetConfig saves the driver configuration as a json string in the database.
func (s *store) SetConfig(cfg Config) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists([]byte(bucket))
		if err != nil {
			return err
		}

		value, _ := json.Marshal(cfg)
		return b.Put([]byte(configKey), value)
	})
}

// GetConfig retrieves the driver configuration from the database.
func (s *store) GetConfig() (Config, error) {
	var cfg Config

	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(bucket))
		if b == nil {
			return fmt.Errorf("bucket %s not found", bucket)
		}

		value := b.Get([]byte(configKey))
		if value == nil {
			return fmt.Errorf("key config not found")
		}

		return json.Unmarshal(value, &cfg)
	})

	return cfg, err
}
