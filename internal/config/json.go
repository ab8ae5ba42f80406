package config

import (
	"encoding/json"
	"os"

	"github.com/jinxingedu/kindersync/internal/flagx"
	"github.com/jinxingedu/kindersync/internal/timex"
)

// JsonConfig is a DTO used exclusively for JSON unmarshalling. Durations can
// be given either as strings like "10s" or as integer nanoseconds.
type JsonConfig struct {
	Endpoint        string         `json:"endpoint"`
	Region          string         `json:"region"`
	Bucket          string         `json:"bucket"`
	Prefix          string         `json:"prefix"`
	DatabaseDSN     string         `json:"database_dsn"`
	PublicTimeout   timex.Duration `json:"public_timeout"`
	SignedTimeout   timex.Duration `json:"signed_timeout"`
	AttemptPause    timex.Duration `json:"attempt_pause"`
	CollectionPause timex.Duration `json:"collection_pause"`
	SessionTTL      timex.Duration `json:"session_ttl"`
	BrokerURL       string         `json:"broker_url"`
}

// SaveJSON writes the non-secret part of cfg to path, in the same shape
// parseJson reads. Credentials stay in the environment.
func SaveJSON(cfg *Config, path string) error {
	jc := JsonConfig{
		Endpoint:        cfg.Endpoint,
		Region:          cfg.Region,
		Bucket:          cfg.Bucket,
		Prefix:          cfg.Prefix,
		DatabaseDSN:     cfg.DatabaseDSN,
		PublicTimeout:   timex.Duration{Duration: cfg.PublicTimeout},
		SignedTimeout:   timex.Duration{Duration: cfg.SignedTimeout},
		AttemptPause:    timex.Duration{Duration: cfg.AttemptPause},
		CollectionPause: timex.Duration{Duration: cfg.CollectionPause},
		SessionTTL:      timex.Duration{Duration: cfg.SessionTTL},
		BrokerURL:       cfg.BrokerURL,
	}
	data, err := json.MarshalIndent(jc, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

// parseJson overlays Config with values loaded from a JSON file named by the
// -c/-config flag. Zero values in the file leave the current Config value
// untouched. Panics on read or unmarshal errors (caller may recover).
func parseJson(cfg *Config) {
	jsonConfigFile := flagx.JsonConfigFlags()
	if jsonConfigFile == "" {
		return
	}

	var jc JsonConfig

	data, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}
	if err := json.Unmarshal(data, &jc); err != nil {
		panic(err)
	}

	if jc.Endpoint != "" {
		cfg.Endpoint = jc.Endpoint
	}
	if jc.Region != "" {
		cfg.Region = jc.Region
	}
	if jc.Bucket != "" {
		cfg.Bucket = jc.Bucket
	}
	if jc.Prefix != "" {
		cfg.Prefix = jc.Prefix
	}
	if jc.DatabaseDSN != "" {
		cfg.DatabaseDSN = jc.DatabaseDSN
	}
	if jc.PublicTimeout.Duration != 0 {
		cfg.PublicTimeout = jc.PublicTimeout.Duration
	}
	if jc.SignedTimeout.Duration != 0 {
		cfg.SignedTimeout = jc.SignedTimeout.Duration
	}
	if jc.AttemptPause.Duration != 0 {
		cfg.AttemptPause = jc.AttemptPause.Duration
	}
	if jc.CollectionPause.Duration != 0 {
		cfg.CollectionPause = jc.CollectionPause.Duration
	}
	if jc.SessionTTL.Duration != 0 {
		cfg.SessionTTL = jc.SessionTTL.Duration
	}
	if jc.BrokerURL != "" {
		cfg.BrokerURL = jc.BrokerURL
	}
}
