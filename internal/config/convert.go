package config

import (
	"sort"

	"github.com/danmuck/edgexchange/internal/logging"
	"github.com/danmuck/edgexchange/internal/protocol/metadata"
	"github.com/danmuck/edgexchange/internal/render"
)

// LoggingOverride applies the [log] table to the runtime logger profile.
func LoggingOverride(cfg Config) logging.Override {
	return func(lc *logging.Config) {
		if lvl, ok := logging.ParseLevel(cfg.Log.Level); ok {
			lc.Level = lvl
		}
		lc.Timestamp = cfg.Log.Timestamp
		lc.NoColor = cfg.Log.NoColor
	}
}

// MetadataEntries returns the [metadata] table sorted by key.
func MetadataEntries(cfg Config) []metadata.Entry {
	keys := make([]string, 0, len(cfg.Metadata))
	for k := range cfg.Metadata {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]metadata.Entry, 0, len(keys))
	for _, k := range keys {
		out = append(out, metadata.Entry{Key: k, Value: cfg.Metadata[k]})
	}
	return out
}

// OutputFormat returns the validated [output] format.
func OutputFormat(cfg Config) render.Format {
	f, err := render.ParseFormat(cfg.Output.Format)
	if err != nil {
		return render.FormatText
	}
	return f
}
