package metrics

import (
	"bufio"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"gopkg.in/natefinch/lumberjack.v2"

	coremetrics "github.com/kilianp07/chargectl/core/metrics"
)

// JSONLConfig configures the rotating JSONL sink. Sizes are in megabytes,
// ages in days.
type JSONLConfig struct {
	Path       string `json:"path"`
	MaxSizeMB  int    `json:"max_size_mb"`
	MaxBackups int    `json:"max_backups"`
	MaxAgeDays int    `json:"max_age_days"`
	Compress   bool   `json:"compress"`
}

// JSONLSink appends one JSON line per cycle to a file rotated by lumberjack.
type JSONLSink struct {
	mu     sync.Mutex
	logger *lumberjack.Logger
	path   string
}

// NewJSONLSink creates the sink and its parent directory.
func NewJSONLSink(cfg JSONLConfig) (*JSONLSink, error) {
	if cfg.Path == "" {
		cfg.Path = "cycles.jsonl"
	}
	if dir := filepath.Dir(cfg.Path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	lj := &lumberjack.Logger{
		Filename:   cfg.Path,
		MaxSize:    cfg.MaxSizeMB,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAgeDays,
		Compress:   cfg.Compress,
	}
	return &JSONLSink{logger: lj, path: cfg.Path}, nil
}

// RecordCycle writes the record and triggers rotation if needed.
func (s *JSONLSink) RecordCycle(rec coremetrics.CycleRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return json.NewEncoder(s.logger).Encode(rec)
}

// Recent reads the current and rotated files and returns up to limit
// records, newest first. Lines that fail to decode are skipped.
func (s *JSONLSink) Recent(ctx context.Context, limit int) ([]coremetrics.CycleRecord, error) {
	ext := filepath.Ext(s.path)
	base := s.path[:len(s.path)-len(ext)]
	files, err := filepath.Glob(base + "*" + ext)
	if err != nil {
		return nil, err
	}
	var res []coremetrics.CycleRecord
	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		recs, err := readJSONL(f)
		if err != nil {
			continue
		}
		res = append(res, recs...)
	}
	sort.Slice(res, func(i, j int) bool { return res[i].Time.After(res[j].Time) })
	if limit > 0 && len(res) > limit {
		res = res[:limit]
	}
	return res, nil
}

func readJSONL(path string) ([]coremetrics.CycleRecord, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = file.Close() }()
	var res []coremetrics.CycleRecord
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		var r coremetrics.CycleRecord
		if err := json.Unmarshal(scanner.Bytes(), &r); err != nil {
			continue
		}
		res = append(res, r)
	}
	return res, scanner.Err()
}

// Close closes the underlying writer.
func (s *JSONLSink) Close() error {
	return s.logger.Close()
}
