package history

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
)

// FileLedger keeps the run history as one JSON document on disk, written
// synchronously after every append.
type FileLedger struct {
	path   string
	logger zerolog.Logger
}

// NewFileLedger 构造文件账本。
func NewFileLedger(path string, logger zerolog.Logger) *FileLedger {
	return &FileLedger{
		path:   path,
		logger: logger.With().Str("component", "file_ledger").Logger(),
	}
}

// Load reads the history file. A missing or corrupt file starts fresh; it
// is never an error.
func (l *FileLedger) Load(_ context.Context) (History, error) {
	raw, err := os.ReadFile(l.path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			l.logger.Warn().Err(err).Str("path", l.path).Msg("could not read run history, starting fresh")
		}
		return NewHistory(), nil
	}

	var h History
	if err := json.Unmarshal(raw, &h); err != nil {
		l.logger.Warn().Err(err).Str("path", l.path).Msg("run history corrupt, starting fresh")
		return NewHistory(), nil
	}
	return h, nil
}

// Append records one run and persists the whole history before returning.
func (l *FileLedger) Append(ctx context.Context, entry Entry) (History, error) {
	h, _ := l.Load(ctx)
	next := h.apply(entry)

	if err := l.write(next); err != nil {
		return next, fmt.Errorf("persist run history: %w", err)
	}
	return next, nil
}

func (l *FileLedger) write(h History) error {
	if dir := filepath.Dir(l.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}

	raw, err := json.MarshalIndent(h, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(l.path, raw, 0o644)
}

var _ Ledger = (*FileLedger)(nil)
