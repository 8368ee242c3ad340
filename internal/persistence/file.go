package persistence

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"github.com/pokertool/core/internal/fileutil"
	"github.com/pokertool/core/internal/model"
)

// FileAdapter persists hands as newline-delimited JSON and HUD profiles
// as a single JSON document, both written via fileutil.WriteFileAtomic
// so a reader never observes a partially written file.
type FileAdapter struct {
	handsPath    string
	profilesPath string

	mu       sync.Mutex
	profiles map[string]model.HUDProfile
}

// NewFileAdapter opens (or creates) the NDJSON hand log at handsPath and
// the profile document at profilesPath, loading any existing profiles
// into memory.
func NewFileAdapter(handsPath, profilesPath string) (*FileAdapter, error) {
	a := &FileAdapter{
		handsPath:    handsPath,
		profilesPath: profilesPath,
		profiles:     make(map[string]model.HUDProfile),
	}
	if err := a.ensureHandsFile(); err != nil {
		return nil, model.NewError(model.KindPersistence, "persistence.NewFileAdapter", "create hand log", err)
	}
	if err := a.loadProfiles(); err != nil {
		return nil, model.NewError(model.KindPersistence, "persistence.NewFileAdapter", "load hud profiles", err)
	}
	return a, nil
}

func (a *FileAdapter) ensureHandsFile() error {
	if err := os.MkdirAll(filepath.Dir(a.handsPath), 0o755); err != nil {
		return err
	}
	if _, err := os.Stat(a.handsPath); os.IsNotExist(err) {
		return fileutil.WriteFileAtomic(a.handsPath, []byte{}, 0o644)
	} else if err != nil {
		return err
	}
	return nil
}

func (a *FileAdapter) loadProfiles() error {
	if err := os.MkdirAll(filepath.Dir(a.profilesPath), 0o755); err != nil {
		return err
	}
	data, err := os.ReadFile(a.profilesPath)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}
	if len(data) == 0 {
		return nil
	}
	var profiles map[string]model.HUDProfile
	if err := json.Unmarshal(data, &profiles); err != nil {
		return err
	}
	a.profiles = profiles
	return nil
}

// SaveHand appends h to the NDJSON hand log. The whole file is rewritten
// atomically; this is acceptable for the hand log's modest write rate
// (one append per completed hand).
func (a *FileAdapter) SaveHand(ctx context.Context, h model.HandHistory) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	existing, err := os.ReadFile(a.handsPath)
	if err != nil && !os.IsNotExist(err) {
		return model.NewError(model.KindPersistence, "persistence.SaveHand", "read hand log", err)
	}
	line, err := json.Marshal(h)
	if err != nil {
		return model.NewError(model.KindPersistence, "persistence.SaveHand", "marshal hand", err)
	}

	var buf bytes.Buffer
	buf.Write(existing)
	buf.Write(line)
	buf.WriteByte('\n')

	if err := fileutil.WriteFileAtomic(a.handsPath, buf.Bytes(), 0o644); err != nil {
		return model.NewError(model.KindPersistence, "persistence.SaveHand", "write hand log", err)
	}
	return nil
}

// LoadHands replays every hand in the NDJSON log, for tests and offline
// tooling. It is not part of the Adapter interface.
func (a *FileAdapter) LoadHands() ([]model.HandHistory, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	f, err := os.Open(a.handsPath)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var hands []model.HandHistory
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(bytes.TrimSpace(line)) == 0 {
			continue
		}
		var h model.HandHistory
		if err := json.Unmarshal(line, &h); err != nil {
			return nil, err
		}
		hands = append(hands, h)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return hands, nil
}

func (a *FileAdapter) SaveHUDProfile(ctx context.Context, p model.HUDProfile) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.profiles[p.Name] = p
	data, err := json.Marshal(a.profiles)
	if err != nil {
		return model.NewError(model.KindPersistence, "persistence.SaveHUDProfile", "marshal profiles", err)
	}
	if err := fileutil.WriteFileAtomic(a.profilesPath, data, 0o644); err != nil {
		return model.NewError(model.KindPersistence, "persistence.SaveHUDProfile", "write profiles", err)
	}
	return nil
}

func (a *FileAdapter) LoadHUDProfile(ctx context.Context, name string) (model.HUDProfile, bool, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	p, ok := a.profiles[name]
	return p, ok, nil
}

func (a *FileAdapter) ListHUDProfiles(ctx context.Context) ([]model.HUDProfile, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]model.HUDProfile, 0, len(a.profiles))
	for _, p := range a.profiles {
		out = append(out, p)
	}
	return out, nil
}
