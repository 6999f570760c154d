package databases

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/simeonpalla/GovLensAP/models"
)

// complaintFile is the canonical ComplaintDatabase: the whole collection
// lives in a single JSON array document. Every mutation rewrites the entire
// document; the mutex keeps read-modify-write cycles single-writer so two
// submissions cannot silently drop each other.
type complaintFile struct {
	path string
	mu   sync.Mutex
}

// NewComplaintFile returns a file-backed complaint store rooted at path.
func NewComplaintFile(path string) ComplaintDatabase {
	return &complaintFile{path: path}
}

func (c *complaintFile) InitStorage(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.initLocked()
}

func (c *complaintFile) initLocked() error {
	if err := os.MkdirAll(filepath.Dir(c.path), 0o755); err != nil {
		return fmt.Errorf("failed to create storage directory: %w", err)
	}
	if _, err := os.Stat(c.path); os.IsNotExist(err) {
		if err := os.WriteFile(c.path, []byte("[]"), 0o644); err != nil {
			return fmt.Errorf("failed to initialize complaints file: %w", err)
		}
		zap.S().Infow("initialized empty complaints file", "path", c.path)
	}
	return nil
}

// loadLocked reads the whole collection. A missing file is initialized and
// read as empty; a present but unreadable or unparsable file is
// ErrStorageUnavailable, never silently an empty list.
func (c *complaintFile) loadLocked() ([]models.Complaint, error) {
	if err := c.initLocked(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}
	b, err := os.ReadFile(c.path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}
	var complaints []models.Complaint
	if err := json.Unmarshal(b, &complaints); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}
	return complaints, nil
}

// saveLocked overwrites the whole document through a temp file + rename so a
// crash mid-write never leaves a truncated collection behind.
func (c *complaintFile) saveLocked(complaints []models.Complaint) error {
	b, err := json.MarshalIndent(complaints, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal complaints: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(c.path), ".complaints-*.json")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	if _, err := tmp.Write(b); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to write complaints: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), c.path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to replace complaints file: %w", err)
	}
	return nil
}

func (c *complaintFile) Find(ctx context.Context) ([]models.Complaint, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loadLocked()
}

func (c *complaintFile) FindByID(ctx context.Context, id string) (*models.Complaint, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	complaints, err := c.loadLocked()
	if err != nil {
		return nil, err
	}
	for i := range complaints {
		if complaints[i].ID == id {
			return &complaints[i], nil
		}
	}
	return nil, ErrNotFound
}

func (c *complaintFile) Insert(ctx context.Context, complaint models.Complaint) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	complaints, err := c.loadLocked()
	if err != nil {
		return err
	}
	for i := range complaints {
		if complaints[i].ID == complaint.ID {
			return ErrDuplicateID
		}
	}
	complaints = append(complaints, complaint)
	return c.saveLocked(complaints)
}

func (c *complaintFile) AppendAction(ctx context.Context, id, action, notes, officer string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	complaints, err := c.loadLocked()
	if err != nil {
		return err
	}
	for i := range complaints {
		if complaints[i].ID != id {
			continue
		}
		complaints[i].Timeline = append(complaints[i].Timeline, models.TimelineEvent{
			Stage:     action,
			Timestamp: time.Now().Format(time.RFC3339),
			Officer:   &officer,
			Action:    notes,
		})
		complaints[i].Status = models.NextStatus(action)
		return c.saveLocked(complaints)
	}
	return ErrNotFound
}
