package profiles

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"verge-go/internal/config"
)

type document struct {
	Current string `yaml:"current,omitempty"`
	Items   []Item `yaml:"items"`
}

// Collection is the persisted list of profiles (profiles.yaml) and their files.
type Collection struct {
	mu        sync.RWMutex
	indexPath string
	dir       string
	doc       document
}

// Open loads the collection index at indexPath. Profile files live in dir.
func Open(indexPath, dir string) (*Collection, error) {
	c := &Collection{indexPath: indexPath, dir: dir}
	if _, err := config.ReadYAML(indexPath, &c.doc); err != nil {
		return nil, fmt.Errorf("failed to load profiles: %w", err)
	}
	return c, nil
}

// Items returns a copy of all items.
func (c *Collection) Items() []Item {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]Item(nil), c.doc.Items...)
}

// Current returns the selected profile, if any.
func (c *Collection) Current() (Item, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, item := range c.doc.Items {
		if item.UID == c.doc.Current {
			return item, true
		}
	}
	return Item{}, false
}

// FilePath returns the absolute path of an item's file.
func (c *Collection) FilePath(item Item) string {
	return filepath.Join(c.dir, item.File)
}

// AppendItem writes the item's body to its file and adds it to the collection.
// The first remote or local profile becomes the current one.
func (c *Collection) AppendItem(item *Item) error {
	if item == nil {
		return errors.New("profile item is nil")
	}
	if item.UID == "" {
		return errors.New("the uid should not be empty")
	}
	if item.File == "" {
		return errors.New("the file should not be empty")
	}
	if item.FileData == "" {
		return errors.New("the file data should not be empty")
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	for _, existing := range c.doc.Items {
		if existing.UID == item.UID {
			return fmt.Errorf("profile %s already exists", item.UID)
		}
	}

	if err := c.writeFile(item.File, item.FileData); err != nil {
		return err
	}

	next := c.doc
	next.Items = append(append([]Item(nil), c.doc.Items...), *item)
	if next.Current == "" && (item.Type == TypeRemote || item.Type == TypeLocal) {
		next.Current = item.UID
	}

	if err := config.WriteYAML(c.indexPath, next); err != nil {
		_ = os.Remove(filepath.Join(c.dir, item.File))
		return fmt.Errorf("failed to save profiles: %w", err)
	}
	c.doc = next
	return nil
}

// UpdateItem replaces the body and remote metadata of an existing profile with a
// freshly fetched one, keeping its uid, file and name.
func (c *Collection) UpdateItem(uid string, fetched *Item) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	idx := -1
	for i := range c.doc.Items {
		if c.doc.Items[i].UID == uid {
			idx = i
			break
		}
	}
	if idx < 0 {
		return fmt.Errorf("profile %s not found", uid)
	}

	current := c.doc.Items[idx]
	if err := c.writeFile(current.File, fetched.FileData); err != nil {
		return err
	}

	next := c.doc
	next.Items = append([]Item(nil), c.doc.Items...)
	current.Extra = fetched.Extra
	current.Updated = fetched.Updated
	next.Items[idx] = current

	if err := config.WriteYAML(c.indexPath, next); err != nil {
		return fmt.Errorf("failed to save profiles: %w", err)
	}
	c.doc = next
	return nil
}

func (c *Collection) writeFile(name, data string) error {
	if err := os.MkdirAll(c.dir, 0755); err != nil {
		return fmt.Errorf("failed to create profiles directory: %w", err)
	}
	if err := os.WriteFile(filepath.Join(c.dir, name), []byte(data), 0600); err != nil {
		return fmt.Errorf("failed to write profile file %s: %w", name, err)
	}
	return nil
}
