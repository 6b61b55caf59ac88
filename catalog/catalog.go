// Package catalog reads and patches the JSON hotel catalog on the master's
// disk. Writes are best effort: the workers hold the live state and the
// file only seeds the next start-up.
package catalog

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"github.com/pkg/errors"

	"booking/entities"
)

var ErrUnknownHotel = errors.New("hotel not in catalog")

type document struct {
	Hotels []entities.Hotel `json:"hotels"`
}

// File is a catalog stored at path. Methods are safe for concurrent use.
type File struct {
	path string
	mu   sync.Mutex
}

func New(path string) *File {
	return &File{path: path}
}

func (f *File) Path() string {
	return f.path
}

// Load returns every hotel in the file. A missing file is an empty catalog.
func (f *File) Load() ([]entities.Hotel, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.loadLocked()
}

func (f *File) loadLocked() ([]entities.Hotel, error) {
	data, err := os.ReadFile(f.path)
	if errors.Is(err, os.ErrNotExist) {
		return []entities.Hotel{}, nil
	}
	if err != nil {
		return nil, errors.Wrapf(err, "read catalog %s", f.path)
	}
	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, errors.Wrapf(err, "decode catalog %s", f.path)
	}
	for i := range doc.Hotels {
		doc.Hotels[i].Normalize()
	}
	if doc.Hotels == nil {
		doc.Hotels = []entities.Hotel{}
	}
	return doc.Hotels, nil
}

// Save replaces the file contents. The new file is written next to the old
// one and renamed over it.
func (f *File) Save(hotels []entities.Hotel) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.saveLocked(hotels)
}

func (f *File) saveLocked(hotels []entities.Hotel) error {
	data, err := json.MarshalIndent(document{Hotels: hotels}, "", "  ")
	if err != nil {
		return errors.Wrap(err, "encode catalog")
	}
	tmp, err := os.CreateTemp(filepath.Dir(f.path), filepath.Base(f.path)+".*")
	if err != nil {
		return errors.Wrap(err, "create temp catalog")
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return errors.Wrap(err, "write temp catalog")
	}
	if err := tmp.Close(); err != nil {
		return errors.Wrap(err, "close temp catalog")
	}
	return errors.Wrap(os.Rename(tmp.Name(), f.path), "replace catalog")
}

// Append adds h at the end of the catalog.
func (f *File) Append(h entities.Hotel) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	hotels, err := f.loadLocked()
	if err != nil {
		return err
	}
	h.Normalize()
	return f.saveLocked(append(hotels, h))
}

// Update applies fn to the hotel named name and writes the result back.
func (f *File) Update(name string, fn func(*entities.Hotel)) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	hotels, err := f.loadLocked()
	if err != nil {
		return err
	}
	for i := range hotels {
		if hotels[i].HotelName == name {
			fn(&hotels[i])
			return f.saveLocked(hotels)
		}
	}
	return errors.Wrap(ErrUnknownHotel, name)
}
