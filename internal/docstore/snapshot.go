package docstore

import (
	"encoding/json"
	"io"
	"os"

	"github.com/cockroachdb/errors"
	"github.com/klauspost/compress/zstd"
)

// SnapshotMagic prefixes every snapshot file.
var SnapshotMagic = []byte("DOCSTOR1")

type snapshot struct {
	Templates []*Template `json:"templates"`
	Indices   []*Index    `json:"indices"`
}

// WriteSnapshot writes the whole store as zstd-compressed JSON.
func (s *Store) WriteSnapshot(w io.Writer) error {
	s.mu.RLock()
	snap := snapshot{}
	for _, t := range s.templates {
		snap.Templates = append(snap.Templates, t)
	}
	for _, idx := range s.indices {
		snap.Indices = append(snap.Indices, idx)
	}
	raw, err := json.Marshal(snap)
	s.mu.RUnlock()
	if err != nil {
		return errors.Wrap(err, "encode snapshot")
	}

	if _, err := w.Write(SnapshotMagic); err != nil {
		return err
	}
	enc, err := zstd.NewWriter(w)
	if err != nil {
		return err
	}
	if _, err := enc.Write(raw); err != nil {
		enc.Close()
		return err
	}
	return enc.Close()
}

// ReadSnapshot replaces the store contents with a snapshot.
func (s *Store) ReadSnapshot(r io.Reader) error {
	magic := make([]byte, len(SnapshotMagic))
	if _, err := io.ReadFull(r, magic); err != nil {
		return errors.Wrap(err, "read snapshot header")
	}
	if string(magic) != string(SnapshotMagic) {
		return errors.New("not a docstore snapshot")
	}

	dec, err := zstd.NewReader(r)
	if err != nil {
		return err
	}
	defer dec.Close()

	var snap snapshot
	if err := json.NewDecoder(dec).Decode(&snap); err != nil {
		return errors.Wrap(err, "decode snapshot")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.templates = make(map[string]*Template, len(snap.Templates))
	for _, t := range snap.Templates {
		s.templates[t.Name] = t
	}
	s.indices = make(map[string]*Index, len(snap.Indices))
	for _, idx := range snap.Indices {
		if idx.Docs == nil {
			idx.Docs = make(map[string]*Document)
		}
		s.indices[idx.Name] = idx
	}
	return nil
}

// SaveFile writes a snapshot to path, replacing it atomically.
func (s *Store) SaveFile(path string) error {
	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return err
	}
	if err := s.WriteSnapshot(f); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, path)
}

// LoadFile reads a snapshot from path. A missing file leaves the store empty.
func (s *Store) LoadFile(path string) error {
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}
	defer f.Close()
	return s.ReadSnapshot(f)
}
