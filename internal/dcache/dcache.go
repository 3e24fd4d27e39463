package dcache

import (
	"encoding/hex"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/EffortlessMetrics/perl-lsp-sub018/internal/index"
	"github.com/EffortlessMetrics/perl-lsp-sub018/internal/sema"
	"github.com/EffortlessMetrics/perl-lsp-sub018/internal/source"
)

// schemaVersion invalidates every cached payload when the format changes.
const schemaVersion uint16 = 1

// Digest is a sha256 content hash, the cache key.
type Digest = [32]byte

// SymbolPayload is one package-visible definition in cacheable form.
type SymbolPayload struct {
	Name      string
	Qualified string
	Kind      uint8
	Package   string
	Start     uint32
	End       uint32
}

// RefPayload is one recorded reference in cacheable form.
type RefPayload struct {
	Name     string
	Kind     uint8
	Start    uint32
	End      uint32
	Resolved bool
}

// Payload holds everything the index needs about one file, so a cache hit
// skips the parse and analysis entirely. The cache is advisory: any miss
// or mismatch falls back to the full pipeline.
type Payload struct {
	Schema   uint16
	Path     string
	Packages []string
	Symbols  []SymbolPayload
	Refs     []RefPayload
	Deps     []string
}

// Cache is a per-file disk cache keyed by content hash.
type Cache struct {
	mu  sync.RWMutex
	dir string
}

// Open initializes the cache at $XDG_CACHE_HOME/<app> (or ~/.cache/<app>).
func Open(app string) (*Cache, error) {
	base := os.Getenv("XDG_CACHE_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, err
		}
		base = filepath.Join(home, ".cache")
	}
	dir := filepath.Join(base, app)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &Cache{dir: dir}, nil
}

// OpenAt initializes the cache at an explicit directory. Used by tests
// and the --cache-dir flag.
func OpenAt(dir string) (*Cache, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &Cache{dir: dir}, nil
}

func (c *Cache) pathFor(key Digest) string {
	return filepath.Join(c.dir, "files", hex.EncodeToString(key[:])+".mp")
}

// Put serializes a payload under the content hash. The write goes to a
// temp file first and lands with a rename, so readers never observe a
// torn payload.
func (c *Cache) Put(key Digest, payload *Payload) error {
	if c == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	payload.Schema = schemaVersion
	p := c.pathFor(key)
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return err
	}
	f, err := os.CreateTemp(filepath.Dir(p), "tmp-*")
	if err != nil {
		return err
	}
	defer os.Remove(f.Name())

	if err := msgpack.NewEncoder(f).Encode(payload); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	return os.Rename(f.Name(), p)
}

// Get loads the payload for a content hash. A missing file, a decode
// failure, or a schema mismatch all count as a miss, never an error the
// caller has to act on.
func (c *Cache) Get(key Digest, out *Payload) (bool, error) {
	if c == nil {
		return false, nil
	}
	c.mu.RLock()
	defer c.mu.RUnlock()

	f, err := os.Open(c.pathFor(key))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}
		return false, err
	}
	defer f.Close()

	if err := msgpack.NewDecoder(f).Decode(out); err != nil {
		return false, nil
	}
	if out.Schema != schemaVersion {
		return false, nil
	}
	return true, nil
}

// DropAll wipes the cache, for format changes or a --no-cache run.
func (c *Cache) DropAll() error {
	if c == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	old := c.dir + ".old-" + time.Now().Format("20060102150405")
	if err := os.Rename(c.dir, old); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}
	return os.RemoveAll(old)
}

// FromTable flattens an analysis result into a cacheable payload.
func FromTable(path string, tab *sema.Table) *Payload {
	data := index.DataFromTable(path, tab)
	p := &Payload{
		Schema:   schemaVersion,
		Path:     path,
		Packages: data.Packages,
		Deps:     data.Deps,
	}
	for _, e := range data.Entries {
		p.Symbols = append(p.Symbols, SymbolPayload{
			Name:      e.Name,
			Qualified: e.Qualified,
			Kind:      uint8(e.Kind),
			Package:   e.Package,
			Start:     e.Span.Start,
			End:       e.Span.End,
		})
	}
	for _, r := range data.Refs {
		p.Refs = append(p.Refs, refPayload(r, true))
	}
	for _, r := range data.Unresolved {
		p.Refs = append(p.Refs, refPayload(r, false))
	}
	return p
}

func refPayload(r index.RefEntry, resolved bool) RefPayload {
	return RefPayload{
		Name:     r.Name,
		Kind:     uint8(r.Kind),
		Start:    r.Span.Start,
		End:      r.Span.End,
		Resolved: resolved,
	}
}

// ToData rebuilds index data from a cached payload for the given file
// identity.
func (p *Payload) ToData(id source.FileID) index.FileData {
	var data index.FileData
	data.Packages = append(data.Packages, p.Packages...)
	data.Deps = append(data.Deps, p.Deps...)
	for _, s := range p.Symbols {
		data.Entries = append(data.Entries, index.Entry{
			File:      id,
			Path:      p.Path,
			Name:      s.Name,
			Qualified: s.Qualified,
			Kind:      sema.SymbolKind(s.Kind),
			Package:   s.Package,
			Span:      source.Span{File: id, Start: s.Start, End: s.End},
		})
	}
	for _, r := range p.Refs {
		re := index.RefEntry{
			File: id,
			Name: r.Name,
			Kind: sema.RefKind(r.Kind),
			Span: source.Span{File: id, Start: r.Start, End: r.End},
		}
		if r.Resolved {
			data.Refs = append(data.Refs, re)
		} else {
			data.Unresolved = append(data.Unresolved, re)
		}
	}
	return data
}
