package workspace

import (
	"errors"
	"strings"
	"sync"

	"github.com/EffortlessMetrics/perl-lsp-sub018/internal/dcache"
	"github.com/EffortlessMetrics/perl-lsp-sub018/internal/diag"
	"github.com/EffortlessMetrics/perl-lsp-sub018/internal/increment"
	"github.com/EffortlessMetrics/perl-lsp-sub018/internal/index"
	"github.com/EffortlessMetrics/perl-lsp-sub018/internal/parser"
	"github.com/EffortlessMetrics/perl-lsp-sub018/internal/project"
	"github.com/EffortlessMetrics/perl-lsp-sub018/internal/sema"
	"github.com/EffortlessMetrics/perl-lsp-sub018/internal/source"
)

var (
	// ErrStaleVersion rejects a change whose version is not newer than
	// the document's current one. The edit batch is dropped.
	ErrStaleVersion = errors.New("stale document version")
	// ErrUnknownDocument rejects a change for a document never opened.
	ErrUnknownDocument = errors.New("document is not open")
	// ErrBadEdit rejects an edit batch that does not fit the current
	// content (out of bounds, overlapping, or out of order).
	ErrBadEdit = errors.New("edit batch does not match document content")
)

// TextEdit is one byte-range replacement against the current document
// content. Batches are applied in ascending, non-overlapping order.
type TextEdit struct {
	Start  uint32
	OldEnd uint32
	Text   string
}

// Diagnostics is a computed diagnostic set tagged with the document
// version it was computed against.
type Diagnostics struct {
	Version int32
	Items   []diag.Diagnostic
}

// document is the live state of one open file.
type document struct {
	id      source.FileID
	version int32
	size    uint32
	res     parser.Result
	table   *sema.Table
	diags   Diagnostics
	reuse   increment.ReuseStats
}

// Workspace owns the open documents, their parse and analysis state, and
// the symbol index. Per-document operations are serialized in caller
// order; the index itself also tolerates concurrent readers.
type Workspace struct {
	mu   sync.Mutex
	fset *source.FileSet
	ix   *index.Index
	docs map[string]*document

	cache     *dcache.Cache
	cacheSalt project.Digest
	ignore    func(rel string) bool
	progress  func(ScanEvent)
}

func New(fset *source.FileSet, ix *index.Index) *Workspace {
	if fset == nil {
		fset = source.NewFileSet()
	}
	if ix == nil {
		ix = index.New()
	}
	return &Workspace{
		fset: fset,
		ix:   ix,
		docs: make(map[string]*document),
	}
}

func (w *Workspace) Index() *index.Index      { return w.ix }
func (w *Workspace) FileSet() *source.FileSet { return w.fset }

// Open starts tracking a document. Re-opening an already open document is
// a full resync: the content replaces whatever was there, keeping the
// file identity stable.
func (w *Workspace) Open(path string, version int32, content []byte) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	doc := w.docs[path]
	var file *source.File
	if doc != nil {
		file = w.fset.Replace(doc.id, content)
	} else {
		id := w.fset.Add(path, content, 0)
		file = w.fset.Get(id)
		doc = &document{id: id}
		w.docs[path] = doc
	}
	doc.version = version
	w.refreshLocked(path, doc, file, nil, 0, nil)
	return nil
}

// Change applies an edit batch at the given version. A version at or
// below the current one is stale and dropped with ErrStaleVersion.
func (w *Workspace) Change(path string, version int32, edits []TextEdit) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	doc := w.docs[path]
	if doc == nil {
		return ErrUnknownDocument
	}
	if version <= doc.version {
		return ErrStaleVersion
	}

	old := w.fset.Get(doc.id)
	newContent, incEdits, err := applyTextEdits(string(old.Content), edits)
	if err != nil {
		return err
	}
	file := w.fset.Replace(doc.id, []byte(newContent))

	oldRes := doc.res
	oldSize := doc.size
	doc.version = version
	w.refreshLocked(path, doc, file, &oldRes, oldSize, incEdits)
	return nil
}

// Close stops tracking a document. Closing an unknown document is a
// no-op. Index entries stay; the file is still part of the workspace.
func (w *Workspace) Close(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	delete(w.docs, path)
}

// Diagnostics returns the last computed diagnostic set for the document,
// tagged with the version it belongs to.
func (w *Workspace) Diagnostics(path string) (Diagnostics, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	doc := w.docs[path]
	if doc == nil {
		return Diagnostics{}, false
	}
	return doc.diags, true
}

// Table returns the current semantic table of an open document.
func (w *Workspace) Table(path string) (*sema.Table, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	doc := w.docs[path]
	if doc == nil {
		return nil, false
	}
	return doc.table, true
}

// Result returns the current parse result of an open document.
func (w *Workspace) Result(path string) (parser.Result, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	doc := w.docs[path]
	if doc == nil {
		return parser.Result{}, false
	}
	return doc.res, true
}

// File returns the source file backing an open document.
func (w *Workspace) File(path string) (*source.File, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	doc := w.docs[path]
	if doc == nil {
		return nil, false
	}
	return w.fset.Get(doc.id), true
}

// Version returns the current version of an open document.
func (w *Workspace) Version(path string) (int32, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	doc := w.docs[path]
	if doc == nil {
		return 0, false
	}
	return doc.version, true
}

// ReuseStats reports how much of the last reparse was incremental.
func (w *Workspace) ReuseStats(path string) (increment.ReuseStats, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	doc := w.docs[path]
	if doc == nil {
		return increment.ReuseStats{}, false
	}
	return doc.reuse, true
}

// refreshLocked re-derives the parse, analysis, diagnostics, and index
// entries for a document after its content changed.
func (w *Workspace) refreshLocked(path string, doc *document, file *source.File, old *parser.Result, oldSize uint32, edits []increment.Edit) {
	parseBag := diag.NewBag(256)
	opts := parser.Options{Reporter: diag.BagReporter{Bag: parseBag}}

	var res parser.Result
	var reuse increment.ReuseStats
	if old != nil {
		res, reuse = increment.Reparse(*old, file, oldSize, edits, opts)
	} else {
		res = parser.ParseFile(file, opts)
		reuse = increment.ReuseStats{
			ReusedBytes: 0,
			TotalBytes:  uint32(len(file.Content)),
			FullReparse: true,
		}
	}

	semaBag := diag.NewBag(256)
	table := sema.Analyze(file, res.Tree, sema.Options{Reporter: diag.BagReporter{Bag: semaBag}})

	merged := diag.NewBag(512)
	merged.Merge(res.Bag)
	merged.Merge(semaBag)
	merged.Sort()

	doc.res = res
	doc.table = table
	doc.size = uint32(len(file.Content))
	doc.reuse = reuse
	doc.diags = Diagnostics{Version: doc.version, Items: merged.Items()}

	w.ix.IndexFile(path, table)
}

// applyTextEdits builds the post-edit content and the matching edit batch
// in the incremental engine's coordinates.
func applyTextEdits(old string, edits []TextEdit) (string, []increment.Edit, error) {
	var sb strings.Builder
	var out []increment.Edit
	prev := uint32(0)
	var delta int64
	for _, e := range edits {
		if e.Start < prev || e.OldEnd < e.Start || e.OldEnd > uint32(len(old)) {
			return "", nil, ErrBadEdit
		}
		sb.WriteString(old[prev:e.Start])
		sb.WriteString(e.Text)
		newStart := int64(e.Start) + delta
		out = append(out, increment.Edit{
			Start:  e.Start,
			OldEnd: e.OldEnd,
			NewEnd: uint32(newStart + int64(len(e.Text))),
		})
		delta += int64(len(e.Text)) - int64(e.OldEnd-e.Start)
		prev = e.OldEnd
	}
	sb.WriteString(old[prev:])
	return sb.String(), out, nil
}
