package searchdb

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"rummage/config"
	"rummage/lexer"
	"rummage/logger"
)

const IndexingBatchSize = 100

// TFIDFIndex ranks documents by summed tf-idf over the query terms. The
// whole model lives in memory and persists as a single JSON file.
type TFIDFIndex struct {
	mu        sync.RWMutex
	indexPath string
	logger    logger.Logger
	model     model
	dirty     bool
}

type model struct {
	// Docs maps a file path to its term statistics.
	Docs map[string]*docStats `json:"docs"`
	// DocFreq maps a term to the number of documents containing it.
	DocFreq map[string]int `json:"doc_freq"`
}

type docStats struct {
	TermFreq  map[string]int `json:"term_freq"`
	TermCount int            `json:"term_count"`
	Name      string         `json:"name"`
	Size      int64          `json:"size"`
	ModTime   time.Time      `json:"mod_time"`
}

func New(logger logger.Logger, cfg *config.Config) (*TFIDFIndex, error) {
	indexPath := filepath.Join(cfg.GetStoragePath(), cfg.GetIndexPath())
	if err := os.MkdirAll(filepath.Dir(indexPath), 0755); err != nil {
		logger.Error("failed to create index directory", "err", err.Error(), "path", indexPath)
		return nil, fmt.Errorf("failed to create index directory: %w", err)
	}

	index := &TFIDFIndex{
		indexPath: indexPath,
		logger:    logger,
		model: model{
			Docs:    make(map[string]*docStats),
			DocFreq: make(map[string]int),
		},
	}

	if err := index.load(); err != nil {
		logger.Error("could not load index", "err", err.Error(), "path", indexPath)
		return nil, err
	}

	return index, nil
}

func (t *TFIDFIndex) BuildIndex(documents []Document) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	for _, doc := range documents {
		if doc.Path == "" {
			return fmt.Errorf("document path cannot be empty")
		}
		t.removeLocked(doc.Path)

		tokens := lexer.Tokens(doc.Content)
		tokens = append(tokens, lexer.Tokens(doc.Name)...)

		stats := &docStats{
			TermFreq:  make(map[string]int),
			TermCount: len(tokens),
			Name:      doc.Name,
			Size:      doc.Size,
			ModTime:   doc.ModTime,
		}
		for _, token := range tokens {
			stats.TermFreq[token]++
		}
		for term := range stats.TermFreq {
			t.model.DocFreq[term]++
		}
		t.model.Docs[doc.Path] = stats
	}

	t.dirty = true
	return nil
}

func (t *TFIDFIndex) DeleteDocuments(paths []string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	for _, path := range paths {
		t.removeLocked(path)
	}

	t.dirty = true
	return nil
}

// removeLocked rolls a document's contribution out of the document
// frequencies. Caller must hold the write lock.
func (t *TFIDFIndex) removeLocked(path string) {
	stats, ok := t.model.Docs[path]
	if !ok {
		return
	}
	for term := range stats.TermFreq {
		t.model.DocFreq[term]--
		if t.model.DocFreq[term] <= 0 {
			delete(t.model.DocFreq, term)
		}
	}
	delete(t.model.Docs, path)
}

func (t *TFIDFIndex) Search(queryString string, limit int, offset int) (*Response, error) {
	start := time.Now()

	tokens := lexer.Tokens(queryString)

	t.mu.RLock()
	ranked := make([]Pair, 0, len(t.model.Docs))
	for path, stats := range t.model.Docs {
		rank := 0.0
		for _, token := range tokens {
			rank += t.tf(token, stats) * t.idf(token)
		}
		if rank > 0 {
			ranked = append(ranked, Pair{Path: path, Rank: rank})
		}
	}
	t.mu.RUnlock()

	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].Rank != ranked[j].Rank {
			return ranked[i].Rank > ranked[j].Rank
		}
		return ranked[i].Path < ranked[j].Path
	})

	total := uint64(len(ranked))
	if offset > len(ranked) {
		offset = len(ranked)
	}
	ranked = ranked[offset:]
	if limit >= 0 && limit < len(ranked) {
		ranked = ranked[:limit]
	}

	return &Response{
		Pairs:      ranked,
		Total:      total,
		SearchTime: time.Since(start).String(),
	}, nil
}

// tf is a term's frequency within one document, normalized by document
// length. Caller must hold at least the read lock.
func (t *TFIDFIndex) tf(term string, stats *docStats) float64 {
	if stats.TermCount == 0 {
		return 0
	}
	return float64(stats.TermFreq[term]) / float64(stats.TermCount)
}

// idf dampens terms that appear in most of the corpus. Terms that appear
// nowhere get the same treatment as terms that appear everywhere.
func (t *TFIDFIndex) idf(term string) float64 {
	n := float64(len(t.model.Docs))
	m := math.Max(float64(t.model.DocFreq[term]), 1)
	return math.Log10(n / m)
}

func (t *TFIDFIndex) GetDocCount() (uint64, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return uint64(len(t.model.Docs)), nil
}

// Save writes the model to disk atomically via a temp file rename.
func (t *TFIDFIndex) Save() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	data, err := json.Marshal(t.model)
	if err != nil {
		t.logger.Error("could not serialize index", "err", err.Error())
		return fmt.Errorf("could not serialize index: %w", err)
	}

	tmpPath := t.indexPath + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0644); err != nil {
		t.logger.Error("could not write index file", "err", err.Error(), "path", tmpPath)
		return fmt.Errorf("could not write index file: %w", err)
	}
	if err := os.Rename(tmpPath, t.indexPath); err != nil {
		t.logger.Error("could not replace index file", "err", err.Error(), "path", t.indexPath)
		return fmt.Errorf("could not replace index file: %w", err)
	}

	t.dirty = false
	return nil
}

func (t *TFIDFIndex) Close() error {
	t.mu.RLock()
	dirty := t.dirty
	t.mu.RUnlock()

	if dirty {
		return t.Save()
	}
	return nil
}

func (t *TFIDFIndex) load() error {
	data, err := os.ReadFile(t.indexPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("could not read index file %s: %w", t.indexPath, err)
	}

	var m model
	if err := json.Unmarshal(data, &m); err != nil {
		return fmt.Errorf("could not parse index file %s: %w", t.indexPath, err)
	}
	if m.Docs == nil {
		m.Docs = make(map[string]*docStats)
	}
	if m.DocFreq == nil {
		m.DocFreq = make(map[string]int)
	}

	t.model = m
	t.logger.Info("loaded index", "path", t.indexPath, "documents", len(m.Docs))
	return nil
}
