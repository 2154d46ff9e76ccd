package indexer

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/Adithya-Monish-Kumar-K/Product-Search-Engine/internal/indexstore"
)

// Writer persists built indexes as the JSON files indexstore.Load reads.
type Writer struct {
	dataDir string
}

func NewWriter(dataDir string) *Writer {
	return &Writer{dataDir: dataDir}
}

// Write stores every index of data plus the catalog. Each file is written to
// a .tmp sibling first and renamed on success.
func (w *Writer) Write(data indexstore.Data, catalogFile string) error {
	if err := os.MkdirAll(w.dataDir, 0o755); err != nil {
		return fmt.Errorf("creating index data directory: %w", err)
	}
	if err := w.writeJSON(indexstore.TitleIndexFile, data.Title); err != nil {
		return err
	}
	if err := w.writeJSON(indexstore.DescriptionIndexFile, data.Description); err != nil {
		return err
	}
	if err := w.writeJSON(indexstore.ReviewsIndexFile, data.Reviews); err != nil {
		return err
	}
	for name, idx := range data.Features {
		if err := w.writeJSON(indexstore.FeatureIndexFile(name), sortedFeature(idx)); err != nil {
			return err
		}
	}
	return w.writeCatalog(catalogFile, data.Documents)
}

// WriteSynonyms stores the origin synonym table under name.
func (w *Writer) WriteSynonyms(name string, synonyms indexstore.Synonyms) error {
	if err := os.MkdirAll(w.dataDir, 0o755); err != nil {
		return fmt.Errorf("creating index data directory: %w", err)
	}
	return w.writeJSON(name, synonyms)
}

func sortedFeature(idx indexstore.FeatureIndex) map[string][]string {
	out := make(map[string][]string, len(idx))
	for value, set := range idx {
		urls := make([]string, 0, len(set))
		for url := range set {
			urls = append(urls, url)
		}
		sort.Strings(urls)
		out[value] = urls
	}
	return out
}

func (w *Writer) writeJSON(name string, v any) error {
	return w.atomicWrite(name, func(bw *bufio.Writer) error {
		enc := json.NewEncoder(bw)
		enc.SetIndent("", "  ")
		enc.SetEscapeHTML(false)
		return enc.Encode(v)
	})
}

func (w *Writer) writeCatalog(name string, docs []indexstore.Document) error {
	return w.atomicWrite(name, func(bw *bufio.Writer) error {
		enc := json.NewEncoder(bw)
		enc.SetEscapeHTML(false)
		for i := range docs {
			if err := enc.Encode(&docs[i]); err != nil {
				return err
			}
		}
		return nil
	})
}

func (w *Writer) atomicWrite(name string, fill func(*bufio.Writer) error) error {
	finalPath := filepath.Join(w.dataDir, name)
	tmpPath := finalPath + ".tmp"
	f, err := os.Create(tmpPath)
	if err != nil {
		return fmt.Errorf("creating %s: %w", tmpPath, err)
	}
	bw := bufio.NewWriter(f)
	if err := fill(bw); err != nil {
		f.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("encoding %s: %w", name, err)
	}
	if err := bw.Flush(); err != nil {
		f.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("flushing %s: %w", name, err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("syncing %s: %w", name, err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("closing %s: %w", name, err)
	}
	if err := os.Rename(tmpPath, finalPath); err != nil {
		return fmt.Errorf("renaming %s: %w", name, err)
	}
	return nil
}
