// Package ingest loads documents into the retrieval index from local files
// or the built-in sample corpus.
package ingest

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/sweetpotato0/ragguard/pkg/logging"
	"github.com/sweetpotato0/ragguard/rag/document"
	"github.com/sweetpotato0/ragguard/rag/preprocess"
)

// Stats summarizes a loaded document set.
type Stats struct {
	Count      int
	TotalChars int
	AvgChars   int
	Sources    []string
}

// LoadDir reads .md, .txt and .html files under dir (recursively) and returns
// them as documents. HTML is converted to plain text and all content goes
// through the standard cleanup pass. The file name becomes the source label
// unless front matter style metadata overrides it later.
func LoadDir(dir string) ([]document.Document, error) {
	logger := logging.WithComponent("ingest")

	var docs []document.Document
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}

		ext := strings.ToLower(filepath.Ext(path))
		switch ext {
		case ".md", ".txt", ".html", ".htm":
		default:
			return nil
		}

		raw, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read %s: %w", path, err)
		}

		content := string(raw)
		if ext == ".html" || ext == ".htm" {
			text, err := preprocess.HTMLToText(content)
			if err != nil {
				logger.Warn("skipping unparseable html file", "path", path, "error", err)
				return nil
			}
			content = text
		}
		content = preprocess.Preprocess(content)
		if strings.TrimSpace(content) == "" {
			return nil
		}

		name := d.Name()
		docs = append(docs, document.Document{
			Title:   strings.TrimSuffix(name, filepath.Ext(name)),
			Content: content,
			Metadata: map[string]any{
				"source": name,
				"path":   path,
				"type":   strings.TrimPrefix(ext, "."),
			},
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", dir, err)
	}

	logger.Info("loaded documents from directory", "dir", dir, "count", len(docs))
	return docs, nil
}

// DocumentStats computes counts, sizes and the distinct source labels of a
// document set.
func DocumentStats(docs []document.Document) Stats {
	stats := Stats{Count: len(docs)}
	if len(docs) == 0 {
		return stats
	}

	seen := make(map[string]bool)
	for _, doc := range docs {
		stats.TotalChars += len(doc.Content)
		source := doc.Source()
		if !seen[source] {
			seen[source] = true
			stats.Sources = append(stats.Sources, source)
		}
	}
	stats.AvgChars = stats.TotalChars / len(docs)
	return stats
}
