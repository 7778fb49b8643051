// Package corpus loads the HR document corpus from disk. Documents are
// markdown files under a configured directory tree; the subdirectory a file
// lives in determines its category (policies → policy, benefits, payroll,
// onboarding, anything else → general). A company_info.json at the corpus
// root supplies the company name surfaced in answers.
package corpus

import (
	"encoding/json"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// DefaultDir is the corpus root used when HRFAQ_CORPUS_DIR is unset.
const DefaultDir = "company_data"

// DefaultCompany is the fallback company name when company_info.json is
// absent or unreadable.
const DefaultCompany = "TechCorp Solutions"

// Document is one markdown source file from the corpus.
type Document struct {
	// ID is the slash-separated path relative to the corpus root.
	// Stable across rebuilds so chunk IDs stay deterministic.
	ID string

	// Title is the first level-1 heading, or the file stem if none.
	Title string

	// Category is derived from the directory the file lives in.
	Category string

	// Text is the full markdown content.
	Text string
}

// LoadDir walks dir and loads every *.md file into a Document. Files that
// cannot be read are logged and skipped — a single bad file never aborts
// the load. Results are in lexical path order, so repeated loads of the
// same tree produce the same slice.
func LoadDir(dir string, log *slog.Logger) ([]Document, error) {
	if log == nil {
		log = slog.Default()
	}

	var docs []Document
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == dir {
				return err
			}
			log.Warn("corpus: skipping unreadable entry",
				slog.String("path", path),
				slog.String("error", err.Error()),
			)
			return nil
		}
		if d.IsDir() || !strings.HasSuffix(strings.ToLower(d.Name()), ".md") {
			return nil
		}

		data, readErr := os.ReadFile(path)
		if readErr != nil {
			log.Warn("corpus: skipping unreadable document",
				slog.String("path", path),
				slog.String("error", readErr.Error()),
			)
			return nil
		}

		rel, relErr := filepath.Rel(dir, path)
		if relErr != nil {
			rel = path
		}
		rel = filepath.ToSlash(rel)

		text := string(data)
		docs = append(docs, Document{
			ID:       rel,
			Title:    titleOf(text, d.Name()),
			Category: categoryOf(rel),
			Text:     text,
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("corpus: walking %s: %w", dir, err)
	}

	log.Info("corpus: loaded documents",
		slog.String("dir", dir),
		slog.Int("count", len(docs)),
	)
	return docs, nil
}

// LoadCompanyName reads company_info.json from the corpus root.
// Missing or malformed files fall back to DefaultCompany.
func LoadCompanyName(dir string) string {
	data, err := os.ReadFile(filepath.Join(dir, "company_info.json"))
	if err != nil {
		return DefaultCompany
	}
	var info struct {
		CompanyName string `json:"company_name"`
	}
	if err := json.Unmarshal(data, &info); err != nil || info.CompanyName == "" {
		return DefaultCompany
	}
	return info.CompanyName
}

// titleOf returns the first "# " heading in text, or the file stem.
func titleOf(text, filename string) string {
	for _, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "# ") {
			return strings.TrimSpace(trimmed[2:])
		}
	}
	return strings.TrimSuffix(filename, filepath.Ext(filename))
}

// categoryOf maps a corpus-relative path to a document category.
func categoryOf(rel string) string {
	lower := strings.ToLower(rel)
	switch {
	case strings.Contains(lower, "policies"):
		return "policy"
	case strings.Contains(lower, "benefits"):
		return "benefits"
	case strings.Contains(lower, "payroll"):
		return "payroll"
	case strings.Contains(lower, "onboarding"):
		return "onboarding"
	default:
		return "general"
	}
}
