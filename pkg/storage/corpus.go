package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/verdictlabs/verdict/pkg/domain/knowledge"
	"gopkg.in/yaml.v3"
)

// corpusFile is the on-disk shape of one corpus YAML document.
type corpusFile struct {
	Atoms []knowledge.Atom `yaml:"atoms"`
}

// ReadAtomFiles loads every YAML document under dir, in file name order so
// the corpus load order is deterministic. Records are returned unvalidated;
// shape validation belongs to knowledge.BuildCorpus.
func ReadAtomFiles(dir string) ([]knowledge.Atom, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read corpus directory %s: %w", dir, err)
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if strings.HasSuffix(name, ".yaml") || strings.HasSuffix(name, ".yml") {
			names = append(names, name)
		}
	}
	sort.Strings(names)

	var atoms []knowledge.Atom
	for _, name := range names {
		path := filepath.Join(dir, name)
		// #nosec G304 -- Path comes from listing the corpus directory
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read corpus file %s: %w", name, err)
		}

		var f corpusFile
		if err := yaml.Unmarshal(data, &f); err != nil {
			return nil, fmt.Errorf("failed to parse corpus file %s: %w", name, err)
		}
		atoms = append(atoms, f.Atoms...)
	}
	return atoms, nil
}

// LoadCorpus reads and validates the corpus in one step.
func LoadCorpus(dir string, mode knowledge.ValidationMode) (*knowledge.Corpus, []error, error) {
	atoms, err := ReadAtomFiles(dir)
	if err != nil {
		return nil, nil, err
	}
	return knowledge.BuildCorpus(atoms, mode)
}
