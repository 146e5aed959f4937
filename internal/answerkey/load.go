package answerkey

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/pavelanni/pollscan/internal/model"
)

// Load reads answer-key files into a single directory. CSV and YAML files
// may be mixed; polls keep the order they first appear in across files.
func Load(paths ...string) (*Directory, error) {
	dir := NewDirectory()
	for _, path := range paths {
		var err error
		switch strings.ToLower(filepath.Ext(path)) {
		case ".csv":
			err = loadCSV(dir, path)
		case ".yaml", ".yml":
			err = loadYAML(dir, path)
		default:
			err = fmt.Errorf("unsupported answer-key format %q", filepath.Ext(path))
		}
		if err != nil {
			return nil, fmt.Errorf("load answer keys %s: %w", path, err)
		}
	}
	return dir, nil
}

// loadCSV reads rows of the form: poll name, question, answers. Accepted
// answer alternatives are separated by ';' within the answers cell.
func loadCSV(dir *Directory, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	records, err := r.ReadAll()
	if err != nil {
		return fmt.Errorf("read csv: %w", err)
	}
	for i, rec := range records {
		if len(rec) < 3 {
			return fmt.Errorf("row %d: want 3 fields (poll, question, answers), got %d", i+1, len(rec))
		}
		poll := strings.TrimSpace(rec[0])
		if poll == "" {
			return fmt.Errorf("row %d: empty poll name", i+1)
		}
		question := model.NewQuestion(rec[1])
		answers := splitAlternatives(rec[2])
		dir.Add(poll, question, answers)
	}
	return nil
}

type yamlKeyFile struct {
	Polls []struct {
		Name      string `yaml:"name"`
		Questions []struct {
			Text    string   `yaml:"text"`
			Answers []string `yaml:"answers"`
		} `yaml:"questions"`
	} `yaml:"polls"`
}

// loadYAML reads a document of the form:
//
//	polls:
//	  - name: attendance poll
//	    questions:
//	      - text: Are you present
//	        answers: ["yes"]
func loadYAML(dir *Directory, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	var file yamlKeyFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("parse yaml: %w", err)
	}
	for _, p := range file.Polls {
		if strings.TrimSpace(p.Name) == "" {
			return fmt.Errorf("poll with empty name")
		}
		for _, q := range p.Questions {
			dir.Add(strings.TrimSpace(p.Name), model.NewQuestion(q.Text), []model.Answer{model.NewAnswer(q.Answers)})
		}
	}
	return nil
}

func splitAlternatives(s string) []model.Answer {
	parts := strings.Split(s, ";")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return []model.Answer{model.NewAnswer(parts)}
}
