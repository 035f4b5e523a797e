package plans

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type yamlFile struct {
	Plans []Plan `yaml:"plans"`
}

type yamlSource struct {
	read func() ([]byte, error)
}

// NewYAMLFileSource returns a Source reading plans from a YAML file on every Load.
//
//	plans:
//	  - id: free
//	    name: Free
//	    monthly_credits: 100
func NewYAMLFileSource(path string) Source {
	return &yamlSource{read: func() ([]byte, error) { return os.ReadFile(path) }}
}

// NewYAMLSource returns a Source parsing plans from YAML content.
func NewYAMLSource(content []byte) Source {
	data := bytes.Clone(content)
	return &yamlSource{read: func() ([]byte, error) { return data, nil }}
}

func (s *yamlSource) Load(ctx context.Context) (map[string]Plan, error) {
	if err := ctx.Err(); err != nil {
		return nil, errors.Join(ErrLoadCancelled, err)
	}

	data, err := s.read()
	if err != nil {
		return nil, errors.Join(ErrFailedToReadPlans, err)
	}

	var file yamlFile
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&file); err != nil {
		return nil, errors.Join(ErrFailedToParseYAML, err)
	}

	result := make(map[string]Plan, len(file.Plans))
	for _, p := range file.Plans {
		if _, ok := result[p.ID]; ok {
			return nil, errors.Join(ErrDuplicatePlan, fmt.Errorf("plan %q", p.ID))
		}
		result[p.ID] = p
	}
	return result, nil
}
