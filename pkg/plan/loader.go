package plan

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/arthur-debert/unwind/pkg/errors"
	"github.com/arthur-debert/unwind/pkg/logging"
	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Load reads and validates a plan file. The format is chosen by file
// extension: .toml, .yaml, or .yml. A plan without an explicit name
// is named after the file.
func Load(path string) (*Plan, error) {
	logger := logging.GetLogger("plan")

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, errors.ErrConfigLoad, "cannot read plan file %s", path)
	}

	var p Plan
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".toml":
		err = toml.Unmarshal(data, &p)
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &p)
	default:
		return nil, errors.Newf(errors.ErrInvalidInput, "unsupported plan format %q", ext)
	}
	if err != nil {
		return nil, errors.Wrapf(err, errors.ErrConfigParse, "cannot parse plan file %s", path)
	}

	if p.Name == "" {
		p.Name = strings.TrimSuffix(filepath.Base(path), ext)
	}

	if err := p.Validate(); err != nil {
		return nil, err
	}

	logger.Debug().
		Str("plan", p.Name).
		Str("path", path).
		Int("steps", len(p.Steps)).
		Msg("Plan loaded")

	return &p, nil
}
