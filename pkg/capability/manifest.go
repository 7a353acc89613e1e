package capability

import (
	"errors"
	"io/fs"
	"path"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/goliatone/go-cardgen/pkg/model"
)

const (
	pluginsDir   = "plugins"
	templatesDir = "templates"
	metadataFile = "metadata.yml"
)

// Optional fields are pointers so an absent declaration can be told apart
// from an empty one.
type pluginDocument struct {
	ID       string    `yaml:"id"`
	Name     string    `yaml:"name"`
	Category string    `yaml:"category"`
	Supports *[]string `yaml:"supports"`
}

type templateDocument struct {
	ID            string           `yaml:"id"`
	Name          string           `yaml:"name"`
	Requires      []string         `yaml:"requires"`
	Compatibility *map[string]bool `yaml:"compatibility"`
	Readme        struct {
		Compatibility map[string]bool `yaml:"compatibility"`
	} `yaml:"readme"`
}

// LoadFS reads every metadata.yml under plugins/ and templates/ and builds a
// registry from them.
func LoadFS(fsys fs.FS) (*Registry, error) {
	if fsys == nil {
		return nil, model.Errorf(model.KindMetadataLoad, "", "filesystem is required")
	}

	pluginFiles, err := metadataFiles(fsys, pluginsDir)
	if err != nil {
		return nil, err
	}
	templateFiles, err := metadataFiles(fsys, templatesDir)
	if err != nil {
		return nil, err
	}

	plugins := make([]model.PluginMetadata, 0, len(pluginFiles))
	for _, file := range pluginFiles {
		meta, err := decodePlugin(fsys, file)
		if err != nil {
			return nil, err
		}
		plugins = append(plugins, meta)
	}

	templates := make([]model.TemplateMetadata, 0, len(templateFiles))
	for _, file := range templateFiles {
		meta, err := decodeTemplate(fsys, file)
		if err != nil {
			return nil, err
		}
		templates = append(templates, meta)
	}

	return New(plugins, templates)
}

func metadataFiles(fsys fs.FS, dir string) ([]string, error) {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, model.NewError(model.KindMetadataLoad, dir, "read directory", err)
	}
	files := make([]string, 0, len(entries))
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		file := path.Join(dir, entry.Name(), metadataFile)
		if _, err := fs.Stat(fsys, file); err != nil {
			return nil, model.NewError(model.KindMetadataLoad, file, "missing metadata", err)
		}
		files = append(files, file)
	}
	sort.Strings(files)
	return files, nil
}

func decodePlugin(fsys fs.FS, file string) (model.PluginMetadata, error) {
	var doc pluginDocument
	if err := decodeFile(fsys, file, &doc); err != nil {
		return model.PluginMetadata{}, err
	}
	id := idFor(doc.ID, file)
	if doc.Supports == nil {
		return model.PluginMetadata{}, model.Errorf(model.KindMetadataLoad, id, "%s: supports is required", file)
	}

	modes := make([]model.Mode, 0, len(*doc.Supports))
	for _, raw := range *doc.Supports {
		mode, err := model.ParseMode(raw)
		if err != nil {
			return model.PluginMetadata{}, model.NewError(model.KindMetadataLoad, id, file, err)
		}
		modes = append(modes, mode)
	}

	return model.PluginMetadata{
		ID:             id,
		Name:           fallback(doc.Name, id),
		Category:       doc.Category,
		SupportedModes: model.NewModeSet(modes...),
	}, nil
}

func decodeTemplate(fsys fs.FS, file string) (model.TemplateMetadata, error) {
	var doc templateDocument
	if err := decodeFile(fsys, file, &doc); err != nil {
		return model.TemplateMetadata{}, err
	}
	id := idFor(doc.ID, file)
	if doc.Compatibility == nil {
		return model.TemplateMetadata{}, model.Errorf(model.KindMetadataLoad, id, "%s: compatibility is required", file)
	}

	requires := make([]model.Mode, 0, len(doc.Requires))
	for _, raw := range doc.Requires {
		mode, err := model.ParseMode(raw)
		if err != nil {
			return model.TemplateMetadata{}, model.NewError(model.KindMetadataLoad, id, file, err)
		}
		requires = append(requires, mode)
	}

	compatibility := make(map[string]bool, len(*doc.Compatibility))
	for plugin, ok := range *doc.Compatibility {
		compatibility[plugin] = ok
	}

	return model.TemplateMetadata{
		ID:            id,
		Name:          fallback(doc.Name, id),
		Compatibility: compatibility,
		Readme:        doc.Readme.Compatibility,
		Requires:      requires,
	}, nil
}

func decodeFile(fsys fs.FS, file string, out any) error {
	data, err := fs.ReadFile(fsys, file)
	if err != nil {
		return model.NewError(model.KindMetadataLoad, file, "read", err)
	}
	if strings.TrimSpace(string(data)) == "" {
		return model.Errorf(model.KindMetadataLoad, file, "empty metadata")
	}
	if err := yaml.Unmarshal(data, out); err != nil {
		return model.NewError(model.KindMetadataLoad, file, "decode", err)
	}
	return nil
}

// idFor prefers an explicit id and falls back to the directory name.
func idFor(declared, file string) string {
	if id := strings.TrimSpace(declared); id != "" {
		return id
	}
	return path.Base(path.Dir(file))
}

func fallback(value, def string) string {
	if strings.TrimSpace(value) == "" {
		return def
	}
	return value
}
