package hcl

import (
	"context"
	"fmt"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/vk/assetpipe/internal/config"
	"github.com/vk/assetpipe/internal/ctxlog"
	"github.com/zclconf/go-cty/cty"
)

// rootAttrs holds the top-level attributes. They are evaluated without
// variables because they define the variables for everything else.
type rootAttrs struct {
	SrcDir  string `hcl:"src_dir"`
	DistDir string `hcl:"dist_dir"`
	Notify  bool   `hcl:"notify"`
}

var blockNames = []string{"style", "markup", "script", "image", "server", "archive", "clean", "cache", "watch"}

func fileSchema() *hcl.BodySchema {
	schema := &hcl.BodySchema{
		Attributes: []hcl.AttributeSchema{
			{Name: "src_dir"},
			{Name: "dist_dir"},
			{Name: "notify"},
		},
	}
	for _, name := range blockNames {
		schema.Blocks = append(schema.Blocks, hcl.BlockHeaderSchema{Type: name})
	}
	return schema
}

// blockTargets maps each block type to the registry struct it populates.
func blockTargets(cfg *config.Config) map[string]any {
	return map[string]any{
		"style":   &cfg.Styles,
		"markup":  &cfg.Markup,
		"script":  &cfg.Scripts,
		"image":   &cfg.Images,
		"server":  &cfg.Server,
		"archive": &cfg.Archive,
		"clean":   &cfg.Clean,
		"cache":   &cfg.Cache,
		"watch":   &cfg.Watch,
	}
}

// Loader is the HCL-specific implementation of the config.Loader interface.
type Loader struct {
	converter *Converter
}

// NewLoader creates a new HCL configuration loader.
func NewLoader() *Loader {
	return &Loader{converter: NewConverter()}
}

// Load parses a single HCL project file and layers it over the defaults
// derived from its `src_dir` and `dist_dir` attributes.
func (l *Loader) Load(ctx context.Context, path string) (*config.Config, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("HCL loader started.", "path", path)

	parser := hclparse.NewParser()
	file, diags := parser.ParseHCLFile(path)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse HCL file %s: %w", path, diags)
	}

	content, diags := file.Body.Content(fileSchema())
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode HCL file %s: %w", path, diags)
	}

	var root rootAttrs
	if err := l.converter.DecodeBody(ctx, &root, content.Attributes, nil); err != nil {
		return nil, err
	}

	cfg := config.Defaults(root.SrcDir, root.DistDir)
	cfg.Notify = root.Notify

	evalCtx := &hcl.EvalContext{
		Variables: map[string]cty.Value{
			"src_dir":  cty.StringVal(cfg.SrcDir),
			"dist_dir": cty.StringVal(cfg.DistDir),
		},
	}

	targets := blockTargets(cfg)
	for _, block := range content.Blocks {
		attrs, diags := block.Body.JustAttributes()
		if diags.HasErrors() {
			return nil, fmt.Errorf("failed to read %q block: %w", block.Type, diags)
		}
		if err := l.converter.DecodeBody(ctx, targets[block.Type], attrs, evalCtx); err != nil {
			return nil, fmt.Errorf("%q block: %w", block.Type, err)
		}
		logger.Debug("Decoded configuration block.", "block", block.Type, "attributes", len(attrs))
	}

	logger.Debug("HCL loading complete.", "blocks", len(content.Blocks))
	return cfg, nil
}
