package action

import (
	"bytes"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/gabriel-vasile/mimetype"

	"github.com/goliatone/go-cardgen/pkg/logger"
	"github.com/goliatone/go-cardgen/pkg/model"
	"github.com/goliatone/go-cardgen/pkg/options"
	"github.com/goliatone/go-cardgen/pkg/render"
	"github.com/goliatone/go-cardgen/pkg/source"
)

const defaultFilename = "github-metrics.svg"

// Runner executes one action invocation.
type Runner struct {
	// Engine builds a rendering engine over the chosen data source.
	Engine func(src source.Source) (*render.Engine, error)
	// LiveSource builds the non mocked data source.
	LiveSource func(token string) (source.Source, error)
	// Defaults fill inputs the environment does not set.
	Defaults  options.Raw
	Logger    logger.Logger
	Stdout    io.Writer
	Version   string
	WriteFile func(name string, data []byte) error
}

// Run reads inputs from environ, renders, then prints or writes the
// artifact.
func (r *Runner) Run(ctx context.Context, environ []string) error {
	log := r.Logger
	if log == nil {
		log = logger.Nop()
	}
	if r.Engine == nil {
		return fmt.Errorf("action: engine factory is required")
	}

	req, err := options.Normalize(options.Layer(Inputs(environ), r.Defaults))
	if err != nil {
		return err
	}
	if req.User == "" {
		owner, _, _ := strings.Cut(Repository(environ), "/")
		req.User = owner
	}
	if req.User == "" {
		return fmt.Errorf("action: no user input and %s is not set", RepositoryVar)
	}
	if req.Avatar == "" {
		req.Avatar = "https://github.com/" + req.User + ".png"
	}
	if req.Version == "" {
		req.Version = r.Version
	}

	runtime := req.Residual
	debug := options.Bool(runtime, "debug", false)
	if debug {
		log = log.With("user", req.User, "template", req.Template)
	}

	var src source.Source
	if options.Bool(runtime, "use_mocked_data", false) {
		src = source.NewMock()
	} else {
		if r.LiveSource == nil {
			return fmt.Errorf("action: live data source is not configured, set use_mocked_data")
		}
		src, err = r.LiveSource(options.String(runtime, "token", ""))
		if err != nil {
			return fmt.Errorf("action: build data source: %w", err)
		}
	}

	engine, err := r.Engine(src)
	if err != nil {
		return fmt.Errorf("action: build engine: %w", err)
	}
	result, err := engine.Render(ctx, req)
	if err != nil {
		return err
	}
	for _, p := range result.Plugins {
		if p.Err != nil {
			log.Warn("plugin omitted", "plugin", p.Name, "attempts", p.Attempts, "error", p.Err)
		} else if debug {
			log.Debug("plugin gathered", "plugin", p.Name, "attempts", p.Attempts)
		}
	}

	if options.Bool(runtime, "verify", false) {
		if err := Verify([]byte(result.Artifact)); err != nil {
			return model.NewError(model.KindRenderFailure, result.Template, "verify", err)
		}
	}

	if options.Bool(runtime, "dryrun", false) {
		out := r.Stdout
		if out == nil {
			out = os.Stdout
		}
		_, err := io.WriteString(out, result.Artifact)
		return err
	}

	filename := options.String(runtime, "filename", defaultFilename)
	write := r.WriteFile
	if write == nil {
		write = func(name string, data []byte) error { return os.WriteFile(name, data, 0o644) }
	}
	if err := write(filename, []byte(result.Artifact)); err != nil {
		return fmt.Errorf("action: write %s: %w", filename, err)
	}
	log.Info("artifact written", "filename", filename, "bytes", len(result.Artifact))
	return nil
}

// Verify checks that artifact sniffs as SVG and parses as XML.
func Verify(artifact []byte) error {
	if len(bytes.TrimSpace(artifact)) == 0 {
		return errors.New("artifact is empty")
	}
	if mime := mimetype.Detect(artifact); !mime.Is("image/svg+xml") {
		return fmt.Errorf("artifact is %s, not image/svg+xml", mime.String())
	}
	dec := xml.NewDecoder(bytes.NewReader(artifact))
	for {
		_, err := dec.Token()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("artifact is not well-formed: %w", err)
		}
	}
}
