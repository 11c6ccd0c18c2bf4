package main

import (
	"context"
	"fmt"

	"github.com/9seconds/geotally/tallylib"
	"github.com/spf13/afero"
)

func runRender(ctx context.Context, conf *config) error {
	fs := afero.NewOsFs()

	renderer, err := tallylib.NewRenderer(conf.GetFormat())
	if err != nil {
		return err
	}

	p, err := newPipeline(fs, conf, newLogger())
	if err != nil {
		return err
	}

	if err := p.Open(conf.GetDataset()); err != nil {
		return err
	}

	defer p.Close()

	result, err := p.Run(ctx)
	if err != nil {
		return err
	}

	out, err := openOutput(fs, conf.GetOutput())
	if err != nil {
		return err
	}

	if err := renderer.Render(out, result.Rows); err != nil {
		out.Close()

		return fmt.Errorf("cannot render: %w", err)
	}

	return out.Close()
}
