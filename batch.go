package channelmap

import (
	"context"
	"os"
	"path/filepath"
	"regexp"

	"github.com/google/uuid"
	"github.com/karrick/godirwalk"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/hubmapconsortium/channelmap/pkg/constants"
	"github.com/hubmapconsortium/channelmap/pkg/errors"
)

// tilePattern matches per-region tile documents as the stitching pipeline
// names them: region, X grid position, Y grid position.
var tilePattern = regexp.MustCompile(`^R\d{3}_X\d{3}_Y\d{3}\.ome\.xml$`)

// DiscoverTiles walks the directory tree rooted at dir and returns every
// tile document named like R001_X003_Y004.ome.xml, in lexical traversal
// order. No tiles is not an error; callers get an empty slice.
func DiscoverTiles(dir string) ([]string, error) {
	var found []string
	err := godirwalk.Walk(dir, &godirwalk.Options{
		Callback: func(osPathname string, de *godirwalk.Dirent) error {
			if de.IsDir() {
				return nil
			}
			if tilePattern.MatchString(de.Name()) {
				found = append(found, osPathname)
			}
			return nil
		},
	})
	if err != nil {
		return nil, errors.WrapIO("walk", dir, err)
	}
	return found, nil
}

// TileResult is the outcome of annotating one tile document.
type TileResult struct {
	Path    string `json:"path"`
	OutPath string `json:"out_path,omitempty"`
	RunID   string `json:"run_id,omitempty"`
	Error   string `json:"error,omitempty"`
}

// Failed reports whether the tile was not annotated.
func (t TileResult) Failed() bool { return t.Error != "" }

// BatchResult carries the per-tile outcomes of one AnnotateFiles call, in
// input order.
type BatchResult struct {
	BatchID string       `json:"batch_id"`
	Tiles   []TileResult `json:"tiles"`
	Failed  int          `json:"failed"`
}

// AnnotateFiles annotates each tile document and writes the result under
// outDir, keeping the input's base name. Tiles are processed concurrently
// up to the configured bound; one tile's failure is recorded in its
// TileResult without aborting the others. The returned error is non-nil
// only when the batch itself could not run (bad arguments, output
// directory, or canceled context).
func (e *Engine) AnnotateFiles(ctx context.Context, paths []string, outDir string) (*BatchResult, error) {
	if len(paths) == 0 {
		return nil, &errors.ValidationError{
			Field:   "paths",
			Message: "no tile documents given",
			Err:     errors.ErrInvalidInput,
		}
	}
	if outDir == "" {
		return nil, &errors.ValidationError{
			Field:   "out_dir",
			Message: "required for batch annotation",
			Err:     errors.ErrInvalidInput,
		}
	}
	if err := os.MkdirAll(outDir, constants.DirPermissions); err != nil {
		return nil, errors.WrapIO("mkdir", outDir, err)
	}

	batchID := uuid.NewString()
	logger := e.config.logger.With().Str("batch_id", batchID).Logger()

	tiles := make([]TileResult, len(paths))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.config.concurrency)
	for i, path := range paths {
		i, path := i, path
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				tiles[i] = TileResult{Path: path, Error: err.Error()}
				return err
			}
			tiles[i] = e.annotateTile(gctx, &logger, path, outDir)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	batch := &BatchResult{BatchID: batchID, Tiles: tiles}
	for _, t := range tiles {
		if t.Failed() {
			batch.Failed++
		}
	}
	logger.Info().
		Int("tiles", len(paths)).
		Int("failed", batch.Failed).
		Str("out_dir", outDir).
		Msg("Batch annotation complete")
	return batch, nil
}

func (e *Engine) annotateTile(ctx context.Context, logger *zerolog.Logger, path, outDir string) TileResult {
	tileCtx, cancel := context.WithTimeout(ctx, constants.TileTimeout)
	defer cancel()

	tile := TileResult{Path: path}

	doc, err := os.ReadFile(path)
	if err != nil {
		tile.Error = errors.WrapIO("read", path, err).Error()
		return tile
	}

	result, err := e.run(tileCtx, doc)
	if err != nil {
		logger.Error().Err(err).Str("tile", filepath.Base(path)).Msg("Tile annotation failed")
		tile.Error = err.Error()
		return tile
	}
	tile.RunID = result.RunID

	outPath := filepath.Join(outDir, filepath.Base(path))
	if err := os.WriteFile(outPath, result.Annotated, constants.FilePermissions); err != nil {
		tile.Error = errors.WrapIO("write", outPath, err).Error()
		return tile
	}
	tile.OutPath = outPath

	logger.Debug().
		Str("tile", filepath.Base(path)).
		Str("out", outPath).
		Msg("Tile annotated")
	return tile
}
