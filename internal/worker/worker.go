package worker

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/andresmejia3/stable/internal/card"
	"github.com/andresmejia3/stable/internal/tuning"
	"github.com/andresmejia3/stable/internal/types"
	"github.com/andresmejia3/stable/internal/utils"
)

// Engine applies one tuning to every image it is handed and writes PNG results.
type Engine struct {
	ID     int
	Tuning types.Tuning
	OutDir string

	// ReadFile and WriteFile default to the os package; tests swap them.
	ReadFile  func(name string) ([]byte, error)
	WriteFile func(name string, data []byte, perm os.FileMode) error
}

// NewEngine creates an engine writing into outDir.
func NewEngine(id int, t types.Tuning, outDir string) *Engine {
	return &Engine{
		ID:        id,
		Tuning:    t,
		OutDir:    outDir,
		ReadFile:  os.ReadFile,
		WriteFile: os.WriteFile,
	}
}

// OutputPath maps a source image to its tuned PNG path.
func (e *Engine) OutputPath(src string) string {
	base := strings.TrimSuffix(filepath.Base(src), filepath.Ext(src))
	return filepath.Join(e.OutDir, utils.SafeFileName(base)+".png")
}

// Process decodes, tunes and writes a single image. Failures are reported in
// the result rather than returned so one bad file does not stop a batch.
func (e *Engine) Process(task types.ImageTask) types.ImageResult {
	res := types.ImageResult{Index: task.Index, Source: task.Path}

	data, err := e.ReadFile(task.Path)
	if err != nil {
		res.Err = fmt.Errorf("reading %s: %w", task.Path, err)
		return res
	}

	img, _, err := tuning.DecodeBytes(data)
	if err != nil {
		res.Err = err
		return res
	}

	out, err := card.EncodePNG(tuning.Adjust(img, e.Tuning))
	if err != nil {
		res.Err = err
		return res
	}

	res.Output = e.OutputPath(task.Path)
	if err := e.WriteFile(res.Output, out, 0644); err != nil {
		res.Err = fmt.Errorf("engine %d writing %s: %w", e.ID, res.Output, err)
		return res
	}
	res.Bytes = int64(len(out))
	return res
}

// Run drains tasks until the channel closes or ctx is cancelled, sending one result per task.
func (e *Engine) Run(ctx context.Context, tasks <-chan types.ImageTask, results chan<- types.ImageResult) {
	for task := range tasks {
		res := e.Process(task)
		select {
		case results <- res:
		case <-ctx.Done():
			return
		}
	}
}
