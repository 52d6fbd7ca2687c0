package worker

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"testing"

	"github.com/andresmejia3/stable/internal/tuning"
	"github.com/andresmejia3/stable/internal/types"
)

// memFS is an in-memory stand-in for the filesystem so we can test the
// engine without touching disk.
type memFS struct {
	mu    sync.Mutex
	files map[string][]byte
}

func (m *memFS) read(name string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.files[name]
	if !ok {
		return nil, os.ErrNotExist
	}
	return data, nil
}

func (m *memFS) write(name string, data []byte, _ os.FileMode) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.files[name] = data
	return nil
}

func testPNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for i := range img.Pix {
		img.Pix[i] = uint8(i * 7)
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func newMemEngine(fs *memFS, t types.Tuning) *Engine {
	e := NewEngine(1, t, "/out")
	e.ReadFile = fs.read
	e.WriteFile = fs.write
	return e
}

func TestProcess(t *testing.T) {
	fs := &memFS{files: map[string][]byte{"/in/comet.jpg": testPNG(t, 4, 3)}}
	e := newMemEngine(fs, types.Tuning{Brightness: 1.5, Contrast: 1, Color: 1, Sharpness: 1})

	res := e.Process(types.ImageTask{Index: 3, Path: "/in/comet.jpg"})
	if res.Err != nil {
		t.Fatalf("Process failed: %v", res.Err)
	}
	if res.Index != 3 || res.Output != filepath.Join("/out", "comet.png") {
		t.Errorf("Unexpected result %+v", res)
	}

	written, ok := fs.files[res.Output]
	if !ok {
		t.Fatalf("Expected output at %s", res.Output)
	}
	if int64(len(written)) != res.Bytes {
		t.Errorf("Bytes = %d, wrote %d", res.Bytes, len(written))
	}
	img, _, err := tuning.DecodeBytes(written)
	if err != nil {
		t.Fatalf("Output is not decodable: %v", err)
	}
	if img.Bounds().Dx() != 4 || img.Bounds().Dy() != 3 {
		t.Errorf("Output size changed: %v", img.Bounds())
	}
}

func TestProcess_Errors(t *testing.T) {
	fs := &memFS{files: map[string][]byte{"/in/notes.txt": []byte("hello")}}
	e := newMemEngine(fs, types.Identity())

	res := e.Process(types.ImageTask{Index: 1, Path: "/in/missing.png"})
	if !errors.Is(res.Err, os.ErrNotExist) {
		t.Errorf("Expected not-exist error, got %v", res.Err)
	}

	res = e.Process(types.ImageTask{Index: 2, Path: "/in/notes.txt"})
	if !errors.Is(res.Err, tuning.ErrDecode) {
		t.Errorf("Expected decode error, got %v", res.Err)
	}
	if res.Output != "" {
		t.Errorf("Expected no output for an undecodable file, got %s", res.Output)
	}
}

func TestRun(t *testing.T) {
	fs := &memFS{files: map[string][]byte{}}
	var tasks []types.ImageTask
	for i, name := range []string{"a", "b", "c", "d", "e"} {
		path := "/in/" + name + ".png"
		fs.files[path] = testPNG(t, 2, 2)
		tasks = append(tasks, types.ImageTask{Index: i, Path: path})
	}

	taskChan := make(chan types.ImageTask)
	resultsChan := make(chan types.ImageResult, len(tasks))
	var wg sync.WaitGroup
	for i := 0; i < 3; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			e := newMemEngine(fs, types.Identity())
			e.ID = id
			e.Run(context.Background(), taskChan, resultsChan)
		}(i)
	}
	for _, task := range tasks {
		taskChan <- task
	}
	close(taskChan)
	wg.Wait()
	close(resultsChan)

	var got []int
	for res := range resultsChan {
		if res.Err != nil {
			t.Errorf("Task %d failed: %v", res.Index, res.Err)
		}
		got = append(got, res.Index)
	}
	sort.Ints(got)
	if len(got) != len(tasks) {
		t.Fatalf("Expected %d results, got %d", len(tasks), len(got))
	}
	for i, idx := range got {
		if idx != i {
			t.Errorf("Missing result for task %d", i)
		}
	}
}

func TestRun_Cancelled(t *testing.T) {
	fs := &memFS{files: map[string][]byte{"/in/a.png": testPNG(t, 1, 1)}}
	e := newMemEngine(fs, types.Identity())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	tasks := make(chan types.ImageTask, 1)
	tasks <- types.ImageTask{Path: "/in/a.png"}
	close(tasks)

	// Unbuffered and never read: Run must return because ctx is done.
	results := make(chan types.ImageResult)
	done := make(chan struct{})
	go func() {
		e.Run(ctx, tasks, results)
		close(done)
	}()
	<-done
}
