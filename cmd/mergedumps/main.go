package main

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"

	gojson "github.com/goccy/go-json"
	"github.com/pierrec/lz4"

	"github.com/mixedstack/tracer/internal/frame"
	"github.com/mixedstack/tracer/internal/merge"
)

const (
	workersCount int = 64
)

// Capture is one dumped pair of stacks, as written by the capture clients:
// lz4-compressed JSON with the same envelope records the service accepts.
type Capture struct {
	PythonStacks []frame.Envelope `json:"python_stacks"`
	NativeStacks []frame.Envelope `json:"native_stacks"`
}

func main() {
	args := os.Args[1:]
	if len(args) != 1 {
		fmt.Println("./mergedumps <captures directory>") // nolint
		return
	}

	root := args[0]
	f, err := os.Open(root)
	if err != nil {
		log.Fatal(err)
	}
	defer f.Close()

	pathChannel := make(chan string, workersCount)
	errChannel := make(chan error)

	go func() {
		for err := range errChannel {
			log.Println(err)
		}
	}()

	var wg sync.WaitGroup

	for w := 0; w < workersCount; w++ {
		wg.Add(1)
		go MergeCapture(pathChannel, errChannel, &wg)
	}

	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		pathChannel <- path
		return nil
	})
	if err != nil {
		log.Fatal(err)
	}

	close(pathChannel)
	wg.Wait()
	close(errChannel)
}

func MergeCapture(pathChannel chan string, errChan chan error, wg *sync.WaitGroup) {
	defer wg.Done()

	for path := range pathChannel {
		f, err := os.Open(path)
		if err != nil {
			errChan <- err
			continue
		}
		zr := lz4.NewReader(f)
		var c Capture
		err = gojson.NewDecoder(zr).Decode(&c)
		f.Close()
		if err != nil {
			if !errors.Is(err, io.EOF) {
				errChan <- err
			}
			continue
		}
		merged := merge.Merge(frame.Unwrap(c.PythonStacks), frame.Unwrap(c.NativeStacks))
		names := make([]string, 0, len(merged))
		for _, mf := range merged {
			names = append(names, mf.FunctionName())
		}
		fmt.Println(path, strings.Join(names, ";")) // nolint
	}
}
