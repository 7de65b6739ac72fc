//go:build mage

// Package main contains Mage build targets for els-search developer tooling.
package main

import (
	"bufio"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

// projectDirs lists the working directories the CLI writes to by default:
// the history database, rotated logs and exported results.
var projectDirs = []string{
	"data",
	"logs",
	"output",
	".secrets",
}

// Init creates the working directories.
func Init() error {
	for _, dir := range projectDirs {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating %s: %w", dir, err)
		}
		fmt.Println("  ", dir)
	}
	fmt.Println("Project directories initialized.")
	return nil
}

const (
	binDir  = "bin"
	binName = "els-search"
	cmdPkg  = "./cmd/els-search"
)

// Build compiles the CLI binary into bin/, stamping the version from
// VERSION when set.
func Build() error {
	if err := os.MkdirAll(binDir, 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", binDir, err)
	}
	out := filepath.Join(binDir, binName)
	version := os.Getenv("VERSION")
	if version == "" {
		version = "dev"
	}
	ldflags := "-X main.version=" + version
	if err := sh.RunV("go", "build", "-ldflags", ldflags, "-o", out, cmdPkg); err != nil {
		return fmt.Errorf("go build: %w", err)
	}
	fmt.Printf("Built %s\n", out)
	return nil
}

// Test runs the unit tests. go-sqlite3 needs cgo.
func Test() error {
	return sh.RunWithV(map[string]string{"CGO_ENABLED": "1"}, "go", "test", "./...")
}

// All runs the tests, then builds the binary.
func All() {
	mg.SerialDeps(Test, Build)
}

// Stats prints Go line counts per top-level directory and the word count
// of the Markdown documentation.
func Stats() error {
	prod := map[string]int{}
	test := map[string]int{}
	words := 0

	err := filepath.WalkDir(".", func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			name := d.Name()
			if path != "." && (strings.HasPrefix(name, ".") || strings.HasPrefix(name, "_") || name == "bin") {
				return filepath.SkipDir
			}
			return nil
		}

		switch filepath.Ext(path) {
		case ".go":
			n, err := countLines(path)
			if err != nil {
				return err
			}
			top := strings.SplitN(filepath.ToSlash(path), "/", 2)[0]
			if strings.HasSuffix(path, "_test.go") {
				test[top] += n
			} else {
				prod[top] += n
			}
		case ".md":
			data, err := os.ReadFile(path)
			if err != nil {
				return fmt.Errorf("reading %s: %w", path, err)
			}
			words += len(strings.Fields(string(data)))
		}
		return nil
	})
	if err != nil {
		return err
	}

	dirs := make([]string, 0, len(prod))
	for dir := range prod {
		dirs = append(dirs, dir)
	}
	sort.Strings(dirs)

	var prodTotal, testTotal int
	for _, dir := range dirs {
		fmt.Printf("%-12s %6d prod %6d test\n", dir, prod[dir], test[dir])
		prodTotal += prod[dir]
		testTotal += test[dir]
	}
	fmt.Printf("%-12s %6d prod %6d test\n", "total", prodTotal, testTotal)
	fmt.Printf("Words (documentation): %d\n", words)
	return nil
}

// countLines counts non-blank lines in a file.
func countLines(path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("reading %s: %w", path, err)
	}
	defer f.Close()

	n := 0
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		if strings.TrimSpace(sc.Text()) != "" {
			n++
		}
	}
	return n, sc.Err()
}
