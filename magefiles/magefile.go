//go:build mage

// Package main contains Mage build targets for the FoodLens backend.
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

const (
	binDir     = "bin"
	versionVar = "github.com/foodlens/backend/internal/delivery/http.Version"
)

// binaries maps output names to their main packages
var binaries = map[string]string{
	"foodlens-server": "./cmd/server",
	"foodlens":        "./cmd/foodlens",
}

// Default target when none is given
var Default = Build

// Build compiles the server and CLI binaries into bin/.
func Build() error {
	mg.Deps(Vet)

	if err := os.MkdirAll(binDir, 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", binDir, err)
	}

	version := gitVersion()
	ldflags := fmt.Sprintf("-s -w -X %s=%s -X main.version=%s", versionVar, version, version)

	for name, pkg := range binaries {
		out := filepath.Join(binDir, name)
		if err := sh.RunV("go", "build", "-ldflags", ldflags, "-o", out, pkg); err != nil {
			return fmt.Errorf("go build %s: %w", pkg, err)
		}
		fmt.Printf("Built %s (%s)\n", out, version)
	}
	return nil
}

// Test runs the unit tests with the race detector.
func Test() error {
	return sh.RunV("go", "test", "-race", "-count=1", "./...")
}

// Cover writes a coverage profile and prints the per-function summary.
func Cover() error {
	if err := sh.RunV("go", "test", "-coverprofile=coverage.out", "./..."); err != nil {
		return err
	}
	return sh.RunV("go", "tool", "cover", "-func=coverage.out")
}

// Vet runs go vet.
func Vet() error {
	return sh.RunV("go", "vet", "./...")
}

// Lint runs golangci-lint when installed.
func Lint() error {
	if _, err := sh.Output("golangci-lint", "version"); err != nil {
		fmt.Println("golangci-lint not installed, skipping")
		return nil
	}
	return sh.RunV("golangci-lint", "run", "./...")
}

// Run starts the API server with development settings.
func Run() error {
	env := map[string]string{
		"FOODLENS_SERVER_ENVIRONMENT": "development",
		"FOODLENS_LOGGING_LEVEL":      "debug",
	}
	return sh.RunWithV(env, "go", "run", "./cmd/server")
}

// Clean removes build artifacts.
func Clean() error {
	for _, path := range []string{binDir, "coverage.out"} {
		if err := sh.Rm(path); err != nil {
			return err
		}
	}
	return nil
}

func gitVersion() string {
	v, err := sh.Output("git", "describe", "--tags", "--always", "--dirty")
	if err != nil || v == "" {
		return "dev"
	}
	return v
}
