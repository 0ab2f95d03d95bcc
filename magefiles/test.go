//go:build mage

// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

package main

import (
	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

// Test groups test targets (all, unit, race).
type Test mg.Namespace

// unitPkgs have no SQLite-backed tests.
var unitPkgs = []string{
	"./pkg/...",
	"./internal/classify/...",
	"./internal/config/...",
	"./internal/logging/...",
	"./internal/paths/...",
}

// All runs every test.
func (Test) All() error {
	return sh.RunV(binGo, "test", "-v", "./...")
}

// Unit runs the packages that do not open a database.
func (Test) Unit() error {
	return sh.RunV(binGo, append([]string{"test", "-v"}, unitPkgs...)...)
}

// Race runs every test with the race detector. The capture engine and
// listener tests exercise concurrent handlers.
func (Test) Race() error {
	return sh.RunV(binGo, "test", "-race", "./...")
}
