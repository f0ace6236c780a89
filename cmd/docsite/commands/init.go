package commands

import (
	"fmt"
	"os"
	"path/filepath"

	"git.home.luguber.info/inful/docsite/internal/config"
	derrors "git.home.luguber.info/inful/docsite/internal/errors"
)

const sampleIndex = `---
title: Welcome
description: Start here
---

# Welcome

This site is built from the Markdown files in this directory.

:::tip
Run ` + "`docsite dev`" + ` and edit this file to see the page reload.
:::
`

// InitCmd implements the 'init' command.
type InitCmd struct {
	Force bool `help:"Overwrite existing configuration file"`
}

func (i *InitCmd) Run(_ *Global, root *CLI) error {
	return RunInit(root.Config, i.Force)
}

// RunInit writes an example configuration to configPath and a starter page
// to the docs directory next to it unless one exists.
func RunInit(configPath string, force bool) error {
	// Provide friendly user-facing messages on stdout.
	fmt.Println("Initializing docsite project")
	fmt.Printf("Writing configuration to %s\n", configPath)
	if err := config.Init(configPath, force); err != nil {
		fmt.Println("Initialization failed")
		return err
	}

	index := filepath.Join(filepath.Dir(configPath), config.DefaultDocsDir, "index.md")
	if _, err := os.Stat(index); os.IsNotExist(err) {
		if err := os.MkdirAll(filepath.Dir(index), 0o750); err != nil {
			return derrors.WriteFailed(index, err)
		}
		if err := os.WriteFile(index, []byte(sampleIndex), 0o600); err != nil {
			return derrors.WriteFailed(index, err)
		}
		fmt.Printf("Created %s\n", index)
	}
	fmt.Println("initialized successfully")
	return nil
}
