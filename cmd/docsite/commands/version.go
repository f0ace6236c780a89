package commands

import (
	"fmt"

	"git.home.luguber.info/inful/docsite/internal/config"
	derrors "git.home.luguber.info/inful/docsite/internal/errors"
	"git.home.luguber.info/inful/docsite/internal/versioning"
)

// VersionCmd implements the 'version' command.
type VersionCmd struct {
	Version string `arg:"" optional:"" help:"Semantic version to create, e.g. 1.0.0"`
}

func (v *VersionCmd) Run(_ *Global, root *CLI) error {
	if v.Version == "" {
		return derrors.VersionUsage()
	}
	cfg, err := config.Load(root.Config)
	if err != nil {
		return err
	}

	fmt.Printf("Creating version %s...\n", v.Version)
	snap, err := versioning.Create(cfg, v.Version)
	if err != nil {
		return err
	}
	fmt.Printf("Version %s created\n", snap.Version)
	fmt.Printf("Docs copied to: %s\n", snap.DocsDir)
	fmt.Printf("Sidebar saved to: %s\n", snap.SidebarFile)
	fmt.Println("Config updated")
	fmt.Println("\nNext steps:")
	fmt.Println("1. Continue editing the docs directory for the next version")
	fmt.Println("2. Run \"docsite build\" to build all versions")
	return nil
}
