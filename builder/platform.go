package builder

import (
	"context"
	"fmt"
	"strings"

	"github.com/daedaleanai/vbt/log"
	"github.com/daedaleanai/vbt/sdk"
	"github.com/daedaleanai/vbt/util"
)

// Default processor and operating system of platform components.
const (
	DefaultCPU = "microblaze_riscv_0"
	DefaultOS  = "standalone"
)

// PlatformConfig describes a platform build.
type PlatformConfig struct {
	XSA       string
	Workspace string
	Name      string
	CPU       string
	OS        string
}

// PlatformResult describes a built platform.
type PlatformResult struct {
	Name string

	// Path is the platform file the SDK discovered after the build.
	Path string
}

func (cfg *PlatformConfig) applyDefaults() {
	if cfg.CPU == "" {
		cfg.CPU = DefaultCPU
	}
	if cfg.OS == "" {
		cfg.OS = DefaultOS
	}
}

// ValidatePlatform checks the inputs of a platform build and creates the workspace.
func ValidatePlatform(cfg PlatformConfig) error {
	if err := util.ValidName("platform", cfg.Name); err != nil {
		return err
	}
	if err := util.RequirePaths(util.File("XSA file", cfg.XSA)); err != nil {
		return err
	}
	return util.EnsureDir(cfg.Workspace)
}

// BuildPlatform creates and builds a platform component from the hardware description in cfg.XSA.
// The client is closed before BuildPlatform returns, unless validation already failed.
func BuildPlatform(ctx context.Context, client sdk.Client, cfg PlatformConfig) (result PlatformResult, err error) {
	cfg.applyDefaults()
	if err := ValidatePlatform(cfg); err != nil {
		return result, err
	}
	defer closeClient(client)

	log.Log("Building platform:\n")
	log.IndentationLevel++
	log.Log("XSA:        %s\n", cfg.XSA)
	log.Log("Workspace:  %s\n", cfg.Workspace)
	log.Log("Platform:   %s\n", cfg.Name)
	log.Log("Target:     %s / %s\n", cfg.CPU, cfg.OS)
	log.IndentationLevel--

	err = runStage("initialize SDK client", func() error {
		if err := client.SetWorkspace(ctx, cfg.Workspace); err != nil {
			return err
		}
		return client.AddPlatformRepos(ctx, cfg.Workspace)
	})
	if err != nil {
		return result, err
	}
	log.Success("Workspace set to: %s\n", cfg.Workspace)

	var platform sdk.Platform
	err = runStage("create platform component", func() error {
		platform, err = client.CreatePlatformComponent(ctx, sdk.PlatformSpec{
			Name:     cfg.Name,
			HwDesign: cfg.XSA,
			CPU:      cfg.CPU,
			OS:       cfg.OS,
		})
		return err
	})
	if err != nil {
		return result, err
	}
	log.Success("Created platform component: %s\n", platform.Name())

	err = runStage("build platform", func() error {
		report, err := platform.Report(ctx)
		if err != nil {
			return err
		}
		for _, line := range strings.Split(strings.TrimSpace(report), "\n") {
			log.Debug("%s\n", line)
		}

		stop := log.Spin("Building platform " + platform.Name())
		defer stop()
		return platform.Build(ctx)
	})
	if err != nil {
		return result, err
	}
	log.Success("Platform built.\n")

	err = runStage("locate platform", func() error {
		path, err := client.FindPlatformInRepos(ctx, cfg.Name)
		if err != nil {
			return err
		}
		if path == "" {
			return fmt.Errorf("%w: '%s'", ErrPlatformNotFound, cfg.Name)
		}
		result = PlatformResult{Name: cfg.Name, Path: path}
		return nil
	})
	if err != nil {
		return result, err
	}

	log.Success("Done. Exported to: %s\n", result.Path)
	return result, nil
}

func closeClient(client sdk.Client) {
	log.Debug("Cleaning up SDK client.\n")
	if err := client.Close(); err != nil {
		log.Warning("Error during cleanup: %s.\n", err)
	}
}
