package builder

import (
	"context"
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"

	"github.com/daedaleanai/vbt/buildinfo"
	"github.com/daedaleanai/vbt/log"
	"github.com/daedaleanai/vbt/sdk"
	"github.com/daedaleanai/vbt/util"
)

// Layout of an application component inside the workspace, as dictated by the SDK.
const (
	SourceDirName = "src"
	BuildDirName  = "build"
	ExecutableExt = ".elf"
)

// Subdirectories a CLI core tree must provide, in import order.
var CLICoreSubdirs = []string{
	"include",
	filepath.Join("platform_adapters", "include"),
	filepath.Join("platform_adapters", "src"),
}

// Signer produces a detached signature for a file and returns the signature path.
type Signer interface {
	SignFile(path string) (string, error)
}

// AppConfig describes an application build.
type AppConfig struct {
	Workspace   string
	PlatformDir string

	// CLICoreDir optionally names a CLI core tree whose CLICoreSubdirs are imported
	// ahead of Sources.
	CLICoreDir string
	Sources    []string
	Name       string

	// Generator provides the build-info injected into the build. Nil means no
	// source-control metadata.
	Generator *buildinfo.Generator

	// Manifest writes the build-info record next to the executable.
	Manifest bool

	// Signer, if set, signs the executable.
	Signer Signer
}

// PlatformName is the name of the platform, i.e. the base name of the platform directory.
func (cfg AppConfig) PlatformName() string {
	return filepath.Base(cfg.PlatformDir)
}

// AppDir is the directory of the application component in the workspace.
func (cfg AppConfig) AppDir() string {
	return filepath.Join(cfg.Workspace, cfg.Name)
}

// ExpectedExecutable is where the SDK conventionally places the executable.
func (cfg AppConfig) ExpectedExecutable() string {
	return filepath.Join(cfg.AppDir(), BuildDirName, cfg.Name+ExecutableExt)
}

// AppResult describes a finished application build.
type AppResult struct {
	Record     buildinfo.Record
	Executable string
	Manifest   string
	Signature  string
	BuildLog   string
}

type importTask struct {
	description string
	src         string
}

func (cfg AppConfig) importTasks() []importTask {
	tasks := []importTask{}
	if cfg.CLICoreDir != "" {
		descriptions := []string{"CLI core headers", "Platform adapter headers", "Platform adapter sources"}
		for i, subdir := range CLICoreSubdirs {
			tasks = append(tasks, importTask{descriptions[i], filepath.Join(cfg.CLICoreDir, subdir)})
		}
	}
	for _, src := range cfg.Sources {
		tasks = append(tasks, importTask{"Application sources", src})
	}
	return tasks
}

// ValidateApp checks all inputs of an application build and creates the workspace.
func ValidateApp(cfg AppConfig) error {
	if err := util.ValidName("application", cfg.Name); err != nil {
		return err
	}
	if len(cfg.Sources) == 0 {
		return fmt.Errorf("at least one application source directory is required")
	}

	checks := []util.PathCheck{util.Dir("Platform directory", cfg.PlatformDir)}
	if cfg.CLICoreDir != "" {
		checks = append(checks, util.Dir("CLI core directory", cfg.CLICoreDir))
	}
	for _, src := range cfg.Sources {
		checks = append(checks, util.Dir("Application source directory", src))
	}
	if cfg.CLICoreDir != "" {
		for _, subdir := range CLICoreSubdirs {
			checks = append(checks, util.Dir("Required CLI core subdirectory", filepath.Join(cfg.CLICoreDir, subdir)))
		}
	}
	if err := util.RequirePaths(checks...); err != nil {
		return err
	}
	for _, check := range checks {
		log.Success("%s: %s\n", check.Description, check.Path)
	}

	if err := util.EnsureDir(cfg.Workspace); err != nil {
		return err
	}
	log.Success("Workspace directory: %s\n", cfg.Workspace)
	return nil
}

func printAppConfig(cfg AppConfig) {
	lines := []string{
		fmt.Sprintf("Workspace:     %s", cfg.Workspace),
		fmt.Sprintf("Platform Dir:  %s", cfg.PlatformDir),
		fmt.Sprintf("Platform Name: %s", cfg.PlatformName()),
	}
	if cfg.CLICoreDir != "" {
		lines = append(lines, fmt.Sprintf("CLI Core:      %s", cfg.CLICoreDir))
	}
	for _, src := range cfg.Sources {
		lines = append(lines, fmt.Sprintf("App Source:    %s", src))
	}
	lines = append(lines, fmt.Sprintf("App Name:      %s", cfg.Name))
	log.Banner("Application Build Configuration", lines...)
	log.Log("\n")
}

// BuildApplication recreates the application component from scratch and builds it.
//
// Success is decided by the presence of the executable on disk, not by the SDK:
// a build that leaves no executable behind fails with ErrNoExecutable. The client is
// closed before BuildApplication returns, unless validation already failed.
func BuildApplication(ctx context.Context, client sdk.Client, cfg AppConfig) (result AppResult, err error) {
	log.Log("Validating input paths...\n")
	if err := ValidateApp(cfg); err != nil {
		return result, err
	}
	defer closeClient(client)

	printAppConfig(cfg)

	err = runStage("initialize SDK client", func() error {
		return client.SetWorkspace(ctx, cfg.Workspace)
	})
	if err != nil {
		return result, err
	}
	log.Success("Workspace set to: %s\n", cfg.Workspace)

	var platformPath string
	err = runStage("set up platform", func() error {
		platformPath, err = setupPlatform(ctx, client, cfg)
		return err
	})
	if err != nil {
		return result, err
	}

	var app sdk.Application
	err = runStage("create application component", func() error {
		app, err = createApplication(ctx, client, cfg, platformPath)
		return err
	})
	if err != nil {
		return result, err
	}

	err = runStage("import source files", func() error {
		return importSources(ctx, app, cfg)
	})
	if err != nil {
		return result, err
	}

	listImportedFiles(cfg)

	log.Log("\nConfiguring build settings...\n")
	result.Record = generateBuildInfo(ctx, cfg)
	configureBuild(ctx, app, result.Record)

	err = runStage("generate build files", func() error {
		log.Log("\nGenerating build files...\n")
		if err := app.GenerateBuildFiles(ctx); err != nil {
			return err
		}
		log.Success("Build files generated successfully.\n")
		return nil
	})
	if err != nil {
		return result, err
	}

	err = runStage("build application", func() error {
		log.Log("\nBuilding application...\n")
		stop := log.Spin("Building " + app.Name())
		buildLog, err := app.Build(ctx)
		stop()
		if err != nil {
			return err
		}
		result.BuildLog = buildLog
		log.Success("Application build finished.\n")
		if buildLog != "" {
			log.Debug("Build log:\n%s\n", buildLog)
		}
		return nil
	})
	if err != nil {
		return result, err
	}

	log.Log("\nLocating output files...\n")
	result.Executable, err = LocateExecutable(cfg)
	if err != nil {
		return result, err
	}
	log.Success("ELF file generated: %s\n", result.Executable)

	err = runStage("record build artifacts", func() error {
		return recordArtifacts(cfg, &result)
	})
	return result, err
}

func setupPlatform(ctx context.Context, client sdk.Client, cfg AppConfig) (string, error) {
	log.Log("\nSetting up platform...\n")
	if err := client.AddPlatformRepos(ctx, cfg.PlatformDir); err != nil {
		return "", err
	}
	log.Success("Added platform repository: %s\n", cfg.PlatformDir)

	platforms, err := client.ListPlatforms(ctx)
	if err != nil {
		return "", err
	}
	sort.Strings(platforms)
	log.Debug("Available platforms: %s\n", strings.Join(platforms, ", "))

	name := cfg.PlatformName()
	log.Log("Looking for platform: %s\n", name)
	platformPath, err := client.FindPlatformInRepos(ctx, name)
	if err != nil {
		return "", err
	}
	if platformPath == "" {
		return "", fmt.Errorf("%w: '%s'", ErrPlatformNotFound, name)
	}
	log.Success("Found platform: %s\n", platformPath)
	return platformPath, nil
}

func createApplication(ctx context.Context, client sdk.Client, cfg AppConfig, platformPath string) (sdk.Application, error) {
	log.Log("\nCreating application component...\n")
	components, err := client.ListComponents(ctx)
	if err != nil {
		return nil, err
	}
	for _, component := range components {
		if component != cfg.Name {
			continue
		}
		log.Warning("Application '%s' already exists. Removing...\n", cfg.Name)
		if err := client.DeleteComponent(ctx, cfg.Name); err != nil {
			return nil, err
		}
		log.Success("Removed existing application: %s\n", cfg.Name)
		break
	}

	app, err := client.CreateAppComponent(ctx, cfg.Name, platformPath)
	if err != nil {
		return nil, err
	}
	log.Success("Created application component: %s\n", app.Name())
	return app, nil
}

func importSources(ctx context.Context, app sdk.Application, cfg AppConfig) error {
	log.Log("\nImporting source files...\n")
	for _, task := range cfg.importTasks() {
		log.Log("Importing %s...\n", task.description)
		log.IndentationLevel++
		log.Log("From: %s\n", task.src)
		log.Log("To:   %s\n", SourceDirName)
		log.IndentationLevel--

		if err := util.RequirePaths(util.Dir("Source directory", task.src)); err != nil {
			return err
		}
		if err := app.ImportFiles(ctx, task.src, SourceDirName); err != nil {
			return err
		}
		log.Success("Imported %s\n", task.description)
	}
	return nil
}

// listImportedFiles narrates the source tree of the component. Problems are not fatal.
func listImportedFiles(cfg AppConfig) {
	log.Log("\nVerifying imported files...\n")
	srcDir := filepath.Join(cfg.AppDir(), SourceDirName)
	if !util.DirExists(srcDir) {
		log.Warning("Source directory not found at %s\n", srcDir)
		return
	}
	log.Success("Source directory: %s\n", srcDir)

	base := log.IndentationLevel
	defer func() { log.IndentationLevel = base }()
	err := filepath.WalkDir(srcDir, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(srcDir, path)
		if err != nil {
			return err
		}
		depth := 0
		if rel != "." {
			depth = len(strings.Split(rel, string(filepath.Separator)))
		}
		log.IndentationLevel = base + depth
		if entry.IsDir() {
			log.Debug("%s/\n", entry.Name())
		} else {
			log.Debug("%s\n", entry.Name())
		}
		return nil
	})
	if err != nil {
		log.Warning("Could not verify application files: %s. The build may still succeed.\n", err)
	}
}

func generateBuildInfo(ctx context.Context, cfg AppConfig) buildinfo.Record {
	log.Log("Generating build information...\n")
	generator := buildinfo.Generator{}
	if cfg.Generator != nil {
		generator = *cfg.Generator
	}
	generator.AppName = cfg.Name
	generator.PlatformName = cfg.PlatformName()

	record := generator.Generate(ctx)
	buildinfo.Print(record)
	return record
}

// configureBuild injects the version definitions. Failing to do so only costs the
// version information, so it is reported as a warning.
func configureBuild(ctx context.Context, app sdk.Application, record buildinfo.Record) {
	definitions := record.Definitions()
	for _, definition := range definitions {
		if err := app.AppendAppConfig(ctx, sdk.UserCompileDefinitions, definition); err != nil {
			log.Warning("Could not set compiler definition %s: %s\n", definition, err)
			return
		}
	}
	log.Success("Added compiler definitions:\n")
	log.IndentationLevel++
	for _, definition := range definitions {
		log.Log("%s\n", definition)
	}
	log.IndentationLevel--
}

// LocateExecutable returns the executable of the application build in `cfg`: the
// conventional path if it exists, otherwise the first executable found anywhere in the
// build directory.
func LocateExecutable(cfg AppConfig) (string, error) {
	expected := cfg.ExpectedExecutable()
	if util.FileExists(expected) {
		return expected, nil
	}
	log.Warning("Expected ELF file not found at: %s\n", expected)

	buildDir := filepath.Join(cfg.AppDir(), BuildDirName)
	if !util.DirExists(buildDir) {
		return "", fmt.Errorf("%w: build directory not found: %s", ErrNoExecutable, buildDir)
	}

	found := []string{}
	err := filepath.WalkDir(buildDir, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), ExecutableExt) {
			found = append(found, path)
		}
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("%w: failed to search %s: %s", ErrNoExecutable, buildDir, err)
	}
	if len(found) == 0 {
		return "", fmt.Errorf("%w: no ELF files found in build directory: %s", ErrNoExecutable, buildDir)
	}

	sort.Strings(found)
	log.Log("Found ELF files:\n")
	for _, path := range found {
		log.Log("  %s\n", path)
	}
	return found[0], nil
}

func recordArtifacts(cfg AppConfig, result *AppResult) error {
	if cfg.Manifest {
		result.Manifest = result.Executable + buildinfo.ManifestSuffix
		if err := buildinfo.WriteManifest(result.Manifest, result.Record); err != nil {
			return err
		}
		log.Success("Build manifest written: %s\n", result.Manifest)
	}
	if cfg.Signer != nil {
		signature, err := cfg.Signer.SignFile(result.Executable)
		if err != nil {
			return err
		}
		result.Signature = signature
		log.Success("Executable signed: %s\n", signature)
	}
	return nil
}
