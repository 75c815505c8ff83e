package sdk

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/daedaleanai/vbt/log"
	"github.com/daedaleanai/vbt/runner"
	"github.com/daedaleanai/vbt/util"
)

// Vitis drives the Vitis Python API by running one `vitis -p` script per operation.
// The workspace and the registered platform repositories are replayed at the start
// of every script, since each script runs in a fresh SDK client.
type Vitis struct {
	// Program is the vitis executable.
	Program string
	Runner  runner.Runner

	// ScriptDir keeps the generated scripts. Empty means a temporary directory
	// that is removed by Close.
	ScriptDir string

	workspace string
	repos     []string
	tempDir   string
	scripts   int
	closed    bool
}

// NewVitis returns a client running `program`.
func NewVitis(program string) *Vitis {
	return &Vitis{Program: program, Runner: runner.Exec{}}
}

func (v *Vitis) scriptDir() (string, error) {
	if v.ScriptDir != "" {
		return v.ScriptDir, util.EnsureDir(v.ScriptDir)
	}
	if v.tempDir == "" {
		dir, err := os.MkdirTemp("", "vbt-vitis-")
		if err != nil {
			return "", fmt.Errorf("failed to create script directory: %w", err)
		}
		v.tempDir = dir
	}
	return v.tempDir, nil
}

// call runs `body` and decodes its result into `result`, which may be nil.
func (v *Vitis) call(ctx context.Context, op string, body string, args map[string]interface{}, result interface{}) (string, error) {
	if v.closed {
		return "", errors.New("vitis client is closed")
	}
	if v.workspace == "" {
		return "", errors.New("no workspace set")
	}

	if args == nil {
		args = map[string]interface{}{}
	}
	args["workspace"] = v.workspace
	args["repos"] = append([]string{}, v.repos...)

	script, err := renderScript(body, args)
	if err != nil {
		return "", err
	}
	dir, err := v.scriptDir()
	if err != nil {
		return "", err
	}
	v.scripts++
	scriptPath := filepath.Join(dir, fmt.Sprintf("%03d_%s.py", v.scripts, op))
	if err := os.WriteFile(scriptPath, []byte(script), util.FileMode); err != nil {
		return "", fmt.Errorf("failed to write script '%s': %w", scriptPath, err)
	}
	log.Debug("Running SDK operation '%s' from '%s'.\n", op, scriptPath)

	opts := []runner.Option{runner.WithDir(v.workspace)}
	if log.Verbose {
		opts = append(opts, runner.WithConsole())
	}
	res, runErr := v.Runner.Run(ctx, v.Program, []string{"-p", scriptPath}, opts...)
	if res == nil {
		return "", fmt.Errorf("%s: %w", op, runErr)
	}

	output, err := parseOutput(res.Stdout, result)
	var scriptErr *ScriptError
	switch {
	case errors.As(err, &scriptErr):
		return output, fmt.Errorf("%s: %w", op, scriptErr)
	case runErr != nil:
		return output, fmt.Errorf("%s: %w", op, runErr)
	case err != nil:
		return output, fmt.Errorf("%s: %w", op, err)
	}
	return output, nil
}

// SetWorkspace selects the workspace all later operations run in.
func (v *Vitis) SetWorkspace(ctx context.Context, dir string) error {
	if v.closed {
		return errors.New("vitis client is closed")
	}
	v.workspace = dir
	return nil
}

// AddPlatformRepos registers platform repositories for all later operations.
func (v *Vitis) AddPlatformRepos(ctx context.Context, dirs ...string) error {
	v.repos = append(v.repos, dirs...)
	return nil
}

func (v *Vitis) ListPlatforms(ctx context.Context) ([]string, error) {
	var platforms []string
	_, err := v.call(ctx, "list_platforms", listPlatformsBody, nil, &platforms)
	return platforms, err
}

func (v *Vitis) FindPlatformInRepos(ctx context.Context, name string) (string, error) {
	var found string
	_, err := v.call(ctx, "find_platform", findPlatformBody, map[string]interface{}{"name": name}, &found)
	return found, err
}

func (v *Vitis) CreatePlatformComponent(ctx context.Context, spec PlatformSpec) (Platform, error) {
	args := map[string]interface{}{
		"name":      spec.Name,
		"hw_design": spec.HwDesign,
		"cpu":       spec.CPU,
		"os":        spec.OS,
	}
	if _, err := v.call(ctx, "create_platform", createPlatformBody, args, nil); err != nil {
		return nil, err
	}
	return &vitisPlatform{v, spec.Name}, nil
}

func (v *Vitis) ListComponents(ctx context.Context) ([]string, error) {
	var names []string
	_, err := v.call(ctx, "list_components", listComponentsBody, nil, &names)
	return names, err
}

func (v *Vitis) DeleteComponent(ctx context.Context, name string) error {
	_, err := v.call(ctx, "delete_component", deleteComponentBody, map[string]interface{}{"name": name}, nil)
	return err
}

func (v *Vitis) CreateAppComponent(ctx context.Context, name, platform string) (Application, error) {
	args := map[string]interface{}{"name": name, "platform": platform}
	if _, err := v.call(ctx, "create_app", createAppBody, args, nil); err != nil {
		return nil, err
	}
	return &vitisApplication{v, name}, nil
}

// Close removes the generated scripts unless they were written to ScriptDir.
func (v *Vitis) Close() error {
	v.closed = true
	if v.tempDir == "" {
		return nil
	}
	err := os.RemoveAll(v.tempDir)
	v.tempDir = ""
	return err
}

type vitisPlatform struct {
	client *Vitis
	name   string
}

func (p *vitisPlatform) Name() string {
	return p.name
}

func (p *vitisPlatform) Report(ctx context.Context) (string, error) {
	return p.client.call(ctx, "report_platform", reportPlatformBody, map[string]interface{}{"name": p.name}, nil)
}

func (p *vitisPlatform) Build(ctx context.Context) error {
	_, err := p.client.call(ctx, "build_platform", buildComponentBody, map[string]interface{}{"name": p.name}, nil)
	return err
}

type vitisApplication struct {
	client *Vitis
	name   string
}

func (a *vitisApplication) Name() string {
	return a.name
}

func (a *vitisApplication) ImportFiles(ctx context.Context, from, destDir string) error {
	args := map[string]interface{}{"name": a.name, "from": from, "dest": destDir}
	_, err := a.client.call(ctx, "import_files", importFilesBody, args, nil)
	return err
}

func (a *vitisApplication) AppendAppConfig(ctx context.Context, key, value string) error {
	args := map[string]interface{}{"name": a.name, "key": key, "value": value}
	_, err := a.client.call(ctx, "append_app_config", appendAppConfigBody, args, nil)
	return err
}

func (a *vitisApplication) GenerateBuildFiles(ctx context.Context) error {
	_, err := a.client.call(ctx, "generate_build_files", generateBuildFilesBody, map[string]interface{}{"name": a.name}, nil)
	return err
}

func (a *vitisApplication) Build(ctx context.Context) (string, error) {
	var buildLog string
	output, err := a.client.call(ctx, "build_app", buildComponentBody, map[string]interface{}{"name": a.name}, &buildLog)
	if buildLog == "" {
		buildLog = output
	}
	return buildLog, err
}
