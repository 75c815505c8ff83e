package sdk

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"os"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/daedaleanai/vbt/runner"
)

// scriptRunner answers every script with the output returned by `respond`.
type scriptRunner struct {
	scripts []string
	args    []map[string]interface{}
	respond func(script string) (*runner.Result, error)
}

var argsRegexp = regexp.MustCompile(`b64decode\("([^"]*)"\)`)

func (r *scriptRunner) Run(ctx context.Context, program string, args []string, opts ...runner.Option) (*runner.Result, error) {
	if program != "vitis" || len(args) != 2 || args[0] != "-p" {
		return nil, errors.New("unexpected command line")
	}
	data, err := os.ReadFile(args[1])
	if err != nil {
		return nil, err
	}
	script := string(data)
	r.scripts = append(r.scripts, script)

	var decoded map[string]interface{}
	if match := argsRegexp.FindStringSubmatch(script); match != nil {
		raw, _ := base64.StdEncoding.DecodeString(match[1])
		json.Unmarshal(raw, &decoded)
	}
	r.args = append(r.args, decoded)

	if r.respond == nil {
		return &runner.Result{Stdout: resultMarker + "null\n"}, nil
	}
	return r.respond(script)
}

func newTestVitis(t *testing.T, r *scriptRunner) *Vitis {
	v := &Vitis{Program: "vitis", Runner: r, ScriptDir: t.TempDir()}
	require.NoError(t, v.SetWorkspace(context.Background(), "/work/vitis_workspace"))
	return v
}

func TestVitisReplaysWorkspaceAndRepos(t *testing.T) {
	r := &scriptRunner{respond: func(string) (*runner.Result, error) {
		return &runner.Result{Stdout: "INFO: loading platforms\n" + resultMarker + `"/work/platform/export/arty/arty.xpfm"` + "\n"}, nil
	}}
	v := newTestVitis(t, r)
	ctx := context.Background()

	require.NoError(t, v.AddPlatformRepos(ctx, "/work/platform"))
	found, err := v.FindPlatformInRepos(ctx, "arty")
	require.NoError(t, err)

	assert.Equal(t, "/work/platform/export/arty/arty.xpfm", found)
	require.Len(t, r.args, 1)
	assert.Equal(t, "/work/vitis_workspace", r.args[0]["workspace"])
	assert.Equal(t, []interface{}{"/work/platform"}, r.args[0]["repos"])
	assert.Equal(t, "arty", r.args[0]["name"])
	assert.Contains(t, r.scripts[0], `client.find_platform_in_repos(args["name"])`)
	assert.Contains(t, r.scripts[0], "vitis.dispose()")
}

func TestVitisListComponents(t *testing.T) {
	r := &scriptRunner{respond: func(string) (*runner.Result, error) {
		return &runner.Result{Stdout: resultMarker + `["arty_s7_riscv_platform", "arty_s7_riscv_app"]` + "\n"}, nil
	}}
	v := newTestVitis(t, r)

	names, err := v.ListComponents(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"arty_s7_riscv_platform", "arty_s7_riscv_app"}, names)
}

func TestVitisScriptException(t *testing.T) {
	r := &scriptRunner{respond: func(string) (*runner.Result, error) {
		return &runner.Result{Stdout: errorMarker + `"Component 'app' not found"` + "\n", ExitCode: 1},
			&runner.ExitError{Command: "vitis -p", ExitCode: 1}
	}}
	v := newTestVitis(t, r)

	err := v.DeleteComponent(context.Background(), "app")
	var scriptErr *ScriptError
	require.ErrorAs(t, err, &scriptErr)
	assert.Equal(t, "Component 'app' not found", scriptErr.Message)
	assert.Equal(t, "delete_component: Component 'app' not found", err.Error())
}

func TestVitisCrashWithoutMarker(t *testing.T) {
	r := &scriptRunner{respond: func(string) (*runner.Result, error) {
		return &runner.Result{Stdout: "Segmentation fault\n", ExitCode: 139},
			&runner.ExitError{Command: "vitis -p", ExitCode: 139}
	}}
	v := newTestVitis(t, r)

	_, err := v.ListPlatforms(context.Background())
	var exitErr *runner.ExitError
	require.ErrorAs(t, err, &exitErr)
	assert.Equal(t, 139, exitErr.ExitCode)
}

func TestVitisMissingResult(t *testing.T) {
	r := &scriptRunner{respond: func(string) (*runner.Result, error) {
		return &runner.Result{Stdout: "nothing to see\n"}, nil
	}}
	v := newTestVitis(t, r)

	_, err := v.ListPlatforms(context.Background())
	assert.ErrorContains(t, err, "without reporting a result")
}

func TestVitisApplicationOperations(t *testing.T) {
	r := &scriptRunner{}
	v := newTestVitis(t, r)
	ctx := context.Background()

	app, err := v.CreateAppComponent(ctx, "arty_s7_riscv_app", "/work/platform/arty.xpfm")
	require.NoError(t, err)
	require.NoError(t, app.ImportFiles(ctx, "/src/app", "src"))
	require.NoError(t, app.AppendAppConfig(ctx, UserCompileDefinitions, `-DVERSION_STRING=\"v1\"`))
	require.NoError(t, app.GenerateBuildFiles(ctx))
	_, err = app.Build(ctx)
	require.NoError(t, err)

	require.Len(t, r.args, 5)
	assert.Equal(t, "/work/platform/arty.xpfm", r.args[0]["platform"])
	assert.Equal(t, "/src/app", r.args[1]["from"])
	assert.Equal(t, "src", r.args[1]["dest"])
	assert.Equal(t, `-DVERSION_STRING=\"v1\"`, r.args[2]["value"])
	assert.Contains(t, r.scripts[3], "generate_build_files()")
	assert.Contains(t, r.scripts[4], ".build()")
}

func TestVitisRequiresWorkspace(t *testing.T) {
	v := &Vitis{Program: "vitis", Runner: &scriptRunner{}}
	_, err := v.ListPlatforms(context.Background())
	assert.Error(t, err)
}

func TestVitisClose(t *testing.T) {
	v := &Vitis{Program: "vitis", Runner: &scriptRunner{}}
	ctx := context.Background()
	require.NoError(t, v.SetWorkspace(ctx, t.TempDir()))
	_, err := v.ListComponents(ctx)
	require.NoError(t, err)
	dir := v.tempDir
	require.DirExists(t, dir)

	require.NoError(t, v.Close())
	assert.NoDirExists(t, dir)
	_, err = v.ListComponents(ctx)
	assert.Error(t, err)
}
