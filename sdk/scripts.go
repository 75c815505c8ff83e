package sdk

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"
	"text/template"
)

const resultMarker = "@@VBT_RESULT@@"
const errorMarker = "@@VBT_ERROR@@"

// scriptTemplate wraps one SDK operation into a script for `vitis -p`.
// Arguments travel base64-encoded so that paths never need quoting.
var scriptTemplate = template.Must(template.New("script").Parse(`import base64
import json
import sys

import vitis

args = json.loads(base64.b64decode("{{ .Args }}").decode("utf-8"))
client = vitis.create_client()
try:
    client.set_workspace(args["workspace"])
    for repo in args["repos"]:
        client.add_platform_repos(repo)
    result = None
{{ .Body }}
    print("` + resultMarker + `" + json.dumps(result))
except Exception as e:
    print("` + errorMarker + `" + json.dumps(str(e)))
    sys.exit(1)
finally:
    vitis.dispose()
`))

// Operation bodies, indented to sit inside the try block of scriptTemplate.
const (
	listPlatformsBody = `    result = [str(p) for p in client.list_platforms()]`

	findPlatformBody = `    found = client.find_platform_in_repos(args["name"])
    result = str(found) if found else ""`

	createPlatformBody = `    client.create_platform_component(
        name=args["name"],
        hw_design=args["hw_design"],
        cpu=args["cpu"],
        os=args["os"])
    result = args["name"]`

	reportPlatformBody = `    client.get_component(name=args["name"]).report()`

	buildComponentBody = `    build_result = client.get_component(name=args["name"]).build()
    if hasattr(build_result, "get_build_log"):
        result = str(build_result.get_build_log())`

	listComponentsBody = `    result = [c.get_name() for c in client.list_components()]`

	deleteComponentBody = `    client.delete_component(name=args["name"])`

	createAppBody = `    client.create_app_component(name=args["name"], platform=args["platform"])
    result = args["name"]`

	importFilesBody = `    client.get_component(name=args["name"]).import_files(
        from_loc=args["from"],
        dest_dir_in_cmp=args["dest"])`

	appendAppConfigBody = `    client.get_component(name=args["name"]).append_app_config(key=args["key"], values=args["value"])`

	generateBuildFilesBody = `    client.get_component(name=args["name"]).generate_build_files()`
)

type scriptParams struct {
	Args string
	Body string
}

// renderScript produces the script performing `body` with `args`.
func renderScript(body string, args map[string]interface{}) (string, error) {
	encoded, err := json.Marshal(args)
	if err != nil {
		return "", fmt.Errorf("failed to encode script arguments: %w", err)
	}

	var buf bytes.Buffer
	err = scriptTemplate.Execute(&buf, scriptParams{
		Args: base64.StdEncoding.EncodeToString(encoded),
		Body: body,
	})
	if err != nil {
		return "", fmt.Errorf("failed to render script: %w", err)
	}
	return buf.String(), nil
}

// ScriptError is an exception raised inside the SDK while running a script.
type ScriptError struct {
	Message string
}

func (e *ScriptError) Error() string {
	return e.Message
}

// parseOutput extracts the result of a script from its standard output. Lines that are
// not markers are returned as the log of the operation.
func parseOutput(stdout string, result interface{}) (string, error) {
	var logLines []string
	var scriptErr error
	sawResult := false

	for _, line := range strings.Split(stdout, "\n") {
		switch {
		case strings.HasPrefix(line, resultMarker):
			sawResult = true
			if result == nil {
				continue
			}
			if err := json.Unmarshal([]byte(strings.TrimPrefix(line, resultMarker)), result); err != nil {
				return "", fmt.Errorf("failed to decode SDK result: %w", err)
			}
		case strings.HasPrefix(line, errorMarker):
			var message string
			if err := json.Unmarshal([]byte(strings.TrimPrefix(line, errorMarker)), &message); err != nil {
				message = strings.TrimPrefix(line, errorMarker)
			}
			scriptErr = &ScriptError{Message: message}
		default:
			logLines = append(logLines, line)
		}
	}

	output := strings.TrimRight(strings.Join(logLines, "\n"), "\n")
	if scriptErr != nil {
		return output, scriptErr
	}
	if !sawResult {
		return output, fmt.Errorf("SDK script finished without reporting a result")
	}
	return output, nil
}
