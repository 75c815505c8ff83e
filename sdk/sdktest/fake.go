// Package sdktest provides an in-memory sdk.Client that records every call.
package sdktest

import (
	"context"
	"fmt"
	"strings"

	"github.com/daedaleanai/vbt/sdk"
)

// Client is a fake sdk.Client. Calls are recorded in order as "Method(arg, ...)".
type Client struct {
	Calls []string

	// Platforms maps platform names to the path FindPlatformInRepos reports.
	Platforms map[string]string

	// Components are the names of the components present in the workspace.
	Components []string

	// Errors makes the method with the given name fail.
	Errors map[string]error

	// OnBuild runs when an application is built, e.g. to create the executable.
	OnBuild func(name string) error

	Closed bool
}

// NewClient returns a fake without platforms or components.
func NewClient() *Client {
	return &Client{Platforms: map[string]string{}, Errors: map[string]error{}}
}

func (c *Client) record(method string, args ...string) error {
	c.Calls = append(c.Calls, fmt.Sprintf("%s(%s)", method, strings.Join(args, ", ")))
	return c.Errors[method]
}

// Methods returns the names of the recorded calls without their arguments.
func (c *Client) Methods() []string {
	methods := []string{}
	for _, call := range c.Calls {
		methods = append(methods, call[:strings.IndexByte(call, '(')])
	}
	return methods
}

func (c *Client) SetWorkspace(ctx context.Context, dir string) error {
	return c.record("SetWorkspace", dir)
}

func (c *Client) AddPlatformRepos(ctx context.Context, dirs ...string) error {
	return c.record("AddPlatformRepos", dirs...)
}

func (c *Client) ListPlatforms(ctx context.Context) ([]string, error) {
	names := []string{}
	for name := range c.Platforms {
		names = append(names, name)
	}
	return names, c.record("ListPlatforms")
}

func (c *Client) FindPlatformInRepos(ctx context.Context, name string) (string, error) {
	if err := c.record("FindPlatformInRepos", name); err != nil {
		return "", err
	}
	return c.Platforms[name], nil
}

func (c *Client) CreatePlatformComponent(ctx context.Context, spec sdk.PlatformSpec) (sdk.Platform, error) {
	if err := c.record("CreatePlatformComponent", spec.Name, spec.HwDesign, spec.CPU, spec.OS); err != nil {
		return nil, err
	}
	c.Components = append(c.Components, spec.Name)
	return &platform{c, spec.Name}, nil
}

func (c *Client) ListComponents(ctx context.Context) ([]string, error) {
	return append([]string{}, c.Components...), c.record("ListComponents")
}

func (c *Client) DeleteComponent(ctx context.Context, name string) error {
	if err := c.record("DeleteComponent", name); err != nil {
		return err
	}
	for i, component := range c.Components {
		if component == name {
			c.Components = append(c.Components[:i], c.Components[i+1:]...)
			break
		}
	}
	return nil
}

func (c *Client) CreateAppComponent(ctx context.Context, name, platformPath string) (sdk.Application, error) {
	if err := c.record("CreateAppComponent", name, platformPath); err != nil {
		return nil, err
	}
	c.Components = append(c.Components, name)
	return &application{c, name}, nil
}

func (c *Client) Close() error {
	c.Closed = true
	return c.record("Close")
}

type platform struct {
	client *Client
	name   string
}

func (p *platform) Name() string {
	return p.name
}

func (p *platform) Report(ctx context.Context) (string, error) {
	return "platform " + p.name, p.client.record("Platform.Report", p.name)
}

func (p *platform) Build(ctx context.Context) error {
	return p.client.record("Platform.Build", p.name)
}

type application struct {
	client *Client
	name   string
}

func (a *application) Name() string {
	return a.name
}

func (a *application) ImportFiles(ctx context.Context, from, destDir string) error {
	return a.client.record("Application.ImportFiles", from, destDir)
}

func (a *application) AppendAppConfig(ctx context.Context, key, value string) error {
	return a.client.record("Application.AppendAppConfig", key, value)
}

func (a *application) GenerateBuildFiles(ctx context.Context) error {
	return a.client.record("Application.GenerateBuildFiles")
}

func (a *application) Build(ctx context.Context) (string, error) {
	if err := a.client.record("Application.Build", a.name); err != nil {
		return "", err
	}
	if a.client.OnBuild != nil {
		if err := a.client.OnBuild(a.name); err != nil {
			return "", err
		}
	}
	return "build finished", nil
}
