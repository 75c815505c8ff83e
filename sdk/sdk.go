// Package sdk describes the parts of the vendor embedded SDK the builders depend on.
package sdk

import "context"

// PlatformSpec describes a platform component to create.
type PlatformSpec struct {
	Name     string
	HwDesign string
	CPU      string
	OS       string
}

// Client manages the components of one workspace.
type Client interface {
	SetWorkspace(ctx context.Context, dir string) error
	AddPlatformRepos(ctx context.Context, dirs ...string) error
	ListPlatforms(ctx context.Context) ([]string, error)

	// FindPlatformInRepos returns the path of the platform file for `name`,
	// or an empty string if no registered repository contains it.
	FindPlatformInRepos(ctx context.Context, name string) (string, error)

	CreatePlatformComponent(ctx context.Context, spec PlatformSpec) (Platform, error)
	ListComponents(ctx context.Context) ([]string, error)
	DeleteComponent(ctx context.Context, name string) error
	CreateAppComponent(ctx context.Context, name, platform string) (Application, error)

	Close() error
}

// Platform is a platform component.
type Platform interface {
	Name() string
	Report(ctx context.Context) (string, error)
	Build(ctx context.Context) error
}

// Application is an application component.
type Application interface {
	Name() string
	ImportFiles(ctx context.Context, from, destDir string) error
	AppendAppConfig(ctx context.Context, key, value string) error
	GenerateBuildFiles(ctx context.Context) error

	// Build compiles the component and returns the build log, if the SDK provides one.
	Build(ctx context.Context) (string, error)
}

// UserCompileDefinitions is the application configuration key holding extra compiler definitions.
const UserCompileDefinitions = "USER_COMPILE_DEFINITIONS"
