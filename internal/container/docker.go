// SPDX-License-Identifier: MPL-2.0

package container

// DockerEngine implements the Engine interface using Docker CLI.
// It embeds BaseCLIEngine for common CLI operations.
type DockerEngine struct {
	*BaseCLIEngine
}

// NewDockerEngine creates a new Docker engine. Services are started with the
// standalone docker-compose binary unless WithComposeCommand says otherwise.
func NewDockerEngine(opts ...BaseCLIEngineOption) *DockerEngine {
	return &DockerEngine{
		BaseCLIEngine: NewBaseCLIEngine(string(EngineTypeDocker), []string{"docker-compose"}, opts...),
	}
}

// VersionArgs asks the Docker daemon for its version.
func (e *DockerEngine) VersionArgs() []string {
	return []string{e.Binary(), "version", "--format", "{{.Server.Version}}"}
}
