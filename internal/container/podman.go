// SPDX-License-Identifier: MPL-2.0

package container

// PodmanEngine implements the Engine interface using Podman CLI.
// It embeds BaseCLIEngine for common CLI operations.
type PodmanEngine struct {
	*BaseCLIEngine
}

// NewPodmanEngine creates a new Podman engine. Services are started with
// podman-compose unless WithComposeCommand says otherwise.
func NewPodmanEngine(opts ...BaseCLIEngineOption) *PodmanEngine {
	return &PodmanEngine{
		BaseCLIEngine: NewBaseCLIEngine(string(EngineTypePodman), []string{"podman-compose"}, opts...),
	}
}

// VersionArgs asks Podman for its version.
func (e *PodmanEngine) VersionArgs() []string {
	return []string{e.Binary(), "version", "--format", "{{.Version}}"}
}
