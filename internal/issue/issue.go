// SPDX-License-Identifier: MPL-2.0

package issue

import (
	"github.com/charmbracelet/glamour"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

type Id int

const (
	ConfigLoadFailedId Id = iota + 1
	DevEnvConfigInvalidId
	ManifestInvalidId
	ContainerEngineNotFoundId
	ContainerNotReadyId
	FragmentInjectionFailedId
	FragmentFailedId
	LedgerUnavailableId
	PermissionDeniedId
)

type MarkdownMsg string

type HttpLink string

type Issue struct {
	id       Id
	mdMsg    MarkdownMsg
	docLinks []HttpLink
}

func (i *Issue) Id() Id {
	return i.id
}

func (i *Issue) MarkdownMsg() MarkdownMsg {
	return i.mdMsg
}

func (i *Issue) DocLinks() []HttpLink {
	return slices.Clone(i.docLinks)
}

// Render renders the Markdown note with the glamour style at stylePath
// ("dark", "light", "notty" or a JSON style file).
func (i *Issue) Render(stylePath string) (string, error) {
	md := string(i.mdMsg)
	if len(i.docLinks) > 0 {
		md += "\n\n## See also\n"
		for _, link := range i.docLinks {
			md += "- <" + string(link) + ">\n"
		}
	}
	return render(md, stylePath)
}

var (
	render = glamour.Render

	configLoadFailedIssue = &Issue{
		id: ConfigLoadFailedId,
		mdMsg: `
# Failed to load configuration!

The commodore configuration file could not be read or does not match the schema.

## Search locations (in order of precedence):
1. The file given with ` + "`--config`" + `
2. ` + "`$XDG_CONFIG_HOME/commodore/config.cue`" + `
3. ` + "`./commodore.cue`" + `

## Things you can try:
- Check the CUE syntax of the file
- Compare your values with the effective configuration:
~~~
$ commodore config show
~~~

## Example:
~~~cue
container: engine: "podman"
readiness: {
	poll_interval: "5s"
	max_attempts:  60
}
~~~`,
	}

	devEnvConfigInvalidIssue = &Issue{
		id: DevEnvConfigInvalidId,
		mdMsg: `
# Dev-env configuration is invalid!

` + "`dev-env-config/configuration.yml`" + ` must contain an ` + "`applications`" + ` mapping
whose keys are the application names, in the order they should be provisioned.

## Things you can try:
- Check that ` + "`root_dir`" + ` points at your dev-env checkout
- Validate the YAML indentation of the ` + "`applications`" + ` block`,
	}

	manifestInvalidIssue = &Issue{
		id: ManifestInvalidId,
		mdMsg: `
# Application manifest is invalid!

An application's ` + "`configuration.yml`" + ` could not be parsed, so commodore cannot
tell whether it uses the commodity.

## Things you can try:
- List the commodities as a YAML sequence:
~~~yaml
commodities:
  - db2_community
~~~`,
	}

	containerEngineNotFoundIssue = &Issue{
		id: ContainerEngineNotFoundId,
		mdMsg: `
# Container engine not available!

Neither Docker nor Podman answered. The commodity container cannot be started.

## Things you can try:
- Start the Docker daemon or the Podman machine
- Choose the engine explicitly:
~~~
$ COMMODORE_CONTAINER_ENGINE=podman commodore provision
~~~`,
	}

	containerNotReadyIssue = &Issue{
		id: ContainerNotReadyId,
		mdMsg: `
# The commodity container never became healthy!

The health check did not report "healthy" within the configured number of attempts.

## Things you can try:
- Inspect the container logs:
~~~
$ docker logs db2_community
~~~
- Give slow machines more time with ` + "`readiness.max_attempts`" + ` (0 waits forever)
- Recreate the container and run again with ` + "`--new-container db2_community`",
	}

	fragmentInjectionFailedIssue = &Issue{
		id: FragmentInjectionFailedId,
		mdMsg: `
# Could not copy a fragment into the container!

The fragment file was not streamed into the container root, or its permissions
could not be changed there.

## Things you can try:
- Check that the container is running
- Check that ` + "`tar`" + ` is installed on the host`,
	}

	fragmentFailedIssue = &Issue{
		id: FragmentFailedId,
		mdMsg: `
# An initialisation fragment failed!

SQL fragments may exit with 0, 2 (index exists), 4 (database exists) or 6 (table exists).
Shell fragments must exit with 0. Any other exit code marks the application as not provisioned.

## Things you can try:
- Read the fragment output printed above the error
- Fix the fragment and run ` + "`commodore provision`" + ` again; only failed applications re-run`,
	}

	ledgerUnavailableIssue = &Issue{
		id: LedgerUnavailableId,
		mdMsg: `
# Provision ledger unavailable!

The file recording which applications are provisioned could not be opened.

## Things you can try:
- Check the permissions of ` + "`ledger.path`" + `
- Remove a corrupt ledger; every application will be provisioned again`,
	}

	permissionDeniedIssue = &Issue{
		id: PermissionDeniedId,
		mdMsg: `
# Permission denied!

## Things you can try:
- Ensure your user can talk to the container engine:
~~~
$ sudo usermod -aG docker $USER
~~~
- Run commodore from a directory you own`,
	}

	issues = map[Id]*Issue{
		configLoadFailedIssue.Id():        configLoadFailedIssue,
		devEnvConfigInvalidIssue.Id():     devEnvConfigInvalidIssue,
		manifestInvalidIssue.Id():         manifestInvalidIssue,
		containerEngineNotFoundIssue.Id(): containerEngineNotFoundIssue,
		containerNotReadyIssue.Id():       containerNotReadyIssue,
		fragmentInjectionFailedIssue.Id(): fragmentInjectionFailedIssue,
		fragmentFailedIssue.Id():          fragmentFailedIssue,
		ledgerUnavailableIssue.Id():       ledgerUnavailableIssue,
		permissionDeniedIssue.Id():        permissionDeniedIssue,
	}
)

// Values returns every issue ordered by Id.
func Values() []*Issue {
	values := maps.Values(issues)
	slices.SortFunc(values, func(a, b *Issue) int { return int(a.id) - int(b.id) })
	return values
}

func Get(id Id) *Issue {
	return issues[id]
}
