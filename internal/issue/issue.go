// SPDX-License-Identifier: MPL-2.0

package issue

import (
	"github.com/charmbracelet/glamour"
	"golang.org/x/exp/slices"
)

type Id int

const (
	RateLimitedId Id = iota + 1
	RepositoryUnavailableId
	InvalidSourceURLId
	UnsafeArchiveId
	ToolchainNotFoundId
	ToolchainBuildFailedId
	NoExecutableId
	NotBuildableCLIId
	ReferenceNotFoundId
	ReferenceExistsId
	InvalidMetadataId
	ConfigLoadFailedId
)

type MarkdownMsg string

type HttpLink string

type Issue struct {
	id       Id          // ID used to lookup the issue
	mdMsg    MarkdownMsg // Markdown text that will be rendered
	docLinks []HttpLink  // documentation for the failing concern
	extLinks []HttpLink  // external links that might be useful for the user
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

func (i *Issue) ExtLinks() []HttpLink {
	return slices.Clone(i.extLinks)
}

// Render renders the issue as terminal markdown. An empty stylePath selects
// glamour's default style.
func (i *Issue) Render(stylePath string) (string, error) {
	extraMd := ""
	if len(i.docLinks) > 0 || len(i.extLinks) > 0 {
		extraMd += "\n\n## See also\n"
		for _, link := range i.docLinks {
			extraMd += "\n- <" + string(link) + ">"
		}
		for _, link := range i.extLinks {
			extraMd += "\n- <" + string(link) + ">"
		}
	}
	if stylePath == "" {
		stylePath = "auto"
	}
	return render(string(i.mdMsg)+extraMd, stylePath)
}

var (
	render = glamour.Render

	rateLimitedIssue = &Issue{
		id: RateLimitedId,
		mdMsg: `
# GitHub API rate limit exceeded!

Unauthenticated requests are limited to 60 per hour.

## Things you can try:
- Set a token and retry:
~~~
$ export GITHUB_TOKEN=ghp_...
$ ragstrap fetch https://github.com/owner/repo
~~~

- Put the token in a ` + "`.env`" + ` file in the working directory
- Or set ` + "`github.token`" + ` in your config file
- Wait until the limit resets`,
		docLinks: []HttpLink{"https://docs.github.com/en/rest/using-the-rest-api/rate-limits-for-the-rest-api"},
	}

	repositoryUnavailableIssue = &Issue{
		id: RepositoryUnavailableId,
		mdMsg: `
# Repository could not be downloaded!

GitHub answered the archive request with an error.

## Things you can try:
- Check the owner and repository name for typos
- Private repositories need a token with read access (GITHUB_TOKEN)
- Retry later if GitHub reports a server error`,
	}

	invalidSourceURLIssue = &Issue{
		id: InvalidSourceURLId,
		mdMsg: `
# Not a GitHub repository URL!

Sources must look like ` + "`https://github.com/<owner>/<repo>`" + `.

## Things you can try:
~~~
$ ragstrap fetch https://github.com/BurntSushi/ripgrep
~~~`,
	}

	unsafeArchiveIssue = &Issue{
		id: UnsafeArchiveId,
		mdMsg: `
# Archive rejected!

The downloaded archive was empty or contained a path outside the snapshot
directory. Nothing outside the reference was written.

## Things you can try:
- Retry the fetch; a truncated download can look empty
- Inspect the repository archive manually before trusting it`,
	}

	toolchainNotFoundIssue = &Issue{
		id: ToolchainNotFoundId,
		mdMsg: `
# Build toolchain not found!

Capturing CLI help requires building the project.

## Things you can try:
- Install Rust and cargo, then retry
- Point ` + "`capture.build_command`" + ` at the toolchain you use
- Skip the capture:
~~~
$ ragstrap fetch --no-capture-cli https://github.com/owner/repo
~~~`,
		extLinks: []HttpLink{"https://rustup.rs"},
	}

	toolchainBuildFailedIssue = &Issue{
		id: ToolchainBuildFailedId,
		mdMsg: `
# Build failed!

The toolchain exited with an error; its output is shown above.

## Things you can try:
- Build the snapshot yourself from the reference's ` + "`raw/`" + ` directory
- Install missing system libraries the crate needs
- Skip the capture with ` + "`--no-capture-cli`",
	}

	noExecutableIssue = &Issue{
		id: NoExecutableId,
		mdMsg: `
# Build produced no executable!

The build succeeded but ` + "`target/release`" + ` holds no executable file.
The crate is probably a library.

## Things you can try:
- Retry with ` + "`--no-capture-cli`" + ` to keep only the snapshot and examples`,
	}

	notBuildableCLIIssue = &Issue{
		id: NotBuildableCLIId,
		mdMsg: `
# Not a buildable CLI!

A CLI capture needs ` + "`Cargo.toml`" + ` together with ` + "`src/main.rs`" + `, or a
` + "`[[bin]]`" + ` target in ` + "`Cargo.toml`" + `.

## Things you can try:
- Drop ` + "`--capture-cli`" + ` so detection decides automatically`,
	}

	referenceNotFoundIssue = &Issue{
		id: ReferenceNotFoundId,
		mdMsg: `
# Reference not found!

## Things you can try:
- List the references you have:
~~~
$ ragstrap list
~~~

- Check ` + "`--references-dir`" + ` or ` + "`references_dir`" + ` in your config`,
	}

	referenceExistsIssue = &Issue{
		id: ReferenceExistsId,
		mdMsg: `
# Reference already exists!

## Things you can try:
- Refresh it in place:
~~~
$ ragstrap update <name>
~~~

- Replace it with ` + "`--force`" + `
- Pick another name with ` + "`--name`",
	}

	invalidMetadataIssue = &Issue{
		id: InvalidMetadataId,
		mdMsg: `
# Reference metadata is missing or invalid!

` + "`meta.json`" + ` could not be read.

## Things you can try:
- Fetch the reference again with ` + "`--force`",
	}

	configLoadFailedIssue = &Issue{
		id: ConfigLoadFailedId,
		mdMsg: `
# Failed to load configuration!

## Things you can try:
- Show where the config file is expected:
~~~
$ ragstrap config path
~~~

- Check the CUE syntax and field names against the defaults:
~~~
$ ragstrap config dump
~~~

- Remove the file to fall back to defaults`,
		extLinks: []HttpLink{"https://cuelang.org/docs/"},
	}

	issues = map[Id]*Issue{
		rateLimitedIssue.Id():           rateLimitedIssue,
		repositoryUnavailableIssue.Id(): repositoryUnavailableIssue,
		invalidSourceURLIssue.Id():      invalidSourceURLIssue,
		unsafeArchiveIssue.Id():         unsafeArchiveIssue,
		toolchainNotFoundIssue.Id():     toolchainNotFoundIssue,
		toolchainBuildFailedIssue.Id():  toolchainBuildFailedIssue,
		noExecutableIssue.Id():          noExecutableIssue,
		notBuildableCLIIssue.Id():       notBuildableCLIIssue,
		referenceNotFoundIssue.Id():     referenceNotFoundIssue,
		referenceExistsIssue.Id():       referenceExistsIssue,
		invalidMetadataIssue.Id():       invalidMetadataIssue,
		configLoadFailedIssue.Id():      configLoadFailedIssue,
	}
)

// Values returns every catalog entry ordered by Id.
func Values() []*Issue {
	values := make([]*Issue, 0, len(issues))
	for _, i := range issues {
		values = append(values, i)
	}
	slices.SortFunc(values, func(a, b *Issue) int { return int(a.id) - int(b.id) })
	return values
}

func Get(id Id) *Issue {
	return issues[id]
}
