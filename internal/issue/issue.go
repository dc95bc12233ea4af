// SPDX-License-Identifier: MPL-2.0

package issue

import (
	"maps"
	"slices"
	"strings"

	"github.com/charmbracelet/glamour"
)

// Id identifies a catalog entry.
type Id int

const (
	BuildToolFailedId Id = iota + 1
	BuildOutputMissingId
	StagingFailedId
	ReadmeNotFoundId
	ConfigLoadFailedId
	JavaNotFoundId
	ArtifactNotStagedId
	NoPackageDataId
)

const docsBase = "https://github.com/Coral-Protocol/coral-server"

type (
	// MarkdownMsg is the Markdown body of an issue page.
	MarkdownMsg string

	// HttpLink is a documentation URL listed under "See also".
	HttpLink string

	// Issue is one guidance page.
	Issue struct {
		id       Id
		mdMsg    MarkdownMsg
		docLinks []HttpLink
		extLinks []HttpLink
	}
)

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

// Render renders the page with the named glamour style ("dark", "light",
// "notty", ...).
func (i *Issue) Render(stylePath string) (string, error) {
	var md strings.Builder
	md.WriteString(string(i.mdMsg))
	if links := append(i.DocLinks(), i.ExtLinks()...); len(links) > 0 {
		md.WriteString("\n\n## See also\n")
		for _, link := range links {
			md.WriteString("- <" + string(link) + ">\n")
		}
	}
	return render(md.String(), stylePath)
}

var (
	render = glamour.Render

	buildToolFailedIssue = &Issue{
		id: BuildToolFailedId,
		mdMsg: `
# The Gradle build failed

The server JAR was not staged, so it was built with the Gradle wrapper and the
build exited with a non-zero status.

## Things you can try
- Please build it manually using the wrapper from the project root:
~~~
$ ./gradlew build
~~~
- On Windows use ` + "`gradlew.bat build`" + `.
- Make sure a JDK is installed and ` + "`JAVA_HOME`" + ` points at it.
- Re-run with ` + "`--verbose`" + ` to see the full build output.`,
		docLinks: []HttpLink{docsBase + "#building"},
		extLinks: []HttpLink{"https://docs.gradle.org/current/userguide/gradle_wrapper.html"},
	}

	buildOutputMissingIssue = &Issue{
		id: BuildOutputMissingId,
		mdMsg: `
# The build finished but produced no JAR

The build tool reported success, yet ` + "`build/libs/coral-server-1.0-SNAPSHOT.jar`" + `
does not exist.

## Things you can try
- Check that the project version is still ` + "`1.0-SNAPSHOT`" + `.
- Point ` + "`paths.build_output`" + ` in your config at the real artifact:
~~~
$ coralpkg config show
~~~`,
		docLinks: []HttpLink{docsBase + "#building"},
	}

	stagingFailedIssue = &Issue{
		id: StagingFailedId,
		mdMsg: `
# Could not stage the server JAR

Copying the build output into the Python package directory failed.

## Things you can try
- Check write permissions on ` + "`python/coral_server/jar/`" + `.
- Make sure no other process is holding the JAR open.
- Remove a half-written JAR and run ` + "`coralpkg provision --force`" + `.`,
		docLinks: []HttpLink{docsBase},
	}

	readmeNotFoundIssue = &Issue{
		id: ReadmeNotFoundId,
		mdMsg: `
# README.md is missing

The package long description is read from ` + "`README.md`" + ` at the project root.

## Things you can try
- Run the command from the project root, or pass ` + "`--root`" + `.
- Set ` + "`paths.readme`" + ` in your config.`,
		docLinks: []HttpLink{docsBase},
	}

	configLoadFailedIssue = &Issue{
		id: ConfigLoadFailedId,
		mdMsg: `
# Failed to load configuration

coralpkg could not read or validate its configuration file.

## Things you can try
- Show where the file is expected:
~~~
$ coralpkg config path
~~~
- Write a fresh default:
~~~
$ coralpkg config init
~~~
- Check the CUE syntax; the error above names the offending field.`,
		docLinks: []HttpLink{docsBase},
		extLinks: []HttpLink{"https://cuelang.org/docs/"},
	}

	javaNotFoundIssue = &Issue{
		id: JavaNotFoundId,
		mdMsg: `
# No Java runtime found

The server is a JVM application. coralpkg looked at ` + "`launcher.java`" + `,
then ` + "`$JAVA_HOME/bin/java`" + `, then ` + "`PATH`" + `.

## Things you can try
- Install a JDK (17 or newer) and make sure ` + "`java -version`" + ` works.
- Set ` + "`JAVA_HOME`" + ` or ` + "`launcher.java`" + ` explicitly.`,
		extLinks: []HttpLink{"https://adoptium.net/"},
	}

	artifactNotStagedIssue = &Issue{
		id: ArtifactNotStagedId,
		mdMsg: `
# The server JAR is not staged

The packaged JAR could not be found next to the Python package.

## Things you can try
~~~
$ coralpkg provision
~~~`,
		docLinks: []HttpLink{docsBase},
	}

	noPackageDataIssue = &Issue{
		id: NoPackageDataId,
		mdMsg: `
# No package data matched

None of the ` + "`package_data`" + ` patterns matched a file, so the
distribution would ship without the server JAR.

## Things you can try
- Provision the JAR first:
~~~
$ coralpkg provision
~~~
- Check the patterns in ` + "`coral.cue`" + `.`,
		docLinks: []HttpLink{docsBase},
	}

	issues = map[Id]*Issue{
		buildToolFailedIssue.Id():    buildToolFailedIssue,
		buildOutputMissingIssue.Id(): buildOutputMissingIssue,
		stagingFailedIssue.Id():      stagingFailedIssue,
		readmeNotFoundIssue.Id():     readmeNotFoundIssue,
		configLoadFailedIssue.Id():   configLoadFailedIssue,
		javaNotFoundIssue.Id():       javaNotFoundIssue,
		artifactNotStagedIssue.Id():  artifactNotStagedIssue,
		noPackageDataIssue.Id():      noPackageDataIssue,
	}
)

// Values returns every catalog entry ordered by Id.
func Values() []*Issue {
	return slices.SortedFunc(maps.Values(issues), func(a, b *Issue) int {
		return int(a.id) - int(b.id)
	})
}

// Get returns the entry for id, or nil.
func Get(id Id) *Issue {
	return issues[id]
}
