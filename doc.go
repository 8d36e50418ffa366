/*
	Package doublet detects resources that are provided by more than one container on a search path.

A search path is an ordered list of containers: plain directories, zip-format archives
(jar, war, zip) and archives nested inside other archives. When two containers carry an
entry with the same name, only the first one in search-path order is visible at runtime.
Such a name is a doublet. A doublet whose copies differ in content is incompatible, and is
usually the cause of "works on my machine" failures.

# Overview

A Monitor scans the search path once in the background and keeps an immutable Index
snapshot mapping every resource name to the containers providing it. Queries wait for the
scan only while it has not completed. If the wait is interrupted, the scan is recomputed on
the caller's goroutine so a query never fails because of the background task.

Content comparison is lazy: a doublet is classified the first time IncompatibleNames or
IsIncompatible needs it and the answer is remembered until Reset.

# Search Path

The search path is built from, in order of precedence:
  - an override list (WithSearchPathOverride), which replaces everything else
  - the explicit path (WithExplicitPath) followed by the containers of the provider (WithProvider)

Entries may use wildcards in their outermost link ("lib/*.jar", "plugins/**") and may
reference nested archives with the "!/" separator:

	/srv/app.war!/WEB-INF/lib/core.jar

Providers are recognized through a registry of profiles keyed by package-qualified type
name. Built-in profiles cover go/build.Context, os/exec.Cmd, SearchPath and any value
implementing ContainerLister. An unrecognized provider is reported unsupported and only the
explicit path is scanned.

# Basic Usage

	m, err := doublet.Open(
	    doublet.WithExplicitPath("lib/a.jar", "lib/b.jar", "classes"),
	    doublet.WithMaxDiagnosticEntries(100),
	)
	if err != nil {
	    log.Fatal(err)
	}
	defer m.Close()

	for _, name := range m.Doublets(ctx) {
	    fmt.Println("doublet:", name)
	}

	incompatible, err := m.IncompatibleNames(ctx)
	if err != nil {
	    var ioErr *doublet.IOError
	    if errors.As(err, &ioErr) {
	        log.Printf("cannot compare %s with %s: %v", ioErr.Ref, ioErr.Other, ioErr.Err)
	    }
	}

# Locators

A Locator references one entry through its container chain, e.g.
"jar:file:/srv/app.war!/WEB-INF/lib/core.jar!/META-INF/plugin.xml". Size reports the size
declared by the innermost container and Equal compares sizes before reading content. A
reference with an unknown scheme is not comparable and never equal to anything.

# Reports

Dump writes plain text reports (search path, containers, names, unused names, doublets,
incompatible doublets with sizes and digests, detected adapter) into a directory. Register
the monitor with a ShutdownRegistrar and set WithDumpDir to have them written at exit.

# Thread Safety

A Monitor is safe for concurrent use. The index snapshot is never mutated; Reset replaces
it together with every per-name cache and the incompatible registry.
*/
package doublet
