// Command storysite serves the site and inspects its content source.
package main

// version is set at build time via ldflags.
var version = "dev"

func main() {
	Execute()
}
