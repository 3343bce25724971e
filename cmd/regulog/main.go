// Command regulog is the CLI collaborator: a thin consumer of the core
// packages (scanner, matcher, store, export, extractor) that implements
// no event-extraction semantics of its own.
package main

func main() {
	Execute()
}
