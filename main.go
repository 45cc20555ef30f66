// Command readlater keeps a local list of pages and notes to read later, tags
// them, and optionally syncs them across devices.
//
// Usage:
//
//	readlater add https://example.com/article
//	readlater list --tab unread
//	readlater serve
//
// See --help for all commands.
package main

func main() {
	Execute()
}
