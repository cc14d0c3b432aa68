// Appcache keeps an offline cache manifest in sync with a web app's files
// and assembles its script bundles.
package main

import "github.com/albertocavalcante/appcache/cmd/appcache/internal/cli"

func main() {
	cli.Execute()
}
