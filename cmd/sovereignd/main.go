// sovereignd is the constitutional governance kernel daemon and CLI.
package main

import "github.com/Andy160675/SanctuarySovereignSystems-sub001/internal/cli"

func main() {
	cli.Execute()
}
