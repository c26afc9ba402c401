// orgcal turns org-mode outlines into calendar feeds and calendar stores
// into an org-mode outline.
//
// Usage:
//
//	orgcal serve                      serve feeds and refresh the calendar outline
//	orgcal import [--once]            refresh the calendar outline from sources
//	orgcal merge -o OUT FILE...       merge .ics files into one feed
//	orgcal feed KIND                  print the org feed of one entry kind
//	orgcal timeline                   print the timeline JSON
//	orgcal snapshot --db DB FILE...   load .ics files into a calendar store
package main

import (
	"fmt"
	"os"
	_ "time/tzdata"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
