// Command ingest loads spreadsheets and delimited files of unknown layout
// into canonical asset, license, employee and decommission records.
package main

func main() {
	Execute()
}
