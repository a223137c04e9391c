// Command flowctl validates automation flow files and moves them to and from
// the automations API.
package main

func main() {
	Execute()
}
