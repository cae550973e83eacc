// Command goshape validates JSON and YAML documents against schema documents
// and serves registered schemas over HTTP.
package main

func main() {
	Execute()
}
