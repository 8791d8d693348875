// Package main is the entry point for the sage data validation service.
package main

func main() {
	Execute()
}
