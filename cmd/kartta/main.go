// Kartta - Cloud Inventory Extractor
// Walk. Extract. Write.
package main

func main() {
	Execute()
}
