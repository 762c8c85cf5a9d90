// Command docctl administers a docflow deployment directly against its database.
package main

import "os"

func main() {
	os.Exit(Run())
}
