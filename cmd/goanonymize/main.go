// Command goanonymize runs the anonymization commands over the models
// registered with anonymize.Register. Applications build their own binary
// by importing their model packages next to the cmd package; this one
// ships with no models.
package main

import "github.com/dbsmedya/goanonymize/cmd/goanonymize/cmd"

func main() {
	cmd.Execute()
}
