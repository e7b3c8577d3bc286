// Command sample is a goanonymize binary built with the sample models.
package main

import (
	"github.com/dbsmedya/goanonymize/cmd/goanonymize/cmd"

	_ "github.com/dbsmedya/goanonymize/sample/models"
)

func main() {
	cmd.Execute()
}
