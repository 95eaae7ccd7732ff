// Command crm runs the CRM backend.
//
//	@title			CRM API
//	@version		1.0
//	@description	Contact lifecycle, sales pipeline, notifications and user management.
//	@BasePath		/api/v1
package main

import (
	"os"

	"github.com/tbourn/go-crm-backend/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}
