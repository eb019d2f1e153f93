package main

import (
	"context"
	"fmt"

	"github.com/trezcool/ebd/core/user"
)

// addEditor creates an approved editor.
func (cli *commandLine) addEditor(name, email, pwd string) error {
	ne := user.NewEditor{Name: name, Email: email, Password: pwd}
	if err := ne.Validate(cli.validate, cli.usrSvc); err != nil {
		return err
	}
	usr, err := cli.usrSvc.CreateEditor(context.Background(), ne)
	if err != nil {
		return err
	}
	fmt.Printf("editor %q created: %s\n", usr.Name, usr.ID)
	return nil
}
